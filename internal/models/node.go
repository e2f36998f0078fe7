// Package models defines the domain types shared by every regwave
// component: tenants, the five entity families, weighted impact edges,
// derived impact and risk records, and the error kinds the engine emits.
package models

import "strings"

// NodeType identifies which entity family a graph node belongs to.
type NodeType string

const (
	NodeTypeRegulation NodeType = "REGULATION"
	NodeTypeDepartment NodeType = "DEPARTMENT"
	NodeTypeBudget     NodeType = "BUDGET"
	NodeTypeService    NodeType = "SERVICE"
	NodeTypeKPI        NodeType = "KPI"
)

// AllNodeTypes returns every valid node type, ordered the way impact
// typically flows: regulations first, KPIs last.
func AllNodeTypes() []NodeType {
	return []NodeType{
		NodeTypeRegulation,
		NodeTypeDepartment,
		NodeTypeBudget,
		NodeTypeService,
		NodeTypeKPI,
	}
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeRegulation, NodeTypeDepartment, NodeTypeBudget, NodeTypeService, NodeTypeKPI:
		return true
	}
	return false
}

// NodeRef identifies a graph participant as a (type, id) pair. It is
// comparable, so it serves directly as the key of adjacency and result maps.
type NodeRef struct {
	Type NodeType `json:"type"`
	ID   string   `json:"id"`
}

// Key renders the canonical string form "type:id" used in cache tags,
// persisted paths, and event payloads.
func (n NodeRef) Key() string {
	return string(n.Type) + ":" + n.ID
}

// String implements fmt.Stringer.
func (n NodeRef) String() string {
	return n.Key()
}

// ParseNodeKey parses the canonical "type:id" form back into a NodeRef.
// The id may itself contain colons; only the first separator is structural.
func ParseNodeKey(key string) (NodeRef, error) {
	idx := strings.Index(key, ":")
	if idx <= 0 || idx == len(key)-1 {
		return NodeRef{}, NewInvalidError("malformed node key %q", key)
	}
	ref := NodeRef{Type: NodeType(key[:idx]), ID: key[idx+1:]}
	if !ref.Type.Valid() {
		return NodeRef{}, NewInvalidError("unknown node type in key %q", key)
	}
	return ref, nil
}
