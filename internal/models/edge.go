package models

// ImpactType classifies how an edge transmits impact. The type selects the
// propagation multiplier and, for CONDITIONAL edges, gates traversal on the
// edge's condition object.
type ImpactType string

const (
	ImpactDirect      ImpactType = "DIRECT"
	ImpactIndirect    ImpactType = "INDIRECT"
	ImpactConditional ImpactType = "CONDITIONAL"
)

// Valid reports whether t is one of the known impact types.
func (t ImpactType) Valid() bool {
	switch t {
	case ImpactDirect, ImpactIndirect, ImpactConditional:
		return true
	}
	return false
}

// ImpactEdge is a directed, weighted dependency between two graph nodes.
// At most one active edge may exist per (tenant, source, target), and an
// edge never connects a node to itself.
type ImpactEdge struct {
	ID             string                 `json:"id"`
	TenantID       string                 `json:"tenantId"`
	Source         NodeRef                `json:"source"`
	Target         NodeRef                `json:"target"`
	ImpactWeight   float64                `json:"impactWeight"` // [0,1]
	ImpactType     ImpactType             `json:"impactType"`
	ImpactCategory string                 `json:"impactCategory,omitempty"`
	Condition      map[string]interface{} `json:"condition,omitempty"` // evaluated for CONDITIONAL edges
	Active         bool                   `json:"active"`
}

// Key renders the directed edge identity "sourceKey->targetKey" used by the
// traversal's visited set and in persisted paths.
func (e *ImpactEdge) Key() string {
	return e.Source.Key() + "->" + e.Target.Key()
}

// Validate checks the structural invariants of a single edge. Uniqueness
// against other edges and referent existence are store concerns.
func (e *ImpactEdge) Validate() error {
	if e.TenantID == "" {
		return NewInvalidError("edge requires a tenant")
	}
	if !e.Source.Type.Valid() {
		return NewInvalidError("unknown source type %q", e.Source.Type)
	}
	if !e.Target.Type.Valid() {
		return NewInvalidError("unknown target type %q", e.Target.Type)
	}
	if e.Source.ID == "" || e.Target.ID == "" {
		return NewInvalidError("edge endpoints require ids")
	}
	if e.Source == e.Target {
		return NewInvalidError("edge %s is a self-loop", e.Source.Key())
	}
	if e.ImpactWeight < 0 || e.ImpactWeight > 1 {
		return NewInvalidError("impact weight %.4f outside [0,1]", e.ImpactWeight)
	}
	if !e.ImpactType.Valid() {
		return NewInvalidError("unknown impact type %q", e.ImpactType)
	}
	return nil
}
