// Package graph builds and caches the per-tenant dependency graph: every
// active impact edge bucketed into outgoing and incoming adjacency lists
// keyed by node. Graphs are immutable once built, so concurrent
// propagations share them without locks.
package graph

import "github.com/regwave/regwave/internal/models"

// Graph is the adjacency snapshot of one tenant's active edges. Adjacency
// lists preserve the store's edge order, which fixes the edge-visitation
// order within a traversal depth.
type Graph struct {
	TenantID string
	Outgoing map[models.NodeRef][]models.ImpactEdge
	Incoming map[models.NodeRef][]models.ImpactEdge
	Edges    []models.ImpactEdge
}

// newGraph buckets the active edges into both adjacency maps.
func newGraph(tenantID string, edges []models.ImpactEdge) *Graph {
	g := &Graph{
		TenantID: tenantID,
		Outgoing: make(map[models.NodeRef][]models.ImpactEdge),
		Incoming: make(map[models.NodeRef][]models.ImpactEdge),
		Edges:    edges,
	}
	for _, e := range edges {
		g.Outgoing[e.Source] = append(g.Outgoing[e.Source], e)
		g.Incoming[e.Target] = append(g.Incoming[e.Target], e)
	}
	return g
}

// OutgoingEdges returns the edges leaving the node, or nil when the node
// has none.
func (g *Graph) OutgoingEdges(ref models.NodeRef) []models.ImpactEdge {
	return g.Outgoing[ref]
}

// IncomingEdges returns the edges arriving at the node, or nil when the
// node has none.
func (g *Graph) IncomingEdges(ref models.NodeRef) []models.ImpactEdge {
	return g.Incoming[ref]
}

// Stats summarizes a graph for reporting surfaces.
type Stats struct {
	EdgeCount   int                     `json:"edgeCount"`
	NodeCount   int                     `json:"nodeCount"`
	NodesByType map[models.NodeType]int `json:"nodesByType"`
}

// Stats counts the distinct nodes and edges in the graph.
func (g *Graph) Stats() Stats {
	nodes := make(map[models.NodeRef]struct{})
	for _, e := range g.Edges {
		nodes[e.Source] = struct{}{}
		nodes[e.Target] = struct{}{}
	}
	byType := make(map[models.NodeType]int)
	for ref := range nodes {
		byType[ref.Type]++
	}
	return Stats{
		EdgeCount:   len(g.Edges),
		NodeCount:   len(nodes),
		NodesByType: byType,
	}
}
