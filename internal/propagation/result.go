package propagation

import "github.com/regwave/regwave/internal/models"

// Node is one reached entity with the strength and shape of its best
// surviving path.
type Node struct {
	ID          string          `json:"id"`
	Type        models.NodeType `json:"type"`
	DisplayName string          `json:"displayName"`
	ImpactScore float64         `json:"impactScore"` // best path, never summed across paths
	Depth       int             `json:"depth"`
	Path        []TraversedEdge `json:"path"`
}

// TraversedEdge records one accepted traversal step.
type TraversedEdge struct {
	Source     models.NodeRef    `json:"source"`
	Target     models.NodeRef    `json:"target"`
	Weight     float64           `json:"weight"`
	ImpactType models.ImpactType `json:"impactType"`
}

// Result is the outcome of one propagation run. Nodes is keyed by the
// canonical "type:id" node key and always contains the source at depth 0;
// Edges lists every accepted edge in traversal order.
type Result struct {
	Source          models.NodeRef   `json:"source"`
	TotalAffected   int              `json:"totalAffected"` // reached nodes excluding the source
	MaxDepth        int              `json:"maxDepth"`      // deepest reached node
	Nodes           map[string]*Node `json:"nodes"`
	Edges           []TraversedEdge  `json:"edges"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
	Cancelled       bool             `json:"cancelled,omitempty"`
}

// NodeFor returns the result node for ref, or nil when unreached.
func (r *Result) NodeFor(ref models.NodeRef) *Node {
	return r.Nodes[ref.Key()]
}

// ImpactRows converts the result into persistable per-entity rows,
// excluding the source.
func (r *Result) ImpactRows(tenantID, regulationID string) []models.RegulationImpact {
	rows := make([]models.RegulationImpact, 0, len(r.Nodes))
	for _, node := range r.Nodes {
		ref := models.NodeRef{Type: node.Type, ID: node.ID}
		if ref == r.Source {
			continue
		}
		path := make([]string, len(node.Path))
		for i, step := range node.Path {
			path[i] = step.Source.Key() + "->" + step.Target.Key()
		}
		rows = append(rows, models.RegulationImpact{
			TenantID:     tenantID,
			RegulationID: regulationID,
			Entity:       ref,
			ImpactScore:  node.ImpactScore,
			ImpactLevel:  ImpactToRiskLevel(node.ImpactScore),
			Depth:        node.Depth,
			Path:         path,
		})
	}
	return rows
}
