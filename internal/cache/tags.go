package cache

import "github.com/regwave/regwave/internal/models"

// Well-known tags and keys. Mutating code tags its entries with these so
// the convenience invalidators below can target exactly the derived state a
// change poisons.
const (
	// TagDependencyGraph marks cached adjacency snapshots.
	TagDependencyGraph = "dependency-graph"
	// TagRiskScores marks cached risk aggregation output.
	TagRiskScores = "risk-scores"
	// TagImpactAnalysis marks cached propagation results.
	TagImpactAnalysis = "impact-analysis"

	// KeyDependencyGraph is the per-tenant cache key for the adjacency
	// snapshot (full internal key "<tenant>:dependency-graph").
	KeyDependencyGraph = "dependency-graph"
)

// TagRegulation returns the tag naming one regulation's derived state.
func TagRegulation(regulationID string) string {
	return "regulation:" + regulationID
}

// TagEntity returns the tag naming one entity's derived state.
func TagEntity(entityType models.NodeType, id string) string {
	return "entity:" + string(entityType) + ":" + id
}

// InvalidateRegulation drops everything a regulation change poisons for the
// tenant: the regulation's own entries, the dependency graph, risk scores,
// and cached impact analyses. Returns the count removed.
func (c *TagCache) InvalidateRegulation(tenant, regulationID string) int {
	return c.invalidate([]string{
		TagRegulation(regulationID),
		TagDependencyGraph,
		TagRiskScores,
		TagImpactAnalysis,
	}, tenant)
}

// InvalidateEntity drops the tenant's derived state poisoned by a change to
// one entity: the entity's entries, the dependency graph, and risk scores.
func (c *TagCache) InvalidateEntity(tenant string, entityType models.NodeType, id string) int {
	return c.invalidate([]string{
		TagEntity(entityType, id),
		TagDependencyGraph,
		TagRiskScores,
	}, tenant)
}

// InvalidateEdges drops the tenant's cached dependency graph after an edge
// mutation.
func (c *TagCache) InvalidateEdges(tenant string) int {
	return c.invalidate([]string{TagDependencyGraph}, tenant)
}
