package graph

import (
	"context"
	"time"

	"github.com/regwave/regwave/internal/cache"
	"github.com/regwave/regwave/internal/logging"
	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/store"
)

// GraphTTL is how long a cached adjacency snapshot stays valid absent any
// invalidation. Entity and edge mutations invalidate it much earlier
// through the dependency-graph tag.
const GraphTTL = time.Hour

// Builder loads adjacency snapshots through the cache. Safe for concurrent
// use; a store failure is surfaced to the caller and never cached.
type Builder struct {
	store  store.Store
	cache  *cache.TagCache
	logger *logging.Logger
}

// NewBuilder wires a Builder over the store and cache.
func NewBuilder(st store.Store, tc *cache.TagCache) *Builder {
	return &Builder{
		store:  st,
		cache:  tc,
		logger: logging.GetLogger("graph.builder"),
	}
}

// BuildGraph returns the tenant's dependency graph, reusing the cached
// snapshot when one is live. On a miss it loads the active edges, buckets
// them, and caches the result under the dependency-graph tag so the next
// entity or edge mutation drops it.
func (b *Builder) BuildGraph(ctx context.Context, tenantID string) (*Graph, error) {
	if cached, ok := b.cache.Get(tenantID, cache.KeyDependencyGraph); ok {
		if g, ok := cached.(*Graph); ok {
			return g, nil
		}
	}

	edges, err := b.store.ActiveEdges(ctx, tenantID)
	if err != nil {
		return nil, models.NewUpstreamError("load active edges", err)
	}

	g := newGraph(tenantID, edges)
	b.cache.Set(tenantID, cache.KeyDependencyGraph, g, GraphTTL, cache.TagDependencyGraph)

	b.logger.DebugWithFields("dependency graph built",
		logging.Field("tenant", tenantID),
		logging.Field("edges", len(g.Edges)),
	)
	return g, nil
}
