package propagation

import (
	"github.com/regwave/regwave/internal/cache"
	"github.com/regwave/regwave/internal/graph"
	"github.com/regwave/regwave/internal/metrics"
	"github.com/regwave/regwave/internal/store"
)

// Factory builds per-tenant engines over shared infrastructure: one
// builder, one cache, one name resolver, one set of instruments. The risk
// aggregator constructs one engine per regulation through it.
type Factory struct {
	store    store.Store
	cache    *cache.TagCache
	builder  *graph.Builder
	resolver *NameResolver
	metrics  *metrics.Metrics
}

// NewFactory wires the shared engine infrastructure. metrics may be nil.
func NewFactory(st store.Store, tc *cache.TagCache, m *metrics.Metrics) *Factory {
	return &Factory{
		store:    st,
		cache:    tc,
		builder:  graph.NewBuilder(st, tc),
		resolver: NewNameResolver(st),
		metrics:  m,
	}
}

// Engine returns an engine for the tenant with the given options.
func (f *Factory) Engine(tenantID string, opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newEngine(tenantID, opts, f.builder, f.cache, f.resolver, f.metrics), nil
}

// Builder exposes the shared graph builder for reporting surfaces.
func (f *Factory) Builder() *graph.Builder {
	return f.builder
}

// Resolver exposes the shared name resolver.
func (f *Factory) Resolver() *NameResolver {
	return f.resolver
}
