// Package propagation implements the breadth-first weighted-impact
// traversal at the heart of regwave. From a seed node and initial impact
// it expands outward over the tenant's dependency graph, attenuating
// impact per edge, pruning below the threshold and beyond the depth cap,
// and recording the strongest surviving path to every reached node.
package propagation

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/regwave/regwave/internal/cache"
	"github.com/regwave/regwave/internal/graph"
	"github.com/regwave/regwave/internal/logging"
	"github.com/regwave/regwave/internal/metrics"
	"github.com/regwave/regwave/internal/models"
)

// resultTTL is how long a cached propagation result stays valid absent
// invalidation through the impact-analysis or dependency-graph tags.
const resultTTL = 30 * time.Minute

// Engine runs propagations for one tenant. A single run is strictly
// sequential; engines for different tenants may run in parallel, and
// several engines for the same tenant share the immutable graph snapshot.
type Engine struct {
	tenantID string
	opts     Options
	builder  *graph.Builder
	cache    *cache.TagCache
	resolver *NameResolver
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *logging.Logger
}

// frontierItem is one pending expansion: a reached node, the impact it
// carries, and its depth.
type frontierItem struct {
	ref    models.NodeRef
	impact float64
	depth  int
}

// Propagate runs one traversal from cfg.Source. The result always
// contains the source node at depth 0; a source with no outgoing edges
// yields zero affected nodes. Cancellation via ctx aborts at the next
// edge-examination boundary and returns the partial result with Cancelled
// set.
func (e *Engine) Propagate(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.InitialImpact == 0 {
		cfg.InitialImpact = DefaultInitialImpact
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "propagation.propagate",
		trace.WithAttributes(
			attribute.String("tenant", e.tenantID),
			attribute.String("source", cfg.Source.Key()),
		))
	defer span.End()

	cacheKey := e.resultKey(cfg)
	if cacheKey != "" {
		if cached, ok := e.cache.Get(e.tenantID, cacheKey); ok {
			if result, ok := cached.(*Result); ok {
				return result, nil
			}
		}
	}

	g, err := e.builder.BuildGraph(ctx, e.tenantID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := e.traverse(ctx, g, cfg)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	if e.metrics != nil {
		e.metrics.PropagationRuns.Inc()
		e.metrics.PropagationDuration.Observe(time.Since(start).Seconds())
		e.metrics.NodesReached.Add(float64(len(result.Nodes)))
	}
	span.SetAttributes(
		attribute.Int("affected", result.TotalAffected),
		attribute.Bool("cancelled", result.Cancelled),
	)

	e.logger.DebugWithFields("propagation complete",
		logging.Field("tenant", e.tenantID),
		logging.Field("source", cfg.Source.Key()),
		logging.Field("affected", result.TotalAffected),
		logging.Field("max_depth", result.MaxDepth),
		logging.Field("elapsed_ms", result.ExecutionTimeMs),
	)

	if cacheKey != "" && !result.Cancelled {
		// Tagging with the dependency graph ties the result's lifetime to
		// the graph it was computed from: any edge or entity mutation
		// drops it alongside the snapshot.
		tags := []string{cache.TagImpactAnalysis, cache.TagDependencyGraph}
		if cfg.Source.Type == models.NodeTypeRegulation {
			tags = append(tags, cache.TagRegulation(cfg.Source.ID))
		}
		e.cache.Set(e.tenantID, cacheKey, result, resultTTL, tags...)
	}
	return result, nil
}

// traverse is the breadth-first expansion. It owns all mutable state of
// the run: the frontier, the visited edge set, and the result maps.
func (e *Engine) traverse(ctx context.Context, g *graph.Graph, cfg Config) *Result {
	result := &Result{
		Source: cfg.Source,
		Nodes:  make(map[string]*Node),
	}
	result.Nodes[cfg.Source.Key()] = &Node{
		ID:          cfg.Source.ID,
		Type:        cfg.Source.Type,
		DisplayName: e.resolver.Resolve(ctx, e.tenantID, cfg.Source),
		ImpactScore: cfg.InitialImpact,
		Depth:       0,
	}

	frontier := []frontierItem{{ref: cfg.Source, impact: cfg.InitialImpact, depth: 0}}
	visited := make(map[string]struct{}) // directed edge keys, breaks cycles

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, edge := range g.OutgoingEdges(current.ref) {
			if ctx.Err() != nil {
				result.Cancelled = true
				e.finish(result)
				return result
			}
			if e.metrics != nil {
				e.metrics.EdgesVisited.Inc()
			}

			if !edge.Active {
				continue
			}
			if edge.ImpactType == models.ImpactIndirect && !e.opts.IncludeIndirect {
				continue
			}
			if edge.ImpactType == models.ImpactConditional && !evaluateCondition(edge.Condition) {
				continue
			}

			next := current.impact * edge.ImpactWeight *
				typeMultiplier[edge.ImpactType] * severityWeight[edge.Target.Type]
			if next < e.opts.ImpactThreshold {
				continue
			}
			if current.depth+1 > e.opts.MaxDepth {
				continue
			}
			if _, seen := visited[edge.Key()]; seen {
				continue
			}
			visited[edge.Key()] = struct{}{}

			step := TraversedEdge{
				Source:     edge.Source,
				Target:     edge.Target,
				Weight:     edge.ImpactWeight,
				ImpactType: edge.ImpactType,
			}
			result.Edges = append(result.Edges, step)

			targetKey := edge.Target.Key()
			if node, ok := result.Nodes[targetKey]; ok {
				// Best path wins; impact never accumulates across paths.
				if next > node.ImpactScore {
					node.ImpactScore = next
				}
				node.Path = append(node.Path, step)
			} else {
				result.Nodes[targetKey] = &Node{
					ID:          edge.Target.ID,
					Type:        edge.Target.Type,
					DisplayName: e.resolver.Resolve(ctx, e.tenantID, edge.Target),
					ImpactScore: next,
					Depth:       current.depth + 1,
					Path:        []TraversedEdge{step},
				}
			}

			if current.depth+1 < e.opts.MaxDepth {
				frontier = append(frontier, frontierItem{
					ref:    edge.Target,
					impact: next,
					depth:  current.depth + 1,
				})
			}
		}
	}

	e.finish(result)
	return result
}

// finish derives the aggregate result fields from the node map.
func (e *Engine) finish(result *Result) {
	result.TotalAffected = len(result.Nodes) - 1
	for _, node := range result.Nodes {
		if node.Depth > result.MaxDepth {
			result.MaxDepth = node.Depth
		}
	}
}

// resultKey derives the cache key of a run from its full configuration.
// An unhashable config (never expected) disables caching for the run.
func (e *Engine) resultKey(cfg Config) string {
	hash, err := hashstructure.Hash(struct {
		Options Options
		Config  Config
	}{e.opts, cfg}, hashstructure.FormatV2, nil)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("impact:%s:%d", cfg.Source.Key(), hash)
}

// tracerName scopes the engine's spans.
const tracerName = "regwave/propagation"

func newEngine(tenantID string, opts Options, builder *graph.Builder, tc *cache.TagCache, resolver *NameResolver, m *metrics.Metrics) *Engine {
	return &Engine{
		tenantID: tenantID,
		opts:     opts,
		builder:  builder,
		cache:    tc,
		resolver: resolver,
		metrics:  m,
		tracer:   otel.Tracer(tracerName),
		logger:   logging.GetLogger("propagation"),
	}
}
