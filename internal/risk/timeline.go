package risk

import (
	"context"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/regwave/regwave/internal/logging"
	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/propagation"
	"github.com/regwave/regwave/internal/store"
)

const (
	// timelineDepth caps timeline propagations shallower than risk runs;
	// the comparison cares about near effects, not full transitive reach.
	timelineDepth = 5
	// baselineWeight flattens every prior regulation's contribution to the
	// before state. The baseline measures pre-existing regulatory
	// pressure, independent of any one regulation's severity.
	baselineWeight = 0.5
	// deltaThreshold drops movements too small to report.
	deltaThreshold = 0.01
)

// Timeline computes before/after impact comparisons for one regulation
// against a reference date window.
type Timeline struct {
	store   store.Store
	engines *propagation.Factory
	tracer  trace.Tracer
	logger  *logging.Logger
}

// NewTimeline wires a timeline engine over the shared propagation factory.
func NewTimeline(st store.Store, engines *propagation.Factory) *Timeline {
	return &Timeline{
		store:   st,
		engines: engines,
		tracer:  otel.Tracer("regwave/risk"),
		logger:  logging.GetLogger("risk.timeline"),
	}
}

// CompareImpact contrasts the impact landscape before the target
// regulation (every other regulation effective before beforeDate, each
// weighted by the flat baseline weight) with the target regulation's own
// impact. Deltas below the reporting threshold are dropped; the rest are
// sorted by absolute movement descending.
func (t *Timeline) CompareImpact(ctx context.Context, regulationID string, beforeDate, afterDate time.Time) (*models.TimelineComparison, error) {
	return t.CompareImpactWithProgress(ctx, regulationID, beforeDate, afterDate, nil)
}

// CompareImpactWithProgress is CompareImpact with a completion callback:
// progress receives 0.5 once the baseline half is done, before the target
// regulation's own propagation starts. A nil progress is ignored.
func (t *Timeline) CompareImpactWithProgress(ctx context.Context, regulationID string, beforeDate, afterDate time.Time, progress func(fraction float64)) (*models.TimelineComparison, error) {
	ctx, span := t.tracer.Start(ctx, "risk.compare_impact",
		trace.WithAttributes(attribute.String("regulation", regulationID)))
	defer span.End()

	target, err := t.store.FindRegulation(ctx, regulationID)
	if err != nil {
		return nil, err
	}

	before, err := t.beforeState(ctx, target, beforeDate)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(0.5)
	}
	after, names, err := t.afterState(ctx, target)
	if err != nil {
		return nil, err
	}

	comparison := &models.TimelineComparison{
		RegulationID: regulationID,
		BeforeDate:   beforeDate,
		AfterDate:    afterDate,
	}

	keys := make(map[models.NodeRef]struct{}, len(before)+len(after))
	for ref := range before {
		comparison.BeforeTotal += before[ref]
		keys[ref] = struct{}{}
	}
	for ref := range after {
		comparison.AfterTotal += after[ref]
		keys[ref] = struct{}{}
	}

	for ref := range keys {
		b, a := before[ref], after[ref]
		delta := a - b
		if math.Abs(delta) <= deltaThreshold {
			continue
		}
		percent := 100.0
		if b != 0 {
			percent = delta / b * 100
		}
		comparison.Deltas = append(comparison.Deltas, models.ImpactDelta{
			Entity:        ref,
			DisplayName:   names[ref],
			Before:        b,
			After:         a,
			Delta:         delta,
			PercentChange: percent,
		})
	}

	sort.SliceStable(comparison.Deltas, func(i, j int) bool {
		di, dj := math.Abs(comparison.Deltas[i].Delta), math.Abs(comparison.Deltas[j].Delta)
		if di != dj {
			return di > dj
		}
		return comparison.Deltas[i].Entity.Key() < comparison.Deltas[j].Entity.Key()
	})

	t.logger.DebugWithFields("timeline comparison complete",
		logging.Field("regulation", regulationID),
		logging.Field("deltas", len(comparison.Deltas)),
	)
	return comparison, nil
}

// beforeState aggregates the flat-weighted impact of every other
// regulation effective before the reference date. Source nodes are
// excluded from the map.
func (t *Timeline) beforeState(ctx context.Context, target *models.Regulation, beforeDate time.Time) (map[models.NodeRef]float64, error) {
	prior, err := t.store.RegulationsActiveBefore(ctx, target.TenantID, beforeDate, target.ID)
	if err != nil {
		return nil, models.NewUpstreamError("load prior regulations", err)
	}

	opts := propagation.DefaultOptions()
	opts.MaxDepth = timelineDepth

	state := make(map[models.NodeRef]float64)
	for _, reg := range prior {
		engine, err := t.engines.Engine(target.TenantID, opts)
		if err != nil {
			return nil, err
		}
		result, err := engine.Propagate(ctx, propagation.Config{
			Source:        reg.NodeRef(),
			InitialImpact: propagation.SeverityToInitialImpact(reg.Severity),
		})
		if err != nil {
			return nil, err
		}
		if result.Cancelled {
			return nil, models.NewCancelledError("timeline before state", ctx.Err())
		}
		for _, node := range result.Nodes {
			ref := models.NodeRef{Type: node.Type, ID: node.ID}
			if ref == result.Source {
				continue
			}
			state[ref] += node.ImpactScore * baselineWeight
		}
	}
	return state, nil
}

// afterState propagates only the target regulation and returns its impact
// map along with the display names collected on the way.
func (t *Timeline) afterState(ctx context.Context, target *models.Regulation) (map[models.NodeRef]float64, map[models.NodeRef]string, error) {
	opts := propagation.DefaultOptions()
	opts.MaxDepth = timelineDepth

	engine, err := t.engines.Engine(target.TenantID, opts)
	if err != nil {
		return nil, nil, err
	}
	result, err := engine.Propagate(ctx, propagation.Config{
		Source:        target.NodeRef(),
		InitialImpact: propagation.SeverityToInitialImpact(target.Severity),
	})
	if err != nil {
		return nil, nil, err
	}
	if result.Cancelled {
		return nil, nil, models.NewCancelledError("timeline after state", ctx.Err())
	}

	state := make(map[models.NodeRef]float64, len(result.Nodes))
	names := make(map[models.NodeRef]string, len(result.Nodes))
	for _, node := range result.Nodes {
		ref := models.NodeRef{Type: node.Type, ID: node.ID}
		if ref == result.Source {
			continue
		}
		state[ref] = node.ImpactScore
		names[ref] = node.DisplayName
	}
	return state, names, nil
}
