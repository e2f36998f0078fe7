// Package risk turns per-regulation propagation results into per-entity
// risk scores, departmental rankings, and before/after timeline
// comparisons.
package risk

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/regwave/regwave/internal/logging"
	"github.com/regwave/regwave/internal/metrics"
	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/propagation"
	"github.com/regwave/regwave/internal/publish"
	"github.com/regwave/regwave/internal/store"
)

// maxParallelPropagations bounds how many per-regulation propagations run
// at once during a recalculation.
const maxParallelPropagations = 4

// severityMultiplier weights a regulation's contribution to aggregate risk
// by its severity.
var severityMultiplier = map[models.Severity]float64{
	models.SeverityCritical: 2.0,
	models.SeverityHigh:     1.5,
	models.SeverityMedium:   1.0,
	models.SeverityLow:      0.5,
}

func multiplierFor(severity models.Severity) float64 {
	if m, ok := severityMultiplier[severity]; ok {
		return m
	}
	return 1.0
}

// CalculationResult is one entity's aggregate exposure across all active
// regulations.
type CalculationResult struct {
	Entity            models.NodeRef     `json:"entity"`
	DisplayName       string             `json:"displayName"`
	BaseRiskScore     float64            `json:"baseRiskScore"`     // total / regulation count
	AdjustedRiskScore float64            `json:"adjustedRiskScore"` // severity-weighted total
	RiskLevel         models.RiskLevel   `json:"riskLevel"`
	RiskFactors       map[string]float64 `json:"riskFactors"` // regulation id -> contribution
}

// DepartmentRisk is a ranking row enriched with the department's identity.
type DepartmentRisk struct {
	CalculationResult
	Code string `json:"code"`
	Name string `json:"name"`
}

// Aggregator runs the full risk recalculation for a tenant.
type Aggregator struct {
	store     store.Store
	engines   *propagation.Factory
	publisher publish.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *logging.Logger
}

// NewAggregator wires an aggregator. publisher and metrics may be nil.
func NewAggregator(st store.Store, engines *propagation.Factory, publisher publish.Publisher, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		store:     st,
		engines:   engines,
		publisher: publisher,
		metrics:   m,
		tracer:    otel.Tracer("regwave/risk"),
		logger:    logging.GetLogger("risk.aggregator"),
	}
}

// regulationRun pairs a regulation with its propagation result.
type regulationRun struct {
	regulation models.Regulation
	result     *propagation.Result
}

// CalculateAllRisks propagates every active regulation, aggregates the
// per-node impacts into risk scores, persists the derived rows, and
// returns the scores sorted by adjusted risk descending. Progress and
// completion are published as events; a cancelled propagation aborts the
// whole recalculation.
func (a *Aggregator) CalculateAllRisks(ctx context.Context, tenantID string) ([]CalculationResult, error) {
	ctx, span := a.tracer.Start(ctx, "risk.calculate_all",
		trace.WithAttributes(attribute.String("tenant", tenantID)))
	defer span.End()
	start := time.Now()

	regulations, err := a.store.ActiveRegulations(ctx, tenantID)
	if err != nil {
		err = models.NewUpstreamError("load active regulations", err)
		a.publishError(ctx, tenantID, err)
		return nil, err
	}

	a.publish(ctx, tenantID, publish.NewEvent(publish.RecalculationStart, tenantID))

	runs, err := a.propagateAll(ctx, tenantID, regulations)
	if err != nil {
		a.publishError(ctx, tenantID, err)
		return nil, err
	}

	results := a.aggregate(runs)

	if err := a.persist(ctx, tenantID, runs, results); err != nil {
		a.publishError(ctx, tenantID, err)
		return nil, err
	}

	complete := publish.NewEvent(publish.RecalculationComplete, tenantID)
	complete.Affected = lo.Map(results, func(r CalculationResult, _ int) models.NodeRef {
		return r.Entity
	})
	a.publish(ctx, tenantID, complete)
	a.publish(ctx, tenantID, publish.NewEvent(publish.RiskUpdate, tenantID))

	if a.metrics != nil {
		a.metrics.RiskCalcDuration.Observe(time.Since(start).Seconds())
	}
	a.logger.InfoWithFields("risk recalculation complete",
		logging.Field("tenant", tenantID),
		logging.Field("regulations", len(regulations)),
		logging.Field("entities", len(results)),
		logging.Field("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return results, nil
}

// propagateAll runs one propagation per regulation under a bounded group.
// Results keep the regulation enumeration order regardless of completion
// order.
func (a *Aggregator) propagateAll(ctx context.Context, tenantID string, regulations []models.Regulation) ([]regulationRun, error) {
	runs := make([]regulationRun, len(regulations))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelPropagations)

	var done atomic.Int64
	for i, reg := range regulations {
		group.Go(func() error {
			engine, err := a.engines.Engine(tenantID, propagation.DefaultOptions())
			if err != nil {
				return err
			}
			result, err := engine.Propagate(groupCtx, propagation.Config{
				Source:        reg.NodeRef(),
				InitialImpact: propagation.SeverityToInitialImpact(reg.Severity),
			})
			if err != nil {
				return err
			}
			if result.Cancelled {
				return models.NewCancelledError("propagate regulation "+reg.ID, groupCtx.Err())
			}
			runs[i] = regulationRun{regulation: reg, result: result}

			progress := publish.NewEvent(publish.RecalculationProgress, tenantID)
			progress.RegulationID = reg.ID
			progress.Progress = float64(done.Add(1)) / float64(len(regulations))
			a.publish(groupCtx, tenantID, progress)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

// aggregate folds the per-regulation results into per-entity totals.
// Source regulation nodes are excluded: a regulation contributes risk to
// what it reaches, not to itself.
func (a *Aggregator) aggregate(runs []regulationRun) []CalculationResult {
	type accumulator struct {
		entity      models.NodeRef
		displayName string
		total       float64
		factors     map[string]float64
	}
	byEntity := make(map[models.NodeRef]*accumulator)

	for _, run := range runs {
		multiplier := multiplierFor(run.regulation.Severity)
		for _, node := range run.result.Nodes {
			ref := models.NodeRef{Type: node.Type, ID: node.ID}
			if ref == run.result.Source {
				continue
			}
			acc, ok := byEntity[ref]
			if !ok {
				acc = &accumulator{
					entity:      ref,
					displayName: node.DisplayName,
					factors:     make(map[string]float64),
				}
				byEntity[ref] = acc
			}
			contribution := node.ImpactScore * multiplier
			acc.total += contribution
			acc.factors[run.regulation.ID] += contribution
		}
	}

	regCount := len(runs)
	results := make([]CalculationResult, 0, len(byEntity))
	for _, acc := range byEntity {
		base := acc.total
		if regCount > 0 {
			base = acc.total / float64(regCount)
		}
		results = append(results, CalculationResult{
			Entity:            acc.entity,
			DisplayName:       acc.displayName,
			BaseRiskScore:     base,
			AdjustedRiskScore: acc.total,
			RiskLevel:         propagation.ImpactToRiskLevel(base),
			RiskFactors:       acc.factors,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].AdjustedRiskScore != results[j].AdjustedRiskScore {
			return results[i].AdjustedRiskScore > results[j].AdjustedRiskScore
		}
		return results[i].Entity.Key() < results[j].Entity.Key()
	})
	return results
}

// persist replaces each regulation's impact rows and upserts every risk
// score. Row replacement is atomic per regulation; score upsert failures
// are aggregated so one bad row does not hide the rest.
func (a *Aggregator) persist(ctx context.Context, tenantID string, runs []regulationRun, results []CalculationResult) error {
	now := time.Now().UTC()

	for _, run := range runs {
		rows := run.result.ImpactRows(tenantID, run.regulation.ID)
		for i := range rows {
			rows[i].CalculatedAt = now
		}
		if err := a.store.ReplaceRegulationImpacts(ctx, run.regulation.ID, rows); err != nil {
			return models.NewUpstreamError("replace regulation impacts", err)
		}
		update := publish.NewEvent(publish.ImpactUpdate, tenantID)
		update.RegulationID = run.regulation.ID
		a.publish(ctx, tenantID, update)
	}

	var errs error
	for _, result := range results {
		score := models.RiskScore{
			TenantID:      tenantID,
			Entity:        result.Entity,
			BaseScore:     result.BaseRiskScore,
			AdjustedScore: result.AdjustedRiskScore,
			Level:         result.RiskLevel,
			Factors:       result.RiskFactors,
			CalculatedAt:  now,
		}
		if err := a.store.UpsertRiskScore(ctx, score); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return models.NewUpstreamError("upsert risk scores", errs)
	}
	return nil
}

// DepartmentRiskRanking filters the full calculation to departments and
// enriches each row with the department's name and code.
func (a *Aggregator) DepartmentRiskRanking(ctx context.Context, tenantID string) ([]DepartmentRisk, error) {
	results, err := a.CalculateAllRisks(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	departments := lo.Filter(results, func(r CalculationResult, _ int) bool {
		return r.Entity.Type == models.NodeTypeDepartment
	})

	ranking := make([]DepartmentRisk, 0, len(departments))
	for _, result := range departments {
		row := DepartmentRisk{CalculationResult: result, Name: result.DisplayName}
		if dep, err := a.store.FindDepartment(ctx, result.Entity.ID); err == nil {
			row.Name = dep.Name
			row.Code = dep.Code
		}
		ranking = append(ranking, row)
	}
	return ranking, nil
}

func (a *Aggregator) publish(ctx context.Context, tenantID string, event publish.Event) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, tenantID, event); err != nil {
		a.logger.WarnWithFields("event publish failed",
			logging.Field("type", string(event.Type)),
			logging.Field("error", err.Error()),
		)
	}
}

func (a *Aggregator) publishError(ctx context.Context, tenantID string, err error) {
	event := publish.NewEvent(publish.RecalculationError, tenantID)
	event.Error = err.Error()
	a.publish(ctx, tenantID, event)
}
