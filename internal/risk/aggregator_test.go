package risk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regwave/regwave/internal/cache"
	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/propagation"
	"github.com/regwave/regwave/internal/publish"
	"github.com/regwave/regwave/internal/store"
)

const tenant = "t1"

// collectPublisher records events synchronously for assertions.
type collectPublisher struct {
	mu     sync.Mutex
	events []publish.Event
}

func (p *collectPublisher) Publish(ctx context.Context, tenantID string, event publish.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *collectPublisher) typesSeen() map[publish.EventType]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[publish.EventType]int)
	for _, e := range p.events {
		seen[e.Type]++
	}
	return seen
}

func newFixture(t *testing.T) (*store.Memory, *propagation.Factory) {
	t.Helper()
	mem := store.NewMemory()
	tc, err := cache.New(cache.Config{})
	require.NoError(t, err)
	t.Cleanup(tc.Shutdown)
	return mem, propagation.NewFactory(mem, tc, nil)
}

func putRegulation(t *testing.T, mem *store.Memory, id, code string, severity models.Severity, effective time.Time) {
	t.Helper()
	require.NoError(t, mem.PutRegulation(context.Background(), &models.Regulation{
		ID: id, TenantID: tenant, Code: code, Name: code,
		Severity: severity, Status: models.RegulationActive,
		EffectiveDate: effective, Version: 1, Active: true,
	}))
}

func putEdge(t *testing.T, mem *store.Memory, id string, source, target models.NodeRef, weight float64) {
	t.Helper()
	require.NoError(t, mem.PutEdge(context.Background(), &models.ImpactEdge{
		ID: id, TenantID: tenant, Source: source, Target: target,
		ImpactWeight: weight, ImpactType: models.ImpactDirect, Active: true,
	}))
}

func regRef(id string) models.NodeRef {
	return models.NodeRef{Type: models.NodeTypeRegulation, ID: id}
}

func depRef(id string) models.NodeRef {
	return models.NodeRef{Type: models.NodeTypeDepartment, ID: id}
}

func TestCalculateAllRisksAggregatesAcrossRegulations(t *testing.T) {
	mem, engines := newFixture(t)
	effective := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putRegulation(t, mem, "r1", "GDPR", models.SeverityCritical, effective)
	putRegulation(t, mem, "r2", "SOX", models.SeverityMedium, effective)
	putEdge(t, mem, "e1", regRef("r1"), depRef("d1"), 1.0)
	putEdge(t, mem, "e2", regRef("r2"), depRef("d1"), 1.0)

	sink := &collectPublisher{}
	agg := NewAggregator(mem, engines, sink, nil)

	results, err := agg.CalculateAllRisks(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Critical seeds 1.0 x multiplier 2.0, Medium seeds 0.5 x multiplier
	// 1.0: total 2.5 across two regulations.
	d1 := results[0]
	assert.Equal(t, depRef("d1"), d1.Entity)
	assert.InDelta(t, 2.5, d1.AdjustedRiskScore, 1e-9)
	assert.InDelta(t, 1.25, d1.BaseRiskScore, 1e-9)
	assert.Equal(t, models.RiskCritical, d1.RiskLevel)
	assert.InDelta(t, 2.0, d1.RiskFactors["r1"], 1e-9)
	assert.InDelta(t, 0.5, d1.RiskFactors["r2"], 1e-9)

	seen := sink.typesSeen()
	assert.Equal(t, 1, seen[publish.RecalculationStart])
	assert.Equal(t, 2, seen[publish.RecalculationProgress])
	assert.Equal(t, 1, seen[publish.RecalculationComplete])
	assert.Equal(t, 1, seen[publish.RiskUpdate])
	assert.Zero(t, seen[publish.RecalculationError])
}

func TestCalculateAllRisksPersistsDerivedRows(t *testing.T) {
	mem, engines := newFixture(t)
	effective := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putRegulation(t, mem, "r1", "GDPR", models.SeverityCritical, effective)
	putEdge(t, mem, "e1", regRef("r1"), depRef("d1"), 0.5)

	agg := NewAggregator(mem, engines, nil, nil)
	ctx := context.Background()

	_, err := agg.CalculateAllRisks(ctx, tenant)
	require.NoError(t, err)

	impacts, err := mem.RegulationImpacts(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, impacts, 1)
	assert.Equal(t, depRef("d1"), impacts[0].Entity)
	assert.InDelta(t, 0.5, impacts[0].ImpactScore, 1e-9)
	assert.Equal(t, 1, impacts[0].Depth)
	assert.Equal(t, []string{"REGULATION:r1->DEPARTMENT:d1"}, impacts[0].Path)

	scores, err := mem.RiskScores(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 0.5, scores[0].BaseScore, 1e-9)
	assert.InDelta(t, 1.0, scores[0].AdjustedScore, 1e-9)
}

func TestCalculateAllRisksRowsReplacedPerRun(t *testing.T) {
	mem, engines := newFixture(t)
	effective := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putRegulation(t, mem, "r1", "GDPR", models.SeverityCritical, effective)
	putEdge(t, mem, "e1", regRef("r1"), depRef("d1"), 0.5)

	agg := NewAggregator(mem, engines, nil, nil)
	ctx := context.Background()

	_, err := agg.CalculateAllRisks(ctx, tenant)
	require.NoError(t, err)
	_, err = agg.CalculateAllRisks(ctx, tenant)
	require.NoError(t, err)

	impacts, err := mem.RegulationImpacts(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, impacts, 1, "rows must be replaced, not appended")
}

func TestCalculateAllRisksExcludesRegulationSources(t *testing.T) {
	mem, engines := newFixture(t)
	effective := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putRegulation(t, mem, "r1", "GDPR", models.SeverityCritical, effective)
	putRegulation(t, mem, "r2", "SOX", models.SeverityHigh, effective)
	// r1 reaches r2: the regulation appears as a target but never as a
	// risk-scored source of its own run.
	putEdge(t, mem, "e1", regRef("r1"), regRef("r2"), 1.0)

	agg := NewAggregator(mem, engines, nil, nil)
	results, err := agg.CalculateAllRisks(context.Background(), tenant)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, regRef("r2"), results[0].Entity)
	// 1.0 x 1.0 x 1.0 x 1.2 (regulation target weight) x 2.0 (critical)
	assert.InDelta(t, 2.4, results[0].AdjustedRiskScore, 1e-9)
}

func TestCalculateAllRisksSortedByAdjustedDescending(t *testing.T) {
	mem, engines := newFixture(t)
	effective := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putRegulation(t, mem, "r1", "GDPR", models.SeverityCritical, effective)
	putEdge(t, mem, "e1", regRef("r1"), depRef("d1"), 1.0)
	putEdge(t, mem, "e2", regRef("r1"), depRef("d2"), 0.4)

	agg := NewAggregator(mem, engines, nil, nil)
	results, err := agg.CalculateAllRisks(context.Background(), tenant)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, depRef("d1"), results[0].Entity)
	assert.Equal(t, depRef("d2"), results[1].Entity)
	assert.Greater(t, results[0].AdjustedRiskScore, results[1].AdjustedRiskScore)
}

func TestCalculateAllRisksNoRegulations(t *testing.T) {
	mem, engines := newFixture(t)

	agg := NewAggregator(mem, engines, nil, nil)
	results, err := agg.CalculateAllRisks(context.Background(), tenant)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCalculateAllRisksCancellation(t *testing.T) {
	mem, engines := newFixture(t)
	effective := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putRegulation(t, mem, "r1", "GDPR", models.SeverityCritical, effective)
	putEdge(t, mem, "e1", regRef("r1"), depRef("d1"), 1.0)

	sink := &collectPublisher{}
	agg := NewAggregator(mem, engines, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.CalculateAllRisks(ctx, tenant)
	require.Error(t, err)
	assert.True(t, models.IsCancelled(err))
	assert.Equal(t, 1, sink.typesSeen()[publish.RecalculationError])
}

func TestDepartmentRiskRanking(t *testing.T) {
	mem, engines := newFixture(t)
	ctx := context.Background()
	effective := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putRegulation(t, mem, "r1", "GDPR", models.SeverityCritical, effective)
	require.NoError(t, mem.PutDepartment(ctx, &models.Department{
		ID: "d1", TenantID: tenant, Code: "FIN", Name: "Finance", Active: true,
	}))
	putEdge(t, mem, "e1", regRef("r1"), depRef("d1"), 1.0)
	putEdge(t, mem, "e2", depRef("d1"), models.NodeRef{Type: models.NodeTypeKPI, ID: "k1"}, 1.0)

	agg := NewAggregator(mem, engines, nil, nil)
	ranking, err := agg.DepartmentRiskRanking(ctx, tenant)
	require.NoError(t, err)

	require.Len(t, ranking, 1, "only departments appear in the ranking")
	assert.Equal(t, "Finance", ranking[0].Name)
	assert.Equal(t, "FIN", ranking[0].Code)
	assert.Equal(t, depRef("d1"), ranking[0].Entity)
}
