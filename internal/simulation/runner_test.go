package simulation

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
	"github.com/regwave/regwave/internal/risk"
	"github.com/regwave/regwave/internal/store"
)

const tenant = "t1"

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

func (p *collectPublisher) types() []publish.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publish.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newRunner(t *testing.T) (*store.Memory, *Runner, *collectPublisher) {
	t.Helper()
	mem := store.NewMemory()
	tc, err := cache.New(cache.Config{})
	require.NoError(t, err)
	t.Cleanup(tc.Shutdown)

	engines := propagation.NewFactory(mem, tc, nil)
	sink := &collectPublisher{}
	return mem, NewRunner(mem, risk.NewTimeline(mem, engines), sink), sink
}

func TestRunCompletesAndPersistsResult(t *testing.T) {
	mem, runner, sink := newRunner(t)
	ctx := context.Background()
	effective := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, mem.PutRegulation(ctx, &models.Regulation{
		ID: "r1", TenantID: tenant, Code: "GDPR", Name: "GDPR",
		Severity: models.SeverityCritical, Status: models.RegulationActive,
		EffectiveDate: effective, Version: 1, Active: true,
	}))
	require.NoError(t, mem.PutEdge(ctx, &models.ImpactEdge{
		ID: "e1", TenantID: tenant,
		Source:       models.NodeRef{Type: models.NodeTypeRegulation, ID: "r1"},
		Target:       models.NodeRef{Type: models.NodeTypeDepartment, ID: "d1"},
		ImpactWeight: 0.8, ImpactType: models.ImpactDirect, Active: true,
	}))

	beforeDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sim, err := runner.Run(ctx, tenant, "r1", beforeDate, effective)
	require.NoError(t, err)

	assert.Equal(t, models.SimulationCompleted, sim.Status)
	assert.NotNil(t, sim.Result)
	assert.Len(t, sim.Result.Deltas, 1)
	assert.NotNil(t, sim.StartedAt)
	assert.NotNil(t, sim.FinishedAt)

	stored, err := mem.FindSimulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SimulationCompleted, stored.Status)

	assert.Equal(t, []publish.EventType{
		publish.SimulationStart,
		publish.SimulationProgress,
		publish.SimulationComplete,
	}, sink.types())
}

func TestRunFailureTransitionsToFailed(t *testing.T) {
	mem, runner, sink := newRunner(t)
	ctx := context.Background()

	// No such regulation: the comparison fails with NotFound.
	sim, err := runner.Run(ctx, tenant, "ghost", time.Now(), time.Now())
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))

	require.NotNil(t, sim)
	assert.Equal(t, models.SimulationFailed, sim.Status)
	assert.NotEmpty(t, sim.Error)
	assert.Nil(t, sim.Result, "failed runs carry no partial results")

	stored, findErr := mem.FindSimulation(ctx, sim.ID)
	require.NoError(t, findErr)
	assert.Equal(t, models.SimulationFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)

	types := sink.types()
	require.Len(t, types, 2)
	assert.Equal(t, publish.SimulationStart, types[0])
	assert.Equal(t, publish.SimulationError, types[1])
}
