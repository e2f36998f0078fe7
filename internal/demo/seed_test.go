package demo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regwave/regwave/internal/cache"
	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/store"
)

func newManager(t *testing.T) (*store.Memory, *store.Manager) {
	t.Helper()
	mem := store.NewMemory()
	tc, err := cache.New(cache.Config{})
	require.NoError(t, err)
	t.Cleanup(tc.Shutdown)
	return mem, store.NewManager(mem, tc)
}

func TestSeedBuildsConnectedTenant(t *testing.T) {
	mem, mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, mgr))

	regs, err := mem.ActiveRegulations(ctx, TenantID)
	require.NoError(t, err)
	assert.Len(t, regs, 4)

	severities := map[models.Severity]bool{}
	for _, reg := range regs {
		severities[reg.Severity] = true
	}
	for _, s := range []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		assert.True(t, severities[s], "missing severity %s", s)
	}

	edges, err := mem.ActiveEdges(ctx, TenantID)
	require.NoError(t, err)
	assert.Len(t, edges, 15)

	types := map[models.ImpactType]int{}
	for _, edge := range edges {
		types[edge.ImpactType]++
	}
	assert.Positive(t, types[models.ImpactDirect])
	assert.Positive(t, types[models.ImpactIndirect])
	assert.Positive(t, types[models.ImpactConditional])
}

func TestSeedIsDeterministic(t *testing.T) {
	_, mgr1 := newManager(t)
	_, mgr2 := newManager(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, mgr1))
	require.NoError(t, Seed(ctx, mgr2))
	// Fixed IDs: seeding the same tenant twice into one store must conflict.
	_, mgr3 := newManager(t)
	require.NoError(t, Seed(ctx, mgr3))
	require.Error(t, Seed(ctx, mgr3))
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tenant:
  id: t-custom
  code: custom
  name: Custom Tenant
regulations:
  - id: r1
    code: REG-1
    name: Custom Regulation
    severity: High
    status: Active
    effectiveDate: 2024-01-01T00:00:00Z
    active: true
departments:
  - id: d1
    code: DEP-1
    name: Custom Department
    active: true
edges:
  - id: e1
    source: {type: REGULATION, id: r1}
    target: {type: DEPARTMENT, id: d1}
    impactWeight: 0.5
    impactType: DIRECT
    active: true
`), 0o644))

	ds, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, ds.Regulations, 1)
	require.Len(t, ds.Edges, 1)

	mem, mgr := newManager(t)
	require.NoError(t, ds.Apply(context.Background(), mgr))

	reg, err := mem.FindRegulation(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "t-custom", reg.TenantID, "records inherit the dataset tenant")

	edges, err := mem.ActiveEdges(context.Background(), "t-custom")
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestLoadSeedFileRejectsMissingTenant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("regulations: []\n"), 0o644))

	_, err := LoadSeedFile(path)
	require.Error(t, err)
	assert.True(t, models.IsInvalid(err))
}
