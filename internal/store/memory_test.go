package store

import (
	"context"
	"testing"
	"time"

	"github.com/regwave/regwave/internal/models"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	ctx := context.Background()

	mustPut := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	mustPut(m.PutTenant(ctx, &models.Tenant{ID: "t1", Code: "ACME", Name: "Acme"}))
	mustPut(m.PutTenant(ctx, &models.Tenant{ID: "t2", Code: "GLOBX", Name: "Globex"}))

	mustPut(m.PutRegulation(ctx, &models.Regulation{
		ID: "reg-b", TenantID: "t1", Code: "SOX", Name: "Sarbanes-Oxley",
		Severity: models.SeverityHigh, Status: models.RegulationActive,
		EffectiveDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		Version:       1, Active: true,
	}))
	mustPut(m.PutRegulation(ctx, &models.Regulation{
		ID: "reg-a", TenantID: "t1", Code: "GDPR", Name: "Data Protection",
		Severity: models.SeverityCritical, Status: models.RegulationActive,
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Version:       1, Active: true,
	}))
	mustPut(m.PutRegulation(ctx, &models.Regulation{
		ID: "reg-draft", TenantID: "t1", Code: "AIA", Name: "AI Act Draft",
		Severity: models.SeverityMedium, Status: models.RegulationDraft,
		EffectiveDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Version:       1, Active: true,
	}))
	mustPut(m.PutRegulation(ctx, &models.Regulation{
		ID: "reg-other", TenantID: "t2", Code: "GDPR", Name: "Data Protection",
		Severity: models.SeverityHigh, Status: models.RegulationActive,
		EffectiveDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Version:       1, Active: true,
	}))

	mustPut(m.PutDepartment(ctx, &models.Department{ID: "dep-1", TenantID: "t1", Code: "FIN", Name: "Finance", Active: true}))
	mustPut(m.PutDepartment(ctx, &models.Department{ID: "dep-2", TenantID: "t1", Code: "ENG", Name: "Engineering", Active: false}))

	mustPut(m.PutEdge(ctx, &models.ImpactEdge{
		ID: "e1", TenantID: "t1",
		Source: models.NodeRef{Type: models.NodeTypeRegulation, ID: "reg-a"},
		Target: models.NodeRef{Type: models.NodeTypeDepartment, ID: "dep-1"},
		ImpactWeight: 0.5, ImpactType: models.ImpactDirect, Active: true,
	}))
	mustPut(m.PutEdge(ctx, &models.ImpactEdge{
		ID: "e2", TenantID: "t1",
		Source: models.NodeRef{Type: models.NodeTypeRegulation, ID: "reg-b"},
		Target: models.NodeRef{Type: models.NodeTypeDepartment, ID: "dep-1"},
		ImpactWeight: 0.7, ImpactType: models.ImpactDirect, Active: false,
	}))
	mustPut(m.PutEdge(ctx, &models.ImpactEdge{
		ID: "e3", TenantID: "t2",
		Source: models.NodeRef{Type: models.NodeTypeRegulation, ID: "reg-other"},
		Target: models.NodeRef{Type: models.NodeTypeDepartment, ID: "dep-x"},
		ImpactWeight: 0.9, ImpactType: models.ImpactDirect, Active: true,
	}))

	return m
}

func TestFindReturnsCopies(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	reg, err := m.FindRegulation(ctx, "reg-a")
	if err != nil {
		t.Fatalf("FindRegulation: %v", err)
	}
	reg.Name = "mutated"

	again, err := m.FindRegulation(ctx, "reg-a")
	if err != nil {
		t.Fatalf("FindRegulation: %v", err)
	}
	if again.Name != "Data Protection" {
		t.Errorf("stored record mutated through returned copy: %q", again.Name)
	}
}

func TestFindAbsentIsNotFound(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	if _, err := m.FindRegulation(ctx, "nope"); !models.IsNotFound(err) {
		t.Errorf("FindRegulation error = %v, want not-found kind", err)
	}
	if _, err := m.FindTenant(ctx, "nope"); !models.IsNotFound(err) {
		t.Errorf("FindTenant error = %v, want not-found kind", err)
	}
	if _, err := m.FindSimulation(ctx, "nope"); !models.IsNotFound(err) {
		t.Errorf("FindSimulation error = %v, want not-found kind", err)
	}
}

func TestActiveEdgesFiltersAndOrders(t *testing.T) {
	m := seedMemory(t)

	edges, err := m.ActiveEdges(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ActiveEdges: %v", err)
	}
	if len(edges) != 1 || edges[0].ID != "e1" {
		t.Fatalf("ActiveEdges = %+v, want only e1", edges)
	}

	// Activating e2 must slot it after e1 in insertion order.
	e2, _ := m.FindEdge(context.Background(), "e2")
	e2.Active = true
	if err := m.PutEdge(context.Background(), e2); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}
	edges, _ = m.ActiveEdges(context.Background(), "t1")
	if len(edges) != 2 || edges[0].ID != "e1" || edges[1].ID != "e2" {
		t.Errorf("ActiveEdges order = %v, want [e1 e2]", []string{edges[0].ID, edges[1].ID})
	}
}

func TestActiveRegulationsFiltersDraftsAndSorts(t *testing.T) {
	m := seedMemory(t)

	regs, err := m.ActiveRegulations(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ActiveRegulations: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("ActiveRegulations count = %d, want 2 (draft excluded)", len(regs))
	}
	if regs[0].Code != "GDPR" || regs[1].Code != "SOX" {
		t.Errorf("order = [%s %s], want sorted by code", regs[0].Code, regs[1].Code)
	}
}

func TestRegulationsActiveBefore(t *testing.T) {
	m := seedMemory(t)
	cutoff := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

	regs, err := m.RegulationsActiveBefore(context.Background(), "t1", cutoff, "reg-a")
	if err != nil {
		t.Fatalf("RegulationsActiveBefore: %v", err)
	}
	if len(regs) != 1 || regs[0].ID != "reg-b" {
		t.Fatalf("RegulationsActiveBefore = %+v, want only reg-b", regs)
	}

	// The excluded id must not appear even when it qualifies by date.
	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	regs, _ = m.RegulationsActiveBefore(context.Background(), "t1", later, "reg-a")
	for _, r := range regs {
		if r.ID == "reg-a" {
			t.Error("excluded regulation leaked into the result")
		}
	}
}

func TestActiveEntityNames(t *testing.T) {
	m := seedMemory(t)

	names, err := m.ActiveEntityNames(context.Background(), "t1", models.NodeTypeDepartment)
	if err != nil {
		t.Fatalf("ActiveEntityNames: %v", err)
	}
	if len(names) != 1 || names["dep-1"] != "Finance" {
		t.Errorf("names = %v, want only active dep-1", names)
	}
}

func TestDisplayNameDispatch(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	name, err := m.DisplayName(ctx, models.NodeTypeRegulation, "reg-a")
	if err != nil || name != "Data Protection" {
		t.Errorf("DisplayName = %q, %v", name, err)
	}
	if _, err := m.DisplayName(ctx, models.NodeTypeKPI, "missing"); !models.IsNotFound(err) {
		t.Errorf("DisplayName error = %v, want not-found kind", err)
	}
	if _, err := m.DisplayName(ctx, "VENDOR", "x"); !models.IsInvalid(err) {
		t.Errorf("DisplayName error = %v, want invalid kind", err)
	}
}

func TestReplaceRegulationImpacts(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	first := []models.RegulationImpact{
		{ID: "i1", RegulationID: "reg-a", Entity: models.NodeRef{Type: models.NodeTypeDepartment, ID: "dep-1"}, ImpactScore: 0.5},
		{ID: "i2", RegulationID: "reg-a", Entity: models.NodeRef{Type: models.NodeTypeBudget, ID: "bud-1"}, ImpactScore: 0.3},
	}
	if err := m.ReplaceRegulationImpacts(ctx, "reg-a", first); err != nil {
		t.Fatalf("ReplaceRegulationImpacts: %v", err)
	}

	second := []models.RegulationImpact{
		{ID: "i3", RegulationID: "reg-a", Entity: models.NodeRef{Type: models.NodeTypeDepartment, ID: "dep-1"}, ImpactScore: 0.9},
	}
	if err := m.ReplaceRegulationImpacts(ctx, "reg-a", second); err != nil {
		t.Fatalf("ReplaceRegulationImpacts: %v", err)
	}

	rows, err := m.RegulationImpacts(ctx, "reg-a")
	if err != nil {
		t.Fatalf("RegulationImpacts: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "i3" {
		t.Errorf("rows = %+v, want the replacement set only", rows)
	}
}

func TestUpsertRiskScoreIsIdempotentPerEntity(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	entity := models.NodeRef{Type: models.NodeTypeDepartment, ID: "dep-1"}

	if err := m.UpsertRiskScore(ctx, models.RiskScore{TenantID: "t1", Entity: entity, AdjustedScore: 1.0}); err != nil {
		t.Fatalf("UpsertRiskScore: %v", err)
	}
	if err := m.UpsertRiskScore(ctx, models.RiskScore{TenantID: "t1", Entity: entity, AdjustedScore: 2.5}); err != nil {
		t.Fatalf("UpsertRiskScore: %v", err)
	}

	scores, err := m.RiskScores(ctx, "t1")
	if err != nil {
		t.Fatalf("RiskScores: %v", err)
	}
	if len(scores) != 1 || scores[0].AdjustedScore != 2.5 {
		t.Errorf("scores = %+v, want single upserted row with score 2.5", scores)
	}
}

func TestSimulationLifecycleInStore(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	sim := &models.Simulation{ID: "sim-1", TenantID: "t1", RegulationID: "reg-a", Status: models.SimulationPending}
	if err := m.CreateSimulation(ctx, sim); err != nil {
		t.Fatalf("CreateSimulation: %v", err)
	}
	if err := m.CreateSimulation(ctx, sim); !models.IsConflict(err) {
		t.Errorf("duplicate create error = %v, want conflict kind", err)
	}

	sim.Status = models.SimulationRunning
	if err := m.UpdateSimulation(ctx, sim); err != nil {
		t.Fatalf("UpdateSimulation: %v", err)
	}
	got, err := m.FindSimulation(ctx, "sim-1")
	if err != nil {
		t.Fatalf("FindSimulation: %v", err)
	}
	if got.Status != models.SimulationRunning {
		t.Errorf("status = %s, want Running", got.Status)
	}

	if err := m.UpdateSimulation(ctx, &models.Simulation{ID: "ghost"}); !models.IsNotFound(err) {
		t.Errorf("update of absent simulation error = %v, want not-found kind", err)
	}
}

func TestCodeInUse(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	inUse, err := m.CodeInUse(ctx, "t1", models.NodeTypeRegulation, "GDPR", "")
	if err != nil || !inUse {
		t.Errorf("CodeInUse(GDPR) = %v, %v, want true", inUse, err)
	}

	// Excluding the holder itself frees the code.
	inUse, _ = m.CodeInUse(ctx, "t1", models.NodeTypeRegulation, "GDPR", "reg-a")
	if inUse {
		t.Error("CodeInUse must ignore the excluded id")
	}

	// Codes are per tenant: t2 owning GDPR does not block t1 checks scoped to t1.
	inUse, _ = m.CodeInUse(ctx, "t1", models.NodeTypeRegulation, "NIS2", "")
	if inUse {
		t.Error("unused code reported in use")
	}
}

func TestFindActiveEdge(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	edge, err := m.FindActiveEdge(ctx, "t1",
		models.NodeRef{Type: models.NodeTypeRegulation, ID: "reg-a"},
		models.NodeRef{Type: models.NodeTypeDepartment, ID: "dep-1"})
	if err != nil || edge.ID != "e1" {
		t.Errorf("FindActiveEdge = %+v, %v, want e1", edge, err)
	}

	// e2 is inactive, so the pair reports not found.
	_, err = m.FindActiveEdge(ctx, "t1",
		models.NodeRef{Type: models.NodeTypeRegulation, ID: "reg-b"},
		models.NodeRef{Type: models.NodeTypeDepartment, ID: "dep-1"})
	if !models.IsNotFound(err) {
		t.Errorf("inactive pair error = %v, want not-found kind", err)
	}
}
