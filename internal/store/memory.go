package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/regwave/regwave/internal/models"
)

// Memory is the in-memory reference MutableStore. It backs the CLI, the
// demo seeding, and the test suites. All methods are safe for concurrent
// use and return copies, so callers can never corrupt stored state.
type Memory struct {
	mu          sync.RWMutex
	tenants     map[string]models.Tenant
	regulations map[string]models.Regulation
	departments map[string]models.Department
	budgets     map[string]models.Budget
	services    map[string]models.Service
	kpis        map[string]models.KPI
	edges       map[string]models.ImpactEdge
	edgeOrder   []string // insertion order, keeps adjacency lists stable
	impacts     map[string][]models.RegulationImpact
	riskScores  map[string]models.RiskScore
	simulations map[string]models.Simulation
	audits      []models.AuditEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tenants:     make(map[string]models.Tenant),
		regulations: make(map[string]models.Regulation),
		departments: make(map[string]models.Department),
		budgets:     make(map[string]models.Budget),
		services:    make(map[string]models.Service),
		kpis:        make(map[string]models.KPI),
		edges:       make(map[string]models.ImpactEdge),
		impacts:     make(map[string][]models.RegulationImpact),
		riskScores:  make(map[string]models.RiskScore),
		simulations: make(map[string]models.Simulation),
	}
}

func (m *Memory) FindTenant(ctx context.Context, id string) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, models.NewNotFoundError("tenant %s", id)
	}
	return &t, nil
}

func (m *Memory) FindRegulation(ctx context.Context, id string) (*models.Regulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regulations[id]
	if !ok {
		return nil, models.NewNotFoundError("regulation %s", id)
	}
	return copyRegulation(r), nil
}

func (m *Memory) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.departments[id]
	if !ok {
		return nil, models.NewNotFoundError("department %s", id)
	}
	return &d, nil
}

func (m *Memory) FindBudget(ctx context.Context, id string) (*models.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.budgets[id]
	if !ok {
		return nil, models.NewNotFoundError("budget %s", id)
	}
	return &b, nil
}

func (m *Memory) FindService(ctx context.Context, id string) (*models.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	if !ok {
		return nil, models.NewNotFoundError("service %s", id)
	}
	return &s, nil
}

func (m *Memory) FindKPI(ctx context.Context, id string) (*models.KPI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.kpis[id]
	if !ok {
		return nil, models.NewNotFoundError("kpi %s", id)
	}
	return &k, nil
}

// DisplayName resolves one entity's name, dispatching on the node type.
func (m *Memory) DisplayName(ctx context.Context, entityType models.NodeType, id string) (string, error) {
	switch entityType {
	case models.NodeTypeRegulation:
		r, err := m.FindRegulation(ctx, id)
		if err != nil {
			return "", err
		}
		return r.Name, nil
	case models.NodeTypeDepartment:
		d, err := m.FindDepartment(ctx, id)
		if err != nil {
			return "", err
		}
		return d.Name, nil
	case models.NodeTypeBudget:
		b, err := m.FindBudget(ctx, id)
		if err != nil {
			return "", err
		}
		return b.Name, nil
	case models.NodeTypeService:
		s, err := m.FindService(ctx, id)
		if err != nil {
			return "", err
		}
		return s.Name, nil
	case models.NodeTypeKPI:
		k, err := m.FindKPI(ctx, id)
		if err != nil {
			return "", err
		}
		return k.Name, nil
	default:
		return "", models.NewInvalidError("unknown node type %q", entityType)
	}
}

// ActiveEntityNames returns id -> name for every active entity of the type
// within the tenant.
func (m *Memory) ActiveEntityNames(ctx context.Context, tenantID string, entityType models.NodeType) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make(map[string]string)
	switch entityType {
	case models.NodeTypeRegulation:
		for id, r := range m.regulations {
			if r.TenantID == tenantID && r.Active {
				names[id] = r.Name
			}
		}
	case models.NodeTypeDepartment:
		for id, d := range m.departments {
			if d.TenantID == tenantID && d.Active {
				names[id] = d.Name
			}
		}
	case models.NodeTypeBudget:
		for id, b := range m.budgets {
			if b.TenantID == tenantID && b.Active {
				names[id] = b.Name
			}
		}
	case models.NodeTypeService:
		for id, s := range m.services {
			if s.TenantID == tenantID && s.Active {
				names[id] = s.Name
			}
		}
	case models.NodeTypeKPI:
		for id, k := range m.kpis {
			if k.TenantID == tenantID && k.Active {
				names[id] = k.Name
			}
		}
	default:
		return nil, models.NewInvalidError("unknown node type %q", entityType)
	}
	return names, nil
}

// ActiveEdges returns the tenant's active edges in insertion order.
func (m *Memory) ActiveEdges(ctx context.Context, tenantID string) ([]models.ImpactEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var edges []models.ImpactEdge
	for _, id := range m.edgeOrder {
		e, ok := m.edges[id]
		if !ok || !e.Active || e.TenantID != tenantID {
			continue
		}
		edges = append(edges, *copyEdge(e))
	}
	return edges, nil
}

// ActiveRegulations returns the tenant's in-force regulations sorted by
// code for deterministic aggregation order.
func (m *Memory) ActiveRegulations(ctx context.Context, tenantID string) ([]models.Regulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var regs []models.Regulation
	for _, r := range m.regulations {
		if r.TenantID == tenantID && r.Active && r.Status == models.RegulationActive {
			regs = append(regs, *copyRegulation(r))
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Code < regs[j].Code })
	return regs, nil
}

func (m *Memory) RegulationsActiveBefore(ctx context.Context, tenantID string, date time.Time, excludingID string) ([]models.Regulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var regs []models.Regulation
	for _, r := range m.regulations {
		if r.ID == excludingID || r.TenantID != tenantID {
			continue
		}
		if r.Active && r.Status == models.RegulationActive && r.EffectiveDate.Before(date) {
			regs = append(regs, *copyRegulation(r))
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Code < regs[j].Code })
	return regs, nil
}

func (m *Memory) ReplaceRegulationImpacts(ctx context.Context, regulationID string, impacts []models.RegulationImpact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]models.RegulationImpact, len(impacts))
	for i, imp := range impacts {
		rows[i] = *copyImpact(imp)
	}
	m.impacts[regulationID] = rows
	return nil
}

func (m *Memory) RegulationImpacts(ctx context.Context, regulationID string) ([]models.RegulationImpact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.impacts[regulationID]
	rows := make([]models.RegulationImpact, len(stored))
	for i, imp := range stored {
		rows[i] = *copyImpact(imp)
	}
	return rows, nil
}

func riskScoreKey(tenantID string, entity models.NodeRef) string {
	return tenantID + "/" + entity.Key()
}

func (m *Memory) UpsertRiskScore(ctx context.Context, score models.RiskScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riskScores[riskScoreKey(score.TenantID, score.Entity)] = *copyRiskScore(score)
	return nil
}

func (m *Memory) RiskScores(ctx context.Context, tenantID string) ([]models.RiskScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var scores []models.RiskScore
	for _, s := range m.riskScores {
		if s.TenantID == tenantID {
			scores = append(scores, *copyRiskScore(s))
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].AdjustedScore != scores[j].AdjustedScore {
			return scores[i].AdjustedScore > scores[j].AdjustedScore
		}
		return scores[i].Entity.Key() < scores[j].Entity.Key()
	})
	return scores, nil
}

func (m *Memory) AppendAuditLog(ctx context.Context, entry models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, entry)
	return nil
}

// AuditTrail returns the tenant's audit entries in append order. Not part
// of the Store contract; used by tests and the CLI.
func (m *Memory) AuditTrail(tenantID string) []models.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []models.AuditEntry
	for _, e := range m.audits {
		if e.TenantID == tenantID {
			entries = append(entries, e)
		}
	}
	return entries
}

func (m *Memory) CreateSimulation(ctx context.Context, sim *models.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.simulations[sim.ID]; exists {
		return models.NewConflictError("simulation %s already exists", sim.ID)
	}
	m.simulations[sim.ID] = *copySimulation(*sim)
	return nil
}

func (m *Memory) UpdateSimulation(ctx context.Context, sim *models.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.simulations[sim.ID]; !exists {
		return models.NewNotFoundError("simulation %s", sim.ID)
	}
	m.simulations[sim.ID] = *copySimulation(*sim)
	return nil
}

func (m *Memory) FindSimulation(ctx context.Context, id string) (*models.Simulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.simulations[id]
	if !ok {
		return nil, models.NewNotFoundError("simulation %s", id)
	}
	return copySimulation(s), nil
}

func (m *Memory) PutTenant(ctx context.Context, tenant *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[tenant.ID] = *tenant
	return nil
}

func (m *Memory) PutRegulation(ctx context.Context, regulation *models.Regulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regulations[regulation.ID] = *copyRegulation(*regulation)
	return nil
}

func (m *Memory) PutDepartment(ctx context.Context, department *models.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departments[department.ID] = *department
	return nil
}

func (m *Memory) PutBudget(ctx context.Context, budget *models.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[budget.ID] = *budget
	return nil
}

func (m *Memory) PutService(ctx context.Context, service *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service.ID] = *service
	return nil
}

func (m *Memory) PutKPI(ctx context.Context, kpi *models.KPI) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kpis[kpi.ID] = *kpi
	return nil
}

func (m *Memory) PutEdge(ctx context.Context, edge *models.ImpactEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.edges[edge.ID]; !exists {
		m.edgeOrder = append(m.edgeOrder, edge.ID)
	}
	m.edges[edge.ID] = *copyEdge(*edge)
	return nil
}

func (m *Memory) FindEdge(ctx context.Context, id string) (*models.ImpactEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[id]
	if !ok {
		return nil, models.NewNotFoundError("edge %s", id)
	}
	return copyEdge(e), nil
}

func (m *Memory) FindActiveEdge(ctx context.Context, tenantID string, source, target models.NodeRef) (*models.ImpactEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.edgeOrder {
		e, ok := m.edges[id]
		if ok && e.Active && e.TenantID == tenantID && e.Source == source && e.Target == target {
			return copyEdge(e), nil
		}
	}
	return nil, models.NewNotFoundError("active edge %s->%s", source.Key(), target.Key())
}

func (m *Memory) CodeInUse(ctx context.Context, tenantID string, entityType models.NodeType, code, excludingID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch entityType {
	case models.NodeTypeRegulation:
		for id, r := range m.regulations {
			if id != excludingID && r.TenantID == tenantID && r.Code == code {
				return true, nil
			}
		}
	case models.NodeTypeDepartment:
		for id, d := range m.departments {
			if id != excludingID && d.TenantID == tenantID && d.Code == code {
				return true, nil
			}
		}
	case models.NodeTypeBudget:
		for id, b := range m.budgets {
			if id != excludingID && b.TenantID == tenantID && b.Code == code {
				return true, nil
			}
		}
	case models.NodeTypeService:
		for id, s := range m.services {
			if id != excludingID && s.TenantID == tenantID && s.Code == code {
				return true, nil
			}
		}
	case models.NodeTypeKPI:
		for id, k := range m.kpis {
			if id != excludingID && k.TenantID == tenantID && k.Code == code {
				return true, nil
			}
		}
	default:
		return false, models.NewInvalidError("unknown node type %q", entityType)
	}
	return false, nil
}

// Copy helpers keep stored records isolated from caller mutations. Only the
// fields with reference semantics need deep copies.

func copyRegulation(r models.Regulation) *models.Regulation {
	out := r
	if r.ExpirationDate != nil {
		exp := *r.ExpirationDate
		out.ExpirationDate = &exp
	}
	return &out
}

func copyEdge(e models.ImpactEdge) *models.ImpactEdge {
	out := e
	if e.Condition != nil {
		cond := make(map[string]interface{}, len(e.Condition))
		for k, v := range e.Condition {
			cond[k] = v
		}
		out.Condition = cond
	}
	return &out
}

func copyImpact(i models.RegulationImpact) *models.RegulationImpact {
	out := i
	if i.Path != nil {
		out.Path = append([]string(nil), i.Path...)
	}
	return &out
}

func copyRiskScore(s models.RiskScore) *models.RiskScore {
	out := s
	if s.Factors != nil {
		factors := make(map[string]float64, len(s.Factors))
		for k, v := range s.Factors {
			factors[k] = v
		}
		out.Factors = factors
	}
	return &out
}

func copySimulation(s models.Simulation) *models.Simulation {
	out := s
	if s.StartedAt != nil {
		v := *s.StartedAt
		out.StartedAt = &v
	}
	if s.FinishedAt != nil {
		v := *s.FinishedAt
		out.FinishedAt = &v
	}
	if s.Result != nil {
		res := *s.Result
		res.Deltas = append([]models.ImpactDelta(nil), s.Result.Deltas...)
		out.Result = &res
	}
	return &out
}
