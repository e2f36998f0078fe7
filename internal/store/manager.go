package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/regwave/regwave/internal/cache"
	"github.com/regwave/regwave/internal/logging"
	"github.com/regwave/regwave/internal/models"
)

// Manager wraps a MutableStore with the mutation discipline the engines
// rely on: validation, per-tenant code uniqueness, strict regulation
// version bumps, soft deletes, cache invalidation before a mutation returns
// success, and audit trail appends. Audit failures are logged, never
// surfaced; everything else fails the mutation.
type Manager struct {
	store     MutableStore
	cache     *cache.TagCache
	sinks     []AuditSink
	observers []EntityObserver
	logger    *logging.Logger
}

// EntityObserver is notified after an entity mutation committed, keyed by
// the tenant and entity type that changed.
type EntityObserver func(tenantID string, entityType models.NodeType)

// NewManager wires a Manager over the store and cache.
func NewManager(mutable MutableStore, tagCache *cache.TagCache) *Manager {
	return &Manager{
		store:  mutable,
		cache:  tagCache,
		logger: logging.GetLogger("store.manager"),
	}
}

// AddAuditSink registers an additional best-effort audit destination, for
// example the JSONL file log.
func (m *Manager) AddAuditSink(sink AuditSink) {
	m.sinks = append(m.sinks, sink)
}

// OnEntityChange registers an observer invoked after every successful
// create, update, or delete of a graph entity. Observers run synchronously
// on the mutating goroutine and must not block.
func (m *Manager) OnEntityChange(observer EntityObserver) {
	m.observers = append(m.observers, observer)
}

func (m *Manager) notifyChange(tenantID string, entityType models.NodeType) {
	for _, observer := range m.observers {
		observer(tenantID, entityType)
	}
}

// Store exposes the read surface of the wrapped store.
func (m *Manager) Store() MutableStore {
	return m.store
}

// CreateTenant registers a tenant. Tenants carry no graph state themselves,
// so no invalidation is needed.
func (m *Manager) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.Code == "" {
		return models.NewInvalidError("tenant requires a code")
	}
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if err := m.store.PutTenant(ctx, tenant); err != nil {
		return models.NewUpstreamError("put tenant", err)
	}
	m.appendAudit(ctx, tenant.ID, models.AuditCreate, "TENANT", tenant.ID, nil)
	return nil
}

// CreateRegulation validates and persists a new regulation at version 1.
func (m *Manager) CreateRegulation(ctx context.Context, reg *models.Regulation) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	if err := m.requireTenant(ctx, reg.TenantID); err != nil {
		return err
	}
	if err := m.requireFreeCode(ctx, reg.TenantID, models.NodeTypeRegulation, reg.Code, ""); err != nil {
		return err
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.Version = 1
	if err := m.store.PutRegulation(ctx, reg); err != nil {
		return models.NewUpstreamError("put regulation", err)
	}
	m.cache.InvalidateRegulation(reg.TenantID, reg.ID)
	m.notifyChange(reg.TenantID, models.NodeTypeRegulation)
	m.appendAudit(ctx, reg.TenantID, models.AuditCreate, string(models.NodeTypeRegulation), reg.ID, map[string]interface{}{"code": reg.Code})
	return nil
}

// UpdateRegulation persists changes to an existing regulation, bumping its
// version. The tenant of a regulation is immutable.
func (m *Manager) UpdateRegulation(ctx context.Context, reg *models.Regulation) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	existing, err := m.store.FindRegulation(ctx, reg.ID)
	if err != nil {
		return err
	}
	if existing.TenantID != reg.TenantID {
		return models.NewInvalidError("regulation %s belongs to another tenant", reg.ID)
	}
	if err := m.requireFreeCode(ctx, reg.TenantID, models.NodeTypeRegulation, reg.Code, reg.ID); err != nil {
		return err
	}
	reg.Version = existing.Version + 1
	if err := m.store.PutRegulation(ctx, reg); err != nil {
		return models.NewUpstreamError("put regulation", err)
	}
	m.cache.InvalidateRegulation(reg.TenantID, reg.ID)
	m.notifyChange(reg.TenantID, models.NodeTypeRegulation)
	m.appendAudit(ctx, reg.TenantID, models.AuditUpdate, string(models.NodeTypeRegulation), reg.ID, map[string]interface{}{"version": reg.Version})
	return nil
}

// DeleteRegulation soft-deletes a regulation: the active flag clears and
// the version still bumps.
func (m *Manager) DeleteRegulation(ctx context.Context, id string) error {
	existing, err := m.store.FindRegulation(ctx, id)
	if err != nil {
		return err
	}
	existing.Active = false
	existing.Version++
	if err := m.store.PutRegulation(ctx, existing); err != nil {
		return models.NewUpstreamError("put regulation", err)
	}
	m.cache.InvalidateRegulation(existing.TenantID, id)
	m.notifyChange(existing.TenantID, models.NodeTypeRegulation)
	m.appendAudit(ctx, existing.TenantID, models.AuditDelete, string(models.NodeTypeRegulation), id, nil)
	return nil
}

// CreateEdge validates and persists a new impact edge. Both endpoints must
// exist in the edge's tenant, and no second active edge may connect the
// same (source, target) pair.
func (m *Manager) CreateEdge(ctx context.Context, edge *models.ImpactEdge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	if err := m.requireEndpoint(ctx, edge.TenantID, edge.Source); err != nil {
		return err
	}
	if err := m.requireEndpoint(ctx, edge.TenantID, edge.Target); err != nil {
		return err
	}
	if edge.Active {
		if _, err := m.store.FindActiveEdge(ctx, edge.TenantID, edge.Source, edge.Target); err == nil {
			return models.NewInvalidError("active edge %s->%s already exists", edge.Source.Key(), edge.Target.Key())
		} else if !models.IsNotFound(err) {
			return models.NewUpstreamError("lookup edge", err)
		}
	}
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	if err := m.store.PutEdge(ctx, edge); err != nil {
		return models.NewUpstreamError("put edge", err)
	}
	m.cache.InvalidateEdges(edge.TenantID)
	m.appendAudit(ctx, edge.TenantID, models.AuditCreate, "EDGE", edge.ID, map[string]interface{}{
		"source": edge.Source.Key(),
		"target": edge.Target.Key(),
	})
	return nil
}

// UpdateEdge persists changes to an existing edge, re-checking uniqueness
// when the edge stays or becomes active.
func (m *Manager) UpdateEdge(ctx context.Context, edge *models.ImpactEdge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	existing, err := m.store.FindEdge(ctx, edge.ID)
	if err != nil {
		return err
	}
	if existing.TenantID != edge.TenantID {
		return models.NewInvalidError("edge %s belongs to another tenant", edge.ID)
	}
	if edge.Active {
		other, err := m.store.FindActiveEdge(ctx, edge.TenantID, edge.Source, edge.Target)
		if err == nil && other.ID != edge.ID {
			return models.NewInvalidError("active edge %s->%s already exists", edge.Source.Key(), edge.Target.Key())
		} else if err != nil && !models.IsNotFound(err) {
			return models.NewUpstreamError("lookup edge", err)
		}
	}
	if err := m.store.PutEdge(ctx, edge); err != nil {
		return models.NewUpstreamError("put edge", err)
	}
	m.cache.InvalidateEdges(edge.TenantID)
	m.appendAudit(ctx, edge.TenantID, models.AuditUpdate, "EDGE", edge.ID, nil)
	return nil
}

// DeleteEdge soft-deletes an edge.
func (m *Manager) DeleteEdge(ctx context.Context, id string) error {
	existing, err := m.store.FindEdge(ctx, id)
	if err != nil {
		return err
	}
	existing.Active = false
	if err := m.store.PutEdge(ctx, existing); err != nil {
		return models.NewUpstreamError("put edge", err)
	}
	m.cache.InvalidateEdges(existing.TenantID)
	m.appendAudit(ctx, existing.TenantID, models.AuditDelete, "EDGE", id, nil)
	return nil
}

// CreateDepartment validates and persists a new department.
func (m *Manager) CreateDepartment(ctx context.Context, dep *models.Department) error {
	if dep.ParentID != "" {
		parent, err := m.store.FindDepartment(ctx, dep.ParentID)
		if err != nil {
			return err
		}
		if parent.TenantID != dep.TenantID {
			return models.NewInvalidError("parent department %s belongs to another tenant", dep.ParentID)
		}
	}
	return m.createEntity(ctx, dep.TenantID, models.NodeTypeDepartment, dep.Code, &dep.ID, func() error {
		return m.store.PutDepartment(ctx, dep)
	})
}

// UpdateDepartment persists changes to an existing department.
func (m *Manager) UpdateDepartment(ctx context.Context, dep *models.Department) error {
	existing, err := m.store.FindDepartment(ctx, dep.ID)
	if err != nil {
		return err
	}
	return m.updateEntity(ctx, existing.TenantID, dep.TenantID, models.NodeTypeDepartment, dep.Code, dep.ID, func() error {
		return m.store.PutDepartment(ctx, dep)
	})
}

// DeleteDepartment soft-deletes a department.
func (m *Manager) DeleteDepartment(ctx context.Context, id string) error {
	existing, err := m.store.FindDepartment(ctx, id)
	if err != nil {
		return err
	}
	existing.Active = false
	return m.deleteEntity(ctx, existing.TenantID, models.NodeTypeDepartment, id, func() error {
		return m.store.PutDepartment(ctx, existing)
	})
}

// CreateBudget validates and persists a new budget.
func (m *Manager) CreateBudget(ctx context.Context, budget *models.Budget) error {
	if budget.Amount < 0 {
		return models.NewInvalidError("budget amount must not be negative")
	}
	return m.createEntity(ctx, budget.TenantID, models.NodeTypeBudget, budget.Code, &budget.ID, func() error {
		return m.store.PutBudget(ctx, budget)
	})
}

// UpdateBudget persists changes to an existing budget.
func (m *Manager) UpdateBudget(ctx context.Context, budget *models.Budget) error {
	existing, err := m.store.FindBudget(ctx, budget.ID)
	if err != nil {
		return err
	}
	if budget.Amount < 0 {
		return models.NewInvalidError("budget amount must not be negative")
	}
	return m.updateEntity(ctx, existing.TenantID, budget.TenantID, models.NodeTypeBudget, budget.Code, budget.ID, func() error {
		return m.store.PutBudget(ctx, budget)
	})
}

// DeleteBudget soft-deletes a budget.
func (m *Manager) DeleteBudget(ctx context.Context, id string) error {
	existing, err := m.store.FindBudget(ctx, id)
	if err != nil {
		return err
	}
	existing.Active = false
	return m.deleteEntity(ctx, existing.TenantID, models.NodeTypeBudget, id, func() error {
		return m.store.PutBudget(ctx, existing)
	})
}

// CreateService validates and persists a new service.
func (m *Manager) CreateService(ctx context.Context, svc *models.Service) error {
	return m.createEntity(ctx, svc.TenantID, models.NodeTypeService, svc.Code, &svc.ID, func() error {
		return m.store.PutService(ctx, svc)
	})
}

// UpdateService persists changes to an existing service.
func (m *Manager) UpdateService(ctx context.Context, svc *models.Service) error {
	existing, err := m.store.FindService(ctx, svc.ID)
	if err != nil {
		return err
	}
	return m.updateEntity(ctx, existing.TenantID, svc.TenantID, models.NodeTypeService, svc.Code, svc.ID, func() error {
		return m.store.PutService(ctx, svc)
	})
}

// DeleteService soft-deletes a service.
func (m *Manager) DeleteService(ctx context.Context, id string) error {
	existing, err := m.store.FindService(ctx, id)
	if err != nil {
		return err
	}
	existing.Active = false
	return m.deleteEntity(ctx, existing.TenantID, models.NodeTypeService, id, func() error {
		return m.store.PutService(ctx, existing)
	})
}

// CreateKPI validates and persists a new KPI.
func (m *Manager) CreateKPI(ctx context.Context, kpi *models.KPI) error {
	return m.createEntity(ctx, kpi.TenantID, models.NodeTypeKPI, kpi.Code, &kpi.ID, func() error {
		return m.store.PutKPI(ctx, kpi)
	})
}

// UpdateKPI persists changes to an existing KPI.
func (m *Manager) UpdateKPI(ctx context.Context, kpi *models.KPI) error {
	existing, err := m.store.FindKPI(ctx, kpi.ID)
	if err != nil {
		return err
	}
	return m.updateEntity(ctx, existing.TenantID, kpi.TenantID, models.NodeTypeKPI, kpi.Code, kpi.ID, func() error {
		return m.store.PutKPI(ctx, kpi)
	})
}

// DeleteKPI soft-deletes a KPI.
func (m *Manager) DeleteKPI(ctx context.Context, id string) error {
	existing, err := m.store.FindKPI(ctx, id)
	if err != nil {
		return err
	}
	existing.Active = false
	return m.deleteEntity(ctx, existing.TenantID, models.NodeTypeKPI, id, func() error {
		return m.store.PutKPI(ctx, existing)
	})
}

// createEntity runs the shared create path for the four plain entity
// families: tenant exists, code free, id assigned, persist, invalidate,
// audit.
func (m *Manager) createEntity(ctx context.Context, tenantID string, entityType models.NodeType, code string, id *string, persist func() error) error {
	if code == "" {
		return models.NewInvalidError("%s requires a code", entityType)
	}
	if err := m.requireTenant(ctx, tenantID); err != nil {
		return err
	}
	if err := m.requireFreeCode(ctx, tenantID, entityType, code, ""); err != nil {
		return err
	}
	if *id == "" {
		*id = uuid.NewString()
	}
	if err := persist(); err != nil {
		return models.NewUpstreamError("put "+string(entityType), err)
	}
	m.cache.InvalidateEntity(tenantID, entityType, *id)
	m.notifyChange(tenantID, entityType)
	m.appendAudit(ctx, tenantID, models.AuditCreate, string(entityType), *id, map[string]interface{}{"code": code})
	return nil
}

func (m *Manager) updateEntity(ctx context.Context, existingTenant, tenantID string, entityType models.NodeType, code, id string, persist func() error) error {
	if existingTenant != tenantID {
		return models.NewInvalidError("%s %s belongs to another tenant", entityType, id)
	}
	if code == "" {
		return models.NewInvalidError("%s requires a code", entityType)
	}
	if err := m.requireFreeCode(ctx, tenantID, entityType, code, id); err != nil {
		return err
	}
	if err := persist(); err != nil {
		return models.NewUpstreamError("put "+string(entityType), err)
	}
	m.cache.InvalidateEntity(tenantID, entityType, id)
	m.notifyChange(tenantID, entityType)
	m.appendAudit(ctx, tenantID, models.AuditUpdate, string(entityType), id, nil)
	return nil
}

func (m *Manager) deleteEntity(ctx context.Context, tenantID string, entityType models.NodeType, id string, persist func() error) error {
	if err := persist(); err != nil {
		return models.NewUpstreamError("put "+string(entityType), err)
	}
	m.cache.InvalidateEntity(tenantID, entityType, id)
	m.notifyChange(tenantID, entityType)
	m.appendAudit(ctx, tenantID, models.AuditDelete, string(entityType), id, nil)
	return nil
}

func (m *Manager) requireTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return models.NewInvalidError("tenant id required")
	}
	if _, err := m.store.FindTenant(ctx, tenantID); err != nil {
		return err
	}
	return nil
}

func (m *Manager) requireFreeCode(ctx context.Context, tenantID string, entityType models.NodeType, code, excludingID string) error {
	inUse, err := m.store.CodeInUse(ctx, tenantID, entityType, code, excludingID)
	if err != nil {
		return models.NewUpstreamError("check code", err)
	}
	if inUse {
		return models.NewConflictError("%s code %q already used in tenant %s", entityType, code, tenantID)
	}
	return nil
}

// requireEndpoint verifies an edge endpoint exists and belongs to the
// edge's tenant.
func (m *Manager) requireEndpoint(ctx context.Context, tenantID string, ref models.NodeRef) error {
	owner, err := m.entityTenant(ctx, ref)
	if err != nil {
		return err
	}
	if owner != tenantID {
		return models.NewInvalidError("node %s belongs to another tenant", ref.Key())
	}
	return nil
}

func (m *Manager) entityTenant(ctx context.Context, ref models.NodeRef) (string, error) {
	switch ref.Type {
	case models.NodeTypeRegulation:
		r, err := m.store.FindRegulation(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return r.TenantID, nil
	case models.NodeTypeDepartment:
		d, err := m.store.FindDepartment(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return d.TenantID, nil
	case models.NodeTypeBudget:
		b, err := m.store.FindBudget(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return b.TenantID, nil
	case models.NodeTypeService:
		s, err := m.store.FindService(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return s.TenantID, nil
	case models.NodeTypeKPI:
		k, err := m.store.FindKPI(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return k.TenantID, nil
	default:
		return "", models.NewInvalidError("unknown node type %q", ref.Type)
	}
}

// appendAudit writes the entry to the store trail and every extra sink.
// Audit is best-effort observability: failures are logged, never returned.
func (m *Manager) appendAudit(ctx context.Context, tenantID string, action models.AuditAction, entityType, entityID string, detail map[string]interface{}) {
	entry := models.AuditEntry{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      ActorFrom(ctx),
		Timestamp:  time.Now().UTC(),
		Detail:     detail,
	}
	if err := m.store.AppendAuditLog(ctx, entry); err != nil {
		m.logger.ErrorWithErr("audit append failed", err)
	}
	for _, sink := range m.sinks {
		if err := sink.Append(ctx, entry); err != nil {
			m.logger.ErrorWithErr("audit sink append failed", err)
		}
	}
}
