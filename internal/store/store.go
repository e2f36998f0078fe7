// Package store defines the persistence contracts the engines consume and
// provides the in-memory reference implementation plus the validating
// Manager that keeps the cache and audit trail consistent with every
// mutation.
package store

import (
	"context"
	"time"

	"github.com/regwave/regwave/internal/models"
)

// Store is the read and derived-write surface the engines consume. A
// production deployment backs this with its system of record; Memory is the
// reference implementation. Find methods return a not-found error kind for
// absent records, never a nil record with nil error.
type Store interface {
	FindTenant(ctx context.Context, id string) (*models.Tenant, error)
	FindRegulation(ctx context.Context, id string) (*models.Regulation, error)
	FindDepartment(ctx context.Context, id string) (*models.Department, error)
	FindBudget(ctx context.Context, id string) (*models.Budget, error)
	FindService(ctx context.Context, id string) (*models.Service, error)
	FindKPI(ctx context.Context, id string) (*models.KPI, error)

	// DisplayName resolves one entity's human name, dispatching on type.
	DisplayName(ctx context.Context, entityType models.NodeType, id string) (string, error)

	// ActiveEntityNames returns id -> display name for every active entity
	// of the given type, so callers can prefetch instead of issuing one
	// DisplayName call per traversed node.
	ActiveEntityNames(ctx context.Context, tenantID string, entityType models.NodeType) (map[string]string, error)

	// ActiveEdges returns every active edge of the tenant in a stable
	// order.
	ActiveEdges(ctx context.Context, tenantID string) ([]models.ImpactEdge, error)

	// ActiveRegulations returns the tenant's regulations with Active status
	// and a set active flag.
	ActiveRegulations(ctx context.Context, tenantID string) ([]models.Regulation, error)

	// RegulationsActiveBefore returns active regulations effective strictly
	// before date, excluding the given id.
	RegulationsActiveBefore(ctx context.Context, tenantID string, date time.Time, excludingID string) ([]models.Regulation, error)

	// ReplaceRegulationImpacts atomically wipes and reinserts the derived
	// impact rows of one regulation.
	ReplaceRegulationImpacts(ctx context.Context, regulationID string, impacts []models.RegulationImpact) error
	RegulationImpacts(ctx context.Context, regulationID string) ([]models.RegulationImpact, error)

	// UpsertRiskScore is idempotent, keyed on (tenant, entity).
	UpsertRiskScore(ctx context.Context, score models.RiskScore) error
	RiskScores(ctx context.Context, tenantID string) ([]models.RiskScore, error)

	AppendAuditLog(ctx context.Context, entry models.AuditEntry) error

	CreateSimulation(ctx context.Context, sim *models.Simulation) error
	UpdateSimulation(ctx context.Context, sim *models.Simulation) error
	FindSimulation(ctx context.Context, id string) (*models.Simulation, error)
}

// MutableStore adds the persistence primitives the Manager builds its
// validated mutations on. Put methods store records as given; validation,
// versioning, invalidation, and auditing live in the Manager.
type MutableStore interface {
	Store

	PutTenant(ctx context.Context, tenant *models.Tenant) error
	PutRegulation(ctx context.Context, regulation *models.Regulation) error
	PutDepartment(ctx context.Context, department *models.Department) error
	PutBudget(ctx context.Context, budget *models.Budget) error
	PutService(ctx context.Context, service *models.Service) error
	PutKPI(ctx context.Context, kpi *models.KPI) error
	PutEdge(ctx context.Context, edge *models.ImpactEdge) error

	FindEdge(ctx context.Context, id string) (*models.ImpactEdge, error)

	// FindActiveEdge returns the active edge between source and target
	// within the tenant, or a not-found error.
	FindActiveEdge(ctx context.Context, tenantID string, source, target models.NodeRef) (*models.ImpactEdge, error)

	// CodeInUse reports whether an entity of the type other than
	// excludingID already claims the code within the tenant.
	CodeInUse(ctx context.Context, tenantID string, entityType models.NodeType, code, excludingID string) (bool, error)
}

type actorKey struct{}

// WithActor attaches the acting principal to ctx for audit attribution.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the acting principal attached to ctx, or "system".
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}
