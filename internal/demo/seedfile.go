package demo

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/store"
)

// Dataset is the YAML shape of a seed file. Everything is optional except
// the tenant.
type Dataset struct {
	Tenant      models.Tenant       `koanf:"tenant"`
	Regulations []models.Regulation `koanf:"regulations"`
	Departments []models.Department `koanf:"departments"`
	Budgets     []models.Budget     `koanf:"budgets"`
	Services    []models.Service    `koanf:"services"`
	KPIs        []models.KPI        `koanf:"kpis"`
	Edges       []models.ImpactEdge `koanf:"edges"`
}

// LoadSeedFile parses a YAML seed file.
func LoadSeedFile(path string) (*Dataset, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load seed file %q: %w", path, err)
	}

	var ds Dataset
	if err := k.Unmarshal("", &ds); err != nil {
		return nil, fmt.Errorf("parse seed file %q: %w", path, err)
	}
	if ds.Tenant.Code == "" {
		return nil, models.NewInvalidError("seed file %q has no tenant code", path)
	}
	return &ds, nil
}

// Apply writes a dataset through the manager. Records inherit the dataset
// tenant when they name none themselves.
func (ds *Dataset) Apply(ctx context.Context, mgr *store.Manager) error {
	if err := mgr.CreateTenant(ctx, &ds.Tenant); err != nil {
		return err
	}
	tenantID := ds.Tenant.ID

	for i := range ds.Regulations {
		reg := ds.Regulations[i]
		if reg.TenantID == "" {
			reg.TenantID = tenantID
		}
		if err := mgr.CreateRegulation(ctx, &reg); err != nil {
			return err
		}
	}
	for i := range ds.Departments {
		dep := ds.Departments[i]
		if dep.TenantID == "" {
			dep.TenantID = tenantID
		}
		if err := mgr.CreateDepartment(ctx, &dep); err != nil {
			return err
		}
	}
	for i := range ds.Budgets {
		budget := ds.Budgets[i]
		if budget.TenantID == "" {
			budget.TenantID = tenantID
		}
		if err := mgr.CreateBudget(ctx, &budget); err != nil {
			return err
		}
	}
	for i := range ds.Services {
		svc := ds.Services[i]
		if svc.TenantID == "" {
			svc.TenantID = tenantID
		}
		if err := mgr.CreateService(ctx, &svc); err != nil {
			return err
		}
	}
	for i := range ds.KPIs {
		kpi := ds.KPIs[i]
		if kpi.TenantID == "" {
			kpi.TenantID = tenantID
		}
		if err := mgr.CreateKPI(ctx, &kpi); err != nil {
			return err
		}
	}
	for i := range ds.Edges {
		edge := ds.Edges[i]
		if edge.TenantID == "" {
			edge.TenantID = tenantID
		}
		if err := mgr.CreateEdge(ctx, &edge); err != nil {
			return err
		}
	}
	return nil
}
