// Package demo seeds a deterministic tenant used by the CLI walkthrough
// and as a realistic fixture for manual exploration.
package demo

import (
	"context"
	"time"

	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/store"
)

// TenantID is the fixed tenant the demo dataset lives in.
const TenantID = "demo-tenant"

// Seed writes the demo tenant through the manager so every record passes
// the same validation and audit path as user data. IDs are fixed, so the
// dataset is stable across runs.
func Seed(ctx context.Context, mgr *store.Manager) error {
	if err := mgr.CreateTenant(ctx, &models.Tenant{
		ID:   TenantID,
		Code: "acme",
		Name: "Acme Financial Group",
	}); err != nil {
		return err
	}

	for _, reg := range regulations() {
		if err := mgr.CreateRegulation(ctx, reg); err != nil {
			return err
		}
	}
	for _, dep := range departments() {
		if err := mgr.CreateDepartment(ctx, dep); err != nil {
			return err
		}
	}
	for _, budget := range budgets() {
		if err := mgr.CreateBudget(ctx, budget); err != nil {
			return err
		}
	}
	for _, svc := range services() {
		if err := mgr.CreateService(ctx, svc); err != nil {
			return err
		}
	}
	for _, kpi := range kpis() {
		if err := mgr.CreateKPI(ctx, kpi); err != nil {
			return err
		}
	}
	for _, edge := range edges() {
		if err := mgr.CreateEdge(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func regulations() []*models.Regulation {
	return []*models.Regulation{
		{
			ID: "reg-gdpr", TenantID: TenantID, Code: "GDPR",
			Name:        "General Data Protection Regulation",
			Description: "EU data protection and privacy rules",
			Severity:    models.SeverityCritical, Status: models.RegulationActive,
			EffectiveDate: date(2018, time.May, 25), Active: true,
		},
		{
			ID: "reg-sox", TenantID: TenantID, Code: "SOX",
			Name:        "Sarbanes-Oxley Act",
			Description: "Financial reporting and internal controls",
			Severity:    models.SeverityHigh, Status: models.RegulationActive,
			EffectiveDate: date(2020, time.January, 1), Active: true,
		},
		{
			ID: "reg-psd2", TenantID: TenantID, Code: "PSD2",
			Name:        "Payment Services Directive 2",
			Description: "Open banking and strong customer authentication",
			Severity:    models.SeverityMedium, Status: models.RegulationActive,
			EffectiveDate: date(2019, time.September, 14), Active: true,
		},
		{
			ID: "reg-lkd", TenantID: TenantID, Code: "LKSG",
			Name:        "Supply Chain Due Diligence Act",
			Description: "Human rights due diligence in supply chains",
			Severity:    models.SeverityLow, Status: models.RegulationActive,
			EffectiveDate: date(2023, time.January, 1), Active: true,
		},
	}
}

func departments() []*models.Department {
	return []*models.Department{
		{ID: "dep-fin", TenantID: TenantID, Code: "FIN", Name: "Finance", Active: true},
		{ID: "dep-it", TenantID: TenantID, Code: "IT", Name: "Information Technology", Active: true},
		{ID: "dep-legal", TenantID: TenantID, Code: "LEGAL", Name: "Legal & Compliance", Active: true},
		{ID: "dep-ops", TenantID: TenantID, Code: "OPS", Name: "Operations", ParentID: "dep-fin", Active: true},
	}
}

func budgets() []*models.Budget {
	return []*models.Budget{
		{ID: "bud-compliance", TenantID: TenantID, Code: "B-COMP", Name: "Compliance Budget", Amount: 1_200_000, Currency: "EUR", FiscalYear: 2026, Active: true},
		{ID: "bud-itsec", TenantID: TenantID, Code: "B-ITSEC", Name: "IT Security Budget", Amount: 850_000, Currency: "EUR", FiscalYear: 2026, Active: true},
	}
}

func services() []*models.Service {
	return []*models.Service{
		{ID: "svc-payments", TenantID: TenantID, Code: "S-PAY", Name: "Payment Processing", ServiceType: "core", Status: "operational", Active: true},
		{ID: "svc-reporting", TenantID: TenantID, Code: "S-REP", Name: "Regulatory Reporting", ServiceType: "internal", Status: "operational", Active: true},
		{ID: "svc-crm", TenantID: TenantID, Code: "S-CRM", Name: "Customer Relationship Management", ServiceType: "supporting", Status: "operational", Active: true},
	}
}

func kpis() []*models.KPI {
	return []*models.KPI{
		{ID: "kpi-uptime", TenantID: TenantID, Code: "K-UPTIME", Name: "Payment Service Uptime", Unit: "%", Target: 99.95, Current: 99.97, Frequency: "monthly", Active: true},
		{ID: "kpi-audit", TenantID: TenantID, Code: "K-AUDIT", Name: "Audit Findings Closed", Unit: "count", Target: 12, Current: 9, Frequency: "quarterly", Active: true},
		{ID: "kpi-csat", TenantID: TenantID, Code: "K-CSAT", Name: "Customer Satisfaction", Unit: "score", Target: 4.5, Current: 4.2, Frequency: "monthly", Active: true},
	}
}

func edges() []*models.ImpactEdge {
	ref := func(t models.NodeType, id string) models.NodeRef {
		return models.NodeRef{Type: t, ID: id}
	}
	return []*models.ImpactEdge{
		// GDPR hits IT and Legal directly, and Finance through its budget.
		{ID: "edge-gdpr-it", TenantID: TenantID, Source: ref(models.NodeTypeRegulation, "reg-gdpr"), Target: ref(models.NodeTypeDepartment, "dep-it"), ImpactWeight: 0.9, ImpactType: models.ImpactDirect, ImpactCategory: "operational", Active: true},
		{ID: "edge-gdpr-legal", TenantID: TenantID, Source: ref(models.NodeTypeRegulation, "reg-gdpr"), Target: ref(models.NodeTypeDepartment, "dep-legal"), ImpactWeight: 0.8, ImpactType: models.ImpactDirect, ImpactCategory: "compliance", Active: true},
		{ID: "edge-gdpr-crm", TenantID: TenantID, Source: ref(models.NodeTypeRegulation, "reg-gdpr"), Target: ref(models.NodeTypeService, "svc-crm"), ImpactWeight: 0.7, ImpactType: models.ImpactIndirect, ImpactCategory: "operational", Active: true},

		// SOX drives finance controls and the compliance budget.
		{ID: "edge-sox-fin", TenantID: TenantID, Source: ref(models.NodeTypeRegulation, "reg-sox"), Target: ref(models.NodeTypeDepartment, "dep-fin"), ImpactWeight: 0.85, ImpactType: models.ImpactDirect, ImpactCategory: "financial", Active: true},
		{ID: "edge-sox-rep", TenantID: TenantID, Source: ref(models.NodeTypeRegulation, "reg-sox"), Target: ref(models.NodeTypeService, "svc-reporting"), ImpactWeight: 0.75, ImpactType: models.ImpactDirect, ImpactCategory: "compliance", Active: true},

		// PSD2 affects payments directly and IT conditionally.
		{ID: "edge-psd2-pay", TenantID: TenantID, Source: ref(models.NodeTypeRegulation, "reg-psd2"), Target: ref(models.NodeTypeService, "svc-payments"), ImpactWeight: 0.8, ImpactType: models.ImpactDirect, ImpactCategory: "operational", Active: true},
		{ID: "edge-psd2-it", TenantID: TenantID, Source: ref(models.NodeTypeRegulation, "reg-psd2"), Target: ref(models.NodeTypeDepartment, "dep-it"), ImpactWeight: 0.6, ImpactType: models.ImpactConditional, Condition: map[string]interface{}{"required": true}, ImpactCategory: "operational", Active: true},

		// LkSG touches operations through a conditional threshold gate.
		{ID: "edge-lkd-ops", TenantID: TenantID, Source: ref(models.NodeTypeRegulation, "reg-lkd"), Target: ref(models.NodeTypeDepartment, "dep-ops"), ImpactWeight: 0.5, ImpactType: models.ImpactConditional, Condition: map[string]interface{}{"threshold": 0.4}, ImpactCategory: "compliance", Active: true},

		// Departments cascade into budgets, services, and KPIs.
		{ID: "edge-fin-comp", TenantID: TenantID, Source: ref(models.NodeTypeDepartment, "dep-fin"), Target: ref(models.NodeTypeBudget, "bud-compliance"), ImpactWeight: 0.7, ImpactType: models.ImpactDirect, ImpactCategory: "financial", Active: true},
		{ID: "edge-it-itsec", TenantID: TenantID, Source: ref(models.NodeTypeDepartment, "dep-it"), Target: ref(models.NodeTypeBudget, "bud-itsec"), ImpactWeight: 0.65, ImpactType: models.ImpactDirect, ImpactCategory: "financial", Active: true},
		{ID: "edge-it-pay", TenantID: TenantID, Source: ref(models.NodeTypeDepartment, "dep-it"), Target: ref(models.NodeTypeService, "svc-payments"), ImpactWeight: 0.6, ImpactType: models.ImpactIndirect, ImpactCategory: "operational", Active: true},
		{ID: "edge-legal-rep", TenantID: TenantID, Source: ref(models.NodeTypeDepartment, "dep-legal"), Target: ref(models.NodeTypeService, "svc-reporting"), ImpactWeight: 0.55, ImpactType: models.ImpactIndirect, ImpactCategory: "compliance", Active: true},

		// Budget pressure reaches the audit KPI.
		{ID: "edge-comp-audit", TenantID: TenantID, Source: ref(models.NodeTypeBudget, "bud-compliance"), Target: ref(models.NodeTypeKPI, "kpi-audit"), ImpactWeight: 0.6, ImpactType: models.ImpactDirect, ImpactCategory: "compliance", Active: true},

		// Services feed the customer-facing KPIs.
		{ID: "edge-pay-uptime", TenantID: TenantID, Source: ref(models.NodeTypeService, "svc-payments"), Target: ref(models.NodeTypeKPI, "kpi-uptime"), ImpactWeight: 0.8, ImpactType: models.ImpactDirect, ImpactCategory: "operational", Active: true},
		{ID: "edge-crm-csat", TenantID: TenantID, Source: ref(models.NodeTypeService, "svc-crm"), Target: ref(models.NodeTypeKPI, "kpi-csat"), ImpactWeight: 0.7, ImpactType: models.ImpactDirect, ImpactCategory: "operational", Active: true},
	}
}
