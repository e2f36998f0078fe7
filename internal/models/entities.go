package models

import "time"

// Severity grades how heavily a regulation weighs in risk calculations.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RegulationStatus tracks a regulation through its lifecycle. Only Active,
// non-draft regulations participate in risk aggregation.
type RegulationStatus string

const (
	RegulationDraft      RegulationStatus = "Draft"
	RegulationActive     RegulationStatus = "Active"
	RegulationSuperseded RegulationStatus = "Superseded"
	RegulationRevoked    RegulationStatus = "Revoked"
)

// Valid reports whether s is one of the known statuses.
func (s RegulationStatus) Valid() bool {
	switch s {
	case RegulationDraft, RegulationActive, RegulationSuperseded, RegulationRevoked:
		return true
	}
	return false
}

// Tenant is the isolation unit. Every entity, edge, cache entry, and
// published event is scoped to exactly one tenant.
type Tenant struct {
	ID   string `json:"id"`
	Code string `json:"code"` // unique human-readable identifier
	Name string `json:"name"`
}

// Regulation is the root of every impact chain.
type Regulation struct {
	ID             string           `json:"id"`
	TenantID       string           `json:"tenantId"`
	Code           string           `json:"code"` // unique per tenant
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Severity       Severity         `json:"severity"`
	Status         RegulationStatus `json:"status"`
	EffectiveDate  time.Time        `json:"effectiveDate"`
	ExpirationDate *time.Time       `json:"expirationDate,omitempty"`
	Version        int              `json:"version"` // bumped on every update
	Active         bool             `json:"active"`
}

// NodeRef returns the graph identity of the regulation.
func (r *Regulation) NodeRef() NodeRef {
	return NodeRef{Type: NodeTypeRegulation, ID: r.ID}
}

// Validate checks the fields the engine depends on. Uniqueness of the code
// is a store concern and checked there.
func (r *Regulation) Validate() error {
	if r.TenantID == "" {
		return NewInvalidError("regulation requires a tenant")
	}
	if r.Code == "" {
		return NewInvalidError("regulation requires a code")
	}
	if !r.Severity.Valid() {
		return NewInvalidError("unknown severity %q", r.Severity)
	}
	if !r.Status.Valid() {
		return NewInvalidError("unknown status %q", r.Status)
	}
	if r.ExpirationDate != nil && !r.ExpirationDate.After(r.EffectiveDate) {
		return NewInvalidError("expiration date must follow effective date")
	}
	return nil
}

// Department is an organizational unit, optionally nested under a parent.
type Department struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"` // empty for top-level departments
	Active   bool   `json:"active"`
}

// NodeRef returns the graph identity of the department.
func (d *Department) NodeRef() NodeRef {
	return NodeRef{Type: NodeTypeDepartment, ID: d.ID}
}

// Budget is a spending envelope tied to a fiscal year.
type Budget struct {
	ID         string  `json:"id"`
	TenantID   string  `json:"tenantId"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	FiscalYear int     `json:"fiscalYear"`
	Active     bool    `json:"active"`
}

// NodeRef returns the graph identity of the budget.
func (b *Budget) NodeRef() NodeRef {
	return NodeRef{Type: NodeTypeBudget, ID: b.ID}
}

// Service is an operational capability a tenant runs or consumes.
type Service struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	ServiceType string `json:"serviceType"`
	Status      string `json:"status"`
	Active      bool   `json:"active"`
}

// NodeRef returns the graph identity of the service.
func (s *Service) NodeRef() NodeRef {
	return NodeRef{Type: NodeTypeService, ID: s.ID}
}

// KPI is a measured indicator at the end of most impact chains.
type KPI struct {
	ID        string  `json:"id"`
	TenantID  string  `json:"tenantId"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Target    float64 `json:"target"`
	Current   float64 `json:"current"`
	Frequency string  `json:"frequency"` // measurement cadence, e.g. "monthly"
	Active    bool    `json:"active"`
}

// NodeRef returns the graph identity of the KPI.
func (k *KPI) NodeRef() NodeRef {
	return NodeRef{Type: NodeTypeKPI, ID: k.ID}
}
