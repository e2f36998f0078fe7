package models

import "time"

// RiskLevel buckets a numeric impact or risk score into a reporting
// category.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// RegulationImpact is one materialized row per reachable node for one
// regulation's propagation. Rows for a regulation are replaced wholesale on
// each recalculation; the source node itself is never persisted.
type RegulationImpact struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	RegulationID string    `json:"regulationId"`
	Entity       NodeRef   `json:"entity"`
	ImpactScore  float64   `json:"impactScore"`
	ImpactLevel  RiskLevel `json:"impactLevel"`
	Depth        int       `json:"depth"`
	Path         []string  `json:"path"` // edge keys walked to reach the entity
	CalculatedAt time.Time `json:"calculatedAt"`
}

// RiskScore is the aggregate exposure of one entity across all active
// regulations of its tenant. Upserts are keyed on (tenant, entity).
type RiskScore struct {
	TenantID      string             `json:"tenantId"`
	Entity        NodeRef            `json:"entity"`
	BaseScore     float64            `json:"baseScore"`     // total risk / active regulation count
	AdjustedScore float64            `json:"adjustedScore"` // severity-weighted total
	Level         RiskLevel          `json:"level"`
	Factors       map[string]float64 `json:"factors"` // regulation id -> contribution
	CalculatedAt  time.Time          `json:"calculatedAt"`
}

// TimelineComparison is the before/after delta set for one regulation
// against a reference date window.
type TimelineComparison struct {
	RegulationID string        `json:"regulationId"`
	BeforeDate   time.Time     `json:"beforeDate"`
	AfterDate    time.Time     `json:"afterDate"`
	Deltas       []ImpactDelta `json:"deltas"`
	BeforeTotal  float64       `json:"beforeTotal"`
	AfterTotal   float64       `json:"afterTotal"`
}

// ImpactDelta is one entity's movement between the before and after states.
type ImpactDelta struct {
	Entity        NodeRef `json:"entity"`
	DisplayName   string  `json:"displayName,omitempty"`
	Before        float64 `json:"before"`
	After         float64 `json:"after"`
	Delta         float64 `json:"delta"`
	PercentChange float64 `json:"percentChange"`
}
