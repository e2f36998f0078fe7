package models

import "time"

// SimulationStatus tracks a simulation run through its lifecycle.
type SimulationStatus string

const (
	SimulationPending   SimulationStatus = "Pending"
	SimulationRunning   SimulationStatus = "Running"
	SimulationCompleted SimulationStatus = "Completed"
	SimulationFailed    SimulationStatus = "Failed"
)

// Simulation is a persisted before/after comparison run for one regulation.
// A failed run carries the error message and no partial results.
type Simulation struct {
	ID           string              `json:"id"`
	TenantID     string              `json:"tenantId"`
	RegulationID string              `json:"regulationId"`
	Status       SimulationStatus    `json:"status"`
	BeforeDate   time.Time           `json:"beforeDate"`
	AfterDate    time.Time           `json:"afterDate"`
	Error        string              `json:"error,omitempty"`
	Result       *TimelineComparison `json:"result,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	StartedAt    *time.Time          `json:"startedAt,omitempty"`
	FinishedAt   *time.Time          `json:"finishedAt,omitempty"`
}
