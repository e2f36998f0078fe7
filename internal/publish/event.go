// Package publish carries recalculation and simulation notifications to
// observers. The Dispatcher decouples the engines from delivery: enqueue
// never blocks, and a failed delivery never affects an engine result.
package publish

import (
	"context"
	"time"

	"github.com/regwave/regwave/internal/models"
)

// EventType discriminates the notification payload.
type EventType string

const (
	RecalculationStart    EventType = "RECALCULATION_START"
	RecalculationProgress EventType = "RECALCULATION_PROGRESS"
	RecalculationComplete EventType = "RECALCULATION_COMPLETE"
	RecalculationError    EventType = "RECALCULATION_ERROR"
	ImpactUpdate          EventType = "IMPACT_UPDATE"
	RiskUpdate            EventType = "RISK_UPDATE"
	SimulationStart       EventType = "SIMULATION_START"
	SimulationProgress    EventType = "SIMULATION_PROGRESS"
	SimulationComplete    EventType = "SIMULATION_COMPLETE"
	SimulationError       EventType = "SIMULATION_ERROR"
)

// Event is one tenant-scoped notification. Only the fields the event type
// implies are populated: Affected for completion events, Error for error
// events, Progress for progress events.
type Event struct {
	Type         EventType              `json:"type"`
	TenantID     string                 `json:"tenantId"`
	Timestamp    time.Time              `json:"timestamp"`
	RegulationID string                 `json:"regulationId,omitempty"`
	SimulationID string                 `json:"simulationId,omitempty"`
	Progress     float64                `json:"progress,omitempty"` // fraction in [0,1]
	Error        string                 `json:"error,omitempty"`
	Affected     []models.NodeRef       `json:"affected,omitempty"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
}

// NewEvent stamps a tenant-scoped event of the given type.
func NewEvent(eventType EventType, tenantID string) Event {
	return Event{
		Type:      eventType,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers one event to the observer transport. Delivery is
// best-effort fan-out to the tenant's subscribers.
type Publisher interface {
	Publish(ctx context.Context, tenantID string, event Event) error
}
