// Package simulation wraps the timeline comparison in a persisted run
// record with a Pending -> Running -> Completed/Failed lifecycle and the
// matching observer events.
package simulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/regwave/regwave/internal/logging"
	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/publish"
	"github.com/regwave/regwave/internal/risk"
	"github.com/regwave/regwave/internal/store"
)

// Runner executes simulations. Each run persists its record before any
// work starts, so observers can follow the status even when the comparison
// fails.
type Runner struct {
	store     store.Store
	timeline  *risk.Timeline
	publisher publish.Publisher
	logger    *logging.Logger
}

// NewRunner wires a runner; publisher may be nil.
func NewRunner(st store.Store, timeline *risk.Timeline, publisher publish.Publisher) *Runner {
	return &Runner{
		store:     st,
		timeline:  timeline,
		publisher: publisher,
		logger:    logging.GetLogger("simulation"),
	}
}

// Run executes one before/after simulation for the regulation. On any
// failure the record transitions to Failed with the error message and no
// partial results; the error is returned to the caller either way.
func (r *Runner) Run(ctx context.Context, tenantID, regulationID string, beforeDate, afterDate time.Time) (*models.Simulation, error) {
	sim := &models.Simulation{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		RegulationID: regulationID,
		Status:       models.SimulationPending,
		BeforeDate:   beforeDate,
		AfterDate:    afterDate,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.store.CreateSimulation(ctx, sim); err != nil {
		return nil, models.NewUpstreamError("create simulation", err)
	}

	start := publish.NewEvent(publish.SimulationStart, tenantID)
	start.SimulationID = sim.ID
	start.RegulationID = regulationID
	r.publish(ctx, tenantID, start)

	now := time.Now().UTC()
	sim.Status = models.SimulationRunning
	sim.StartedAt = &now
	if err := r.store.UpdateSimulation(ctx, sim); err != nil {
		return nil, models.NewUpstreamError("update simulation", err)
	}

	comparison, err := r.timeline.CompareImpactWithProgress(ctx, regulationID, beforeDate, afterDate, func(fraction float64) {
		progress := publish.NewEvent(publish.SimulationProgress, tenantID)
		progress.SimulationID = sim.ID
		progress.Progress = fraction
		r.publish(ctx, tenantID, progress)
	})
	if err != nil {
		return r.fail(ctx, sim, err)
	}

	finished := time.Now().UTC()
	sim.Status = models.SimulationCompleted
	sim.Result = comparison
	sim.FinishedAt = &finished
	if err := r.store.UpdateSimulation(ctx, sim); err != nil {
		return nil, models.NewUpstreamError("update simulation", err)
	}

	complete := publish.NewEvent(publish.SimulationComplete, tenantID)
	complete.SimulationID = sim.ID
	complete.RegulationID = regulationID
	for _, delta := range comparison.Deltas {
		complete.Affected = append(complete.Affected, delta.Entity)
	}
	r.publish(ctx, tenantID, complete)

	r.logger.InfoWithFields("simulation complete",
		logging.Field("simulation", sim.ID),
		logging.Field("regulation", regulationID),
		logging.Field("deltas", len(comparison.Deltas)),
	)
	return sim, nil
}

// fail transitions the record to Failed, capturing the error message. The
// status update itself is best-effort: the original failure is what the
// caller needs to see.
func (r *Runner) fail(ctx context.Context, sim *models.Simulation, cause error) (*models.Simulation, error) {
	finished := time.Now().UTC()
	sim.Status = models.SimulationFailed
	sim.Error = cause.Error()
	sim.Result = nil
	sim.FinishedAt = &finished
	if err := r.store.UpdateSimulation(ctx, sim); err != nil {
		r.logger.ErrorWithErr("failed to persist simulation failure", err)
	}

	event := publish.NewEvent(publish.SimulationError, sim.TenantID)
	event.SimulationID = sim.ID
	event.RegulationID = sim.RegulationID
	event.Error = cause.Error()
	r.publish(ctx, sim.TenantID, event)

	return sim, cause
}

func (r *Runner) publish(ctx context.Context, tenantID string, event publish.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, tenantID, event); err != nil {
		r.logger.WarnWithFields("event publish failed",
			logging.Field("type", string(event.Type)),
			logging.Field("error", err.Error()),
		)
	}
}
