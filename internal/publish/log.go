package publish

import (
	"context"

	"github.com/regwave/regwave/internal/logging"
)

// LogPublisher writes events to the structured log. It is the default
// delivery target when no transport is configured.
type LogPublisher struct {
	logger *logging.Logger
}

// NewLogPublisher returns a publisher logging at INFO.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: logging.GetLogger("publish.log")}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, tenantID string, event Event) error {
	fields := []logging.LogField{
		logging.Field("type", string(event.Type)),
		logging.Field("tenant", tenantID),
	}
	if event.RegulationID != "" {
		fields = append(fields, logging.Field("regulation", event.RegulationID))
	}
	if event.Progress > 0 {
		fields = append(fields, logging.Field("progress", event.Progress))
	}
	if len(event.Affected) > 0 {
		fields = append(fields, logging.Field("affected", len(event.Affected)))
	}
	if event.Error != "" {
		fields = append(fields, logging.Field("error", event.Error))
	}
	p.logger.InfoWithFields("event", fields...)
	return nil
}
