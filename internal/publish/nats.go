package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/regwave/regwave/internal/logging"
)

// SubjectPrefix roots every event subject; the tenant id is the final
// token, so observers subscribe to "regwave.events.<tenant>" or the
// wildcard "regwave.events.>".
const SubjectPrefix = "regwave.events"

// NATSPublisher delivers events as JSON messages on a per-tenant subject.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *logging.Logger
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("regwave"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	logger := logging.GetLogger("publish.nats")
	logger.Info("connected to nats at %s", conn.ConnectedUrl())
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Publish sends the event on the tenant's subject.
func (p *NATSPublisher) Publish(ctx context.Context, tenantID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := SubjectPrefix + "." + tenantID
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.ErrorWithErr("nats drain failed", err)
	}
}
