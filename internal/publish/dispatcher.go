package publish

import (
	"context"
	"sync"

	"github.com/regwave/regwave/internal/logging"
	"github.com/regwave/regwave/internal/metrics"
)

// DefaultQueueSize bounds the dispatcher backlog when no size is
// configured.
const DefaultQueueSize = 1024

// Dispatcher buffers events and delivers them from a single worker
// goroutine, so the engines never block on observer transports. When the
// queue is full the event is dropped with a warning; delivery errors are
// logged and swallowed.
type Dispatcher struct {
	queue     chan Event
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *logging.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewDispatcher wires a dispatcher over the delivery publisher. A nil or
// non-positive queueSize selects the default; metrics may be nil.
func NewDispatcher(publisher Publisher, queueSize int, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queue:     make(chan Event, queueSize),
		publisher: publisher,
		metrics:   m,
		logger:    logging.GetLogger("publish.dispatcher"),
		done:      make(chan struct{}),
	}
}

// Publish enqueues the event without blocking. Implements Publisher so the
// engines stay agnostic of the decoupling. A full queue drops the event.
func (d *Dispatcher) Publish(ctx context.Context, tenantID string, event Event) error {
	event.TenantID = tenantID
	select {
	case d.queue <- event:
		if d.metrics != nil {
			d.metrics.QueueDepth.Set(float64(len(d.queue)))
		}
		return nil
	default:
		d.logger.WarnWithFields("event queue full, dropping event",
			logging.Field("type", string(event.Type)),
			logging.Field("tenant", tenantID),
		)
		if d.metrics != nil {
			d.metrics.EventsDropped.Inc()
		}
		return nil
	}
}

// Start launches the delivery worker. Implements lifecycle.Component.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.startOnce.Do(func() {
		go d.deliverLoop()
	})
	d.logger.Info("dispatcher started with queue capacity %d", cap(d.queue))
	return nil
}

// Stop closes the queue and waits for the worker to drain it.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	select {
	case <-d.done:
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out with %d events queued", len(d.queue))
		return ctx.Err()
	}
	d.logger.Info("dispatcher stopped")
	return nil
}

// Name identifies the dispatcher to the lifecycle manager.
func (d *Dispatcher) Name() string {
	return "event-dispatcher"
}

// QueueDepth reports the current backlog.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

func (d *Dispatcher) deliverLoop() {
	defer close(d.done)

	for event := range d.queue {
		if d.metrics != nil {
			d.metrics.QueueDepth.Set(float64(len(d.queue)))
		}
		if d.publisher == nil {
			continue
		}
		if err := d.publisher.Publish(context.Background(), event.TenantID, event); err != nil {
			d.logger.ErrorWithErr("event delivery failed", err)
			continue
		}
		if d.metrics != nil {
			d.metrics.EventsPublished.Inc()
		}
	}
}
