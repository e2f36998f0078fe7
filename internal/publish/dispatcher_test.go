package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// capturePublisher records delivered events and can simulate slow or
// failing transports.
type capturePublisher struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
	fail   bool
}

func (p *capturePublisher) Publish(ctx context.Context, tenantID string, event Event) error {
	if p.block != nil {
		<-p.block
	}
	if p.fail {
		return errors.New("transport down")
	}
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) delivered() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := &capturePublisher{}
	d := NewDispatcher(sink, 8, nil)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_ = d.Publish(ctx, "t1", NewEvent(RecalculationStart, "t1"))
	_ = d.Publish(ctx, "t1", NewEvent(RecalculationComplete, "t1"))

	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	got := sink.delivered()
	if len(got) != 2 {
		t.Fatalf("delivered = %d events, want 2", len(got))
	}
	if got[0].Type != RecalculationStart || got[1].Type != RecalculationComplete {
		t.Errorf("order = %s, %s", got[0].Type, got[1].Type)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &capturePublisher{block: make(chan struct{})}
	d := NewDispatcher(sink, 1, nil)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The worker blocks on the first event; the queue holds one more; the
	// rest must be dropped without blocking the caller.
	for i := 0; i < 5; i++ {
		done := make(chan struct{})
		go func() {
			_ = d.Publish(ctx, "t1", NewEvent(ImpactUpdate, "t1"))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Publish must never block")
		}
	}

	close(sink.block)
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := len(sink.delivered()); got > 2 {
		t.Errorf("delivered = %d events, want at most 2 with a full queue", got)
	}
}

func TestDispatcherSwallowsDeliveryErrors(t *testing.T) {
	sink := &capturePublisher{fail: true}
	d := NewDispatcher(sink, 8, nil)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Publish(ctx, "t1", NewEvent(RiskUpdate, "t1")); err != nil {
		t.Fatalf("Publish must swallow transport errors, got %v", err)
	}
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	sink := &capturePublisher{}
	d := NewDispatcher(sink, 16, nil)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		_ = d.Publish(ctx, "t1", NewEvent(ImpactUpdate, "t1"))
	}
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := len(sink.delivered()); got != 10 {
		t.Errorf("delivered = %d events, want all 10 drained on stop", got)
	}
}
