package collectors

import (
	"context"
	"testing"
	"time"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/metrics"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestEventCollectorRecordsBusEvents(t *testing.T) {
	bus := events.New()
	c := NewEventCollector(bus)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	before := metrics.GetScannerMetrics()

	bus.Publish(events.SessionStateChangedEvent{State: "scanning", PreviousState: "playing"})
	bus.Publish(events.DecodeAttemptedEvent{Found: true, Seconds: 0.004})
	bus.Publish(events.CodeDetectedEvent{Symbology: "QR_CODE", Value: "x"})

	waitFor(t, "metrics", func() bool {
		m := metrics.GetScannerMetrics()
		return m.State == "scanning" &&
			m.DecodeAttempts == before.DecodeAttempts+1 &&
			m.Detections == before.Detections+1
	})
	if got := metrics.GetScannerMetrics().LastDecode; got != 4*time.Millisecond {
		t.Errorf("LastDecode = %v, want 4ms", got)
	}
}

func TestEventCollectorStop(t *testing.T) {
	bus := events.New()
	c := NewEventCollector(bus)
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	waitFor(t, "unsubscribe", func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.unsubs == nil
	})

	before := metrics.GetScannerMetrics().Detections
	bus.Publish(events.CodeDetectedEvent{Symbology: "QR_CODE"})
	time.Sleep(50 * time.Millisecond)

	if got := metrics.GetScannerMetrics().Detections; got != before {
		t.Errorf("detections changed after stop: %d -> %d", before, got)
	}
	if err := c.Stop(); err != nil {
		t.Errorf("second Stop returned %v", err)
	}
}
