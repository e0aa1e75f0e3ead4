// Package collectors feeds the scanner metrics.
package collectors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/metrics"
)

// EventSubscriber is the subscribe side of the event bus.
type EventSubscriber interface {
	Subscribe(handler any) func()
}

// EventCollector translates bus events into metrics.
type EventCollector struct {
	bus    EventSubscriber
	logger *slog.Logger
	mu     sync.Mutex
	unsubs []func()
}

// NewEventCollector creates a collector for bus.
func NewEventCollector(bus EventSubscriber) *EventCollector {
	return &EventCollector{
		bus:    bus,
		logger: logging.GetLogger("metrics"),
	}
}

// Start subscribes to the bus. The collector stops when ctx is done or Stop
// is called.
func (c *EventCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubs != nil {
		return nil
	}

	c.unsubs = []func(){
		c.bus.Subscribe(func(e events.DecodeAttemptedEvent) {
			metrics.RecordDecode(e.Found, e.Background, e.Discarded, time.Duration(e.Seconds*float64(time.Second)))
		}),
		c.bus.Subscribe(func(e events.CodeDetectedEvent) {
			metrics.RecordDetection(e.Symbology)
		}),
		c.bus.Subscribe(func(e events.SessionStateChangedEvent) {
			metrics.SetSessionState(e.State, e.PreviousState)
		}),
		c.bus.Subscribe(func(e events.SessionErrorEvent) {
			metrics.RecordSessionError(e.Operation, e.Code)
		}),
		c.bus.Subscribe(func(e events.ParametersChangedEvent) {
			metrics.RecordParametersChange(e.Source, e.Version)
		}),
	}
	if d, ok := c.bus.(interface{ Dropped() uint64 }); ok {
		metrics.SetDroppedEventsSource(d.Dropped)
	}
	c.logger.Info("Collecting scanner metrics from event bus")

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

// Stop unsubscribes from the bus. Safe to call more than once.
func (c *EventCollector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
	return nil
}
