package events

import (
	"sync/atomic"

	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Delivery is asynchronous: handlers run on the dispatcher's goroutines.
type Bus struct {
	dispatcher *event.Dispatcher
	dropped    atomic.Uint64
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(CodeDetectedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic over the concrete type
	switch e := ev.(type) {
	case SessionStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ScannerReadyEvent:
		event.Publish(b.dispatcher, e)
	case CodeDetectedEvent:
		event.Publish(b.dispatcher, e)
	case DecodeAttemptedEvent:
		event.Publish(b.dispatcher, e)
	case SessionErrorEvent:
		event.Publish(b.dispatcher, e)
	case ParametersChangedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case ScannerMetricsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects the event.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e CodeDetectedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SessionStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ScannerReadyEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CodeDetectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DecodeAttemptedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ParametersChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ScannerMetricsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
