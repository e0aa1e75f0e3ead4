package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards events of type T into ch for select-loop
// consumers (SSE handlers, the NATS bridge). Sends never block the
// dispatcher: when ch is full the event is dropped and counted in Dropped.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			bus.dropped.Add(1)
		}
	})
}

// Dropped is the number of events lost to full subscriber channels.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
