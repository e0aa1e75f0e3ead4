package session

import "sync"

// Signal delivers values to registered handlers synchronously, in
// subscription order, on the goroutine that emits.
type Signal[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers []signalHandler[T]
}

type signalHandler[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.handlers = append(s.handlers, signalHandler[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, h := range s.handlers {
			if h.id == id {
				s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
				return
			}
		}
	}
}

func (s *Signal[T]) emit(v T) {
	s.mu.Lock()
	handlers := make([]signalHandler[T], len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		h.fn(v)
	}
}
