package led

import (
	"log/slog"
	"sync"
)

// noop stands in on boards without controllable LEDs. It remembers the last
// request per LED so repeated scanner transitions only log on change.
type noop struct {
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]ledState
}

type ledState struct {
	enabled bool
	pattern string
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger, last: make(map[string]ledState)}
}

func (n *noop) Set(ledType string, enabled bool, pattern string) error {
	want := ledState{enabled: enabled, pattern: pattern}

	n.mu.Lock()
	prev, seen := n.last[ledType]
	n.last[ledType] = want
	n.mu.Unlock()

	if (!seen || prev != want) && n.logger != nil {
		n.logger.Debug("No LED hardware, ignoring", "led", ledType, "enabled", enabled, "pattern", pattern)
	}
	return nil
}

func (n *noop) Available() []string { return []string{} }

func (n *noop) Patterns() []string { return []string{} }
