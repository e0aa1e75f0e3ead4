package led

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/smazurov/scannode/internal/events"
)

// Manager drives one indicator LED from capture session events:
//
//	idle, destroyed  off
//	playing, stopped solid
//	scanning         blink
//	code detected    heartbeat until the next transition
//
// Only state events are consumed. The stop that follows a detection carries
// Detected, so the pattern never depends on how two event queues interleave.
type Manager struct {
	controller Controller
	eventBus   *events.Bus
	ledType    string
	unsubs     []func()
	logger     *slog.Logger

	mu    sync.Mutex
	state string
}

// NewManager creates a manager for ledType. An empty ledType picks the first
// LED the controller reports.
func NewManager(controller Controller, eventBus *events.Bus, ledType string, logger *slog.Logger) *Manager {
	if ledType == "" {
		available := controller.Available()
		slices.Sort(available)
		if len(available) > 0 {
			ledType = available[0]
		}
	}
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		ledType:    ledType,
		logger:     logger,
		state:      "idle",
	}
}

// Start subscribes to session events and turns the LED off.
func (m *Manager) Start() {
	m.unsubs = append(m.unsubs,
		m.eventBus.Subscribe(func(e events.SessionStateChangedEvent) {
			m.handleState(e)
		}),
	)
	m.mu.Lock()
	m.apply("idle")
	m.mu.Unlock()
	m.logger.Info("LED manager started", "led", m.ledType)
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil

	m.mu.Lock()
	m.set(false, "")
	m.mu.Unlock()
	m.logger.Info("LED manager stopped")
}

// State returns the last session state seen.
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) handleState(e events.SessionStateChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = e.State

	m.logger.Debug("Session state changed", "state", e.State, "detected", e.Detected)
	if e.State == "stopped" && e.Detected {
		m.set(true, PatternHeartbeat)
		return
	}
	m.apply(e.State)
}

func (m *Manager) apply(state string) {
	switch state {
	case "playing", "stopped":
		m.set(true, PatternSolid)
	case "scanning":
		m.set(true, PatternBlink)
	default:
		m.set(false, "")
	}
}

func (m *Manager) set(enabled bool, pattern string) {
	if m.ledType == "" {
		return
	}
	if err := m.controller.Set(m.ledType, enabled, pattern); err != nil {
		m.logger.Warn("Failed to set LED", "led", m.ledType, "pattern", pattern, "error", err)
	}
}

// LED returns the LED type the manager drives, empty when the board has none.
func (m *Manager) LED() string {
	return m.ledType
}
