package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes scanner metrics for SSE clients.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	s.eventBus.Publish(Snapshot())
}

// Snapshot formats the current scanner counters as a metrics event.
func Snapshot() events.ScannerMetricsEvent {
	m := metrics.GetScannerMetrics()
	state := m.State
	if state == "" {
		state = "idle"
	}
	return events.ScannerMetricsEvent{
		State:          state,
		DecodeAttempts: strconv.FormatUint(m.DecodeAttempts, 10),
		Detections:     strconv.FormatUint(m.Detections, 10),
		LastDecodeMs:   strconv.FormatFloat(float64(m.LastDecode)/float64(time.Millisecond), 'f', 2, 64),
	}
}
