// Package metrics provides Prometheus metrics for the scanner session.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scannode"

// Decode attempt outcomes used as the result label.
const (
	ResultFound     = "found"
	ResultMiss      = "miss"
	ResultDiscarded = "discarded"
)

var (
	decodeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "attempts_total",
		Help:      "Decode attempts by outcome",
	}, []string{"result"})

	decodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "duration_seconds",
		Help:      "Time spent in the decoder per attempt",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"mode"})

	detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "detections_total",
		Help:      "Codes detected by symbology",
	}, []string{"symbology"})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "state",
		Help:      "1 for the current capture session state",
	}, []string{"state"})

	sessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "opened_total",
		Help:      "Capture sessions that reached playing",
	})

	sessionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "errors_total",
		Help:      "Failed session operations by error code",
	}, []string{"operation", "code"})

	parameterChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "parameters",
		Name:      "changes_total",
		Help:      "Accepted parameter store writes by source",
	}, []string{"source"})

	parametersVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "parameters",
		Name:      "version",
		Help:      "Current parameter store version",
	})

	// Local cache for SSE exporter access.
	cache   ScannerMetrics
	cacheMu sync.RWMutex
)

// ScannerMetrics holds the values published to SSE clients.
type ScannerMetrics struct {
	State          string
	DecodeAttempts uint64
	Detections     uint64
	LastDecode     time.Duration
}

var droppedSource atomic.Pointer[func() uint64]

var eventsDropped = promauto.NewCounterFunc(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "dropped_total",
	Help:      "Bus events dropped because a stream consumer fell behind",
}, func() float64 {
	if fn := droppedSource.Load(); fn != nil {
		return float64((*fn)())
	}
	return 0
})

// SetDroppedEventsSource makes events_dropped_total read from fn.
func SetDroppedEventsSource(fn func() uint64) {
	droppedSource.Store(&fn)
}

// RecordDecode counts one decoder call.
func RecordDecode(found, background, discarded bool, d time.Duration) {
	result := ResultMiss
	switch {
	case discarded:
		result = ResultDiscarded
	case found:
		result = ResultFound
	}
	mode := "inline"
	if background {
		mode = "background"
	}
	decodeAttempts.WithLabelValues(result).Inc()
	decodeDuration.WithLabelValues(mode).Observe(d.Seconds())

	cacheMu.Lock()
	cache.DecodeAttempts++
	cache.LastDecode = d
	cacheMu.Unlock()
}

// RecordDetection counts a decoded code.
func RecordDetection(symbology string) {
	detections.WithLabelValues(symbology).Inc()

	cacheMu.Lock()
	cache.Detections++
	cacheMu.Unlock()
}

// SetSessionState marks state as current. Entering playing from idle counts
// as an opened session.
func SetSessionState(state, previous string) {
	sessionState.Reset()
	sessionState.WithLabelValues(state).Set(1)
	if state == "playing" && previous == "idle" {
		sessionsOpened.Inc()
	}

	cacheMu.Lock()
	cache.State = state
	cacheMu.Unlock()
}

// RecordSessionError counts a failed session operation.
func RecordSessionError(operation, code string) {
	sessionErrors.WithLabelValues(operation, code).Inc()
}

// RecordParametersChange counts an accepted store write.
func RecordParametersChange(source string, version uint64) {
	parameterChanges.WithLabelValues(source).Inc()
	parametersVersion.Set(float64(version))
}

// GetScannerMetrics returns a copy of the cached values.
func GetScannerMetrics() ScannerMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	return cache
}
