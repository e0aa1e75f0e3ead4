package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/metrics/exporters"
)

// registerMetricsRoutes registers the scanner counter stream. New clients get
// the current counters right away instead of waiting for the next tick.
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Scanner Metrics Stream",
		Description: "Session state, decode attempts, detections and last decode time, once per second",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"scanner-metrics": events.ScannerMetricsEvent{},
	}, func(ctx context.Context, input *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)
		unsubscribe := events.SubscribeToChannel[events.ScannerMetricsEvent](s.options.EventBus, eventCh)
		defer unsubscribe()

		if err := send.Data(exporters.Snapshot()); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
