package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/scannode/internal/events"
)

// ConnectedEvent is the first message of every event stream.
type ConnectedEvent struct {
	Message   string `json:"message" example:"SSE connection established"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z"`
}

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of session transitions, ready signals, detections, decode attempts, errors and parameter changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":          ConnectedEvent{},
		"session-state":      events.SessionStateChangedEvent{},
		"scanner-ready":      events.ScannerReadyEvent{},
		"code-detected":      events.CodeDetectedEvent{},
		"decode-attempted":   events.DecodeAttemptedEvent{},
		"session-error":      events.SessionErrorEvent{},
		"parameters-changed": events.ParametersChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		bus := s.options.EventBus
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.SessionStateChangedEvent](bus, eventCh),
			events.SubscribeToChannel[events.ScannerReadyEvent](bus, eventCh),
			events.SubscribeToChannel[events.CodeDetectedEvent](bus, eventCh),
			events.SubscribeToChannel[events.DecodeAttemptedEvent](bus, eventCh),
			events.SubscribeToChannel[events.SessionErrorEvent](bus, eventCh),
			events.SubscribeToChannel[events.ParametersChangedEvent](bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if err := send.Data(ConnectedEvent{
			Message:   "SSE connection established",
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
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
