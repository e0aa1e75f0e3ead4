package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/logging"
)

// LogsRequest selects recent log entries.
type LogsRequest struct {
	Limit  int    `query:"limit" minimum:"0" default:"0" doc:"Return only the newest entries; 0 returns the whole buffer"`
	Module string `query:"module" doc:"Only entries from this module"`
	Format string `query:"format" enum:"json,text" default:"json" doc:"text adds one formatted line per entry"`
}

// LogsResponse lists buffered log entries, oldest first.
type LogsResponse struct {
	Body struct {
		Entries []events.LogEntryEvent `json:"entries" doc:"Buffered log entries, oldest first"`
		Lines   []string               `json:"lines,omitempty" doc:"Entries rendered as text lines when format=text"`
	}
}

// LogLevelsResponse lists per-module log levels.
type LogLevelsResponse struct {
	Body struct {
		Levels map[string]string `json:"levels" doc:"Log level by module"`
	}
}

// LogLevelRequest changes one module's log level.
type LogLevelRequest struct {
	Body struct {
		Module string `json:"module" example:"session" doc:"Logger module"`
		Level  string `json:"level" example:"debug" enum:"debug,info,warn,error" doc:"New level"`
	}
}

func toLogEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}

func bufferedLogs(module string, limit int) []logging.LogEntry {
	if buffer := logging.GetBuffer(); buffer != nil {
		return buffer.Query(module, limit)
	}
	return nil
}

// registerLogRoutes registers the log buffer, level and streaming endpoints.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Get recent log entries from the in-memory ring buffer",
		Tags:        []string{"logs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *LogsRequest) (*LogsResponse, error) {
		resp := &LogsResponse{}
		resp.Body.Entries = []events.LogEntryEvent{}
		for _, entry := range bufferedLogs(input.Module, input.Limit) {
			resp.Body.Entries = append(resp.Body.Entries, toLogEvent(entry))
			if input.Format == "text" {
				resp.Body.Lines = append(resp.Body.Lines, logging.FormatLogLine(entry))
			}
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-log-levels",
		Method:      http.MethodGet,
		Path:        "/api/logs/levels",
		Summary:     "Log Levels",
		Description: "Get the current log level of every module",
		Tags:        []string{"logs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*LogLevelsResponse, error) {
		resp := &LogLevelsResponse{}
		resp.Body.Levels = logging.ModuleLevels()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPatch,
		Path:        "/api/logs/levels",
		Summary:     "Set Log Level",
		Description: "Change one module's log level until restart",
		Tags:        []string{"logs"},
		Errors:      []int{401, 422},
		Security:    withAuth(),
	}, func(ctx context.Context, input *LogLevelRequest) (*LogLevelsResponse, error) {
		if err := logging.SetModuleLevel(input.Body.Module, input.Body.Level); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		s.logger.Info("Log level changed", "target", input.Body.Module, "level", input.Body.Level)
		resp := &LogLevelsResponse{}
		resp.Body.Levels = logging.ModuleLevels()
		return resp, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before the replay so nothing falls between the two
		eventCh := make(chan any, 100)
		if s.options.EventBus != nil {
			unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.options.EventBus, eventCh)
			defer unsubscribe()
		}

		var replayed uint64
		for _, entry := range bufferedLogs("", 0) {
			if err := send.Data(toLogEvent(entry)); err != nil {
				return
			}
			replayed = entry.Seq
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				// Entries logged between subscribe and replay arrive twice.
				if e, ok := event.(events.LogEntryEvent); ok && e.Seq != 0 && e.Seq <= replayed {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
