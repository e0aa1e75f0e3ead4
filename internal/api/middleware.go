package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/smazurov/scannode/internal/logging"
)

// RequestIDHeader is echoed back, or generated when the client sends none.
const RequestIDHeader = "X-Request-ID"

// quietPaths are polled or long-lived; successful requests log at debug.
var quietPaths = map[string]bool{
	"/api/health":      true,
	"/api/events":      true,
	"/api/metrics":     true,
	"/api/logs/stream": true,
}

// requestLevel picks the log level for a finished request.
func requestLevel(method, path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case method == "OPTIONS", quietPaths[strings.TrimSuffix(path, "/")]:
		return slog.LevelDebug
	case method == "GET":
		// status polling
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// HTTPLoggingMiddleware tags each request with an ID and logs it once done.
// Scanner commands (POST/PATCH/DELETE) log at info, reads at debug.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()

	requestID := ctx.Header(RequestIDHeader)
	if requestID == "" || len(requestID) > 64 {
		requestID = uuid.NewString()
	}
	ctx.SetHeader(RequestIDHeader, requestID)

	next(ctx)

	method, path := ctx.Method(), ctx.URL().Path
	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if q := ctx.URL().RawQuery; q != "" && !strings.Contains(q, "auth=") {
		attrs = append(attrs, slog.String("query", q))
	}

	logging.GetLogger("http").LogAttrs(ctx.Context(), requestLevel(method, path, status), "HTTP request", attrs...)
}
