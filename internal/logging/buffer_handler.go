package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// LogCallback is called when a new log entry is written.
// Used to publish log events without creating import cycles.
type LogCallback func(entry LogEntry)

// BufferHandler writes records to the package ring buffer and passes them to
// the log callback. Both are looked up per record, so loggers created before
// Initialize start buffering once it runs.
type BufferHandler struct {
	level slog.Leveler
	state handlerState
}

func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level}
}

func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	mutex.RLock()
	buffer, callback := logBuffer, logCallback
	mutex.RUnlock()
	if buffer == nil {
		return nil
	}

	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelToString(r.Level),
		Module:     "app",
		Message:    r.Message,
		Attributes: make(map[string]any),
	}
	h.state.walk(r, func(path []string, a slog.Attr) {
		if a.Key == "module" && len(path) == 0 {
			entry.Module = a.Value.String()
			return
		}
		entry.Attributes[attrKey(path, a.Key, ".")] = plainValue(a.Value)
	})

	entry = buffer.Write(entry)
	if callback != nil {
		callback(entry)
	}
	return nil
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{level: h.level, state: h.state.withAttrs(attrs)}
}

func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &BufferHandler{level: h.level, state: h.state.withGroup(name)}
}

// levelToString converts slog.Level to a lowercase string.
func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// FormatLogLine renders an entry as one text line for the logs API:
//
//	2025-01-09T10:30:00Z [INFO] [session] Capture ready height=720 width=1280
//
// Attributes are sorted by key; values with spaces or quotes are quoted.
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		entry.Timestamp.Format(time.RFC3339Nano),
		strings.ToUpper(entry.Level),
		entry.Module,
		entry.Message)
	for _, k := range slices.Sorted(maps.Keys(entry.Attributes)) {
		v := fmt.Sprint(entry.Attributes[k])
		if v == "" || strings.ContainsAny(v, " \t\"=") {
			v = strconv.Quote(v)
		}
		fmt.Fprintf(&sb, " %s=%s", k, v)
	}
	return sb.String()
}
