package logging

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalHandler sends records to the systemd journal as structured fields:
// group path and key joined by "_" and upper-cased, so
// logger.WithGroup("frame").Info("Tick", "seq", 3) sets FRAME_SEQ=3.
type JournalHandler struct {
	level      slog.Leveler
	identifier string
	state      handlerState
}

func NewJournalHandler(level slog.Leveler, identifier string) *JournalHandler {
	return &JournalHandler{level: level, identifier: identifier}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	return journal.Send(r.Message, priority(r.Level), journalFields(r, h.identifier, h.state))
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JournalHandler{level: h.level, identifier: h.identifier, state: h.state.withAttrs(attrs)}
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{level: h.level, identifier: h.identifier, state: h.state.withGroup(name)}
}

func journalFields(r slog.Record, identifier string, state handlerState) map[string]string {
	fields := map[string]string{
		"SYSLOG_IDENTIFIER": identifier,
		"MESSAGE":           r.Message,
		"PRIORITY":          strconv.Itoa(int(priority(r.Level))),
	}
	state.walk(r, func(path []string, a slog.Attr) {
		fields[journalKey(attrKey(path, a.Key, "_"))] = journalValue(a.Value)
	})
	return fields
}

// journalKey upper-cases key and replaces anything outside [A-Z0-9_].
func journalKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}

func journalValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	default:
		return v.String()
	}
}

func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// IsJournalAvailable reports whether the journald socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
