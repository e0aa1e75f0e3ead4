// Package logging hands out one slog.Logger per module ("session", "host",
// "nats", ...) with a level that can be set per module in the
// config file or changed at runtime through PATCH /api/logs/levels.
//
//	logging.Initialize(logging.Config{Level: "info", Modules: map[string]string{"session": "debug"}})
//	logger := logging.GetLogger("session").With("session_id", id)
//	logger.Info("Capture ready", "width", 1280, "height", 720)
//
// Records go to every available sink:
//
//   - stdout, as text or JSON, when it is a terminal, pipe or file
//   - the systemd journal when its socket exists, with attributes as
//     upper-case fields (journalctl -t scannode SESSION_ID=6f1c2c1e)
//   - a ring buffer of recent entries, numbered so /api/logs/stream can
//     replay history and then follow without repeating lines
//
// Loggers obtained before Initialize keep working and pick up the configured
// outputs once it runs.
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	session = "debug"
//	http = "warn"
package logging
