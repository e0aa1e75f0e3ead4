package config

import (
	"log/slog"
	"time"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/params"
)

// SourceFile marks parameter changes that came from the watched file.
const SourceFile = "file"

// WatchParameters reloads a parameters file into store whenever it changes
// and announces the changed fields on bus. The file replaces the store
// contents: a field removed from the file returns to its default, and values
// set through the API since the last reload are overwritten. A file with an
// invalid field is rejected whole and the store keeps its previous values.
// The caller starts and stops the returned watcher.
func WatchParameters(path string, store *params.Store, bus *events.Bus, logger *slog.Logger, opts ...WatcherOption[params.Patch]) *Watcher[params.Patch] {
	w := NewWatcher(path, params.ReadPatch, logger, opts...)
	w.OnReload(func(patch params.Patch) {
		changed, err := store.Replace(patch)
		if err != nil {
			logger.Warn("Rejected parameters file", "path", path, "error", err)
			return
		}
		fields := make([]string, 0, len(changed))
		for _, f := range changed {
			fields = append(fields, string(f))
		}
		logger.Info("Parameters reloaded", "path", path, "changed", fields, "version", store.Version())
		if bus != nil {
			bus.Publish(events.ParametersChangedEvent{
				Version:   store.Version(),
				Fields:    fields,
				Source:    SourceFile,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}
	})
	return w
}
