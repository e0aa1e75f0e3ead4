// Package exporters serves scanner metrics over HTTP and SSE.
package exporters

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/version"
)

var buildInfoOnce sync.Once

// HTTPHandler serves the default registry, including scannode_build_info.
// Collector errors are logged and the remaining metrics are still served.
func HTTPHandler() http.Handler {
	buildInfoOnce.Do(registerBuildInfo)

	errorLog := slog.NewLogLogger(logging.GetLogger("metrics").Handler(), slog.LevelWarn)
	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:      errorLog,
			ErrorHandling: promhttp.ContinueOnError,
		}))
}

func registerBuildInfo() {
	info := version.Get()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scannode",
		Name:      "build_info",
		Help:      "Always 1; labels carry the build metadata",
		ConstLabels: prometheus.Labels{
			"version":    info.Version,
			"commit":     info.GitCommit,
			"go_version": info.GoVersion,
		},
	})
	gauge.Set(1)

	var are prometheus.AlreadyRegisteredError
	if err := prometheus.Register(gauge); err != nil && !errors.As(err, &are) {
		logging.GetLogger("metrics").Warn("Failed to register build info", "error", err)
	}
}
