package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/scannode/cmd"
	"github.com/smazurov/scannode/internal/api"
	"github.com/smazurov/scannode/internal/config"
	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/host"
	"github.com/smazurov/scannode/internal/led"
	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/metrics/collectors"
	"github.com/smazurov/scannode/internal/metrics/exporters"
	scannats "github.com/smazurov/scannode/internal/nats"
	"github.com/smazurov/scannode/internal/params"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Scanner settings
	ScannerBackend          string `help:"Capture backend (webcam, imagefile)" default:"webcam" toml:"scanner.backend" env:"SCANNER_BACKEND"`
	ScannerImageDir         string `help:"Image directory for the imagefile backend" default:"" toml:"scanner.image_dir" env:"SCANNER_IMAGE_DIR"`
	ScannerMirror           bool   `help:"Mirror webcam frames" default:"false" toml:"scanner.mirror" env:"SCANNER_MIRROR"`
	ScannerFormats          string `help:"Barcode formats to try (qr, datamatrix, 1d)" default:"qr,1d" toml:"scanner.formats" env:"SCANNER_FORMATS"`
	ScannerParametersFile   string `help:"Capture parameters TOML file, watched for changes" default:"" toml:"scanner.parameters_file" env:"SCANNER_PARAMETERS_FILE"`
	ScannerBackgroundDecode bool   `help:"Decode off the host loop" default:"false" toml:"scanner.background_decode" env:"SCANNER_BACKGROUND_DECODE"`
	ScannerAutoOpen         bool   `help:"Open the scanner at startup" default:"false" toml:"scanner.auto_open" env:"SCANNER_AUTO_OPEN"`

	// Metrics settings
	MetricsPrometheusEnabled bool `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSEEnabled        bool `help:"Publish periodic metrics on /api/metrics" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesLEDControl bool   `help:"Enable LED control" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`
	FeaturesLEDName    string `help:"sysfs LED name, overrides board detection" default:"" toml:"features.led_sysfs_name" env:"FEATURES_LED_NAME"`

	// NATS settings
	NatsEnabled bool   `help:"Mirror scanner events to NATS and serve control requests" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`
	NatsURL     string `help:"NATS server URL; empty runs an embedded server" default:"" toml:"nats.url" env:"NATS_URL"`
	NatsPort    int    `help:"Port for the embedded NATS server" default:"4222" toml:"nats.port" env:"NATS_PORT"`
	NatsNode    string `help:"Node name used in subjects, defaults to the hostname" default:"" toml:"nats.node" env:"NATS_NODE"`

	// Logging settings; per-module levels come from [logging.modules]
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically; flags set on the command line win
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := config.LoadLoggingConfig(opts.Config)
		loggingConfig.Level = opts.LoggingLevel
		loggingConfig.Format = opts.LoggingFormat
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		store := params.NewStore(params.WithLogger(logging.GetLogger("params")))
		var paramsWatcher *config.Watcher[params.Patch]
		if opts.ScannerParametersFile != "" {
			if loadErr := store.LoadFile(opts.ScannerParametersFile); loadErr != nil {
				logger.Warn("Failed to load parameters file, using defaults", "path", opts.ScannerParametersFile, "error", loadErr)
			}
			paramsWatcher = config.WatchParameters(opts.ScannerParametersFile, store, eventBus, logging.GetLogger("config"))
		}

		device, err := cmd.NewDevice(cmd.BackendOptions{
			Backend:  opts.ScannerBackend,
			ImageDir: opts.ScannerImageDir,
			Mirror:   opts.ScannerMirror,
		})
		if err != nil {
			logger.Error("Invalid scanner backend", "error", err)
			os.Exit(1)
		}
		decoder, err := cmd.NewDecoder(opts.ScannerFormats)
		if err != nil {
			logger.Error("Invalid scanner formats", "error", err)
			os.Exit(1)
		}

		scanHost := host.New(store, device, decoder,
			host.WithEventBus(eventBus),
			host.WithBackgroundDecode(opts.ScannerBackgroundDecode),
		)

		var natsServer *scannats.Server
		var natsBridge *scannats.Bridge
		if opts.NatsEnabled {
			natsURL := opts.NatsURL
			if natsURL == "" {
				natsServer = scannats.NewServer(scannats.ServerOptions{Port: opts.NatsPort, Logger: logging.GetLogger("nats")})
				natsURL = natsServer.ClientURL()
			}
			node := opts.NatsNode
			if node == "" {
				node, _ = os.Hostname()
			}
			natsBridge = scannats.NewBridge(scannats.BridgeOptions{
				URL:    natsURL,
				Node:   node,
				Bus:    eventBus,
				Host:   scanHost,
				Logger: logging.GetLogger("nats"),
			})
		}

		// Metrics: the collector feeds Prometheus and the SSE summary
		metricsCollector := collectors.NewEventCollector(eventBus)
		var sseExporter *exporters.SSEExporter
		if opts.MetricsSSEEnabled {
			sseExporter = exporters.NewSSEExporter(eventBus)
		}

		// Initialize LED control if enabled
		var ledManager *led.Manager
		var ledController led.Controller
		if opts.FeaturesLEDControl {
			logger.Info("LED control enabled, initializing")
			ledController = led.New(logging.GetLogger("led"), opts.FeaturesLEDName)
			ledManager = led.NewManager(ledController, eventBus, "", logging.GetLogger("led"))
		}

		apiOpts := &api.Options{
			AuthUsername:  opts.AuthUsername,
			AuthPassword:  opts.AuthPassword,
			CORSOrigin:    opts.CORSOrigin,
			Store:         store,
			Host:          scanHost,
			EventBus:      eventBus,
			LEDController: ledController,
		}
		if ledManager != nil {
			apiOpts.LEDIndicator = ledManager
		}
		if opts.MetricsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}

		server := api.NewServer(apiOpts)

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			go func() {
				if runErr := scanHost.Run(ctx); runErr != nil {
					logger.Error("Scanner host stopped", "error", runErr)
				}
			}()

			if startErr := metricsCollector.Start(ctx); startErr != nil {
				logger.Warn("Failed to start metrics collector", "error", startErr)
			}
			if sseExporter != nil {
				sseExporter.Start(ctx)
			}
			if paramsWatcher != nil {
				if startErr := paramsWatcher.Start(); startErr != nil {
					logger.Warn("Failed to watch parameters file", "path", opts.ScannerParametersFile, "error", startErr)
				}
			}
			if ledManager != nil {
				ledManager.Start()
			}

			if natsServer != nil {
				if startErr := natsServer.Start(); startErr != nil {
					logger.Error("Failed to start embedded NATS server", "error", startErr)
				}
			}
			if natsBridge != nil {
				if startErr := natsBridge.Start(); startErr != nil {
					logger.Warn("Failed to start NATS bridge", "error", startErr)
				} else {
					logger.Info("NATS bridge ready", "node", natsBridge.Node())
				}
			}

			if opts.ScannerAutoOpen {
				if _, openErr := scanHost.Open(ctx); openErr != nil {
					logger.Warn("Failed to open scanner at startup", "error", openErr)
				}
			}

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("systemd notify failed", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if natsBridge != nil {
				natsBridge.Stop()
			}
			if natsServer != nil {
				natsServer.Stop()
			}

			// Stopping the loop destroys the session and releases the camera
			cancel()
			select {
			case <-scanHost.Done():
			case <-time.After(5 * time.Second):
				logger.Warn("Timed out waiting for scanner host")
			}

			if paramsWatcher != nil {
				if stopErr := paramsWatcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping parameters watcher", "error", stopErr)
				}
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}
			if stopErr := metricsCollector.Stop(); stopErr != nil {
				logger.Warn("Error stopping metrics collector", "error", stopErr)
			}
			if ledManager != nil {
				ledManager.Stop()
			}
		})
	})

	cli.Root().Use = "scannode"
	cli.Root().Short = "Camera barcode scanner node"

	cli.Root().AddCommand(cmd.CreateScanCmd())
	cli.Root().AddCommand(cmd.CreateDecodeCmd())
	cli.Root().AddCommand(cmd.CreateParamsCmd())

	// Run the CLI
	cli.Run()
}
