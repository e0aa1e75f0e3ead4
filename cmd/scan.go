package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/scannode/internal/host"
	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
)

// ErrScanTimeout is returned by RunScan when nothing is found in time.
var ErrScanTimeout = errors.New("no code found before timeout")

// RunScan opens a session on h, scans once and returns the first result.
// It owns h: the loop is started here and stopped before returning.
func RunScan(ctx context.Context, h *host.Host) (scanner.Result, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = h.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-h.Done()
	}()

	if _, err := h.Open(ctx); err != nil {
		return scanner.Result{}, err
	}

	found := make(chan scanner.Result, 1)
	if err := h.Scan(ctx, func(r scanner.Result) {
		select {
		case found <- r:
		default:
		}
	}); err != nil {
		return scanner.Result{}, err
	}

	select {
	case r := <-found:
		return r, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return scanner.Result{}, ErrScanTimeout
		}
		return scanner.Result{}, ctx.Err()
	}
}

// CreateScanCmd creates the scan command.
func CreateScanCmd() *cobra.Command {
	var backend BackendOptions
	var formats, paramsFile, device, logLevel string
	var timeout time.Duration
	var tryHarder bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan once and print the first code found",
		Long: `Opens a capture device with the current parameters, scans until a code is found ` +
			`and prints "Found: <symbology> / <value>". Exits non-zero on timeout.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(c *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: logLevel, Format: "text"})
			logger := logging.GetLogger("main")

			store := params.NewStore(params.WithLogger(logging.GetLogger("params")))
			if paramsFile != "" {
				if err := store.LoadFile(paramsFile); err != nil {
					return err
				}
			}
			if device != "" {
				if err := store.SetDeviceName(device); err != nil {
					return err
				}
			}
			if tryHarder {
				if err := store.SetParserTryHarder(true); err != nil {
					return err
				}
			}

			dev, err := NewDevice(backend)
			if err != nil {
				return err
			}
			dec, err := NewDecoder(formats)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			logger.Debug("Scanning", "backend", backend.Backend, "timeout", timeout)
			hostLogger := logging.GetLogger("host").With("command", "scan")
			result, err := RunScan(ctx, host.New(store, dev, dec, host.WithLogger(hostLogger)))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Found: %s / %s\n", result.Symbology, result.Value)
			return nil
		},
	}

	cmd.Flags().StringVar(&backend.Backend, "backend", BackendWebcam, "Capture backend (webcam, imagefile)")
	cmd.Flags().StringVar(&backend.ImageDir, "image-dir", "", "Image directory for the imagefile backend")
	cmd.Flags().BoolVar(&backend.Mirror, "mirror", false, "Mirror webcam frames")
	cmd.Flags().BoolVar(&backend.KeepSize, "keep-size", false, "Serve images at their original size")
	cmd.Flags().StringVar(&device, "device", "", "Device name, camera index or image path")
	cmd.Flags().StringVar(&formats, "formats", "qr,1d", "Barcode formats to try (qr, datamatrix, 1d)")
	cmd.Flags().StringVar(&paramsFile, "params", "", "Parameters TOML file")
	cmd.Flags().BoolVar(&tryHarder, "try-harder", false, "Spend more time per frame")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "Give up after this long (0 waits forever)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}
