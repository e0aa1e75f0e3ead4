// Package host runs the single goroutine that owns the capture session.
//
// Run ticks the session at the host frame interval. Open, Scan, Stop, Close
// and Status may be called from any goroutine: each is queued as a command
// and executed between ticks, so the session itself is only ever touched by
// the loop.
package host

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
	"github.com/smazurov/scannode/internal/session"
)

var (
	// ErrNoSession is returned by Scan and Stop when no scanner is open.
	ErrNoSession = errors.New("no scanner session")
	// ErrNotRunning is returned when the loop has exited.
	ErrNotRunning = errors.New("host loop not running")
)

// Status is a point-in-time view of the host.
type Status struct {
	Open       bool
	SessionID  string
	State      session.State
	Ready      bool
	Info       scanner.Info
	Settings   scanner.Settings
	Host       scanner.HostSettings
	LastResult *scanner.Result
	Detections uint64
}

type command struct {
	run   func()
	reply chan struct{}
}

// Host owns the store reader side, the collaborators and at most one
// session controller.
type Host struct {
	store      *params.Store
	device     scanner.Device
	decoder    scanner.Decoder
	bus        *events.Bus
	logger     *slog.Logger
	background bool

	commands chan command
	done     chan struct{}

	// loop goroutine only
	ctrl       *session.Controller
	hostCfg    scanner.HostSettings
	ticker     *time.Ticker
	last       *scanner.Result
	detections uint64
}

// Option configures a Host.
type Option func(*Host)

// WithEventBus passes bus to every session.
func WithEventBus(bus *events.Bus) Option {
	return func(h *Host) {
		h.bus = bus
	}
}

// WithBackgroundDecode runs decode attempts off the loop goroutine.
func WithBackgroundDecode(enabled bool) Option {
	return func(h *Host) {
		h.background = enabled
	}
}

// WithLogger overrides the host logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// New creates a host. Call Run to start the loop.
func New(store *params.Store, device scanner.Device, decoder scanner.Decoder, opts ...Option) *Host {
	h := &Host{
		store:    store,
		device:   device,
		decoder:  decoder,
		commands: make(chan command),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.GetLogger("host")
	}
	h.hostCfg = scanner.BuildHostSettings(store.Snapshot())
	return h
}

// Run drives the loop until ctx is done. Any open session is destroyed
// before Run returns.
func (h *Host) Run(ctx context.Context) error {
	defer close(h.done)

	h.ticker = time.NewTicker(h.hostCfg.TickInterval())
	defer h.ticker.Stop()

	h.logger.Info("Host loop started", "host", h.hostCfg.String())
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			h.closeSession()
			h.logger.Info("Host loop stopped")
			return nil

		case cmd := <-h.commands:
			cmd.run()
			close(cmd.reply)

		case now := <-h.ticker.C:
			elapsed := now.Sub(last)
			last = now
			if h.ctrl == nil {
				continue
			}
			if err := h.ctrl.Tick(elapsed); err != nil {
				h.logger.Warn("Tick failed", "error", err)
			}
		}
	}
}

// Done is closed when Run returns.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// do runs fn on the loop goroutine and waits for it.
func (h *Host) do(ctx context.Context, fn func()) error {
	cmd := command{run: fn, reply: make(chan struct{})}
	select {
	case h.commands <- cmd:
	case <-h.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	// Once accepted the command always completes
	<-cmd.reply
	return nil
}

// Open snapshots the parameter store and opens a new session. An existing
// session is destroyed first.
func (h *Host) Open(ctx context.Context) (Status, error) {
	var status Status
	var openErr error
	err := h.do(ctx, func() {
		h.closeSession()
		h.last = nil

		snapshot := h.store.Snapshot()
		opts := []session.Option{session.WithBackgroundDecode(h.background)}
		if h.bus != nil {
			opts = append(opts, session.WithEventBus(h.bus))
		}
		ctrl := session.New(h.device, h.decoder, opts...)
		if openErr = ctrl.Create(snapshot); openErr != nil {
			h.logger.Warn("Failed to open scanner", "error", openErr)
			status = h.status()
			return
		}

		h.ctrl = ctrl
		h.hostCfg = scanner.BuildHostSettings(snapshot)
		h.ticker.Reset(h.hostCfg.TickInterval())
		h.logger.Info("Scanner opened", "session_id", ctrl.ID(), "host", h.hostCfg.String(), "params_version", h.store.Version())
		status = h.status()
	})
	if err != nil {
		return Status{}, err
	}
	return status, openErr
}

// Scan starts scanning. onMatch, which may be nil, runs on the loop
// goroutine and must not block.
func (h *Host) Scan(ctx context.Context, onMatch session.MatchFunc) error {
	return h.withSession(ctx, func(c *session.Controller) error {
		return c.StartScan(func(result scanner.Result) {
			r := result
			h.last = &r
			h.detections++
			h.logger.Info("Code detected", "symbology", r.Symbology, "value", r.Value)
			if onMatch != nil {
				onMatch(result)
			}
		})
	})
}

// Stop stops scanning; the camera keeps playing.
func (h *Host) Stop(ctx context.Context) error {
	return h.withSession(ctx, func(c *session.Controller) error {
		return c.Stop()
	})
}

// Close destroys the session and releases the device. Closing without a
// session is a no-op.
func (h *Host) Close(ctx context.Context) error {
	var closeErr error
	err := h.do(ctx, func() {
		closeErr = h.closeSession()
	})
	if err != nil {
		return err
	}
	return closeErr
}

// Status reports the current session.
func (h *Host) Status(ctx context.Context) (Status, error) {
	var status Status
	err := h.do(ctx, func() {
		status = h.status()
	})
	return status, err
}

func (h *Host) withSession(ctx context.Context, fn func(*session.Controller) error) error {
	var opErr error
	err := h.do(ctx, func() {
		if h.ctrl == nil {
			opErr = ErrNoSession
			return
		}
		opErr = fn(h.ctrl)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (h *Host) closeSession() error {
	if h.ctrl == nil {
		return nil
	}
	ctrl := h.ctrl
	h.ctrl = nil
	err := ctrl.Destroy()
	if err != nil {
		h.logger.Warn("Scanner closed with error", "session_id", ctrl.ID(), "error", err)
	} else {
		h.logger.Info("Scanner closed", "session_id", ctrl.ID())
	}
	return err
}

func (h *Host) status() Status {
	s := Status{
		Host:       h.hostCfg,
		LastResult: h.last,
		Detections: h.detections,
		State:      session.StateIdle,
	}
	if h.ctrl == nil {
		return s
	}
	s.Open = true
	s.SessionID = h.ctrl.ID()
	s.State = h.ctrl.State()
	s.Settings = h.ctrl.Settings()
	s.Info, s.Ready = h.ctrl.Info()
	return s
}
