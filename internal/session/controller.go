// Package session implements the capture session state machine.
//
// A Controller owns at most one capture handle and moves it through
//
//	idle -> playing -> (scanning <-> stopped) -> destroyed
//
// Every method must be called from one goroutine, normally the host loop.
// Nothing blocks: frames are polled by Tick, which also paces decode
// attempts.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
)

// MatchFunc receives the result of a successful scan.
type MatchFunc func(result scanner.Result)

type decodeResult struct {
	gen      uint64
	result   scanner.Result
	found    bool
	duration time.Duration
}

// Controller drives a single capture session.
type Controller struct {
	id         string
	device     scanner.Device
	decoder    scanner.Decoder
	bus        *events.Bus
	logger     *slog.Logger
	background bool

	state    State
	handle   scanner.Handle
	settings scanner.Settings
	info     scanner.Info

	ready       bool
	readyTicks  int
	sinceDecode time.Duration
	frame       scanner.Frame
	fresh       bool // frame not yet handed to the decoder

	onMatch  MatchFunc
	scanGen  uint64
	inflight bool
	results  chan decodeResult

	readySignal  Signal[scanner.Info]
	statusSignal Signal[State]
}

// Option configures a Controller.
type Option func(*Controller)

// WithEventBus mirrors signals, detections and decode attempts on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(c *Controller) {
		c.bus = bus
	}
}

// WithBackgroundDecode runs decode attempts on their own goroutine. At most
// one attempt is in flight; its result is applied on a later Tick.
func WithBackgroundDecode(enabled bool) Option {
	return func(c *Controller) {
		c.background = enabled
	}
}

// WithLogger overrides the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithID sets the session identifier. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(c *Controller) {
		c.id = id
	}
}

// New creates an idle controller.
func New(device scanner.Device, decoder scanner.Decoder, opts ...Option) *Controller {
	c := &Controller{
		device:  device,
		decoder: decoder,
		state:   StateIdle,
		results: make(chan decodeResult, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.logger == nil {
		c.logger = logging.GetLogger("session")
	}
	c.logger = c.logger.With("session_id", c.id)
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Settings returns the settings the handle was opened with.
func (c *Controller) Settings() scanner.Settings { return c.settings }

// Info returns the negotiated handle info once the session is ready.
func (c *Controller) Info() (scanner.Info, bool) { return c.info, c.ready }

// Ready fires once, with the handle info, when the first frame arrives.
func (c *Controller) Ready() *Signal[scanner.Info] { return &c.readySignal }

// StatusChanged fires on every transition with the new state.
func (c *Controller) StatusChanged() *Signal[State] { return &c.statusSignal }

// Create opens the capture device and starts playback. On failure the
// controller stays idle and any opened handle is released.
func (c *Controller) Create(p params.CaptureParameters) error {
	switch c.state {
	case StateDestroyed:
		return destroyedError("create")
	case StateIdle:
	default:
		return preconditionError("create", c.state)
	}

	settings := scanner.BuildSettings(p)
	c.logger.Debug("Opening capture device",
		"device", settings.DeviceName,
		"width", settings.Width,
		"height", settings.Height,
		"apply_parameters", p.ApplyParameters)

	handle, err := c.device.Open(settings)
	if err != nil {
		return c.fail("open", newError(ErrCodeDeviceUnavailable, "failed to open capture device", err))
	}
	if err := handle.Play(); err != nil {
		if releaseErr := handle.Release(); releaseErr != nil {
			c.logger.Warn("Failed to release handle after play error", "error", releaseErr)
		}
		return c.fail("open", newError(ErrCodeDeviceUnavailable, "failed to start capture", err))
	}

	c.handle = handle
	c.settings = settings
	c.transition(StatePlaying)
	return nil
}

// StartScan begins a one-shot scan. On the first match the session moves to
// stopped, then onMatch is called once.
func (c *Controller) StartScan(onMatch MatchFunc) error {
	switch c.state {
	case StateDestroyed:
		return destroyedError("scan")
	case StatePlaying, StateStopped:
	default:
		return preconditionError("scan", c.state)
	}
	if onMatch == nil {
		return newError(ErrCodePreconditionFailed, "scan requires a callback", nil)
	}

	c.onMatch = onMatch
	c.scanGen++
	c.transition(StateScanning)
	return nil
}

// Stop halts scanning. A pending callback, including one whose decode is
// still in flight, is dropped. Stopping a stopped session does nothing.
func (c *Controller) Stop() error {
	switch c.state {
	case StateDestroyed:
		return destroyedError("stop")
	case StateIdle:
		return preconditionError("stop", c.state)
	case StateStopped:
		return nil
	}

	c.cancelScan()
	c.transition(StateStopped)
	return nil
}

// Tick advances the session by one host frame. elapsed is the time since the
// previous tick.
func (c *Controller) Tick(elapsed time.Duration) error {
	switch c.state {
	case StateDestroyed:
		return destroyedError("tick")
	case StateIdle:
		return nil
	}

	c.collect()
	if c.state == StateDestroyed {
		// the match callback destroyed the session
		return nil
	}

	if frame, ok := c.handle.NextFrame(); ok {
		c.frame = frame
		c.fresh = true
		if !c.ready {
			c.markReady()
			return nil
		}
	}
	if !c.ready {
		return nil
	}

	c.readyTicks++
	c.sinceDecode += elapsed

	if c.state != StateScanning || c.inflight || !c.fresh {
		return nil
	}
	if c.readyTicks <= c.settings.MinDelayFrames || c.sinceDecode < c.settings.DecodeInterval {
		return nil
	}

	c.sinceDecode = 0
	c.fresh = false
	c.decode(c.frame)
	return nil
}

// Destroy releases the handle and makes the controller terminal. Repeated
// calls return nil.
func (c *Controller) Destroy() error {
	if c.state == StateDestroyed {
		return nil
	}

	c.cancelScan()

	var err error
	if c.handle != nil {
		if releaseErr := c.handle.Release(); releaseErr != nil {
			err = fmt.Errorf("failed to release capture handle: %w", releaseErr)
			c.logger.Warn("Release failed", "error", releaseErr)
		}
		c.handle = nil
	}
	c.frame = scanner.Frame{}
	c.fresh = false

	c.transition(StateDestroyed)
	return err
}

func (c *Controller) markReady() {
	c.ready = true
	c.readyTicks = 1
	c.sinceDecode = 0
	c.info = c.handle.Info()

	c.logger.Info("Capture ready",
		"width", c.info.Width,
		"height", c.info.Height,
		"rotation", c.info.Rotation)

	c.readySignal.emit(c.info)
	c.publish(events.ScannerReadyEvent{
		SessionID: c.id,
		Rotation:  c.info.Rotation,
		ScaleX:    c.info.ScaleX,
		ScaleY:    c.info.ScaleY,
		Width:     c.info.Width,
		Height:    c.info.Height,
		Timestamp: now(),
	})
}

func (c *Controller) decode(frame scanner.Frame) {
	hints := scanner.Hints{TryHarder: c.settings.TryHarder}

	if !c.background {
		start := time.Now()
		result, found := c.decoder.Decode(frame, hints)
		c.applyResult(decodeResult{
			gen:      c.scanGen,
			result:   result,
			found:    found,
			duration: time.Since(start),
		})
		return
	}

	c.inflight = true
	gen := c.scanGen
	go func() {
		start := time.Now()
		result, found := c.decoder.Decode(frame, hints)
		// buffered: at most one attempt is in flight
		c.results <- decodeResult{gen: gen, result: result, found: found, duration: time.Since(start)}
	}()
}

// collect applies a finished background decode, if any.
func (c *Controller) collect() {
	select {
	case r := <-c.results:
		c.inflight = false
		c.applyResult(r)
	default:
	}
}

func (c *Controller) applyResult(r decodeResult) {
	current := r.gen == c.scanGen && c.state == StateScanning
	c.publish(events.DecodeAttemptedEvent{
		SessionID:  c.id,
		Found:      r.found,
		Seconds:    r.duration.Seconds(),
		Background: c.background,
		Discarded:  !current,
	})
	if !current {
		if r.found {
			c.logger.Debug("Discarding result of cancelled scan", "value", r.result.Value)
		}
		return
	}
	if !r.found {
		return
	}

	onMatch := c.onMatch
	c.cancelScan()
	c.moveTo(StateStopped, true)

	c.logger.Info("Code detected", "symbology", r.result.Symbology, "value", r.result.Value)
	c.publish(events.CodeDetectedEvent{
		SessionID: c.id,
		Symbology: r.result.Symbology,
		Value:     r.result.Value,
		FrameSeq:  r.result.FrameSeq,
		Timestamp: now(),
	})
	onMatch(r.result)
}

func (c *Controller) cancelScan() {
	c.onMatch = nil
	c.scanGen++
}

func (c *Controller) transition(to State) {
	c.moveTo(to, false)
}

// moveTo changes state; detected marks the stop caused by a match so
// subscribers of state events alone can tell it apart from a manual stop.
func (c *Controller) moveTo(to State, detected bool) {
	from := c.state
	c.state = to
	c.logger.Debug("Session state changed", "from", from, "to", to)

	c.statusSignal.emit(to)
	c.publish(events.SessionStateChangedEvent{
		SessionID:     c.id,
		State:         string(to),
		PreviousState: string(from),
		Detected:      detected,
		Timestamp:     now(),
	})
}

func (c *Controller) fail(op string, err *Error) error {
	c.logger.Warn("Session operation failed", "operation", op, "error", err)
	c.publish(events.SessionErrorEvent{
		SessionID: c.id,
		Operation: op,
		Code:      err.Code,
		Message:   err.Error(),
		Timestamp: now(),
	})
	return err
}

func (c *Controller) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
