package session

import (
	"errors"
	"testing"
	"time"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
	"github.com/smazurov/scannode/internal/scanner/scannertest"
)

func scanParams(interval float64, minDelay int) params.CaptureParameters {
	p := params.Defaults()
	p.DecodeInterval = interval
	p.MinDelayFrames = minDelay
	return p
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *scannertest.Device, *scannertest.Decoder) {
	t.Helper()
	device := scannertest.NewDevice()
	decoder := &scannertest.Decoder{Result: scanner.Result{Symbology: "QR_CODE", Value: "hello"}}
	return New(device, decoder, opts...), device, decoder
}

func mustCreate(t *testing.T, c *Controller, p params.CaptureParameters) {
	t.Helper()
	if err := c.Create(p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func tickN(t *testing.T, c *Controller, n int, elapsed time.Duration) {
	t.Helper()
	for range n {
		if err := c.Tick(elapsed); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
}

func TestCreateThenDestroyReleasesOnce(t *testing.T) {
	c, device, _ := newTestController(t)
	mustCreate(t, c, params.Defaults())

	if c.State() != StatePlaying {
		t.Fatalf("Expected playing after create, got %s", c.State())
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("Second Destroy returned error: %v", err)
	}

	h := device.Last()
	if h.Releases() != 1 {
		t.Errorf("Expected exactly one release, got %d", h.Releases())
	}
	if h.PlayCalls != 1 {
		t.Errorf("Expected one play call, got %d", h.PlayCalls)
	}
	if c.State() != StateDestroyed {
		t.Errorf("Expected destroyed, got %s", c.State())
	}
}

func TestDestroyFromIdle(t *testing.T) {
	c, device, _ := newTestController(t)
	if err := c.Destroy(); err != nil {
		t.Fatal(err)
	}
	if len(device.Opened) != 0 {
		t.Error("Destroy from idle opened a device")
	}
	if c.State() != StateDestroyed {
		t.Errorf("Expected destroyed, got %s", c.State())
	}
}

func TestCreateDeviceUnavailable(t *testing.T) {
	c, device, _ := newTestController(t)
	device.Fail = scannertest.ErrNoDevice

	err := c.Create(params.Defaults())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Expected ErrDeviceUnavailable, got %v", err)
	}
	if !errors.Is(err, scannertest.ErrNoDevice) {
		t.Errorf("Expected cause to be preserved, got %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("Expected idle after failed create, got %s", c.State())
	}
	if len(device.Opened) != 1 {
		t.Errorf("Expected exactly one open attempt, got %d", len(device.Opened))
	}
}

func TestCreatePlayFailureReleasesHandle(t *testing.T) {
	c, device, _ := newTestController(t)
	device.PlayErr = errors.New("stream off")

	err := c.Create(params.Defaults())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Expected ErrDeviceUnavailable, got %v", err)
	}
	if device.Last().Releases() != 1 {
		t.Errorf("Expected handle released after play failure, got %d releases", device.Last().Releases())
	}
	if c.State() != StateIdle {
		t.Errorf("Expected idle, got %s", c.State())
	}
}

func TestCreateTwiceIsPrecondition(t *testing.T) {
	c, _, _ := newTestController(t)
	mustCreate(t, c, params.Defaults())
	if err := c.Create(params.Defaults()); !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected ErrPrecondition, got %v", err)
	}
}

func TestCreateWithoutApplyParametersUsesDefaults(t *testing.T) {
	c, device, _ := newTestController(t)

	name := "/dev/video9"
	fps := 5.0
	p := params.Defaults()
	p.ApplyParameters = false
	p.DeviceName = &name
	p.Resolution = &params.Resolution{Width: 1920, Height: 1080}
	p.RequestedFrameRate = &fps
	p.DecodeInterval = 2
	p.MinDelayFrames = 40
	p.ParserTryHarder = true
	p.FilterMode = params.FilterPoint

	mustCreate(t, c, p)

	got := device.Opened[0]
	want := scanner.DefaultSettings()
	if got.DeviceName != want.DeviceName || got.Width != want.Width || got.Height != want.Height ||
		got.RequestedFPS != nil || got.AutoFocusPoint != nil || got.FilterMode != want.FilterMode ||
		got.DecodeInterval != want.DecodeInterval || got.MinDelayFrames != want.MinDelayFrames ||
		got.TryHarder != want.TryHarder {
		t.Errorf("Expected collaborator defaults, got %+v", got)
	}
}

func TestStartScanFromIdle(t *testing.T) {
	c, _, _ := newTestController(t)

	err := c.StartScan(func(scanner.Result) {})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Expected ErrPrecondition, got %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("Expected state to remain idle, got %s", c.State())
	}
}

func TestStartScanPreconditions(t *testing.T) {
	c, _, _ := newTestController(t)
	mustCreate(t, c, params.Defaults())

	if err := c.StartScan(nil); !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected ErrPrecondition for nil callback, got %v", err)
	}
	if c.State() != StatePlaying {
		t.Errorf("Expected playing, got %s", c.State())
	}

	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}
	if err := c.StartScan(func(scanner.Result) {}); !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected ErrPrecondition while scanning, got %v", err)
	}
}

func TestOperationsAfterDestroy(t *testing.T) {
	c, device, _ := newTestController(t)
	mustCreate(t, c, params.Defaults())
	if err := c.Destroy(); err != nil {
		t.Fatal(err)
	}
	frameCalls := device.Last().FrameCalls

	tests := []struct {
		name string
		op   func() error
	}{
		{"create", func() error { return c.Create(params.Defaults()) }},
		{"scan", func() error { return c.StartScan(func(scanner.Result) {}) }},
		{"stop", c.Stop},
		{"tick", func() error { return c.Tick(time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, ErrSessionDestroyed) {
				t.Errorf("Expected ErrSessionDestroyed, got %v", err)
			}
		})
	}

	if device.Last().FrameCalls != frameCalls {
		t.Error("Tick after destroy pulled a frame")
	}
	if len(device.Opened) != 1 {
		t.Error("Create after destroy opened a device")
	}
}

func TestStop(t *testing.T) {
	c, _, _ := newTestController(t)

	if err := c.Stop(); !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected ErrPrecondition from idle, got %v", err)
	}

	mustCreate(t, c, params.Defaults())

	var states []State
	c.StatusChanged().Subscribe(func(s State) { states = append(states, s) })

	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Second Stop returned error: %v", err)
	}
	if len(states) != 1 || states[0] != StateStopped {
		t.Errorf("Expected a single transition to stopped, got %v", states)
	}

	// stopped sessions can scan again
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateScanning {
		t.Errorf("Expected scanning, got %s", c.State())
	}
}

func TestTickIdleIsNoop(t *testing.T) {
	c, device, _ := newTestController(t)
	if err := c.Tick(time.Second); err != nil {
		t.Fatal(err)
	}
	if len(device.Opened) != 0 {
		t.Error("Tick in idle touched the device")
	}
}

func TestDecodeScenarioIntervalAndMinDelay(t *testing.T) {
	c, _, decoder := newTestController(t)
	mustCreate(t, c, scanParams(0.1, 3))
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}

	tickN(t, c, 3, 50*time.Millisecond)
	if decoder.CallCount() != 0 {
		t.Fatalf("Expected no decode in the first 3 ticks, got %d", decoder.CallCount())
	}

	tickN(t, c, 1, 50*time.Millisecond)
	if decoder.CallCount() != 1 {
		t.Fatalf("Expected exactly one decode on the 4th tick, got %d", decoder.CallCount())
	}
}

func TestNoDecodeBelowInterval(t *testing.T) {
	tests := []struct {
		name   string
		deltas []time.Duration
	}{
		{"many small ticks", []time.Duration{10, 10, 10, 10, 10, 10, 10, 10, 10}},
		{"uneven ticks", []time.Duration{1, 40, 30, 28}},
		{"single tick", []time.Duration{99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, decoder := newTestController(t)
			mustCreate(t, c, scanParams(0.1, 0))
			if err := c.StartScan(func(scanner.Result) {}); err != nil {
				t.Fatal(err)
			}
			for _, d := range tt.deltas {
				if err := c.Tick(d * time.Millisecond); err != nil {
					t.Fatal(err)
				}
			}
			if decoder.CallCount() != 0 {
				t.Errorf("Expected no decode, got %d", decoder.CallCount())
			}
		})
	}
}

func TestDecodeIntervalPacing(t *testing.T) {
	c, _, decoder := newTestController(t)
	mustCreate(t, c, scanParams(0.1, 0))
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}

	// ready tick, then 20 ticks of 25ms = 500ms of scanning
	tickN(t, c, 1, 25*time.Millisecond)
	tickN(t, c, 20, 25*time.Millisecond)

	if got := decoder.CallCount(); got != 5 {
		t.Errorf("Expected 5 decodes at 100ms pacing over 500ms, got %d", got)
	}
}

func TestHugeDecodeIntervalNeverDecodes(t *testing.T) {
	c, _, decoder := newTestController(t)
	mustCreate(t, c, scanParams(1e10, 0))
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}

	tickN(t, c, 50, 10*time.Millisecond)

	if got := decoder.CallCount(); got != 0 {
		t.Errorf("Expected no decode with an interval beyond Duration range, got %d", got)
	}
	if c.Settings().DecodeInterval <= 0 {
		t.Errorf("Expected positive decode interval, got %v", c.Settings().DecodeInterval)
	}
}

func TestNoDecodeWhilePlaying(t *testing.T) {
	c, _, decoder := newTestController(t)
	mustCreate(t, c, scanParams(0.01, 0))
	tickN(t, c, 10, time.Second)
	if decoder.CallCount() != 0 {
		t.Errorf("Expected no decode while playing, got %d", decoder.CallCount())
	}
}

func TestNoDecodeWithoutFrames(t *testing.T) {
	c, device, decoder := newTestController(t)
	device.NoFrames = true
	mustCreate(t, c, scanParams(0.01, 0))
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}

	fired := false
	c.Ready().Subscribe(func(scanner.Info) { fired = true })

	tickN(t, c, 10, time.Second)
	if decoder.CallCount() != 0 {
		t.Errorf("Expected no decode without frames, got %d", decoder.CallCount())
	}
	if fired {
		t.Error("Ready fired without a frame")
	}
}

func TestMatchStopsAndFiresOnce(t *testing.T) {
	c, _, decoder := newTestController(t)
	decoder.MatchOn = 1
	mustCreate(t, c, scanParams(0.01, 0))

	var stateAtCallback State
	var results []scanner.Result
	err := c.StartScan(func(r scanner.Result) {
		stateAtCallback = c.State()
		results = append(results, r)
	})
	if err != nil {
		t.Fatal(err)
	}

	tickN(t, c, 20, 50*time.Millisecond)

	if len(results) != 1 {
		t.Fatalf("Expected callback exactly once, got %d", len(results))
	}
	if results[0].Symbology != "QR_CODE" || results[0].Value != "hello" {
		t.Errorf("Unexpected result %+v", results[0])
	}
	if stateAtCallback != StateStopped {
		t.Errorf("Expected stopped when callback runs, got %s", stateAtCallback)
	}
	if c.State() != StateStopped {
		t.Errorf("Expected stopped after match, got %s", c.State())
	}
	if decoder.CallCount() != 1 {
		t.Errorf("Expected no decode after the match, got %d calls", decoder.CallCount())
	}
}

func TestRescanAfterMatch(t *testing.T) {
	c, _, decoder := newTestController(t)
	decoder.MatchOn = 1
	mustCreate(t, c, scanParams(0.01, 0))

	count := 0
	onMatch := func(scanner.Result) { count++ }
	if err := c.StartScan(onMatch); err != nil {
		t.Fatal(err)
	}
	tickN(t, c, 5, 50*time.Millisecond)
	if err := c.StartScan(onMatch); err != nil {
		t.Fatal(err)
	}
	tickN(t, c, 5, 50*time.Millisecond)

	if count != 2 {
		t.Errorf("Expected one callback per scan call, got %d", count)
	}
}

func TestTryHarderHint(t *testing.T) {
	c, _, decoder := newTestController(t)
	p := scanParams(0.01, 0)
	p.ParserTryHarder = true
	mustCreate(t, c, p)
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}
	tickN(t, c, 3, 50*time.Millisecond)

	if len(decoder.Hints) == 0 || !decoder.Hints[0].TryHarder {
		t.Errorf("Expected try-harder hint, got %+v", decoder.Hints)
	}
}

func TestReadySignalFiresOnce(t *testing.T) {
	c, device, _ := newTestController(t)
	device.Info = scanner.Info{Rotation: 90, ScaleX: -1, ScaleY: 1, Width: 1280, Height: 720}
	mustCreate(t, c, params.Defaults())

	var infos []scanner.Info
	c.Ready().Subscribe(func(info scanner.Info) { infos = append(infos, info) })

	if _, ready := c.Info(); ready {
		t.Error("Expected not ready before the first tick")
	}

	tickN(t, c, 5, 10*time.Millisecond)

	if len(infos) != 1 {
		t.Fatalf("Expected ready exactly once, got %d", len(infos))
	}
	if infos[0] != device.Info {
		t.Errorf("Expected %+v, got %+v", device.Info, infos[0])
	}
	if info, ready := c.Info(); !ready || info != device.Info {
		t.Errorf("Info() = %+v, %v", info, ready)
	}
}

func TestStatusSignalPerTransition(t *testing.T) {
	c, _, decoder := newTestController(t)
	decoder.MatchOn = 1

	var states []State
	unsub := c.StatusChanged().Subscribe(func(s State) { states = append(states, s) })

	mustCreate(t, c, scanParams(0.01, 0))
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}
	tickN(t, c, 3, 50*time.Millisecond)
	if err := c.Destroy(); err != nil {
		t.Fatal(err)
	}

	want := []State{StatePlaying, StateScanning, StateStopped, StateDestroyed}
	if len(states) != len(want) {
		t.Fatalf("Expected %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("Transition %d: expected %s, got %s", i, want[i], states[i])
		}
	}

	unsub()
}

func TestSignalUnsubscribe(t *testing.T) {
	var s Signal[int]
	var a, b []int
	unsubA := s.Subscribe(func(v int) { a = append(a, v) })
	s.Subscribe(func(v int) { b = append(b, v) })

	s.emit(1)
	unsubA()
	unsubA()
	s.emit(2)

	if len(a) != 1 || len(b) != 2 {
		t.Errorf("Expected a=[1] b=[1 2], got a=%v b=%v", a, b)
	}
}

func TestDestroyFromCallback(t *testing.T) {
	c, device, decoder := newTestController(t, WithBackgroundDecode(true))
	decoder.MatchOn = 1
	mustCreate(t, c, scanParams(0.01, 0))

	if err := c.StartScan(func(scanner.Result) {
		if err := c.Destroy(); err != nil {
			t.Errorf("Destroy in callback failed: %v", err)
		}
	}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.State() != StateDestroyed && time.Now().Before(deadline) {
		if err := c.Tick(50 * time.Millisecond); err != nil && !errors.Is(err, ErrSessionDestroyed) {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}
	if c.State() != StateDestroyed {
		t.Fatalf("Expected destroyed, got %s", c.State())
	}
	if device.Last().Releases() != 1 {
		t.Errorf("Expected one release, got %d", device.Last().Releases())
	}
}

// startBlockedDecode opens a background session and ticks until a decode is
// parked inside the decoder.
func startBlockedDecode(t *testing.T, onMatch MatchFunc) (*Controller, *scannertest.Device, *scannertest.Decoder) {
	t.Helper()
	c, device, decoder := newTestController(t, WithBackgroundDecode(true))
	decoder.MatchOn = 1
	decoder.Block = make(chan struct{})
	decoder.Entered = make(chan struct{}, 1)
	mustCreate(t, c, scanParams(0.01, 0))
	if err := c.StartScan(onMatch); err != nil {
		t.Fatal(err)
	}

	tickN(t, c, 2, 50*time.Millisecond)
	select {
	case <-decoder.Entered:
	case <-time.After(time.Second):
		t.Fatal("Decode never started")
	}
	return c, device, decoder
}

func TestBackgroundDecodeDeliversOnTick(t *testing.T) {
	count := 0
	c, _, decoder := startBlockedDecode(t, func(scanner.Result) { count++ })

	// in flight: further ticks must not start a second attempt
	tickN(t, c, 3, 50*time.Millisecond)
	if decoder.CallCount() != 1 {
		t.Fatalf("Expected one in-flight decode, got %d", decoder.CallCount())
	}

	close(decoder.Block)

	deadline := time.Now().Add(2 * time.Second)
	for count == 0 && time.Now().Before(deadline) {
		tickN(t, c, 1, 50*time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	if count != 1 {
		t.Fatalf("Expected callback once, got %d", count)
	}
	if c.State() != StateStopped {
		t.Errorf("Expected stopped, got %s", c.State())
	}
}

func TestStopCancelsInFlightDecode(t *testing.T) {
	count := 0
	c, _, decoder := startBlockedDecode(t, func(scanner.Result) { count++ })

	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	close(decoder.Block)

	for range 50 {
		tickN(t, c, 1, 50*time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	if count != 0 {
		t.Errorf("Callback fired after Stop: %d", count)
	}
	if c.State() != StateStopped {
		t.Errorf("Expected stopped, got %s", c.State())
	}
}

func TestRescanIgnoresStaleDecode(t *testing.T) {
	var first, second int
	c, _, decoder := startBlockedDecode(t, func(scanner.Result) { first++ })

	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := c.StartScan(func(scanner.Result) { second++ }); err != nil {
		t.Fatal(err)
	}
	decoder.Entered = nil
	close(decoder.Block)

	deadline := time.Now().Add(2 * time.Second)
	for second == 0 && time.Now().Before(deadline) {
		tickN(t, c, 1, 50*time.Millisecond)
		time.Sleep(time.Millisecond)
	}

	if first != 0 {
		t.Errorf("Stale scan callback fired %d times", first)
	}
	if second != 1 {
		t.Errorf("Expected the new scan to match once, got %d", second)
	}
	if decoder.CallCount() < 2 {
		t.Errorf("Expected the new scan to decode a fresh frame, got %d calls", decoder.CallCount())
	}
}

func TestDestroyCancelsInFlightDecode(t *testing.T) {
	count := 0
	c, device, decoder := startBlockedDecode(t, func(scanner.Result) { count++ })

	if err := c.Destroy(); err != nil {
		t.Fatal(err)
	}
	close(decoder.Block)
	time.Sleep(20 * time.Millisecond)

	if err := c.Tick(time.Second); !errors.Is(err, ErrSessionDestroyed) {
		t.Errorf("Expected ErrSessionDestroyed, got %v", err)
	}
	if count != 0 {
		t.Errorf("Callback fired after Destroy: %d", count)
	}
	if device.Last().Releases() != 1 {
		t.Errorf("Expected one release, got %d", device.Last().Releases())
	}
}

func TestEventBusMirror(t *testing.T) {
	bus := events.New()
	states := make(chan events.SessionStateChangedEvent, 10)
	ready := make(chan events.ScannerReadyEvent, 1)
	detected := make(chan events.CodeDetectedEvent, 1)
	attempts := make(chan events.DecodeAttemptedEvent, 10)
	defer bus.Subscribe(func(e events.SessionStateChangedEvent) { states <- e })()
	defer bus.Subscribe(func(e events.ScannerReadyEvent) { ready <- e })()
	defer bus.Subscribe(func(e events.CodeDetectedEvent) { detected <- e })()
	defer bus.Subscribe(func(e events.DecodeAttemptedEvent) { attempts <- e })()

	c, _, decoder := newTestController(t, WithEventBus(bus), WithID("session-1"))
	decoder.MatchOn = 1
	mustCreate(t, c, scanParams(0.01, 0))
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}
	tickN(t, c, 3, 50*time.Millisecond)

	timeout := time.After(2 * time.Second)
	select {
	case e := <-detected:
		if e.SessionID != "session-1" || e.Value != "hello" {
			t.Errorf("Unexpected detection %+v", e)
		}
	case <-timeout:
		t.Fatal("Timed out waiting for detection")
	}
	select {
	case e := <-ready:
		if e.Width != 640 || e.Height != 480 {
			t.Errorf("Unexpected ready %+v", e)
		}
	case <-timeout:
		t.Fatal("Timed out waiting for ready")
	}
	select {
	case e := <-attempts:
		if !e.Found || e.Discarded {
			t.Errorf("Unexpected attempt %+v", e)
		}
	case <-timeout:
		t.Fatal("Timed out waiting for decode attempt")
	}

	seen := map[string]bool{}
	for len(seen) < 3 {
		select {
		case e := <-states:
			seen[e.State] = true
			if want := e.State == "stopped"; e.Detected != want {
				t.Errorf("state %s: Detected = %v, want %v", e.State, e.Detected, want)
			}
		case <-timeout:
			t.Fatalf("Timed out waiting for state events, got %v", seen)
		}
	}
}

func TestManualStopNotMarkedDetected(t *testing.T) {
	bus := events.New()
	states := make(chan events.SessionStateChangedEvent, 10)
	defer bus.Subscribe(func(e events.SessionStateChangedEvent) { states <- e })()

	c, _, _ := newTestController(t, WithEventBus(bus))
	mustCreate(t, c, params.Defaults())
	if err := c.StartScan(func(scanner.Result) {}); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-states:
			if e.State != "stopped" {
				continue
			}
			if e.Detected {
				t.Errorf("Manual stop marked as detected: %+v", e)
			}
			return
		case <-timeout:
			t.Fatal("Timed out waiting for stopped event")
		}
	}
}

func TestErrorIs(t *testing.T) {
	err := newError(ErrCodeDeviceUnavailable, "x", errors.New("cause"))
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Error("Expected code match")
	}
	if errors.Is(err, ErrPrecondition) {
		t.Error("Unexpected match across codes")
	}
	var serr *Error
	if !errors.As(err, &serr) || serr.Code != ErrCodeDeviceUnavailable {
		t.Error("Expected errors.As to find *Error")
	}
}
