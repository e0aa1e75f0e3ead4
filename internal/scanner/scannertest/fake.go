// Package scannertest provides in-memory scanner collaborators for tests.
package scannertest

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/smazurov/scannode/internal/scanner"
)

// ErrNoDevice is returned by Device.Open when Fail is set.
var ErrNoDevice = errors.New("no capture device")

// Device records Open calls and hands out Handles.
type Device struct {
	mu       sync.Mutex
	Fail     error // returned by Open when set
	PlayErr  error // returned by the handle's Play
	Info     scanner.Info
	Opened   []scanner.Settings
	Handles  []*Handle
	NoFrames bool // handles never produce a frame
}

// NewDevice returns a device producing 640x480 frames.
func NewDevice() *Device {
	return &Device{Info: scanner.Info{ScaleX: 1, ScaleY: 1, Width: 640, Height: 480}}
}

// Open implements scanner.Device.
func (d *Device) Open(settings scanner.Settings) (scanner.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Opened = append(d.Opened, settings)
	if d.Fail != nil {
		return nil, d.Fail
	}
	h := &Handle{info: d.Info, playErr: d.PlayErr, noFrames: d.NoFrames}
	d.Handles = append(d.Handles, h)
	return h, nil
}

// Last returns the most recently opened handle.
func (d *Device) Last() *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Handles) == 0 {
		return nil
	}
	return d.Handles[len(d.Handles)-1]
}

// Handle counts calls. Every NextFrame call produces a new frame unless the
// device was created with NoFrames or the handle is not playing.
type Handle struct {
	mu       sync.Mutex
	info     scanner.Info
	playErr  error
	noFrames bool
	playing  bool
	seq      uint64

	PlayCalls    int
	FrameCalls   int
	ReleaseCalls int
}

// Play implements scanner.Handle.
func (h *Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.PlayCalls++
	if h.playErr != nil {
		return h.playErr
	}
	h.playing = true
	return nil
}

// NextFrame implements scanner.Handle.
func (h *Handle) NextFrame() (scanner.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.FrameCalls++
	if !h.playing || h.noFrames || h.ReleaseCalls > 0 {
		return scanner.Frame{}, false
	}
	h.seq++
	return scanner.Frame{
		Image:     image.NewGray(image.Rect(0, 0, h.info.Width, h.info.Height)),
		Seq:       h.seq,
		Timestamp: time.Now(),
	}, true
}

// Info implements scanner.Handle.
func (h *Handle) Info() scanner.Info {
	return h.info
}

// Release implements scanner.Handle.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ReleaseCalls++
	h.playing = false
	return nil
}

// Releases returns the number of Release calls.
func (h *Handle) Releases() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ReleaseCalls
}

// Decoder returns Result for every frame from the Nth call on (1-based).
// Zero means never. Block, when set, is received from before returning.
type Decoder struct {
	mu      sync.Mutex
	Result  scanner.Result
	MatchOn int
	Block   chan struct{}
	Calls   int
	Hints   []scanner.Hints
	Entered chan struct{} // signalled on entry when set
}

// Decode implements scanner.Decoder.
func (d *Decoder) Decode(frame scanner.Frame, hints scanner.Hints) (scanner.Result, bool) {
	d.mu.Lock()
	d.Calls++
	d.Hints = append(d.Hints, hints)
	call := d.Calls
	block := d.Block
	entered := d.Entered
	d.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.MatchOn == 0 || call < d.MatchOn {
		return scanner.Result{}, false
	}
	r := d.Result
	r.FrameSeq = frame.Seq
	r.Timestamp = frame.Timestamp
	return r, true
}

// CallCount returns the number of Decode calls.
func (d *Decoder) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Calls
}
