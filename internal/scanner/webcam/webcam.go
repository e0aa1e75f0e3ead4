// Package webcam captures frames from a camera with OpenCV.
package webcam

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
)

const readRetryDelay = 10 * time.Millisecond

// Device opens OpenCV video captures.
type Device struct {
	mirror bool
	logger *slog.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithMirror flips frames horizontally and reports a mirrored scale.
func WithMirror(mirror bool) Option {
	return func(d *Device) {
		d.mirror = mirror
	}
}

// New creates a webcam device.
func New(opts ...Option) *Device {
	d := &Device{logger: logging.GetLogger("scanner").With("component", "webcam")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open implements scanner.Device. The device name is a camera index, a
// stable camera ID, a device path or a URL; empty means camera 0.
func (d *Device) Open(settings scanner.Settings) (scanner.Handle, error) {
	target := parseDeviceName(settings.DeviceName)

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %v: %w", target, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %v is not available", target)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(settings.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(settings.Height))
	if settings.RequestedFPS != nil {
		vc.Set(gocv.VideoCaptureFPS, *settings.RequestedFPS)
	}
	if settings.AutoFocusPoint != nil {
		// OpenCV has no point-of-interest control; continuous autofocus is the closest match
		vc.Set(gocv.VideoCaptureAutoFocus, 1)
	}

	width := int(vc.Get(gocv.VideoCaptureFrameWidth))
	height := int(vc.Get(gocv.VideoCaptureFrameHeight))
	d.logger.Info("Camera opened",
		"device", target,
		"requested", fmt.Sprintf("%dx%d", settings.Width, settings.Height),
		"actual", fmt.Sprintf("%dx%d", width, height))

	scaleX := 1
	if d.mirror {
		scaleX = -1
	}

	return &handle{
		vc:     vc,
		logger: d.logger,
		mirror: d.mirror,
		target: image.Pt(int(settings.Width), int(settings.Height)),
		interp: interpolation(settings.FilterMode),
		info:   scanner.Info{ScaleX: scaleX, ScaleY: 1, Width: width, Height: height},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

type handle struct {
	vc     *gocv.VideoCapture
	logger *slog.Logger
	mirror bool
	target image.Point
	interp gocv.InterpolationFlags
	info   scanner.Info

	mu       sync.Mutex
	latest   scanner.Frame
	lastSeen uint64
	playing  bool

	releaseOnce sync.Once
	stop        chan struct{}
	done        chan struct{}
}

func (h *handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playing {
		return nil
	}
	select {
	case <-h.stop:
		return errors.New("camera released")
	default:
	}
	h.playing = true
	go h.captureLoop()
	return nil
}

func (h *handle) captureLoop() {
	defer close(h.done)

	mat := gocv.NewMat()
	defer mat.Close()
	var seq uint64

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		if ok := h.vc.Read(&mat); !ok || mat.Empty() {
			time.Sleep(readRetryDelay)
			continue
		}

		img, err := h.convert(mat)
		if err != nil {
			h.logger.Debug("Failed to convert frame", "error", err)
			continue
		}

		seq++
		h.mu.Lock()
		h.latest = scanner.Frame{Image: img, Seq: seq, Timestamp: time.Now()}
		h.mu.Unlock()
	}
}

func (h *handle) convert(src gocv.Mat) (image.Image, error) {
	mat := src
	if h.target.X > 0 && h.target.Y > 0 && (src.Cols() != h.target.X || src.Rows() != h.target.Y) {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, h.target, 0, 0, h.interp)
		mat = resized
	}
	if h.mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(mat, &flipped, 1)
		mat = flipped
	}
	return mat.ToImage()
}

// NextFrame returns the newest captured frame if it has not been returned yet.
func (h *handle) NextFrame() (scanner.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest.Seq == 0 || h.latest.Seq == h.lastSeen {
		return scanner.Frame{}, false
	}
	h.lastSeen = h.latest.Seq
	return h.latest, true
}

func (h *handle) Info() scanner.Info {
	return h.info
}

func (h *handle) Release() error {
	var err error
	h.releaseOnce.Do(func() {
		close(h.stop)
		h.mu.Lock()
		playing := h.playing
		h.mu.Unlock()
		if playing {
			<-h.done
		}
		err = h.vc.Close()
	})
	return err
}

// parseDeviceName maps "" to camera 0 and numeric names to camera indexes.
func parseDeviceName(name string) any {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}
	if idx, err := strconv.Atoi(name); err == nil {
		return idx
	}
	return name
}

func interpolation(mode params.FilterMode) gocv.InterpolationFlags {
	switch mode {
	case params.FilterPoint:
		return gocv.InterpolationNearestNeighbor
	case params.FilterBilinear:
		return gocv.InterpolationLinear
	default:
		return gocv.InterpolationArea
	}
}
