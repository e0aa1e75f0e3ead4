// Package imagefile replays a directory of still images as a capture device.
// It stands in for a camera on headless nodes and in tests.
package imagefile

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/smazurov/scannode/internal/logging"
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
)

// ErrNoImages is returned by Open when the directory has no decodable image.
var ErrNoImages = errors.New("no images found")

var extensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// Device opens image directories.
type Device struct {
	dir      string
	interval time.Duration
	keepSize bool
	logger   *slog.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithDirectory sets the directory used when the device name is empty.
func WithDirectory(dir string) Option {
	return func(d *Device) {
		d.dir = dir
	}
}

// WithFrameInterval limits how often a new frame is produced. Zero produces
// a frame on every poll.
func WithFrameInterval(interval time.Duration) Option {
	return func(d *Device) {
		d.interval = interval
	}
}

// WithOriginalSize disables scaling to the requested resolution.
func WithOriginalSize() Option {
	return func(d *Device) {
		d.keepSize = true
	}
}

// New creates an image directory device.
func New(opts ...Option) *Device {
	d := &Device{logger: logging.GetLogger("scanner").With("component", "imagefile")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open implements scanner.Device. The device name, when set, is a directory
// or a single image file.
func (d *Device) Open(settings scanner.Settings) (scanner.Handle, error) {
	path := settings.DeviceName
	if path == "" {
		path = d.dir
	}
	if path == "" {
		return nil, errors.New("no image directory configured")
	}

	files, err := listImages(path)
	if err != nil {
		return nil, err
	}

	var frames []image.Image
	for _, file := range files {
		img, err := Load(file)
		if err != nil {
			d.logger.Warn("Skipping unreadable image", "path", file, "error", err)
			continue
		}
		if !d.keepSize {
			img = Scale(img, int(settings.Width), int(settings.Height), settings.FilterMode)
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, path)
	}

	b := frames[0].Bounds()
	d.logger.Info("Image source opened", "path", path, "images", len(frames), "size", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()))

	return &handle{
		frames:   frames,
		interval: d.interval,
		info:     scanner.Info{ScaleX: 1, ScaleY: 1, Width: b.Dx(), Height: b.Dy()},
	}, nil
}

type handle struct {
	frames   []image.Image
	interval time.Duration
	info     scanner.Info

	mu       sync.Mutex
	playing  bool
	released bool
	seq      uint64
	last     time.Time
}

func (h *handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return errors.New("image source released")
	}
	h.playing = true
	return nil
}

func (h *handle) NextFrame() (scanner.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.playing || h.released {
		return scanner.Frame{}, false
	}

	now := time.Now()
	if h.interval > 0 && !h.last.IsZero() && now.Sub(h.last) < h.interval {
		return scanner.Frame{}, false
	}
	h.last = now

	img := h.frames[int(h.seq%uint64(len(h.frames)))]
	h.seq++
	return scanner.Frame{Image: img, Seq: h.seq, Timestamp: now}, true
}

func (h *handle) Info() scanner.Info {
	return h.info
}

func (h *handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.playing = false
	h.frames = nil
	return nil
}

func listImages(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image source: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Load decodes a PNG, JPEG or GIF file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// Scale resizes img to width x height with the scaler matching mode. A zero
// dimension or an image already at size is returned unchanged.
func Scale(img image.Image, width, height int, mode params.FilterMode) image.Image {
	b := img.Bounds()
	if width <= 0 || height <= 0 || (b.Dx() == width && b.Dy() == height) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	Scaler(mode).Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Scaler maps a filter mode to an x/image scaler.
func Scaler(mode params.FilterMode) draw.Scaler {
	switch mode {
	case params.FilterPoint:
		return draw.NearestNeighbor
	case params.FilterBilinear:
		return draw.ApproxBiLinear
	default:
		return draw.BiLinear
	}
}
