package imagefile

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/scanner"
	"github.com/smazurov/scannode/internal/scanner/zxing"
)

func writeQR(t *testing.T, dir, name, content string) {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, 200, 200, nil)
	if err != nil {
		t.Fatalf("Failed to encode QR: %v", err)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, matrix); err != nil {
		t.Fatalf("Failed to write PNG: %v", err)
	}
}

func openDir(t *testing.T, dir string, settings scanner.Settings, opts ...Option) scanner.Handle {
	t.Helper()
	h, err := New(append([]Option{WithDirectory(dir)}, opts...)...).Open(settings)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = h.Release() })
	return h
}

func TestOpenReplaysImagesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "b.png", "second")
	writeQR(t, dir, "a.png", "first")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	settings := scanner.DefaultSettings()
	h := openDir(t, dir, settings)

	if _, ok := h.NextFrame(); ok {
		t.Error("Expected no frame before Play")
	}
	if err := h.Play(); err != nil {
		t.Fatal(err)
	}

	decoder := zxing.New()
	want := []string{"first", "second", "first"}
	for i, value := range want {
		frame, ok := h.NextFrame()
		if !ok {
			t.Fatalf("Frame %d missing", i)
		}
		if frame.Seq != uint64(i+1) {
			t.Errorf("Expected seq %d, got %d", i+1, frame.Seq)
		}
		b := frame.Image.Bounds()
		if b.Dx() != scanner.DefaultWidth || b.Dy() != scanner.DefaultHeight {
			t.Errorf("Expected frame scaled to %dx%d, got %dx%d", scanner.DefaultWidth, scanner.DefaultHeight, b.Dx(), b.Dy())
		}
		result, ok := decoder.Decode(frame, scanner.Hints{})
		if !ok || result.Value != value {
			t.Errorf("Frame %d: expected %q, got %q (ok=%v)", i, value, result.Value, ok)
		}
	}

	info := h.Info()
	if info.Width != scanner.DefaultWidth || info.Height != scanner.DefaultHeight || info.ScaleX != 1 {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestDeviceNameOverridesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "only.png", "direct")

	settings := scanner.DefaultSettings()
	settings.DeviceName = filepath.Join(dir, "only.png")
	h, err := New(WithDirectory("/nonexistent"), WithOriginalSize()).Open(settings)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Release()

	if info := h.Info(); info.Width != 200 || info.Height != 200 {
		t.Errorf("Expected original 200x200, got %+v", info)
	}
}

func TestOpenFailures(t *testing.T) {
	empty := t.TempDir()

	tests := []struct {
		name string
		dir  string
		want error
	}{
		{"empty directory", empty, ErrNoImages},
		{"missing directory", filepath.Join(empty, "missing"), os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithDirectory(tt.dir)).Open(scanner.DefaultSettings())
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := New().Open(scanner.DefaultSettings()); err == nil {
		t.Error("Expected error without a directory")
	}
}

func TestFrameInterval(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "a.png", "x")

	h := openDir(t, dir, scanner.DefaultSettings(), WithFrameInterval(time.Hour))
	if err := h.Play(); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.NextFrame(); !ok {
		t.Fatal("Expected first frame")
	}
	if _, ok := h.NextFrame(); ok {
		t.Error("Expected no second frame within the interval")
	}
}

func TestReleaseStopsFrames(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "a.png", "x")

	h := openDir(t, dir, scanner.DefaultSettings())
	if err := h.Play(); err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.NextFrame(); ok {
		t.Error("Expected no frame after Release")
	}
	if err := h.Play(); err == nil {
		t.Error("Expected Play to fail after Release")
	}
}

func TestScale(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 50))

	for _, mode := range params.FilterModes {
		t.Run(string(mode), func(t *testing.T) {
			out := Scale(src, 40, 20, mode)
			if b := out.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
				t.Errorf("Expected 40x20, got %dx%d", b.Dx(), b.Dy())
			}
		})
	}

	if out := Scale(src, 100, 50, params.FilterPoint); out != image.Image(src) {
		t.Error("Expected image at target size to be returned unchanged")
	}
	if out := Scale(src, 0, 50, params.FilterPoint); out != image.Image(src) {
		t.Error("Expected zero width to disable scaling")
	}
}
