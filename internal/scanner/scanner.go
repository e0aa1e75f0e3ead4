// Package scanner defines the capture and decode collaborators a capture
// session drives, and builds their settings from capture parameters.
//
// Implementations live in sub-packages: webcam (OpenCV), imagefile (a
// directory of still images) and zxing (the decoder).
package scanner

import (
	"image"
	"time"
)

// Frame is a single captured image.
type Frame struct {
	Image     image.Image
	Seq       uint64
	Timestamp time.Time
}

// Info describes the negotiated output of an open handle. ScaleX/ScaleY are
// 1 or -1 (mirrored).
type Info struct {
	Rotation int `json:"rotation" doc:"Clockwise rotation of the raw image in degrees"`
	ScaleX   int `json:"scale_x" doc:"Horizontal scale, -1 when mirrored"`
	ScaleY   int `json:"scale_y" doc:"Vertical scale, -1 when mirrored"`
	Width    int `json:"width" doc:"Raw frame width in pixels"`
	Height   int `json:"height" doc:"Raw frame height in pixels"`
}

// Result is a decoded code.
type Result struct {
	Symbology string    `json:"symbology" doc:"Barcode format, e.g. QR_CODE"`
	Value     string    `json:"value" doc:"Decoded text"`
	FrameSeq  uint64    `json:"frame_seq" doc:"Sequence number of the decoded frame"`
	Timestamp time.Time `json:"timestamp" doc:"Capture time of the decoded frame"`
}

// Hints tune a single decode attempt.
type Hints struct {
	TryHarder bool
}

// Device opens capture handles.
type Device interface {
	Open(settings Settings) (Handle, error)
}

// Handle is an open capture device. Implementations must not block in
// NextFrame; false means no new frame since the previous call.
type Handle interface {
	Play() error
	NextFrame() (Frame, bool)
	Info() Info
	Release() error
}

// Decoder finds a code in a frame. Decode may be called from a goroutine
// other than the one driving the handle.
type Decoder interface {
	Decode(frame Frame, hints Hints) (Result, bool)
}

// DeviceFunc adapts a function to Device.
type DeviceFunc func(settings Settings) (Handle, error)

// Open calls f.
func (f DeviceFunc) Open(settings Settings) (Handle, error) {
	return f(settings)
}
