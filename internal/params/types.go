package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FilterMode selects how frames are resampled when the delivered frame size
// differs from the requested size.
type FilterMode string

// Filter modes.
const (
	FilterPoint     FilterMode = "point"
	FilterBilinear  FilterMode = "bilinear"
	FilterTrilinear FilterMode = "trilinear"
)

// FilterModes lists the supported filter modes in menu order.
var FilterModes = []FilterMode{FilterPoint, FilterBilinear, FilterTrilinear}

// ParseFilterMode parses a filter mode name (case-insensitive) or its menu index.
func ParseFilterMode(s string) (FilterMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range FilterModes {
		if string(m) == s {
			return m, nil
		}
	}
	if idx, err := strconv.Atoi(s); err == nil && idx >= 0 && idx < len(FilterModes) {
		return FilterModes[idx], nil
	}
	return "", fmt.Errorf("unknown filter mode %q", s)
}

// Resolution is a requested capture size in pixels.
type Resolution struct {
	Width  uint32 `json:"width" toml:"width"`
	Height uint32 `json:"height" toml:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses "WIDTHxHEIGHT", e.g. "1280x720".
func ParseResolution(s string) (Resolution, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("resolution %q must be WIDTHxHEIGHT", s)
	}
	w, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution width: %w", err)
	}
	h, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution height: %w", err)
	}
	return Resolution{Width: uint32(w), Height: uint32(h)}, nil
}

// FocusPoint is a normalized auto-focus point of interest, both axes in [0,1].
type FocusPoint struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
}

// ParseFocusPoint parses "x,y", e.g. "0.5,0.5".
func ParseFocusPoint(s string) (FocusPoint, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return FocusPoint{}, fmt.Errorf("focus point %q must be X,Y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return FocusPoint{}, fmt.Errorf("focus point x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return FocusPoint{}, fmt.Errorf("focus point y: %w", err)
	}
	return FocusPoint{X: x, Y: y}, nil
}

// CaptureParameters is the immutable set of values a capture session is built
// from. Nil optional fields mean "use the collaborator default".
type CaptureParameters struct {
	DeviceName         *string     `json:"device_name,omitempty" toml:"device_name,omitempty"`
	Resolution         *Resolution `json:"resolution,omitempty" toml:"resolution,omitempty"`
	RequestedFrameRate *float64    `json:"requested_frame_rate,omitempty" toml:"requested_frame_rate,omitempty"`
	TargetFrameRate    *int        `json:"target_frame_rate,omitempty" toml:"target_frame_rate,omitempty"`
	VSyncCount         int         `json:"vsync_count" toml:"vsync_count"`
	QualityLevel       int         `json:"quality_level" toml:"quality_level"`
	DecodeInterval     float64     `json:"decode_interval" toml:"decode_interval"`
	MinDelayFrames     int         `json:"min_delay_frames" toml:"min_delay_frames"`
	ParserTryHarder    bool        `json:"parser_try_harder" toml:"parser_try_harder"`
	FilterMode         FilterMode  `json:"filter_mode" toml:"filter_mode"`
	AutoFocusPoint     *FocusPoint `json:"auto_focus_point,omitempty" toml:"auto_focus_point,omitempty"`
	ApplyParameters    bool        `json:"apply_parameters" toml:"apply_parameters"`
}

// Default values of a freshly created store.
const (
	DefaultVSyncCount     = 0
	DefaultQualityLevel   = 0
	DefaultDecodeInterval = 0.1
	DefaultMinDelayFrames = 3
	DefaultFilterMode     = FilterTrilinear
)

// Defaults returns the parameters a new store starts with.
func Defaults() CaptureParameters {
	return CaptureParameters{
		VSyncCount:      DefaultVSyncCount,
		QualityLevel:    DefaultQualityLevel,
		DecodeInterval:  DefaultDecodeInterval,
		MinDelayFrames:  DefaultMinDelayFrames,
		FilterMode:      DefaultFilterMode,
		ApplyParameters: true,
	}
}

// DecodeIntervalDuration returns DecodeInterval as a time.Duration. Values
// too large for a Duration saturate instead of wrapping negative.
func (p CaptureParameters) DecodeIntervalDuration() time.Duration {
	ns := p.DecodeInterval * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// values maps each field to its value; pointer fields compare by content
// under reflect.DeepEqual.
func (p CaptureParameters) values() map[Field]any {
	return map[Field]any{
		FieldDeviceName:         p.DeviceName,
		FieldResolution:         p.Resolution,
		FieldRequestedFrameRate: p.RequestedFrameRate,
		FieldTargetFrameRate:    p.TargetFrameRate,
		FieldVSyncCount:         p.VSyncCount,
		FieldQualityLevel:       p.QualityLevel,
		FieldDecodeInterval:     p.DecodeInterval,
		FieldMinDelayFrames:     p.MinDelayFrames,
		FieldParserTryHarder:    p.ParserTryHarder,
		FieldFilterMode:         p.FilterMode,
		FieldAutoFocusPoint:     p.AutoFocusPoint,
		FieldApplyParameters:    p.ApplyParameters,
	}
}

// Clone returns a deep copy; optional fields never share memory with p.
func (p CaptureParameters) Clone() CaptureParameters {
	out := p
	if p.DeviceName != nil {
		v := *p.DeviceName
		out.DeviceName = &v
	}
	if p.Resolution != nil {
		v := *p.Resolution
		out.Resolution = &v
	}
	if p.RequestedFrameRate != nil {
		v := *p.RequestedFrameRate
		out.RequestedFrameRate = &v
	}
	if p.TargetFrameRate != nil {
		v := *p.TargetFrameRate
		out.TargetFrameRate = &v
	}
	if p.AutoFocusPoint != nil {
		v := *p.AutoFocusPoint
		out.AutoFocusPoint = &v
	}
	return out
}
