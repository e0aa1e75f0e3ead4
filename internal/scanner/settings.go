package scanner

import (
	"fmt"
	"time"

	"github.com/smazurov/scannode/internal/params"
)

// Collaborator defaults, used for absent optional parameters and for every
// field when parameters are not applied.
const (
	DefaultWidth          = 512
	DefaultHeight         = 512
	DefaultDecodeInterval = 100 * time.Millisecond
	DefaultMinDelayFrames = 3
	DefaultFilterMode     = params.FilterTrilinear

	DefaultRefreshRate   = 60
	DefaultHostFrameRate = 30
)

// Settings is what a Device is opened with.
type Settings struct {
	DeviceName     string             `json:"device_name" doc:"Device name or path, empty for any device"`
	Width          uint32             `json:"width"`
	Height         uint32             `json:"height"`
	RequestedFPS   *float64           `json:"requested_fps,omitempty"`
	AutoFocusPoint *params.FocusPoint `json:"auto_focus_point,omitempty"`
	FilterMode     params.FilterMode  `json:"filter_mode"`
	DecodeInterval time.Duration      `json:"decode_interval"`
	MinDelayFrames int                `json:"min_delay_frames"`
	TryHarder      bool               `json:"try_harder"`
}

// DefaultSettings returns the collaborator defaults.
func DefaultSettings() Settings {
	return Settings{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		FilterMode:     DefaultFilterMode,
		DecodeInterval: DefaultDecodeInterval,
		MinDelayFrames: DefaultMinDelayFrames,
	}
}

// BuildSettings copies a parameter snapshot onto the collaborator defaults.
// Absent optional fields keep the default. With ApplyParameters false every
// field is ignored.
func BuildSettings(p params.CaptureParameters) Settings {
	s := DefaultSettings()
	if !p.ApplyParameters {
		return s
	}

	if p.DeviceName != nil {
		s.DeviceName = *p.DeviceName
	}
	if p.Resolution != nil {
		s.Width = p.Resolution.Width
		s.Height = p.Resolution.Height
	}
	if p.RequestedFrameRate != nil {
		fps := *p.RequestedFrameRate
		s.RequestedFPS = &fps
	}
	if p.AutoFocusPoint != nil {
		pt := *p.AutoFocusPoint
		s.AutoFocusPoint = &pt
	}
	s.FilterMode = p.FilterMode
	s.DecodeInterval = p.DecodeIntervalDuration()
	s.MinDelayFrames = p.MinDelayFrames
	s.TryHarder = p.ParserTryHarder
	return s
}

// HostSettings are the parameters applied to the host loop rather than the
// capture device.
type HostSettings struct {
	FrameRate    float64 `json:"frame_rate" doc:"Host tick rate in Hz"`
	VSyncCount   int     `json:"vsync_count"`
	QualityLevel int     `json:"quality_level"`
}

// TickInterval is the time between host ticks.
func (h HostSettings) TickInterval() time.Duration {
	if h.FrameRate <= 0 {
		return time.Second / DefaultHostFrameRate
	}
	return time.Duration(float64(time.Second) / h.FrameRate)
}

func (h HostSettings) String() string {
	return fmt.Sprintf("%.1f Hz (vsync %d, quality %d)", h.FrameRate, h.VSyncCount, h.QualityLevel)
}

// BuildHostSettings resolves the host tick rate. A vsync count of 1 or 2
// locks the rate to the refresh rate divided by the count and overrides the
// target frame rate.
func BuildHostSettings(p params.CaptureParameters) HostSettings {
	h := HostSettings{FrameRate: DefaultHostFrameRate}
	if !p.ApplyParameters {
		return h
	}

	h.VSyncCount = p.VSyncCount
	h.QualityLevel = p.QualityLevel
	switch {
	case p.VSyncCount > 0:
		h.FrameRate = float64(DefaultRefreshRate) / float64(p.VSyncCount)
	case p.TargetFrameRate != nil:
		h.FrameRate = float64(*p.TargetFrameRate)
	}
	return h
}
