package scanner

import (
	"testing"
	"time"

	"github.com/smazurov/scannode/internal/params"
)

func configured() params.CaptureParameters {
	name := "/dev/video4"
	fps := 15.0
	target := 120
	p := params.Defaults()
	p.DeviceName = &name
	p.Resolution = &params.Resolution{Width: 1920, Height: 1080}
	p.RequestedFrameRate = &fps
	p.TargetFrameRate = &target
	p.DecodeInterval = 0.5
	p.MinDelayFrames = 8
	p.ParserTryHarder = true
	p.FilterMode = params.FilterPoint
	p.AutoFocusPoint = &params.FocusPoint{X: 0.2, Y: 0.8}
	p.QualityLevel = 2
	return p
}

func TestBuildSettingsAppliesParameters(t *testing.T) {
	s := BuildSettings(configured())

	if s.DeviceName != "/dev/video4" {
		t.Errorf("DeviceName = %q", s.DeviceName)
	}
	if s.Width != 1920 || s.Height != 1080 {
		t.Errorf("Size = %dx%d", s.Width, s.Height)
	}
	if s.RequestedFPS == nil || *s.RequestedFPS != 15 {
		t.Errorf("RequestedFPS = %v", s.RequestedFPS)
	}
	if s.AutoFocusPoint == nil || *s.AutoFocusPoint != (params.FocusPoint{X: 0.2, Y: 0.8}) {
		t.Errorf("AutoFocusPoint = %v", s.AutoFocusPoint)
	}
	if s.FilterMode != params.FilterPoint {
		t.Errorf("FilterMode = %s", s.FilterMode)
	}
	if s.DecodeInterval != 500*time.Millisecond {
		t.Errorf("DecodeInterval = %v", s.DecodeInterval)
	}
	if s.MinDelayFrames != 8 || !s.TryHarder {
		t.Errorf("MinDelayFrames = %d, TryHarder = %v", s.MinDelayFrames, s.TryHarder)
	}
}

func TestBuildSettingsKeepsDefaultsForAbsentFields(t *testing.T) {
	s := BuildSettings(params.Defaults())
	want := DefaultSettings()

	if s.DeviceName != "" || s.Width != want.Width || s.Height != want.Height {
		t.Errorf("Expected default device and size, got %+v", s)
	}
	if s.RequestedFPS != nil || s.AutoFocusPoint != nil {
		t.Errorf("Expected absent fps and focus, got %+v", s)
	}
}

func TestBuildSettingsIgnoresParametersWhenNotApplied(t *testing.T) {
	p := configured()
	p.ApplyParameters = false

	s := BuildSettings(p)
	want := DefaultSettings()
	if s.DeviceName != want.DeviceName || s.Width != want.Width || s.Height != want.Height ||
		s.RequestedFPS != nil || s.AutoFocusPoint != nil || s.FilterMode != want.FilterMode ||
		s.DecodeInterval != want.DecodeInterval || s.MinDelayFrames != want.MinDelayFrames ||
		s.TryHarder != want.TryHarder {
		t.Errorf("Expected collaborator defaults, got %+v", s)
	}

	h := BuildHostSettings(p)
	if h.FrameRate != DefaultHostFrameRate || h.QualityLevel != 0 || h.VSyncCount != 0 {
		t.Errorf("Expected host defaults, got %+v", h)
	}
}

func TestBuildSettingsDoesNotAlias(t *testing.T) {
	p := configured()
	s := BuildSettings(p)
	*p.RequestedFrameRate = 99
	p.AutoFocusPoint.X = 0.9
	if *s.RequestedFPS != 15 || s.AutoFocusPoint.X != 0.2 {
		t.Error("Settings share memory with parameters")
	}
}

func TestBuildHostSettings(t *testing.T) {
	target := 45
	tests := []struct {
		name   string
		vsync  int
		target *int
		want   float64
	}{
		{"default rate", 0, nil, DefaultHostFrameRate},
		{"target rate", 0, &target, 45},
		{"vsync every frame", 1, &target, 60},
		{"vsync every second frame", 2, &target, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params.Defaults()
			p.VSyncCount = tt.vsync
			p.TargetFrameRate = tt.target
			h := BuildHostSettings(p)
			if h.FrameRate != tt.want {
				t.Errorf("FrameRate = %v, want %v", h.FrameRate, tt.want)
			}
			wantInterval := time.Duration(float64(time.Second) / tt.want)
			if h.TickInterval() != wantInterval {
				t.Errorf("TickInterval = %v, want %v", h.TickInterval(), wantInterval)
			}
		})
	}
}
