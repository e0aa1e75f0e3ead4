// Package params holds the capture and scanner parameters a user configures
// before opening the scanner.
//
// A Store has a single logical writer (the configuration step) and a single
// reader (session construction). Readers never see the live values: they take
// a Snapshot, which is a deep copy that later writes cannot touch.
//
//	store := params.NewStore()
//	if err := store.SetString(params.FieldDecodeInterval, "0.25"); err != nil {
//		var verr *params.ValidationError
//		if errors.As(err, &verr) {
//			fmt.Println("bad field:", verr.Field)
//		}
//	}
//	snapshot := store.Snapshot()
package params

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/scannode/internal/logging"
)

// Field names a single capture parameter.
type Field string

// Parameter fields.
const (
	FieldDeviceName         Field = "device_name"
	FieldResolution         Field = "resolution"
	FieldRequestedFrameRate Field = "requested_frame_rate"
	FieldTargetFrameRate    Field = "target_frame_rate"
	FieldVSyncCount         Field = "vsync_count"
	FieldQualityLevel       Field = "quality_level"
	FieldDecodeInterval     Field = "decode_interval"
	FieldMinDelayFrames     Field = "min_delay_frames"
	FieldParserTryHarder    Field = "parser_try_harder"
	FieldFilterMode         Field = "filter_mode"
	FieldAutoFocusPoint     Field = "auto_focus_point"
	FieldApplyParameters    Field = "apply_parameters"
)

// Fields lists every parameter field in menu order.
var Fields = []Field{
	FieldDeviceName,
	FieldResolution,
	FieldRequestedFrameRate,
	FieldTargetFrameRate,
	FieldVSyncCount,
	FieldQualityLevel,
	FieldDecodeInterval,
	FieldMinDelayFrames,
	FieldParserTryHarder,
	FieldFilterMode,
	FieldAutoFocusPoint,
	FieldApplyParameters,
}

// ParseField resolves a field name. Dashes are accepted in place of underscores.
func ParseField(s string) (Field, error) {
	name := Field(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if slices.Contains(Fields, name) {
		return name, nil
	}
	return "", invalid(Field(s), nil, "unknown parameter")
}

// Validation limits.
const (
	MaxResolutionDimension = 8192
	MaxTargetFrameRate     = 1000
	MaxDecodeInterval      = 3600.0 // seconds
)

// DefaultQualityLevels is the ordered quality list used when the host does
// not supply its own.
var DefaultQualityLevels = []string{"Very Low", "Low", "Medium", "High", "Very High", "Ultra"}

// Store is the configuration holder written by the configuration step and
// read once per session.
type Store struct {
	mu      sync.RWMutex
	current CaptureParameters
	levels  []string
	version uint64
	logger  *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithQualityLevels sets the ordered quality list QualityLevel indexes into.
// An empty list keeps the default.
func WithQualityLevels(levels []string) StoreOption {
	return func(s *Store) {
		if len(levels) > 0 {
			s.levels = slices.Clone(levels)
		}
	}
}

// WithLogger overrides the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store holding Defaults().
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		current: Defaults(),
		levels:  slices.Clone(DefaultQualityLevels),
		logger:  logging.GetLogger("params"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns an immutable copy of the current parameters.
func (s *Store) Snapshot() CaptureParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Version increments on every successful write. Useful to detect that a
// snapshot is stale.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// QualityLevels returns a copy of the ordered quality list.
func (s *Store) QualityLevels() []string {
	return slices.Clone(s.levels)
}

// QualityName returns the name of a quality level, or "" when out of range.
func (s *Store) QualityName(level int) string {
	if level < 0 || level >= len(s.levels) {
		return ""
	}
	return s.levels[level]
}

// Reset restores Defaults().
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Defaults()
	s.version++
	s.logger.Debug("Parameters reset to defaults")
}

// Set validates and stores a single field. Nil clears an optional field.
// String values are parsed the same way SetString parses them.
func (s *Store) Set(field Field, value any) error {
	return s.update(func(p *CaptureParameters) error {
		return s.apply(p, field, value)
	})
}

// SetString parses raw text for a field. Blank input clears optional fields
// and leaves required ones unchanged.
func (s *Store) SetString(field Field, raw string) error {
	return s.update(func(p *CaptureParameters) error {
		return s.applyText(p, field, raw)
	})
}

// Clear unsets an optional field.
func (s *Store) Clear(field Field) error {
	switch field {
	case FieldDeviceName, FieldResolution, FieldRequestedFrameRate, FieldTargetFrameRate, FieldAutoFocusPoint:
		return s.Set(field, nil)
	default:
		return invalid(field, nil, "field is required and cannot be cleared")
	}
}

// Apply stores every change of a patch, or none of them.
func (s *Store) Apply(patch Patch) error {
	return s.update(func(p *CaptureParameters) error {
		for _, change := range patch {
			if err := s.apply(p, change.Field, change.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Replace rebuilds the parameters from Defaults plus patch, so fields the
// patch omits return to their defaults. It is all or nothing like Apply and
// returns the fields whose value differs from before, in menu order.
func (s *Store) Replace(patch Patch) ([]Field, error) {
	var changed []Field
	err := s.update(func(p *CaptureParameters) error {
		next := Defaults()
		for _, change := range patch {
			if err := s.apply(&next, change.Field, change.Value); err != nil {
				return err
			}
		}
		changed = Changed(*p, next)
		*p = next
		return nil
	})
	return changed, err
}

// Changed lists the fields that differ between a and b, in menu order.
func Changed(a, b CaptureParameters) []Field {
	before, after := a.values(), b.values()
	var out []Field
	for _, f := range Fields {
		if !reflect.DeepEqual(before[f], after[f]) {
			out = append(out, f)
		}
	}
	return out
}

// SetDeviceName sets the capture device name.
func (s *Store) SetDeviceName(name string) error { return s.Set(FieldDeviceName, name) }

// SetResolution sets the requested capture resolution.
func (s *Store) SetResolution(r Resolution) error { return s.Set(FieldResolution, r) }

// SetRequestedFrameRate sets the frame rate requested from the device.
func (s *Store) SetRequestedFrameRate(fps float64) error {
	return s.Set(FieldRequestedFrameRate, fps)
}

// SetTargetFrameRate sets the host tick rate used when vsync is off.
func (s *Store) SetTargetFrameRate(fps int) error { return s.Set(FieldTargetFrameRate, fps) }

// SetVSyncCount sets the vsync divisor (0, 1 or 2).
func (s *Store) SetVSyncCount(n int) error { return s.Set(FieldVSyncCount, n) }

// SetQualityLevel sets the quality level index.
func (s *Store) SetQualityLevel(level int) error { return s.Set(FieldQualityLevel, level) }

// SetDecodeInterval sets the minimum time between decode attempts, in seconds.
func (s *Store) SetDecodeInterval(seconds float64) error {
	return s.Set(FieldDecodeInterval, seconds)
}

// SetMinDelayFrames sets how many frames to skip after the camera is ready.
func (s *Store) SetMinDelayFrames(n int) error { return s.Set(FieldMinDelayFrames, n) }

// SetParserTryHarder toggles the decoder's try-harder mode.
func (s *Store) SetParserTryHarder(on bool) error { return s.Set(FieldParserTryHarder, on) }

// SetFilterMode sets the frame resampling filter.
func (s *Store) SetFilterMode(mode FilterMode) error { return s.Set(FieldFilterMode, mode) }

// SetAutoFocusPoint sets the normalized auto-focus point.
func (s *Store) SetAutoFocusPoint(pt FocusPoint) error { return s.Set(FieldAutoFocusPoint, pt) }

// SetApplyParameters chooses between these parameters and collaborator defaults.
func (s *Store) SetApplyParameters(on bool) error { return s.Set(FieldApplyParameters, on) }

func (s *Store) update(fn func(*CaptureParameters) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	if err := fn(&next); err != nil {
		s.logger.Debug("Parameter rejected", "error", err)
		return err
	}
	s.current = next
	s.version++
	return nil
}

func (s *Store) apply(p *CaptureParameters, field Field, value any) error {
	if raw, ok := value.(string); ok {
		return s.applyText(p, field, raw)
	}
	if err := s.applyValue(p, field, value); err != nil {
		return err
	}
	s.logger.Debug("Parameter updated", "field", field, "value", value)
	return nil
}

func (s *Store) applyText(p *CaptureParameters, field Field, raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		switch field {
		case FieldDeviceName, FieldResolution, FieldRequestedFrameRate, FieldTargetFrameRate, FieldAutoFocusPoint:
			return s.applyValue(p, field, nil)
		}
		if !slices.Contains(Fields, field) {
			return invalid(field, raw, "unknown parameter")
		}
		return nil
	}

	var value any
	var err error
	switch field {
	case FieldDeviceName:
		value = text
	case FieldResolution:
		value, err = ParseResolution(text)
	case FieldRequestedFrameRate:
		value, err = strconv.ParseFloat(text, 64)
	case FieldTargetFrameRate, FieldVSyncCount, FieldMinDelayFrames:
		value, err = strconv.Atoi(text)
	case FieldQualityLevel:
		value, err = s.parseQuality(text)
	case FieldDecodeInterval:
		value, err = parseSeconds(text)
	case FieldParserTryHarder, FieldApplyParameters:
		value, err = strconv.ParseBool(text)
	case FieldFilterMode:
		value, err = ParseFilterMode(text)
	case FieldAutoFocusPoint:
		value, err = ParseFocusPoint(text)
	default:
		return invalid(field, raw, "unknown parameter")
	}
	if err != nil {
		return invalidCause(field, raw, "cannot parse value", err)
	}
	if err := s.applyValue(p, field, value); err != nil {
		return err
	}
	s.logger.Debug("Parameter updated", "field", field, "value", text)
	return nil
}

func (s *Store) parseQuality(text string) (int, error) {
	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	for i, name := range s.levels {
		if strings.EqualFold(name, text) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown quality level %q", text)
}

// parseSeconds accepts plain seconds ("0.1") or a Go duration ("100ms").
func parseSeconds(text string) (float64, error) {
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

func (s *Store) applyValue(p *CaptureParameters, field Field, value any) error {
	switch field {
	case FieldDeviceName:
		switch v := value.(type) {
		case nil:
			p.DeviceName = nil
		case string:
			if strings.TrimSpace(v) == "" {
				p.DeviceName = nil
			} else {
				name := v
				p.DeviceName = &name
			}
		case *string:
			if v == nil {
				p.DeviceName = nil
				return nil
			}
			return s.applyValue(p, field, *v)
		default:
			return unsupported(field, value)
		}

	case FieldResolution:
		var r Resolution
		switch v := value.(type) {
		case nil:
			p.Resolution = nil
			return nil
		case Resolution:
			r = v
		case *Resolution:
			if v == nil {
				p.Resolution = nil
				return nil
			}
			r = *v
		default:
			return unsupported(field, value)
		}
		if r.Width == 0 || r.Height == 0 || r.Width > MaxResolutionDimension || r.Height > MaxResolutionDimension {
			return invalid(field, r, fmt.Sprintf("width and height must be within 1..%d", MaxResolutionDimension))
		}
		p.Resolution = &r

	case FieldRequestedFrameRate:
		if isNil(value) {
			p.RequestedFrameRate = nil
			return nil
		}
		f, ok := toFloat(value)
		if !ok {
			return unsupported(field, value)
		}
		if !(f > 0) || math.IsInf(f, 0) {
			return invalid(field, value, "must be greater than zero")
		}
		p.RequestedFrameRate = &f

	case FieldTargetFrameRate:
		if isNil(value) {
			p.TargetFrameRate = nil
			return nil
		}
		n, ok := toInt(value)
		if !ok {
			return unsupported(field, value)
		}
		if n < 1 || n > MaxTargetFrameRate {
			return invalid(field, value, fmt.Sprintf("must be within 1..%d", MaxTargetFrameRate))
		}
		p.TargetFrameRate = &n

	case FieldVSyncCount:
		n, ok := toInt(value)
		if !ok {
			return unsupported(field, value)
		}
		if n < 0 || n > 2 {
			return invalid(field, value, "must be 0, 1 or 2")
		}
		p.VSyncCount = n

	case FieldQualityLevel:
		n, ok := toInt(value)
		if !ok {
			return unsupported(field, value)
		}
		if n < 0 || n >= len(s.levels) {
			return invalid(field, value, fmt.Sprintf("must index one of %d quality levels", len(s.levels)))
		}
		p.QualityLevel = n

	case FieldDecodeInterval:
		var f float64
		if d, isDuration := value.(time.Duration); isDuration {
			f = d.Seconds()
		} else {
			var ok bool
			if f, ok = toFloat(value); !ok {
				return unsupported(field, value)
			}
		}
		if !(f > 0) || math.IsInf(f, 0) {
			return invalid(field, value, "must be greater than zero")
		}
		if f > MaxDecodeInterval {
			return invalid(field, value, fmt.Sprintf("must be at most %g seconds", MaxDecodeInterval))
		}
		p.DecodeInterval = f

	case FieldMinDelayFrames:
		n, ok := toInt(value)
		if !ok {
			return unsupported(field, value)
		}
		if n < 0 {
			return invalid(field, value, "must not be negative")
		}
		p.MinDelayFrames = n

	case FieldParserTryHarder:
		b, ok := value.(bool)
		if !ok {
			return unsupported(field, value)
		}
		p.ParserTryHarder = b

	case FieldFilterMode:
		m, ok := value.(FilterMode)
		if !ok {
			return unsupported(field, value)
		}
		if !slices.Contains(FilterModes, m) {
			return invalid(field, value, "must be point, bilinear or trilinear")
		}
		p.FilterMode = m

	case FieldAutoFocusPoint:
		var pt FocusPoint
		switch v := value.(type) {
		case nil:
			p.AutoFocusPoint = nil
			return nil
		case FocusPoint:
			pt = v
		case *FocusPoint:
			if v == nil {
				p.AutoFocusPoint = nil
				return nil
			}
			pt = *v
		default:
			return unsupported(field, value)
		}
		if !inUnitRange(pt.X) || !inUnitRange(pt.Y) {
			return invalid(field, pt, "x and y must be within 0..1")
		}
		p.AutoFocusPoint = &pt

	case FieldApplyParameters:
		b, ok := value.(bool)
		if !ok {
			return unsupported(field, value)
		}
		p.ApplyParameters = b

	default:
		return invalid(field, value, "unknown parameter")
	}
	return nil
}

func unsupported(field Field, value any) *ValidationError {
	return invalid(field, value, fmt.Sprintf("unsupported value type %T", value))
}

func inUnitRange(f float64) bool {
	return f >= 0 && f <= 1
}

func isNil(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case *float64:
		return v == nil
	case *int:
		return v == nil
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case *float64:
		if v == nil {
			return 0, false
		}
		return *v, true
	}
	if n, ok := toInt(value); ok {
		return float64(n), true
	}
	return 0, false
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, false
		}
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case *int:
		if v == nil {
			return 0, false
		}
		return *v, true
	case float64:
		// TOML and JSON numbers may arrive as floats.
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}
