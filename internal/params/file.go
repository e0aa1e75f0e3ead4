package params

import (
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Change is a single field assignment.
type Change struct {
	Field Field
	Value any
}

// Patch is an ordered list of changes applied atomically by Store.Apply.
type Patch []Change

// Fields returns the fields touched by the patch.
func (p Patch) Fields() []Field {
	out := make([]Field, 0, len(p))
	for _, c := range p {
		out = append(out, c.Field)
	}
	return out
}

// DecodePatch reads the [parameters] table of a TOML document:
//
//	[parameters]
//	device_name = "0"
//	resolution = { width = 1280, height = 720 }
//	decode_interval = 0.25
//	filter_mode = "bilinear"
//
// Resolution and focus point also accept "1280x720" and "0.5,0.5" strings.
func DecodePatch(data []byte) (Patch, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse parameters: %w", err)
	}

	raw, ok := doc["parameters"]
	if !ok {
		return Patch{}, nil
	}
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parameters must be a table, got %T", raw)
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !slices.Contains(Fields, Field(k)) {
			return nil, invalid(Field(k), table[k], "unknown parameter")
		}
	}

	patch := make(Patch, 0, len(table))
	for _, field := range Fields {
		value, ok := table[string(field)]
		if !ok {
			continue
		}
		converted, err := convertTOML(field, value)
		if err != nil {
			return nil, err
		}
		patch = append(patch, Change{Field: field, Value: converted})
	}
	return patch, nil
}

func convertTOML(field Field, value any) (any, error) {
	tbl, isTable := value.(map[string]any)
	switch field {
	case FieldResolution:
		if !isTable {
			return value, nil
		}
		w, okW := toInt(tbl["width"])
		h, okH := toInt(tbl["height"])
		if !okW || !okH || w < 0 || h < 0 {
			return nil, invalid(field, value, "expected { width, height } integers")
		}
		return Resolution{Width: uint32(w), Height: uint32(h)}, nil
	case FieldAutoFocusPoint:
		if !isTable {
			return value, nil
		}
		x, okX := toFloat(tbl["x"])
		y, okY := toFloat(tbl["y"])
		if !okX || !okY {
			return nil, invalid(field, value, "expected { x, y } numbers")
		}
		return FocusPoint{X: x, Y: y}, nil
	case FieldFilterMode:
		// strings go through text parsing; an integer is a menu index
		if n, ok := toInt(value); ok {
			return fmt.Sprint(n), nil
		}
	}
	if isTable {
		return nil, invalid(field, value, "unexpected table")
	}
	return value, nil
}

// ReadPatch loads a patch from a TOML file.
func ReadPatch(path string) (Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters file: %w", err)
	}
	return DecodePatch(data)
}

// ApplyTOML applies the [parameters] table of a TOML document. The first
// invalid field aborts and nothing is applied.
func (s *Store) ApplyTOML(data []byte) error {
	patch, err := DecodePatch(data)
	if err != nil {
		return err
	}
	return s.Apply(patch)
}

// LoadFile applies a parameters TOML file.
func (s *Store) LoadFile(path string) error {
	patch, err := ReadPatch(path)
	if err != nil {
		return err
	}
	if err := s.Apply(patch); err != nil {
		return err
	}
	s.logger.Info("Loaded parameters file", "path", path, "fields", len(patch))
	return nil
}

// Encode renders parameters as a TOML document with a [parameters] table.
func Encode(p CaptureParameters) ([]byte, error) {
	return toml.Marshal(struct {
		Parameters CaptureParameters `toml:"parameters"`
	}{p})
}
