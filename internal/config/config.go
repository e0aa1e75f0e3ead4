// Package config loads service options from CLI flags, SCANNODE_*
// environment variables and a TOML file, and watches files for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/scannode/internal/logging"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "SCANNODE_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills opts with precedence: CLI flags > env vars > config file >
// struct defaults. opts must be a pointer to a struct; a string field named
// Config holds the TOML path. Fields use `toml:"section.key"` and `env:"KEY"`
// tags. If cmd is provided, flags explicitly set via CLI are never overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		})
	}
	skip := func(field reflect.StructField) bool {
		return changedFlags[fieldNameToFlag(field.Name)]
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// a missing file means defaults
		case err != nil:
			return fmt.Errorf("failed to read config: %w", err)
		default:
			var doc map[string]any
			if err := toml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}
			for i := 0; i < v.NumField(); i++ {
				fieldType := t.Field(i)
				if skip(fieldType) {
					continue
				}
				if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" {
					if value := getNestedValue(doc, tomlPath); value != nil {
						if err := setFieldValue(v.Field(i), value); err != nil {
							return fmt.Errorf("config %s: %w", tomlPath, err)
						}
					}
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if skip(fieldType) {
			continue
		}
		envKey := fieldType.Tag.Get("env")
		if envKey == "" {
			continue
		}
		if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
			if err := setFieldValueFromString(v.Field(i), envValue); err != nil {
				return fmt.Errorf("env %s%s: %w", EnvPrefix, envKey, err)
			}
		}
	}

	return nil
}

// fieldNameToFlag converts a struct field name to the kebab-case flag name
// humacli derives from it. Acronyms stay together.
// Example: "LoggingLevel" -> "logging-level", "FeaturesLEDName" -> "features-led-name".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		switch val := value.(type) {
		case string:
			d, err := time.ParseDuration(val)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		case int64:
			field.SetInt(val * int64(time.Millisecond))
		default:
			return fmt.Errorf("expected duration, got %T", value)
		}
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		switch i := value.(type) {
		case int64:
			field.SetInt(i)
		case int:
			field.SetInt(int64(i))
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case reflect.Float64:
		switch f := value.(type) {
		case float64:
			field.SetFloat(f)
		case int64:
			field.SetFloat(float64(f))
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
		slice := make([]string, len(arr))
		for i, item := range arr {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string array element, got %T", item)
			}
			slice[i] = s
		}
		field.Set(reflect.ValueOf(slice))
	}
	return nil
}

// setFieldValueFromString sets a field from an env var value. Slices are
// comma-separated.
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of a TOML config file. Module
// levels may be given inline (session = "debug") or under [logging.modules].
// Returns defaults if the file doesn't exist or can't be parsed.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	if configPath == "" {
		return cfg
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
		switch val := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = val
			case "format":
				cfg.Format = val
			default:
				cfg.Modules[key] = val
			}
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range val {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		}
	}

	return cfg
}
