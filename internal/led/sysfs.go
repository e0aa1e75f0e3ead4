package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Controller using the Linux sysfs LED interface.
type sysfs struct {
	root string
	leds map[string]string // LED type -> sysfs name
}

func newSysfs(leds map[string]string) *sysfs {
	return &sysfs{root: sysfsLEDPath, leds: leds}
}

// trigger maps a pattern to a kernel LED trigger. Unknown names are passed
// through as raw triggers.
func trigger(pattern string) string {
	switch pattern {
	case PatternSolid:
		return "none"
	case PatternBlink, PatternHeartbeat:
		return "heartbeat"
	default:
		return pattern
	}
}

// Set controls an LED's state and optional pattern.
func (s *sysfs) Set(ledType string, enabled bool, pattern string) error {
	sysfsName, ok := s.leds[ledType]
	if !ok {
		return fmt.Errorf("LED type %q not supported on this board", ledType)
	}

	ledPath := filepath.Join(s.root, sysfsName)
	if _, err := os.Stat(ledPath); os.IsNotExist(err) {
		return fmt.Errorf("LED %q not found at %s", ledType, ledPath)
	}

	if pattern != "" {
		if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte(trigger(pattern)), 0o644); err != nil {
			return fmt.Errorf("failed to set LED trigger: %w", err)
		}
	}

	// Writing brightness also clears a running trigger when turning off
	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}

// Available returns the LED types of this board, sorted.
func (s *sysfs) Available() []string {
	types := make([]string, 0, len(s.leds))
	for ledType := range s.leds {
		types = append(types, ledType)
	}
	sort.Strings(types)
	return types
}

// Patterns returns the supported patterns.
func (s *sysfs) Patterns() []string {
	return []string{PatternSolid, PatternBlink, PatternHeartbeat}
}
