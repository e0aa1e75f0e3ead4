package led

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestNoopController(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctrl := newNoop(logger)

	for _, pattern := range []string{PatternBlink, PatternBlink, PatternSolid} {
		if err := ctrl.Set("act", true, pattern); err != nil {
			t.Errorf("Set(%q) returned error: %v", pattern, err)
		}
	}
	if n := strings.Count(buf.String(), "No LED hardware"); n != 2 {
		t.Errorf("logged %d times, want 2 (repeat suppressed):\n%s", n, buf.String())
	}

	if types := ctrl.Available(); types == nil || len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}
	if patterns := ctrl.Patterns(); patterns == nil || len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

func TestSysfsAvailableAndPatterns(t *testing.T) {
	ctrl := newSysfs(map[string]string{"system": "sys_led", "user": "usr_led", "act": "ACT"})
	if got, want := ctrl.Available(), []string{"act", "system", "user"}; !slices.Equal(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
	if got := newSysfs(nil).Available(); got == nil || len(got) != 0 {
		t.Errorf("Available() without LEDs = %v, want empty slice", got)
	}
	if got, want := ctrl.Patterns(), []string{PatternSolid, PatternBlink, PatternHeartbeat}; !slices.Equal(got, want) {
		t.Errorf("Patterns() = %v, want %v", got, want)
	}
	if err := ctrl.Set("nonexistent", true, ""); err == nil {
		t.Error("Set() with an unknown LED type should fail")
	}
}

func newTempSysfs(t *testing.T) (*sysfs, string) {
	t.Helper()
	root := t.TempDir()
	ledDir := filepath.Join(root, "usr_led")
	if err := os.MkdirAll(ledDir, 0o755); err != nil {
		t.Fatal(err)
	}
	ctrl := newSysfs(map[string]string{"user": "usr_led", "ghost": "missing_led"})
	ctrl.root = root
	return ctrl, ledDir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSysfsController_Set(t *testing.T) {
	ctrl, ledDir := newTempSysfs(t)

	tests := []struct {
		enabled        bool
		pattern        string
		wantTrigger    string
		wantBrightness string
	}{
		{true, PatternSolid, "none", "1"},
		{true, PatternBlink, "heartbeat", "1"},
		{true, "timer", "timer", "1"},
		{false, "", "timer", "0"},
	}

	for _, tt := range tests {
		if err := ctrl.Set("user", tt.enabled, tt.pattern); err != nil {
			t.Fatalf("Set(%v, %q) failed: %v", tt.enabled, tt.pattern, err)
		}
		if got := readFile(t, filepath.Join(ledDir, "trigger")); got != tt.wantTrigger {
			t.Errorf("pattern %q: trigger = %q, want %q", tt.pattern, got, tt.wantTrigger)
		}
		if got := readFile(t, filepath.Join(ledDir, "brightness")); got != tt.wantBrightness {
			t.Errorf("pattern %q: brightness = %q, want %q", tt.pattern, got, tt.wantBrightness)
		}
	}
}

func TestSysfsController_Set_MissingLED(t *testing.T) {
	ctrl, _ := newTempSysfs(t)

	if err := ctrl.Set("ghost", true, "solid"); err == nil {
		t.Error("Set() on a missing sysfs LED should return error")
	}
}
