package led

import (
	"log/slog"
	"os"
	"strings"
)

// IndicatorLED is the LED type used when the sysfs name is configured.
const IndicatorLED = "indicator"

var deviceTreeModelPath = "/proc/device-tree/model"

// board maps a device tree model substring to its LED types.
type board struct {
	model string
	leds  map[string]string // LED type -> sysfs name
}

// Boards scannode has been run on with a visible status LED.
var knownBoards = []board{
	{model: "Raspberry Pi", leds: map[string]string{"act": "ACT"}},
	{model: "NanoPC-T6", leds: map[string]string{"user": "usr_led", "system": "sys_led"}},
	{model: "Orange Pi", leds: map[string]string{"blue": "blue_led", "green": "green_led"}},
}

// New returns the LED controller for this board. A non-empty sysfsName
// overrides detection and is exposed as IndicatorLED. Unknown boards get a
// controller that accepts and ignores every request.
func New(logger *slog.Logger, sysfsName string) Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if sysfsName != "" {
		logger.Info("Using configured sysfs LED", "name", sysfsName)
		return newSysfs(map[string]string{IndicatorLED: sysfsName})
	}

	model := detectBoard()
	for _, b := range knownBoards {
		if strings.Contains(model, b.model) {
			logger.Info("Board LEDs detected", "board_model", model, "board", b.model)
			return newSysfs(b.leds)
		}
	}
	logger.Info("No scanner LED on this board", "board_model", model)
	return newNoop(logger)
}

func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00\n")
}
