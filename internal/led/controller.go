package led

// Patterns understood by every sysfs board. Other strings are passed to the
// kernel as raw trigger names.
const (
	PatternSolid     = "solid"
	PatternBlink     = "blink"
	PatternHeartbeat = "heartbeat"
)

// Controller switches board LEDs. ledType is the board's name for the LED
// ("act", "user", "indicator"); an empty pattern leaves the trigger alone.
type Controller interface {
	Set(ledType string, enabled bool, pattern string) error
	Available() []string
	Patterns() []string
}
