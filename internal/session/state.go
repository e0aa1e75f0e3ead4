package session

// State is the lifecycle state of a capture session.
type State string

// Session states.
const (
	StateIdle      State = "idle"      // No handle
	StatePlaying   State = "playing"   // Receiving frames, not decoding
	StateScanning  State = "scanning"  // Decode loop running
	StateStopped   State = "stopped"   // Decode loop halted, handle still open
	StateDestroyed State = "destroyed" // Terminal, handle released
)

// States lists every state in lifecycle order.
var States = []State{StateIdle, StatePlaying, StateScanning, StateStopped, StateDestroyed}

// HasHandle reports whether a session in this state holds an open handle.
func (s State) HasHandle() bool {
	return s == StatePlaying || s == StateScanning || s == StateStopped
}
