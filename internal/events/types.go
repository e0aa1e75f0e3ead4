package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeScannerReady
	TypeCodeDetected
	TypeDecodeAttempted
	TypeSessionError
	TypeParametersChanged
	TypeLogEntry
	TypeScannerMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published on every capture session transition.
// Used for LED control and metrics.
type SessionStateChangedEvent struct {
	SessionID     string `json:"session_id" example:"6f1c2c1e-8a43-4f55-9a38-5d1a7c0b0d9e" doc:"Capture session identifier"`
	State         string `json:"state" example:"scanning" doc:"New session state"`
	PreviousState string `json:"previous_state" example:"playing" doc:"State before the transition"`
	Detected      bool   `json:"detected,omitempty" doc:"Set on the stop that follows a code detection"`
	Timestamp     string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// ScannerReadyEvent is published once per session when the first frame arrives.
type ScannerReadyEvent struct {
	SessionID string `json:"session_id" doc:"Capture session identifier"`
	Rotation  int    `json:"rotation" example:"0" doc:"Clockwise rotation of the raw image in degrees"`
	ScaleX    int    `json:"scale_x" example:"1" doc:"Horizontal scale, -1 when mirrored"`
	ScaleY    int    `json:"scale_y" example:"1" doc:"Vertical scale, -1 when mirrored"`
	Width     int    `json:"width" example:"1280" doc:"Raw frame width"`
	Height    int    `json:"height" example:"720" doc:"Raw frame height"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ScannerReadyEvent.
func (e ScannerReadyEvent) Type() uint32 { return TypeScannerReady }

// CodeDetectedEvent is published when a scan finds a code.
type CodeDetectedEvent struct {
	SessionID string `json:"session_id" doc:"Capture session identifier"`
	Symbology string `json:"symbology" example:"QR_CODE" doc:"Barcode format"`
	Value     string `json:"value" example:"https://example.com" doc:"Decoded text"`
	FrameSeq  uint64 `json:"frame_seq" example:"42" doc:"Sequence number of the decoded frame"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CodeDetectedEvent.
func (e CodeDetectedEvent) Type() uint32 { return TypeCodeDetected }

// DecodeAttemptedEvent is published after every decoder call.
type DecodeAttemptedEvent struct {
	SessionID  string  `json:"session_id" doc:"Capture session identifier"`
	Found      bool    `json:"found" doc:"Whether a code was found"`
	Seconds    float64 `json:"seconds" example:"0.012" doc:"Decoder run time"`
	Background bool    `json:"background" doc:"Whether the attempt ran off the host loop"`
	Discarded  bool    `json:"discarded" doc:"Result arrived after its scan was stopped"`
}

// Type returns the event type identifier for DecodeAttemptedEvent.
func (e DecodeAttemptedEvent) Type() uint32 { return TypeDecodeAttempted }

// SessionErrorEvent reports a failed session operation.
type SessionErrorEvent struct {
	SessionID string `json:"session_id" doc:"Capture session identifier"`
	Operation string `json:"operation" example:"open" doc:"Operation that failed"`
	Code      string `json:"code" example:"DEVICE_UNAVAILABLE" doc:"Error code"`
	Message   string `json:"message" doc:"Error message"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionErrorEvent.
func (e SessionErrorEvent) Type() uint32 { return TypeSessionError }

// ParametersChangedEvent is published after the parameter store accepts a write.
type ParametersChangedEvent struct {
	Version   uint64   `json:"version" example:"3" doc:"Store version after the write"`
	Fields    []string `json:"fields,omitempty" doc:"Changed fields, empty on reset"`
	Source    string   `json:"source" example:"api" doc:"Writer: api, file or reset"`
	Timestamp string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ParametersChangedEvent.
func (e ParametersChangedEvent) Type() uint32 { return TypeParametersChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"session" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// ScannerMetricsEvent is a periodic summary of the scanner counters.
type ScannerMetricsEvent struct {
	State          string `json:"state" example:"scanning" doc:"Current session state"`
	DecodeAttempts string `json:"decode_attempts" example:"120" doc:"Decode attempts since start"`
	Detections     string `json:"detections" example:"3" doc:"Codes detected since start"`
	LastDecodeMs   string `json:"last_decode_ms" example:"12.50" doc:"Duration of the last decode attempt"`
}

// Type returns the event type identifier for ScannerMetricsEvent.
func (e ScannerMetricsEvent) Type() uint32 { return TypeScannerMetrics }
