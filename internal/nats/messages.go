// Package nats mirrors scanner events onto NATS subjects and answers
// control requests, so other services can trigger scans and consume codes.
//
// Subjects, for a node named "dock-1":
//
//	scannode.dock-1.detections        # CodeDetectedEvent (node → subscribers)
//	scannode.dock-1.state             # SessionStateChangedEvent
//	scannode.dock-1.control.<op>      # request/reply: open, scan, stop, close, status
//
// Watch a node with the nats CLI:
//
//	nats sub "scannode.dock-1.>"
//	nats request scannode.dock-1.control.scan '{"wait_seconds": 10}'
package nats

import (
	"fmt"

	"github.com/smazurov/scannode/internal/host"
	"github.com/smazurov/scannode/internal/scanner"
)

// SubjectPrefix is the root of every subject the bridge uses.
const SubjectPrefix = "scannode"

// Control operations.
const (
	OpOpen   = "open"
	OpScan   = "scan"
	OpStop   = "stop"
	OpClose  = "close"
	OpStatus = "status"
)

// Error codes carried in ControlReply.Code besides the session codes.
const (
	CodeNoSession  = "NO_SESSION"
	CodeTimeout    = "TIMEOUT"
	CodeBadRequest = "BAD_REQUEST"
	CodeInternal   = "INTERNAL"
)

// SubjectDetections carries every detected code.
func SubjectDetections(node string) string {
	return fmt.Sprintf("%s.%s.detections", SubjectPrefix, node)
}

// SubjectState carries session state transitions.
func SubjectState(node string) string {
	return fmt.Sprintf("%s.%s.state", SubjectPrefix, node)
}

// SubjectControl is the request subject for op.
func SubjectControl(node, op string) string {
	return fmt.Sprintf("%s.%s.control.%s", SubjectPrefix, node, op)
}

// ControlRequest is the optional body of a control request.
type ControlRequest struct {
	// WaitSeconds makes scan reply only once a code is found or the wait expires.
	WaitSeconds int `json:"wait_seconds,omitempty"`
}

// ControlReply answers every control request.
type ControlReply struct {
	OK     bool            `json:"ok"`
	Code   string          `json:"code,omitempty"`
	Error  string          `json:"error,omitempty"`
	Status *StatusMessage  `json:"status,omitempty"`
	Result *scanner.Result `json:"result,omitempty"`
}

// StatusMessage is the host status as sent over NATS.
type StatusMessage struct {
	Open       bool            `json:"open"`
	SessionID  string          `json:"session_id,omitempty"`
	State      string          `json:"state"`
	Ready      bool            `json:"ready"`
	LastResult *scanner.Result `json:"last_result,omitempty"`
	Detections uint64          `json:"detections"`
}

func toStatusMessage(st host.Status) *StatusMessage {
	return &StatusMessage{
		Open:       st.Open,
		SessionID:  st.SessionID,
		State:      string(st.State),
		Ready:      st.Ready,
		LastResult: st.LastResult,
		Detections: st.Detections,
	}
}
