package session

import "fmt"

// Error codes for session operations.
const (
	ErrCodeDeviceUnavailable  = "DEVICE_UNAVAILABLE"
	ErrCodeSessionDestroyed   = "SESSION_DESTROYED"
	ErrCodePreconditionFailed = "PRECONDITION_FAILED"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrDeviceUnavailable = &Error{Code: ErrCodeDeviceUnavailable, Message: "capture device unavailable"}
	ErrSessionDestroyed  = &Error{Code: ErrCodeSessionDestroyed, Message: "session destroyed"}
	ErrPrecondition      = &Error{Code: ErrCodePreconditionFailed, Message: "precondition failed"}
)

// Error represents a session error with a code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func destroyedError(op string) *Error {
	return newError(ErrCodeSessionDestroyed, op+" called on a destroyed session", nil)
}

func preconditionError(op string, state State) *Error {
	return newError(ErrCodePreconditionFailed, fmt.Sprintf("%s not allowed while %s", op, state), nil)
}
