package params

import "fmt"

// ValidationError reports a rejected parameter value. The store is left
// unchanged when one is returned.
type ValidationError struct {
	Field  Field
	Value  any
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s %v: %s: %v", e.Field, e.Value, e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func invalid(field Field, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func invalidCause(field Field, value any, reason string, cause error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason, Cause: cause}
}
