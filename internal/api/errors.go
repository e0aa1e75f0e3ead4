package api

import (
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/scannode/internal/host"
	"github.com/smazurov/scannode/internal/params"
	"github.com/smazurov/scannode/internal/session"
)

// mapScannerError converts host and session errors to HTTP errors.
func mapScannerError(err error) error {
	var validation *params.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &validation):
		return mapValidationError(validation)
	case errors.Is(err, host.ErrNoSession):
		return huma.Error404NotFound("Scanner is not open", err)
	case errors.Is(err, session.ErrDeviceUnavailable):
		return huma.Error503ServiceUnavailable("Capture device unavailable", err)
	case errors.Is(err, session.ErrPrecondition), errors.Is(err, session.ErrSessionDestroyed):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, host.ErrNotRunning):
		return huma.Error503ServiceUnavailable("Scanner host is not running", err)
	default:
		return huma.Error500InternalServerError("Scanner operation failed", err)
	}
}

// mapValidationError reports the rejected field in the error detail's
// location so clients can highlight it.
func mapValidationError(err *params.ValidationError) error {
	return huma.Error422UnprocessableEntity("Invalid parameter value", &huma.ErrorDetail{
		Message:  err.Error(),
		Location: fmt.Sprintf("body.values.%s", err.Field),
		Value:    err.Value,
	})
}
