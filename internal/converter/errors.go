package converter

import (
	"context"
	"errors"
	"fmt"

	"conversion-gateway/internal/transcoder"
)

// ErrUnsupportedFormat indicates that the declared media type has no
// conversion strategy.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ValidationError reports a malformed request. No tool was run.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// TransportError reports that the converted artifact could not be delivered,
// typically because the client went away. The conversion itself succeeded.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ToolFailure is re-exported so callers need not import the transcoder.
type ToolFailure = transcoder.ToolFailure

// Outcome labels the terminal state of a conversion.
type Outcome string

// Terminal outcomes.
const (
	OutcomeSuccess           Outcome = "success"
	OutcomeToolFailure       Outcome = "tool_failure"
	OutcomeUnsupportedFormat Outcome = "unsupported_format"
	OutcomeValidationError   Outcome = "validation_error"
	OutcomeTransportError    Outcome = "transport_error"
)

// OutcomeOf maps an error returned by Convert to its outcome. Errors that do
// not belong to the taxonomy, such as a missing conversion slot or a
// canceled request, are reported as tool failures because no output was
// produced.
func OutcomeOf(err error) Outcome {
	var (
		validation *ValidationError
		transport  *TransportError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &validation):
		return OutcomeValidationError
	case errors.Is(err, ErrUnsupportedFormat):
		return OutcomeUnsupportedFormat
	case errors.As(err, &transport):
		return OutcomeTransportError
	default:
		return OutcomeToolFailure
	}
}

// IsClientGone reports whether err stems from the caller canceling the
// request rather than from the tool itself.
func IsClientGone(err error) bool {
	return errors.Is(err, context.Canceled)
}
