package activity

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
)

// Application error types reported to workflows. Workflows list the
// non-retryable ones in their retry policy.
const (
	// ErrorTypeValidation marks caller-input failures.
	ErrorTypeValidation = "Validation"
	// ErrorTypeSession marks a terminated credential session; the user must log in again.
	ErrorTypeSession = "SessionTerminated"
	// ErrorTypeProvider marks provider failures that survived the ladder.
	ErrorTypeProvider = "Provider"
)

// NonRetryableErrorTypes lists the application error types workflows must not retry.
var NonRetryableErrorTypes = []string{ErrorTypeValidation, ErrorTypeSession}

// toApplicationError maps a service failure onto a Temporal application error.
// Caller input and session termination are non-retryable; transient provider
// failures are left for the workflow retry policy.
func toApplicationError(cause error, msg string) error {
	switch {
	case llmerrors.IsCallerInput(cause):
		return nonRetryable(ErrorTypeValidation, cause, msg)
	case errors.Is(cause, llmerrors.ErrSessionTerminated), errors.Is(cause, llmerrors.ErrLoggedOut):
		return nonRetryable(ErrorTypeSession, cause, msg)
	case llmerrors.IsTransient(cause):
		return retryable(ErrorTypeProvider, cause, msg)
	default:
		return nonRetryable(ErrorTypeProvider, cause, msg)
	}
}

// nonRetryable wraps an error as a Temporal non-retryable application error.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// retryable wraps an error as a Temporal retryable application error.
func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
