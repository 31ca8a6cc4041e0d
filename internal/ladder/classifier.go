package ladder

import (
	"context"
	"errors"

	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
)

// Classifier decides whether a rung failure advances to the next rung.
type Classifier func(err error) bool

// EscalateTransient escalates transient provider failures only: timeouts,
// rate limits, 5xx, model loading and malformed responses. Caller errors,
// auth failures that survived renewal and other fatal errors are surfaced.
func EscalateTransient(err error) bool {
	return llmerrors.Classify(err) == llmerrors.ClassTransient
}

// EscalateUnlessCallerInput escalates every failure except caller-input errors
// and caller cancellation, for rungs backed by a provider that can always be
// replaced by the next one.
func EscalateUnlessCallerInput(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return llmerrors.Classify(err) != llmerrors.ClassInvalid
}
