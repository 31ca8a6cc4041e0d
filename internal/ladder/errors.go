package ladder

import (
	"errors"
	"fmt"
	"strings"
)

// RungError is a failure the rung's classifier declined to escalate.
type RungError struct {
	Operation string
	Rung      string
	Err       error
}

func (e *RungError) Error() string {
	return fmt.Sprintf("%s: rung %s failed: %v", e.Operation, e.Rung, e.Err)
}

func (e *RungError) Unwrap() error { return e.Err }

// ExhaustedError reports that every rung failed and escalated on a ladder
// without a terminal rung.
type ExhaustedError struct {
	Operation string
	Attempts  []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Rung, a.Err))
	}
	return fmt.Sprintf("%s: all %d rungs failed (%s)", e.Operation, len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes every rung failure to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Last returns the final rung failure, or nil.
func (e *ExhaustedError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// IsExhausted reports whether err is an ExhaustedError.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}
