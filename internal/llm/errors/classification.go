package errors

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Classify reduces any error to its outcome Class.
// Strongly-typed errors are checked first, then sentinels, then transport-level
// errors, and finally message patterns for untyped errors from third-party code.
func Classify(err error) Class {
	if err == nil {
		return ClassOK
	}

	if class, ok := classifyTyped(err); ok {
		return class
	}
	if class, ok := classifySentinel(err); ok {
		return class
	}
	if class, ok := classifyTransport(err); ok {
		return class
	}
	return classifyStringPattern(err)
}

// IsAuthExpired reports whether err is an expired or rejected access token.
func IsAuthExpired(err error) bool { return Classify(err) == ClassAuthExpired }

// IsTransient reports whether err is worth escalating to another provider.
func IsTransient(err error) bool { return Classify(err) == ClassTransient }

// IsCallerInput reports whether err is a caller-input failure.
func IsCallerInput(err error) bool { return Classify(err) == ClassInvalid }

func classifyTyped(err error) (Class, bool) {
	// Renewal failures end the session; checked first because they may wrap
	// a transport error from the renewal call itself.
	var renewalErr *RenewalError
	if errors.As(err, &renewalErr) {
		return ClassFatal, true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Type.Class(), true
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return ClassTransient, true
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return ClassInvalid, true
	}

	return ClassOK, false
}

func classifySentinel(err error) (Class, bool) {
	switch {
	case errors.Is(err, ErrSessionTerminated), errors.Is(err, ErrNoRefreshToken), errors.Is(err, ErrLoggedOut):
		return ClassFatal, true
	case errors.Is(err, ErrAuthExpired):
		return ClassAuthExpired, true
	case errors.Is(err, ErrRateLimitExceeded), errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrInvalidResponse):
		return ClassTransient, true
	case errors.Is(err, ErrUnknownProvider):
		return ClassFatal, true
	}
	return ClassOK, false
}

func classifyTransport(err error) (Class, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient, true
	}
	// Caller cancellation is not a provider health signal.
	if errors.Is(err, context.Canceled) {
		return ClassFatal, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient, true
	}
	return ClassOK, false
}

// classifyStringPattern handles untyped errors by message inspection.
func classifyStringPattern(err error) Class {
	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "token expired"), strings.Contains(errMsg, "jwt expired"),
		strings.Contains(errMsg, "invalid token"), strings.Contains(errMsg, "unauthorized"):
		return ClassAuthExpired
	case strings.Contains(errMsg, "currently loading"), strings.Contains(errMsg, "is loading"):
		return ClassTransient
	case strings.Contains(errMsg, "rate limit"):
		return ClassTransient
	case strings.Contains(errMsg, "timeout"), strings.Contains(errMsg, "deadline"):
		return ClassTransient
	case strings.Contains(errMsg, "network"), strings.Contains(errMsg, "connection"):
		return ClassTransient
	case strings.Contains(errMsg, "forbidden"), strings.Contains(errMsg, "permission"),
		strings.Contains(errMsg, "quota"):
		return ClassFatal
	default:
		return ClassFatal
	}
}
