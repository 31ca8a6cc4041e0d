// Package errors defines the error taxonomy shared by provider adapters, the
// credential coordinator and fallback ladders. Provider adapters classify failures
// at the boundary into typed errors so that nothing deeper in the pipeline has to
// re-derive intent from message text.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType categorizes provider failures.
// Types map onto a Class which drives refresh and escalation decisions.
type ErrorType string

const (
	// ErrorTypeTimeout indicates request timeout or deadline exceeded (transient).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates rate limit exceeded (transient).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates network connectivity issues (transient).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates provider service unavailable or a 5xx response (transient).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeModelLoading indicates the model is still loading or initializing (transient).
	ErrorTypeModelLoading ErrorType = "model_loading"

	// ErrorTypeInvalidResponse indicates a response missing required fields (transient).
	ErrorTypeInvalidResponse ErrorType = "invalid_response"

	// ErrorTypeValidation indicates the request itself was rejected (caller input).
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeAuth indicates an expired or invalid access token.
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypePermission indicates insufficient permissions (fatal).
	ErrorTypePermission ErrorType = "permission_denied"

	// ErrorTypeQuota indicates account quota exceeded (fatal).
	ErrorTypeQuota ErrorType = "quota_exceeded"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Class is the outcome tag every failure is reduced to.
type Class int

const (
	// ClassOK means no failure.
	ClassOK Class = iota
	// ClassAuthExpired is recoverable exactly once through credential renewal.
	ClassAuthExpired
	// ClassTransient is recoverable by escalating to another provider.
	ClassTransient
	// ClassInvalid is a caller error; neither renewal nor escalation can help.
	ClassInvalid
	// ClassFatal is a non-transient provider or session failure.
	ClassFatal
)

// String returns the class name used in logs and metric tags.
func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassAuthExpired:
		return "auth_expired"
	case ClassTransient:
		return "transient"
	case ClassInvalid:
		return "invalid"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Class maps an ErrorType onto its outcome class.
func (t ErrorType) Class() Class {
	switch t {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider,
		ErrorTypeModelLoading, ErrorTypeInvalidResponse:
		return ClassTransient
	case ErrorTypeAuth:
		return ClassAuthExpired
	case ErrorTypeValidation:
		return ClassInvalid
	default:
		return ClassFatal
	}
}

var (
	// ErrAuthExpired indicates the access token was rejected as expired or invalid.
	ErrAuthExpired = errors.New("access token expired")

	// ErrSessionTerminated indicates the session ended and the user must re-authenticate.
	ErrSessionTerminated = errors.New("session terminated")

	// ErrNoRefreshToken indicates renewal was needed but no refresh token is held.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrLoggedOut indicates the credential pair was cleared by an explicit logout.
	ErrLoggedOut = errors.New("logged out")

	// ErrProviderUnavailable indicates the provider service is down or unreachable.
	ErrProviderUnavailable = errors.New("provider service unavailable")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnknownProvider indicates an unknown or unsupported provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidResponse indicates the provider returned a malformed response.
	ErrInvalidResponse = errors.New("invalid provider response")
)

// ProviderError captures structured error responses from providers.
type ProviderError struct {
	Provider   string    `json:"provider"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Code       string    `json:"code"`
	Type       ErrorType `json:"type"`
	RetryAfter int       `json:"retry_after"` // seconds
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is transient.
func (e *ProviderError) IsRetryable() bool {
	return e.Type.Class() == ClassTransient
}

// Is lets errors.Is(err, ErrAuthExpired) match provider auth rejections.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrAuthExpired:
		return e.Type == ErrorTypeAuth
	case ErrInvalidResponse:
		return e.Type == ErrorTypeInvalidResponse
	}
	return false
}

// GetRetryAfter returns the provider's suggested wait, or zero.
func (e *ProviderError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// RateLimitError reports a locally or remotely enforced rate limit.
type RateLimitError struct {
	Provider   string `json:"provider"`
	RetryAfter int    `json:"retry_after"`
	Limit      int    `json:"limit"`
	LocalLimit bool   `json:"local_limit"`
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %d seconds", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Provider)
}

// Unwrap exposes ErrRateLimitExceeded to errors.Is.
func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// ValidationError captures caller-input failures detected before any provider call.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// RenewalError reports a failed credential renewal. It always terminates the session.
type RenewalError struct {
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason"`
	Cause      error  `json:"-"`
}

func (e *RenewalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("credential renewal failed (status %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("credential renewal failed: %s", e.Reason)
}

func (e *RenewalError) Unwrap() error { return e.Cause }

// Is makes every renewal failure match ErrSessionTerminated.
func (e *RenewalError) Is(target error) bool { return target == ErrSessionTerminated }

// TypeFromStatus maps an HTTP status code to an ErrorType.
func TypeFromStatus(statusCode int) ErrorType {
	switch statusCode {
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusUnauthorized:
		return ErrorTypeAuth
	case http.StatusForbidden:
		return ErrorTypePermission
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	default:
		if statusCode >= http.StatusInternalServerError {
			return ErrorTypeProvider
		}
		return ErrorTypeUnknown
	}
}
