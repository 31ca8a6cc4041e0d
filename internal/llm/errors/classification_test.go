package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// timeoutNetError is a minimal net.Error for transport classification.
type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

var _ net.Error = timeoutNetError{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassOK},
		{"provider_auth", &ProviderError{StatusCode: http.StatusUnauthorized, Type: ErrorTypeAuth}, ClassAuthExpired},
		{"provider_loading", &ProviderError{StatusCode: http.StatusServiceUnavailable, Type: ErrorTypeModelLoading}, ClassTransient},
		{"provider_bad_request", &ProviderError{StatusCode: http.StatusBadRequest, Type: ErrorTypeValidation}, ClassInvalid},
		{"provider_forbidden", &ProviderError{StatusCode: http.StatusForbidden, Type: ErrorTypePermission}, ClassFatal},
		{"wrapped_provider", fmt.Errorf("rung primary: %w", &ProviderError{Type: ErrorTypeProvider}), ClassTransient},
		{"rate_limit", &RateLimitError{Provider: "local"}, ClassTransient},
		{"validation", &ValidationError{Field: "message"}, ClassInvalid},
		{"renewal", &RenewalError{Reason: "revoked"}, ClassFatal},
		{"renewal_wrapping_timeout", &RenewalError{Reason: "timeout", Cause: context.DeadlineExceeded}, ClassFatal},
		{"sentinel_auth", fmt.Errorf("replay: %w", ErrAuthExpired), ClassAuthExpired},
		{"sentinel_session", ErrSessionTerminated, ClassFatal},
		{"sentinel_no_refresh", ErrNoRefreshToken, ClassFatal},
		{"sentinel_invalid_response", fmt.Errorf("ml: %w", ErrInvalidResponse), ClassTransient},
		{"sentinel_unknown_provider", ErrUnknownProvider, ClassFatal},
		{"deadline", fmt.Errorf("HTTP request failed: %w", context.DeadlineExceeded), ClassTransient},
		{"canceled", context.Canceled, ClassFatal},
		{"net_error", timeoutNetError{}, ClassTransient},
		{"pattern_expired", errors.New("JWT expired at 12:00"), ClassAuthExpired},
		{"pattern_loading", errors.New("model is currently loading"), ClassTransient},
		{"pattern_connection", errors.New("connection refused"), ClassTransient},
		{"pattern_quota", errors.New("quota exhausted"), ClassFatal},
		{"pattern_unknown", errors.New("something odd"), ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassificationHelpers(t *testing.T) {
	auth := &ProviderError{Type: ErrorTypeAuth}
	assert.True(t, IsAuthExpired(auth))
	assert.False(t, IsTransient(auth))

	loading := &ProviderError{Type: ErrorTypeModelLoading}
	assert.True(t, IsTransient(loading))
	assert.False(t, IsCallerInput(loading))

	assert.True(t, IsCallerInput(&ValidationError{Message: "empty"}))
	assert.False(t, IsAuthExpired(nil))
}
