package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"unicode"

	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
)

// Provider adapter errors.
var (
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// classifyErrorType determines ErrorType from HTTP status, provider error code
// and message. Provider codes and messages are checked before the status so
// that a 503 "model is currently loading" is distinguished from an outage.
// Codes are matched on whole tokens, so "context_limit_exceeded" is not a
// rate limit.
func classifyErrorType(statusCode int, errorCode, message string) llmerrors.ErrorType {
	code := codeTokens(errorCode)
	lowerMsg := strings.ToLower(message)

	switch {
	case strings.Contains(lowerMsg, "currently loading") || strings.Contains(lowerMsg, "is loading") ||
		code.has("loading"):
		return llmerrors.ErrorTypeModelLoading
	case code.has("ratelimit") || code.has("throttled") || code.hasPair("rate", "limit") ||
		code.hasPair("rate", "limited") || code.hasPair("too", "many"):
		return llmerrors.ErrorTypeRateLimit
	case code.has("timeout") || code.hasPair("timed", "out"):
		return llmerrors.ErrorTypeTimeout
	case code.has("expired") || code.has("unauthorized") || code.has("unauthenticated") ||
		code.has("auth") || code.has("authentication") || code.hasPair("invalid", "token") ||
		strings.Contains(lowerMsg, "token expired") || strings.Contains(lowerMsg, "jwt expired"):
		return llmerrors.ErrorTypeAuth
	case code.has("permission") || code.has("forbidden"):
		return llmerrors.ErrorTypePermission
	case code.has("quota"):
		return llmerrors.ErrorTypeQuota
	}

	return llmerrors.TypeFromStatus(statusCode)
}

// tokenSet is a provider error code split into lower-case words.
type tokenSet []string

// codeTokens splits codes such as "rate_limit_exceeded", "rate-limited" or
// "RateLimitError" into words. Camel case is split at upper-case letters.
func codeTokens(code string) tokenSet {
	var (
		tokens tokenSet
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	prevLower := false
	for _, r := range code {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				flush()
			}
			word.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
			prevLower = true
		default:
			flush()
			prevLower = false
		}
	}
	flush()
	return tokens
}

func (t tokenSet) has(word string) bool {
	return slices.Contains(t, word)
}

// hasPair reports whether first is immediately followed by second.
func (t tokenSet) hasPair(first, second string) bool {
	for i := 0; i+1 < len(t); i++ {
		if t[i] == first && t[i+1] == second {
			return true
		}
	}
	return false
}

// errorEnvelope accepts both {"error": {"message", "type", "code"}} and
// {"error": "text", "estimated_time": n} error bodies.
type errorEnvelope struct {
	Error         json.RawMessage `json:"error"`
	EstimatedTime float64         `json:"estimated_time"`
}

// parseErrorResponse converts a non-2xx provider response into a ProviderError.
func parseErrorResponse(provider string, statusCode int, header http.Header, body []byte) error {
	var (
		message, code string
		estimated     float64
	)

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Error) > 0 {
		estimated = env.EstimatedTime
		var text string
		if json.Unmarshal(env.Error, &text) == nil {
			message = text
		} else {
			var detail struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    any    `json:"code"`
			}
			if json.Unmarshal(env.Error, &detail) == nil {
				message = detail.Message
				code = detail.Type
				if c, ok := detail.Code.(string); ok && c != "" {
					code = c
				}
			}
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	errType := classifyErrorType(statusCode, code, message)
	if statusCode == http.StatusServiceUnavailable && estimated > 0 {
		errType = llmerrors.ErrorTypeModelLoading
	}

	return &llmerrors.ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
		Type:       errType,
		RetryAfter: retryAfterSeconds(header, estimated),
	}
}

// invalidResponse reports a 2xx response that does not carry the expected payload.
// readBody reads at most limit bytes of a provider response and reports
// whether the body was longer.
func readBody(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

// oversized is the invalid response returned for a success body over limit.
func oversized(provider string, limit int64) error {
	return invalidResponse(provider, fmt.Sprintf("response body exceeds %d bytes", limit))
}

func invalidResponse(provider, message string) error {
	return &llmerrors.ProviderError{
		Provider:   provider,
		StatusCode: http.StatusOK,
		Message:    message,
		Type:       llmerrors.ErrorTypeInvalidResponse,
	}
}

func retryAfterSeconds(header http.Header, estimated float64) int {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return secs
		}
	}
	if estimated > 0 {
		return int(math.Ceil(estimated))
	}
	return 0
}

func requestIDs(header http.Header) []string {
	ids := []string{}
	for _, h := range []string{"x-request-id", "x-compute-request-id"} {
		if id := header.Get(h); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
