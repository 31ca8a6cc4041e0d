package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-resilient/internal/domain"
)

// OperationType differentiates the logical operations carried over the transport.
// Affects routing, rate limiting keys and metrics labeling.
type OperationType string

const (
	// OpChat is a chat-completion call against a language model.
	OpChat OperationType = "chat"

	// OpSuitability is a crop suitability prediction against the inference service.
	OpSuitability OperationType = "suitability"
)

// Message is one chat message in provider wire order.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a normalized request across all providers.
type Request struct {
	Operation OperationType `json:"operation"`

	// Provider identifies which configured adapter serves the call.
	Provider string `json:"provider"`

	// Model specifies the exact model to use for chat calls.
	Model string `json:"model,omitempty"`

	// Chat parameters.
	Messages    []Message `json:"messages,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`

	// Features is the suitability payload for inference calls.
	Features *domain.SuitabilityInput `json:"features,omitempty"`

	// AccessToken is the session credential, set by the bearer middleware for
	// calls routed through the credential coordinator. Adapters fall back to the
	// provider's static API key when it is empty.
	AccessToken string `json:"-"`

	Timeout time.Duration `json:"timeout"`
	TraceID string        `json:"trace_id"`
}

// Response represents normalized output from any provider.
type Response struct {
	// Content is the reply text for chat calls.
	Content string `json:"content"`

	// Recommendations is the ranked list for suitability calls.
	Recommendations []domain.Recommendation `json:"recommendations,omitempty"`

	ProviderRequestIDs []string        `json:"provider_request_ids"`
	Usage              NormalizedUsage `json:"usage"`

	// Headers preserves raw response headers for debugging.
	Headers http.Header `json:"-"`

	// RawBody preserves the original response for audit.
	RawBody []byte `json:"-"`
}

// NormalizedUsage provides consistent usage metrics across providers.
type NormalizedUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}

type traceIDKey struct{}

// WithTraceID returns a context carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// ExtractTraceID returns the trace identifier carried by ctx, or a new UUID
// when none is present.
func ExtractTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}
