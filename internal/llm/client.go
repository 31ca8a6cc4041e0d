// Package llm provides the resilient HTTP client for chat-completion and
// suitability inference providers.
//
// Architecture:
//   - Provider-agnostic interface with an adapter per provider kind
//   - Middleware chain: logging/metrics, local rate limit, bearer credentials
//   - Request/response only (no streaming)
//   - Failures are classified at the adapter boundary so callers can decide
//     between renewal, escalation and surfacing without inspecting text
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahrav/go-resilient/internal/credentials"
	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/internal/llm/configuration"
	"github.com/ahrav/go-resilient/internal/llm/providers"
	"github.com/ahrav/go-resilient/internal/llm/ratelimit"
	"github.com/ahrav/go-resilient/internal/llm/resilience"
	"github.com/ahrav/go-resilient/internal/llm/transport"
)

// HTTP transport constants.
const (
	maxIdleConns        = 100
	idleTimeout         = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// CompletionRequest is one chat-completion call against a named provider.
type CompletionRequest struct {
	Provider    string
	Model       string
	Messages    []transport.Message
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Client issues provider calls through the middleware pipeline.
type Client interface {
	// Complete returns the reply text of a chat-completion call.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Predict returns the ranked recommendations of the named inference provider.
	Predict(ctx context.Context, provider string, in domain.SuitabilityInput) ([]domain.Recommendation, error)
}

// Option configures the client.
type Option func(*clientOptions)

type clientOptions struct {
	logger  *slog.Logger
	metrics resilience.Metrics
}

// WithLogger sets the logger used by the logging middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics resilience.Metrics) Option {
	return func(o *clientOptions) { o.metrics = metrics }
}

// client implements the Client interface with the full middleware pipeline.
type client struct {
	config  *configuration.Config
	handler transport.Handler
}

// NewClient creates a client for every provider in cfg.
func NewClient(cfg *configuration.Config, opts ...Option) (Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	router, err := providers.NewRouter(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          maxIdleConns,
				IdleConnTimeout:       idleTimeout,
				TLSHandshakeTimeout:   tlsHandshakeTimeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
			Timeout: cfg.HTTPTimeout,
		}
	}

	limiter, err := ratelimit.NewLimiter(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	handler := transport.Chain(
		transport.NewHTTPHandler(httpClient, router),
		resilience.NewLoggingMiddleware(cfg.Observability, o.logger, o.metrics),
		limiter.Middleware(),
		credentials.BearerMiddleware(),
	)

	return &client{config: cfg, handler: handler}, nil
}

// Complete implements Client.Complete.
func (c *client) Complete(ctx context.Context, in CompletionRequest) (string, error) {
	req := &transport.Request{
		Operation:   transport.OpChat,
		Provider:    in.Provider,
		Model:       in.Model,
		Messages:    in.Messages,
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
		TopP:        in.TopP,
		Timeout:     c.providerTimeout(in.Provider),
		TraceID:     transport.ExtractTraceID(ctx),
	}

	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Predict implements Client.Predict.
func (c *client) Predict(ctx context.Context, provider string, in domain.SuitabilityInput) ([]domain.Recommendation, error) {
	req := &transport.Request{
		Operation: transport.OpSuitability,
		Provider:  provider,
		Features:  &in,
		Timeout:   c.providerTimeout(provider),
		TraceID:   transport.ExtractTraceID(ctx),
	}

	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

func (c *client) providerTimeout(provider string) time.Duration {
	if p, ok := c.config.Providers[provider]; ok {
		return p.Timeout
	}
	return 0
}
