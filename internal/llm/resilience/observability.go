// Package resilience provides observability for outbound provider calls:
// a structured logging middleware and the Metrics interface shared by the
// transport pipeline, the ladders and the credential coordinator.
package resilience

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ahrav/go-resilient/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/internal/llm/transport"
)

// Logging constants define limits and settings for observability.
const (
	// ContentTruncationLimit specifies the maximum number of characters
	// to include from a response content in logs before truncating.
	ContentTruncationLimit = 200
)

// Metric names emitted by the call layer.
const (
	MetricProviderRequests   = "provider.requests.total"
	MetricProviderDuration   = "provider.request.duration_ms"
	MetricProviderErrors     = "provider.errors.total"
	MetricRungAttempts       = "ladder.rung.attempts"
	MetricEscalations        = "ladder.escalations.total"
	MetricAnswers            = "ladder.answers.total"
	MetricRenewals           = "credentials.renewals.total"
	MetricCredentialsWaiters = "credentials.waiters"
)

// Metrics provides an interface for collecting observability data.
// It supports counters, histograms, and gauges with tag-based
// dimensionality.
type Metrics interface {
	// IncrementCounter increases a counter metric by a given value.
	IncrementCounter(name string, tags map[string]string, value float64)
	// RecordHistogram records a value in a histogram metric.
	RecordHistogram(name string, tags map[string]string, value float64)
	// SetGauge sets a gauge metric to a specific value.
	SetGauge(name string, tags map[string]string, value float64)
}

// NoOpMetrics provides a no-op implementation of the Metrics interface.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a new no-op metrics collector.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// IncrementCounter discards its input.
func (n *NoOpMetrics) IncrementCounter(_ string, _ map[string]string, _ float64) {}

// RecordHistogram discards its input.
func (n *NoOpMetrics) RecordHistogram(_ string, _ map[string]string, _ float64) {}

// SetGauge discards its input.
func (n *NoOpMetrics) SetGauge(_ string, _ map[string]string, _ float64) {}

// LoggingMiddleware logs and meters every provider call. Prompt and reply
// content is reduced to lengths when redaction is enabled.
type LoggingMiddleware struct {
	logger        *slog.Logger
	metrics       Metrics
	redactPrompts bool
}

// NewLoggingMiddleware creates a transport.Middleware for observability.
// Nil logger and metrics fall back to slog.Default and NoOpMetrics.
func NewLoggingMiddleware(config configuration.ObservabilityConfig, logger *slog.Logger, metrics Metrics) transport.Middleware {
	if logger == nil {
		logger = slog.Default().With("component", "provider")
	}
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}

	lm := &LoggingMiddleware{
		logger:        logger,
		metrics:       metrics,
		redactPrompts: config.RedactPrompts,
	}
	return lm.Middleware()
}

// Middleware returns the transport.Middleware wrapping a handler.
func (m *LoggingMiddleware) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if req.TraceID == "" {
				req.TraceID = transport.ExtractTraceID(ctx)
			}

			baseTags := map[string]string{
				"provider":  req.Provider,
				"operation": string(req.Operation),
			}

			m.logRequest(req)
			m.metrics.IncrementCounter(MetricProviderRequests, baseTags, 1)

			start := time.Now()
			resp, err := next.Handle(ctx, req)
			duration := time.Since(start)

			m.metrics.RecordHistogram(MetricProviderDuration, baseTags, float64(duration.Milliseconds()))

			if err != nil {
				m.handleError(req, err, duration, baseTags)
			} else if resp != nil {
				m.handleSuccess(req, resp, duration)
			}

			return resp, err
		})
	}
}

func (m *LoggingMiddleware) logRequest(req *transport.Request) {
	fields := []any{
		"trace_id", req.TraceID,
		"provider", req.Provider,
		"model", req.Model,
		"operation", req.Operation,
		"timeout_seconds", req.Timeout.Seconds(),
	}

	switch req.Operation {
	case transport.OpChat:
		fields = append(fields, "messages", len(req.Messages), "max_tokens", req.MaxTokens)
		if last := lastUserContent(req.Messages); last != "" {
			if m.redactPrompts {
				fields = append(fields, "prompt_length", len(last))
			} else {
				fields = append(fields, "prompt", truncate(last))
			}
		}
	case transport.OpSuitability:
		if req.Features != nil {
			fields = append(fields, "district", req.Features.District, "season", req.Features.Season)
		}
	}

	m.logger.Debug("provider request started", fields...)
}

func (m *LoggingMiddleware) handleError(req *transport.Request, err error, duration time.Duration, baseTags map[string]string) {
	class := llmerrors.Classify(err)

	errorTags := copyTags(baseTags)
	errorTags["class"] = class.String()
	m.metrics.IncrementCounter(MetricProviderErrors, errorTags, 1)

	m.logger.Warn("provider request failed",
		"trace_id", req.TraceID,
		"provider", req.Provider,
		"model", req.Model,
		"operation", req.Operation,
		"duration_ms", duration.Milliseconds(),
		"class", class.String(),
		"error", err.Error(),
	)
}

func (m *LoggingMiddleware) handleSuccess(req *transport.Request, resp *transport.Response, duration time.Duration) {
	fields := []any{
		"trace_id", req.TraceID,
		"provider", req.Provider,
		"model", req.Model,
		"operation", req.Operation,
		"duration_ms", duration.Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens,
		"provider_request_ids", strings.Join(resp.ProviderRequestIDs, ","),
	}

	switch {
	case req.Operation == transport.OpSuitability:
		fields = append(fields, "recommendations", len(resp.Recommendations))
	case m.redactPrompts:
		fields = append(fields, "response_length", len(resp.Content))
	default:
		fields = append(fields, "response_preview", truncate(resp.Content))
	}

	m.logger.Info("provider request completed", fields...)
}

func lastUserContent(msgs []transport.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) > ContentTruncationLimit {
		return s[:ContentTruncationLimit] + "..."
	}
	return s
}

// copyTags creates a copy of a metric tag map.
func copyTags(original map[string]string) map[string]string {
	tagsCopy := make(map[string]string, len(original)+1)
	for k, v := range original {
		tagsCopy[k] = v
	}
	return tagsCopy
}
