// Package chat answers conversational turns through the chat-completion ladder:
// the primary model, then the fallback model, then a fixed degraded reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/internal/ladder"
	"github.com/ahrav/go-resilient/internal/llm"
	"github.com/ahrav/go-resilient/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/internal/llm/resilience"
	"github.com/ahrav/go-resilient/internal/llm/transport"
)

// Operation is the ladder operation name for chat replies.
const Operation = "chat"

// Rung names.
const (
	RungPrimary  = "primary-model"
	RungFallback = "fallback-model"
)

// Completer performs one chat-completion call. llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics resilience.Metrics
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics collector used by the ladder.
func WithMetrics(metrics resilience.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// Service builds prompts and runs them through the chat ladder.
type Service struct {
	cfg    configuration.ChatConfig
	ladder *ladder.Ladder[[]transport.Message, string]
	logger *slog.Logger
}

// NewService builds the chat ladder from cfg. The fallback rung is omitted when
// cfg.FallbackProvider is empty. authorizer may be nil unless cfg.RequiresAuth is set.
func NewService(completer Completer, authorizer ladder.Authorizer, cfg configuration.ChatConfig, opts ...Option) (*Service, error) {
	if completer == nil {
		return nil, errors.New("chat: completer is required")
	}
	if cfg.PrimaryProvider == "" {
		return nil, errors.New("chat: primary provider is required")
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = configuration.DefaultFallbackMessage
	}

	o := options{logger: slog.Default().With("component", "chat")}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{cfg: cfg, logger: o.logger}

	rungs := []ladder.Rung[[]transport.Message, string]{
		s.rung(completer, RungPrimary, domain.SourcePrimaryModel, cfg.PrimaryProvider),
	}
	if cfg.FallbackProvider != "" {
		rungs = append(rungs, s.rung(completer, RungFallback, domain.SourceFallbackModel, cfg.FallbackProvider))
	}

	var authz ladder.Authorizer
	if cfg.RequiresAuth {
		authz = authorizer
	}

	l, err := ladder.New(ladder.Config[[]transport.Message, string]{
		Operation:  Operation,
		Rungs:      rungs,
		Authorizer: authz,
		Logger:     o.logger,
		Metrics:    o.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("building chat ladder: %w", err)
	}
	s.ladder = l
	return s, nil
}

func (s *Service) rung(c Completer, name string, source domain.Source, provider string) ladder.Rung[[]transport.Message, string] {
	return ladder.Rung[[]transport.Message, string]{
		Name:         name,
		Source:       source,
		RequiresAuth: s.cfg.RequiresAuth,
		Timeout:      s.cfg.Timeout,
		Invoke: func(ctx context.Context, msgs []transport.Message) (string, error) {
			text, err := c.Complete(ctx, llm.CompletionRequest{
				Provider:    provider,
				Messages:    msgs,
				MaxTokens:   s.cfg.MaxTokens,
				Temperature: s.cfg.Temperature,
				TopP:        s.cfg.TopP,
			})
			if err != nil {
				return "", err
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return "", fmt.Errorf("%s returned an empty reply: %w", provider, llmerrors.ErrInvalidResponse)
			}
			return truncate(text, s.cfg.MaxReplyChars), nil
		},
		ShouldEscalate: ladder.EscalateTransient,
	}
}

// Reply answers req.
//
// Invalid requests return a *llmerrors.ValidationError and contact no provider.
// Caller cancellation returns the context error. Every other failure, including
// exhaustion of both models, yields a degraded reply with Success false and the
// raw failure in Error.
func (s *Service) Reply(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error) {
	if err := req.Validate(); err != nil {
		return domain.ChatReply{}, callerInput(err)
	}

	res, err := s.ladder.Invoke(ctx, s.Messages(req))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.ChatReply{}, err
		}
		s.logger.Warn("chat ladder failed, returning degraded reply",
			"session_id", req.SessionID,
			"attempts", len(res.Attempts),
			"error", err,
		)
		return domain.ChatReply{
			Text:     s.cfg.FallbackMessage,
			Source:   domain.SourceDegraded,
			Success:  false,
			Error:    err.Error(),
			Attempts: res.Trail(),
		}, nil
	}

	return domain.ChatReply{
		Text:     res.Value,
		Source:   res.Source,
		Model:    s.providerFor(res.Provider),
		Success:  true,
		Attempts: res.Trail(),
	}, nil
}

// Messages assembles the provider conversation for req: the system preamble,
// the most recent history turns and the new user turn, each capped in length.
func (s *Service) Messages(req domain.ChatRequest) []transport.Message {
	history := req.History
	if n := s.cfg.HistoryTurns; n >= 0 && len(history) > n {
		history = history[len(history)-n:]
	}

	msgs := make([]transport.Message, 0, len(history)+2)
	if s.cfg.SystemPrompt != "" {
		msgs = append(msgs, transport.Message{Role: string(domain.RoleSystem), Content: s.cfg.SystemPrompt})
	}
	for _, turn := range history {
		msgs = append(msgs, transport.Message{
			Role:    string(turn.Role),
			Content: truncate(turn.Content, s.cfg.MaxMessageChars),
		})
	}
	msgs = append(msgs, transport.Message{
		Role:    string(domain.RoleUser),
		Content: truncate(strings.TrimSpace(req.Message), s.cfg.MaxMessageChars),
	})
	return msgs
}

func (s *Service) providerFor(rung string) string {
	if rung == RungFallback {
		return s.cfg.FallbackProvider
	}
	return s.cfg.PrimaryProvider
}

// truncate caps s at limit runes; limit <= 0 disables the cap.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func callerInput(err error) error {
	verr := &llmerrors.ValidationError{Message: err.Error(), Cause: err}
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		verr.Field = fe.Field
		verr.Value = fe.Value
		verr.Message = fmt.Sprintf("failed %q validation", fe.Tag)
	}
	return verr
}
