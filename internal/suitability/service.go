package suitability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/internal/ladder"
	"github.com/ahrav/go-resilient/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/internal/llm/resilience"
)

// Operation is the ladder operation name for crop suitability.
const Operation = "suitability"

// Rung names.
const (
	RungMLService = "ml-service"
	RungRules     = "rules"
)

// Predictor calls the remote inference service. llm.Client satisfies it.
type Predictor interface {
	Predict(ctx context.Context, provider string, in domain.SuitabilityInput) ([]domain.Recommendation, error)
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

// Service answers suitability requests through the ML service and rules ladder.
type Service struct {
	ladder *ladder.Ladder[domain.SuitabilityInput, []domain.Recommendation]
	logger *slog.Logger
}

// NewService builds the suitability ladder. A nil predictor yields a rules-only
// ladder. authorizer may be nil unless cfg.RequiresAuth is set.
func NewService(predictor Predictor, authorizer ladder.Authorizer, cfg configuration.SuitabilityConfig, opts ...Option) (*Service, error) {
	o := options{logger: slog.Default().With("component", "suitability")}
	for _, opt := range opts {
		opt(&o)
	}

	var rungs []ladder.Rung[domain.SuitabilityInput, []domain.Recommendation]
	if predictor != nil {
		provider := cfg.Provider
		if provider == "" {
			provider = configuration.DefaultMLProvider
		}
		rungs = append(rungs, ladder.Rung[domain.SuitabilityInput, []domain.Recommendation]{
			Name:         RungMLService,
			Source:       domain.SourceMLService,
			RequiresAuth: cfg.RequiresAuth,
			Timeout:      cfg.Timeout,
			Invoke: func(ctx context.Context, in domain.SuitabilityInput) ([]domain.Recommendation, error) {
				recs, err := predictor.Predict(ctx, provider, in)
				if err != nil {
					return nil, err
				}
				if len(recs) == 0 {
					return nil, fmt.Errorf("%s returned no recommendations: %w", provider, llmerrors.ErrInvalidResponse)
				}
				return recs, nil
			},
			ShouldEscalate: ladder.EscalateUnlessCallerInput,
		})
	}

	var authz ladder.Authorizer
	if cfg.RequiresAuth {
		authz = authorizer
	}

	l, err := ladder.New(ladder.Config[domain.SuitabilityInput, []domain.Recommendation]{
		Operation: Operation,
		Rungs:     rungs,
		Terminal: &ladder.Terminal[domain.SuitabilityInput, []domain.Recommendation]{
			Name:    RungRules,
			Source:  domain.SourceRules,
			Compute: Score,
		},
		Authorizer: authz,
		Logger:     o.logger,
		Metrics:    o.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("building suitability ladder: %w", err)
	}

	return &Service{ladder: l, logger: o.logger}, nil
}

// Recommend validates in and returns ranked crop recommendations. Invalid input
// is returned as a *llmerrors.ValidationError before any provider is contacted;
// any other outcome is an answer, from the ML service or the rules.
func (s *Service) Recommend(ctx context.Context, in domain.SuitabilityInput) (domain.SuitabilityResult, error) {
	if err := in.Validate(); err != nil {
		return domain.SuitabilityResult{}, callerInput(err)
	}

	res, err := s.ladder.Invoke(ctx, in)
	if err != nil {
		// A caller-input failure from the ML rung or caller cancellation.
		return domain.SuitabilityResult{}, err
	}

	if res.Source == domain.SourceRules && len(res.Attempts) > 1 {
		s.logger.Info("suitability answered by rules after ML failure",
			"error", res.Attempts[0].Err,
			"district", in.District,
		)
	}

	return domain.SuitabilityResult{
		Recommendations: res.Value,
		Source:          res.Source,
		Provider:        res.Provider,
		Attempts:        res.Trail(),
	}, nil
}

// callerInput converts a domain validation failure into the caller-input class.
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
