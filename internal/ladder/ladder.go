// Package ladder invokes an ordered list of interchangeable providers for one
// logical operation, returning the first success.
//
// Each rung owns an escalation classifier that decides whether its failure
// should advance to the next rung or be surfaced to the caller. An optional
// terminal rung is a total function that cannot fail; a ladder that has one
// always produces an answer for valid input.
package ladder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/internal/llm/resilience"
)

// Configuration errors returned by New.
var (
	ErrNoRungs            = errors.New("ladder has neither rungs nor a terminal")
	ErrDuplicateRung      = errors.New("duplicate rung name")
	ErrUnnamedRung        = errors.New("rung name is required")
	ErrMissingInvoke      = errors.New("rung invoke is required")
	ErrMissingClassifier  = errors.New("rung escalation classifier is required")
	ErrMissingAuthorizer  = errors.New("rung requires auth but ladder has no authorizer")
	ErrMissingTerminalFn  = errors.New("terminal compute is required")
	ErrMissingOperationID = errors.New("operation name is required")
)

// Authorizer routes a call through credential handling. The credential
// coordinator satisfies it; the ladder knows nothing else about credentials.
type Authorizer interface {
	Do(ctx context.Context, call func(ctx context.Context) error) error
}

// Rung is one fallible provider of the ladder.
type Rung[I, O any] struct {
	// Name identifies the rung in logs, metrics and attempt trails.
	Name string
	// Source is reported to the caller when this rung answers.
	Source domain.Source
	// RequiresAuth routes Invoke through the ladder's Authorizer.
	RequiresAuth bool
	// Timeout bounds one invocation; zero means no rung-level bound.
	Timeout time.Duration
	// Invoke performs the provider call.
	Invoke func(ctx context.Context, in I) (O, error)
	// ShouldEscalate reports whether a failure advances to the next rung.
	ShouldEscalate Classifier
}

// Terminal is the ladder's last rung. Compute is total: it has no failure
// channel and performs no I/O.
type Terminal[I, O any] struct {
	Name    string
	Source  domain.Source
	Compute func(in I) O
}

// Config describes a ladder.
type Config[I, O any] struct {
	Operation  string
	Rungs      []Rung[I, O]
	Terminal   *Terminal[I, O]
	Authorizer Authorizer
	Logger     *slog.Logger
	Metrics    resilience.Metrics
}

// Attempt records one rung invocation.
type Attempt struct {
	Rung      string        `json:"rung"`
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
	Escalated bool          `json:"escalated"`
	Duration  time.Duration `json:"duration"`
}

// Result is the answer and the path that produced it.
type Result[O any] struct {
	Value    O
	Source   domain.Source
	Provider string
	Attempts []Attempt
}

// Trail returns the attempts in their serializable domain form.
func (r Result[O]) Trail() []domain.Attempt {
	if len(r.Attempts) == 0 {
		return nil
	}
	trail := make([]domain.Attempt, len(r.Attempts))
	for i, a := range r.Attempts {
		trail[i] = domain.Attempt{Rung: a.Rung, Error: a.Error, Escalated: a.Escalated, Duration: a.Duration}
		if trail[i].Error == "" && a.Err != nil {
			trail[i].Error = a.Err.Error()
		}
	}
	return trail
}

// Ladder is an immutable, validated provider ladder.
type Ladder[I, O any] struct {
	operation  string
	rungs      []Rung[I, O]
	terminal   *Terminal[I, O]
	authorizer Authorizer
	logger     *slog.Logger
	metrics    resilience.Metrics
}

// New validates cfg and returns a Ladder. The rung slice is copied.
func New[I, O any](cfg Config[I, O]) (*Ladder[I, O], error) {
	if cfg.Operation == "" {
		return nil, ErrMissingOperationID
	}
	if len(cfg.Rungs) == 0 && cfg.Terminal == nil {
		return nil, ErrNoRungs
	}

	seen := make(map[string]struct{}, len(cfg.Rungs)+1)
	for i, r := range cfg.Rungs {
		if r.Name == "" {
			return nil, fmt.Errorf("rung %d: %w", i, ErrUnnamedRung)
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRung, r.Name)
		}
		seen[r.Name] = struct{}{}
		if r.Invoke == nil {
			return nil, fmt.Errorf("rung %s: %w", r.Name, ErrMissingInvoke)
		}
		if r.ShouldEscalate == nil {
			return nil, fmt.Errorf("rung %s: %w", r.Name, ErrMissingClassifier)
		}
		if r.RequiresAuth && cfg.Authorizer == nil {
			return nil, fmt.Errorf("rung %s: %w", r.Name, ErrMissingAuthorizer)
		}
	}
	if t := cfg.Terminal; t != nil {
		if t.Name == "" {
			return nil, fmt.Errorf("terminal: %w", ErrUnnamedRung)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRung, t.Name)
		}
		if t.Compute == nil {
			return nil, ErrMissingTerminalFn
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "ladder")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = resilience.NewNoOpMetrics()
	}

	rungs := make([]Rung[I, O], len(cfg.Rungs))
	copy(rungs, cfg.Rungs)

	var terminal *Terminal[I, O]
	if cfg.Terminal != nil {
		t := *cfg.Terminal
		terminal = &t
	}

	return &Ladder[I, O]{
		operation:  cfg.Operation,
		rungs:      rungs,
		terminal:   terminal,
		authorizer: cfg.Authorizer,
		logger:     logger.With("operation", cfg.Operation),
		metrics:    metrics,
	}, nil
}

// Operation returns the logical operation name.
func (l *Ladder[I, O]) Operation() string { return l.operation }

// Invoke tries each rung in order and returns the first success.
//
// A failure the rung's classifier declines to escalate stops the ladder with a
// *RungError. When every rung escalates, the terminal rung answers; without a
// terminal the ladder returns an *ExhaustedError. The terminal runs even when
// ctx is already done, since it performs no I/O.
func (l *Ladder[I, O]) Invoke(ctx context.Context, in I) (Result[O], error) {
	res := Result[O]{Attempts: make([]Attempt, 0, len(l.rungs)+1)}

	for _, rung := range l.rungs {
		start := time.Now()
		value, err := l.invokeRung(ctx, rung, in)
		attempt := Attempt{Rung: rung.Name, Err: err, Duration: time.Since(start)}

		tags := map[string]string{"operation": l.operation, "rung": rung.Name}
		l.metrics.IncrementCounter(resilience.MetricRungAttempts, tags, 1)

		if err == nil {
			res.Attempts = append(res.Attempts, attempt)
			res.Value = value
			res.Source = rung.Source
			res.Provider = rung.Name
			l.answered(rung.Name, len(res.Attempts))
			return res, nil
		}

		attempt.Error = err.Error()
		if !rung.ShouldEscalate(err) {
			res.Attempts = append(res.Attempts, attempt)
			l.logger.Warn("rung failed without escalation", "rung", rung.Name, "error", err)
			return res, &RungError{Operation: l.operation, Rung: rung.Name, Err: err}
		}

		attempt.Escalated = true
		res.Attempts = append(res.Attempts, attempt)
		l.metrics.IncrementCounter(resilience.MetricEscalations, tags, 1)
		l.logger.Info("escalating past failed rung",
			"rung", rung.Name,
			"duration_ms", attempt.Duration.Milliseconds(),
			"error", err,
		)
	}

	if l.terminal == nil {
		return res, &ExhaustedError{Operation: l.operation, Attempts: res.Attempts}
	}

	start := time.Now()
	res.Value = l.terminal.Compute(in)
	res.Attempts = append(res.Attempts, Attempt{Rung: l.terminal.Name, Duration: time.Since(start)})
	res.Source = l.terminal.Source
	res.Provider = l.terminal.Name
	l.metrics.IncrementCounter(resilience.MetricRungAttempts, map[string]string{"operation": l.operation, "rung": l.terminal.Name}, 1)
	l.answered(l.terminal.Name, len(res.Attempts))
	return res, nil
}

func (l *Ladder[I, O]) invokeRung(ctx context.Context, rung Rung[I, O], in I) (O, error) {
	if rung.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rung.Timeout)
		defer cancel()
	}

	if !rung.RequiresAuth {
		return rung.Invoke(ctx, in)
	}

	var out O
	err := l.authorizer.Do(ctx, func(ctx context.Context) error {
		v, err := rung.Invoke(ctx, in)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (l *Ladder[I, O]) answered(rung string, attempts int) {
	l.metrics.IncrementCounter(resilience.MetricAnswers, map[string]string{"operation": l.operation, "rung": rung}, 1)
	l.logger.Debug("ladder answered", "rung", rung, "attempts", attempts)
}
