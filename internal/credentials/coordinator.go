package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/internal/llm/resilience"
	"github.com/ahrav/go-resilient/pkg/events"
)

// DefaultRenewTimeout bounds a single renewal call.
const DefaultRenewTimeout = 10 * time.Second

// SessionListener is notified when the session ends. reason is the renewal
// failure, ErrNoRefreshToken, or ErrLoggedOut.
type SessionListener func(reason error)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics resilience.Metrics) Option {
	return func(c *Coordinator) { c.metrics = metrics }
}

// WithEventSink sets the sink that receives session.terminated events.
func WithEventSink(sink events.EventSink) Option {
	return func(c *Coordinator) { c.sink = sink }
}

// WithSessionListener registers a listener for session termination.
func WithSessionListener(l SessionListener) Option {
	return func(c *Coordinator) { c.listeners = append(c.listeners, l) }
}

// WithRenewTimeout bounds each renewal call.
func WithRenewTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.renewTimeout = d
		}
	}
}

// waiter is a call suspended on the in-flight renewal.
type waiter struct {
	done  chan struct{}
	token string
	err   error
}

// Coordinator guards authenticated calls and performs single-flight renewal.
// Multiple independent coordinators may coexist; each owns its own session.
type Coordinator struct {
	renewer      Renewer
	logger       *slog.Logger
	metrics      resilience.Metrics
	sink         events.EventSink
	listeners    []SessionListener
	renewTimeout time.Duration

	mu         sync.Mutex
	pair       Pair
	generation uint64 // bumped whenever the pair is replaced or cleared
	refreshing bool
	waiters    []*waiter

	renewals atomic.Int64
}

// NewCoordinator returns a Coordinator holding pair.
func NewCoordinator(renewer Renewer, pair Pair, opts ...Option) *Coordinator {
	c := &Coordinator{
		renewer:      renewer,
		logger:       slog.Default().With("component", "credentials"),
		metrics:      resilience.NewNoOpMetrics(),
		sink:         events.NewNoOpEventSink(),
		renewTimeout: DefaultRenewTimeout,
		pair:         pair,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs call with the current access token in its context.
//
// Successes and non-auth failures are returned untouched. An auth failure
// triggers (or joins) a renewal, after which call is replayed exactly once with
// the new token. A replay that fails auth again is returned as is and never
// re-enters renewal. If renewal fails, every waiting call fails with the
// renewal error and the session is terminated.
func (c *Coordinator) Do(ctx context.Context, call func(ctx context.Context) error) error {
	token, gen := c.snapshot()

	err := call(WithAccessToken(ctx, token))
	if err == nil || !llmerrors.IsAuthExpired(err) {
		return err
	}

	c.logger.Debug("access token rejected", "generation", gen, "error", err)

	newToken, err := c.awaitRenewal(ctx, gen)
	if err != nil {
		return err
	}

	err = call(WithAccessToken(ctx, newToken))
	if err != nil && llmerrors.IsAuthExpired(err) {
		return fmt.Errorf("call rejected after renewal: %w", err)
	}
	return err
}

// Pair returns the current credential pair.
func (c *Coordinator) Pair() Pair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair
}

// SetPair installs a freshly authenticated pair, for example after login.
func (c *Coordinator) SetPair(p Pair) {
	c.mu.Lock()
	c.pair = p
	c.generation++
	c.mu.Unlock()
}

// Logout clears the session and notifies listeners with ErrLoggedOut.
func (c *Coordinator) Logout(ctx context.Context) {
	c.mu.Lock()
	terminated := c.clearLocked()
	c.mu.Unlock()

	if terminated {
		c.notifyTerminated(ctx, llmerrors.ErrLoggedOut)
	}
}

// Pending returns the number of calls waiting on the in-flight renewal.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Renewals returns how many renewal calls have been issued.
func (c *Coordinator) Renewals() int64 {
	return c.renewals.Load()
}

func (c *Coordinator) snapshot() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair.AccessToken, c.generation
}

// awaitRenewal returns the token to replay with. gen is the credential
// generation the failed call used; if the pair has been replaced since, the
// call replays with the current token instead of renewing again.
func (c *Coordinator) awaitRenewal(ctx context.Context, gen uint64) (string, error) {
	c.mu.Lock()
	if c.generation != gen && !c.refreshing {
		token := c.pair.AccessToken
		c.mu.Unlock()
		if token == "" {
			return "", llmerrors.ErrSessionTerminated
		}
		return token, nil
	}

	w := &waiter{done: make(chan struct{})}
	c.waiters = append(c.waiters, w)
	if !c.refreshing {
		c.refreshing = true
		go c.renew(ctx, c.pair.RefreshToken, c.generation)
	}
	pending := len(c.waiters)
	c.mu.Unlock()

	c.metrics.SetGauge(resilience.MetricCredentialsWaiters, nil, float64(pending))

	select {
	case <-w.done:
		return w.token, w.err
	case <-ctx.Done():
		c.mu.Lock()
		c.removeWaiterLocked(w)
		pending = len(c.waiters)
		c.mu.Unlock()
		c.metrics.SetGauge(resilience.MetricCredentialsWaiters, nil, float64(pending))
		return "", ctx.Err()
	}
}

// removeWaiterLocked drops w from the queue, keeping the order of the rest.
// It is a no-op when the renewal already settled w.
func (c *Coordinator) removeWaiterLocked(w *waiter) {
	for i, q := range c.waiters {
		if q == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// renew performs the single in-flight renewal and settles every waiter.
// It runs detached from the triggering caller's cancellation so that one
// caller giving up cannot fail the others.
func (c *Coordinator) renew(parent context.Context, refreshToken string, startGen uint64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.renewTimeout)
	defer cancel()

	var (
		pair Pair
		err  error
	)
	start := time.Now()
	if refreshToken == "" {
		err = &llmerrors.RenewalError{Reason: "no refresh token", Cause: llmerrors.ErrNoRefreshToken}
	} else {
		c.renewals.Add(1)
		pair, err = c.renewer.Renew(ctx, refreshToken)
		if err == nil && pair.AccessToken == "" {
			err = &llmerrors.RenewalError{Reason: "renewal response missing access token"}
		}
		if err != nil {
			var renewalErr *llmerrors.RenewalError
			if !errors.As(err, &renewalErr) {
				err = &llmerrors.RenewalError{Reason: err.Error(), Cause: err}
			}
		}
		if err == nil && pair.RefreshToken == "" {
			pair.RefreshToken = refreshToken
		}
	}

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false

	var terminated bool
	switch {
	case c.generation != startGen:
		// The session was replaced or ended while renewing; its state wins.
		err = nil
		pair = c.pair
		if pair.AccessToken == "" {
			err = llmerrors.ErrSessionTerminated
		}
	case err != nil:
		terminated = c.clearLocked()
	default:
		c.pair = pair
		c.generation++
	}

	c.mu.Unlock()

	c.metrics.SetGauge(resilience.MetricCredentialsWaiters, nil, 0)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.metrics.IncrementCounter(resilience.MetricRenewals, map[string]string{"outcome": outcome}, 1)

	if err != nil {
		c.logger.Error("credential renewal failed",
			"waiters", len(waiters),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
	} else {
		c.logger.Info("credentials renewed",
			"waiters", len(waiters),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	// Listeners observe the termination before any waiter is released.
	if terminated {
		c.notifyTerminated(ctx, err)
	}

	for _, w := range waiters {
		w.token = pair.AccessToken
		w.err = err
		close(w.done)
	}
}

// clearLocked empties the pair and reports whether a live session ended.
func (c *Coordinator) clearLocked() bool {
	wasLive := !c.pair.Empty()
	c.pair = Pair{}
	c.generation++
	return wasLive
}

func (c *Coordinator) notifyTerminated(ctx context.Context, reason error) {
	c.logger.Warn("session terminated", "reason", reason)

	for _, l := range c.listeners {
		l(reason)
	}

	env, err := events.New(events.TypeSessionTerminated, "credentials", map[string]string{
		"reason": reason.Error(),
	})
	if err != nil {
		c.logger.Debug("building session event", "error", err)
		return
	}
	if err := c.sink.Append(ctx, env); err != nil {
		c.logger.Debug("appending session event", "error", err)
	}
}
