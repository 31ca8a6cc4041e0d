package credentials

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/pkg/events"
)

// tokenService accepts exactly one access token and counts calls.
type tokenService struct {
	valid atomic.Value // string
	calls atomic.Int64
}

func newTokenService(valid string) *tokenService {
	s := &tokenService{}
	s.valid.Store(valid)
	return s
}

func (s *tokenService) call(ctx context.Context) error {
	s.calls.Add(1)
	if AccessTokenFrom(ctx) != s.valid.Load().(string) {
		return &llmerrors.ProviderError{Provider: "api", StatusCode: 401, Message: "token expired", Type: llmerrors.ErrorTypeAuth}
	}
	return nil
}

// gatedRenewer blocks every renewal until release is closed.
type gatedRenewer struct {
	release chan struct{}
	pair    Pair
	err     error
	calls   atomic.Int64
}

func (g *gatedRenewer) Renew(ctx context.Context, _ string) (Pair, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return Pair{}, ctx.Err()
	}
	return g.pair, g.err
}

func TestCoordinator_PassThrough(t *testing.T) {
	renewer := &gatedRenewer{release: make(chan struct{})}
	c := NewCoordinator(renewer, Pair{AccessToken: "good", RefreshToken: "r"})

	svc := newTokenService("good")
	require.NoError(t, c.Do(context.Background(), svc.call))

	boom := errors.New("boom")
	err := c.Do(context.Background(), func(context.Context) error { return boom })
	assert.Same(t, boom, err, "non-auth failures pass through untouched")

	assert.EqualValues(t, 0, renewer.calls.Load())
	assert.EqualValues(t, 0, c.Renewals())
}

func TestCoordinator_SingleFlight(t *testing.T) {
	const n = 25

	renewer := &gatedRenewer{release: make(chan struct{}), pair: Pair{AccessToken: "new", RefreshToken: "r2"}}
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"})
	svc := newTokenService("new")

	var g errgroup.Group
	for range n {
		g.Go(func() error { return c.Do(context.Background(), svc.call) })
	}

	assert.Eventually(t, func() bool { return c.Pending() == n }, 5*time.Second, 5*time.Millisecond)
	close(renewer.release)

	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, renewer.calls.Load(), "exactly one renewal")
	assert.EqualValues(t, 1, c.Renewals())
	assert.EqualValues(t, 2*n, svc.calls.Load(), "every call ran once and replayed once")
	assert.Equal(t, Pair{AccessToken: "new", RefreshToken: "r2"}, c.Pair())
	assert.Zero(t, c.Pending())
}

func TestCoordinator_SingleFlightArbitraryInterleaving(t *testing.T) {
	const n = 50

	// The renewer does not block, so late callers may observe the rejection
	// after the renewal already settled.
	var renewals atomic.Int64
	renewer := RenewerFunc(func(context.Context, string) (Pair, error) {
		renewals.Add(1)
		return Pair{AccessToken: "new", RefreshToken: "r2"}, nil
	})
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"})

	start := make(chan struct{})
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			<-start
			return c.Do(context.Background(), func(ctx context.Context) error {
				if AccessTokenFrom(ctx) != "new" {
					return llmerrors.ErrAuthExpired
				}
				return nil
			})
		})
	}
	close(start)

	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, renewals.Load())
}

func TestCoordinator_NoDoubleRetry(t *testing.T) {
	renewer := RenewerFunc(func(context.Context, string) (Pair, error) {
		return Pair{AccessToken: "also-rejected"}, nil
	})
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"})

	var calls atomic.Int64
	err := c.Do(context.Background(), func(context.Context) error {
		calls.Add(1)
		return llmerrors.ErrAuthExpired
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, llmerrors.ErrAuthExpired)
	assert.Contains(t, err.Error(), "rejected after renewal")
	assert.EqualValues(t, 2, calls.Load(), "original call plus exactly one replay")
	assert.EqualValues(t, 1, c.Renewals())
	assert.Zero(t, c.Pending())
}

func TestCoordinator_ReplayNonAuthFailure(t *testing.T) {
	renewer := RenewerFunc(func(context.Context, string) (Pair, error) {
		return Pair{AccessToken: "new"}, nil
	})
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"})

	replayErr := &llmerrors.ProviderError{Provider: "api", StatusCode: 502, Type: llmerrors.ErrorTypeProvider}
	var calls atomic.Int64
	err := c.Do(context.Background(), func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			return llmerrors.ErrAuthExpired
		}
		return replayErr
	})

	assert.Same(t, replayErr, err, "replay failure surfaces as a normal failure")
	assert.EqualValues(t, 1, c.Renewals())
	assert.Equal(t, "r1", c.Pair().RefreshToken, "refresh token retained when not rotated")
}

func TestCoordinator_RenewalFailureFansOut(t *testing.T) {
	const n = 10

	renewalErr := &llmerrors.RenewalError{StatusCode: 400, Reason: "refresh token revoked"}
	renewer := &gatedRenewer{release: make(chan struct{}), err: renewalErr}

	var signals atomic.Int64
	var reason error
	var reasonMu sync.Mutex
	sink := events.NewMemorySink()
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"},
		WithEventSink(sink),
		WithSessionListener(func(r error) {
			signals.Add(1)
			reasonMu.Lock()
			reason = r
			reasonMu.Unlock()
		}),
	)
	svc := newTokenService("never")

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Do(context.Background(), svc.call)
		}()
	}

	assert.Eventually(t, func() bool { return c.Pending() == n }, 5*time.Second, 5*time.Millisecond)
	close(renewer.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.Error(t, err)
		assert.ErrorIs(t, err, llmerrors.ErrSessionTerminated)
		var re *llmerrors.RenewalError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, 400, re.StatusCode)
	}

	assert.EqualValues(t, 1, signals.Load(), "session termination fires exactly once")
	reasonMu.Lock()
	assert.ErrorIs(t, reason, llmerrors.ErrSessionTerminated)
	reasonMu.Unlock()
	assert.True(t, c.Pair().Empty(), "credentials cleared")
	assert.EqualValues(t, n, svc.calls.Load(), "no call replayed after failed renewal")
	assert.Len(t, sink.OfType(events.TypeSessionTerminated), 1)

	// Later calls see the terminated session without renewing again.
	err := c.Do(context.Background(), svc.call)
	assert.ErrorIs(t, err, llmerrors.ErrSessionTerminated)
	assert.ErrorIs(t, err, llmerrors.ErrNoRefreshToken)
	assert.EqualValues(t, 1, renewer.calls.Load())
	assert.EqualValues(t, 1, signals.Load(), "already-empty session does not signal again")
}

func TestCoordinator_NoRefreshToken(t *testing.T) {
	renewer := &gatedRenewer{release: make(chan struct{})}
	var signals atomic.Int64
	c := NewCoordinator(renewer, Pair{AccessToken: "old"},
		WithSessionListener(func(error) { signals.Add(1) }))

	err := c.Do(context.Background(), func(context.Context) error { return llmerrors.ErrAuthExpired })

	assert.ErrorIs(t, err, llmerrors.ErrNoRefreshToken)
	assert.ErrorIs(t, err, llmerrors.ErrSessionTerminated)
	assert.EqualValues(t, 0, renewer.calls.Load())
	assert.EqualValues(t, 1, signals.Load())
}

// enqueue starts c.Do with call and waits until it joins the renewal queue.
// It returns the waiter it added and the channel carrying its result.
func enqueue(t *testing.T, ctx context.Context, c *Coordinator, call func(context.Context) error) (*waiter, <-chan error) {
	t.Helper()

	before := c.Pending()
	result := make(chan error, 1)
	go func() { result <- c.Do(ctx, call) }()
	require.Eventually(t, func() bool { return c.Pending() == before+1 }, 5*time.Second, 5*time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters[before], result
}

func TestCoordinator_CancelledWaiterLeavesQueue(t *testing.T) {
	renewer := &gatedRenewer{release: make(chan struct{}), pair: Pair{AccessToken: "new"}}
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"})
	svc := newTokenService("new")

	firstW, first := enqueue(t, context.Background(), c, svc.call)

	ctx, cancel := context.WithCancel(context.Background())
	_, cancelled := enqueue(t, ctx, c, svc.call)

	lastW, last := enqueue(t, context.Background(), c, svc.call)

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)
	assert.Equal(t, 2, c.Pending())

	c.mu.Lock()
	assert.Equal(t, []*waiter{firstW, lastW}, c.waiters, "remaining waiters keep arrival order")
	c.mu.Unlock()

	close(renewer.release)
	assert.NoError(t, <-first)
	assert.NoError(t, <-last)
	assert.EqualValues(t, 1, renewer.calls.Load())
}

func TestCoordinator_WaitersSettleInArrivalOrder(t *testing.T) {
	const n = 6

	renewer := &gatedRenewer{release: make(chan struct{}), pair: Pair{AccessToken: "new", RefreshToken: "r2"}}
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"})

	queued := make([]*waiter, n)
	results := make([]<-chan error, n)

	var mu sync.Mutex
	var outOfOrder []int

	for i := range n {
		call := func(ctx context.Context) error {
			if AccessTokenFrom(ctx) != "new" {
				return llmerrors.ErrAuthExpired
			}
			// A replay starts only after its own waiter settled, so every
			// waiter that arrived earlier must already be settled too.
			for j := range i {
				select {
				case <-queued[j].done:
				default:
					mu.Lock()
					outOfOrder = append(outOfOrder, i)
					mu.Unlock()
				}
			}
			return nil
		}
		queued[i], results[i] = enqueue(t, context.Background(), c, call)
	}

	c.mu.Lock()
	assert.Equal(t, queued, c.waiters, "queue holds waiters in arrival order")
	c.mu.Unlock()

	close(renewer.release)
	for i, result := range results {
		require.NoError(t, <-result, "waiter %d", i)
	}

	mu.Lock()
	assert.Empty(t, outOfOrder, "a waiter settled before one that arrived earlier")
	mu.Unlock()
	for i, w := range queued {
		assert.Equal(t, "new", w.token, "waiter %d", i)
	}
	assert.EqualValues(t, 1, renewer.calls.Load())
	assert.Zero(t, c.Pending())
}

func TestCoordinator_TriggeringCallerCancellationDoesNotFailOthers(t *testing.T) {
	renewer := &gatedRenewer{release: make(chan struct{}), pair: Pair{AccessToken: "new"}}
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"})
	svc := newTokenService("new")

	ctx, cancel := context.WithCancel(context.Background())
	trigger := make(chan error, 1)
	go func() { trigger <- c.Do(ctx, svc.call) }()
	assert.Eventually(t, func() bool { return c.Pending() == 1 }, 5*time.Second, 5*time.Millisecond)

	other := make(chan error, 1)
	go func() { other <- c.Do(context.Background(), svc.call) }()
	assert.Eventually(t, func() bool { return c.Pending() == 2 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-trigger, context.Canceled)

	close(renewer.release)
	assert.NoError(t, <-other)
	assert.Equal(t, "new", c.Pair().AccessToken)
}

func TestCoordinator_StaleGenerationReplaysWithoutRenewal(t *testing.T) {
	renewer := &gatedRenewer{release: make(chan struct{})}
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"})

	var calls atomic.Int64
	err := c.Do(context.Background(), func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			// A login lands while the call is in flight.
			c.SetPair(Pair{AccessToken: "fresh", RefreshToken: "r9"})
			return llmerrors.ErrAuthExpired
		}
		if AccessTokenFrom(ctx) != "fresh" {
			return llmerrors.ErrAuthExpired
		}
		return nil
	})

	require.NoError(t, err)
	assert.EqualValues(t, 0, renewer.calls.Load())
}

func TestCoordinator_LogoutDuringRenewal(t *testing.T) {
	renewer := &gatedRenewer{release: make(chan struct{}), pair: Pair{AccessToken: "new"}}
	var reasons []error
	var mu sync.Mutex
	c := NewCoordinator(renewer, Pair{AccessToken: "old", RefreshToken: "r1"},
		WithSessionListener(func(r error) {
			mu.Lock()
			reasons = append(reasons, r)
			mu.Unlock()
		}))

	done := make(chan error, 1)
	go func() {
		done <- c.Do(context.Background(), func(context.Context) error { return llmerrors.ErrAuthExpired })
	}()
	assert.Eventually(t, func() bool { return c.Pending() == 1 }, 5*time.Second, 5*time.Millisecond)

	c.Logout(context.Background())
	close(renewer.release)

	assert.ErrorIs(t, <-done, llmerrors.ErrSessionTerminated)
	assert.True(t, c.Pair().Empty(), "renewal result discarded after logout")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reasons, 1)
	assert.ErrorIs(t, reasons[0], llmerrors.ErrLoggedOut)
}

func TestCoordinator_IndependentInstances(t *testing.T) {
	renewerA := RenewerFunc(func(context.Context, string) (Pair, error) { return Pair{AccessToken: "a2"}, nil })
	renewerB := RenewerFunc(func(context.Context, string) (Pair, error) {
		return Pair{}, &llmerrors.RenewalError{Reason: "denied"}
	})

	a := NewCoordinator(renewerA, Pair{AccessToken: "a1", RefreshToken: "ra"})
	b := NewCoordinator(renewerB, Pair{AccessToken: "b1", RefreshToken: "rb"})

	expired := func(ctx context.Context) error {
		if tok := AccessTokenFrom(ctx); tok == "a1" || tok == "b1" {
			return llmerrors.ErrAuthExpired
		}
		return nil
	}

	assert.NoError(t, a.Do(context.Background(), expired))
	assert.ErrorIs(t, b.Do(context.Background(), expired), llmerrors.ErrSessionTerminated)
	assert.Equal(t, "a2", a.Pair().AccessToken)
	assert.True(t, b.Pair().Empty())
}
