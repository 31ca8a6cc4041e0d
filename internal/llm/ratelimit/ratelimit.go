// Package ratelimit provides per-provider local rate limiting for outbound calls.
//
// Each provider gets its own in-memory token bucket. A call that finds the bucket
// empty fails fast with a RateLimitError, which the ladder classifies as transient
// and may escalate past. Limits are scoped to one process.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-resilient/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/internal/llm/transport"
)

// Limiter hands out per-key token buckets sharing one configuration.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cfg      configuration.RateLimitConfig
	logger   *slog.Logger
}

// NewLimiter validates cfg and returns a Limiter.
func NewLimiter(cfg configuration.RateLimitConfig) (*Limiter, error) {
	if cfg.Enabled {
		if cfg.TokensPerSecond <= 0 {
			return nil, fmt.Errorf("tokens_per_second must be > 0, got %v", cfg.TokensPerSecond)
		}
		if cfg.BurstSize < 1 {
			return nil, fmt.Errorf("burst_size must be >= 1, got %d", cfg.BurstSize)
		}
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		cfg:      cfg,
		logger:   slog.Default().With("component", "ratelimit"),
	}, nil
}

// Allow consumes one token for key, or returns a RateLimitError carrying the
// wait until the next token becomes available.
func (l *Limiter) Allow(key string) error {
	if !l.cfg.Enabled {
		return nil
	}

	limiter := l.limiterFor(key)
	if limiter.Allow() {
		return nil
	}

	// Compute the retry delay without consuming a token.
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()

	retryAfter := int(math.Ceil(delay.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	l.logger.Debug("local rate limit exceeded", "key", key, "retry_after", retryAfter)
	return &llmerrors.RateLimitError{
		Provider:   key,
		Limit:      int(l.cfg.TokensPerSecond),
		RetryAfter: retryAfter,
		LocalLimit: true,
	}
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.cfg.TokensPerSecond), l.cfg.BurstSize)
		l.limiters[key] = limiter
	}
	return limiter
}

// Middleware returns transport middleware that rate limits by provider.
func (l *Limiter) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if err := l.Allow(req.Provider); err != nil {
				return nil, err
			}
			return next.Handle(ctx, req)
		})
	}
}
