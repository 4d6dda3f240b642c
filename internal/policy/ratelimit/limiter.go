// Package ratelimit enforces a minimum interval between outbound requests.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/ktweb-minutes/internal/metrics"
)

// Limiter is a single politeness gate shared by every request a downloader makes.
// Consecutive Wait calls return at least MinInterval apart.
type Limiter struct {
	limiter     *rate.Limiter
	minInterval time.Duration
}

// Config holds rate limiter configuration.
type Config struct {
	MinInterval time.Duration
}

// New creates a new Limiter. A zero interval disables waiting.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Limiter{
		limiter:     rate.NewLimiter(limit, 1),
		minInterval: cfg.MinInterval,
	}
}

// MinInterval reports the configured spacing.
func (l *Limiter) MinInterval() time.Duration {
	return l.minInterval
}

// Wait blocks until the next request to url may be sent, respecting the context.
func (l *Limiter) Wait(ctx context.Context, url string) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(url, waited)
	}
	return nil
}
