// Package ratelimit implements a token bucket rate limiter shared across
// adapter workers for per-source request pacing.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobradar/jobradar/internal/metrics"
)

// Limiter manages one token bucket per source label. It is the single piece
// of mutable state shared between concurrent adapter tasks, so all access
// goes through the mutex.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
	overrides    map[string]Config
}

// Config holds the pacing for one bucket.
type Config struct {
	RPS   float64
	Burst int
}

// New creates a Limiter whose unlisted sources get the default pacing.
// A non-positive default RPS disables limiting for those sources.
func New(defaults Config, overrides map[string]Config) *Limiter {
	r := rate.Limit(defaults.RPS)
	if defaults.RPS <= 0 {
		r = rate.Inf
	}
	burst := defaults.Burst
	if burst <= 0 {
		burst = 1
	}
	// Override keys arrive lowercased from the config layer, so match
	// source labels case-insensitively.
	normalized := make(map[string]Config, len(overrides))
	for source, cfg := range overrides {
		normalized[strings.ToLower(source)] = cfg
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
		overrides:    normalized,
	}
}

// Wait blocks until a token is available for the given source, respecting
// the context.
func (l *Limiter) Wait(ctx context.Context, source string) error {
	l.mu.Lock()
	limiter, exists := l.limiters[source]
	if !exists {
		limiter = rate.NewLimiter(l.rateFor(source))
		l.limiters[source] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", source, err)
	}
	metrics.ObserveRateLimitDelay(source, time.Since(start))
	return nil
}

func (l *Limiter) rateFor(source string) (rate.Limit, int) {
	cfg, ok := l.overrides[strings.ToLower(source)]
	if !ok {
		return l.defaultRate, l.defaultBurst
	}
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return r, burst
}
