// Package ratelimit throttles requests to hosted AI providers.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration for a provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero disables limiting.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// Per-provider defaults, well below published quotas.
var (
	OpenAI    = Config{RequestsPerSecond: 5, BurstSize: 10}
	Anthropic = Config{RequestsPerSecond: 2, BurstSize: 4}
	Ollama    = Config{RequestsPerSecond: 20, BurstSize: 20}
	Local     = Config{}
)

// OrDefault returns *cfg, or def when cfg is nil.
func OrDefault(cfg *Config, def Config) Config {
	if cfg == nil {
		return def
	}
	return *cfg
}

// DefaultBackoff is used when a 429 response carries no Retry-After header.
const DefaultBackoff = 30 * time.Second

// Limiter is a token bucket with a backoff window set after the provider
// reports throttling. A nil *Limiter never blocks.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter. A zero rate yields an unlimited bucket that still
// honours backoff.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request can be made. It first sits out any backoff
// recorded by Backoff, then waits for the token bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Backoff delays every following request by d.
func (l *Limiter) Backoff(d time.Duration) {
	if l == nil {
		return
	}
	if d <= 0 {
		d = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if until := time.Now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// Observe records a throttled response. It reports whether resp was a 429.
func (l *Limiter) Observe(resp *http.Response) bool {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	l.Backoff(RetryAfter(resp.Header))
	return true
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. Returns zero when absent or unparseable.
func RetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}
