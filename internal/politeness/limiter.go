// Package politeness implements per-site request rate control.
package politeness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rfarchive/rfarchive/internal/archive"
	"github.com/rfarchive/rfarchive/internal/metrics"
)

// Limiter enforces a minimum inter-request delay per site. Sites are
// independent: one edition waiting never stalls another.
type Limiter struct {
	mu       sync.Mutex
	limiters map[archive.Site]*rate.Limiter

	defaultDelay time.Duration
	overrides    map[archive.Site]time.Duration
}

// New builds a Limiter. A non-positive default delay disables rate control
// for sites without an override.
func New(defaultDelay time.Duration, overrides map[archive.Site]time.Duration) *Limiter {
	return &Limiter{
		limiters:     make(map[archive.Site]*rate.Limiter),
		defaultDelay: defaultDelay,
		overrides:    overrides,
	}
}

// Wait blocks until the site's token bucket allows another request or the
// context finishes.
func (l *Limiter) Wait(ctx context.Context, site archive.Site) error {
	limiter := l.limiterFor(site)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(string(site), waited)
	}
	return nil
}

func (l *Limiter) limiterFor(site archive.Site) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[site]; ok {
		return limiter
	}
	delay := l.defaultDelay
	if override, ok := l.overrides[site]; ok {
		delay = override
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	limiter := rate.NewLimiter(limit, 1)
	l.limiters[site] = limiter
	return limiter
}
