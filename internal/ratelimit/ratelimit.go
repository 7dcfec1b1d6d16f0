package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobenricher/internal/model"
)

// HostRateLimiter keeps one token bucket per posting host so consecutive jobs
// on the same board are spaced out.
type HostRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter // key: URL host
	limit    rate.Limit
	burst    int
}

// NewHostRateLimiter allows perSecond requests per host with the given burst.
func NewHostRateLimiter(perSecond float64, burst int) *HostRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (r *HostRateLimiter) limiterFor(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lim, ok := r.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(r.limit, r.burst)
	r.limiters[host] = lim
	return lim
}

// Wait blocks until a request to rawURL's host is allowed.
// Unparseable URLs share a single bucket.
func (r *HostRateLimiter) Wait(ctx context.Context, rawURL string) error {
	host := "_"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	if err := r.limiterFor(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", host, err)
	}
	return nil
}

// RateLimitedFetcher waits on the host limiter before delegating.
type RateLimitedFetcher struct {
	inner   model.PageFetcher
	limiter *HostRateLimiter
}

// NewRateLimitedFetcher wraps inner with per-host rate limiting.
func NewRateLimitedFetcher(inner model.PageFetcher, limiter *HostRateLimiter) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
	}
}

// Fetch waits for the limiter, then fetches. A cancelled wait is reported as a
// network failure so it is handled like any other fetch error.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrNetwork, err)
	}
	return f.inner.Fetch(ctx, rawURL)
}
