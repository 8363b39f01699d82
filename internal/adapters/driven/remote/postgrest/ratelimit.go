package postgrest

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"

	// DefaultRetryAfter is the pause applied to a 429 without Retry-After.
	DefaultRetryAfter = 5 * time.Second

	// MaxRetryAfter caps how long a server can pause the client.
	MaxRetryAfter = 2 * time.Minute
)

// RateLimiter throttles requests proactively with a token bucket and
// reactively after the server asks the client to back off.
type RateLimiter struct {
	mu          sync.Mutex
	bucket      *rate.Limiter
	pausedUntil time.Time
	now         func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second.
// A non-positive rps disables proactive throttling.
func NewRateLimiter(rps float64) *RateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(limit, 1),
		now:    time.Now,
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	until := r.pausedUntil
	r.mu.Unlock()

	if wait := until.Sub(r.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.bucket.Wait(ctx)
}

// CheckRateLimit inspects a response. On 429 it pauses the limiter for the
// server-provided delay and returns a RateLimitError.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	delay := parseRetryAfter(resp.Header.Get(HeaderRetryAfter), r.now())
	r.mu.Lock()
	if until := r.now().Add(delay); until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
	r.mu.Unlock()

	return &RateLimitError{RetryAfter: delay}
}

// PausedUntil returns when the reactive pause ends.
func (r *RateLimiter) PausedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pausedUntil
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return DefaultRetryAfter
	}
	var delay time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		delay = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		delay = at.Sub(now)
	} else {
		return DefaultRetryAfter
	}
	return min(max(delay, 0), MaxRetryAfter)
}
