package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	rateWindow  = time.Second
	dailyWindow = 24 * time.Hour
)

// RateLimiter gates outbound calls against a per-second cap and a daily quota.
// The per-second window smooths bursts; the daily window enforces the API budget.
type RateLimiter struct {
	mu sync.Mutex

	perSecond  float64
	dailyLimit int

	requestsMade     int
	windowStart      time.Time
	dailyRequests    int
	dailyWindowStart time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// RateLimiterOption customises a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) { r.now = now }
}

// WithSleeper overrides how the limiter waits out a full window.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) RateLimiterOption {
	return func(r *RateLimiter) { r.sleep = sleep }
}

// NewRateLimiter creates a limiter admitting perSecond calls per second
// and dailyLimit calls per 24 hours.
func NewRateLimiter(perSecond float64, dailyLimit int, opts ...RateLimiterOption) (*RateLimiter, error) {
	if perSecond <= 0 {
		return nil, fmt.Errorf("rate limiter: requests per second must be positive, got %v", perSecond)
	}
	if dailyLimit <= 0 {
		return nil, fmt.Errorf("rate limiter: daily limit must be positive, got %d", dailyLimit)
	}
	r := &RateLimiter{
		perSecond:  perSecond,
		dailyLimit: dailyLimit,
		now:        time.Now,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	start := r.now()
	r.windowStart = start
	r.dailyWindowStart = start
	return r, nil
}

// Acquire blocks until one more call may be issued.
// Returns *QuotaExceededError without waiting when the daily ceiling is reached.
// The lock is not held while waiting for the next window.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := r.now()

		if now.Sub(r.dailyWindowStart) >= dailyWindow {
			r.dailyRequests = 0
			r.dailyWindowStart = now
		}
		if r.dailyRequests >= r.dailyLimit {
			resetIn := dailyWindow - now.Sub(r.dailyWindowStart)
			r.mu.Unlock()
			metrics.QuotaRejections.Add(1)
			return &QuotaExceededError{Limit: r.dailyLimit, ResetIn: resetIn}
		}

		if now.Sub(r.windowStart) >= rateWindow {
			r.requestsMade = 0
			r.windowStart = now
		}
		if float64(r.requestsMade) < r.perSecond {
			r.requestsMade++
			r.dailyRequests++
			r.mu.Unlock()
			return nil
		}

		wait := rateWindow - now.Sub(r.windowStart)
		r.mu.Unlock()

		metrics.RateLimitWaits.Add(1)
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// RateLimiterStats is a point-in-time view of the limiter.
// Remaining times may be negative when a window is overdue for reset.
type RateLimiterStats struct {
	RequestsPerSecondLimit float64 `json:"requests_per_second_limit"`
	DailyLimit             int     `json:"daily_limit"`
	CurrentWindowRequests  int     `json:"current_window_requests"`
	DailyRequestsMade      int     `json:"daily_requests_made"`
	DailyRequestsRemaining int     `json:"daily_requests_remaining"`
	WindowTimeRemaining    float64 `json:"window_time_remaining"`
	DailyTimeRemaining     float64 `json:"daily_time_remaining"`
}

// Stats returns a snapshot without mutating any window.
func (r *RateLimiter) Stats() RateLimiterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	return RateLimiterStats{
		RequestsPerSecondLimit: r.perSecond,
		DailyLimit:             r.dailyLimit,
		CurrentWindowRequests:  r.requestsMade,
		DailyRequestsMade:      r.dailyRequests,
		DailyRequestsRemaining: max(0, r.dailyLimit-r.dailyRequests),
		WindowTimeRemaining:    (rateWindow - now.Sub(r.windowStart)).Seconds(),
		DailyTimeRemaining:     (dailyWindow - now.Sub(r.dailyWindowStart)).Seconds(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
