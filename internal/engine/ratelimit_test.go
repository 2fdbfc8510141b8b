package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the limiter sleeps or the test says so.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

func newTestLimiter(t *testing.T, rps float64, daily int) (*RateLimiter, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	rl, err := NewRateLimiter(rps, daily, WithClock(clk.Now), WithSleeper(clk.Sleep))
	require.NoError(t, err)
	return rl, clk
}

func TestNewRateLimiterRejectsBadArgs(t *testing.T) {
	_, err := NewRateLimiter(0, 10)
	require.Error(t, err)
	_, err = NewRateLimiter(1, 0)
	require.Error(t, err)
}

func TestRateLimiterWithinWindowDoesNotBlock(t *testing.T) {
	rl, clk := newTestLimiter(t, 5, 100)
	ctx := context.Background()

	for range 5 {
		require.NoError(t, rl.Acquire(ctx))
	}
	assert.Empty(t, clk.Sleeps())

	s := rl.Stats()
	assert.Equal(t, 5, s.CurrentWindowRequests)
	assert.Equal(t, 5, s.DailyRequestsMade)
	assert.Equal(t, 95, s.DailyRequestsRemaining)
}

func TestRateLimiterBlocksForRemainderOfWindow(t *testing.T) {
	rl, clk := newTestLimiter(t, 3, 100)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, rl.Acquire(ctx))
	}
	clk.Advance(400 * time.Millisecond)

	require.NoError(t, rl.Acquire(ctx))
	assert.Equal(t, []time.Duration{600 * time.Millisecond}, clk.Sleeps())

	s := rl.Stats()
	assert.Equal(t, 1, s.CurrentWindowRequests, "window resets after the wait")
	assert.Equal(t, 4, s.DailyRequestsMade)
}

func TestRateLimiterWindowResetsAfterSecond(t *testing.T) {
	rl, clk := newTestLimiter(t, 2, 100)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx))
	require.NoError(t, rl.Acquire(ctx))
	clk.Advance(time.Second)
	require.NoError(t, rl.Acquire(ctx))
	assert.Empty(t, clk.Sleeps())
}

func TestRateLimiterDailyQuotaFailsFast(t *testing.T) {
	rl, clk := newTestLimiter(t, 100, 3)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, rl.Acquire(ctx))
	}
	err := rl.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 3, qe.Limit)
	assert.Empty(t, clk.Sleeps(), "quota failure must not sleep")
	assert.Equal(t, 3, rl.Stats().DailyRequestsMade, "quota failure must not increment")
}

func TestRateLimiterDailyQuotaCheckedBeforeThrottle(t *testing.T) {
	rl, clk := newTestLimiter(t, 2, 2)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx))
	require.NoError(t, rl.Acquire(ctx))
	// Both the window and the day are full: the day wins without waiting.
	require.ErrorIs(t, rl.Acquire(ctx), ErrQuotaExceeded)
	assert.Empty(t, clk.Sleeps())
}

func TestRateLimiterDailyWindowResets(t *testing.T) {
	rl, clk := newTestLimiter(t, 100, 1)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx))
	require.ErrorIs(t, rl.Acquire(ctx), ErrQuotaExceeded)

	clk.Advance(24 * time.Hour)
	require.NoError(t, rl.Acquire(ctx))
	assert.Equal(t, 1, rl.Stats().DailyRequestsMade)
}

func TestRateLimiterStatsRemainingTimes(t *testing.T) {
	rl, clk := newTestLimiter(t, 10, 100)
	clk.Advance(250 * time.Millisecond)

	s := rl.Stats()
	assert.InDelta(t, 0.75, s.WindowTimeRemaining, 1e-9)
	assert.InDelta(t, 86400-0.25, s.DailyTimeRemaining, 1e-9)
	assert.Equal(t, 10.0, s.RequestsPerSecondLimit)
	assert.Equal(t, 100, s.DailyLimit)

	clk.Advance(2 * time.Second)
	assert.Less(t, rl.Stats().WindowTimeRemaining, 0.0, "overdue window reports negative remaining")
}

func TestRateLimiterSleepCancelled(t *testing.T) {
	clk := newFakeClock()
	rl, err := NewRateLimiter(1, 100, WithClock(clk.Now), WithSleeper(sleepCtx))
	require.NoError(t, err)

	require.NoError(t, rl.Acquire(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, rl.Acquire(ctx), context.Canceled)
}

func TestRateLimiterConcurrentAdmission(t *testing.T) {
	rl, clk := newTestLimiter(t, 4, 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- rl.Acquire(ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 12, rl.Stats().DailyRequestsMade)
	assert.NotEmpty(t, clk.Sleeps(), "12 callers at 4 rps must wait")
}
