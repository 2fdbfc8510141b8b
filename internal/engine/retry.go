package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

// RetryConfig controls retry behavior.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig gives three attempts with a 4s to 10s exponential backoff.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	InitialWait: 4 * time.Second,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// RetryDo calls fn up to MaxAttempts times with exponential backoff.
// Retries only on retryable errors; returns immediately on non-retryable or context cancellation.
func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := max(rc.MaxAttempts, 1)
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}

		if attempt < attempts-1 {
			wait := backoff(rc, attempt)
			metrics.UpstreamRetries.Add(1)
			slog.Debug("retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", wait), slog.Any("error", err))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

func backoff(rc RetryConfig, attempt int) time.Duration {
	mult := rc.Multiplier
	if mult <= 0 {
		mult = 1
	}
	wait := time.Duration(float64(rc.InitialWait) * math.Pow(mult, float64(attempt)))
	if rc.MaxWait > 0 && wait > rc.MaxWait {
		wait = rc.MaxWait
	}
	return wait
}

// isRetryable reports whether err came from the upstream boundary.
// Invalid input, local quota exhaustion and everything else fail immediately.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrQuotaExceeded) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
