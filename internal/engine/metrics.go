package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	UpstreamCalls      atomic.Int64
	UpstreamErrors     atomic.Int64
	UpstreamRetries    atomic.Int64
	RateLimitWaits     atomic.Int64
	QuotaRejections    atomic.Int64
	CommentsDisabled   atomic.Int64
	TranscriptRequests atomic.Int64
	TranscriptErrors   atomic.Int64
	BatchRuns          atomic.Int64
	BatchItemFailures  atomic.Int64
}

// GetMetrics returns a snapshot of the process-wide counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"upstream_calls":      metrics.UpstreamCalls.Load(),
		"upstream_errors":     metrics.UpstreamErrors.Load(),
		"upstream_retries":    metrics.UpstreamRetries.Load(),
		"rate_limit_waits":    metrics.RateLimitWaits.Load(),
		"quota_rejections":    metrics.QuotaRejections.Load(),
		"comments_disabled":   metrics.CommentsDisabled.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"transcript_errors":   metrics.TranscriptErrors.Load(),
		"batch_runs":          metrics.BatchRuns.Load(),
		"batch_item_failures": metrics.BatchItemFailures.Load(),
	}
}

var metricKeys = []string{
	"upstream_calls", "upstream_errors", "upstream_retries",
	"rate_limit_waits", "quota_rejections", "comments_disabled",
	"transcript_requests", "transcript_errors",
	"batch_runs", "batch_item_failures",
}

// FormatMetrics renders counters plus the client's cache and quota state
// as the plain text served on the metrics endpoint.
func (c *Client) FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	cs := c.cache.Stats()
	fmt.Fprintf(&sb, "cache_hits %d\n", cs.Hits)
	fmt.Fprintf(&sb, "cache_misses %d\n", cs.Misses)
	fmt.Fprintf(&sb, "cache_sets %d\n", cs.Sets)
	fmt.Fprintf(&sb, "cache_size %d\n", cs.Size)
	rs := c.limiter.Stats()
	fmt.Fprintf(&sb, "daily_requests_made %d\n", rs.DailyRequestsMade)
	fmt.Fprintf(&sb, "daily_requests_remaining %d\n", rs.DailyRequestsRemaining)
	return sb.String()
}

// IncrTranscript counts a transcript fetch from the sources package.
func IncrTranscript() { metrics.TranscriptRequests.Add(1) }

// IncrTranscriptError counts a failed transcript fetch.
func IncrTranscriptError() { metrics.TranscriptErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
