package extractor

import (
	"context"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// HealthSettings are the effective knobs reported by Health.
type HealthSettings struct {
	CacheEnabled       bool    `json:"cache_enabled"`
	TranscriptsEnabled bool    `json:"transcripts_enabled"`
	DailyQuotaLimit    int     `json:"daily_quota_limit"`
	RequestsPerSecond  float64 `json:"requests_per_second"`
}

// HealthReport is the extractor's self-description.
type HealthReport struct {
	APIClient engine.ClientStats `json:"api_client"`
	Settings  HealthSettings     `json:"settings"`
	Status    string             `json:"status"`
}

// Health reports client stats and settings.
func (e *Extractor) Health() HealthReport {
	cfg := e.client.Config()
	return HealthReport{
		APIClient: e.client.Stats(),
		Settings: HealthSettings{
			CacheEnabled:       e.client.Cache().Enabled(),
			TranscriptsEnabled: e.transcripts != nil,
			DailyQuotaLimit:    cfg.DailyQuotaLimit,
			RequestsPerSecond:  cfg.RequestsPerSecond,
		},
		Status: "healthy",
	}
}

// ClearCacheResult confirms a cache flush.
type ClearCacheResult struct {
	Status     string            `json:"status"`
	Message    string            `json:"message"`
	CacheStats engine.CacheStats `json:"cache_stats"`
}

// ClearCache drops every cached response, in memory and in the second tier.
func (e *Extractor) ClearCache(ctx context.Context) ClearCacheResult {
	return ClearCacheResult{
		Status:     "success",
		Message:    "Cache cleared successfully",
		CacheStats: e.client.ClearCache(ctx),
	}
}

// ConfigReport lists the effective configuration. Secrets are never included.
type ConfigReport struct {
	APIVersion          string   `json:"youtube_api_version"`
	DailyQuotaLimit     int      `json:"daily_quota_limit"`
	RequestsPerSecond   float64  `json:"requests_per_second"`
	CacheEnabled        bool     `json:"cache_enabled"`
	CacheTTL            int      `json:"cache_ttl"`
	CacheMaxSize        int      `json:"cache_max_size"`
	CacheTier           string   `json:"cache_tier"`
	EnableTranscripts   bool     `json:"enable_transcripts"`
	TranscriptRateLimit string   `json:"transcript_rate_limit"`
	TranscriptLangs     []string `json:"transcript_langs"`
	CallTimeout         int      `json:"call_timeout"`
	FallbackKey         bool     `json:"fallback_key_configured"`
	LogLevel            string   `json:"log_level"`
}

// Config reports the effective configuration. Durations are in seconds.
func (e *Extractor) Config() ConfigReport {
	cfg := e.client.Config()
	return ConfigReport{
		APIVersion:          cfg.APIVersion,
		DailyQuotaLimit:     cfg.DailyQuotaLimit,
		RequestsPerSecond:   cfg.RequestsPerSecond,
		CacheEnabled:        cfg.CacheEnabled,
		CacheTTL:            int(cfg.CacheTTL.Seconds()),
		CacheMaxSize:        cfg.CacheMaxSize,
		CacheTier:           e.client.CacheTier(),
		EnableTranscripts:   cfg.TranscriptsEnabled,
		TranscriptRateLimit: cfg.TranscriptRateLimit,
		TranscriptLangs:     cfg.TranscriptLangs,
		CallTimeout:         int(cfg.CallTimeout.Seconds()),
		FallbackKey:         cfg.APIKeyFallback != "",
		LogLevel:            cfg.LogLevel,
	}
}
