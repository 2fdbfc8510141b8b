package engine

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds all client configuration, injected from main.
type Config struct {
	APIKey              string
	APIKeyFallback      string
	APIVersion          string
	DailyQuotaLimit     int
	RequestsPerSecond   float64
	CacheEnabled        bool
	CacheTTL            time.Duration
	CacheMaxSize        int
	RedisURL            string // empty = no redis L2
	CacheDBPath         string // empty = no sqlite L2; ignored when RedisURL is set
	TranscriptsEnabled  bool
	TranscriptRateLimit string // e.g. "500K" bytes per second
	TranscriptLangs     []string
	CallTimeout         time.Duration
	LogLevel            string
	Retry               RetryConfig
	HTTPClient          *http.Client
}

// DefaultConfig mirrors the documented environment defaults.
func DefaultConfig() Config {
	return Config{
		APIVersion:          "v3",
		DailyQuotaLimit:     10000,
		RequestsPerSecond:   10,
		CacheEnabled:        true,
		CacheTTL:            time.Hour,
		CacheMaxSize:        1000,
		TranscriptsEnabled:  true,
		TranscriptRateLimit: "500K",
		TranscriptLangs:     []string{"en"},
		CallTimeout:         30 * time.Second,
		LogLevel:            "info",
		Retry:               DefaultRetryConfig,
	}
}

// Validate reports configuration values the client cannot run with.
func (c Config) Validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.DailyQuotaLimit <= 0 {
		return fmt.Errorf("daily quota limit must be positive, got %d", c.DailyQuotaLimit)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL)
	}
	if c.CacheMaxSize <= 0 {
		return fmt.Errorf("cache max size must be positive, got %d", c.CacheMaxSize)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call timeout must not be negative, got %s", c.CallTimeout)
	}
	return nil
}
