// go_youtube: YouTube Data API MCP server.
//
// Exposes video, comment, transcript, channel, playlist, search and trending
// tools backed by the official YouTube Data API v3, with a per-second and
// daily request budget, a TTL+LRU response cache and bounded batch fan-out.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/anatolykoptev/go_youtube/internal/engine/sources"
	"github.com/anatolykoptev/go_youtube/internal/extractor"
	"github.com/anatolykoptev/go_youtube/internal/ytserver"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8892")
)

func main() {
	cfg := loadConfig()
	setupLogging(cfg.LogLevel)

	ex, client, err := initExtractor(context.Background(), cfg)
	if err != nil {
		slog.Error("extractor init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Close()

	slog.Info("starting go_youtube",
		slog.String("port", mcpPort),
		slog.Int("daily_quota", cfg.DailyQuotaLimit),
		slog.Float64("rps", cfg.RequestsPerSecond),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_youtube",
		Version: version,
	}, nil)

	n := ytserver.RegisterTools(server, ex)
	slog.Info("tools registered", slog.Int("count", n))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_youtube",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      client.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	d := engine.DefaultConfig()
	cfg := engine.Config{
		APIKey:              env.Str("YOUTUBE_API_KEY", ""),
		APIKeyFallback:      env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		APIVersion:          env.Str("YOUTUBE_API_VERSION", d.APIVersion),
		DailyQuotaLimit:     env.Int("YOUTUBE_DAILY_QUOTA_LIMIT", d.DailyQuotaLimit),
		RequestsPerSecond:   env.Float("YOUTUBE_REQUESTS_PER_SECOND", d.RequestsPerSecond),
		CacheEnabled:        envBool("YOUTUBE_CACHE_ENABLED", d.CacheEnabled),
		CacheTTL:            env.Duration("YOUTUBE_CACHE_TTL", d.CacheTTL),
		CacheMaxSize:        env.Int("YOUTUBE_CACHE_MAX_SIZE", d.CacheMaxSize),
		RedisURL:            env.Str("REDIS_URL", ""),
		CacheDBPath:         env.Str("CACHE_DB_PATH", ""),
		TranscriptsEnabled:  envBool("YOUTUBE_ENABLE_TRANSCRIPTS", d.TranscriptsEnabled),
		TranscriptRateLimit: env.Str("YOUTUBE_TRANSCRIPT_RATE_LIMIT", d.TranscriptRateLimit),
		TranscriptLangs:     env.List("YOUTUBE_TRANSCRIPT_LANGS", "en"),
		CallTimeout:         env.Duration("YOUTUBE_CALL_TIMEOUT", d.CallTimeout),
		LogLevel:            env.Str("LOG_LEVEL", d.LogLevel),
		Retry:               engine.DefaultRetryConfig,
	}
	// Shared by the Data API and transcript fetches, so both honour the call timeout.
	cfg.HTTPClient = &http.Client{
		Timeout: cfg.CallTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}
	return cfg
}

// envBool reads a boolean; unparseable values fall back to def.
func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("ignoring bad boolean", slog.String("key", key), slog.String("value", v))
		return def
	}
	return b
}

// setupLogging routes slog to stderr so stdio transport stays clean.
func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func initExtractor(ctx context.Context, cfg engine.Config) (*extractor.Extractor, *engine.Client, error) {
	api, err := sources.NewDataAPI(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var opts []engine.ClientOption
	switch {
	case cfg.RedisURL != "":
		tier, err := engine.NewRedisTier(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis cache tier unavailable, memory only", slog.Any("error", err))
		} else {
			opts = append(opts, engine.WithCacheTier(tier))
			slog.Info("redis cache tier initialized")
		}
	case cfg.CacheDBPath != "":
		tier, err := engine.OpenSQLiteTier(cfg.CacheDBPath)
		if err != nil {
			slog.Warn("sqlite cache tier unavailable, memory only", slog.Any("error", err))
		} else {
			go tier.PruneLoop(ctx, 10*time.Minute)
			opts = append(opts, engine.WithCacheTier(tier))
			slog.Info("sqlite cache tier initialized", slog.String("path", cfg.CacheDBPath))
		}
	}

	client, err := engine.New(cfg, api, opts...)
	if err != nil {
		return nil, nil, err
	}

	var ts extractor.TranscriptSource
	if cfg.TranscriptsEnabled {
		ts = sources.NewTranscriptFetcher(cfg)
		slog.Info("transcript fetcher enabled", slog.String("rate_limit", cfg.TranscriptRateLimit))
	}
	return extractor.New(client, ts), client, nil
}
