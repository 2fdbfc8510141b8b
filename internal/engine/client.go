package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Default upstream parts per resource.
var (
	VideoParts        = []string{"snippet", "statistics", "contentDetails", "status"}
	ChannelParts      = []string{"snippet", "statistics", "contentDetails", "brandingSettings", "status"}
	PlaylistParts     = []string{"snippet", "contentDetails", "status"}
	PlaylistItemParts = []string{"snippet", "contentDetails"}
	CommentParts      = []string{"snippet", "replies"}
)

// Upstream page-size ceilings.
const (
	maxVideoIDs          = 50
	maxSearchResults     = 50
	maxCommentsPerPage   = 100
	maxPlaylistItemsPage = 50
)

var channelIDRe = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)

// IsChannelID reports whether s has the canonical channel ID shape.
func IsChannelID(s string) bool { return channelIDRe.MatchString(s) }

// errCommentsDisabled short-circuits retries for the comments soft failure.
var errCommentsDisabled = errors.New("comments disabled")

// Client orchestrates every Data API call: cache lookup, rate limiting,
// retried upstream call and cache store, in that order.
type Client struct {
	upstream    Upstream
	cache       *ResponseCache
	limiter     *RateLimiter
	retry       RetryConfig
	callTimeout time.Duration
	cfg         Config
}

// ClientOption customises a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	tier        SecondTier
	limiterOpts []RateLimiterOption
}

// WithCacheTier attaches a durable second cache tier.
func WithCacheTier(t SecondTier) ClientOption {
	return func(o *clientOptions) { o.tier = t }
}

// WithLimiterOptions passes options through to the rate limiter.
func WithLimiterOptions(opts ...RateLimiterOption) ClientOption {
	return func(o *clientOptions) { o.limiterOpts = append(o.limiterOpts, opts...) }
}

// New builds a Client from cfg around the given upstream.
func New(cfg Config, up Upstream, opts ...ClientOption) (*Client, error) {
	if up == nil {
		return nil, errors.New("engine: upstream is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	var cacheOpts []CacheOption
	if o.tier != nil {
		cacheOpts = append(cacheOpts, WithSecondTier(o.tier))
	}
	cache, err := NewResponseCache(cfg.CacheMaxSize, cfg.CacheTTL, cacheOpts...)
	if err != nil {
		return nil, err
	}
	if !cfg.CacheEnabled {
		cache.Disable()
	}
	limiter, err := NewRateLimiter(cfg.RequestsPerSecond, cfg.DailyQuotaLimit, o.limiterOpts...)
	if err != nil {
		return nil, err
	}

	if g, ok := up.(FallbackGater); ok {
		g.SetFallbackGate(limiter.Acquire)
	}

	rc := cfg.Retry
	if rc.MaxAttempts == 0 {
		rc = DefaultRetryConfig
	}
	return &Client{
		upstream:    up,
		cache:       cache,
		limiter:     limiter,
		retry:       rc,
		callTimeout: cfg.CallTimeout,
		cfg:         cfg,
	}, nil
}

// Cache exposes the response cache for stats and clearing.
func (c *Client) Cache() *ResponseCache { return c.cache }

// CacheTier reports which durable tier the cache runs with.
func (c *Client) CacheTier() string { return c.cache.Tier() }

// Limiter exposes the rate limiter for stats.
func (c *Client) Limiter() *RateLimiter { return c.limiter }

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.cfg }

// Close releases the cache's durable tier.
func (c *Client) Close() error { return c.cache.Close() }

// call runs one upstream request through the rate limiter and retry policy.
// Each attempt acquires its own permit and gets its own timeout.
func call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return RetryDo(ctx, c.retry, func() (T, error) {
		var zero T
		if err := c.limiter.Acquire(ctx); err != nil {
			return zero, err
		}
		callCtx, cancel := c.withTimeout(ctx)
		defer cancel()

		metrics.UpstreamCalls.Add(1)
		out, err := fn(callCtx)
		if err != nil {
			if errors.Is(err, errCommentsDisabled) {
				return zero, err
			}
			metrics.UpstreamErrors.Add(1)
			err = classifyError(err)
			slog.Debug("upstream call failed", slog.String("op", op), slog.Any("error", err))
			return zero, err
		}
		return out, nil
	})
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// cached returns the cached T for key or computes, stores and returns it.
func cached[T any](ctx context.Context, c *Client, key string, fetch func() (T, error)) (T, error) {
	if out, ok := CacheLoadJSON[T](ctx, c.cache, key); ok {
		return out, nil
	}
	out, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	CacheStoreJSON(ctx, c.cache, key, out)
	return out, nil
}

// VideoDetails fetches up to 50 videos by ID.
func (c *Client) VideoDetails(ctx context.Context, ids []string, parts []string) (*VideoPage, error) {
	if len(ids) == 0 {
		return nil, InvalidInputf("at least one video id is required")
	}
	if len(ids) > maxVideoIDs {
		return nil, InvalidInputf("at most %d video ids per request, got %d", maxVideoIDs, len(ids))
	}
	if len(parts) == 0 {
		parts = VideoParts
	}
	key := CacheKey("videos", strings.Join(ids, ","), strings.Join(parts, ","))
	return cached(ctx, c, key, func() (*VideoPage, error) {
		return call(ctx, c, "videos.list", func(ctx context.Context) (*VideoPage, error) {
			return c.upstream.Videos(ctx, VideosRequest{IDs: ids, Parts: parts, MaxResults: int64(len(ids))})
		})
	})
}

// TrendingVideos fetches the most popular chart for region.
func (c *Client) TrendingVideos(ctx context.Context, region string, maxResults int) (*VideoPage, error) {
	if maxResults <= 0 {
		return nil, InvalidInputf("max results must be positive, got %d", maxResults)
	}
	maxResults = min(maxResults, maxSearchResults)
	region = strings.ToUpper(strings.TrimSpace(region))
	key := CacheKey("trending", region, maxResults)
	return cached(ctx, c, key, func() (*VideoPage, error) {
		return call(ctx, c, "videos.list", func(ctx context.Context) (*VideoPage, error) {
			return c.upstream.Videos(ctx, VideosRequest{
				Parts:      VideoParts,
				Chart:      "mostPopular",
				RegionCode: region,
				MaxResults: int64(maxResults),
			})
		})
	})
}

// CommentsResult is an aggregated comment listing.
// CommentsDisabled distinguishes "disabled on this video" from "no comments yet".
type CommentsResult struct {
	Items            []CommentThread `json:"items"`
	NextPageToken    string          `json:"next_page_token,omitempty"`
	TotalResults     int             `json:"total_results"`
	CommentsDisabled bool            `json:"comments_disabled"`
}

// VideoComments collects up to maxResults comment threads across pages.
// Disabled comments yield an empty result, not an error.
func (c *Client) VideoComments(ctx context.Context, videoID string, maxResults int, order string) (*CommentsResult, error) {
	if videoID == "" {
		return nil, InvalidInputf("video id is required")
	}
	if maxResults <= 0 {
		return nil, InvalidInputf("max comments must be positive, got %d", maxResults)
	}
	if order == "" {
		order = "relevance"
	}
	key := CacheKey("comments", videoID, maxResults, order)
	return cached(ctx, c, key, func() (*CommentsResult, error) {
		return c.commentsFrom(ctx, videoID, maxResults, order, "")
	})
}

// commentsFrom paginates comments starting at pageToken without caching.
func (c *Client) commentsFrom(ctx context.Context, videoID string, maxResults int, order, pageToken string) (*CommentsResult, error) {
	items, next, err := collectPages(ctx, pageToken, maxResults, func(ctx context.Context, token string, remaining int) ([]CommentThread, string, error) {
		page, err := call(ctx, c, "commentThreads.list", func(ctx context.Context) (*CommentThreadPage, error) {
			p, err := c.upstream.CommentThreads(ctx, CommentThreadsRequest{
				VideoID:    videoID,
				Parts:      CommentParts,
				MaxResults: int64(min(maxCommentsPerPage, remaining)),
				Order:      order,
				PageToken:  token,
				TextFormat: "plainText",
			})
			if err != nil && ReasonOf(classifyError(err)) == ReasonCommentsDisabled {
				return nil, errCommentsDisabled
			}
			return p, err
		})
		if err != nil {
			return nil, "", err
		}
		return page.Items, page.NextPageToken, nil
	})
	if errors.Is(err, errCommentsDisabled) {
		metrics.CommentsDisabled.Add(1)
		slog.Info("comments disabled", slog.String("video_id", videoID))
		return &CommentsResult{Items: []CommentThread{}, CommentsDisabled: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &CommentsResult{Items: items, NextPageToken: next, TotalResults: len(items)}, nil
}

// ChannelDetails fetches one channel. A reference that is not a canonical
// channel ID (handle, custom name, legacy user name) is resolved by a
// channel search first; the result is cached under the original reference.
func (c *Client) ChannelDetails(ctx context.Context, ref string, parts []string) (*Channel, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, InvalidInputf("channel reference is required")
	}
	if len(parts) == 0 {
		parts = ChannelParts
	}
	key := CacheKey("channel", ref, strings.Join(parts, ","))
	return cached(ctx, c, key, func() (*Channel, error) {
		id := ref
		if !IsChannelID(ref) {
			resolved, err := c.resolveChannel(ctx, ref)
			if err != nil {
				return nil, err
			}
			id = resolved
		}
		page, err := call(ctx, c, "channels.list", func(ctx context.Context) (*ChannelPage, error) {
			return c.upstream.Channels(ctx, ChannelsRequest{IDs: []string{id}, Parts: parts})
		})
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			return nil, fmt.Errorf("channel %s: %w", id, ErrNotFound)
		}
		return &page.Items[0], nil
	})
}

func (c *Client) resolveChannel(ctx context.Context, name string) (string, error) {
	page, err := call(ctx, c, "search.list", func(ctx context.Context) (*SearchPage, error) {
		return c.upstream.Search(ctx, SearchRequest{Query: strings.TrimPrefix(name, "@"), Type: "channel", MaxResults: 1})
	})
	if err != nil {
		return "", err
	}
	for _, it := range page.Items {
		if it.ChannelID != "" {
			return it.ChannelID, nil
		}
		if it.SnippetChannelID != "" {
			return it.SnippetChannelID, nil
		}
	}
	return "", fmt.Errorf("channel %s: %w", name, ErrNotFound)
}

// Search runs one search page of up to 50 results.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, InvalidInputf("query is required")
	}
	if req.MaxResults <= 0 {
		return nil, InvalidInputf("max results must be positive, got %d", req.MaxResults)
	}
	req.MaxResults = min(req.MaxResults, maxSearchResults)
	if req.Type == "" {
		req.Type = "video"
	}
	if req.Order == "" {
		req.Order = "relevance"
	}
	key := CacheKey("search", req.Query, req.MaxResults, req.Type, req.Order, req.RegionCode, req.PageToken)
	return cached(ctx, c, key, func() (*SearchPage, error) {
		return call(ctx, c, "search.list", func(ctx context.Context) (*SearchPage, error) {
			return c.upstream.Search(ctx, req)
		})
	})
}

// PlaylistDetails fetches one playlist's metadata.
func (c *Client) PlaylistDetails(ctx context.Context, playlistID string, parts []string) (*Playlist, error) {
	if playlistID == "" {
		return nil, InvalidInputf("playlist id is required")
	}
	if len(parts) == 0 {
		parts = PlaylistParts
	}
	key := CacheKey("playlist", playlistID, strings.Join(parts, ","))
	return cached(ctx, c, key, func() (*Playlist, error) {
		page, err := call(ctx, c, "playlists.list", func(ctx context.Context) (*PlaylistPage, error) {
			return c.upstream.Playlists(ctx, PlaylistsRequest{IDs: []string{playlistID}, Parts: parts})
		})
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			return nil, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
		}
		return &page.Items[0], nil
	})
}

// PlaylistItemsResult is an aggregated playlist listing.
type PlaylistItemsResult struct {
	Items         []PlaylistItem `json:"items"`
	NextPageToken string         `json:"next_page_token,omitempty"`
	TotalResults  int            `json:"total_results"`
}

// PlaylistItems collects up to maxResults playlist entries across pages.
func (c *Client) PlaylistItems(ctx context.Context, playlistID string, maxResults int) (*PlaylistItemsResult, error) {
	if playlistID == "" {
		return nil, InvalidInputf("playlist id is required")
	}
	if maxResults <= 0 {
		return nil, InvalidInputf("max results must be positive, got %d", maxResults)
	}
	key := CacheKey("playlist_items", playlistID, maxResults)
	return cached(ctx, c, key, func() (*PlaylistItemsResult, error) {
		items, next, err := collectPages(ctx, "", maxResults, func(ctx context.Context, token string, remaining int) ([]PlaylistItem, string, error) {
			page, err := call(ctx, c, "playlistItems.list", func(ctx context.Context) (*PlaylistItemPage, error) {
				return c.upstream.PlaylistItems(ctx, PlaylistItemsRequest{
					PlaylistID: playlistID,
					Parts:      PlaylistItemParts,
					MaxResults: int64(min(maxPlaylistItemsPage, remaining)),
					PageToken:  token,
				})
			})
			if err != nil {
				return nil, "", err
			}
			return page.Items, page.NextPageToken, nil
		})
		if err != nil {
			return nil, err
		}
		return &PlaylistItemsResult{Items: items, NextPageToken: next, TotalResults: len(items)}, nil
	})
}

// ClientStats bundles cache and rate limiter state.
type ClientStats struct {
	RateLimiter RateLimiterStats `json:"rate_limiter"`
	Cache       CacheStats       `json:"cache"`
}

// Stats returns the client's cache and quota state.
func (c *Client) Stats() ClientStats {
	return ClientStats{RateLimiter: c.limiter.Stats(), Cache: c.cache.Stats()}
}

// ClearCache drops every cached response.
func (c *Client) ClearCache(ctx context.Context) CacheStats {
	c.cache.Clear(ctx)
	return c.cache.Stats()
}
