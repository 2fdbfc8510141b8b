package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// DataAPI implements engine.Upstream on top of the YouTube Data API v3.
// A fallback key, when configured, is tried once whenever the primary key
// reports quotaExceeded. That second request passes the fallback gate first.
type DataAPI struct {
	primary  *youtube.Service
	fallback *youtube.Service
	gate     func(ctx context.Context) error
}

// SetFallbackGate installs fn to admit fallback-key requests.
func (d *DataAPI) SetFallbackGate(fn func(ctx context.Context) error) { d.gate = fn }

// NewDataAPI builds Data API services for the configured keys. Extra options
// (endpoint, HTTP client) apply to both keys.
func NewDataAPI(ctx context.Context, cfg engine.Config, opts ...option.ClientOption) (*DataAPI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("youtube data api: api key is required")
	}
	build := func(key string) (*youtube.Service, error) {
		all := []option.ClientOption{option.WithAPIKey(key)}
		if cfg.HTTPClient != nil {
			all = append(all, option.WithHTTPClient(withAPIKey(cfg.HTTPClient, key)))
		}
		all = append(all, opts...)
		return youtube.NewService(ctx, all...)
	}

	primary, err := build(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("youtube data api: %w", err)
	}
	d := &DataAPI{primary: primary}
	if cfg.APIKeyFallback != "" {
		if d.fallback, err = build(cfg.APIKeyFallback); err != nil {
			return nil, fmt.Errorf("youtube data api fallback: %w", err)
		}
	}
	return d, nil
}

// withAPIKey wraps base so every request carries key. option.WithHTTPClient
// bypasses the library's own key transport.
func withAPIKey(base *http.Client, key string) *http.Client {
	c := *base
	next := base.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	c.Transport = &keyTransport{key: key, next: next}
	return &c
}

type keyTransport struct {
	key  string
	next http.RoundTripper
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()
	return t.next.RoundTrip(r)
}

// withFallback runs fn with the primary service and retries once on the
// fallback service when the primary key is out of quota.
func withFallback[T any](ctx context.Context, d *DataAPI, op string, fn func(svc *youtube.Service) (T, error)) (T, error) {
	out, err := fn(d.primary)
	if err == nil || d.fallback == nil || !isQuotaError(err) {
		return out, err
	}
	if d.gate != nil {
		if gateErr := d.gate(ctx); gateErr != nil {
			var zero T
			return zero, gateErr
		}
	}
	slog.Warn("youtube data api: primary key out of quota, using fallback", slog.String("op", op))
	return fn(d.fallback)
}

func isQuotaError(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) || gErr.Code != http.StatusForbidden {
		return false
	}
	for _, e := range gErr.Errors {
		if e.Reason == engine.ReasonQuotaExceeded || e.Reason == "dailyLimitExceeded" {
			return true
		}
	}
	return false
}

func (d *DataAPI) Videos(ctx context.Context, req engine.VideosRequest) (*engine.VideoPage, error) {
	return withFallback(ctx, d, "videos.list", func(svc *youtube.Service) (*engine.VideoPage, error) {
		call := svc.Videos.List(req.Parts).Context(ctx)
		if req.Chart != "" {
			call = call.Chart(req.Chart)
			if req.RegionCode != "" {
				call = call.RegionCode(req.RegionCode)
			}
		} else {
			call = call.Id(req.IDs...)
		}
		if req.MaxResults > 0 {
			call = call.MaxResults(req.MaxResults)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		page := &engine.VideoPage{
			Items:         make([]engine.Video, 0, len(resp.Items)),
			NextPageToken: resp.NextPageToken,
			TotalResults:  totalResults(resp.PageInfo),
		}
		for _, v := range resp.Items {
			page.Items = append(page.Items, mapVideo(v))
		}
		return page, nil
	})
}

func (d *DataAPI) CommentThreads(ctx context.Context, req engine.CommentThreadsRequest) (*engine.CommentThreadPage, error) {
	return withFallback(ctx, d, "commentThreads.list", func(svc *youtube.Service) (*engine.CommentThreadPage, error) {
		call := svc.CommentThreads.List(req.Parts).VideoId(req.VideoID).Context(ctx)
		if req.MaxResults > 0 {
			call = call.MaxResults(req.MaxResults)
		}
		if req.Order != "" {
			call = call.Order(req.Order)
		}
		if req.PageToken != "" {
			call = call.PageToken(req.PageToken)
		}
		if req.TextFormat != "" {
			call = call.TextFormat(req.TextFormat)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		page := &engine.CommentThreadPage{
			Items:         make([]engine.CommentThread, 0, len(resp.Items)),
			NextPageToken: resp.NextPageToken,
			TotalResults:  totalResults(resp.PageInfo),
		}
		for _, t := range resp.Items {
			page.Items = append(page.Items, mapCommentThread(t))
		}
		return page, nil
	})
}

func (d *DataAPI) Channels(ctx context.Context, req engine.ChannelsRequest) (*engine.ChannelPage, error) {
	return withFallback(ctx, d, "channels.list", func(svc *youtube.Service) (*engine.ChannelPage, error) {
		resp, err := svc.Channels.List(req.Parts).Id(req.IDs...).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		page := &engine.ChannelPage{Items: make([]engine.Channel, 0, len(resp.Items))}
		for _, c := range resp.Items {
			page.Items = append(page.Items, mapChannel(c))
		}
		return page, nil
	})
}

func (d *DataAPI) Search(ctx context.Context, req engine.SearchRequest) (*engine.SearchPage, error) {
	return withFallback(ctx, d, "search.list", func(svc *youtube.Service) (*engine.SearchPage, error) {
		call := svc.Search.List([]string{"snippet"}).Q(req.Query).Context(ctx)
		if req.Type != "" {
			call = call.Type(req.Type)
		}
		if req.Order != "" {
			call = call.Order(req.Order)
		}
		if req.RegionCode != "" {
			call = call.RegionCode(req.RegionCode)
		}
		if req.MaxResults > 0 {
			call = call.MaxResults(req.MaxResults)
		}
		if req.PageToken != "" {
			call = call.PageToken(req.PageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		page := &engine.SearchPage{
			Items:         make([]engine.SearchItem, 0, len(resp.Items)),
			NextPageToken: resp.NextPageToken,
			PrevPageToken: resp.PrevPageToken,
			RegionCode:    resp.RegionCode,
			TotalResults:  totalResults(resp.PageInfo),
		}
		for _, r := range resp.Items {
			page.Items = append(page.Items, mapSearchResult(r))
		}
		return page, nil
	})
}

func (d *DataAPI) Playlists(ctx context.Context, req engine.PlaylistsRequest) (*engine.PlaylistPage, error) {
	return withFallback(ctx, d, "playlists.list", func(svc *youtube.Service) (*engine.PlaylistPage, error) {
		resp, err := svc.Playlists.List(req.Parts).Id(req.IDs...).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		page := &engine.PlaylistPage{Items: make([]engine.Playlist, 0, len(resp.Items))}
		for _, p := range resp.Items {
			page.Items = append(page.Items, mapPlaylist(p))
		}
		return page, nil
	})
}

func (d *DataAPI) PlaylistItems(ctx context.Context, req engine.PlaylistItemsRequest) (*engine.PlaylistItemPage, error) {
	return withFallback(ctx, d, "playlistItems.list", func(svc *youtube.Service) (*engine.PlaylistItemPage, error) {
		call := svc.PlaylistItems.List(req.Parts).PlaylistId(req.PlaylistID).Context(ctx)
		if req.MaxResults > 0 {
			call = call.MaxResults(req.MaxResults)
		}
		if req.PageToken != "" {
			call = call.PageToken(req.PageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		page := &engine.PlaylistItemPage{
			Items:         make([]engine.PlaylistItem, 0, len(resp.Items)),
			NextPageToken: resp.NextPageToken,
			TotalResults:  totalResults(resp.PageInfo),
		}
		for _, it := range resp.Items {
			page.Items = append(page.Items, mapPlaylistItem(it))
		}
		return page, nil
	})
}

// --- resource mapping ---

func totalResults(p *youtube.PageInfo) int64 {
	if p == nil {
		return 0
	}
	return p.TotalResults
}

func mapThumbnails(td *youtube.ThumbnailDetails) engine.Thumbnails {
	if td == nil {
		return nil
	}
	out := engine.Thumbnails{}
	for name, t := range map[string]*youtube.Thumbnail{
		"default":  td.Default,
		"medium":   td.Medium,
		"high":     td.High,
		"standard": td.Standard,
		"maxres":   td.Maxres,
	} {
		if t != nil && t.Url != "" {
			out[name] = engine.Thumbnail{URL: t.Url, Width: t.Width, Height: t.Height}
		}
	}
	return out
}

func mapVideo(v *youtube.Video) engine.Video {
	out := engine.Video{ID: v.Id}
	if s := v.Snippet; s != nil {
		out.Snippet = &engine.VideoSnippet{
			Title:                s.Title,
			Description:          s.Description,
			ChannelID:            s.ChannelId,
			ChannelTitle:         s.ChannelTitle,
			PublishedAt:          s.PublishedAt,
			Thumbnails:           mapThumbnails(s.Thumbnails),
			Tags:                 s.Tags,
			CategoryID:           s.CategoryId,
			DefaultLanguage:      s.DefaultLanguage,
			LiveBroadcastContent: s.LiveBroadcastContent,
		}
	}
	if st := v.Statistics; st != nil {
		out.Statistics = &engine.VideoStatistics{
			ViewCount:     int64(st.ViewCount),
			LikeCount:     int64(st.LikeCount),
			DislikeCount:  int64(st.DislikeCount),
			CommentCount:  int64(st.CommentCount),
			FavoriteCount: int64(st.FavoriteCount),
		}
	}
	if cd := v.ContentDetails; cd != nil {
		out.ContentDetails = &engine.VideoContentDetails{
			Duration:   cd.Duration,
			Definition: cd.Definition,
			Dimension:  cd.Dimension,
			Caption:    cd.Caption,
		}
	}
	if st := v.Status; st != nil {
		out.Status = &engine.VideoStatus{
			PrivacyStatus: st.PrivacyStatus,
			UploadStatus:  st.UploadStatus,
			License:       st.License,
			Embeddable:    st.Embeddable,
			MadeForKids:   st.MadeForKids,
		}
	}
	return out
}

func mapComment(c *youtube.Comment) engine.Comment {
	if c == nil {
		return engine.Comment{}
	}
	out := engine.Comment{ID: c.Id}
	if s := c.Snippet; s != nil {
		out.AuthorDisplayName = s.AuthorDisplayName
		out.AuthorChannelURL = s.AuthorChannelUrl
		out.AuthorProfileImageURL = s.AuthorProfileImageUrl
		out.TextDisplay = s.TextDisplay
		out.TextOriginal = s.TextOriginal
		out.LikeCount = s.LikeCount
		out.PublishedAt = s.PublishedAt
		out.UpdatedAt = s.UpdatedAt
		out.CanRate = s.CanRate
		out.ParentID = s.ParentId
	}
	return out
}

func mapCommentThread(t *youtube.CommentThread) engine.CommentThread {
	out := engine.CommentThread{ID: t.Id}
	if s := t.Snippet; s != nil {
		out.VideoID = s.VideoId
		out.TopLevelComment = mapComment(s.TopLevelComment)
		out.CanReply = s.CanReply
		out.IsPublic = s.IsPublic
		out.TotalReplyCount = s.TotalReplyCount
	}
	if t.Replies != nil {
		for _, r := range t.Replies.Comments {
			out.Replies = append(out.Replies, mapComment(r))
		}
	}
	return out
}

func mapChannel(c *youtube.Channel) engine.Channel {
	out := engine.Channel{ID: c.Id}
	if s := c.Snippet; s != nil {
		out.Snippet = &engine.ChannelSnippet{
			Title:       s.Title,
			Description: s.Description,
			CustomURL:   s.CustomUrl,
			PublishedAt: s.PublishedAt,
			Thumbnails:  mapThumbnails(s.Thumbnails),
			Country:     s.Country,
		}
	}
	if st := c.Statistics; st != nil {
		out.Statistics = &engine.ChannelStatistics{
			ViewCount:             int64(st.ViewCount),
			SubscriberCount:       int64(st.SubscriberCount),
			HiddenSubscriberCount: st.HiddenSubscriberCount,
			VideoCount:            int64(st.VideoCount),
		}
	}
	if cd := c.ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		out.UploadsPlaylist = cd.RelatedPlaylists.Uploads
	}
	if st := c.Status; st != nil {
		out.Status = &engine.ChannelStatus{PrivacyStatus: st.PrivacyStatus, MadeForKids: st.MadeForKids}
	}
	if b := c.BrandingSettings; b != nil && b.Channel != nil {
		out.BrandingKeywords = b.Channel.Keywords
	}
	return out
}

func mapSearchResult(r *youtube.SearchResult) engine.SearchItem {
	out := engine.SearchItem{}
	if id := r.Id; id != nil {
		out.Kind = id.Kind
		out.VideoID = id.VideoId
		out.ChannelID = id.ChannelId
		out.PlaylistID = id.PlaylistId
	}
	if s := r.Snippet; s != nil {
		out.Title = s.Title
		out.Description = s.Description
		out.SnippetChannelID = s.ChannelId
		out.ChannelTitle = s.ChannelTitle
		out.PublishedAt = s.PublishedAt
		out.Thumbnails = mapThumbnails(s.Thumbnails)
		out.LiveBroadcastContent = s.LiveBroadcastContent
	}
	return out
}

func mapPlaylist(p *youtube.Playlist) engine.Playlist {
	out := engine.Playlist{ID: p.Id}
	if s := p.Snippet; s != nil {
		out.Title = s.Title
		out.Description = s.Description
		out.ChannelID = s.ChannelId
		out.ChannelTitle = s.ChannelTitle
		out.PublishedAt = s.PublishedAt
		out.Thumbnails = mapThumbnails(s.Thumbnails)
	}
	if cd := p.ContentDetails; cd != nil {
		out.ItemCount = cd.ItemCount
	}
	if st := p.Status; st != nil {
		out.PrivacyStatus = st.PrivacyStatus
	}
	return out
}

func mapPlaylistItem(it *youtube.PlaylistItem) engine.PlaylistItem {
	out := engine.PlaylistItem{ID: it.Id}
	if s := it.Snippet; s != nil {
		out.Title = s.Title
		out.Description = s.Description
		out.ChannelTitle = s.ChannelTitle
		out.PublishedAt = s.PublishedAt
		out.Thumbnails = mapThumbnails(s.Thumbnails)
		out.Position = s.Position
		if s.ResourceId != nil {
			out.VideoID = s.ResourceId.VideoId
		}
	}
	if cd := it.ContentDetails; cd != nil && cd.VideoId != "" {
		out.VideoID = cd.VideoId
	}
	return out
}
