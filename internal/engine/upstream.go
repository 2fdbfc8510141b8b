package engine

import "context"

// Upstream is the YouTube Data API boundary. Implementations issue exactly one
// request per call; rate limiting, retries, caching and pagination live in Client.
type Upstream interface {
	Videos(ctx context.Context, req VideosRequest) (*VideoPage, error)
	CommentThreads(ctx context.Context, req CommentThreadsRequest) (*CommentThreadPage, error)
	Channels(ctx context.Context, req ChannelsRequest) (*ChannelPage, error)
	Search(ctx context.Context, req SearchRequest) (*SearchPage, error)
	Playlists(ctx context.Context, req PlaylistsRequest) (*PlaylistPage, error)
	PlaylistItems(ctx context.Context, req PlaylistItemsRequest) (*PlaylistItemPage, error)
}

// FallbackGater is implemented by upstreams that may spend a second request
// on a backup credential. The client installs its rate limiter as the gate.
type FallbackGater interface {
	SetFallbackGate(fn func(ctx context.Context) error)
}

// --- requests ---

// VideosRequest selects videos by ID or, when Chart is set, by chart and region.
type VideosRequest struct {
	IDs        []string
	Parts      []string
	Chart      string
	RegionCode string
	MaxResults int64
}

type CommentThreadsRequest struct {
	VideoID    string
	Parts      []string
	MaxResults int64
	Order      string
	PageToken  string
	TextFormat string
}

type ChannelsRequest struct {
	IDs   []string
	Parts []string
}

type SearchRequest struct {
	Query      string
	Type       string
	Order      string
	RegionCode string
	MaxResults int64
	PageToken  string
}

type PlaylistsRequest struct {
	IDs   []string
	Parts []string
}

type PlaylistItemsRequest struct {
	PlaylistID string
	Parts      []string
	MaxResults int64
	PageToken  string
}

// --- pages ---

type VideoPage struct {
	Items         []Video `json:"items"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	TotalResults  int64   `json:"total_results"`
}

type CommentThreadPage struct {
	Items         []CommentThread `json:"items"`
	NextPageToken string          `json:"next_page_token,omitempty"`
	TotalResults  int64           `json:"total_results"`
}

type ChannelPage struct {
	Items []Channel `json:"items"`
}

type SearchPage struct {
	Items         []SearchItem `json:"items"`
	NextPageToken string       `json:"next_page_token,omitempty"`
	PrevPageToken string       `json:"prev_page_token,omitempty"`
	RegionCode    string       `json:"region_code,omitempty"`
	TotalResults  int64        `json:"total_results"`
}

type PlaylistPage struct {
	Items []Playlist `json:"items"`
}

type PlaylistItemPage struct {
	Items         []PlaylistItem `json:"items"`
	NextPageToken string         `json:"next_page_token,omitempty"`
	TotalResults  int64          `json:"total_results"`
}

// --- resources ---

// Thumbnail is one rendition of an image; Thumbnails is keyed by size name
// (default, medium, high, standard, maxres).
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int64  `json:"width,omitempty"`
	Height int64  `json:"height,omitempty"`
}

type Thumbnails map[string]Thumbnail

// Video mirrors the parts of a videos resource. Parts not requested or not
// returned are nil.
type Video struct {
	ID             string               `json:"id"`
	Snippet        *VideoSnippet        `json:"snippet,omitempty"`
	Statistics     *VideoStatistics     `json:"statistics,omitempty"`
	ContentDetails *VideoContentDetails `json:"content_details,omitempty"`
	Status         *VideoStatus         `json:"status,omitempty"`
}

type VideoSnippet struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	ChannelID            string     `json:"channel_id"`
	ChannelTitle         string     `json:"channel_title"`
	PublishedAt          string     `json:"published_at"`
	Thumbnails           Thumbnails `json:"thumbnails,omitempty"`
	Tags                 []string   `json:"tags,omitempty"`
	CategoryID           string     `json:"category_id,omitempty"`
	DefaultLanguage      string     `json:"default_language,omitempty"`
	LiveBroadcastContent string     `json:"live_broadcast_content,omitempty"`
}

type VideoStatistics struct {
	ViewCount     int64 `json:"view_count"`
	LikeCount     int64 `json:"like_count"`
	DislikeCount  int64 `json:"dislike_count"`
	CommentCount  int64 `json:"comment_count"`
	FavoriteCount int64 `json:"favorite_count"`
}

type VideoContentDetails struct {
	Duration   string `json:"duration"`
	Definition string `json:"definition,omitempty"`
	Dimension  string `json:"dimension,omitempty"`
	Caption    string `json:"caption,omitempty"`
}

type VideoStatus struct {
	PrivacyStatus string `json:"privacy_status,omitempty"`
	UploadStatus  string `json:"upload_status,omitempty"`
	License       string `json:"license,omitempty"`
	Embeddable    bool   `json:"embeddable"`
	MadeForKids   bool   `json:"made_for_kids"`
}

type Comment struct {
	ID                    string `json:"id"`
	AuthorDisplayName     string `json:"author_display_name"`
	AuthorChannelURL      string `json:"author_channel_url,omitempty"`
	AuthorProfileImageURL string `json:"author_profile_image_url,omitempty"`
	TextDisplay           string `json:"text_display"`
	TextOriginal          string `json:"text_original"`
	LikeCount             int64  `json:"like_count"`
	PublishedAt           string `json:"published_at"`
	UpdatedAt             string `json:"updated_at"`
	CanRate               bool   `json:"can_rate"`
	ParentID              string `json:"parent_id,omitempty"`
}

type CommentThread struct {
	ID              string    `json:"id"`
	VideoID         string    `json:"video_id"`
	TopLevelComment Comment   `json:"top_level_comment"`
	CanReply        bool      `json:"can_reply"`
	IsPublic        bool      `json:"is_public"`
	TotalReplyCount int64     `json:"total_reply_count"`
	Replies         []Comment `json:"replies,omitempty"`
}

type Channel struct {
	ID               string             `json:"id"`
	Snippet          *ChannelSnippet    `json:"snippet,omitempty"`
	Statistics       *ChannelStatistics `json:"statistics,omitempty"`
	UploadsPlaylist  string             `json:"uploads_playlist,omitempty"`
	Status           *ChannelStatus     `json:"status,omitempty"`
	BrandingKeywords string             `json:"branding_keywords,omitempty"`
}

type ChannelSnippet struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CustomURL   string     `json:"custom_url,omitempty"`
	PublishedAt string     `json:"published_at"`
	Thumbnails  Thumbnails `json:"thumbnails,omitempty"`
	Country     string     `json:"country,omitempty"`
}

type ChannelStatistics struct {
	ViewCount             int64 `json:"view_count"`
	SubscriberCount       int64 `json:"subscriber_count"`
	HiddenSubscriberCount bool  `json:"hidden_subscriber_count"`
	VideoCount            int64 `json:"video_count"`
}

type ChannelStatus struct {
	PrivacyStatus string `json:"privacy_status,omitempty"`
	MadeForKids   bool   `json:"made_for_kids"`
}

// SearchItem is one search hit; exactly one of VideoID, ChannelID, PlaylistID is set.
type SearchItem struct {
	Kind                 string     `json:"kind"`
	VideoID              string     `json:"video_id,omitempty"`
	ChannelID            string     `json:"channel_id,omitempty"`
	PlaylistID           string     `json:"playlist_id,omitempty"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	SnippetChannelID     string     `json:"snippet_channel_id"`
	ChannelTitle         string     `json:"channel_title"`
	PublishedAt          string     `json:"published_at"`
	Thumbnails           Thumbnails `json:"thumbnails,omitempty"`
	LiveBroadcastContent string     `json:"live_broadcast_content,omitempty"`
}

type Playlist struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ChannelID     string     `json:"channel_id"`
	ChannelTitle  string     `json:"channel_title"`
	PublishedAt   string     `json:"published_at"`
	Thumbnails    Thumbnails `json:"thumbnails,omitempty"`
	ItemCount     int64      `json:"item_count"`
	PrivacyStatus string     `json:"privacy_status,omitempty"`
}

type PlaylistItem struct {
	ID           string     `json:"id"`
	VideoID      string     `json:"video_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ChannelTitle string     `json:"channel_title"`
	PublishedAt  string     `json:"published_at"`
	Thumbnails   Thumbnails `json:"thumbnails,omitempty"`
	Position     int64      `json:"position"`
}

// TranscriptSegment is one timed caption line; times are in seconds.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// TranscriptData is what a transcript source returns for one video.
type TranscriptData struct {
	VideoID      string              `json:"video_id"`
	Language     string              `json:"language,omitempty"`
	LanguageCode string              `json:"language_code,omitempty"`
	IsGenerated  bool                `json:"is_generated"`
	Segments     []TranscriptSegment `json:"segments"`
}
