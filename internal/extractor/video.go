package extractor

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/anatolykoptev/go_youtube/internal/engine/sources"
)

// VideoStatistics are the public counters of a video.
type VideoStatistics struct {
	ViewCount     int64 `json:"view_count"`
	LikeCount     int64 `json:"like_count"`
	CommentCount  int64 `json:"comment_count"`
	FavoriteCount int64 `json:"favorite_count"`
}

// Duration carries a video length in the three forms clients ask for.
type Duration struct {
	ISO8601   string `json:"iso_8601"`
	Seconds   int    `json:"seconds"`
	Formatted string `json:"formatted"`
}

// VideoInfo is the shaped view of one video.
type VideoInfo struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Channel        string            `json:"channel"`
	ChannelID      string            `json:"channel_id"`
	PublishedAt    string            `json:"published_at"`
	Thumbnails     engine.Thumbnails `json:"thumbnails,omitempty"`
	Tags           []string          `json:"tags"`
	CategoryID     string            `json:"category_id,omitempty"`
	Statistics     *VideoStatistics  `json:"statistics,omitempty"`
	EngagementRate *float64          `json:"engagement_rate"`
	LikeRatio      *float64          `json:"like_ratio"`
	Duration       *Duration         `json:"duration,omitempty"`
	Definition     string            `json:"definition,omitempty"`
	Dimension      string            `json:"dimension,omitempty"`
	Caption        string            `json:"caption,omitempty"`
	PrivacyStatus  string            `json:"privacy_status,omitempty"`
	Embeddable     bool              `json:"embeddable"`
	MadeForKids    bool              `json:"made_for_kids"`
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration converts an ISO 8601 video duration (PT#H#M#S) to seconds.
// Unrecognised input yields 0.
func ParseDuration(iso string) int {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	var total int
	for i, mult := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		total += n * mult
	}
	return total
}

// FormatDuration renders seconds as HH:MM:SS, or MM:SS under an hour.
func FormatDuration(seconds int) string {
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// engagementRate is (likes+comments)/views as a percentage.
func engagementRate(st *engine.VideoStatistics) *float64 {
	if st == nil || st.ViewCount == 0 {
		return nil
	}
	r := round2(float64(st.LikeCount+st.CommentCount) / float64(st.ViewCount) * 100)
	return &r
}

// likeRatio is likes/(likes+dislikes) as a percentage. Dislikes are hidden
// by the API for most videos, so this is usually 100 when likes exist.
func likeRatio(st *engine.VideoStatistics) *float64 {
	if st == nil || st.LikeCount+st.DislikeCount == 0 {
		return nil
	}
	r := round2(float64(st.LikeCount) / float64(st.LikeCount+st.DislikeCount) * 100)
	return &r
}

func shapeVideo(v engine.Video) VideoInfo {
	info := VideoInfo{ID: v.ID, URL: sources.VideoURL(v.ID), Tags: []string{}}
	if sn := v.Snippet; sn != nil {
		info.Title = sn.Title
		info.Description = sn.Description
		info.Channel = sn.ChannelTitle
		info.ChannelID = sn.ChannelID
		info.PublishedAt = sn.PublishedAt
		info.Thumbnails = sn.Thumbnails
		info.CategoryID = sn.CategoryID
		if sn.Tags != nil {
			info.Tags = sn.Tags
		}
	}
	if st := v.Statistics; st != nil {
		info.Statistics = &VideoStatistics{
			ViewCount:     st.ViewCount,
			LikeCount:     st.LikeCount,
			CommentCount:  st.CommentCount,
			FavoriteCount: st.FavoriteCount,
		}
	}
	info.EngagementRate = engagementRate(v.Statistics)
	info.LikeRatio = likeRatio(v.Statistics)
	if cd := v.ContentDetails; cd != nil {
		secs := ParseDuration(cd.Duration)
		info.Duration = &Duration{ISO8601: cd.Duration, Seconds: secs, Formatted: FormatDuration(secs)}
		info.Definition = cd.Definition
		info.Dimension = cd.Dimension
		info.Caption = cd.Caption
	}
	if s := v.Status; s != nil {
		info.PrivacyStatus = s.PrivacyStatus
		info.Embeddable = s.Embeddable
		info.MadeForKids = s.MadeForKids
	}
	return info
}

// fetchVideo returns the raw video resource for a URL or bare ID.
func (e *Extractor) fetchVideo(ctx context.Context, rawURL string) (engine.Video, error) {
	id := sources.VideoID(rawURL)
	if id == "" {
		return engine.Video{}, engine.InvalidInputf("could not extract video id from %q", rawURL)
	}
	page, err := e.client.VideoDetails(ctx, []string{id}, nil)
	if err != nil {
		return engine.Video{}, err
	}
	if len(page.Items) == 0 {
		return engine.Video{}, fmt.Errorf("video %s: %w", id, engine.ErrNotFound)
	}
	return page.Items[0], nil
}

// VideoInfo extracts details for the video at rawURL.
func (e *Extractor) VideoInfo(ctx context.Context, rawURL string) (*VideoInfo, error) {
	var out VideoInfo
	err := track(ctx, "video_info", func(ctx context.Context) error {
		v, err := e.fetchVideo(ctx, rawURL)
		if err != nil {
			return err
		}
		out = shapeVideo(v)
		return nil
	})
	if err != nil {
		return nil, wrapOp("extract video info", err)
	}
	return &out, nil
}

// TrendingResult lists the most popular videos of a region.
type TrendingResult struct {
	Region   string      `json:"region"`
	Videos   []VideoInfo `json:"videos"`
	Total    int         `json:"total_results"`
	Metadata Metadata    `json:"metadata"`
}

// Trending returns the mostPopular chart for region.
func (e *Extractor) Trending(ctx context.Context, region string, maxResults int) (*TrendingResult, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = "US"
	}
	var out *TrendingResult
	err := track(ctx, "trending", func(ctx context.Context) error {
		page, err := e.client.TrendingVideos(ctx, region, maxResults)
		if err != nil {
			return err
		}
		videos := make([]VideoInfo, 0, len(page.Items))
		for _, v := range page.Items {
			videos = append(videos, shapeVideo(v))
		}
		out = &TrendingResult{
			Region:   region,
			Videos:   videos,
			Total:    len(videos),
			Metadata: apiMetadataMore(page.NextPageToken != ""),
		}
		return nil
	})
	if err != nil {
		return nil, wrapOp("get trending videos", err)
	}
	return out, nil
}
