package extractor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/anatolykoptev/go_youtube/internal/engine/sources"
)

// ChannelStatistics are the public counters of a channel.
type ChannelStatistics struct {
	ViewCount             int64 `json:"view_count"`
	SubscriberCount       int64 `json:"subscriber_count"`
	HiddenSubscriberCount bool  `json:"hidden_subscriber_count"`
	VideoCount            int64 `json:"video_count"`
}

// ChannelEngagement holds per-video averages; absent values are omitted.
type ChannelEngagement struct {
	AvgViewsPerVideo    *int64   `json:"avg_views_per_video,omitempty"`
	SubscribersPerVideo *float64 `json:"subscribers_per_video,omitempty"`
}

// ChannelInfo is the shaped view of one channel.
type ChannelInfo struct {
	ID                string             `json:"id"`
	URL               string             `json:"url"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	CustomURL         string             `json:"custom_url,omitempty"`
	HandleURL         string             `json:"handle_url,omitempty"`
	PublishedAt       string             `json:"published_at"`
	Thumbnails        engine.Thumbnails  `json:"thumbnails,omitempty"`
	Country           string             `json:"country,omitempty"`
	Keywords          []string           `json:"keywords"`
	Statistics        *ChannelStatistics `json:"statistics,omitempty"`
	SubscriberTier    string             `json:"subscriber_tier"`
	EngagementMetrics ChannelEngagement  `json:"engagement_metrics"`
	UploadsPlaylistID string             `json:"uploads_playlist_id,omitempty"`
	PrivacyStatus     string             `json:"privacy_status,omitempty"`
	MadeForKids       bool               `json:"made_for_kids"`
}

// SubscriberTier buckets a channel by subscriber count.
func SubscriberTier(st *engine.ChannelStatistics) string {
	if st == nil || st.HiddenSubscriberCount || st.SubscriberCount == 0 {
		return "Unknown"
	}
	n := st.SubscriberCount
	switch {
	case n >= 10_000_000:
		return fmt.Sprintf("%dM+ (Diamond)", n/1_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%dM+ (Gold)", n/1_000_000)
	case n >= 100_000:
		return fmt.Sprintf("%dK+ (Silver)", n/1_000)
	case n >= 1_000:
		return fmt.Sprintf("%dK+ (Bronze)", n/1_000)
	default:
		return fmt.Sprintf("%d (Starting)", n)
	}
}

// splitKeywords splits branding keywords on whitespace and strips quotes.
func splitKeywords(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if k := strings.Trim(f, `"'`); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func channelEngagement(st *engine.ChannelStatistics) ChannelEngagement {
	var m ChannelEngagement
	if st == nil || st.VideoCount == 0 {
		return m
	}
	if st.ViewCount > 0 {
		avg := int64(math.Round(float64(st.ViewCount) / float64(st.VideoCount)))
		m.AvgViewsPerVideo = &avg
	}
	if st.SubscriberCount > 0 && !st.HiddenSubscriberCount {
		spv := round2(float64(st.SubscriberCount) / float64(st.VideoCount))
		m.SubscribersPerVideo = &spv
	}
	return m
}

func shapeChannel(ch engine.Channel) ChannelInfo {
	info := ChannelInfo{
		ID:                ch.ID,
		URL:               sources.ChannelURL(ch.ID),
		Keywords:          splitKeywords(ch.BrandingKeywords),
		SubscriberTier:    SubscriberTier(ch.Statistics),
		EngagementMetrics: channelEngagement(ch.Statistics),
		UploadsPlaylistID: ch.UploadsPlaylist,
	}
	if sn := ch.Snippet; sn != nil {
		info.Title = sn.Title
		info.Description = sn.Description
		info.CustomURL = sn.CustomURL
		if sn.CustomURL != "" {
			info.HandleURL = sources.ChannelURL(sn.CustomURL)
		}
		info.PublishedAt = sn.PublishedAt
		info.Thumbnails = sn.Thumbnails
		info.Country = sn.Country
	}
	if st := ch.Statistics; st != nil {
		info.Statistics = &ChannelStatistics{
			ViewCount:             st.ViewCount,
			SubscriberCount:       st.SubscriberCount,
			HiddenSubscriberCount: st.HiddenSubscriberCount,
			VideoCount:            st.VideoCount,
		}
	}
	if s := ch.Status; s != nil {
		info.PrivacyStatus = s.PrivacyStatus
		info.MadeForKids = s.MadeForKids
	}
	return info
}

// ChannelInfo extracts details for the channel at rawURL. Handles, custom
// names and legacy user names are resolved to a channel ID by the client.
func (e *Extractor) ChannelInfo(ctx context.Context, rawURL string) (*ChannelInfo, error) {
	var out ChannelInfo
	err := track(ctx, "channel_info", func(ctx context.Context) error {
		ref := sources.ChannelRef(rawURL)
		if ref == "" {
			return engine.InvalidInputf("could not extract channel id from %q", rawURL)
		}
		ch, err := e.client.ChannelDetails(ctx, ref, nil)
		if err != nil {
			return err
		}
		out = shapeChannel(*ch)
		return nil
	})
	if err != nil {
		return nil, wrapOp("extract channel info", err)
	}
	return &out, nil
}
