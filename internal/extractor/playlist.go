package extractor

import (
	"context"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/anatolykoptev/go_youtube/internal/engine/sources"
)

// maxPlaylistVideos caps how many entries a playlist result lists.
const maxPlaylistVideos = 100

// PlaylistVideo is one entry of a playlist.
type PlaylistVideo struct {
	VideoID      string            `json:"video_id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	ChannelTitle string            `json:"channel_title"`
	PublishedAt  string            `json:"published_at"`
	Thumbnails   engine.Thumbnails `json:"thumbnails,omitempty"`
	Position     int64             `json:"position"`
}

// PlaylistInfo is the shaped view of one playlist with its first entries.
type PlaylistInfo struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	ChannelID     string            `json:"channel_id"`
	ChannelTitle  string            `json:"channel_title"`
	PublishedAt   string            `json:"published_at"`
	Thumbnails    engine.Thumbnails `json:"thumbnails,omitempty"`
	VideoCount    int64             `json:"video_count"`
	PrivacyStatus string            `json:"privacy_status,omitempty"`
	Videos        []PlaylistVideo   `json:"videos"`
	Metadata      Metadata          `json:"metadata"`
}

func shapePlaylist(p engine.Playlist, items []engine.PlaylistItem) PlaylistInfo {
	videos := make([]PlaylistVideo, 0, len(items))
	for _, it := range items {
		videos = append(videos, PlaylistVideo{
			VideoID:      it.VideoID,
			Title:        it.Title,
			Description:  it.Description,
			ChannelTitle: it.ChannelTitle,
			PublishedAt:  it.PublishedAt,
			Thumbnails:   it.Thumbnails,
			Position:     it.Position,
		})
	}
	return PlaylistInfo{
		ID:            p.ID,
		URL:           sources.PlaylistURL(p.ID),
		Title:         p.Title,
		Description:   p.Description,
		ChannelID:     p.ChannelID,
		ChannelTitle:  p.ChannelTitle,
		PublishedAt:   p.PublishedAt,
		Thumbnails:    p.Thumbnails,
		VideoCount:    p.ItemCount,
		PrivacyStatus: p.PrivacyStatus,
		Videos:        videos,
		Metadata:      apiMetadata(),
	}
}

// PlaylistInfo extracts a playlist's metadata and up to 100 of its videos.
func (e *Extractor) PlaylistInfo(ctx context.Context, rawURL string) (*PlaylistInfo, error) {
	var out PlaylistInfo
	err := track(ctx, "playlist_info", func(ctx context.Context) error {
		id := sources.PlaylistID(rawURL)
		if id == "" {
			return engine.InvalidInputf("could not extract playlist id from %q", rawURL)
		}
		p, err := e.client.PlaylistDetails(ctx, id, nil)
		if err != nil {
			return err
		}
		items, err := e.client.PlaylistItems(ctx, id, maxPlaylistVideos)
		if err != nil {
			return err
		}
		out = shapePlaylist(*p, items.Items)
		return nil
	})
	if err != nil {
		return nil, wrapOp("extract playlist info", err)
	}
	return &out, nil
}
