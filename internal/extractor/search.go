package extractor

import (
	"context"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/anatolykoptev/go_youtube/internal/engine/sources"
)

// SearchResult is one shaped search hit.
type SearchResult struct {
	Type                 string            `json:"type"`
	ID                   string            `json:"id"`
	URL                  string            `json:"url"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	ChannelID            string            `json:"channel_id"`
	ChannelTitle         string            `json:"channel_title"`
	PublishedAt          string            `json:"published_at"`
	Thumbnails           engine.Thumbnails `json:"thumbnails,omitempty"`
	LiveBroadcastContent string            `json:"live_broadcast_content,omitempty"`
}

// ResultsByType groups search hits by resource kind.
type ResultsByType struct {
	Videos    []SearchResult `json:"videos"`
	Channels  []SearchResult `json:"channels"`
	Playlists []SearchResult `json:"playlists"`
}

// SearchResults is one shaped search page.
type SearchResults struct {
	Query         string         `json:"query"`
	Results       []SearchResult `json:"results"`
	ResultsByType ResultsByType  `json:"results_by_type"`
	TotalResults  int64          `json:"total_results"`
	NextPageToken string         `json:"next_page_token,omitempty"`
	PrevPageToken string         `json:"prev_page_token,omitempty"`
	RegionCode    string         `json:"region_code,omitempty"`
	Metadata      Metadata       `json:"metadata"`
}

var searchTypes = map[string]bool{"video": true, "channel": true, "playlist": true}

func shapeSearchItem(it engine.SearchItem) SearchResult {
	r := SearchResult{
		Title:                it.Title,
		Description:          it.Description,
		ChannelID:            it.SnippetChannelID,
		ChannelTitle:         it.ChannelTitle,
		PublishedAt:          it.PublishedAt,
		Thumbnails:           it.Thumbnails,
		LiveBroadcastContent: it.LiveBroadcastContent,
	}
	switch {
	case it.VideoID != "":
		r.Type, r.ID, r.URL = "video", it.VideoID, sources.VideoURL(it.VideoID)
	case it.ChannelID != "":
		r.Type, r.ID, r.URL = "channel", it.ChannelID, sources.ChannelURL(it.ChannelID)
	case it.PlaylistID != "":
		r.Type, r.ID, r.URL = "playlist", it.PlaylistID, sources.PlaylistURL(it.PlaylistID)
	}
	return r
}

func shapeSearch(query string, page *engine.SearchPage) SearchResults {
	out := SearchResults{
		Query:   query,
		Results: make([]SearchResult, 0, len(page.Items)),
		ResultsByType: ResultsByType{
			Videos:    []SearchResult{},
			Channels:  []SearchResult{},
			Playlists: []SearchResult{},
		},
		TotalResults:  page.TotalResults,
		NextPageToken: page.NextPageToken,
		PrevPageToken: page.PrevPageToken,
		RegionCode:    page.RegionCode,
		Metadata:      apiMetadataMore(page.NextPageToken != ""),
	}
	for _, it := range page.Items {
		r := shapeSearchItem(it)
		out.Results = append(out.Results, r)
		switch r.Type {
		case "video":
			out.ResultsByType.Videos = append(out.ResultsByType.Videos, r)
		case "channel":
			out.ResultsByType.Channels = append(out.ResultsByType.Channels, r)
		case "playlist":
			out.ResultsByType.Playlists = append(out.ResultsByType.Playlists, r)
		}
	}
	return out
}

// Search runs a YouTube search restricted to one resource type.
func (e *Extractor) Search(ctx context.Context, query, searchType string, maxResults int) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	searchType = strings.ToLower(strings.TrimSpace(searchType))
	if searchType == "" {
		searchType = "video"
	}
	var out SearchResults
	err := track(ctx, "search", func(ctx context.Context) error {
		if !searchTypes[searchType] {
			return engine.InvalidInputf("search type must be video, channel or playlist, got %q", searchType)
		}
		page, err := e.client.Search(ctx, engine.SearchRequest{
			Query:      query,
			Type:       searchType,
			MaxResults: int64(maxResults),
		})
		if err != nil {
			return err
		}
		out = shapeSearch(query, page)
		return nil
	})
	if err != nil {
		return nil, wrapOp("search youtube", err)
	}
	return &out, nil
}
