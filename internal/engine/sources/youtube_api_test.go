package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// fakeDataAPI serves canned JSON per resource and records the key of each request.
type fakeDataAPI struct {
	mu       sync.Mutex
	keys     []string
	queries  []string
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeDataAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.keys = append(f.keys, r.URL.Query().Get("key"))
	f.queries = append(f.queries, r.URL.RawQuery)
	f.mu.Unlock()

	for suffix, h := range f.handlers {
		if strings.HasSuffix(r.URL.Path, "/"+suffix) {
			h(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

func (f *fakeDataAPI) seenKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func writeJSON(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func writeAPIError(code int, reason string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"request failed","errors":[{"reason":%q,"message":"request failed","domain":"youtube"}]}}`, code, reason)
	}
}

func newTestDataAPI(t *testing.T, fake *fakeDataAPI, fallbackKey string) *DataAPI {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := engine.DefaultConfig()
	cfg.APIKey = "primary-key"
	cfg.APIKeyFallback = fallbackKey
	cfg.HTTPClient = srv.Client()

	d, err := NewDataAPI(context.Background(), cfg, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return d
}

func TestNewDataAPIRequiresKey(t *testing.T) {
	_, err := NewDataAPI(context.Background(), engine.DefaultConfig())
	require.Error(t, err)
}

func TestDataAPIVideosMapping(t *testing.T) {
	fake := &fakeDataAPI{handlers: map[string]func(http.ResponseWriter, *http.Request){
		"videos": writeJSON(`{
			"items": [{
				"id": "dQw4w9WgXcQ",
				"snippet": {
					"title":        "Never Gonna Give You Up",
					"channelId":    "UCuAXFkgsw1L7xaCfnd5JJOw",
					"channelTitle": "Rick Astley",
					"publishedAt":  "2009-10-25T06:57:33Z",
					"tags":         ["rick", "astley"],
					"thumbnails":   {"high": {"url": "https://i.ytimg.com/hq.jpg", "width": 480, "height": 360}}
				},
				"statistics":     {"viewCount": "1000", "likeCount": "100", "commentCount": "50"},
				"contentDetails": {"duration": "PT3M33S", "definition": "hd", "caption": "true"},
				"status":         {"privacyStatus": "public", "embeddable": true}
			}],
			"pageInfo": {"totalResults": 1, "resultsPerPage": 1}
		}`),
	}}
	d := newTestDataAPI(t, fake, "")

	page, err := d.Videos(context.Background(), engine.VideosRequest{
		IDs:   []string{"dQw4w9WgXcQ"},
		Parts: engine.VideoParts,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	v := page.Items[0]
	assert.Equal(t, "dQw4w9WgXcQ", v.ID)
	assert.Equal(t, "Rick Astley", v.Snippet.ChannelTitle)
	assert.Equal(t, []string{"rick", "astley"}, v.Snippet.Tags)
	assert.Equal(t, engine.Thumbnail{URL: "https://i.ytimg.com/hq.jpg", Width: 480, Height: 360}, v.Snippet.Thumbnails["high"])
	assert.Equal(t, int64(1000), v.Statistics.ViewCount)
	assert.Equal(t, int64(100), v.Statistics.LikeCount)
	assert.Equal(t, int64(50), v.Statistics.CommentCount)
	assert.Equal(t, "PT3M33S", v.ContentDetails.Duration)
	assert.True(t, v.Status.Embeddable)
	assert.Equal(t, int64(1), page.TotalResults)

	assert.Equal(t, []string{"primary-key"}, fake.seenKeys())
	assert.Contains(t, fake.queries[0], "id=dQw4w9WgXcQ")
}

func TestDataAPITrendingUsesChart(t *testing.T) {
	fake := &fakeDataAPI{handlers: map[string]func(http.ResponseWriter, *http.Request){
		"videos": writeJSON(`{"items": []}`),
	}}
	d := newTestDataAPI(t, fake, "")

	_, err := d.Videos(context.Background(), engine.VideosRequest{
		Parts:      engine.VideoParts,
		Chart:      "mostPopular",
		RegionCode: "DE",
		MaxResults: 5,
	})
	require.NoError(t, err)
	q := fake.queries[0]
	assert.Contains(t, q, "chart=mostPopular")
	assert.Contains(t, q, "regionCode=DE")
	assert.NotContains(t, q, "id=")
}

func TestDataAPIFallbackKeyOnQuota(t *testing.T) {
	fake := &fakeDataAPI{}
	fake.handlers = map[string]func(http.ResponseWriter, *http.Request){
		"search": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("key") == "primary-key" {
				writeAPIError(http.StatusForbidden, engine.ReasonQuotaExceeded)(w, r)
				return
			}
			writeJSON(`{"items": [{"id": {"kind": "youtube#video", "videoId": "abcdefghijk"}, "snippet": {"title": "hit"}}]}`)(w, r)
		},
	}
	d := newTestDataAPI(t, fake, "fallback-key")
	gated := 0
	d.SetFallbackGate(func(context.Context) error {
		gated++
		return nil
	})

	page, err := d.Search(context.Background(), engine.SearchRequest{Query: "golang", Type: "video", MaxResults: 5})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "abcdefghijk", page.Items[0].VideoID)
	assert.Equal(t, []string{"primary-key", "fallback-key"}, fake.seenKeys())
	assert.Equal(t, 1, gated)
}

func TestDataAPIFallbackRefusedByGate(t *testing.T) {
	fake := &fakeDataAPI{handlers: map[string]func(http.ResponseWriter, *http.Request){
		"search": writeAPIError(http.StatusForbidden, engine.ReasonQuotaExceeded),
	}}
	d := newTestDataAPI(t, fake, "fallback-key")
	d.SetFallbackGate(func(context.Context) error {
		return &engine.QuotaExceededError{Limit: 1}
	})

	_, err := d.Search(context.Background(), engine.SearchRequest{Query: "golang", Type: "video", MaxResults: 5})
	require.ErrorIs(t, err, engine.ErrQuotaExceeded)
	assert.Equal(t, []string{"primary-key"}, fake.seenKeys())
}

func TestDataAPINoFallbackForOtherErrors(t *testing.T) {
	fake := &fakeDataAPI{handlers: map[string]func(http.ResponseWriter, *http.Request){
		"commentThreads": writeAPIError(http.StatusForbidden, engine.ReasonCommentsDisabled),
	}}
	d := newTestDataAPI(t, fake, "fallback-key")

	_, err := d.CommentThreads(context.Background(), engine.CommentThreadsRequest{VideoID: "abcdefghijk", Parts: engine.CommentParts})
	require.Error(t, err)

	var gErr *googleapi.Error
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, http.StatusForbidden, gErr.Code)
	require.NotEmpty(t, gErr.Errors)
	assert.Equal(t, engine.ReasonCommentsDisabled, gErr.Errors[0].Reason)
	assert.Len(t, fake.seenKeys(), 1)
}

func TestDataAPICommentThreadsMapping(t *testing.T) {
	fake := &fakeDataAPI{handlers: map[string]func(http.ResponseWriter, *http.Request){
		"commentThreads": writeJSON(`{
			"nextPageToken": "NEXT",
			"items": [{
				"id": "t1",
				"snippet": {
					"videoId":         "abcdefghijk",
					"canReply":        true,
					"isPublic":        true,
					"totalReplyCount": 1,
					"topLevelComment": {"id": "c1", "snippet": {"authorDisplayName": "ann", "textDisplay": "great", "textOriginal": "great", "likeCount": 7}}
				},
				"replies": {"comments": [{"id": "c2", "snippet": {"authorDisplayName": "bob", "textDisplay": "agreed", "parentId": "c1"}}]}
			}]
		}`),
	}}
	d := newTestDataAPI(t, fake, "")

	page, err := d.CommentThreads(context.Background(), engine.CommentThreadsRequest{
		VideoID:    "abcdefghijk",
		Parts:      engine.CommentParts,
		MaxResults: 20,
		Order:      "time",
		PageToken:  "PREV",
		TextFormat: "plainText",
	})
	require.NoError(t, err)
	assert.Equal(t, "NEXT", page.NextPageToken)
	require.Len(t, page.Items, 1)

	th := page.Items[0]
	assert.Equal(t, "ann", th.TopLevelComment.AuthorDisplayName)
	assert.Equal(t, int64(7), th.TopLevelComment.LikeCount)
	assert.Equal(t, int64(1), th.TotalReplyCount)
	require.Len(t, th.Replies, 1)
	assert.Equal(t, "c1", th.Replies[0].ParentID)

	q := fake.queries[0]
	assert.Contains(t, q, "pageToken=PREV")
	assert.Contains(t, q, "order=time")
	assert.Contains(t, q, "textFormat=plainText")
}

func TestDataAPIChannelsMapping(t *testing.T) {
	fake := &fakeDataAPI{handlers: map[string]func(http.ResponseWriter, *http.Request){
		"channels": writeJSON(`{"items": [{
			"id":               "UCuAXFkgsw1L7xaCfnd5JJOw",
			"snippet":          {"title": "Rick Astley", "customUrl": "@rickastleyyt", "country": "GB"},
			"statistics":       {"viewCount": "2000000000", "subscriberCount": "4100000", "videoCount": "300"},
			"contentDetails":   {"relatedPlaylists": {"uploads": "UUuAXFkgsw1L7xaCfnd5JJOw"}},
			"brandingSettings": {"channel": {"keywords": "\"rick astley\" music"}}
		}]}`),
	}}
	d := newTestDataAPI(t, fake, "")

	page, err := d.Channels(context.Background(), engine.ChannelsRequest{IDs: []string{"UCuAXFkgsw1L7xaCfnd5JJOw"}, Parts: engine.ChannelParts})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	ch := page.Items[0]
	assert.Equal(t, "@rickastleyyt", ch.Snippet.CustomURL)
	assert.Equal(t, int64(4100000), ch.Statistics.SubscriberCount)
	assert.Equal(t, "UUuAXFkgsw1L7xaCfnd5JJOw", ch.UploadsPlaylist)
	assert.Equal(t, `"rick astley" music`, ch.BrandingKeywords)
}

func TestDataAPIPlaylistItemsMapping(t *testing.T) {
	fake := &fakeDataAPI{handlers: map[string]func(http.ResponseWriter, *http.Request){
		"playlistItems": writeJSON(`{"items": [
			{"id": "i0", "snippet": {"title": "first", "position": 0, "resourceId": {"kind": "youtube#video", "videoId": "aaaaaaaaaaa"}}},
			{"id": "i1", "snippet": {"title": "second", "position": 1}, "contentDetails": {"videoId": "bbbbbbbbbbb"}}
		], "nextPageToken": "P2"}`),
		"playlists": writeJSON(`{"items": [{"id": "PLabcdefghij", "snippet": {"title": "mix"}, "contentDetails": {"itemCount": 2}, "status": {"privacyStatus": "public"}}]}`),
	}}
	d := newTestDataAPI(t, fake, "")
	ctx := context.Background()

	items, err := d.PlaylistItems(ctx, engine.PlaylistItemsRequest{PlaylistID: "PLabcdefghij", Parts: engine.PlaylistItemParts, MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, items.Items, 2)
	assert.Equal(t, "aaaaaaaaaaa", items.Items[0].VideoID)
	assert.Equal(t, "bbbbbbbbbbb", items.Items[1].VideoID)
	assert.Equal(t, int64(1), items.Items[1].Position)
	assert.Equal(t, "P2", items.NextPageToken)

	pls, err := d.Playlists(ctx, engine.PlaylistsRequest{IDs: []string{"PLabcdefghij"}, Parts: engine.PlaylistParts})
	require.NoError(t, err)
	require.Len(t, pls.Items, 1)
	assert.Equal(t, int64(2), pls.Items[0].ItemCount)
	assert.Equal(t, "public", pls.Items[0].PrivacyStatus)
}

func TestMapThumbnailsNil(t *testing.T) {
	assert.Nil(t, mapThumbnails(nil))
}
