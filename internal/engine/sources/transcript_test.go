package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timedTextFormat1 = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">Never gonna give you up</text>
<text start="2.6" dur="1.9">never gonna let you &amp;#39;down&amp;#39;</text>
<text start="4.5" dur="1">   </text>
</transcript>`

const timedTextFormat3 = `<?xml version="1.0" encoding="utf-8" ?><timedtext format="3"><body>
<p t="1000" d="2500">hello <s>world</s></p>
<p t="3500" d="500">it&amp;#39;s me</p>
</body></timedtext>`

func newTestFetcher(t *testing.T, mux *http.ServeMux) (*TranscriptFetcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := engine.DefaultConfig()
	cfg.HTTPClient = srv.Client()
	cfg.TranscriptLangs = []string{"en"}
	cfg.Retry = engine.RetryConfig{MaxAttempts: 1}
	f := NewTranscriptFetcher(cfg)
	f.watchURL = srv.URL + "/watch?v="
	f.playerURL = srv.URL + "/player"
	return f, srv
}

func playerJSON(baseURL string) string {
	return fmt.Sprintf(`{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
		{"baseUrl":%q,"languageCode":"de","kind":""},
		{"baseUrl":%q,"languageCode":"en","kind":"asr","name":{"simpleText":"English (auto-generated)"}}
	]}},"playabilityStatus":{"status":"OK"}}`, baseURL+"/de", baseURL+"/timedtext")
}

func TestFetchTranscriptViaWatchPage(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = %s;var meta = {};</script></html>`, playerJSON(base))
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, timedTextFormat1)
	})
	f, srv := newTestFetcher(t, mux)
	base = srv.URL

	data, err := f.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", data.VideoID)
	assert.Equal(t, "en", data.LanguageCode)
	assert.Equal(t, "English (auto-generated)", data.Language)
	assert.True(t, data.IsGenerated)
	require.Len(t, data.Segments, 2)
	assert.Equal(t, engine.TranscriptSegment{Text: "Never gonna give you up", Start: 0.5, Duration: 2.1}, data.Segments[0])
	assert.Equal(t, "never gonna let you 'down'", data.Segments[1].Text)
}

func TestFetchTranscriptFallsBackToPlayer(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>consent wall</html>")
	})
	mux.HandleFunc("/player", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "3", r.Header.Get("X-Youtube-Client-Name"))
		fmt.Fprint(w, playerJSON(base))
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, timedTextFormat3)
	})
	f, srv := newTestFetcher(t, mux)
	base = srv.URL

	data, err := f.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, data.Segments, 2)
	assert.Equal(t, "hello world", data.Segments[0].Text)
	assert.InDelta(t, 1.0, data.Segments[0].Start, 1e-9)
	assert.InDelta(t, 2.5, data.Segments[0].Duration, 1e-9)
	assert.Equal(t, "it's me", data.Segments[1].Text)
}

func TestFetchTranscriptNoCaptions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"}};`)
	})
	mux.HandleFunc("/player", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"Sign in to confirm"}}`)
	})
	f, _ := newTestFetcher(t, mux)

	_, err := f.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sign in to confirm")
}

func TestFetchTranscriptThrottled(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `var ytInitialPlayerResponse = %s;`, playerJSON(base))
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, timedTextFormat1)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	base = srv.URL

	cfg := engine.DefaultConfig()
	cfg.HTTPClient = srv.Client()
	cfg.TranscriptRateLimit = "64K"
	f := NewTranscriptFetcher(cfg)
	f.watchURL = srv.URL + "/watch?v="
	require.NotNil(t, f.limiter)

	data, err := f.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Len(t, data.Segments, 2)
}

func TestPickBestTrack(t *testing.T) {
	manualEN := captionTrack{BaseURL: "u1", LanguageCode: "en"}
	autoEN := captionTrack{BaseURL: "u2", LanguageCode: "en", Kind: "asr"}
	manualDE := captionTrack{BaseURL: "u3", LanguageCode: "de"}
	enGB := captionTrack{BaseURL: "u4", LanguageCode: "en-GB"}
	poToken := captionTrack{BaseURL: "u5&exp=xpe", LanguageCode: "en"}

	tests := []struct {
		name   string
		tracks []captionTrack
		langs  []string
		want   string
		wantOK bool
	}{
		{"manual beats auto", []captionTrack{autoEN, manualEN}, []string{"en"}, "u1", true},
		{"preferred language first", []captionTrack{manualEN, manualDE}, []string{"de", "en"}, "u3", true},
		{"auto in preferred language", []captionTrack{manualDE, autoEN}, []string{"en"}, "u2", true},
		{"any english", []captionTrack{manualDE, enGB}, []string{"fr"}, "u4", true},
		{"first usable otherwise", []captionTrack{manualDE}, []string{"fr"}, "u3", true},
		{"skips po token", []captionTrack{poToken, manualDE}, []string{"en"}, "u3", true},
		{"only po token", []captionTrack{poToken}, []string{"en"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickBestTrack(tt.tracks, tt.langs)
			if ok != tt.wantOK || got.BaseURL != tt.want {
				t.Errorf("pickBestTrack() = (%q, %v), want (%q, %v)", got.BaseURL, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseTimedTextInvalid(t *testing.T) {
	_, err := parseTimedText([]byte("<transcript><text"))
	require.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1};rest`, `{"a":1}`},
		{"nested", `{"a":{"b":{}}} trailing`, `{"a":{"b":{}}}`},
		{"brace in string", `{"a":"}{"}x`, `{"a":"}{"}`},
		{"escaped quote", `{"a":"say \"}\" ok"}x`, `{"a":"say \"}\" ok"}`},
		{"escaped backslash", `{"a":"dir\\"}x`, `{"a":"dir\\"}`},
		{"not an object", `[1,2]`, ""},
		{"unterminated", `{"a":1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(extractJSON([]byte(tt.in))); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRateLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"500K", 500 * 1024, false},
		{"1.5M", 1.5 * 1024 * 1024, false},
		{"2g", 2 * 1024 * 1024 * 1024, false},
		{"100", 100, false},
		{" 10 K ", 10 * 1024, false},
		{"fast", 0, true},
		{"", 0, true},
		{"5X", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRateLimit(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseRateLimit(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseRateLimit(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestCleanCaption(t *testing.T) {
	in := "  line one\n line&#39;s   two "
	if got := cleanCaption(in); got != "line one line's two" {
		t.Errorf("cleanCaption() = %q", got)
	}
	if !strings.Contains(cleanCaption("a &amp; b"), "&") {
		t.Error("cleanCaption should decode entities")
	}
}
