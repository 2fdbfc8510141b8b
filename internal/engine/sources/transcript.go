package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// YouTube transcript fetching.
// Primary:  scrape watch page ytInitialPlayerResponse → caption track → timedtext XML
// Fallback: ANDROID Innertube /player → captionTracks → timedtext XML

const (
	ytWatchURL       = "https://www.youtube.com/watch?v="
	ytPlayerURL      = "https://www.youtube.com/youtubei/v1/player"
	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
	ytBrowserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"

	// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
	ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

	maxWatchPageBytes = 6 * 1024 * 1024
	maxTimedTextBytes = 2 * 1024 * 1024
	throttleChunk     = 32 * 1024
)

// --- ANDROID client types (/player endpoint) ---

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type innertubePlayerResp struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
	Name         struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
}

func (t captionTrack) label() string {
	if t.Name.SimpleText != "" {
		return t.Name.SimpleText
	}
	var sb strings.Builder
	for _, r := range t.Name.Runs {
		sb.WriteString(r.Text)
	}
	if sb.Len() > 0 {
		return sb.String()
	}
	return t.LanguageCode
}

// --- Timedtext XML types ---

// ytTimedText covers both caption formats: format 1 (<text start dur>, seconds)
// and format 3 (<body><p t d>, milliseconds).
type ytTimedText struct {
	Lines  []ytLine `xml:"text"`
	Blocks []ytPara `xml:"body>p"`
}

type ytLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

type ytPara struct {
	T    string `xml:"t,attr"`
	D    string `xml:"d,attr"`
	Text string `xml:",innerxml"`
}

var xmlTagRE = regexp.MustCompile(`<[^>]*>`)

// TranscriptFetcher fetches caption tracks without an API key.
type TranscriptFetcher struct {
	client    *http.Client
	langs     []string
	limiter   *rate.Limiter
	retry     engine.RetryConfig
	watchURL  string
	playerURL string
}

// NewTranscriptFetcher builds a fetcher from cfg. Caption downloads are
// throttled to cfg.TranscriptRateLimit bytes per second when it parses.
func NewTranscriptFetcher(cfg engine.Config) *TranscriptFetcher {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.CallTimeout}
	}
	langs := cfg.TranscriptLangs
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	f := &TranscriptFetcher{
		client:    client,
		langs:     langs,
		retry:     cfg.Retry,
		watchURL:  ytWatchURL,
		playerURL: ytPlayerURL,
	}
	if bps, err := ParseRateLimit(cfg.TranscriptRateLimit); err == nil && bps > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(bps), max(int(bps), throttleChunk))
	} else if cfg.TranscriptRateLimit != "" {
		slog.Warn("transcript: ignoring bad rate limit", slog.String("value", cfg.TranscriptRateLimit))
	}
	return f
}

// FetchTranscript returns timed segments for videoID.
func (f *TranscriptFetcher) FetchTranscript(ctx context.Context, videoID string) (*engine.TranscriptData, error) {
	engine.IncrTranscript()

	data, err := f.viaPageScrape(ctx, videoID)
	if err == nil {
		return data, nil
	}
	slog.Warn("transcript: page scrape failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))

	data, err = f.viaPlayer(ctx, videoID)
	if err != nil {
		engine.IncrTranscriptError()
		return nil, err
	}
	return data, nil
}

// viaPageScrape scrapes the watch page HTML and extracts the caption
// track URL from ytInitialPlayerResponse.
func (f *TranscriptFetcher) viaPageScrape(ctx context.Context, videoID string) (*engine.TranscriptData, error) {
	body, err := f.get(ctx, f.watchURL+videoID, maxWatchPageBytes, func(req *http.Request) {
		req.Header.Set("User-Agent", ytBrowserUA)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return f.fromPlayer(ctx, videoID, playerResp)
}

// viaPlayer uses the ANDROID Innertube /player endpoint.
func (f *TranscriptFetcher) viaPlayer(ctx context.Context, videoID string) (*engine.TranscriptData, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	body, err := engine.RetryDo(ctx, f.retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.playerURL+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return f.do(req, maxWatchPageBytes)
	})
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(body, &playerResp); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return f.fromPlayer(ctx, videoID, playerResp)
}

func (f *TranscriptFetcher) fromPlayer(ctx context.Context, videoID string, resp innertubePlayerResp) (*engine.TranscriptData, error) {
	if resp.Captions == nil {
		if resp.PlayabilityStatus != nil && resp.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", resp.PlayabilityStatus.Reason)
		}
		return nil, errors.New("no captions in player response")
	}
	tracks := resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, errors.New("no caption tracks")
	}
	track, ok := pickBestTrack(tracks, f.langs)
	if !ok {
		return nil, errors.New("all caption tracks require PoToken")
	}

	body, err := f.get(ctx, track.BaseURL, maxTimedTextBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	segments, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errors.New("empty transcript")
	}
	return &engine.TranscriptData{
		VideoID:      videoID,
		Language:     track.label(),
		LanguageCode: track.LanguageCode,
		IsGenerated:  track.Kind == "asr",
		Segments:     segments,
	}, nil
}

// get issues a retried GET and reads at most limit bytes through the throttle.
func (f *TranscriptFetcher) get(ctx context.Context, rawURL string, limit int64, decorate func(*http.Request)) ([]byte, error) {
	return engine.RetryDo(ctx, f.retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if decorate != nil {
			decorate(req)
		}
		return f.do(req, limit)
	})
}

// do sends req and returns the body. 5xx and 429 become *engine.APIError so
// they are retried; other non-200 statuses fail immediately.
func (f *TranscriptFetcher) do(req *http.Request, limit int64) ([]byte, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &engine.APIError{Message: "transport: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, snippet)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &engine.APIError{Message: msg, StatusCode: resp.StatusCode}
		}
		return nil, errors.New(msg)
	}

	var r io.Reader = io.LimitReader(resp.Body, limit)
	if f.limiter != nil {
		r = &throttledReader{ctx: req.Context(), r: r, lim: f.limiter}
	}
	return io.ReadAll(r)
}

// throttledReader paces reads to the limiter's byte rate.
type throttledReader struct {
	ctx context.Context
	r   io.Reader
	lim *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if len(p) > throttleChunk {
		p = p[:throttleChunk]
	}
	if burst := t.lim.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.lim.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the given language preferences.
// Tracks that require a PoToken are skipped; they only work in a browser.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	// 2. Auto-generated track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	// 3. Any English track
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// parseTimedText parses timedtext XML into segments, in seconds.
func parseTimedText(body []byte) ([]engine.TranscriptSegment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segments := make([]engine.TranscriptSegment, 0, len(tt.Lines)+len(tt.Blocks))
	for _, line := range tt.Lines {
		text := cleanCaption(line.Text)
		if text == "" {
			continue
		}
		segments = append(segments, engine.TranscriptSegment{
			Text:     text,
			Start:    parseFloat(line.Start),
			Duration: parseFloat(line.Dur),
		})
	}
	for _, p := range tt.Blocks {
		text := cleanCaption(html.UnescapeString(xmlTagRE.ReplaceAllString(p.Text, "")))
		if text == "" {
			continue
		}
		segments = append(segments, engine.TranscriptSegment{
			Text:     text,
			Start:    parseFloat(p.T) / 1000,
			Duration: parseFloat(p.D) / 1000,
		})
	}
	return segments, nil
}

// cleanCaption decodes the entities timedtext double-escapes and folds whitespace.
func cleanCaption(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

var rateLimitRE = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([KMGT]?)$`)

// ParseRateLimit parses a byte rate such as "500K" or "1.5M" (1024-based).
func ParseRateLimit(s string) (float64, error) {
	m := rateLimitRE.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0, fmt.Errorf("invalid rate limit %q", s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate limit %q: %w", s, err)
	}
	mult := map[string]float64{"": 1, "K": 1 << 10, "M": 1 << 20, "G": 1 << 30, "T": 1 << 40}[m[2]]
	return v * mult, nil
}
