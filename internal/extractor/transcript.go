package extractor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// TranscriptSegment is one caption line with its derived end and timestamp.
type TranscriptSegment struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	Duration  float64 `json:"duration"`
	End       float64 `json:"end"`
	Timestamp string  `json:"timestamp"`
}

// TranscriptMetadata records how a transcript was obtained.
type TranscriptMetadata struct {
	Source           string `json:"source"`
	ExtractionMethod string `json:"extraction_method"`
	Truncated        bool   `json:"truncated,omitempty"`
}

// Transcript is the shaped transcript of one video.
type Transcript struct {
	VideoID                string              `json:"video_id"`
	Language               string              `json:"language,omitempty"`
	LanguageCode           string              `json:"language_code,omitempty"`
	IsGenerated            bool                `json:"is_generated"`
	Segments               []TranscriptSegment `json:"segments"`
	FullText               string              `json:"full_text"`
	FullTextWithTimestamps string              `json:"full_text_with_timestamps"`
	TotalSegments          int                 `json:"total_segments"`
	Duration               float64             `json:"duration"`
	Metadata               TranscriptMetadata  `json:"metadata"`
}

// TranscriptOptions narrows a transcript. Zero values select everything.
type TranscriptOptions struct {
	StartTime float64
	EndTime   float64
	MaxChars  int
}

const transcriptSource = "innertube"

func newSegment(s engine.TranscriptSegment) TranscriptSegment {
	return TranscriptSegment{
		Text:      s.Text,
		Start:     s.Start,
		Duration:  s.Duration,
		End:       s.Start + s.Duration,
		Timestamp: FormatDuration(int(s.Start)),
	}
}

// NewTranscript shapes raw transcript data.
func NewTranscript(d *engine.TranscriptData) *Transcript {
	t := &Transcript{
		VideoID:      d.VideoID,
		Language:     d.Language,
		LanguageCode: d.LanguageCode,
		IsGenerated:  d.IsGenerated,
		Metadata:     TranscriptMetadata{Source: transcriptSource, ExtractionMethod: "fallback"},
	}
	segs := make([]TranscriptSegment, 0, len(d.Segments))
	for _, s := range d.Segments {
		segs = append(segs, newSegment(s))
	}
	t.setSegments(segs)
	return t
}

func (t *Transcript) setSegments(segs []TranscriptSegment) {
	texts := make([]string, 0, len(segs))
	lines := make([]string, 0, len(segs))
	var end float64
	for _, s := range segs {
		texts = append(texts, s.Text)
		lines = append(lines, "["+s.Timestamp+"] "+s.Text)
		end = max(end, s.End)
	}
	t.Segments = segs
	t.FullText = strings.Join(texts, " ")
	t.FullTextWithTimestamps = strings.Join(lines, "\n")
	t.TotalSegments = len(segs)
	t.Duration = end
}

// Search returns the segments whose text contains query.
func (t *Transcript) Search(query string, caseSensitive bool) []TranscriptSegment {
	if !caseSensitive {
		query = strings.ToLower(query)
	}
	out := []TranscriptSegment{}
	for _, s := range t.Segments {
		text := s.Text
		if !caseSensitive {
			text = strings.ToLower(text)
		}
		if strings.Contains(text, query) {
			out = append(out, s)
		}
	}
	return out
}

// SegmentsInRange returns the segments fully inside [start, end].
func (t *Transcript) SegmentsInRange(start, end float64) []TranscriptSegment {
	out := []TranscriptSegment{}
	for _, s := range t.Segments {
		if s.Start >= start && s.End <= end {
			out = append(out, s)
		}
	}
	return out
}

// Apply narrows the transcript to a time range and caps the text fields.
func (t *Transcript) Apply(opts TranscriptOptions) {
	if opts.EndTime > 0 {
		t.setSegments(t.SegmentsInRange(opts.StartTime, opts.EndTime))
	} else if opts.StartTime > 0 {
		t.setSegments(t.SegmentsInRange(opts.StartTime, t.Duration))
	}
	if opts.MaxChars > 0 && len(t.FullText) > opts.MaxChars {
		t.FullText = strutil.TruncateAtWord(t.FullText, opts.MaxChars)
		t.FullTextWithTimestamps = strutil.TruncateWith(t.FullTextWithTimestamps, opts.MaxChars, "...")
		t.Metadata.Truncated = true
	}
}

// Transcript fetches and shapes the captions of a video. It returns nil
// without error when transcripts are disabled or none could be fetched;
// only a cancelled context surfaces as an error.
func (e *Extractor) Transcript(ctx context.Context, rawURL string) (*Transcript, error) {
	id, err := videoIDFrom(rawURL)
	if err != nil {
		return nil, err
	}
	if e.transcripts == nil {
		slog.Debug("transcripts disabled", slog.String("video_id", id))
		return nil, nil
	}

	cache := e.client.Cache()
	key := engine.CacheKey("transcript", id)
	if t, ok := engine.CacheLoadJSON[*Transcript](ctx, cache, key); ok && t != nil {
		return t, nil
	}

	var out *Transcript
	err = track(ctx, "transcript", func(ctx context.Context) error {
		data, err := e.transcripts.FetchTranscript(ctx, id)
		if err != nil {
			return err
		}
		if data == nil || len(data.Segments) == 0 {
			return nil
		}
		if data.VideoID == "" {
			data.VideoID = id
		}
		out = NewTranscript(data)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("transcript unavailable", slog.String("video_id", id), slog.Any("error", err))
		return nil, nil
	}
	if out != nil {
		engine.CacheStoreJSON(ctx, cache, key, out)
	}
	return out, nil
}

// TranscriptSearch is the outcome of searching a transcript.
type TranscriptSearch struct {
	VideoID       string                  `json:"video_id"`
	Query         string                  `json:"query"`
	CaseSensitive bool                    `json:"case_sensitive"`
	Matches       []TranscriptSegment     `json:"matches"`
	TotalMatches  int                     `json:"total_matches"`
	Error         string                  `json:"error,omitempty"`
	Metadata      *TranscriptSearchSource `json:"metadata,omitempty"`
}

// TranscriptSearchSource names where the searched transcript came from.
type TranscriptSearchSource struct {
	Source             string `json:"source"`
	TranscriptLanguage string `json:"transcript_language,omitempty"`
}

// SearchTranscript finds the caption segments of a video that contain query.
// A video without a transcript yields an empty result carrying an error note.
func (e *Extractor) SearchTranscript(ctx context.Context, rawURL, query string, caseSensitive bool) (*TranscriptSearch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, engine.InvalidInputf("query is required")
	}
	t, err := e.Transcript(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if t == nil {
		id, _ := videoIDFrom(rawURL)
		return &TranscriptSearch{
			VideoID:       id,
			Query:         query,
			CaseSensitive: caseSensitive,
			Matches:       []TranscriptSegment{},
			Error:         "No transcript available",
		}, nil
	}
	matches := t.Search(query, caseSensitive)
	return &TranscriptSearch{
		VideoID:       t.VideoID,
		Query:         query,
		CaseSensitive: caseSensitive,
		Matches:       matches,
		TotalMatches:  len(matches),
		Metadata:      &TranscriptSearchSource{Source: transcriptSource, TranscriptLanguage: t.Language},
	}, nil
}
