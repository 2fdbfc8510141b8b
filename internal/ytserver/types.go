package ytserver

import "github.com/anatolykoptev/go_youtube/internal/extractor"

// URLInput is shared by every tool that acts on a single YouTube URL.
type URLInput struct {
	URL string `json:"url" jsonschema:"YouTube URL or bare ID (video, channel or playlist depending on the tool)"`
}

type CommentsInput struct {
	URL         string `json:"url" jsonschema:"YouTube video URL or 11-character video ID"`
	MaxComments int    `json:"max_comments,omitempty" jsonschema:"Maximum number of comment threads to return (default: 20)"`
}

type CommentsBatchInput struct {
	URL          string `json:"url" jsonschema:"YouTube video URL or 11-character video ID"`
	TotalDesired int    `json:"total_desired,omitempty" jsonschema:"Total comment threads to collect (default: 100)"`
	BatchSize    int    `json:"batch_size,omitempty" jsonschema:"Comment threads per sequential batch, at most 50 (default: 20)"`
}

type TranscriptInput struct {
	URL       string  `json:"url" jsonschema:"YouTube video URL or 11-character video ID"`
	StartTime float64 `json:"start_time,omitempty" jsonschema:"Only include segments starting at or after this second"`
	EndTime   float64 `json:"end_time,omitempty" jsonschema:"Only include segments ending at or before this second"`
	MaxChars  int     `json:"max_chars,omitempty" jsonschema:"Truncate the full text fields to this many characters (default: no limit)"`
}

// TranscriptOutput wraps a transcript that may be unavailable.
type TranscriptOutput struct {
	VideoID    string                `json:"video_id"`
	Available  bool                  `json:"available"`
	Message    string                `json:"message,omitempty"`
	Transcript *extractor.Transcript `json:"transcript,omitempty"`
}

type SearchTranscriptInput struct {
	URL           string `json:"url" jsonschema:"YouTube video URL or 11-character video ID"`
	Query         string `json:"query" jsonschema:"Text to look for in the transcript"`
	CaseSensitive bool   `json:"case_sensitive,omitempty" jsonschema:"Match case exactly (default: false)"`
}

type SearchInput struct {
	Query      string `json:"query" jsonschema:"Search query"`
	SearchType string `json:"search_type,omitempty" jsonschema:"Result type: video, channel or playlist (default: video)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum results, at most 50 (default: 20)"`
}

type TrendingInput struct {
	Region     string `json:"region,omitempty" jsonschema:"ISO 3166-1 alpha-2 region code (default: US)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum videos, at most 50 (default: 20)"`
}

type BatchExtractInput struct {
	URLs        []string `json:"urls" jsonschema:"Up to 10 YouTube URLs"`
	ExtractType string   `json:"extract_type,omitempty" jsonschema:"What to extract from every URL: video, channel or playlist (default: video)"`
}

// EmptyInput is used by tools that take no arguments.
type EmptyInput struct{}
