package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

func sampleTranscript() *engine.TranscriptData {
	return &engine.TranscriptData{
		Language:     "English",
		LanguageCode: "en",
		Segments: []engine.TranscriptSegment{
			{Text: "We're no strangers to love", Start: 18.5, Duration: 3.5},
			{Text: "You know the rules and so do I", Start: 22, Duration: 4},
			{Text: "Never gonna give you up", Start: 3725, Duration: 2},
		},
	}
}

func TestNewTranscript(t *testing.T) {
	data := sampleTranscript()
	data.VideoID = testVideoID
	tr := NewTranscript(data)

	assert.Equal(t, 3, tr.TotalSegments)
	assert.InDelta(t, 3727.0, tr.Duration, 1e-9)
	assert.Equal(t, "00:18", tr.Segments[0].Timestamp)
	assert.InDelta(t, 22.0, tr.Segments[0].End, 1e-9)
	assert.Equal(t, "01:02:05", tr.Segments[2].Timestamp)
	assert.Equal(t, "We're no strangers to love You know the rules and so do I Never gonna give you up", tr.FullText)
	assert.True(t, strings.HasPrefix(tr.FullTextWithTimestamps, "[00:18] We're no strangers to love\n[00:22] "))
	assert.Equal(t, "fallback", tr.Metadata.ExtractionMethod)
}

func TestTranscriptSearch(t *testing.T) {
	tr := NewTranscript(sampleTranscript())

	assert.Len(t, tr.Search("NEVER", false), 1)
	assert.Empty(t, tr.Search("NEVER", true))
	assert.Len(t, tr.Search("o", true), 3)
	assert.NotNil(t, tr.Search("absent", false))
}

func TestTranscriptApply(t *testing.T) {
	tr := NewTranscript(sampleTranscript())
	tr.Apply(TranscriptOptions{StartTime: 20, EndTime: 30})
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, 1, tr.TotalSegments)
	assert.Equal(t, "You know the rules and so do I", tr.FullText)

	tr = NewTranscript(sampleTranscript())
	tr.Apply(TranscriptOptions{StartTime: 20})
	assert.Len(t, tr.Segments, 2)

	tr = NewTranscript(sampleTranscript())
	tr.Apply(TranscriptOptions{MaxChars: 20})
	assert.True(t, tr.Metadata.Truncated)
	assert.Less(t, len(tr.FullText), len(NewTranscript(sampleTranscript()).FullText))

	tr = NewTranscript(sampleTranscript())
	tr.Apply(TranscriptOptions{MaxChars: 10_000})
	assert.False(t, tr.Metadata.Truncated)
}

func TestExtractorTranscriptCached(t *testing.T) {
	ts := &stubTranscripts{data: sampleTranscript()}
	e := newTestExtractor(t, &stubUpstream{}, ts)

	tr, err := e.Transcript(context.Background(), testVideoURL)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, testVideoID, tr.VideoID)
	assert.Equal(t, "en", tr.LanguageCode)

	tr, err = e.Transcript(context.Background(), testVideoID)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, 1, ts.calls)
	assert.Equal(t, 3, tr.TotalSegments)
}

func TestExtractorTranscriptUnavailable(t *testing.T) {
	ts := &stubTranscripts{err: errors.New("no captions")}
	e := newTestExtractor(t, &stubUpstream{}, ts)

	tr, err := e.Transcript(context.Background(), testVideoURL)
	require.NoError(t, err)
	assert.Nil(t, tr)

	_, err = e.Transcript(context.Background(), testVideoURL)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.calls, "a failed fetch is not cached")

	_, err = e.Transcript(context.Background(), "not a video")
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestExtractorTranscriptCancelled(t *testing.T) {
	ts := &stubTranscripts{err: context.Canceled}
	e := newTestExtractor(t, &stubUpstream{}, ts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr, err := e.Transcript(ctx, testVideoURL)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, tr)
}

func TestExtractorTranscriptDisabled(t *testing.T) {
	e := newTestExtractor(t, &stubUpstream{}, nil)
	tr, err := e.Transcript(context.Background(), testVideoURL)
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestSearchTranscript(t *testing.T) {
	e := newTestExtractor(t, &stubUpstream{}, &stubTranscripts{data: sampleTranscript()})

	res, err := e.SearchTranscript(context.Background(), testVideoURL, "rules", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, "00:22", res.Matches[0].Timestamp)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "English", res.Metadata.TranscriptLanguage)
	assert.Empty(t, res.Error)

	_, err = e.SearchTranscript(context.Background(), testVideoURL, " ", false)
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestSearchTranscriptWithoutTranscript(t *testing.T) {
	e := newTestExtractor(t, &stubUpstream{}, nil)

	res, err := e.SearchTranscript(context.Background(), testVideoURL, "rules", true)
	require.NoError(t, err)
	assert.Equal(t, testVideoID, res.VideoID)
	assert.Equal(t, "No transcript available", res.Error)
	assert.Zero(t, res.TotalMatches)
	assert.Nil(t, res.Metadata)
}
