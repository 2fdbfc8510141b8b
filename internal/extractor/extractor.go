// Package extractor shapes Data API resources into the tool-facing result
// types and implements one operation per MCP tool on top of engine.Client.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// APISource tags every result built from the Data API.
const APISource = "YouTube Data API v3"

// TranscriptSource fetches caption segments for one video.
type TranscriptSource interface {
	FetchTranscript(ctx context.Context, videoID string) (*engine.TranscriptData, error)
}

// Extractor owns one engine.Client and an optional transcript source.
type Extractor struct {
	client      *engine.Client
	transcripts TranscriptSource
	now         func() time.Time
}

// New builds an Extractor. ts may be nil, which disables transcripts.
func New(client *engine.Client, ts TranscriptSource) *Extractor {
	return &Extractor{client: client, transcripts: ts, now: time.Now}
}

// Client exposes the underlying orchestrator.
func (e *Extractor) Client() *engine.Client { return e.client }

// Metadata describes where a result came from.
type Metadata struct {
	APISource string `json:"api_source"`
	Reliable  bool   `json:"reliable"`
	HasMore   *bool  `json:"has_more,omitempty"`
}

func apiMetadata() Metadata { return Metadata{APISource: APISource, Reliable: true} }

func apiMetadataMore(more bool) Metadata {
	m := apiMetadata()
	m.HasMore = &more
	return m
}

// wrapOp adds operation context to upstream failures. Invalid input and
// quota exhaustion pass through unchanged.
func wrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrInvalidInput) || errors.Is(err, engine.ErrQuotaExceeded) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func track(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return engine.TrackOperation(ctx, name, fn)
}
