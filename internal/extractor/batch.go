package extractor

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// BatchItem is one successful URL of a batch, tagged with its input index.
type BatchItem struct {
	URL   string `json:"url"`
	Data  any    `json:"data"`
	Index int    `json:"index"`
}

// BatchError is one failed URL of a batch.
type BatchError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
	Index int    `json:"index"`
}

// BatchMetadata summarizes a batch.
type BatchMetadata struct {
	BatchID     string  `json:"batch_id"`
	TotalURLs   int     `json:"total_urls"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	ExtractType string  `json:"extract_type"`
	APISource   string  `json:"api_source"`
}

// BatchExtractResult holds per-URL outcomes, each list in input order.
type BatchExtractResult struct {
	Results  []BatchItem   `json:"results"`
	Errors   []BatchError  `json:"errors"`
	Metadata BatchMetadata `json:"metadata"`
}

func (e *Extractor) extractFunc(extractType string) (func(ctx context.Context, url string) (any, error), bool) {
	switch extractType {
	case "video":
		return func(ctx context.Context, url string) (any, error) { return e.VideoInfo(ctx, url) }, true
	case "channel":
		return func(ctx context.Context, url string) (any, error) { return e.ChannelInfo(ctx, url) }, true
	case "playlist":
		return func(ctx context.Context, url string) (any, error) { return e.PlaylistInfo(ctx, url) }, true
	}
	return nil, false
}

// BatchExtract extracts up to ten URLs of one kind concurrently. A failing
// URL lands in Errors and never affects the others.
func (e *Extractor) BatchExtract(ctx context.Context, urls []string, extractType string) (*BatchExtractResult, error) {
	if extractType == "" {
		extractType = "video"
	}
	fn, ok := e.extractFunc(extractType)
	if !ok {
		return nil, engine.InvalidInputf("extract type must be video, channel or playlist, got %q", extractType)
	}

	var out *BatchExtractResult
	err := track(ctx, "batch_extract", func(ctx context.Context) error {
		res, err := engine.FanOut(ctx, urls, fn)
		if err != nil {
			return err
		}
		out = &BatchExtractResult{
			Results: make([]BatchItem, 0, len(res.Successes)),
			Errors:  make([]BatchError, 0, len(res.Failures)),
			Metadata: BatchMetadata{
				BatchID:     res.ID,
				TotalURLs:   res.Total,
				Successful:  len(res.Successes),
				Failed:      len(res.Failures),
				SuccessRate: res.SuccessRate,
				ExtractType: extractType,
				APISource:   APISource,
			},
		}
		for _, s := range res.Successes {
			out.Results = append(out.Results, BatchItem{URL: s.Input, Data: s.Value, Index: s.Index})
		}
		for _, f := range res.Failures {
			slog.Warn("batch item failed", slog.String("url", f.Input), slog.String("error", f.Error))
			out.Errors = append(out.Errors, BatchError{URL: f.Input, Error: f.Error, Index: f.Index})
		}
		return nil
	})
	if err != nil {
		return nil, wrapOp("batch extract urls", err)
	}
	return out, nil
}
