package engine

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MaxBatchSize bounds one fan-out.
const MaxBatchSize = 10

// MaxCommentBatchSize bounds one sequential comments sub-request.
const MaxCommentBatchSize = 50

// BatchSuccess is one item that completed.
type BatchSuccess[In, Out any] struct {
	Index int `json:"index"`
	Input In  `json:"input"`
	Value Out `json:"data"`
}

// BatchFailure is one item that failed, with the failure message.
type BatchFailure[In any] struct {
	Index int    `json:"index"`
	Input In     `json:"input"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// BatchResult collects per-item outcomes, each list ordered by input index.
// len(Successes)+len(Failures) always equals the number of inputs.
type BatchResult[In, Out any] struct {
	ID          string                  `json:"batch_id"`
	Successes   []BatchSuccess[In, Out] `json:"successes"`
	Failures    []BatchFailure[In]      `json:"failures"`
	Total       int                     `json:"total"`
	SuccessRate float64                 `json:"success_rate"`
}

// FanOut runs fn for every input concurrently and isolates failures per item.
// One item's error never cancels the others.
func FanOut[In, Out any](ctx context.Context, inputs []In, fn func(ctx context.Context, in In) (Out, error)) (*BatchResult[In, Out], error) {
	if len(inputs) == 0 {
		return nil, InvalidInputf("batch must contain at least one item")
	}
	if len(inputs) > MaxBatchSize {
		return nil, InvalidInputf("batch of %d items exceeds the limit of %d", len(inputs), MaxBatchSize)
	}
	metrics.BatchRuns.Add(1)

	type outcome struct {
		val Out
		err error
	}
	outcomes := make([]outcome, len(inputs))

	var g errgroup.Group
	for i, in := range inputs {
		g.Go(func() error {
			val, err := fn(ctx, in)
			outcomes[i] = outcome{val: val, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := &BatchResult[In, Out]{
		ID:        uuid.NewString(),
		Successes: []BatchSuccess[In, Out]{},
		Failures:  []BatchFailure[In]{},
		Total:     len(inputs),
	}
	for i, o := range outcomes {
		if o.err != nil {
			metrics.BatchItemFailures.Add(1)
			res.Failures = append(res.Failures, BatchFailure[In]{Index: i, Input: inputs[i], Error: o.err.Error(), Err: o.err})
			continue
		}
		res.Successes = append(res.Successes, BatchSuccess[In, Out]{Index: i, Input: inputs[i], Value: o.val})
	}
	res.SuccessRate = percent(len(res.Successes), len(inputs))

	slog.Debug("batch done",
		slog.String("batch_id", res.ID),
		slog.Int("total", res.Total),
		slog.Int("failed", len(res.Failures)))
	return res, nil
}

// CommentBatchResult is the outcome of a batched comments extraction.
type CommentBatchResult struct {
	Items            []CommentThread `json:"items"`
	TotalDesired     int             `json:"total_desired"`
	BatchSize        int             `json:"batch_size"`
	BatchesCompleted int             `json:"batches_completed"`
	TotalBatches     int             `json:"total_batches"`
	SuccessRate      float64         `json:"success_rate"`
	CommentsDisabled bool            `json:"comments_disabled"`
}

// CommentBatches splits totalDesired comments into sequential sub-requests of
// batchSize. A failed batch is logged and skipped; a batch that returns fewer
// comments than asked for, or no continuation token, ends the run early.
// Each batch resumes from the previous batch's page token.
// The aggregate is not cached: a run may be partial.
func (c *Client) CommentBatches(ctx context.Context, videoID string, totalDesired, batchSize int, order string) (*CommentBatchResult, error) {
	if videoID == "" {
		return nil, InvalidInputf("video id is required")
	}
	if totalDesired <= 0 {
		return nil, InvalidInputf("total comments must be positive, got %d", totalDesired)
	}
	if batchSize <= 0 {
		return nil, InvalidInputf("batch size must be positive, got %d", batchSize)
	}
	batchSize = min(batchSize, MaxCommentBatchSize)
	if order == "" {
		order = "relevance"
	}

	metrics.BatchRuns.Add(1)
	res := &CommentBatchResult{
		Items:        make([]CommentThread, 0, totalDesired),
		TotalDesired: totalDesired,
		BatchSize:    batchSize,
		TotalBatches: int(math.Ceil(float64(totalDesired) / float64(batchSize))),
	}

	token := ""
	for batch := 0; batch < res.TotalBatches && len(res.Items) < totalDesired; batch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		want := min(batchSize, totalDesired-len(res.Items))
		page, err := c.commentsFrom(ctx, videoID, want, order, token)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			metrics.BatchItemFailures.Add(1)
			slog.Warn("comment batch failed",
				slog.String("video_id", videoID),
				slog.Int("batch", batch+1),
				slog.Any("error", err))
			continue
		}
		if page.CommentsDisabled {
			res.CommentsDisabled = true
			break
		}
		res.BatchesCompleted++
		res.Items = append(res.Items, page.Items...)
		token = page.NextPageToken
		if len(page.Items) < want || token == "" {
			break
		}
	}
	res.SuccessRate = percent(res.BatchesCompleted, res.TotalBatches)
	return res, nil
}

// percent returns part/total*100 rounded to one decimal.
func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
