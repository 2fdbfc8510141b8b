package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanOutIsolatesFailures(t *testing.T) {
	inputs := []string{"a", "b", "boom", "d", "e"}
	res, err := FanOut(context.Background(), inputs, func(_ context.Context, in string) (string, error) {
		if in == "boom" {
			return "", errors.New("exploded")
		}
		return in + "!", nil
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Successes, 4)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Index)
	assert.Equal(t, "boom", res.Failures[0].Input)
	assert.Equal(t, "exploded", res.Failures[0].Error)
	assert.Equal(t, 80.0, res.SuccessRate)
	assert.NotEmpty(t, res.ID)

	for i, s := range res.Successes {
		if i > 0 {
			assert.Less(t, res.Successes[i-1].Index, s.Index)
		}
		assert.Equal(t, inputs[s.Index]+"!", s.Value)
	}
}

func TestFanOutPreservesIndexRegardlessOfCompletion(t *testing.T) {
	inputs := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	res, err := FanOut(context.Background(), inputs, func(_ context.Context, in int) (int, error) {
		// Earlier items finish last.
		time.Sleep(time.Duration(10-in) * time.Millisecond)
		return in * in, nil
	})
	require.NoError(t, err)
	require.Len(t, res.Successes, 10)
	for i, s := range res.Successes {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, i*i, s.Value)
	}
}

func TestFanOutRunsConcurrently(t *testing.T) {
	inputs := make([]int, MaxBatchSize)
	start := time.Now()
	_, err := FanOut(context.Background(), inputs, func(context.Context, int) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 0, nil
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestFanOutRejectsBadSizes(t *testing.T) {
	fn := func(context.Context, int) (int, error) { return 0, nil }

	_, err := FanOut(context.Background(), nil, fn)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = FanOut(context.Background(), make([]int, MaxBatchSize+1), fn)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestFanOutThroughClient(t *testing.T) {
	up := &fakeUpstream{videos: func(req VideosRequest) (*VideoPage, error) {
		if req.IDs[0] == "bad" {
			return nil, apiErr(404, "videoNotFound")
		}
		return &VideoPage{Items: []Video{{ID: req.IDs[0]}}}, nil
	}}
	c := newTestClient(t, up)

	res, err := FanOut(context.Background(), []string{"a", "bad", "c"}, func(ctx context.Context, id string) (*VideoPage, error) {
		return c.VideoDetails(ctx, []string{id}, nil)
	})
	require.NoError(t, err)
	assert.Len(t, res.Successes, 2)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, "videoNotFound", ReasonOf(res.Failures[0].Err))
	assert.InDelta(t, 66.7, res.SuccessRate, 1e-9)
}

func TestCommentBatchesFullRun(t *testing.T) {
	up := &fakeUpstream{comments: commentPager(500)}
	c := newTestClient(t, up)

	res, err := c.CommentBatches(context.Background(), "vid", 120, 50, "")
	require.NoError(t, err)
	assert.Len(t, res.Items, 120)
	assert.Equal(t, 3, res.TotalBatches)
	assert.Equal(t, 3, res.BatchesCompleted)
	assert.Equal(t, 100.0, res.SuccessRate)

	seen := map[string]bool{}
	for _, it := range res.Items {
		assert.False(t, seen[it.ID], "batches must not repeat comments")
		seen[it.ID] = true
	}
	assert.Equal(t, "c119", res.Items[119].ID)
}

func TestCommentBatchesStopsEarlyOnShortBatch(t *testing.T) {
	up := &fakeUpstream{comments: commentPager(70)}
	c := newTestClient(t, up)

	res, err := c.CommentBatches(context.Background(), "vid", 200, 50, "relevance")
	require.NoError(t, err)
	assert.Len(t, res.Items, 70)
	assert.Equal(t, 4, res.TotalBatches)
	assert.Equal(t, 2, res.BatchesCompleted)
	assert.Equal(t, 50.0, res.SuccessRate)
}

func TestCommentBatchesClampsBatchSize(t *testing.T) {
	up := &fakeUpstream{comments: commentPager(1000)}
	c := newTestClient(t, up)

	res, err := c.CommentBatches(context.Background(), "vid", 200, 500, "")
	require.NoError(t, err)
	assert.Equal(t, MaxCommentBatchSize, res.BatchSize)
	assert.Equal(t, 4, res.TotalBatches)
}

func TestCommentBatchesSkipsFailedBatch(t *testing.T) {
	pager := commentPager(500)
	up := &fakeUpstream{comments: func(req CommentThreadsRequest) (*CommentThreadPage, error) {
		if req.PageToken == "50" {
			return nil, apiErr(500, "backendError")
		}
		return pager(req)
	}}
	c := newTestClient(t, up)

	res, err := c.CommentBatches(context.Background(), "vid", 150, 50, "")
	require.NoError(t, err)
	// Batch 2 fails three times; batch 3 retries the same token and fails too.
	assert.Equal(t, 1, res.BatchesCompleted)
	assert.Len(t, res.Items, 50)
	assert.Equal(t, 3, res.TotalBatches)
	assert.InDelta(t, 33.3, res.SuccessRate, 1e-9)
}

func TestCommentBatchesFailedRunNotCached(t *testing.T) {
	healthy := false
	pager := commentPager(100)
	up := &fakeUpstream{comments: func(req CommentThreadsRequest) (*CommentThreadPage, error) {
		if !healthy {
			return nil, apiErr(503, "backendError")
		}
		return pager(req)
	}}
	c := newTestClient(t, up)
	ctx := context.Background()

	res, err := c.CommentBatches(ctx, "vid", 100, 50, "")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.BatchesCompleted)
	assert.Equal(t, 2, res.TotalBatches)
	assert.Zero(t, res.SuccessRate)

	healthy = true
	before := up.count("comments")
	res, err = c.CommentBatches(ctx, "vid", 100, 50, "")
	require.NoError(t, err)
	assert.Len(t, res.Items, 100)
	assert.Equal(t, 2, res.BatchesCompleted)
	assert.Equal(t, 100.0, res.SuccessRate)
	assert.Equal(t, before+2, up.count("comments"), "second run must reach the upstream")
}

func TestCommentBatchesDisabled(t *testing.T) {
	up := &fakeUpstream{comments: func(CommentThreadsRequest) (*CommentThreadPage, error) {
		return nil, apiErr(403, ReasonCommentsDisabled)
	}}
	c := newTestClient(t, up)

	res, err := c.CommentBatches(context.Background(), "vid", 100, 50, "")
	require.NoError(t, err)
	assert.True(t, res.CommentsDisabled)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.BatchesCompleted)
}

func TestCommentBatchesInvalidInput(t *testing.T) {
	c := newTestClient(t, &fakeUpstream{})
	ctx := context.Background()
	for _, tc := range []struct {
		video       string
		total, size int
	}{
		{"", 10, 5},
		{"vid", 0, 5},
		{"vid", 10, 0},
	} {
		t.Run(fmt.Sprintf("%q/%d/%d", tc.video, tc.total, tc.size), func(t *testing.T) {
			_, err := c.CommentBatches(ctx, tc.video, tc.total, tc.size, "")
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(1, 0))
	assert.Equal(t, 100.0, percent(3, 3))
	assert.Equal(t, 33.3, percent(1, 3))
	assert.Equal(t, 66.7, percent(2, 3))
}
