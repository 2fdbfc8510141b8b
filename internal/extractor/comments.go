package extractor

import (
	"context"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/anatolykoptev/go_youtube/internal/engine/sources"
)

// Comment is one shaped comment or reply.
type Comment struct {
	ID                 string `json:"id"`
	Author             string `json:"author"`
	Text               string `json:"text"`
	TextOriginal       string `json:"text_original"`
	Likes              int64  `json:"likes"`
	PublishedAt        string `json:"published_at"`
	UpdatedAt          string `json:"updated_at"`
	AuthorChannelURL   string `json:"author_channel_url,omitempty"`
	AuthorProfileImage string `json:"author_profile_image,omitempty"`
	CanRate            bool   `json:"can_rate"`
	IsReply            bool   `json:"is_reply"`
	ParentID           string `json:"parent_id,omitempty"`
}

// CommentThread is a top-level comment with its inline replies. Author,
// Text, Likes and PublishedAt repeat the top comment for flat consumers.
type CommentThread struct {
	ID              string    `json:"id"`
	VideoID         string    `json:"video_id"`
	TopComment      Comment   `json:"top_comment"`
	CanReply        bool      `json:"can_reply"`
	IsPublic        bool      `json:"is_public"`
	TotalReplyCount int64     `json:"total_reply_count"`
	Replies         []Comment `json:"replies"`
	Author          string    `json:"author"`
	Text            string    `json:"text"`
	Likes           int64     `json:"likes"`
	PublishedAt     string    `json:"published_at"`
}

// CommentsResult is the shaped comment listing of one video.
type CommentsResult struct {
	VideoID          string          `json:"video_id"`
	Comments         []CommentThread `json:"comments"`
	TotalResults     int             `json:"total_results"`
	NextPageToken    string          `json:"next_page_token,omitempty"`
	CommentsDisabled bool            `json:"comments_disabled"`
	Metadata         Metadata        `json:"metadata"`
}

// CommentsBatchResult is the shaped outcome of a batched comments run.
type CommentsBatchResult struct {
	VideoID          string          `json:"video_id"`
	Comments         []CommentThread `json:"comments"`
	TotalExtracted   int             `json:"total_extracted"`
	TotalDesired     int             `json:"total_desired"`
	BatchSize        int             `json:"batch_size"`
	BatchesCompleted int             `json:"batches_completed"`
	TotalBatches     int             `json:"total_batches"`
	SuccessRate      float64         `json:"success_rate"`
	CommentsDisabled bool            `json:"comments_disabled"`
	Metadata         Metadata        `json:"metadata"`
}

func shapeComment(c engine.Comment, isReply bool) Comment {
	return Comment{
		ID:                 c.ID,
		Author:             c.AuthorDisplayName,
		Text:               c.TextDisplay,
		TextOriginal:       c.TextOriginal,
		Likes:              c.LikeCount,
		PublishedAt:        c.PublishedAt,
		UpdatedAt:          c.UpdatedAt,
		AuthorChannelURL:   c.AuthorChannelURL,
		AuthorProfileImage: c.AuthorProfileImageURL,
		CanRate:            c.CanRate,
		IsReply:            isReply,
		ParentID:           c.ParentID,
	}
}

func shapeThread(t engine.CommentThread) CommentThread {
	top := shapeComment(t.TopLevelComment, false)
	replies := make([]Comment, 0, len(t.Replies))
	for _, r := range t.Replies {
		replies = append(replies, shapeComment(r, true))
	}
	return CommentThread{
		ID:              t.ID,
		VideoID:         t.VideoID,
		TopComment:      top,
		CanReply:        t.CanReply,
		IsPublic:        t.IsPublic,
		TotalReplyCount: t.TotalReplyCount,
		Replies:         replies,
		Author:          top.Author,
		Text:            top.Text,
		Likes:           top.Likes,
		PublishedAt:     top.PublishedAt,
	}
}

func shapeThreads(items []engine.CommentThread) []CommentThread {
	out := make([]CommentThread, 0, len(items))
	for _, t := range items {
		out = append(out, shapeThread(t))
	}
	return out
}

func videoIDFrom(rawURL string) (string, error) {
	id := sources.VideoID(rawURL)
	if id == "" {
		return "", engine.InvalidInputf("could not extract video id from %q", rawURL)
	}
	return id, nil
}

// Comments extracts up to maxComments comment threads for a video.
func (e *Extractor) Comments(ctx context.Context, rawURL string, maxComments int) (*CommentsResult, error) {
	var out *CommentsResult
	err := track(ctx, "comments", func(ctx context.Context) error {
		id, err := videoIDFrom(rawURL)
		if err != nil {
			return err
		}
		res, err := e.client.VideoComments(ctx, id, maxComments, "relevance")
		if err != nil {
			return err
		}
		comments := shapeThreads(res.Items)
		out = &CommentsResult{
			VideoID:          id,
			Comments:         comments,
			TotalResults:     len(comments),
			NextPageToken:    res.NextPageToken,
			CommentsDisabled: res.CommentsDisabled,
			Metadata:         apiMetadataMore(res.NextPageToken != ""),
		}
		return nil
	})
	if err != nil {
		return nil, wrapOp("extract comments", err)
	}
	return out, nil
}

// CommentsBatch extracts totalDesired comments in sequential batches.
func (e *Extractor) CommentsBatch(ctx context.Context, rawURL string, totalDesired, batchSize int) (*CommentsBatchResult, error) {
	var out *CommentsBatchResult
	err := track(ctx, "comments_batch", func(ctx context.Context) error {
		id, err := videoIDFrom(rawURL)
		if err != nil {
			return err
		}
		res, err := e.client.CommentBatches(ctx, id, totalDesired, batchSize, "relevance")
		if err != nil {
			return err
		}
		comments := shapeThreads(res.Items)
		out = &CommentsBatchResult{
			VideoID:          id,
			Comments:         comments,
			TotalExtracted:   len(comments),
			TotalDesired:     res.TotalDesired,
			BatchSize:        res.BatchSize,
			BatchesCompleted: res.BatchesCompleted,
			TotalBatches:     res.TotalBatches,
			SuccessRate:      res.SuccessRate,
			CommentsDisabled: res.CommentsDisabled,
			Metadata:         apiMetadata(),
		}
		return nil
	})
	if err != nil {
		return nil, wrapOp("extract comments batch", err)
	}
	return out, nil
}
