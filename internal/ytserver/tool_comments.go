package ytserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_youtube/internal/extractor"
	"github.com/anatolykoptev/go_youtube/internal/toolutil"
)

func registerComments(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_video_comments",
		Description: "Get top-level comment threads of a YouTube video with their inline replies, ordered by relevance. Videos with comments disabled return an empty list with comments_disabled=true.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CommentsInput) (*mcp.CallToolResult, *extractor.CommentsResult, error) {
		u, err := toolutil.RequireURL(input.URL)
		if err != nil {
			return nil, nil, err
		}
		res, err := ex.Comments(ctx, u, toolutil.IntOr(input.MaxComments, defaultMaxComments))
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}

func registerCommentsBatch(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_video_comments_batch",
		Description: "Collect a large number of comments from a YouTube video in sequential batches. Reports batches completed versus planned and a success rate; stops early when the video runs out of comments.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CommentsBatchInput) (*mcp.CallToolResult, *extractor.CommentsBatchResult, error) {
		u, err := toolutil.RequireURL(input.URL)
		if err != nil {
			return nil, nil, err
		}
		res, err := ex.CommentsBatch(ctx, u,
			toolutil.IntOr(input.TotalDesired, defaultTotalDesired),
			toolutil.IntOr(input.BatchSize, defaultBatchSize))
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}
