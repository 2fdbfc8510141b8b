package ytserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_youtube/internal/extractor"
	"github.com/anatolykoptev/go_youtube/internal/toolutil"
)

func registerSearch(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_youtube",
		Description: "Search YouTube for videos, channels or playlists via the official Data API. Returns results with URLs and thumbnails, grouped by type, plus the next page token.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, *extractor.SearchResults, error) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, nil, errors.New("query is required")
		}
		res, err := ex.Search(ctx, input.Query, input.SearchType, toolutil.IntOr(input.MaxResults, defaultMaxResults))
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}

func registerBatchExtract(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "batch_extract_urls",
		Description: "Extract video, channel or playlist information from up to 10 YouTube URLs concurrently. Each URL succeeds or fails on its own; results and errors keep the input index.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input BatchExtractInput) (*mcp.CallToolResult, *extractor.BatchExtractResult, error) {
		if len(input.URLs) == 0 {
			return nil, nil, errors.New("urls is required")
		}
		res, err := ex.BatchExtract(ctx, input.URLs, strings.ToLower(strings.TrimSpace(input.ExtractType)))
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}
