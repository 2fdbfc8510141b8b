package ytserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_youtube/internal/extractor"
	"github.com/anatolykoptev/go_youtube/internal/toolutil"
)

func registerVideoInfo(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_video_info",
		Description: "Get detailed information about a YouTube video via the official Data API: title, description, channel, tags, statistics, engagement rate, like ratio, duration (ISO 8601, seconds, formatted) and status flags.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input URLInput) (*mcp.CallToolResult, *extractor.VideoInfo, error) {
		u, err := toolutil.RequireURL(input.URL)
		if err != nil {
			return nil, nil, err
		}
		info, err := ex.VideoInfo(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		return nil, info, nil
	})
}

func registerEngagement(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_video_engagement",
		Description: "Analyze a video's engagement against industry benchmarks. Returns engagement rate, like ratio, engagement level (Excellent, Good, Average, Below Average), views per like and per comment, plus improvement recommendations.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input URLInput) (*mcp.CallToolResult, *extractor.EngagementAnalysis, error) {
		u, err := toolutil.RequireURL(input.URL)
		if err != nil {
			return nil, nil, err
		}
		res, err := ex.AnalyzeEngagement(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}

func registerTrending(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_trending_videos",
		Description: "Get the most popular videos for a region (YouTube mostPopular chart). Returns up to 50 videos with full details and statistics.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TrendingInput) (*mcp.CallToolResult, *extractor.TrendingResult, error) {
		res, err := ex.Trending(ctx, toolutil.NormRegion(input.Region), toolutil.IntOr(input.MaxResults, defaultMaxResults))
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}
