package ytserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_youtube/internal/extractor"
	"github.com/anatolykoptev/go_youtube/internal/toolutil"
)

func registerChannelInfo(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_channel_info",
		Description: "Get information about a YouTube channel from a /channel/, /@handle, /c/ or /user/ URL: statistics, subscriber tier, per-video averages, keywords and uploads playlist ID.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input URLInput) (*mcp.CallToolResult, *extractor.ChannelInfo, error) {
		u, err := toolutil.RequireURL(input.URL)
		if err != nil {
			return nil, nil, err
		}
		info, err := ex.ChannelInfo(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		return nil, info, nil
	})
}

func registerPlaylistInfo(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_playlist_info",
		Description: "Get a YouTube playlist's metadata and up to 100 of its videos with their positions.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input URLInput) (*mcp.CallToolResult, *extractor.PlaylistInfo, error) {
		u, err := toolutil.RequireURL(input.URL)
		if err != nil {
			return nil, nil, err
		}
		info, err := ex.PlaylistInfo(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		return nil, info, nil
	})
}
