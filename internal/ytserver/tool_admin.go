package ytserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_youtube/internal/extractor"
)

func registerHealth(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_extractor_health",
		Description: "Get extractor health: rate limiter usage (per-second window and daily quota), cache hit rate and size, and active settings.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, extractor.HealthReport, error) {
		return nil, ex.Health(), nil
	})
}

func registerClearCache(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_extractor_cache",
		Description: "Clear every cached API response, in memory and in the persistent cache tier.",
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, extractor.ClearCacheResult, error) {
		return nil, ex.ClearCache(ctx), nil
	})
}

func registerConfig(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_extractor_config",
		Description: "Get the effective extractor configuration (API version, quota, rate, cache and transcript settings). API keys are never included.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, extractor.ConfigReport, error) {
		return nil, ex.Config(), nil
	})
}
