// Package ytserver exposes the YouTube extractor as MCP tools.
package ytserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_youtube/internal/extractor"
)

// Tool argument defaults and ceilings.
const (
	defaultMaxComments  = 20
	defaultTotalDesired = 100
	defaultBatchSize    = 20
	defaultMaxResults   = 20
)

// RegisterTools registers every YouTube tool on server, all backed by ex.
// Returns the number of tools registered.
func RegisterTools(server *mcp.Server, ex *extractor.Extractor) int {
	registrars := []func(*mcp.Server, *extractor.Extractor){
		registerVideoInfo,
		registerComments,
		registerCommentsBatch,
		registerTranscript,
		registerSearchTranscript,
		registerEngagement,
		registerChannelInfo,
		registerPlaylistInfo,
		registerSearch,
		registerTrending,
		registerBatchExtract,
		registerHealth,
		registerClearCache,
		registerConfig,
	}
	for _, r := range registrars {
		r(server, ex)
	}
	return len(registrars)
}
