package ytserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_youtube/internal/engine/sources"
	"github.com/anatolykoptev/go_youtube/internal/extractor"
	"github.com/anatolykoptev/go_youtube/internal/toolutil"
)

func registerTranscript(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_video_transcript",
		Description: "Get the caption transcript of a YouTube video with timed segments, full text and a timestamped full text. Optionally restrict to a time range or cap the text length. Returns available=false when no captions can be fetched.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, *TranscriptOutput, error) {
		u, err := toolutil.RequireURL(input.URL)
		if err != nil {
			return nil, nil, err
		}
		if input.EndTime > 0 && input.EndTime < input.StartTime {
			return nil, nil, errors.New("end_time must not be before start_time")
		}
		t, err := ex.Transcript(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		out := &TranscriptOutput{VideoID: sources.VideoID(u)}
		if t == nil {
			out.Message = "No transcript available"
			return nil, out, nil
		}
		t.Apply(extractor.TranscriptOptions{
			StartTime: input.StartTime,
			EndTime:   input.EndTime,
			MaxChars:  input.MaxChars,
		})
		out.Available = true
		out.Transcript = t
		return nil, out, nil
	})
}

func registerSearchTranscript(server *mcp.Server, ex *extractor.Extractor) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_transcript",
		Description: "Search a YouTube video's transcript for a phrase. Returns every matching segment with its start time and timestamp.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SearchTranscriptInput) (*mcp.CallToolResult, *extractor.TranscriptSearch, error) {
		u, err := toolutil.RequireURL(input.URL)
		if err != nil {
			return nil, nil, err
		}
		if input.Query == "" {
			return nil, nil, errors.New("query is required")
		}
		res, err := ex.SearchTranscript(ctx, u, input.Query, input.CaseSensitive)
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}
