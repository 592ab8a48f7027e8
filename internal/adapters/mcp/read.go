package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sealhits/internal/application/commands"
	"sealhits/internal/application/ingest"
	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

const timeLayout = "2006-01-02 15:04:05"

// RegisterReadTools adds the read-only tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, store ports.Store) {
	s.AddTool(listSourcesTool(), listSourcesHandler(store))
}

// --- list_sources ---

func listSourcesTool() mcp.Tool {
	return mcp.NewTool("list_sources",
		mcp.WithDescription("List the ingested survey disks with their group, track, point and frame counts and the time span they cover."),
	)
}

func listSourcesHandler(store ports.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sources, err := commands.NewListSourcesCommand(store).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return formatEntities(sources, formatSource)
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatEntities[T any](entities []T, format func(T) string) (*mcp.CallToolResult, error) {
	if len(entities) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	var sb strings.Builder
	for _, e := range entities {
		sb.WriteString(format(e))
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatSource(s domain.SourceSummary) string {
	return fmt.Sprintf("%s  groups=%d tracks=%d points=%d frames=%d  %s..%s",
		s.Name, s.Groups, s.Tracks, s.Points, s.Frames,
		s.Start.UTC().Format(timeLayout), s.End.UTC().Format(timeLayout))
}

// formatSummary renders a run summary as plain text for tool results.
func formatSummary(message string, sum *ingest.Summary) string {
	var sb strings.Builder
	sb.WriteString(message)
	sb.WriteByte('\n')

	rows := []struct {
		label   string
		model   int
		created int
		gone    int
	}{
		{"groups", sum.Model.Groups, sum.Created.Groups, sum.Deleted.Groups},
		{"tracks", sum.Model.Tracks, sum.Created.Tracks, sum.Deleted.Tracks},
		{"points", sum.Model.Points, sum.Created.Points, sum.Deleted.Points},
		{"detection_logs", sum.Model.DetectionLogs, sum.Created.DetectionLogs, sum.Deleted.DetectionLogs},
		{"image_logs", sum.Model.ImageLogs, sum.Created.ImageLogs, sum.Deleted.ImageLogs},
		{"frames", sum.Model.Frames, sum.Created.Frames, sum.Deleted.Frames},
	}
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s: total=%d new=%d deleted=%d\n", r.label, r.model, r.created, r.gone)
	}
	for _, d := range sum.Diagnostics {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
