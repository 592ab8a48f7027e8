package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sealhits/internal/application/commands"
	"sealhits/internal/application/ingest"
)

// RegisterWriteTools adds the tools that change the store. defaults holds
// the configured output directory and limits; tool arguments override them.
func RegisterWriteTools(s *server.MCPServer, engine commands.Engine, defaults ingest.Request) {
	s.AddTool(ingestTool(), ingestHandler(engine, defaults))
	s.AddTool(diffTool(), diffHandler(engine, defaults))
	s.AddTool(undoTool(), undoHandler(engine))
}

// --- ingest ---

func ingestOptions(description string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("sqlite",
			mcp.Description("Path to the PAMGuard session database of the disk"),
			mcp.Required(),
		),
		mcp.WithString("pgdf",
			mcp.Description("Directory holding the detection logs"),
			mcp.Required(),
		),
		mcp.WithString("glf",
			mcp.Description("Directory holding the sonar image logs. Required unless skip_glf is set."),
		),
		mcp.WithString("name",
			mcp.Description("Source name to record. Defaults to the session database file name."),
		),
		mcp.WithString("sql_alias",
			mcp.Description("Name the disk was ingested under before, when renaming it"),
		),
		mcp.WithBoolean("skip_glf",
			mcp.Description("Skip image logs and keep the stored frames"),
		),
		mcp.WithNumber("buffer",
			mcp.Description("Split buffer in seconds"),
		),
		mcp.WithNumber("max_secs",
			mcp.Description("Groups longer than this many seconds are rejected"),
		),
	}
}

func ingestTool() mcp.Tool {
	return mcp.NewTool("ingest",
		ingestOptions("Ingest one survey disk: groups, tracks and points from the session database, detection logs, image logs and frames. Runs in one transaction and deletes whatever the disk no longer produces.")...,
	)
}

// requestFrom overlays the tool arguments onto defaults.
func requestFrom(req mcp.CallToolRequest, defaults ingest.Request) ingest.Request {
	r := defaults
	r.SessionDBPath = req.GetString("sqlite", "")
	r.DetectionLogDir = req.GetString("pgdf", "")
	r.ImageLogDir = req.GetString("glf", r.ImageLogDir)
	r.SourceName = req.GetString("name", "")
	r.SourceAlias = req.GetString("sql_alias", "")
	r.SkipImageLogs = req.GetBool("skip_glf", r.SkipImageLogs)
	if b := req.GetFloat("buffer", 0); b > 0 {
		r.SplitBuffer = time.Duration(b * float64(time.Second))
	}
	if m := req.GetFloat("max_secs", 0); m > 0 {
		r.MaxGroupDuration = time.Duration(m * float64(time.Second))
	}
	return r
}

func ingestHandler(engine commands.Engine, defaults ingest.Request) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewIngestCommand(engine, requestFrom(req, defaults))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(formatSummary(result.Message, result.Summary)), nil
	}
}

// --- diff ---

func diffTool() mcp.Tool {
	return mcp.NewTool("diff",
		ingestOptions("Dry run of ingest: computes everything an ingest would create and delete, then rolls back. Writes no frame artifacts.")...,
	)
}

func diffHandler(engine commands.Engine, defaults ingest.Request) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewDiffCommand(engine, requestFrom(req, defaults))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(formatSummary(result.Message, result.Summary)), nil
	}
}

// --- undo_ingest ---

func undoTool() mcp.Tool {
	return mcp.NewTool("undo_ingest",
		mcp.WithDescription("Remove everything one ingested disk contributed. Logs and frames still used by other disks are kept."),
		mcp.WithString("source",
			mcp.Description("Source name as shown by list_sources"),
			mcp.Required(),
		),
	)
}

func undoHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewUndoCommand(engine, req.GetString("source", ""))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(formatSummary(result.Message, result.Summary)), nil
	}
}
