package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"sealhits/internal/application"
	"sealhits/internal/application/ingest"
	"sealhits/internal/application/ingest/ingesttest"
	"sealhits/internal/domain"
)

type mockEngine struct {
	requests []ingest.Request
	undone   []string
	err      error
}

func (m *mockEngine) Ingest(ctx context.Context, req ingest.Request) (*ingest.Summary, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &ingest.Summary{
		Source:  "disk1",
		DryRun:  req.DryRun,
		Model:   domain.ModelCounts{Groups: 2, Tracks: 1, Points: 5},
		Created: domain.ModelCounts{Groups: 2, Tracks: 1, Points: 5},
	}, nil
}

func (m *mockEngine) Undo(ctx context.Context, source string) (*ingest.Summary, error) {
	m.undone = append(m.undone, source)
	if m.err != nil {
		return nil, m.err
	}
	return &ingest.Summary{Source: source, Deleted: domain.ModelCounts{Groups: 2}}, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestRequestFrom(t *testing.T) {
	defaults := ingest.Request{OutputDir: "/frames", ImageLogDir: "/glf", Workers: 2, SplitBuffer: 4 * time.Second}
	r := requestFrom(callRequest(map[string]any{
		"sqlite":    "/disk1/PamGuard.sqlite3",
		"pgdf":      "/disk1/pgdf",
		"sql_alias": "old",
		"buffer":    2.5,
		"skip_glf":  true,
	}), defaults)

	if r.SessionDBPath != "/disk1/PamGuard.sqlite3" || r.DetectionLogDir != "/disk1/pgdf" {
		t.Errorf("paths not taken from arguments: %+v", r)
	}
	if r.ImageLogDir != "/glf" || r.OutputDir != "/frames" || r.Workers != 2 {
		t.Errorf("defaults not kept: %+v", r)
	}
	if r.SplitBuffer != 2500*time.Millisecond {
		t.Errorf("SplitBuffer = %v, want 2.5s", r.SplitBuffer)
	}
	if !r.SkipImageLogs || r.SourceAlias != "old" {
		t.Errorf("flags not applied: %+v", r)
	}
}

func TestIngestHandler(t *testing.T) {
	root := t.TempDir()
	session := filepath.Join(root, "PamGuard.sqlite3")
	if err := os.WriteFile(session, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	engine := &mockEngine{}
	handler := ingestHandler(engine, ingest.Request{OutputDir: root})
	res, err := handler(context.Background(), callRequest(map[string]any{
		"sqlite":   session,
		"pgdf":     root,
		"skip_glf": true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if len(engine.requests) != 1 || engine.requests[0].DryRun {
		t.Fatalf("engine requests = %+v", engine.requests)
	}
	if text := resultText(t, res); !strings.Contains(text, "groups: total=2 new=2 deleted=0") {
		t.Errorf("unexpected result %q", text)
	}
}

func TestDiffHandlerIsDryRun(t *testing.T) {
	root := t.TempDir()
	session := filepath.Join(root, "PamGuard.sqlite3")
	if err := os.WriteFile(session, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	engine := &mockEngine{}
	res, err := diffHandler(engine, ingest.Request{OutputDir: root})(context.Background(), callRequest(map[string]any{
		"sqlite": session,
		"pgdf":   root,
		"glf":    root,
	}))
	if err != nil || res.IsError {
		t.Fatalf("diff failed: %v", err)
	}
	if !engine.requests[0].DryRun {
		t.Error("diff committed")
	}
}

func TestIngestHandlerReportsValidationAsToolError(t *testing.T) {
	engine := &mockEngine{}
	res, err := ingestHandler(engine, ingest.Request{})(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler returned a protocol error: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error")
	}
	if len(engine.requests) != 0 {
		t.Error("engine called with an invalid request")
	}
}

func TestUndoHandler(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		engineErr error
		wantError bool
		wantText  string
	}{
		{name: "undo", args: map[string]any{"source": "disk1"}, wantText: "Removed disk1: 2 groups"},
		{name: "missing source", args: map[string]any{}, wantError: true, wantText: "source name is required"},
		{name: "unknown source", args: map[string]any{"source": "disk9"}, engineErr: errors.New("source \"disk9\": not found"), wantError: true, wantText: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{err: tt.engineErr}
			res, err := undoHandler(engine)(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.IsError != tt.wantError {
				t.Errorf("IsError = %v, want %v", res.IsError, tt.wantError)
			}
			if text := resultText(t, res); !strings.Contains(text, tt.wantText) {
				t.Errorf("result %q does not contain %q", text, tt.wantText)
			}
		})
	}
}

func TestListSourcesHandler(t *testing.T) {
	res, err := listSourcesHandler(ingesttest.NewMemStore())(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, res); text != "No results." {
		t.Errorf("unexpected result %q", text)
	}
}

func TestFormatSummaryListsDiagnostics(t *testing.T) {
	sum := &ingest.Summary{
		Diagnostics: []application.Diagnostic{
			{Kind: application.ErrSourceDefect, Subject: "Gemini_Tracks_9.pgdf", Message: "detection log not found"},
		},
	}
	text := formatSummary("Ingested disk1", sum)
	if !strings.Contains(text, "[warning] source defect: Gemini_Tracks_9.pgdf: detection log not found") {
		t.Errorf("diagnostic missing from %q", text)
	}
}
