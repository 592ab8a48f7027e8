package views

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"sealhits/internal/application"
	"sealhits/internal/application/ingest"
	"sealhits/internal/domain"
)

func TestRenderSummary(t *testing.T) {
	start := time.Date(2023, 5, 1, 10, 0, 10, 0, time.UTC)
	sum := &ingest.Summary{
		Source:   "new.sqlite3",
		Lookup:   "old.sqlite3",
		DryRun:   true,
		Model:    domain.ModelCounts{Groups: 2, Tracks: 1, Points: 5, Frames: 2},
		Created:  domain.ModelCounts{Groups: 2, Points: 5},
		Deleted:  domain.ModelCounts{Frames: 1},
		Earliest: start,
		Latest:   start.Add(13 * time.Second),
		Diagnostics: []application.Diagnostic{
			{Kind: application.ErrOversizeGroup, Severity: application.SeverityWarning, Subject: "group 8/4 (disk1)", Message: "too long"},
		},
	}

	out := RenderSummary("Ingest", sum)

	tests := []struct {
		name string
		want string
	}{
		{"title", "Ingest"},
		{"alias", "matched as old.sqlite3"},
		{"span", "2023-05-01 10:00:10 to 2023-05-01 10:00:23"},
		{"dry run banner", "Dry run"},
		{"created groups", "+2"},
		{"deleted frames", "-1"},
		{"diagnostic", "[warning] oversize group group 8/4 (disk1): too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(out, tt.want) {
				t.Errorf("summary missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestRenderSummaryTruncatesDiagnostics(t *testing.T) {
	sum := &ingest.Summary{Source: "disk1"}
	for i := 0; i < maxDiagnostics+5; i++ {
		sum.Diagnostics = append(sum.Diagnostics, application.Diagnostic{
			Kind:    application.ErrSourceDefect,
			Subject: fmt.Sprintf("Gemini_Tracks_%d.pgdf", i),
			Message: "detection log not found",
		})
	}

	out := RenderSummary("Ingest", sum)
	if !strings.Contains(out, "... 5 more, see the log file") {
		t.Errorf("expected truncation note:\n%s", out)
	}
	if strings.Contains(out, fmt.Sprintf("Gemini_Tracks_%d.pgdf", maxDiagnostics)) {
		t.Errorf("diagnostic past the limit was printed")
	}
	if strings.Contains(out, "Dry run") {
		t.Errorf("committed run rendered as dry run")
	}
}

func TestRenderSources(t *testing.T) {
	if out := RenderSources(nil); !strings.Contains(out, "none") {
		t.Errorf("empty source list rendered as %q", out)
	}

	start := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	out := RenderSources([]domain.SourceSummary{
		{Name: "disk1", Groups: 3, Tracks: 4, Points: 120, Frames: 17, Start: start, End: start.Add(time.Hour)},
	})
	for _, want := range []string{"disk1", "120", "17", "2023-05-01 11:00:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("sources missing %q:\n%s", want, out)
		}
	}
}
