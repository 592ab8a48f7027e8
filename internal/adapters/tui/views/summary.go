package views

import (
	"fmt"
	"strconv"
	"time"

	"sealhits/internal/adapters/tui/styles"
	"sealhits/internal/application"
	"sealhits/internal/application/ingest"
	"sealhits/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// maxDiagnostics bounds how many diagnostics a summary prints; the rest are
// in the log file.
const maxDiagnostics = 20

type countRow struct {
	label   string
	total   int
	created int
	gone    int
}

func countRows(sum *ingest.Summary) []countRow {
	m, c, d := sum.Model, sum.Created, sum.Deleted
	return []countRow{
		{"groups", m.Groups, c.Groups, d.Groups},
		{"tracks", m.Tracks, c.Tracks, d.Tracks},
		{"points", m.Points, c.Points, d.Points},
		{"detection logs", m.DetectionLogs, c.DetectionLogs, d.DetectionLogs},
		{"image logs", m.ImageLogs, c.ImageLogs, d.ImageLogs},
		{"frames", m.Frames, c.Frames, d.Frames},
	}
}

// RenderSummary renders an ingest or undo summary as a count table
// followed by the run's diagnostics.
func RenderSummary(title string, sum *ingest.Summary) string {
	v := NewViewBuilder().Title(title)

	sub := "source " + sum.Source
	if sum.Lookup != "" && sum.Lookup != sum.Source {
		sub += " (matched as " + sum.Lookup + ")"
	}
	if !sum.Earliest.IsZero() {
		sub += fmt.Sprintf(", %s to %s", sum.Earliest.UTC().Format(timeLayout), sum.Latest.UTC().Format(timeLayout))
	}
	v.Subtitle(sub)

	if sum.DryRun {
		v.Line(styles.DryRun.Render("Dry run: nothing was committed")).BlankLine()
	}

	v.Line(styles.Label.Render("") + styles.Count.Render("total") + styles.Count.Render("new") + styles.Count.Render("deleted"))
	for _, r := range countRows(sum) {
		v.Line(styles.Label.Render(r.label) +
			styles.Count.Render(strconv.Itoa(r.total)) +
			styles.Created.Render(signed("+", r.created)) +
			styles.Deleted.Render(signed("-", r.gone)))
	}

	if n := len(sum.Diagnostics); n > 0 {
		v.BlankLine().Line(styles.Header.Render(fmt.Sprintf("%d diagnostics", n)))
		for i, d := range sum.Diagnostics {
			if i == maxDiagnostics {
				v.Muted(fmt.Sprintf("... %d more, see the log file", n-maxDiagnostics))
				break
			}
			v.Line(renderDiagnostic(d))
		}
	}

	if sum.Elapsed > 0 {
		v.BlankLine().Muted("took " + sum.Elapsed.Round(time.Millisecond).String())
	}
	return v.String()
}

func signed(sign string, n int) string {
	if n == 0 {
		return "0"
	}
	return sign + strconv.Itoa(n)
}

func renderDiagnostic(d application.Diagnostic) string {
	style := styles.DiagWarning
	if d.Severity == application.SeverityError {
		style = styles.DiagError
	}
	return style.Render(fmt.Sprintf("[%s] %s", d.Severity, d.Kind)) + " " + d.Subject + ": " + d.Message
}

// RenderSources renders the ingested sources, one line each.
func RenderSources(sources []domain.SourceSummary) string {
	v := NewViewBuilder().Title("Ingested sources")
	if len(sources) == 0 {
		return v.Muted("none").String()
	}

	v.Line(styles.Label.Width(32).Render("source") +
		styles.Count.Render("groups") + styles.Count.Render("tracks") +
		styles.Count.Render("points") + styles.Count.Render("frames") + "  span")
	for _, s := range sources {
		v.Line(styles.Label.Width(32).Render(s.Name) +
			styles.Count.Render(strconv.Itoa(s.Groups)) +
			styles.Count.Render(strconv.Itoa(s.Tracks)) +
			styles.Count.Render(strconv.Itoa(s.Points)) +
			styles.Count.Render(strconv.Itoa(s.Frames)) + "  " +
			RenderMuted(s.Start.UTC().Format(timeLayout)+" to "+s.End.UTC().Format(timeLayout)))
	}
	return v.String()
}
