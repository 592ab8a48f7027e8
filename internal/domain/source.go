package domain

import "time"

// SourceSummary describes what one ingested session database contributed.
type SourceSummary struct {
	Name   string
	Groups int
	Tracks int
	Points int
	Frames int
	Start  time.Time
	End    time.Time
}
