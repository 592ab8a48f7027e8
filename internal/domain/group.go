package domain

import (
	"time"

	"github.com/google/uuid"
)

// DetectionGroup is an annotated time window from a session database,
// possibly one segment of a split.
type DetectionGroup struct {
	UID      uuid.UUID
	GID      int64 // group UID inside the session database
	SourceID int64 // row id inside the session database
	Split    SplitState
	Source   string // session database name the group was last ingested from
	HUID     string // human-readable label
	Start    time.Time
	End      time.Time
	Code     string
	Comment  string
	Mammal   int
	Fish     int
	Bird     int
	Interact bool
}

// GroupKey is the natural key of a detection group.
type GroupKey struct {
	GID      int64
	SourceID int64
	Split    int
	Source   string
}

// FamilyKey identifies an original and all of its successors.
type FamilyKey struct {
	GID      int64
	SourceID int64
}

// Key returns the group's natural key.
func (g *DetectionGroup) Key() GroupKey {
	return GroupKey{GID: g.GID, SourceID: g.SourceID, Split: g.Split.Index(), Source: g.Source}
}

// Family returns the key shared by every segment of the same source group.
func (g *DetectionGroup) Family() FamilyKey {
	return FamilyKey{GID: g.GID, SourceID: g.SourceID}
}

// Duration returns the length of the group's window.
func (g *DetectionGroup) Duration() time.Duration {
	return g.End.Sub(g.Start)
}

// Contains reports whether t lies inside the closed window [Start, End].
func (g *DetectionGroup) Contains(t time.Time) bool {
	return !t.Before(g.Start) && !t.After(g.End)
}

// Overlaps reports whether [start, end] intersects the group's window.
func (g *DetectionGroup) Overlaps(start, end time.Time) bool {
	return !g.Start.After(end) && !g.End.Before(start)
}

// Inherit copies the annotation fields of src onto g.
func (g *DetectionGroup) Inherit(src *DetectionGroup) {
	g.Code = src.Code
	g.Comment = src.Comment
	g.Mammal = src.Mammal
	g.Fish = src.Fish
	g.Bird = src.Bird
	g.Interact = src.Interact
}
