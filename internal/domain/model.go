package domain

import (
	"github.com/google/uuid"
)

// Link is one group to log (or frame) association.
type Link struct {
	Group  uuid.UUID
	Target uuid.UUID
}

// Model is the full set of entities reachable from one source, keyed by UID.
type Model struct {
	Groups        map[uuid.UUID]DetectionGroup
	Tracks        map[uuid.UUID]Track
	Points        map[uuid.UUID]Point
	DetectionLogs map[uuid.UUID]DetectionLog
	ImageLogs     map[uuid.UUID]ImageLog
	Frames        map[uuid.UUID]Frame

	DetectionLogLinks map[Link]struct{}
	ImageLogLinks     map[Link]struct{}
	FrameLinks        map[Link]struct{}
}

// ModelCounts summarises a model.
type ModelCounts struct {
	Groups        int
	Tracks        int
	Points        int
	DetectionLogs int
	ImageLogs     int
	Frames        int
}

// Total returns the number of entities across all collections.
func (c ModelCounts) Total() int {
	return c.Groups + c.Tracks + c.Points + c.DetectionLogs + c.ImageLogs + c.Frames
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Groups:            make(map[uuid.UUID]DetectionGroup),
		Tracks:            make(map[uuid.UUID]Track),
		Points:            make(map[uuid.UUID]Point),
		DetectionLogs:     make(map[uuid.UUID]DetectionLog),
		ImageLogs:         make(map[uuid.UUID]ImageLog),
		Frames:            make(map[uuid.UUID]Frame),
		DetectionLogLinks: make(map[Link]struct{}),
		ImageLogLinks:     make(map[Link]struct{}),
		FrameLinks:        make(map[Link]struct{}),
	}
}

func (m *Model) AddGroup(g DetectionGroup)      { m.Groups[g.UID] = g }
func (m *Model) AddTrack(t Track)               { m.Tracks[t.UID] = t }
func (m *Model) AddPoint(p Point)               { m.Points[p.UID] = p }
func (m *Model) AddDetectionLog(l DetectionLog) { m.DetectionLogs[l.UID] = l }
func (m *Model) AddImageLog(l ImageLog)         { m.ImageLogs[l.UID] = l }
func (m *Model) AddFrame(f Frame)               { m.Frames[f.UID] = f }
func (m *Model) LinkDetectionLog(group, log uuid.UUID) {
	m.DetectionLogLinks[Link{group, log}] = struct{}{}
}
func (m *Model) LinkImageLog(group, log uuid.UUID) { m.ImageLogLinks[Link{group, log}] = struct{}{} }
func (m *Model) LinkFrame(group, frame uuid.UUID)  { m.FrameLinks[Link{group, frame}] = struct{}{} }

// Counts returns the size of each collection.
func (m *Model) Counts() ModelCounts {
	return ModelCounts{
		Groups:        len(m.Groups),
		Tracks:        len(m.Tracks),
		Points:        len(m.Points),
		DetectionLogs: len(m.DetectionLogs),
		ImageLogs:     len(m.ImageLogs),
		Frames:        len(m.Frames),
	}
}

// Empty reports whether the model holds no entities.
func (m *Model) Empty() bool {
	return m.Counts().Total() == 0
}

// Diff returns the entities of before whose UID is absent from after.
// Each collection is compared independently. The links of before that
// after no longer holds are carried too, so callers can unlink them before
// deleting logs and frames.
func Diff(before, after *Model) *Model {
	stale := NewModel()
	for uid, g := range before.Groups {
		if _, ok := after.Groups[uid]; !ok {
			stale.AddGroup(g)
		}
	}
	for uid, t := range before.Tracks {
		if _, ok := after.Tracks[uid]; !ok {
			stale.AddTrack(t)
		}
	}
	for uid, p := range before.Points {
		if _, ok := after.Points[uid]; !ok {
			stale.AddPoint(p)
		}
	}
	for uid, l := range before.DetectionLogs {
		if _, ok := after.DetectionLogs[uid]; !ok {
			stale.AddDetectionLog(l)
		}
	}
	for uid, l := range before.ImageLogs {
		if _, ok := after.ImageLogs[uid]; !ok {
			stale.AddImageLog(l)
		}
	}
	for uid, f := range before.Frames {
		if _, ok := after.Frames[uid]; !ok {
			stale.AddFrame(f)
		}
	}

	staleLinks(before.DetectionLogLinks, after.DetectionLogLinks, stale.DetectionLogLinks)
	staleLinks(before.ImageLogLinks, after.ImageLogLinks, stale.ImageLogLinks)
	staleLinks(before.FrameLinks, after.FrameLinks, stale.FrameLinks)
	return stale
}

func staleLinks(before, after, into map[Link]struct{}) {
	for l := range before {
		if _, ok := after[l]; !ok {
			into[l] = struct{}{}
		}
	}
}

// Merge adds every entity and link of other to m.
func (m *Model) Merge(other *Model) {
	for _, g := range other.Groups {
		m.AddGroup(g)
	}
	for _, t := range other.Tracks {
		m.AddTrack(t)
	}
	for _, p := range other.Points {
		m.AddPoint(p)
	}
	for _, l := range other.DetectionLogs {
		m.AddDetectionLog(l)
	}
	for _, l := range other.ImageLogs {
		m.AddImageLog(l)
	}
	for _, f := range other.Frames {
		m.AddFrame(f)
	}
	for l := range other.DetectionLogLinks {
		m.DetectionLogLinks[l] = struct{}{}
	}
	for l := range other.ImageLogLinks {
		m.ImageLogLinks[l] = struct{}{}
	}
	for l := range other.FrameLinks {
		m.FrameLinks[l] = struct{}{}
	}
}
