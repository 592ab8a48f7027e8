package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// groupSlot identifies one segment of a source group independent of the
// source name it is currently stored under.
type groupSlot struct {
	family domain.FamilyKey
	split  int
}

// resolver maps natural keys onto entities. Every lookup consults the
// entities of this run first, then the store, and only then mints a new UID.
type resolver struct {
	tx    ports.StoreTx
	names []string

	groups        map[groupSlot]*domain.DetectionGroup
	tracks        map[domain.TrackKey]*domain.Track
	points        map[domain.PointKey]*domain.Point
	loaded        map[uuid.UUID]bool // tracks whose stored points are indexed
	detectionLogs map[string]*domain.DetectionLog
	imageLogs     map[string]*domain.ImageLog

	created domain.ModelCounts
}

func newResolver(tx ports.StoreTx, names []string) *resolver {
	return &resolver{
		tx:            tx,
		names:         names,
		groups:        make(map[groupSlot]*domain.DetectionGroup),
		tracks:        make(map[domain.TrackKey]*domain.Track),
		points:        make(map[domain.PointKey]*domain.Point),
		loaded:        make(map[uuid.UUID]bool),
		detectionLogs: make(map[string]*domain.DetectionLog),
		imageLogs:     make(map[string]*domain.ImageLog),
	}
}

// original returns the unsplit or original segment of a source group, or nil.
func (r *resolver) original(ctx context.Context, family domain.FamilyKey) (*domain.DetectionGroup, error) {
	for _, split := range []int{0, -1} {
		if g, ok := r.groups[groupSlot{family, split}]; ok {
			return g, nil
		}
	}
	for _, name := range r.names {
		g, err := r.tx.FindGroup(ctx, ports.GroupLookup{GID: family.GID, SourceID: family.SourceID, Source: name})
		if err != nil {
			return nil, fmt.Errorf("failed to look up group %d/%d: %w", family.GID, family.SourceID, err)
		}
		if g != nil {
			r.remember(g)
			return g, nil
		}
	}
	return nil, nil
}

// successor returns the n-th split successor of a source group, or nil.
func (r *resolver) successor(ctx context.Context, family domain.FamilyKey, n int) (*domain.DetectionGroup, error) {
	if g, ok := r.groups[groupSlot{family, n}]; ok {
		return g, nil
	}
	for _, name := range r.names {
		key := domain.GroupKey{GID: family.GID, SourceID: family.SourceID, Split: n, Source: name}
		g, err := r.tx.FindGroupByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to look up successor %d of group %d/%d: %w", n, family.GID, family.SourceID, err)
		}
		if g != nil {
			r.remember(g)
			return g, nil
		}
	}
	return nil, nil
}

// family returns the stored segments of a source group in split order.
func (r *resolver) family(ctx context.Context, family domain.FamilyKey) ([]*domain.DetectionGroup, error) {
	for _, name := range r.names {
		stored, err := r.tx.GroupFamily(ctx, family, name)
		if err != nil {
			return nil, err
		}
		if len(stored) == 0 {
			continue
		}
		segs := make([]*domain.DetectionGroup, 0, len(stored))
		for i := range stored {
			if g, ok := r.groups[groupSlot{family, stored[i].Split.Index()}]; ok && g.UID == stored[i].UID {
				segs = append(segs, g)
				continue
			}
			g := stored[i]
			r.remember(&g)
			segs = append(segs, &g)
		}
		return segs, nil
	}
	return nil, nil
}

func (r *resolver) remember(g *domain.DetectionGroup) {
	r.groups[groupSlot{g.Family(), g.Split.Index()}] = g
}

// newGroup mints a group with a fresh UID and label.
func (r *resolver) newGroup(family domain.FamilyKey, split domain.SplitState) *domain.DetectionGroup {
	uid := uuid.New()
	g := &domain.DetectionGroup{
		UID:      uid,
		GID:      family.GID,
		SourceID: family.SourceID,
		Split:    split,
		HUID:     domain.HumanLabel(uid),
	}
	r.remember(g)
	r.created.Groups++
	return g
}

// track resolves a track by natural key. fresh reports whether it was minted.
func (r *resolver) track(ctx context.Context, key domain.TrackKey) (t *domain.Track, fresh bool, err error) {
	if t, ok := r.tracks[key]; ok {
		return t, false, nil
	}
	t, err = r.tx.FindTrack(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up track %d in %s: %w", key.PamID, key.LogName, err)
	}
	if t == nil {
		t = &domain.Track{UID: uuid.New(), PamID: key.PamID, LogName: key.LogName}
		fresh = true
		r.created.Tracks++
	}
	r.tracks[key] = t
	return t, fresh, nil
}

// point resolves a sample by natural key. A match keeps its UID and takes
// the refreshable fields of sample.
func (r *resolver) point(ctx context.Context, sample domain.Point) (*domain.Point, error) {
	if !r.loaded[sample.TrackUID] {
		stored, err := r.tx.PointsByTrack(ctx, sample.TrackUID)
		if err != nil {
			return nil, err
		}
		for i := range stored {
			p := stored[i]
			r.points[p.Key()] = &p
		}
		r.loaded[sample.TrackUID] = true
	}

	key := sample.Key()
	if p, ok := r.points[key]; ok {
		p.PeakRange = sample.PeakRange
		return p, nil
	}
	p := sample
	p.UID = uuid.New()
	r.points[key] = &p
	r.created.Points++
	return &p, nil
}

func (r *resolver) detectionLog(ctx context.Context, filename string) (*domain.DetectionLog, error) {
	if l, ok := r.detectionLogs[filename]; ok {
		return l, nil
	}
	l, err := r.tx.FindDetectionLog(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to look up detection log %s: %w", filename, err)
	}
	if l == nil {
		l = &domain.DetectionLog{UID: uuid.New(), Filename: filename}
		r.created.DetectionLogs++
	}
	r.detectionLogs[filename] = l
	return l, nil
}

// imageLog resolves an image log by filename. stored reports whether the
// store already knew it, in which case its time range can be trusted.
func (r *resolver) imageLog(ctx context.Context, filename string) (l *domain.ImageLog, stored bool, err error) {
	if l, ok := r.imageLogs[filename]; ok {
		return l, true, nil
	}
	l, err = r.tx.FindImageLog(ctx, filename)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up image log %s: %w", filename, err)
	}
	if l != nil {
		r.imageLogs[filename] = l
		return l, true, nil
	}
	return &domain.ImageLog{UID: uuid.New(), Filename: filename}, false, nil
}

// keepImageLog registers an image log that survived parsing.
func (r *resolver) keepImageLog(l *domain.ImageLog, fresh bool) {
	r.imageLogs[l.Filename] = l
	if fresh {
		r.created.ImageLogs++
	}
}
