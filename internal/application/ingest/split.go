package ingest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealhits/internal/application"
	"sealhits/internal/domain"
)

func sortByTime(pts []*domain.Point) {
	slices.SortStableFunc(pts, func(a, b *domain.Point) int {
		return a.Time.Compare(b.Time)
	})
}

// gapRuns cuts time-ordered points wherever two neighbours are more than
// gap apart.
func gapRuns(pts []*domain.Point, gap time.Duration) [][]*domain.Point {
	if len(pts) == 0 {
		return nil
	}
	var runs [][]*domain.Point
	start := 0
	for i := 1; i < len(pts); i++ {
		if pts[i].Time.Sub(pts[i-1].Time) > gap {
			runs = append(runs, pts[start:i])
			start = i
		}
	}
	return append(runs, pts[start:])
}

// splitGroups segments unevaluated groups at gaps wider than the split
// buffer and restores the stored segments of groups split on an earlier run.
func (r *run) splitGroups(ctx context.Context) error {
	log := r.log.Named("split")
	byGroup := r.pointsByGroup()

	var out []*domain.DetectionGroup
	for _, g := range r.groups {
		pts := byGroup[g.UID]

		if !g.Split.IsUnevaluated() {
			segs, err := r.restoreFamily(ctx, g, pts)
			if err != nil {
				return err
			}
			out = append(out, segs...)
			continue
		}

		if len(pts) == 0 {
			r.fail(application.ErrSourceDefect, groupSubject(g), "no points found on group, cannot split it", groupFields(g)...)
			r.dropGroup(g)
			continue
		}

		segs, err := r.split(ctx, g, pts)
		if err != nil {
			return err
		}
		if len(segs) > 1 {
			log.Info("Split group", append(groupFields(g), zap.Int("segments", len(segs)))...)
		}
		out = append(out, segs...)
	}

	r.groups = out
	r.rejectOversize()
	return nil
}

// rejectOversize drops every family that has a segment longer than the
// maximum group duration once times are corrected and groups are split,
// together with the family's tracks and points.
func (r *run) rejectOversize() {
	oversize := make(map[domain.FamilyKey]time.Duration)
	for _, g := range r.groups {
		if d := g.Duration(); d > r.req.MaxGroupDuration && d > oversize[g.Family()] {
			oversize[g.Family()] = d
		}
	}
	if len(oversize) == 0 {
		return
	}

	dropped := make(map[uuid.UUID]bool)
	kept := r.groups[:0]
	for _, g := range r.groups {
		d, ok := oversize[g.Family()]
		if !ok {
			kept = append(kept, g)
			continue
		}
		if g.Split.Index() == 0 {
			r.warn(application.ErrOversizeGroup, groupSubject(g),
				fmt.Sprintf("group spans %s after splitting, more than %s; skipping it and its tracks", d, r.req.MaxGroupDuration),
				append(groupFields(g), zap.Duration("duration", d))...)
		}
		dropped[g.UID] = true
		r.dropGroup(g)
	}
	r.groups = kept

	pts := r.points[:0]
	for _, p := range r.points {
		if dropped[p.GroupUID] {
			delete(r.pointSeen, p.UID)
			continue
		}
		pts = append(pts, p)
	}
	r.points = pts

	linked := make(map[uuid.UUID]bool)
	for l := range r.detectionLinks {
		linked[l.Target] = true
	}
	logs := r.logs[:0]
	for _, l := range r.logs {
		if linked[l.UID] {
			logs = append(logs, l)
		}
	}
	r.logs = logs
}

// split evaluates a group for the first time.
func (r *run) split(ctx context.Context, g *domain.DetectionGroup, pts []*domain.Point) ([]*domain.DetectionGroup, error) {
	buffer := r.req.SplitBuffer
	runs := gapRuns(pts, buffer)

	first := runs[0]
	g.Split = domain.Original()
	g.Start, g.End = first[0].Time, first[len(first)-1].Time
	segs := []*domain.DetectionGroup{g}

	for i, run := range runs[1:] {
		n := i + 1
		s, err := r.ids.successor(ctx, g.Family(), n)
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = r.ids.newGroup(g.Family(), domain.Successor(n))
		}
		s.Inherit(g)
		s.Source = g.Source
		s.Start = run[0].Time.Add(-buffer)
		s.End = run[len(run)-1].Time.Add(buffer)
		if !s.Start.Before(s.End) {
			return nil, &application.IntegrityError{
				Entity: "group",
				Key:    groupSubject(s),
				Reason: fmt.Sprintf("successor window %s..%s is empty", s.Start, s.End),
			}
		}
		segs = append(segs, s)
	}

	r.inheritLinks(g, segs[1:])
	for _, p := range pts {
		for _, s := range segs {
			if s.Contains(p.Time) {
				p.GroupUID = s.UID
				break
			}
		}
	}
	return segs, nil
}

// restoreFamily returns every stored segment of an already evaluated group
// and spreads the group's points across their windows.
func (r *run) restoreFamily(ctx context.Context, g *domain.DetectionGroup, pts []*domain.Point) ([]*domain.DetectionGroup, error) {
	segs, err := r.ids.family(ctx, g.Family())
	if err != nil {
		return nil, fmt.Errorf("failed to load segments of %s: %w", groupSubject(g), err)
	}
	if !slices.Contains(segs, g) {
		segs = append([]*domain.DetectionGroup{g}, segs...)
	}
	if len(segs) == 1 {
		return segs, nil
	}

	for _, s := range segs {
		if s == g {
			stored := r.before.Groups[g.UID]
			if stored.UID == g.UID {
				g.Start, g.End = stored.Start, stored.End
			}
			continue
		}
		s.Inherit(g)
		s.Source = g.Source
	}
	r.inheritLinks(g, segs)

	for _, p := range pts {
		if owner := firstContaining(segs, p.Time); owner != nil {
			p.GroupUID = owner.UID
			continue
		}
		near := nearest(segs, p.Time)
		if p.Time.Before(near.Start) {
			near.Start = p.Time
		} else {
			near.End = p.Time
		}
		p.GroupUID = near.UID
		r.warn(application.ErrSourceDefect, groupSubject(near), "point outside every segment, widened nearest segment",
			append(groupFields(near), zap.Time("point", p.Time))...)
	}
	return segs, nil
}

// inheritLinks gives successors the detection logs of their original.
func (r *run) inheritLinks(g *domain.DetectionGroup, successors []*domain.DetectionGroup) {
	for l := range r.detectionLinks {
		if l.Group != g.UID {
			continue
		}
		for _, s := range successors {
			if s != g {
				r.detectionLinks[domain.Link{Group: s.UID, Target: l.Target}] = struct{}{}
			}
		}
	}
}

func firstContaining(segs []*domain.DetectionGroup, t time.Time) *domain.DetectionGroup {
	for _, s := range segs {
		if s.Contains(t) {
			return s
		}
	}
	return nil
}

func nearest(segs []*domain.DetectionGroup, t time.Time) *domain.DetectionGroup {
	distance := func(s *domain.DetectionGroup) time.Duration {
		if t.Before(s.Start) {
			return s.Start.Sub(t)
		}
		return t.Sub(s.End)
	}
	return slices.MinFunc(segs, func(a, b *domain.DetectionGroup) int {
		return cmp.Compare(distance(a), distance(b))
	})
}
