package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealhits/internal/application"
	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// buildGroups turns session records into candidate groups and tracks.
func (r *run) buildGroups(ctx context.Context, session *ports.SessionData) error {
	log := r.log.Named("groups")
	seen := make(map[uuid.UUID]bool)

	for _, sg := range session.Groups {
		family := domain.FamilyKey{GID: sg.UID, SourceID: sg.ID}

		if d := sg.End.Sub(sg.Start); d > r.req.MaxGroupDuration {
			r.warn(application.ErrOversizeGroup,
				familySubject(family, r.req.SourceName),
				"group exceeds the maximum duration, skipping it and its tracks",
				zap.Int64("gid", sg.UID), zap.Int64("sqlite_id", sg.ID), zap.Duration("duration", d))
			continue
		}

		g, err := r.ids.original(ctx, family)
		if err != nil {
			return err
		}
		if g == nil {
			g = r.ids.newGroup(family, domain.Unevaluated())
			log.Debug("New group", zap.Int64("gid", sg.UID), zap.Int64("sqlite_id", sg.ID), zap.String("huid", g.HUID))
		}
		refreshGroup(g, sg, r.req.SourceName)

		var claimed int
		for _, c := range sg.Children {
			name := domain.NormalizeDetectionLogName(c.BinaryFile)
			if name == "" {
				r.warn(application.ErrSourceDefect, groupSubject(g), "child has no binary file", zap.Int64("track", c.UID))
				continue
			}
			key := domain.TrackKey{PamID: c.UID, LogName: name}
			t, fresh, err := r.ids.track(ctx, key)
			if err != nil {
				return err
			}
			switch {
			case fresh:
				t.GroupUID = g.UID
			case !r.ownedByFamily(t.GroupUID, g):
				log.Debug("Re-homing track",
					zap.Int64("track", t.PamID), zap.String("log", t.LogName),
					zap.Stringer("from", t.GroupUID), zap.Stringer("to", g.UID))
				t.GroupUID = g.UID
			}

			r.claims = append(r.claims, trackClaim{key: key, group: g.UID})
			if !seen[t.UID] {
				seen[t.UID] = true
				r.tracks = append(r.tracks, t)
			}
			claimed++
		}

		if claimed == 0 {
			r.warn(application.ErrSourceDefect, groupSubject(g), "group has no tracks, not including it", groupFields(g)...)
			continue
		}
		r.groups = append(r.groups, g)
	}

	if len(r.groups) > 0 {
		earliest, latest := r.groups[0].Start, r.groups[0].End
		for _, g := range r.groups[1:] {
			if g.Start.Before(earliest) {
				earliest = g.Start
			}
			if g.End.After(latest) {
				latest = g.End
			}
		}
		log.Info("Found groups",
			zap.Int("groups", len(r.groups)), zap.Int("tracks", len(r.tracks)),
			zap.Time("earliest", earliest), zap.Time("latest", latest))
	}
	return nil
}

// refreshGroup copies the mutable session fields onto g. Groups that have
// already been through the splitter keep their stored window.
func refreshGroup(g *domain.DetectionGroup, sg ports.SessionGroup, source string) {
	if g.Split.IsUnevaluated() {
		g.Start = sg.Start.UTC()
		g.End = sg.End.UTC()
	}
	g.Code = strings.ToLower(strings.TrimSpace(sg.TrackType))
	if g.Code == "" {
		g.Code = "none"
	}
	g.Comment = sg.Comment
	g.Mammal = sg.Mammal
	g.Fish = sg.Fish
	g.Bird = sg.Bird
	g.Interact = sg.Interact
	g.Source = source
}

// ownedByFamily reports whether owner is g or a stored segment of g's
// source group.
func (r *run) ownedByFamily(owner uuid.UUID, g *domain.DetectionGroup) bool {
	if owner == g.UID {
		return true
	}
	stored, ok := r.before.Groups[owner]
	return ok && stored.Family() == g.Family()
}

func familySubject(f domain.FamilyKey, source string) string {
	return fmt.Sprintf("group %d/%d (%s)", f.GID, f.SourceID, source)
}
