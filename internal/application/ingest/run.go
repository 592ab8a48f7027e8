package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealhits/internal/application"
	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// run holds the state of one ingest inside its transaction.
type run struct {
	req   Request
	tx    ports.StoreTx
	ids   *resolver
	diags *application.Diagnostics
	log   *zap.Logger

	before *domain.Model

	groups    []*domain.DetectionGroup
	tracks    []*domain.Track
	claims    []trackClaim
	points    []*domain.Point
	pointSeen map[uuid.UUID]bool
	logs      []*domain.DetectionLog

	detectionLinks map[domain.Link]struct{}

	images *imageResult
}

// trackClaim records that a session group listed a track as its child.
type trackClaim struct {
	key   domain.TrackKey
	group uuid.UUID
}

func newRun(req Request, tx ports.StoreTx, log *zap.Logger) *run {
	return &run{
		req:            req,
		tx:             tx,
		ids:            newResolver(tx, req.lookupNames()),
		diags:          &application.Diagnostics{},
		log:            log,
		pointSeen:      make(map[uuid.UUID]bool),
		detectionLinks: make(map[domain.Link]struct{}),
	}
}

// snapshot loads the persisted model under every lookup name.
func (r *run) snapshot(ctx context.Context) error {
	r.before = domain.NewModel()
	for _, name := range r.ids.names {
		m, err := r.tx.Snapshot(ctx, name)
		if err != nil {
			return err
		}
		r.before.Merge(m)
	}
	r.log.Info("Loaded persisted model",
		zap.Strings("sources", r.ids.names),
		zap.Int("groups", len(r.before.Groups)),
		zap.Int("points", len(r.before.Points)))
	return nil
}

// groupIndex maps the UIDs of the current candidate groups onto them.
func (r *run) groupIndex() map[uuid.UUID]*domain.DetectionGroup {
	idx := make(map[uuid.UUID]*domain.DetectionGroup, len(r.groups))
	for _, g := range r.groups {
		idx[g.UID] = g
	}
	return idx
}

func (r *run) addPoint(p *domain.Point) {
	if r.pointSeen[p.UID] {
		return
	}
	r.pointSeen[p.UID] = true
	r.points = append(r.points, p)
}

// dropGroup removes a candidate group and the tracks and links it owns.
func (r *run) dropGroup(g *domain.DetectionGroup) {
	kept := r.tracks[:0]
	for _, t := range r.tracks {
		if t.GroupUID != g.UID {
			kept = append(kept, t)
		}
	}
	r.tracks = kept
	for l := range r.detectionLinks {
		if l.Group == g.UID {
			delete(r.detectionLinks, l)
		}
	}
}

// warn records a non-fatal diagnostic and logs it with its natural key.
func (r *run) warn(kind error, subject, msg string, fields ...zap.Field) {
	r.diags.Warn(kind, subject, "%s", msg)
	r.log.Warn(msg, append(fields, zap.String("subject", subject), zap.String("kind", kind.Error()))...)
}

// fail records an error-level diagnostic; the run continues.
func (r *run) fail(kind error, subject, msg string, fields ...zap.Field) {
	r.diags.Fail(kind, subject, "%s", msg)
	r.log.Error(msg, append(fields, zap.String("subject", subject), zap.String("kind", kind.Error()))...)
}

func groupSubject(g *domain.DetectionGroup) string {
	return fmt.Sprintf("group %d/%d (%s, %s)", g.GID, g.SourceID, g.Split, g.HUID)
}

func groupFields(g *domain.DetectionGroup) []zap.Field {
	return []zap.Field{
		zap.Int64("gid", g.GID),
		zap.Int64("sqlite_id", g.SourceID),
		zap.Int("split", g.Split.Index()),
		zap.String("source", g.Source),
		zap.String("huid", g.HUID),
	}
}

// model assembles the after-model from the run's entities.
func (r *run) model() *domain.Model {
	m := domain.NewModel()
	for _, g := range r.groups {
		m.AddGroup(*g)
	}
	for _, t := range r.tracks {
		m.AddTrack(*t)
	}
	for _, p := range r.points {
		m.AddPoint(*p)
	}
	for _, l := range r.logs {
		m.AddDetectionLog(*l)
	}
	for l := range r.detectionLinks {
		m.DetectionLogLinks[l] = struct{}{}
	}
	if r.images != nil {
		r.images.addTo(m)
	}
	return m
}

// checkClosure verifies that every track and point belongs to a final group
// and that every point lies inside its group's window.
func (r *run) checkClosure() error {
	byUID := r.groupIndex()
	if orphans := r.orphanTracks(byUID); len(orphans) > 0 {
		return &application.TransactionError{Op: "closure check", OrphanTracks: orphans}
	}
	for _, p := range r.points {
		g, ok := byUID[p.GroupUID]
		if !ok {
			return &application.IntegrityError{Entity: "point", Key: p.UID.String(), Reason: "owning group is not in the final group set"}
		}
		if !g.Contains(p.Time) {
			return &application.IntegrityError{
				Entity: "point",
				Key:    p.UID.String(),
				Reason: fmt.Sprintf("time %s outside %s window", p.Time.Format("15:04:05.000"), groupSubject(g)),
			}
		}
	}
	return nil
}

// orphanTracks lists tracks whose owner is not among groups.
func (r *run) orphanTracks(groups map[uuid.UUID]*domain.DetectionGroup) []string {
	var orphans []string
	for _, t := range r.tracks {
		if _, ok := groups[t.GroupUID]; !ok {
			orphans = append(orphans, fmt.Sprintf("%d@%s", t.PamID, t.LogName))
		}
	}
	return orphans
}
