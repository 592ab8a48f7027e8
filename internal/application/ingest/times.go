package ingest

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealhits/internal/application"
	"sealhits/internal/domain"
)

// correctTimes sets each candidate group's window to the span of the points
// it owns. Session times are not reliable.
func (r *run) correctTimes() {
	byGroup := r.pointsByGroup()
	var corrected int
	for _, g := range r.groups {
		pts := byGroup[g.UID]
		if len(pts) == 0 {
			r.warn(application.ErrSourceDefect, groupSubject(g), "group has no points, window left unchanged", groupFields(g)...)
			continue
		}
		start, end := pts[0].Time, pts[len(pts)-1].Time
		if !start.Equal(g.Start) || !end.Equal(g.End) {
			corrected++
		}
		g.Start, g.End = start, end
	}
	r.log.Named("times").Info("Corrected group times", zap.Int("groups", len(r.groups)), zap.Int("changed", corrected))
}

// pointsByGroup buckets the run's points by owner, each bucket in time order.
func (r *run) pointsByGroup() map[uuid.UUID][]*domain.Point {
	byGroup := make(map[uuid.UUID][]*domain.Point)
	for _, p := range r.points {
		byGroup[p.GroupUID] = append(byGroup[p.GroupUID], p)
	}
	for _, pts := range byGroup {
		sortByTime(pts)
	}
	return byGroup
}
