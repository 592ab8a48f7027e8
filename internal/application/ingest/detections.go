package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealhits/internal/application"
	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// associateDetections reads the detection logs referenced by the candidate
// tracks and resolves their points.
func (r *run) associateDetections(ctx context.Context, locator ports.LogLocator, reader ports.DetectionLogReader) error {
	log := r.log.Named("detections")

	var names []string
	wanted := make(map[string]bool)
	for _, t := range r.tracks {
		if !wanted[t.LogName] {
			wanted[t.LogName] = true
			names = append(names, t.LogName)
		}
	}

	found, missing, err := locator.DetectionLogs(r.req.DetectionLogDir, names)
	if err != nil {
		return fmt.Errorf("failed to locate detection logs: %w", err)
	}
	for _, name := range missing {
		r.warn(application.ErrSourceDefect, name, "detection log not found", zap.String("dir", r.req.DetectionLogDir))
	}

	owners := r.groupIndex()
	for _, name := range names {
		path, ok := found[name]
		if !ok {
			continue
		}
		if err := r.readDetectionLog(ctx, reader, name, path, owners, log); err != nil {
			return err
		}
	}

	log.Info("Associated detection logs", zap.Int("logs", len(r.logs)), zap.Int("points", len(r.points)))
	return nil
}

func (r *run) readDetectionLog(ctx context.Context, reader ports.DetectionLogReader, name, path string,
	owners map[uuid.UUID]*domain.DetectionGroup, log *zap.Logger) error {
	byPamID, err := r.trackLookup(name)
	if err != nil {
		return err
	}

	data, err := reader.ReadDetectionLog(ctx, path)
	if errors.Is(err, application.ErrSourceDefect) {
		r.warn(application.ErrSourceDefect, name, err.Error())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read detection log %s: %w", name, err)
	}

	dl, err := r.ids.detectionLog(ctx, name)
	if err != nil {
		return err
	}
	dl.Start, dl.End = data.Start.UTC(), data.End.UTC()
	r.logs = append(r.logs, dl)

	var skipped int
	reported := make(map[uuid.UUID]bool)
	for _, rec := range data.Records {
		t, ok := byPamID[rec.TrackID]
		if !ok {
			skipped++
			continue
		}
		owner, ok := owners[t.GroupUID]
		if !ok {
			if !reported[t.UID] {
				reported[t.UID] = true
				r.fail(application.ErrSourceDefect, name, "track owner is not a candidate group, skipping its detections",
					zap.Int64("track", t.PamID), zap.Stringer("group", t.GroupUID))
			}
			continue
		}

		r.detectionLinks[domain.Link{Group: owner.UID, Target: dl.UID}] = struct{}{}

		p, err := r.ids.point(ctx, pointFromRecord(rec, t.UID))
		if err != nil {
			return fmt.Errorf("failed to resolve point of track %d in %s: %w", t.PamID, name, err)
		}
		p.GroupUID = owner.UID
		r.addPoint(p)
	}

	if skipped > 0 {
		log.Debug("Skipped detections of tracks outside this source", zap.String("log", name), zap.Int("records", skipped))
	}
	return nil
}

// trackLookup maps source-local track ids onto the tracks of one detection
// log. The same id claimed by two groups is an integrity violation.
func (r *run) trackLookup(name string) (map[int64]*domain.Track, error) {
	claimedBy := make(map[int64]uuid.UUID)
	for _, c := range r.claims {
		if c.key.LogName != name {
			continue
		}
		if prev, ok := claimedBy[c.key.PamID]; ok && prev != c.group {
			return nil, &application.IntegrityError{
				Entity: "track",
				Key:    fmt.Sprintf("%d@%s", c.key.PamID, name),
				Reason: "listed by more than one group",
			}
		}
		claimedBy[c.key.PamID] = c.group
	}

	byPamID := make(map[int64]*domain.Track)
	for _, t := range r.tracks {
		if t.LogName == name {
			byPamID[t.PamID] = t
		}
	}
	return byPamID, nil
}

func pointFromRecord(rec ports.DetectionRecord, track uuid.UUID) domain.Point {
	return domain.Point{
		Time:        rec.Time.UTC(),
		SensorID:    rec.SensorID,
		MinBearing:  rec.MinBearing,
		MaxBearing:  rec.MaxBearing,
		MinRange:    rec.MinRange,
		MaxRange:    rec.MaxRange,
		PeakBearing: rec.PeakBearing,
		PeakRange:   rec.PeakRange,
		Intensity:   rec.Intensity,
		Occupancy:   rec.Occupancy,
		ObjSize:     rec.ObjSize,
		TrackUID:    track,
	}
}
