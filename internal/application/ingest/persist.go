package ingest

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// persist upserts the final groups, tracks, detection logs, points and
// detection-log links.
func (r *run) persist(ctx context.Context) error {
	for _, g := range r.groups {
		if err := r.tx.UpsertGroup(ctx, g); err != nil {
			return err
		}
	}
	for _, l := range r.logs {
		if err := r.tx.UpsertDetectionLog(ctx, l); err != nil {
			return err
		}
	}
	for _, t := range r.tracks {
		if err := r.tx.UpsertTrack(ctx, t); err != nil {
			return err
		}
	}
	for _, p := range r.points {
		if err := r.tx.UpsertPoint(ctx, p); err != nil {
			return err
		}
	}
	for l := range r.detectionLinks {
		if err := r.tx.Link(ctx, ports.LinkDetectionLog, l); err != nil {
			return err
		}
	}
	r.log.Debug("Upserted model",
		zap.Int("groups", len(r.groups)), zap.Int("tracks", len(r.tracks)), zap.Int("points", len(r.points)))
	return nil
}

// prune deletes the stale entities in dependency order: points and tracks,
// then frames and logs no other group references, then groups. It returns
// what was removed.
func prune(ctx context.Context, tx ports.StoreTx, stale *domain.Model, log *zap.Logger) (domain.ModelCounts, error) {
	var deleted domain.ModelCounts
	if err := pruneDetections(ctx, tx, stale, &deleted); err != nil {
		return deleted, err
	}
	err := pruneShared(ctx, tx, stale, &deleted, log)
	return deleted, err
}

// pruneDetections deletes stale points and tracks. Ingest runs it before
// image association so frames are not marked as detections by points the
// run is removing.
func pruneDetections(ctx context.Context, tx ports.StoreTx, stale *domain.Model, deleted *domain.ModelCounts) error {
	for uid := range stale.Points {
		if err := tx.DeletePoint(ctx, uid); err != nil {
			return err
		}
		deleted.Points++
	}
	for uid := range stale.Tracks {
		if err := tx.DeleteTrack(ctx, uid); err != nil {
			return err
		}
		deleted.Tracks++
	}
	return nil
}

// pruneShared unlinks stale links, deletes the frames and logs nothing
// references any more and then the stale groups.
func pruneShared(ctx context.Context, tx ports.StoreTx, stale *domain.Model, deleted *domain.ModelCounts, log *zap.Logger) error {
	shared := []struct {
		kind    ports.LinkKind
		links   map[domain.Link]struct{}
		targets map[uuid.UUID]string
		remove  func(context.Context, uuid.UUID) error
		count   *int
	}{
		{ports.LinkFrame, stale.FrameLinks, frameNames(stale), tx.DeleteFrame, &deleted.Frames},
		{ports.LinkImageLog, stale.ImageLogLinks, imageLogNames(stale), tx.DeleteImageLog, &deleted.ImageLogs},
		{ports.LinkDetectionLog, stale.DetectionLogLinks, detectionLogNames(stale), tx.DeleteDetectionLog, &deleted.DetectionLogs},
	}
	for _, s := range shared {
		for l := range s.links {
			if err := tx.Unlink(ctx, s.kind, l); err != nil {
				return err
			}
		}
		for uid, name := range s.targets {
			refs, err := tx.Refs(ctx, s.kind, uid)
			if err != nil {
				return err
			}
			if refs > 0 {
				log.Debug("Keeping "+s.kind.String()+" still linked to other groups", zap.String("name", name), zap.Int("refs", refs))
				continue
			}
			if err := s.remove(ctx, uid); err != nil {
				return err
			}
			*s.count++
		}
	}

	for uid := range stale.Groups {
		if err := tx.DeleteGroup(ctx, uid); err != nil {
			return err
		}
		deleted.Groups++
	}
	return nil
}

func frameNames(m *domain.Model) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(m.Frames))
	for uid, f := range m.Frames {
		names[uid] = f.Filename
	}
	return names
}

func imageLogNames(m *domain.Model) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(m.ImageLogs))
	for uid, l := range m.ImageLogs {
		names[uid] = l.Filename
	}
	return names
}

func detectionLogNames(m *domain.Model) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(m.DetectionLogs))
	for uid, l := range m.DetectionLogs {
		names[uid] = l.Filename
	}
	return names
}
