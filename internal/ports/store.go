package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sealhits/internal/domain"
)

// Store provides transactional access to the persisted model.
type Store interface {
	Begin(ctx context.Context) (StoreTx, error)
	ListSources(ctx context.Context) ([]domain.SourceSummary, error)
	Close() error
}

// GroupLookup finds an unsplit or original group regardless of its
// current source name.
type GroupLookup struct {
	GID      int64
	SourceID int64
	Source   string
}

// StoreTx is one all-or-nothing unit of work. Lookup methods return
// (nil, nil) when nothing matches. Implementations must be safe for
// concurrent use.
type StoreTx interface {
	// Groups
	FindGroup(ctx context.Context, key GroupLookup) (*domain.DetectionGroup, error)
	FindGroupByKey(ctx context.Context, key domain.GroupKey) (*domain.DetectionGroup, error)
	GroupByUID(ctx context.Context, uid uuid.UUID) (*domain.DetectionGroup, error)
	GroupFamily(ctx context.Context, key domain.FamilyKey, source string) ([]domain.DetectionGroup, error)
	UpsertGroup(ctx context.Context, g *domain.DetectionGroup) error
	DeleteGroup(ctx context.Context, uid uuid.UUID) error

	// Tracks
	FindTrack(ctx context.Context, key domain.TrackKey) (*domain.Track, error)
	UpsertTrack(ctx context.Context, t *domain.Track) error
	DeleteTrack(ctx context.Context, uid uuid.UUID) error

	// Points
	PointsByTrack(ctx context.Context, trackUID uuid.UUID) ([]domain.Point, error)
	HasPointNear(ctx context.Context, sensorID int, t time.Time, tolerance time.Duration) (bool, error)
	UpsertPoint(ctx context.Context, p *domain.Point) error
	DeletePoint(ctx context.Context, uid uuid.UUID) error
	DeleteOrphanPoints(ctx context.Context) (int64, error)

	// Logs and frames
	FindDetectionLog(ctx context.Context, filename string) (*domain.DetectionLog, error)
	UpsertDetectionLog(ctx context.Context, l *domain.DetectionLog) error
	DeleteDetectionLog(ctx context.Context, uid uuid.UUID) error
	FindImageLog(ctx context.Context, filename string) (*domain.ImageLog, error)
	UpsertImageLog(ctx context.Context, l *domain.ImageLog) error
	DeleteImageLog(ctx context.Context, uid uuid.UUID) error
	FindFrame(ctx context.Context, filename string) (*domain.Frame, error)
	UpsertFrame(ctx context.Context, f *domain.Frame) error
	DeleteFrame(ctx context.Context, uid uuid.UUID) error

	// Links. Link calls are idempotent. Refs count the groups still
	// linked to a target.
	Link(ctx context.Context, kind LinkKind, l domain.Link) error
	Unlink(ctx context.Context, kind LinkKind, l domain.Link) error
	Refs(ctx context.Context, kind LinkKind, target uuid.UUID) (int, error)

	// Snapshot gathers everything reachable from the groups of one source.
	Snapshot(ctx context.Context, source string) (*domain.Model, error)

	Commit() error
	Rollback() error
}

// LinkKind selects one of the group association tables.
type LinkKind int

const (
	LinkDetectionLog LinkKind = iota
	LinkImageLog
	LinkFrame
)

func (k LinkKind) String() string {
	switch k {
	case LinkDetectionLog:
		return "detection log"
	case LinkImageLog:
		return "image log"
	case LinkFrame:
		return "frame"
	default:
		return "unknown"
	}
}
