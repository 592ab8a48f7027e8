package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// storeTx implements ports.StoreTx. A sql transaction is bound to one
// connection, so every statement is serialized through mu.
type storeTx struct {
	mu     sync.Mutex
	tx     *sqlx.Tx
	flavor sqlbuilder.Flavor
}

// Ensure storeTx implements StoreTx
var _ ports.StoreTx = (*storeTx)(nil)

type linkTable struct {
	table  string
	column string
}

var linkTables = map[ports.LinkKind]linkTable{
	ports.LinkDetectionLog: {table: "group_detection_logs", column: "log_uid"},
	ports.LinkImageLog:     {table: "group_image_logs", column: "log_uid"},
	ports.LinkFrame:        {table: "group_frames", column: "frame_uid"},
}

func (t *storeTx) get(ctx context.Context, dest interface{}, b sqlbuilder.Builder) (bool, error) {
	query, args := b.BuildWithFlavor(t.flavor)
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.tx.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *storeTx) selectRows(ctx context.Context, dest interface{}, b sqlbuilder.Builder) error {
	query, args := b.BuildWithFlavor(t.flavor)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.SelectContext(ctx, dest, query, args...)
}

func (t *storeTx) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *storeTx) execBuilder(ctx context.Context, b sqlbuilder.Builder) (sql.Result, error) {
	query, args := b.BuildWithFlavor(t.flavor)
	return t.exec(ctx, query, args...)
}

func (t *storeTx) upsert(ctx context.Context, table string, cols []string, values []interface{}) error {
	ib := t.flavor.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(cols...)
	ib.Values(values...)
	query, args := ib.Build()
	query += " ON CONFLICT (uid) DO UPDATE SET " + updateSet(cols, "uid")
	if _, err := t.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	return nil
}

func (t *storeTx) deleteByUID(ctx context.Context, table string, uid uuid.UUID) error {
	db := t.flavor.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("uid", uid))
	if _, err := t.execBuilder(ctx, db); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

func (t *storeTx) findGroup(ctx context.Context, where func(sb *sqlbuilder.SelectBuilder)) (*domain.DetectionGroup, error) {
	sb := t.flavor.NewSelectBuilder()
	sb.Select(groupColumns...).From("detection_groups")
	where(sb)
	sb.Limit(1)

	var row groupRow
	found, err := t.get(ctx, &row, sb)
	if err != nil || !found {
		return nil, err
	}
	g, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FindGroup returns the unsplit or original group of a session record
func (t *storeTx) FindGroup(ctx context.Context, key ports.GroupLookup) (*domain.DetectionGroup, error) {
	return t.findGroup(ctx, func(sb *sqlbuilder.SelectBuilder) {
		sb.Where(
			sb.Equal("gid", key.GID),
			sb.Equal("sqlite_id", key.SourceID),
			sb.Equal("source", key.Source),
			sb.In("split", -1, 0),
		)
		sb.OrderBy("split").Desc()
	})
}

// FindGroupByKey returns the group with the exact natural key
func (t *storeTx) FindGroupByKey(ctx context.Context, key domain.GroupKey) (*domain.DetectionGroup, error) {
	return t.findGroup(ctx, func(sb *sqlbuilder.SelectBuilder) {
		sb.Where(
			sb.Equal("gid", key.GID),
			sb.Equal("sqlite_id", key.SourceID),
			sb.Equal("split", key.Split),
			sb.Equal("source", key.Source),
		)
	})
}

// GroupByUID returns a group by durable identifier
func (t *storeTx) GroupByUID(ctx context.Context, uid uuid.UUID) (*domain.DetectionGroup, error) {
	return t.findGroup(ctx, func(sb *sqlbuilder.SelectBuilder) {
		sb.Where(sb.Equal("uid", uid))
	})
}

// GroupFamily returns the original and successors of a source group, in split order
func (t *storeTx) GroupFamily(ctx context.Context, key domain.FamilyKey, source string) ([]domain.DetectionGroup, error) {
	sb := t.flavor.NewSelectBuilder()
	sb.Select(groupColumns...).From("detection_groups")
	sb.Where(
		sb.Equal("gid", key.GID),
		sb.Equal("sqlite_id", key.SourceID),
		sb.Equal("source", source),
	)
	sb.OrderBy("split").Asc()

	var rows []groupRow
	if err := t.selectRows(ctx, &rows, sb); err != nil {
		return nil, fmt.Errorf("failed to load group family: %w", err)
	}
	groups := make([]domain.DetectionGroup, 0, len(rows))
	for _, r := range rows {
		g, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// UpsertGroup inserts or updates a group
func (t *storeTx) UpsertGroup(ctx context.Context, g *domain.DetectionGroup) error {
	return t.upsert(ctx, "detection_groups", groupColumns, groupValues(g))
}

// DeleteGroup removes a group; its links cascade
func (t *storeTx) DeleteGroup(ctx context.Context, uid uuid.UUID) error {
	return t.deleteByUID(ctx, "detection_groups", uid)
}

// FindTrack returns the track with the natural key, whichever group owns it
func (t *storeTx) FindTrack(ctx context.Context, key domain.TrackKey) (*domain.Track, error) {
	sb := t.flavor.NewSelectBuilder()
	sb.Select(trackColumns...).From("tracks")
	sb.Where(sb.Equal("pam_id", key.PamID), sb.Equal("log_name", key.LogName))

	var row trackRow
	found, err := t.get(ctx, &row, sb)
	if err != nil || !found {
		return nil, err
	}
	tr := row.toDomain()
	return &tr, nil
}

// UpsertTrack inserts or updates a track
func (t *storeTx) UpsertTrack(ctx context.Context, tr *domain.Track) error {
	return t.upsert(ctx, "tracks", trackColumns, []interface{}{tr.UID, tr.PamID, tr.GroupUID, tr.LogName})
}

// DeleteTrack removes a track
func (t *storeTx) DeleteTrack(ctx context.Context, uid uuid.UUID) error {
	return t.deleteByUID(ctx, "tracks", uid)
}

// PointsByTrack returns every persisted point of a track
func (t *storeTx) PointsByTrack(ctx context.Context, trackUID uuid.UUID) ([]domain.Point, error) {
	sb := t.flavor.NewSelectBuilder()
	sb.Select(pointColumns...).From("points")
	sb.Where(sb.Equal("track_uid", trackUID))
	sb.OrderBy("sampled_at").Asc()

	var rows []pointRow
	if err := t.selectRows(ctx, &rows, sb); err != nil {
		return nil, fmt.Errorf("failed to load points: %w", err)
	}
	points := make([]domain.Point, len(rows))
	for i, r := range rows {
		points[i] = r.toDomain()
	}
	return points, nil
}

// HasPointNear reports whether a point of sensorID lies within tolerance of ts
func (t *storeTx) HasPointNear(ctx context.Context, sensorID int, ts time.Time, tolerance time.Duration) (bool, error) {
	sb := t.flavor.NewSelectBuilder()
	sb.Select("uid").From("points")
	sb.Where(
		sb.Equal("sensor_id", sensorID),
		sb.Between("sampled_at", toNanos(ts.Add(-tolerance)), toNanos(ts.Add(tolerance))),
	)
	sb.Limit(1)

	var uid uuid.UUID
	found, err := t.get(ctx, &uid, sb)
	if err != nil {
		return false, fmt.Errorf("failed to look up nearby points: %w", err)
	}
	return found, nil
}

// UpsertPoint inserts or updates a point
func (t *storeTx) UpsertPoint(ctx context.Context, p *domain.Point) error {
	return t.upsert(ctx, "points", pointColumns, pointValues(p))
}

// DeletePoint removes a point
func (t *storeTx) DeletePoint(ctx context.Context, uid uuid.UUID) error {
	return t.deleteByUID(ctx, "points", uid)
}

// DeleteOrphanPoints removes points whose group no longer exists
func (t *storeTx) DeleteOrphanPoints(ctx context.Context) (int64, error) {
	sub := t.flavor.NewSelectBuilder()
	sub.Select("uid").From("detection_groups")

	db := t.flavor.NewDeleteBuilder()
	db.DeleteFrom("points")
	db.Where(db.NotIn("group_uid", sub))
	res, err := t.execBuilder(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan points: %w", err)
	}
	return res.RowsAffected()
}

func (t *storeTx) findLog(ctx context.Context, table, filename string) (*logRow, error) {
	sb := t.flavor.NewSelectBuilder()
	sb.Select(logColumns...).From(table)
	sb.Where(sb.Equal("filename", filename))

	var row logRow
	found, err := t.get(ctx, &row, sb)
	if err != nil || !found {
		return nil, err
	}
	return &row, nil
}

// FindDetectionLog returns a detection log by filename
func (t *storeTx) FindDetectionLog(ctx context.Context, filename string) (*domain.DetectionLog, error) {
	row, err := t.findLog(ctx, "detection_logs", filename)
	if err != nil || row == nil {
		return nil, err
	}
	l := row.toDetectionLog()
	return &l, nil
}

// UpsertDetectionLog inserts or updates a detection log
func (t *storeTx) UpsertDetectionLog(ctx context.Context, l *domain.DetectionLog) error {
	return t.upsert(ctx, "detection_logs", logColumns, []interface{}{l.UID, l.Filename, toNanos(l.Start), toNanos(l.End)})
}

// DeleteDetectionLog removes a detection log
func (t *storeTx) DeleteDetectionLog(ctx context.Context, uid uuid.UUID) error {
	return t.deleteByUID(ctx, "detection_logs", uid)
}

// FindImageLog returns an image log by filename
func (t *storeTx) FindImageLog(ctx context.Context, filename string) (*domain.ImageLog, error) {
	row, err := t.findLog(ctx, "image_logs", filename)
	if err != nil || row == nil {
		return nil, err
	}
	l := row.toImageLog()
	return &l, nil
}

// UpsertImageLog inserts or updates an image log
func (t *storeTx) UpsertImageLog(ctx context.Context, l *domain.ImageLog) error {
	return t.upsert(ctx, "image_logs", logColumns, []interface{}{l.UID, l.Filename, toNanos(l.Start), toNanos(l.End)})
}

// DeleteImageLog removes an image log
func (t *storeTx) DeleteImageLog(ctx context.Context, uid uuid.UUID) error {
	return t.deleteByUID(ctx, "image_logs", uid)
}

// FindFrame returns a frame by filename
func (t *storeTx) FindFrame(ctx context.Context, filename string) (*domain.Frame, error) {
	sb := t.flavor.NewSelectBuilder()
	sb.Select(frameColumns...).From("frames")
	sb.Where(sb.Equal("filename", filename))

	var row frameRow
	found, err := t.get(ctx, &row, sb)
	if err != nil || !found {
		return nil, err
	}
	f := row.toDomain()
	return &f, nil
}

// UpsertFrame inserts or updates a frame
func (t *storeTx) UpsertFrame(ctx context.Context, f *domain.Frame) error {
	return t.upsert(ctx, "frames", frameColumns, []interface{}{
		f.UID, f.Filename, f.LogName, toNanos(f.Time), f.SensorID, f.Range, f.HasDetection,
	})
}

// DeleteFrame removes a frame
func (t *storeTx) DeleteFrame(ctx context.Context, uid uuid.UUID) error {
	return t.deleteByUID(ctx, "frames", uid)
}

// Link associates a group with a log or frame; existing links are kept
func (t *storeTx) Link(ctx context.Context, kind ports.LinkKind, l domain.Link) error {
	lt, ok := linkTables[kind]
	if !ok {
		return fmt.Errorf("unknown link kind: %d", kind)
	}
	ib := t.flavor.NewInsertBuilder()
	ib.InsertInto(lt.table)
	ib.Cols("group_uid", lt.column)
	ib.Values(l.Group, l.Target)
	query, args := ib.Build()
	query += " ON CONFLICT DO NOTHING"
	if _, err := t.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to link %s: %w", kind, err)
	}
	return nil
}

// Unlink removes one group association
func (t *storeTx) Unlink(ctx context.Context, kind ports.LinkKind, l domain.Link) error {
	lt, ok := linkTables[kind]
	if !ok {
		return fmt.Errorf("unknown link kind: %d", kind)
	}
	db := t.flavor.NewDeleteBuilder()
	db.DeleteFrom(lt.table)
	db.Where(db.Equal("group_uid", l.Group), db.Equal(lt.column, l.Target))
	if _, err := t.execBuilder(ctx, db); err != nil {
		return fmt.Errorf("failed to unlink %s: %w", kind, err)
	}
	return nil
}

// Refs counts the groups linked to a log or frame
func (t *storeTx) Refs(ctx context.Context, kind ports.LinkKind, target uuid.UUID) (int, error) {
	lt, ok := linkTables[kind]
	if !ok {
		return 0, fmt.Errorf("unknown link kind: %d", kind)
	}
	sb := t.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From(lt.table)
	sb.Where(sb.Equal(lt.column, target))

	var n int
	if _, err := t.get(ctx, &n, sb); err != nil {
		return 0, fmt.Errorf("failed to count %s references: %w", kind, err)
	}
	return n, nil
}

// Commit commits the transaction
func (t *storeTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *storeTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.Rollback()
}
