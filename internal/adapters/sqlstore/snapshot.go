package sqlstore

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// Snapshot gathers the groups of one source and every track, point, log and
// frame reachable from them
func (t *storeTx) Snapshot(ctx context.Context, source string) (*domain.Model, error) {
	m := domain.NewModel()

	steps := []struct {
		name string
		load func(context.Context, string, *domain.Model) error
	}{
		{"groups", t.snapshotGroups},
		{"tracks", t.snapshotTracks},
		{"points", t.snapshotPoints},
		{"detection logs", t.snapshotDetectionLogs},
		{"image logs", t.snapshotImageLogs},
		{"frames", t.snapshotFrames},
	}
	for _, step := range steps {
		if err := step.load(ctx, source, m); err != nil {
			return nil, fmt.Errorf("failed to snapshot %s: %w", step.name, err)
		}
	}
	return m, nil
}

func (t *storeTx) sourceGroups(source string) *sqlbuilder.SelectBuilder {
	sb := t.flavor.NewSelectBuilder()
	sb.Select("uid").From("detection_groups")
	sb.Where(sb.Equal("source", source))
	return sb
}

func (t *storeTx) snapshotGroups(ctx context.Context, source string, m *domain.Model) error {
	sb := t.flavor.NewSelectBuilder()
	sb.Select(groupColumns...).From("detection_groups")
	sb.Where(sb.Equal("source", source))

	var rows []groupRow
	if err := t.selectRows(ctx, &rows, sb); err != nil {
		return err
	}
	for _, r := range rows {
		g, err := r.toDomain()
		if err != nil {
			return err
		}
		m.AddGroup(g)
	}
	return nil
}

func (t *storeTx) snapshotTracks(ctx context.Context, source string, m *domain.Model) error {
	sb := t.flavor.NewSelectBuilder()
	sb.Select(trackColumns...).From("tracks")
	sb.Where(sb.In("group_uid", t.sourceGroups(source)))

	var rows []trackRow
	if err := t.selectRows(ctx, &rows, sb); err != nil {
		return err
	}
	for _, r := range rows {
		m.AddTrack(r.toDomain())
	}
	return nil
}

func (t *storeTx) snapshotPoints(ctx context.Context, source string, m *domain.Model) error {
	tracks := t.flavor.NewSelectBuilder()
	tracks.Select("uid").From("tracks")
	tracks.Where(tracks.In("group_uid", t.sourceGroups(source)))

	sb := t.flavor.NewSelectBuilder()
	sb.Select(pointColumns...).From("points")
	sb.Where(sb.Or(
		sb.In("group_uid", t.sourceGroups(source)),
		sb.In("track_uid", tracks),
	))

	var rows []pointRow
	if err := t.selectRows(ctx, &rows, sb); err != nil {
		return err
	}
	for _, r := range rows {
		m.AddPoint(r.toDomain())
	}
	return nil
}

// linkedTo selects the rows of table that are linked to a group of source.
func (t *storeTx) linkedTo(kind ports.LinkKind, table string, cols []string, source string) *sqlbuilder.SelectBuilder {
	lt := linkTables[kind]
	links := t.flavor.NewSelectBuilder()
	links.Select(lt.column).From(lt.table)
	links.Where(links.In("group_uid", t.sourceGroups(source)))

	sb := t.flavor.NewSelectBuilder()
	sb.Select(cols...).From(table)
	sb.Where(sb.In("uid", links))
	return sb
}

func (t *storeTx) snapshotLinks(ctx context.Context, kind ports.LinkKind, source string) ([]domain.Link, error) {
	lt := linkTables[kind]
	sb := t.flavor.NewSelectBuilder()
	sb.Select("group_uid", sb.As(lt.column, "target_uid")).From(lt.table)
	sb.Where(sb.In("group_uid", t.sourceGroups(source)))

	var rows []linkRow
	if err := t.selectRows(ctx, &rows, sb); err != nil {
		return nil, err
	}
	links := make([]domain.Link, len(rows))
	for i, r := range rows {
		links[i] = domain.Link{Group: r.Group, Target: r.Target}
	}
	return links, nil
}

func (t *storeTx) snapshotDetectionLogs(ctx context.Context, source string, m *domain.Model) error {
	var rows []logRow
	if err := t.selectRows(ctx, &rows, t.linkedTo(ports.LinkDetectionLog, "detection_logs", logColumns, source)); err != nil {
		return err
	}
	for _, r := range rows {
		m.AddDetectionLog(r.toDetectionLog())
	}
	links, err := t.snapshotLinks(ctx, ports.LinkDetectionLog, source)
	if err != nil {
		return err
	}
	for _, l := range links {
		m.LinkDetectionLog(l.Group, l.Target)
	}
	return nil
}

func (t *storeTx) snapshotImageLogs(ctx context.Context, source string, m *domain.Model) error {
	var rows []logRow
	if err := t.selectRows(ctx, &rows, t.linkedTo(ports.LinkImageLog, "image_logs", logColumns, source)); err != nil {
		return err
	}
	for _, r := range rows {
		m.AddImageLog(r.toImageLog())
	}
	links, err := t.snapshotLinks(ctx, ports.LinkImageLog, source)
	if err != nil {
		return err
	}
	for _, l := range links {
		m.LinkImageLog(l.Group, l.Target)
	}
	return nil
}

func (t *storeTx) snapshotFrames(ctx context.Context, source string, m *domain.Model) error {
	var rows []frameRow
	if err := t.selectRows(ctx, &rows, t.linkedTo(ports.LinkFrame, "frames", frameColumns, source)); err != nil {
		return err
	}
	for _, r := range rows {
		m.AddFrame(r.toDomain())
	}
	links, err := t.snapshotLinks(ctx, ports.LinkFrame, source)
	if err != nil {
		return err
	}
	for _, l := range links {
		m.LinkFrame(l.Group, l.Target)
	}
	return nil
}
