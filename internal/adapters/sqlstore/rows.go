package sqlstore

import (
	"github.com/google/uuid"

	"sealhits/internal/domain"
)

var (
	groupColumns = []string{"uid", "gid", "sqlite_id", "split", "source", "huid", "time_start", "time_end",
		"code", "comment", "mammal", "fish", "bird", "interact"}
	trackColumns = []string{"uid", "pam_id", "group_uid", "log_name"}
	pointColumns = []string{"uid", "sampled_at", "sensor_id", "min_bearing", "max_bearing", "min_range", "max_range",
		"peak_bearing", "peak_range", "intensity", "occupancy", "obj_size", "track_uid", "group_uid"}
	logColumns   = []string{"uid", "filename", "time_start", "time_end"}
	frameColumns = []string{"uid", "filename", "log_name", "frame_time", "sensor_id", "range_m", "has_detection"}
)

type groupRow struct {
	UID      uuid.UUID `db:"uid"`
	GID      int64     `db:"gid"`
	SourceID int64     `db:"sqlite_id"`
	Split    int       `db:"split"`
	Source   string    `db:"source"`
	HUID     string    `db:"huid"`
	Start    int64     `db:"time_start"`
	End      int64     `db:"time_end"`
	Code     string    `db:"code"`
	Comment  string    `db:"comment"`
	Mammal   int       `db:"mammal"`
	Fish     int       `db:"fish"`
	Bird     int       `db:"bird"`
	Interact bool      `db:"interact"`
}

func (r groupRow) toDomain() (domain.DetectionGroup, error) {
	split, err := domain.SplitStateFromIndex(r.Split)
	if err != nil {
		return domain.DetectionGroup{}, err
	}
	return domain.DetectionGroup{
		UID:      r.UID,
		GID:      r.GID,
		SourceID: r.SourceID,
		Split:    split,
		Source:   r.Source,
		HUID:     r.HUID,
		Start:    fromNanos(r.Start),
		End:      fromNanos(r.End),
		Code:     r.Code,
		Comment:  r.Comment,
		Mammal:   r.Mammal,
		Fish:     r.Fish,
		Bird:     r.Bird,
		Interact: r.Interact,
	}, nil
}

func groupValues(g *domain.DetectionGroup) []interface{} {
	return []interface{}{g.UID, g.GID, g.SourceID, g.Split.Index(), g.Source, g.HUID, toNanos(g.Start), toNanos(g.End),
		g.Code, g.Comment, g.Mammal, g.Fish, g.Bird, g.Interact}
}

type trackRow struct {
	UID      uuid.UUID `db:"uid"`
	PamID    int64     `db:"pam_id"`
	GroupUID uuid.UUID `db:"group_uid"`
	LogName  string    `db:"log_name"`
}

func (r trackRow) toDomain() domain.Track {
	return domain.Track{UID: r.UID, PamID: r.PamID, GroupUID: r.GroupUID, LogName: r.LogName}
}

type pointRow struct {
	UID         uuid.UUID `db:"uid"`
	Time        int64     `db:"sampled_at"`
	SensorID    int       `db:"sensor_id"`
	MinBearing  float64   `db:"min_bearing"`
	MaxBearing  float64   `db:"max_bearing"`
	MinRange    float64   `db:"min_range"`
	MaxRange    float64   `db:"max_range"`
	PeakBearing float64   `db:"peak_bearing"`
	PeakRange   float64   `db:"peak_range"`
	Intensity   int       `db:"intensity"`
	Occupancy   float64   `db:"occupancy"`
	ObjSize     int       `db:"obj_size"`
	TrackUID    uuid.UUID `db:"track_uid"`
	GroupUID    uuid.UUID `db:"group_uid"`
}

func (r pointRow) toDomain() domain.Point {
	return domain.Point{
		UID:         r.UID,
		Time:        fromNanos(r.Time),
		SensorID:    r.SensorID,
		MinBearing:  r.MinBearing,
		MaxBearing:  r.MaxBearing,
		MinRange:    r.MinRange,
		MaxRange:    r.MaxRange,
		PeakBearing: r.PeakBearing,
		PeakRange:   r.PeakRange,
		Intensity:   r.Intensity,
		Occupancy:   r.Occupancy,
		ObjSize:     r.ObjSize,
		TrackUID:    r.TrackUID,
		GroupUID:    r.GroupUID,
	}
}

func pointValues(p *domain.Point) []interface{} {
	return []interface{}{p.UID, toNanos(p.Time), p.SensorID, p.MinBearing, p.MaxBearing, p.MinRange, p.MaxRange,
		p.PeakBearing, p.PeakRange, p.Intensity, p.Occupancy, p.ObjSize, p.TrackUID, p.GroupUID}
}

type logRow struct {
	UID      uuid.UUID `db:"uid"`
	Filename string    `db:"filename"`
	Start    int64     `db:"time_start"`
	End      int64     `db:"time_end"`
}

func (r logRow) toDetectionLog() domain.DetectionLog {
	return domain.DetectionLog{UID: r.UID, Filename: r.Filename, Start: fromNanos(r.Start), End: fromNanos(r.End)}
}

func (r logRow) toImageLog() domain.ImageLog {
	return domain.ImageLog{UID: r.UID, Filename: r.Filename, Start: fromNanos(r.Start), End: fromNanos(r.End)}
}

type frameRow struct {
	UID          uuid.UUID `db:"uid"`
	Filename     string    `db:"filename"`
	LogName      string    `db:"log_name"`
	Time         int64     `db:"frame_time"`
	SensorID     int       `db:"sensor_id"`
	Range        int       `db:"range_m"`
	HasDetection bool      `db:"has_detection"`
}

func (r frameRow) toDomain() domain.Frame {
	return domain.Frame{
		UID:          r.UID,
		Filename:     r.Filename,
		LogName:      r.LogName,
		Time:         fromNanos(r.Time),
		SensorID:     r.SensorID,
		Range:        r.Range,
		HasDetection: r.HasDetection,
	}
}

type linkRow struct {
	Group  uuid.UUID `db:"group_uid"`
	Target uuid.UUID `db:"target_uid"`
}

// prefixed qualifies columns with a table alias, e.g. "t.uid".
func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

// updateSet renders "col = excluded.col" for every column but the key.
func updateSet(cols []string, key string) string {
	s := ""
	for _, c := range cols {
		if c == key {
			continue
		}
		if s != "" {
			s += ", "
		}
		s += c + " = excluded." + c
	}
	return s
}
