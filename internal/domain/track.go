package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DetectionLogExt is the canonical extension of detection log files.
const DetectionLogExt = ".pgdf"

// Track is one tracked object inside a group, backed by one detection log.
type Track struct {
	UID      uuid.UUID
	PamID    int64 // track id local to the session database
	GroupUID uuid.UUID
	LogName  string
}

// TrackKey is the natural key of a track. Group ownership is not part of it.
type TrackKey struct {
	PamID   int64
	LogName string
}

func (t *Track) Key() TrackKey {
	return TrackKey{PamID: t.PamID, LogName: t.LogName}
}

// Point is a single detection sample of a track.
type Point struct {
	UID         uuid.UUID
	Time        time.Time
	SensorID    int
	MinBearing  float64
	MaxBearing  float64
	MinRange    float64
	MaxRange    float64
	PeakBearing float64
	PeakRange   float64
	Intensity   int
	Occupancy   float64
	ObjSize     int
	TrackUID    uuid.UUID
	GroupUID    uuid.UUID
}

// PointKey holds every field that identifies a sample. PeakRange and the
// owning group may change between ingests and are excluded.
type PointKey struct {
	Time        int64
	SensorID    int
	MinBearing  float64
	MaxBearing  float64
	MinRange    float64
	MaxRange    float64
	PeakBearing float64
	Intensity   int
	Occupancy   float64
	ObjSize     int
	TrackUID    uuid.UUID
}

func (p *Point) Key() PointKey {
	return PointKey{
		Time:        p.Time.UnixNano(),
		SensorID:    p.SensorID,
		MinBearing:  p.MinBearing,
		MaxBearing:  p.MaxBearing,
		MinRange:    p.MinRange,
		MaxRange:    p.MaxRange,
		PeakBearing: p.PeakBearing,
		Intensity:   p.Intensity,
		Occupancy:   p.Occupancy,
		ObjSize:     p.ObjSize,
		TrackUID:    p.TrackUID,
	}
}

// NormalizeDetectionLogName maps a session-database binary file reference
// onto the on-disk detection log filename. Some exports drop the leading
// "Gemin" from "Gemini_" names.
func NormalizeDetectionLogName(ref string) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(ref), `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	if strings.HasPrefix(name, "i_") {
		name = "Gemin" + name
	}
	if !strings.HasSuffix(strings.ToLower(name), DetectionLogExt) {
		name += DetectionLogExt
	}
	return name
}
