package domain

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FrameExt and ArtifactExt name derived frame artifacts on disk.
const (
	FrameExt    = ".fits"
	ArtifactExt = ".lz4"
)

// ImageLogExt is the extension of sonar image logs, matched case-insensitively.
const ImageLogExt = ".glf"

// DetectionLog is a binary detector log file.
type DetectionLog struct {
	UID      uuid.UUID
	Filename string
	Start    time.Time
	End      time.Time
}

// ImageLog is a binary sonar image log file.
type ImageLog struct {
	UID      uuid.UUID
	Filename string
	Start    time.Time
	End      time.Time
}

// Overlaps reports whether the log's range intersects [start, end].
func (l *ImageLog) Overlaps(start, end time.Time) bool {
	return !start.After(l.End) && !end.Before(l.Start)
}

// Frame is one sonar image extracted from an image log.
type Frame struct {
	UID          uuid.UUID
	Filename     string
	LogName      string
	Time         time.Time
	SensorID     int
	Range        int
	HasDetection bool
}

// FrameFilename derives the canonical artifact name for a frame, e.g.
// 2023_05_01_10_00_00_250_854.fits.
func FrameFilename(t time.Time, sensorID int) string {
	t = t.UTC()
	ms := t.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("%s_%03d_%d%s", t.Format("2006_01_02_15_04_05"), ms, sensorID, FrameExt)
}

// ArtifactPath returns where the compressed artifact of a frame lives
// beneath outputDir. Artifacts are grouped into one directory per day.
func ArtifactPath(outputDir string, t time.Time, filename string) string {
	return filepath.Join(outputDir, t.UTC().Format("2006_01_02"), filename+ArtifactExt)
}
