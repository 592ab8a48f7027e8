package ports

import (
	"context"
	"time"
)

// DetectionLogReader parses binary detector logs.
type DetectionLogReader interface {
	ReadDetectionLog(ctx context.Context, path string) (*DetectionLogData, error)
}

// DetectionLogData is the parsed content of one detector log.
type DetectionLogData struct {
	Start   time.Time
	End     time.Time
	Records []DetectionRecord
}

// DetectionRecord is one detection sample as written by the detector.
type DetectionRecord struct {
	TrackID     int64
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
}

// ImageLogReader parses binary sonar image logs.
type ImageLogReader interface {
	// ImageLogTimes returns the time range covered by a log.
	ImageLogTimes(ctx context.Context, path string) (start, end time.Time, err error)
	// ImageLogFrames lists the frames recorded within [start, end].
	ImageLogFrames(ctx context.Context, path string, start, end time.Time) ([]FrameRef, error)
	// ReadFrameImage extracts the raw image of one frame.
	ReadFrameImage(ctx context.Context, path string, ref FrameRef) (*FrameImage, error)
}

// FrameRef locates one frame inside an image log.
type FrameRef struct {
	Index    int
	Time     time.Time
	SensorID int
	Range    float64 // metres
}

// FrameImage is an uncompressed 8-bit sonar image.
type FrameImage struct {
	Time     time.Time
	SensorID int
	Width    int
	Height   int
	Pixels   []byte // row-major, Width*Height bytes
}

// LogLocator finds log files on disk.
type LogLocator interface {
	// DetectionLogs maps each requested filename to a path. Names that
	// cannot be found are returned in missing.
	DetectionLogs(dir string, names []string) (found map[string]string, missing []string, err error)
	// ImageLogs returns every image log below dir.
	ImageLogs(dir string) ([]string, error)
}

// ArtifactStore persists derived frame artifacts.
type ArtifactStore interface {
	Exists(path string) (bool, error)
	Write(path string, img *FrameImage) error
}
