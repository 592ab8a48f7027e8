package binlog

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"sealhits/internal/ports"
)

// detectionRecord is the on-disk layout of one detection sample.
type detectionRecord struct {
	TrackID     int64
	Time        int64
	SensorID    int32
	MinBearing  float64
	MaxBearing  float64
	MinRange    float64
	MaxRange    float64
	PeakBearing float64
	PeakRange   float64
	Intensity   int32
	Occupancy   float64
	ObjSize     int32
}

// DetectionReader implements ports.DetectionLogReader
type DetectionReader struct{}

// Ensure DetectionReader implements DetectionLogReader
var _ ports.DetectionLogReader = (*DetectionReader)(nil)

// NewDetectionReader creates a new DetectionReader
func NewDetectionReader() *DetectionReader {
	return &DetectionReader{}
}

// ReadDetectionLog reads every record of a detection log. The declared
// range is the earliest and latest sample time.
func (r *DetectionReader) ReadDetectionLog(ctx context.Context, path string) (*ports.DetectionLogData, error) {
	f, br, err := openLog(path, detectionMagic)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := &ports.DetectionLogData{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec detectionRecord
		err := binary.Read(br, byteOrder, &rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, truncated(path, err)
		}

		ts := time.Unix(0, rec.Time).UTC()
		if len(data.Records) == 0 || ts.Before(data.Start) {
			data.Start = ts
		}
		if len(data.Records) == 0 || ts.After(data.End) {
			data.End = ts
		}
		data.Records = append(data.Records, ports.DetectionRecord{
			TrackID:     rec.TrackID,
			Time:        ts,
			SensorID:    int(rec.SensorID),
			MinBearing:  rec.MinBearing,
			MaxBearing:  rec.MaxBearing,
			MinRange:    rec.MinRange,
			MaxRange:    rec.MaxRange,
			PeakBearing: rec.PeakBearing,
			PeakRange:   rec.PeakRange,
			Intensity:   int(rec.Intensity),
			Occupancy:   rec.Occupancy,
			ObjSize:     int(rec.ObjSize),
		})
	}
	return data, nil
}

// WriteDetectionLog writes records as a detection log at path.
func WriteDetectionLog(path string, records []ports.DetectionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeHeader(w, detectionMagic); err != nil {
		return err
	}
	for _, rec := range records {
		out := detectionRecord{
			TrackID:     rec.TrackID,
			Time:        rec.Time.UnixNano(),
			SensorID:    int32(rec.SensorID),
			MinBearing:  rec.MinBearing,
			MaxBearing:  rec.MaxBearing,
			MinRange:    rec.MinRange,
			MaxRange:    rec.MaxRange,
			PeakBearing: rec.PeakBearing,
			PeakRange:   rec.PeakRange,
			Intensity:   int32(rec.Intensity),
			Occupancy:   rec.Occupancy,
			ObjSize:     int32(rec.ObjSize),
		}
		if err := binary.Write(w, byteOrder, &out); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
