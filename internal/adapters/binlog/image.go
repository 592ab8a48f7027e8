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

	"sealhits/internal/application"
	"sealhits/internal/ports"
)

// frameHeader precedes the Width*Height pixel bytes of every frame.
type frameHeader struct {
	Time     int64
	SensorID int32
	Range    float64
	Width    uint16
	Height   uint16
}

// ImageReader implements ports.ImageLogReader
type ImageReader struct{}

// Ensure ImageReader implements ImageLogReader
var _ ports.ImageLogReader = (*ImageReader)(nil)

// NewImageReader creates a new ImageReader
func NewImageReader() *ImageReader {
	return &ImageReader{}
}

// scanFrames calls fn for each frame header in order. fn reports whether it
// wants the pixels; when it does, they are read and passed to it.
func scanFrames(ctx context.Context, path string, fn func(i int, h frameHeader, pixels []byte) (wantPixels, stop bool)) error {
	f, br, err := openLog(path, imageMagic)
	if err != nil {
		return err
	}
	defer f.Close()

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var h frameHeader
		err := binary.Read(br, byteOrder, &h)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return truncated(path, err)
		}

		size := int(h.Width) * int(h.Height)
		want, stop := fn(i, h, nil)
		if want {
			pixels := make([]byte, size)
			if _, err := io.ReadFull(br, pixels); err != nil {
				return truncated(path, err)
			}
			fn(i, h, pixels)
		} else if _, err := br.Discard(size); err != nil {
			return truncated(path, io.ErrUnexpectedEOF)
		}
		if stop {
			return nil
		}
	}
}

// ImageLogTimes returns the time of the first and last frame
func (r *ImageReader) ImageLogTimes(ctx context.Context, path string) (time.Time, time.Time, error) {
	var start, end time.Time
	n := 0
	err := scanFrames(ctx, path, func(_ int, h frameHeader, _ []byte) (bool, bool) {
		ts := time.Unix(0, h.Time).UTC()
		if n == 0 || ts.Before(start) {
			start = ts
		}
		if n == 0 || ts.After(end) {
			end = ts
		}
		n++
		return false, false
	})
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if n == 0 {
		return time.Time{}, time.Time{}, &application.SourceDefectError{Path: path, Reason: "no frames"}
	}
	return start, end, nil
}

// ImageLogFrames lists the frames whose time lies in [start, end]
func (r *ImageReader) ImageLogFrames(ctx context.Context, path string, start, end time.Time) ([]ports.FrameRef, error) {
	var refs []ports.FrameRef
	err := scanFrames(ctx, path, func(i int, h frameHeader, pixels []byte) (bool, bool) {
		if pixels != nil {
			return false, false
		}
		ts := time.Unix(0, h.Time).UTC()
		if !ts.Before(start) && !ts.After(end) {
			refs = append(refs, ports.FrameRef{Index: i, Time: ts, SensorID: int(h.SensorID), Range: h.Range})
		}
		return false, false
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// ReadFrameImage extracts the pixels of the frame at ref.Index
func (r *ImageReader) ReadFrameImage(ctx context.Context, path string, ref ports.FrameRef) (*ports.FrameImage, error) {
	var img *ports.FrameImage
	err := scanFrames(ctx, path, func(i int, h frameHeader, pixels []byte) (bool, bool) {
		if i != ref.Index {
			return false, false
		}
		if pixels == nil {
			return true, true
		}
		img = &ports.FrameImage{
			Time:     time.Unix(0, h.Time).UTC(),
			SensorID: int(h.SensorID),
			Width:    int(h.Width),
			Height:   int(h.Height),
			Pixels:   pixels,
		}
		return false, true
	})
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("frame %d not found", ref.Index)}
	}
	return img, nil
}

// ImageLogFrame is one frame to encode with WriteImageLog.
type ImageLogFrame struct {
	Time     time.Time
	SensorID int
	Range    float64
	Width    int
	Height   int
	Pixels   []byte
}

// WriteImageLog writes frames as an image log at path.
func WriteImageLog(path string, frames []ImageLogFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeHeader(w, imageMagic); err != nil {
		return err
	}
	for _, fr := range frames {
		if len(fr.Pixels) != fr.Width*fr.Height {
			return fmt.Errorf("frame at %s: %d pixels for %dx%d", fr.Time, len(fr.Pixels), fr.Width, fr.Height)
		}
		h := frameHeader{
			Time:     fr.Time.UnixNano(),
			SensorID: int32(fr.SensorID),
			Range:    fr.Range,
			Width:    uint16(fr.Width),
			Height:   uint16(fr.Height),
		}
		if err := binary.Write(w, byteOrder, &h); err != nil {
			return fmt.Errorf("failed to write frame header: %w", err)
		}
		if _, err := w.Write(fr.Pixels); err != nil {
			return fmt.Errorf("failed to write frame pixels: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
