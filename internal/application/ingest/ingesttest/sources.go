package ingesttest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"sealhits/internal/application"
	"sealhits/internal/ports"
)

// Session is an in-memory ports.SessionReader keyed by path.
type Session map[string]*ports.SessionData

func (s Session) ReadSession(ctx context.Context, p string) (*ports.SessionData, error) {
	data, ok := s[p]
	if !ok {
		return nil, &application.SourceDefectError{Path: p, Reason: "no such session database"}
	}
	return data, nil
}

// Disk holds the detection and image logs of a fake export. Files live
// under the directory they are added with.
type Disk struct {
	mu         sync.Mutex
	detections map[string]*ports.DetectionLogData
	images     map[string][]Frame
	broken     map[string]bool
}

// Frame is one frame of a fake image log.
type Frame struct {
	Time     time.Time
	SensorID int
	Range    float64
}

// NewDisk creates an empty fake export
func NewDisk() *Disk {
	return &Disk{
		detections: make(map[string]*ports.DetectionLogData),
		images:     make(map[string][]Frame),
		broken:     make(map[string]bool),
	}
}

// AddDetectionLog stores a detection log at dir/name. Start and end are
// taken from the records.
func (d *Disk) AddDetectionLog(dir, name string, records ...ports.DetectionRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data := &ports.DetectionLogData{Records: records}
	for i, r := range records {
		if i == 0 || r.Time.Before(data.Start) {
			data.Start = r.Time
		}
		if i == 0 || r.Time.After(data.End) {
			data.End = r.Time
		}
	}
	d.detections[path.Join(dir, name)] = data
}

// AddImageLog stores an image log at dir/name.
func (d *Disk) AddImageLog(dir, name string, frames ...Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sort.Slice(frames, func(i, j int) bool { return frames[i].Time.Before(frames[j].Time) })
	d.images[path.Join(dir, name)] = frames
}

// Break makes every read of dir/name fail as a source defect.
func (d *Disk) Break(dir, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broken[path.Join(dir, name)] = true
}

// Remove deletes a file from the fake export.
func (d *Disk) Remove(dir, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := path.Join(dir, name)
	delete(d.detections, p)
	delete(d.images, p)
}

func (d *Disk) defect(p string) error {
	if d.broken[p] {
		return &application.SourceDefectError{Path: p, Reason: "corrupt"}
	}
	return nil
}

// DetectionLogs implements ports.LogLocator
func (d *Disk) DetectionLogs(dir string, names []string) (map[string]string, []string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	found := make(map[string]string)
	var missing []string
	for _, n := range names {
		p := path.Join(dir, n)
		if _, ok := d.detections[p]; ok {
			found[n] = p
		} else {
			missing = append(missing, n)
		}
	}
	return found, missing, nil
}

// ImageLogs implements ports.LogLocator
func (d *Disk) ImageLogs(dir string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var paths []string
	for p := range d.images {
		if path.Dir(p) == path.Clean(dir) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadDetectionLog implements ports.DetectionLogReader
func (d *Disk) ReadDetectionLog(ctx context.Context, p string) (*ports.DetectionLogData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.defect(p); err != nil {
		return nil, err
	}
	data, ok := d.detections[p]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", p)
	}
	return data, nil
}

// ImageLogTimes implements ports.ImageLogReader
func (d *Disk) ImageLogTimes(ctx context.Context, p string) (time.Time, time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.defect(p); err != nil {
		return time.Time{}, time.Time{}, err
	}
	frames := d.images[p]
	if len(frames) == 0 {
		return time.Time{}, time.Time{}, &application.SourceDefectError{Path: p, Reason: "no frames"}
	}
	return frames[0].Time, frames[len(frames)-1].Time, nil
}

// ImageLogFrames implements ports.ImageLogReader
func (d *Disk) ImageLogFrames(ctx context.Context, p string, start, end time.Time) ([]ports.FrameRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.defect(p); err != nil {
		return nil, err
	}
	var refs []ports.FrameRef
	for i, f := range d.images[p] {
		if !f.Time.Before(start) && !f.Time.After(end) {
			refs = append(refs, ports.FrameRef{Index: i, Time: f.Time, SensorID: f.SensorID, Range: f.Range})
		}
	}
	return refs, nil
}

// ReadFrameImage implements ports.ImageLogReader with a 2x2 image.
func (d *Disk) ReadFrameImage(ctx context.Context, p string, ref ports.FrameRef) (*ports.FrameImage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	frames := d.images[p]
	if ref.Index < 0 || ref.Index >= len(frames) {
		return nil, &application.SourceDefectError{Path: p, Reason: fmt.Sprintf("frame %d not found", ref.Index)}
	}
	f := frames[ref.Index]
	return &ports.FrameImage{Time: f.Time, SensorID: f.SensorID, Width: 2, Height: 2, Pixels: []byte{1, 2, 3, 4}}, nil
}

// Artifacts is an in-memory ports.ArtifactStore.
type Artifacts struct {
	mu      sync.Mutex
	written map[string]*ports.FrameImage
	writes  int

	// WriteErr, when set, makes every write fail.
	WriteErr error
}

// NewArtifacts creates an empty artifact store
func NewArtifacts() *Artifacts {
	return &Artifacts{written: make(map[string]*ports.FrameImage)}
}

func (a *Artifacts) Exists(p string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.written[p]
	return ok, nil
}

func (a *Artifacts) Write(p string, img *ports.FrameImage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.WriteErr != nil {
		return a.WriteErr
	}
	a.written[p] = img
	a.writes++
	return nil
}

// Paths returns the written artifact paths in order.
func (a *Artifacts) Paths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	paths := make([]string, 0, len(a.written))
	for p := range a.written {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Writes counts successful writes.
func (a *Artifacts) Writes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writes
}

var (
	_ ports.SessionReader      = Session(nil)
	_ ports.LogLocator         = (*Disk)(nil)
	_ ports.DetectionLogReader = (*Disk)(nil)
	_ ports.ImageLogReader     = (*Disk)(nil)
	_ ports.ArtifactStore      = (*Artifacts)(nil)
)
