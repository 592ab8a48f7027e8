package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sealhits/internal/application"
	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// imageResult holds the image logs, frames and links produced for the
// final groups.
type imageResult struct {
	logs       map[uuid.UUID]*domain.ImageLog
	frames     map[uuid.UUID]*domain.Frame
	logLinks   map[domain.Link]struct{}
	frameLinks map[domain.Link]struct{}
	created    int
}

func newImageResult() *imageResult {
	return &imageResult{
		logs:       make(map[uuid.UUID]*domain.ImageLog),
		frames:     make(map[uuid.UUID]*domain.Frame),
		logLinks:   make(map[domain.Link]struct{}),
		frameLinks: make(map[domain.Link]struct{}),
	}
}

func (res *imageResult) addTo(m *domain.Model) {
	for _, l := range res.logs {
		m.AddImageLog(*l)
	}
	for _, f := range res.frames {
		m.AddFrame(*f)
	}
	for l := range res.logLinks {
		m.ImageLogLinks[l] = struct{}{}
	}
	for l := range res.frameLinks {
		m.FrameLinks[l] = struct{}{}
	}
}

// logDescriptor is one discovered image log.
type logDescriptor struct {
	path string
	log  *domain.ImageLog
}

// frameJob asks for one frame of a log to be materialised for a group.
type frameJob struct {
	group uuid.UUID
	path  string
	log   string
	name  string
	ref   ports.FrameRef
}

// groupScan is the outcome of scanning the logs for one group.
type groupScan struct {
	logs []uuid.UUID
	jobs []frameJob
}

// imageAssociator links image logs and frames to the final groups.
type imageAssociator struct {
	run       *run
	locator   ports.LogLocator
	reader    ports.ImageLogReader
	artifacts ports.ArtifactStore
	workers   int
	log       *zap.Logger
}

func (r *run) associateImages(ctx context.Context, locator ports.LogLocator, reader ports.ImageLogReader, artifacts ports.ArtifactStore) error {
	workers := r.req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	a := &imageAssociator{
		run:       r,
		locator:   locator,
		reader:    reader,
		artifacts: artifacts,
		workers:   workers,
		log:       r.log.Named("images"),
	}

	descs, err := a.discover(ctx)
	if err != nil {
		return err
	}

	res := newImageResult()
	for _, d := range descs {
		res.logs[d.log.UID] = d.log
	}

	scans, err := a.scan(ctx, descs)
	if err != nil {
		return err
	}
	var jobs []frameJob
	for i, s := range scans {
		for _, l := range s.logs {
			res.logLinks[domain.Link{Group: r.groups[i].UID, Target: l}] = struct{}{}
		}
		jobs = append(jobs, s.jobs...)
	}

	if err := a.materialise(ctx, jobs, res); err != nil {
		return err
	}
	r.ids.created.Frames += res.created
	r.images = res

	a.log.Info("Associated image logs",
		zap.Int("logs", len(res.logs)), zap.Int("frames", len(res.frames)), zap.Int("new_frames", res.created))
	return a.persist(ctx, res)
}

// discover lists the image logs on disk sorted by start time. Logs the store
// already knows keep their stored range; others are parsed.
func (a *imageAssociator) discover(ctx context.Context) ([]logDescriptor, error) {
	r := a.run
	paths, err := a.locator.ImageLogs(r.req.ImageLogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to locate image logs: %w", err)
	}

	var descs []logDescriptor
	seen := make(map[string]bool)
	for _, path := range paths {
		name := filepath.Base(path)
		if seen[name] {
			a.log.Warn("Duplicate image log name, using first", zap.String("path", path))
			continue
		}
		seen[name] = true

		l, stored, err := r.ids.imageLog(ctx, name)
		if err != nil {
			return nil, err
		}
		if !stored {
			start, end, err := a.reader.ImageLogTimes(ctx, path)
			if errors.Is(err, application.ErrSourceDefect) {
				r.warn(application.ErrSourceDefect, name, err.Error())
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read image log %s: %w", name, err)
			}
			l.Start, l.End = start.UTC(), end.UTC()
		}
		r.ids.keepImageLog(l, !stored)
		descs = append(descs, logDescriptor{path: path, log: l})
	}

	slices.SortStableFunc(descs, func(x, y logDescriptor) int {
		return x.log.Start.Compare(y.log.Start)
	})
	return descs, nil
}

// scan finds, for every group, the logs overlapping its window and the
// frames inside it. One task per group runs on a bounded pool.
func (a *imageAssociator) scan(ctx context.Context, descs []logDescriptor) ([]groupScan, error) {
	r := a.run
	scans := make([]groupScan, len(r.groups))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.workers)
	for i, g := range r.groups {
		if g.Duration() > r.req.MaxImageDuration {
			r.warn(application.ErrOversizeGroup, groupSubject(g), "group too long for image association, no frames attached", groupFields(g)...)
			continue
		}
		eg.Go(func() error {
			s, err := a.scanGroup(ctx, g, descs)
			if err != nil {
				return err
			}
			scans[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, g := range r.groups {
		if g.Duration() > r.req.MaxImageDuration {
			continue
		}
		switch {
		case len(scans[i].logs) == 0:
			r.warn(application.ErrSourceDefect, groupSubject(g), "no image log covers group", groupFields(g)...)
		case len(scans[i].jobs) == 0:
			r.warn(application.ErrSourceDefect, groupSubject(g), "image logs cover group but hold no frames in its window", groupFields(g)...)
		}
	}
	return scans, nil
}

func (a *imageAssociator) scanGroup(ctx context.Context, g *domain.DetectionGroup, descs []logDescriptor) (groupScan, error) {
	var s groupScan
	for _, d := range descs {
		if d.log.Start.After(g.End) {
			break
		}
		if !d.log.Overlaps(g.Start, g.End) {
			continue
		}
		s.logs = append(s.logs, d.log.UID)

		refs, err := a.reader.ImageLogFrames(ctx, d.path, g.Start, g.End)
		if errors.Is(err, application.ErrSourceDefect) {
			a.run.warn(application.ErrSourceDefect, d.log.Filename, err.Error(), groupFields(g)...)
			continue
		}
		if err != nil {
			return s, fmt.Errorf("failed to list frames of %s: %w", d.log.Filename, err)
		}
		for _, ref := range refs {
			s.jobs = append(s.jobs, frameJob{
				group: g.UID,
				path:  d.path,
				log:   d.log.Filename,
				name:  domain.FrameFilename(ref.Time, ref.SensorID),
				ref:   ref,
			})
		}
	}
	return s, nil
}

// workerResult is what one frame worker hands back to the coordinator.
type workerResult struct {
	frames  []*domain.Frame
	links   []domain.Link
	created int
}

// materialise resolves frames and writes their artifacts. Jobs are
// partitioned by frame filename so each filename belongs to one worker.
func (a *imageAssociator) materialise(ctx context.Context, jobs []frameJob, res *imageResult) error {
	parts := make([][]frameJob, a.workers)
	for _, j := range jobs {
		i := xxhash.Sum64String(j.name) % uint64(a.workers)
		parts[i] = append(parts[i], j)
	}

	results := make([]workerResult, a.workers)
	eg, ctx := errgroup.WithContext(ctx)
	for w := range parts {
		if len(parts[w]) == 0 {
			continue
		}
		eg.Go(func() error {
			out, err := a.work(ctx, parts[w])
			results[w] = out
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, out := range results {
		for _, f := range out.frames {
			res.frames[f.UID] = f
		}
		for _, l := range out.links {
			res.frameLinks[l] = struct{}{}
		}
		res.created += out.created
	}
	return nil
}

func (a *imageAssociator) work(ctx context.Context, jobs []frameJob) (workerResult, error) {
	var out workerResult
	owned := make(map[string]*domain.Frame)
	for _, j := range jobs {
		f, ok := owned[j.name]
		if !ok {
			var fresh bool
			var err error
			f, fresh, err = a.resolveFrame(ctx, j)
			if err != nil {
				return out, err
			}
			owned[j.name] = f
			out.frames = append(out.frames, f)
			if fresh {
				out.created++
			}
		}
		out.links = append(out.links, domain.Link{Group: j.group, Target: f.UID})
	}
	return out, nil
}

// resolveFrame writes the artifact of a frame if it is missing and returns
// the stored frame or a new one.
func (a *imageAssociator) resolveFrame(ctx context.Context, j frameJob) (*domain.Frame, bool, error) {
	r := a.run
	if !r.req.DryRun {
		if err := a.writeArtifact(ctx, j); err != nil {
			return nil, false, err
		}
	}

	f, err := r.tx.FindFrame(ctx, j.name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up frame %s: %w", j.name, err)
	}
	if f != nil {
		return f, false, nil
	}

	hit, err := r.tx.HasPointNear(ctx, j.ref.SensorID, j.ref.Time, detectionTolerance)
	if err != nil {
		return nil, false, err
	}
	return &domain.Frame{
		UID:          uuid.New(),
		Filename:     j.name,
		LogName:      j.log,
		Time:         j.ref.Time.UTC(),
		SensorID:     j.ref.SensorID,
		Range:        int(math.Round(j.ref.Range)),
		HasDetection: hit,
	}, true, nil
}

// writeArtifact materialises a frame artifact unless one already exists.
// Failures are recorded and the frame is still created.
func (a *imageAssociator) writeArtifact(ctx context.Context, j frameJob) error {
	r := a.run
	path := domain.ArtifactPath(r.req.OutputDir, j.ref.Time, j.name)
	exists, err := a.artifacts.Exists(path)
	if err != nil {
		r.warn(application.ErrArtifactWrite, j.name, err.Error(), zap.String("path", path))
		return nil
	}
	if exists {
		return nil
	}

	img, err := a.reader.ReadFrameImage(ctx, j.path, j.ref)
	if errors.Is(err, application.ErrSourceDefect) {
		r.warn(application.ErrArtifactWrite, j.name, err.Error(), zap.String("log", j.log))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to extract frame %s: %w", j.name, err)
	}
	if err := a.artifacts.Write(path, img); err != nil {
		r.warn(application.ErrArtifactWrite, j.name, err.Error(), zap.String("path", path))
	}
	return nil
}

func (a *imageAssociator) persist(ctx context.Context, res *imageResult) error {
	tx := a.run.tx
	for _, l := range res.logs {
		if err := tx.UpsertImageLog(ctx, l); err != nil {
			return err
		}
	}
	for _, f := range res.frames {
		if err := tx.UpsertFrame(ctx, f); err != nil {
			return err
		}
	}
	for l := range res.logLinks {
		if err := tx.Link(ctx, ports.LinkImageLog, l); err != nil {
			return err
		}
	}
	for l := range res.frameLinks {
		if err := tx.Link(ctx, ports.LinkFrame, l); err != nil {
			return err
		}
	}
	return nil
}

// carryImages keeps the stored image data of surviving groups when image
// association is skipped.
func (r *run) carryImages() {
	res := newImageResult()
	survivors := r.groupIndex()
	for l := range r.before.ImageLogLinks {
		if _, ok := survivors[l.Group]; !ok {
			continue
		}
		if il, ok := r.before.ImageLogs[l.Target]; ok {
			res.logs[il.UID] = &il
			res.logLinks[l] = struct{}{}
		}
	}
	for l := range r.before.FrameLinks {
		if _, ok := survivors[l.Group]; !ok {
			continue
		}
		if f, ok := r.before.Frames[l.Target]; ok {
			res.frames[f.UID] = &f
			res.frameLinks[l] = struct{}{}
		}
	}
	r.images = res
	r.log.Named("images").Info("Skipped image association, keeping stored image data",
		zap.Int("logs", len(res.logs)), zap.Int("frames", len(res.frames)))
}
