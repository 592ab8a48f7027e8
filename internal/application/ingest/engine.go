// Package ingest reconciles one source disk export with the persisted
// model: it builds groups and tracks from the session database, attaches
// detection and image logs, splits groups at temporal gaps and deletes
// whatever the source no longer produces, all in a single transaction.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sealhits/internal/application"
	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

// Deps are the collaborators an Engine works with.
type Deps struct {
	Store      ports.Store
	Session    ports.SessionReader
	Detections ports.DetectionLogReader
	Images     ports.ImageLogReader
	Locator    ports.LogLocator
	Artifacts  ports.ArtifactStore
}

// Engine runs ingest and undo operations against a store.
type Engine struct {
	deps Deps
	log  *zap.Logger
}

// NewEngine creates a new Engine
func NewEngine(deps Deps, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{deps: deps, log: logger.Named("ingest")}
}

// Ingest reconciles one source with the store. Every write happens in one
// transaction; on any error nothing is committed. With DryRun set the whole
// computation runs and is rolled back, and no artifacts are written.
func (e *Engine) Ingest(ctx context.Context, req Request) (*Summary, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	began := time.Now()
	log := e.log.With(zap.String("source", req.SourceName))

	session, err := e.deps.Session.ReadSession(ctx, req.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session database: %w", err)
	}

	tx, err := e.deps.Store.Begin(ctx)
	if err != nil {
		return nil, &application.TransactionError{Op: "begin", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	r := newRun(req, tx, log)
	var deleted domain.ModelCounts

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"snapshot", r.snapshot},
		{"group building", func(ctx context.Context) error { return r.buildGroups(ctx, session) }},
		{"detection association", func(ctx context.Context) error {
			return r.associateDetections(ctx, e.deps.Locator, e.deps.Detections)
		}},
		{"time correction", func(context.Context) error { r.correctTimes(); return nil }},
		{"splitting", r.splitGroups},
		{"closure check", func(context.Context) error { return r.checkClosure() }},
		{"upsert", r.persist},
		{"stale detections", func(ctx context.Context) error {
			return pruneDetections(ctx, tx, domain.Diff(r.before, r.model()), &deleted)
		}},
		{"image association", func(ctx context.Context) error {
			if req.SkipImageLogs {
				r.carryImages()
				return nil
			}
			return r.associateImages(ctx, e.deps.Locator, e.deps.Images, e.deps.Artifacts)
		}},
		{"deletion", func(ctx context.Context) error {
			return pruneShared(ctx, tx, domain.Diff(r.before, r.model()), &deleted, log.Named("prune"))
		}},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			log.Error("Ingest failed, rolling back", zap.String("step", step.name), zap.Error(err))
			return nil, r.wrapFailure(step.name, err)
		}
	}

	sum := r.summary(deleted)
	sum.DryRun = req.DryRun
	if req.DryRun {
		sum.Elapsed = time.Since(began)
		log.Info("Dry run complete, rolling back", zap.Int("would_delete", deleted.Total()))
		return sum, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, r.wrapFailure("commit", err)
	}
	committed = true
	sum.Elapsed = time.Since(began)

	log.Info("Ingest committed",
		zap.Int("groups", sum.Model.Groups),
		zap.Int("points", sum.Model.Points),
		zap.Int("frames", sum.Model.Frames),
		zap.Int("created", sum.Created.Total()),
		zap.Int("deleted", deleted.Total()),
		zap.Int("diagnostics", len(sum.Diagnostics)),
		zap.Duration("elapsed", sum.Elapsed))
	return sum, nil
}

// wrapFailure turns an error inside the transaction into a TransactionError
// naming the step and any tracks left without a final group. Integrity
// violations keep their own type.
func (r *run) wrapFailure(op string, err error) error {
	if errors.Is(err, application.ErrIntegrityViolation) || errors.Is(err, application.ErrTransaction) {
		return err
	}
	return &application.TransactionError{Op: op, OrphanTracks: r.orphanTracks(r.groupIndex()), Err: err}
}

func (r *run) summary(deleted domain.ModelCounts) *Summary {
	sum := &Summary{
		Source:      r.req.SourceName,
		Lookup:      r.ids.names[0],
		Model:       r.model().Counts(),
		Created:     r.ids.created,
		Deleted:     deleted,
		Diagnostics: r.diags.Items(),
	}
	for i, g := range r.groups {
		if i == 0 || g.Start.Before(sum.Earliest) {
			sum.Earliest = g.Start
		}
		if i == 0 || g.End.After(sum.Latest) {
			sum.Latest = g.End
		}
	}
	return sum
}

// Undo deletes everything a source contributed: its groups, their tracks
// and points, the logs and frames no other source uses, and any points
// left without a group.
func (e *Engine) Undo(ctx context.Context, source string) (*Summary, error) {
	if err := application.ValidateRequired("sourceName", source); err != nil {
		return nil, err
	}
	began := time.Now()
	log := e.log.With(zap.String("source", source))

	tx, err := e.deps.Store.Begin(ctx)
	if err != nil {
		return nil, &application.TransactionError{Op: "begin", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	before, err := tx.Snapshot(ctx, source)
	if err != nil {
		return nil, &application.TransactionError{Op: "snapshot", Err: err}
	}
	if len(before.Groups) == 0 {
		return nil, fmt.Errorf("source %q: %w", source, application.ErrNotFound)
	}

	deleted, err := prune(ctx, tx, domain.Diff(before, domain.NewModel()), log.Named("prune"))
	if err != nil {
		return nil, &application.TransactionError{Op: "deletion", Err: err}
	}
	orphans, err := tx.DeleteOrphanPoints(ctx)
	if err != nil {
		return nil, &application.TransactionError{Op: "orphan points", Err: err}
	}
	deleted.Points += int(orphans)

	if err := tx.Commit(); err != nil {
		return nil, &application.TransactionError{Op: "commit", Err: err}
	}
	committed = true

	log.Info("Undo committed",
		zap.Int("groups", deleted.Groups), zap.Int("tracks", deleted.Tracks),
		zap.Int("points", deleted.Points), zap.Int("frames", deleted.Frames))
	return &Summary{Source: source, Lookup: source, Deleted: deleted, Elapsed: time.Since(began)}, nil
}
