// Package ingesttest provides in-memory implementations of the ingest ports
// for tests.
package ingesttest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

var errTxDone = errors.New("transaction already finished")

type state struct {
	groups        map[uuid.UUID]domain.DetectionGroup
	tracks        map[uuid.UUID]domain.Track
	points        map[uuid.UUID]domain.Point
	detectionLogs map[uuid.UUID]domain.DetectionLog
	imageLogs     map[uuid.UUID]domain.ImageLog
	frames        map[uuid.UUID]domain.Frame
	links         map[ports.LinkKind]map[domain.Link]struct{}
}

func newState() *state {
	return &state{
		groups:        make(map[uuid.UUID]domain.DetectionGroup),
		tracks:        make(map[uuid.UUID]domain.Track),
		points:        make(map[uuid.UUID]domain.Point),
		detectionLogs: make(map[uuid.UUID]domain.DetectionLog),
		imageLogs:     make(map[uuid.UUID]domain.ImageLog),
		frames:        make(map[uuid.UUID]domain.Frame),
		links: map[ports.LinkKind]map[domain.Link]struct{}{
			ports.LinkDetectionLog: {},
			ports.LinkImageLog:     {},
			ports.LinkFrame:        {},
		},
	}
}

func (s *state) clone() *state {
	c := &state{
		groups:        maps.Clone(s.groups),
		tracks:        maps.Clone(s.tracks),
		points:        maps.Clone(s.points),
		detectionLogs: maps.Clone(s.detectionLogs),
		imageLogs:     maps.Clone(s.imageLogs),
		frames:        maps.Clone(s.frames),
		links:         make(map[ports.LinkKind]map[domain.Link]struct{}),
	}
	for k, v := range s.links {
		c.links[k] = maps.Clone(v)
	}
	return c
}

// MemStore is an in-memory ports.Store. A transaction works on a copy of
// the committed state and replaces it on commit.
type MemStore struct {
	mu        sync.Mutex
	committed *state

	// CommitErr, when set, makes every commit fail.
	CommitErr error
}

// Ensure MemStore implements Store
var _ ports.Store = (*MemStore)(nil)

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{committed: newState()}
}

func (m *MemStore) Begin(ctx context.Context) (ports.StoreTx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memTx{store: m, st: m.committed.clone()}, nil
}

func (m *MemStore) ListSources(ctx context.Context) ([]domain.SourceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bySource := make(map[string]*domain.SourceSummary)
	groupSource := make(map[uuid.UUID]string)
	for _, g := range m.committed.groups {
		s, ok := bySource[g.Source]
		if !ok {
			s = &domain.SourceSummary{Name: g.Source, Start: g.Start, End: g.End}
			bySource[g.Source] = s
		}
		s.Groups++
		if g.Start.Before(s.Start) {
			s.Start = g.Start
		}
		if g.End.After(s.End) {
			s.End = g.End
		}
		groupSource[g.UID] = g.Source
	}
	for _, t := range m.committed.tracks {
		if s, ok := bySource[groupSource[t.GroupUID]]; ok {
			s.Tracks++
		}
	}
	for _, p := range m.committed.points {
		if s, ok := bySource[groupSource[p.GroupUID]]; ok {
			s.Points++
		}
	}
	for l := range m.committed.links[ports.LinkFrame] {
		if s, ok := bySource[groupSource[l.Group]]; ok {
			s.Frames++
		}
	}

	out := make([]domain.SourceSummary, 0, len(bySource))
	for _, s := range bySource {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) Close() error { return nil }

// Model returns every committed entity and link.
func (m *MemStore) Model() *domain.Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.committed
	model := domain.NewModel()
	model.Groups = maps.Clone(s.groups)
	model.Tracks = maps.Clone(s.tracks)
	model.Points = maps.Clone(s.points)
	model.DetectionLogs = maps.Clone(s.detectionLogs)
	model.ImageLogs = maps.Clone(s.imageLogs)
	model.Frames = maps.Clone(s.frames)
	model.DetectionLogLinks = maps.Clone(s.links[ports.LinkDetectionLog])
	model.ImageLogLinks = maps.Clone(s.links[ports.LinkImageLog])
	model.FrameLinks = maps.Clone(s.links[ports.LinkFrame])
	return model
}

type memTx struct {
	mu    sync.Mutex
	store *MemStore
	st    *state
	done  bool
}

// Ensure memTx implements StoreTx
var _ ports.StoreTx = (*memTx)(nil)

func (t *memTx) lock() (*state, func(), error) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil, nil, errTxDone
	}
	return t.st, t.mu.Unlock, nil
}

func (t *memTx) FindGroup(ctx context.Context, key ports.GroupLookup) (*domain.DetectionGroup, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	var best *domain.DetectionGroup
	for _, g := range st.groups {
		if g.GID != key.GID || g.SourceID != key.SourceID || g.Source != key.Source || g.Split.IsSuccessor() {
			continue
		}
		if best == nil || g.Split.Index() > best.Split.Index() {
			best = &g
		}
	}
	return best, nil
}

func (t *memTx) FindGroupByKey(ctx context.Context, key domain.GroupKey) (*domain.DetectionGroup, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, g := range st.groups {
		if g.Key() == key {
			return &g, nil
		}
	}
	return nil, nil
}

func (t *memTx) GroupByUID(ctx context.Context, uid uuid.UUID) (*domain.DetectionGroup, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	if g, ok := st.groups[uid]; ok {
		return &g, nil
	}
	return nil, nil
}

func (t *memTx) GroupFamily(ctx context.Context, key domain.FamilyKey, source string) ([]domain.DetectionGroup, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.DetectionGroup
	for _, g := range st.groups {
		if g.Family() == key && g.Source == source {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Split.Index() < out[j].Split.Index() })
	return out, nil
}

func (t *memTx) UpsertGroup(ctx context.Context, g *domain.DetectionGroup) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	for uid, other := range st.groups {
		if uid != g.UID && other.Key() == g.Key() {
			return fmt.Errorf("unique constraint: group key %+v", g.Key())
		}
	}
	st.groups[g.UID] = *g
	return nil
}

func (t *memTx) DeleteGroup(ctx context.Context, uid uuid.UUID) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	delete(st.groups, uid)
	for _, links := range st.links {
		for l := range links {
			if l.Group == uid {
				delete(links, l)
			}
		}
	}
	return nil
}

func (t *memTx) FindTrack(ctx context.Context, key domain.TrackKey) (*domain.Track, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, tr := range st.tracks {
		if tr.Key() == key {
			return &tr, nil
		}
	}
	return nil, nil
}

func (t *memTx) UpsertTrack(ctx context.Context, tr *domain.Track) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	for uid, other := range st.tracks {
		if uid != tr.UID && other.Key() == tr.Key() {
			return fmt.Errorf("unique constraint: track key %+v", tr.Key())
		}
	}
	st.tracks[tr.UID] = *tr
	return nil
}

func (t *memTx) DeleteTrack(ctx context.Context, uid uuid.UUID) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	delete(st.tracks, uid)
	return nil
}

func (t *memTx) PointsByTrack(ctx context.Context, trackUID uuid.UUID) ([]domain.Point, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.Point
	for _, p := range st.points {
		if p.TrackUID == trackUID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (t *memTx) HasPointNear(ctx context.Context, sensorID int, ts time.Time, tolerance time.Duration) (bool, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return false, err
	}
	defer unlock()
	for _, p := range st.points {
		if p.SensorID != sensorID {
			continue
		}
		if d := p.Time.Sub(ts); d >= -tolerance && d <= tolerance {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) UpsertPoint(ctx context.Context, p *domain.Point) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	st.points[p.UID] = *p
	return nil
}

func (t *memTx) DeletePoint(ctx context.Context, uid uuid.UUID) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	delete(st.points, uid)
	return nil
}

func (t *memTx) DeleteOrphanPoints(ctx context.Context) (int64, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for uid, p := range st.points {
		if _, ok := st.groups[p.GroupUID]; !ok {
			delete(st.points, uid)
			n++
		}
	}
	return n, nil
}

func (t *memTx) FindDetectionLog(ctx context.Context, filename string) (*domain.DetectionLog, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, l := range st.detectionLogs {
		if l.Filename == filename {
			return &l, nil
		}
	}
	return nil, nil
}

func (t *memTx) UpsertDetectionLog(ctx context.Context, l *domain.DetectionLog) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	for uid, other := range st.detectionLogs {
		if uid != l.UID && other.Filename == l.Filename {
			return fmt.Errorf("unique constraint: detection log %s", l.Filename)
		}
	}
	st.detectionLogs[l.UID] = *l
	return nil
}

func (t *memTx) DeleteDetectionLog(ctx context.Context, uid uuid.UUID) error {
	return t.deleteTarget(ports.LinkDetectionLog, uid, func(st *state) { delete(st.detectionLogs, uid) })
}

func (t *memTx) FindImageLog(ctx context.Context, filename string) (*domain.ImageLog, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, l := range st.imageLogs {
		if l.Filename == filename {
			return &l, nil
		}
	}
	return nil, nil
}

func (t *memTx) UpsertImageLog(ctx context.Context, l *domain.ImageLog) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	for uid, other := range st.imageLogs {
		if uid != l.UID && other.Filename == l.Filename {
			return fmt.Errorf("unique constraint: image log %s", l.Filename)
		}
	}
	st.imageLogs[l.UID] = *l
	return nil
}

func (t *memTx) DeleteImageLog(ctx context.Context, uid uuid.UUID) error {
	return t.deleteTarget(ports.LinkImageLog, uid, func(st *state) { delete(st.imageLogs, uid) })
}

func (t *memTx) FindFrame(ctx context.Context, filename string) (*domain.Frame, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, f := range st.frames {
		if f.Filename == filename {
			return &f, nil
		}
	}
	return nil, nil
}

func (t *memTx) UpsertFrame(ctx context.Context, f *domain.Frame) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	for uid, other := range st.frames {
		if uid != f.UID && other.Filename == f.Filename {
			return fmt.Errorf("unique constraint: frame %s", f.Filename)
		}
	}
	st.frames[f.UID] = *f
	return nil
}

func (t *memTx) DeleteFrame(ctx context.Context, uid uuid.UUID) error {
	return t.deleteTarget(ports.LinkFrame, uid, func(st *state) { delete(st.frames, uid) })
}

func (t *memTx) deleteTarget(kind ports.LinkKind, uid uuid.UUID, del func(*state)) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	del(st)
	for l := range st.links[kind] {
		if l.Target == uid {
			delete(st.links[kind], l)
		}
	}
	return nil
}

func (t *memTx) targetExists(st *state, kind ports.LinkKind, uid uuid.UUID) bool {
	var ok bool
	switch kind {
	case ports.LinkDetectionLog:
		_, ok = st.detectionLogs[uid]
	case ports.LinkImageLog:
		_, ok = st.imageLogs[uid]
	case ports.LinkFrame:
		_, ok = st.frames[uid]
	}
	return ok
}

func (t *memTx) Link(ctx context.Context, kind ports.LinkKind, l domain.Link) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := st.groups[l.Group]; !ok {
		return fmt.Errorf("foreign key: group %s", l.Group)
	}
	if !t.targetExists(st, kind, l.Target) {
		return fmt.Errorf("foreign key: %s %s", kind, l.Target)
	}
	st.links[kind][l] = struct{}{}
	return nil
}

func (t *memTx) Unlink(ctx context.Context, kind ports.LinkKind, l domain.Link) error {
	st, unlock, err := t.lock()
	if err != nil {
		return err
	}
	defer unlock()
	delete(st.links[kind], l)
	return nil
}

func (t *memTx) Refs(ctx context.Context, kind ports.LinkKind, target uuid.UUID) (int, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for l := range st.links[kind] {
		if l.Target == target {
			n++
		}
	}
	return n, nil
}

func (t *memTx) Snapshot(ctx context.Context, source string) (*domain.Model, error) {
	st, unlock, err := t.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	m := domain.NewModel()
	for _, g := range st.groups {
		if g.Source == source {
			m.AddGroup(g)
		}
	}
	for _, tr := range st.tracks {
		if _, ok := m.Groups[tr.GroupUID]; ok {
			m.AddTrack(tr)
		}
	}
	for _, p := range st.points {
		_, byGroup := m.Groups[p.GroupUID]
		_, byTrack := m.Tracks[p.TrackUID]
		if byGroup || byTrack {
			m.AddPoint(p)
		}
	}
	for l := range st.links[ports.LinkDetectionLog] {
		if _, ok := m.Groups[l.Group]; ok {
			m.AddDetectionLog(st.detectionLogs[l.Target])
			m.LinkDetectionLog(l.Group, l.Target)
		}
	}
	for l := range st.links[ports.LinkImageLog] {
		if _, ok := m.Groups[l.Group]; ok {
			m.AddImageLog(st.imageLogs[l.Target])
			m.LinkImageLog(l.Group, l.Target)
		}
	}
	for l := range st.links[ports.LinkFrame] {
		if _, ok := m.Groups[l.Group]; ok {
			m.AddFrame(st.frames[l.Target])
			m.LinkFrame(l.Group, l.Target)
		}
	}
	return m, nil
}

func (t *memTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.done = true
	if t.store.CommitErr != nil {
		return t.store.CommitErr
	}
	t.store.mu.Lock()
	t.store.committed = t.st
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.done = true
	return nil
}
