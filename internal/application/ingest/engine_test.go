package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sealhits/internal/application"
	"sealhits/internal/application/ingest/ingesttest"
	"sealhits/internal/domain"
	"sealhits/internal/ports"
)

const sessionPath = "/disk1/PamGuard.sqlite3"

var t0 = time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func record(track int64, sec float64) ports.DetectionRecord {
	return ports.DetectionRecord{
		TrackID:     track,
		Time:        at(sec),
		SensorID:    854,
		MinBearing:  1.2,
		MaxBearing:  -1.2,
		MinRange:    2,
		MaxRange:    4,
		PeakBearing: 0.1,
		PeakRange:   3,
		Intensity:   180,
		Occupancy:   0.4,
		ObjSize:     12,
	}
}

// modelCmp compares split states by value.
var modelCmp = cmp.Comparer(func(a, b domain.SplitState) bool { return a == b })

type fixture struct {
	store     *ingesttest.MemStore
	disk      *ingesttest.Disk
	artifacts *ingesttest.Artifacts
	session   ingesttest.Session
	engine    *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     ingesttest.NewMemStore(),
		disk:      ingesttest.NewDisk(),
		artifacts: ingesttest.NewArtifacts(),
		session:   ingesttest.Session{},
	}
	f.engine = NewEngine(Deps{
		Store:      f.store,
		Session:    f.session,
		Detections: f.disk,
		Images:     f.disk,
		Locator:    f.disk,
		Artifacts:  f.artifacts,
	}, zaptest.NewLogger(t))
	return f
}

// request points the session database at groups and returns a request
// for source disk1.
func (f *fixture) request(groups ...ports.SessionGroup) Request {
	f.session[sessionPath] = &ports.SessionData{Groups: groups}
	return Request{
		SourceName:      "disk1",
		SourceAlias:     "disk1",
		SessionDBPath:   sessionPath,
		DetectionLogDir: "/pgdf",
		ImageLogDir:     "/glf",
		OutputDir:       "/out",
		Workers:         3,
	}
}

// seedSplitScenario writes group G (id 7, row 3) with five points and a
// six second gap after the third, plus an image log covering it.
func (f *fixture) seedSplitScenario() ports.SessionGroup {
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf",
		record(101, 10), record(101, 11), record(101, 12), record(101, 18), record(101, 19))
	f.disk.AddImageLog("/glf", "log_2023-05-01-100000.glf",
		ingesttest.Frame{Time: at(10), SensorID: 854, Range: 55.4},
		ingesttest.Frame{Time: at(15), SensorID: 854, Range: 55.4},
		ingesttest.Frame{Time: at(30), SensorID: 854, Range: 55.4},
	)
	return ports.SessionGroup{
		ID:        3,
		UID:       7,
		Start:     at(0),
		End:       at(120),
		TrackType: "Seal",
		Comment:   "two seals",
		Mammal:    2,
		Bird:      -1,
		Children:  []ports.SessionChild{{UID: 101, Start: at(10), BinaryFile: `C:\pamguard\i_Tracks_1.pgdf`}},
	}
}

func bySplit(m *domain.Model) map[int]domain.DetectionGroup {
	out := make(map[int]domain.DetectionGroup)
	for _, g := range m.Groups {
		out[g.Split.Index()] = g
	}
	return out
}

func assertClosure(t *testing.T, m *domain.Model) {
	t.Helper()
	for _, p := range m.Points {
		g, ok := m.Groups[p.GroupUID]
		if !assert.True(t, ok, "point %s has no group", p.UID) {
			continue
		}
		assert.True(t, g.Contains(p.Time), "point at %s outside %s..%s", p.Time, g.Start, g.End)
	}
	for _, tr := range m.Tracks {
		_, ok := m.Groups[tr.GroupUID]
		assert.True(t, ok, "track %d has no group", tr.PamID)
	}
}

func TestIngestSplitScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(f.seedSplitScenario())

	sum, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, domain.ModelCounts{Groups: 2, Tracks: 1, Points: 5, DetectionLogs: 1, ImageLogs: 1, Frames: 2}, sum.Created)
	assert.Zero(t, sum.Deleted.Total())

	first := f.store.Model()
	groups := bySplit(first)
	require.Len(t, groups, 2)

	orig, succ := groups[0], groups[1]
	assert.True(t, orig.Split.IsOriginal())
	assert.WithinDuration(t, at(10), orig.Start, 0)
	assert.WithinDuration(t, at(12), orig.End, 0, "original ends at the last point before the gap")
	assert.True(t, succ.Split.IsSuccessor())
	assert.WithinDuration(t, at(14), succ.Start, 0, "successor padded by the buffer")
	assert.WithinDuration(t, at(23), succ.End, 0)
	assert.Equal(t, "seal", succ.Code)
	assert.Equal(t, "two seals", succ.Comment)
	assert.Equal(t, 2, succ.Mammal)
	assert.Equal(t, "disk1", succ.Source)

	var inOrig, inSucc int
	for _, p := range first.Points {
		switch p.GroupUID {
		case orig.UID:
			inOrig++
		case succ.UID:
			inSucc++
		}
	}
	assert.Equal(t, 3, inOrig)
	assert.Equal(t, 2, inSucc)
	assertClosure(t, first)

	for _, tr := range first.Tracks {
		assert.Equal(t, "Gemini_Tracks_1.pgdf", tr.LogName)
	}
	assert.Len(t, first.DetectionLogLinks, 2, "successor inherits the detection log")
	assert.Len(t, first.ImageLogLinks, 2)
	assert.Len(t, first.FrameLinks, 2)

	hits := map[string]bool{}
	for _, fr := range first.Frames {
		hits[fr.Filename] = fr.HasDetection
		assert.Equal(t, 55, fr.Range)
	}
	assert.Equal(t, map[string]bool{
		"2023_05_01_10_00_10_000_854.fits": true,
		"2023_05_01_10_00_15_000_854.fits": false,
	}, hits)
	assert.Equal(t, []string{
		"/out/2023_05_01/2023_05_01_10_00_10_000_854.fits.lz4",
		"/out/2023_05_01/2023_05_01_10_00_15_000_854.fits.lz4",
	}, f.artifacts.Paths())

	t.Run("re-ingest is idempotent", func(t *testing.T) {
		sum, err := f.engine.Ingest(ctx, req)
		require.NoError(t, err)

		assert.Zero(t, sum.Created.Total(), "no new entities")
		assert.Zero(t, sum.Deleted.Total(), "nothing deleted")
		assert.Equal(t, first.Counts(), sum.Model)
		assert.Equal(t, 2, f.artifacts.Writes(), "existing artifacts are not rewritten")

		if diff := cmp.Diff(first, f.store.Model(), modelCmp); diff != "" {
			t.Errorf("store changed on re-ingest (-first +second):\n%s", diff)
		}
	})
}

func TestIngestRemovalScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf", record(101, 10), record(101, 11))
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_2.pgdf", record(201, 100), record(201, 101))
	g := ports.SessionGroup{ID: 3, UID: 7, Start: at(10), End: at(11),
		Children: []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_1.pgdf"}}}
	h := ports.SessionGroup{ID: 4, UID: 8, Start: at(100), End: at(101),
		Children: []ports.SessionChild{{UID: 201, BinaryFile: "Gemini_Tracks_2"}}}

	req := f.request(g, h)
	req.SkipImageLogs = true
	_, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	before := f.store.Model()
	gUID, hUID := groupUID(before, 7), groupUID(before, 8)

	req = f.request(h)
	req.SkipImageLogs = true
	sum, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, domain.ModelCounts{Groups: 1, Tracks: 1, Points: 2, DetectionLogs: 1}, sum.Deleted)

	after := f.store.Model()
	assert.NotContains(t, after.Groups, gUID)
	assert.Contains(t, after.Groups, hUID, "surviving group keeps its UID")
	for _, tr := range after.Tracks {
		assert.NotEqual(t, gUID, tr.GroupUID)
	}
	for _, p := range after.Points {
		assert.NotEqual(t, gUID, p.GroupUID)
	}
	assert.Len(t, after.DetectionLogs, 1)
}

func groupUID(m *domain.Model, gid int64) uuid.UUID {
	for _, g := range m.Groups {
		if g.GID == gid && g.Split.Index() <= 0 {
			return g.UID
		}
	}
	return uuid.Nil
}

func TestIngestRejectsOversizeGroup(t *testing.T) {
	f := newFixture(t)
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf", record(101, 10), record(101, 11))
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_2.pgdf", record(201, 0), record(201, 850))

	long := ports.SessionGroup{ID: 4, UID: 8, Start: at(0), End: at(900),
		Children: []ports.SessionChild{{UID: 201, BinaryFile: "Gemini_Tracks_2.pgdf"}}}
	ok := ports.SessionGroup{ID: 3, UID: 7, Start: at(10), End: at(11),
		Children: []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_1.pgdf"}}}

	req := f.request(long, ok)
	req.SkipImageLogs = true
	sum, err := f.engine.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, countKind(sum.Diagnostics, application.ErrOversizeGroup))
	m := f.store.Model()
	assert.Len(t, m.Groups, 1)
	for _, g := range m.Groups {
		assert.Equal(t, int64(7), g.GID)
	}
	assert.Len(t, m.Tracks, 1)
	assert.Len(t, m.Points, 2)
}

func TestIngestRejectsGroupOversizeAfterTimeCorrection(t *testing.T) {
	f := newFixture(t)
	var recs []ports.DetectionRecord
	for sec := 0; sec <= 200; sec += 2 {
		recs = append(recs, record(201, float64(sec)))
	}
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_2.pgdf", recs...)
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf", record(101, 300), record(101, 301))

	// the session window is short; the points span 200s with no gap
	long := ports.SessionGroup{ID: 4, UID: 8, Start: at(0), End: at(60),
		Children: []ports.SessionChild{{UID: 201, BinaryFile: "Gemini_Tracks_2.pgdf"}}}
	ok := ports.SessionGroup{ID: 3, UID: 7, Start: at(300), End: at(301),
		Children: []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_1.pgdf"}}}

	req := f.request(long, ok)
	req.SkipImageLogs = true
	req.MaxGroupDuration = 100 * time.Second
	sum, err := f.engine.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, countKind(sum.Diagnostics, application.ErrOversizeGroup))
	m := f.store.Model()
	require.Len(t, m.Groups, 1)
	for _, g := range m.Groups {
		assert.Equal(t, int64(7), g.GID)
		assert.LessOrEqual(t, g.Duration(), req.MaxGroupDuration)
	}
	assert.Len(t, m.Tracks, 1)
	assert.Len(t, m.Points, 2)
	require.Len(t, m.DetectionLogs, 1)
	for _, l := range m.DetectionLogs {
		assert.Equal(t, "Gemini_Tracks_1.pgdf", l.Filename)
	}
	assertClosure(t, m)
}

func TestIngestOverlappingGroupsShareFrame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf", record(101, 10), record(101, 11), record(101, 12))
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_2.pgdf", record(201, 11), record(201, 12), record(201, 13))
	f.disk.AddImageLog("/glf", "log_2023-05-01-100000.glf",
		ingesttest.Frame{Time: at(11.5), SensorID: 854, Range: 40},
		ingesttest.Frame{Time: at(12), SensorID: 854, Range: 40},
	)

	req := f.request(
		ports.SessionGroup{ID: 3, UID: 7, Start: at(10), End: at(12),
			Children: []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_1.pgdf"}}},
		ports.SessionGroup{ID: 4, UID: 8, Start: at(11), End: at(13),
			Children: []ports.SessionChild{{UID: 201, BinaryFile: "Gemini_Tracks_2.pgdf"}}},
	)
	req.Workers = 4

	sum, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Created.Frames)

	m := f.store.Model()
	names := make(map[string]int)
	for _, fr := range m.Frames {
		names[fr.Filename]++
	}
	assert.Equal(t, map[string]int{
		"2023_05_01_10_00_11_500_854.fits": 1,
		"2023_05_01_10_00_12_000_854.fits": 1,
	}, names)

	linked := make(map[uuid.UUID]int)
	for l := range m.FrameLinks {
		linked[l.Target]++
	}
	require.Len(t, linked, 2)
	for uid, n := range linked {
		assert.Equal(t, 2, n, "frame %s linked to both groups", m.Frames[uid].Filename)
	}
	assert.Equal(t, 2, f.artifacts.Writes(), "one artifact per frame")

	sum, err = f.engine.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Zero(t, sum.Created.Frames)
	assert.Len(t, f.store.Model().Frames, 2)
}

func TestIngestStalePointsDoNotMarkFrames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf",
		record(101, 10), record(101, 11), record(101, 12), record(101, 13))
	g := ports.SessionGroup{ID: 3, UID: 7, Start: at(10), End: at(13),
		Children: []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_1.pgdf"}}}

	req := f.request(g)
	req.SkipImageLogs = true
	_, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	// the point at 12s is gone from the log; a frame lands on it
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf", record(101, 10), record(101, 11), record(101, 13))
	f.disk.AddImageLog("/glf", "log_2023-05-01-100000.glf",
		ingesttest.Frame{Time: at(11), SensorID: 854, Range: 40},
		ingesttest.Frame{Time: at(12), SensorID: 854, Range: 40},
	)
	req.SkipImageLogs = false
	sum, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Deleted.Points)

	hits := make(map[string]bool)
	for _, fr := range f.store.Model().Frames {
		hits[fr.Filename] = fr.HasDetection
	}
	assert.Equal(t, map[string]bool{
		"2023_05_01_10_00_11_000_854.fits": true,
		"2023_05_01_10_00_12_000_854.fits": false,
	}, hits)
}

func countKind(diags []application.Diagnostic, kind error) int {
	n := 0
	for _, d := range diags {
		if errors.Is(d.Kind, kind) {
			n++
		}
	}
	return n
}

func TestIngestDropsUnusableGroups(t *testing.T) {
	tests := []struct {
		name        string
		group       ports.SessionGroup
		wantDefects int
	}{
		{
			name:        "no children",
			group:       ports.SessionGroup{ID: 3, UID: 7, Start: at(0), End: at(10)},
			wantDefects: 1,
		},
		{
			name: "detection log missing",
			group: ports.SessionGroup{ID: 3, UID: 7, Start: at(0), End: at(10),
				Children: []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_9.pgdf"}}},
			// missing log, no points to correct times, no points to split
			wantDefects: 3,
		},
		{
			name: "detection log corrupt",
			group: ports.SessionGroup{ID: 3, UID: 7, Start: at(0), End: at(10),
				Children: []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_1.pgdf"}}},
			wantDefects: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf", record(101, 1))
			f.disk.Break("/pgdf", "Gemini_Tracks_1.pgdf")

			req := f.request(tt.group)
			req.SkipImageLogs = true
			sum, err := f.engine.Ingest(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDefects, countKind(sum.Diagnostics, application.ErrSourceDefect))
			assert.True(t, f.store.Model().Empty(), "nothing persisted")
		})
	}
}

func TestIngestDuplicateTrackIsIntegrityViolation(t *testing.T) {
	f := newFixture(t)
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf", record(101, 10), record(101, 11))

	child := []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_1.pgdf"}}
	req := f.request(
		ports.SessionGroup{ID: 3, UID: 7, Start: at(10), End: at(11), Children: child},
		ports.SessionGroup{ID: 4, UID: 8, Start: at(10), End: at(11), Children: child},
	)
	req.SkipImageLogs = true

	_, err := f.engine.Ingest(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, application.ErrIntegrityViolation)
	assert.True(t, f.store.Model().Empty(), "rolled back")
}

func TestIngestRollsBackWhenCommitFails(t *testing.T) {
	f := newFixture(t)
	req := f.request(f.seedSplitScenario())
	f.store.CommitErr = errors.New("disk I/O error")

	_, err := f.engine.Ingest(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, application.ErrTransaction)

	var txErr *application.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "commit", txErr.Op)
	assert.Empty(t, txErr.OrphanTracks)
	assert.True(t, f.store.Model().Empty())
}

func TestIngestDryRun(t *testing.T) {
	f := newFixture(t)
	req := f.request(f.seedSplitScenario())
	req.DryRun = true

	sum, err := f.engine.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, sum.DryRun)
	assert.Equal(t, 2, sum.Created.Groups)
	assert.Equal(t, 2, sum.Created.Frames)
	assert.True(t, f.store.Model().Empty(), "dry run leaves the store untouched")
	assert.Zero(t, f.artifacts.Writes(), "dry run writes no artifacts")
}

func TestIngestRenameWithAlias(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(f.seedSplitScenario())
	req.SourceName, req.SourceAlias = "old.sqlite3", ""
	_, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)
	first := f.store.Model()

	req.SourceName, req.SourceAlias = "new.sqlite3", "old.sqlite3"
	sum, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	assert.Zero(t, sum.Created.Total())
	assert.Zero(t, sum.Deleted.Total())
	assert.Equal(t, "old.sqlite3", sum.Lookup)

	second := f.store.Model()
	assert.Len(t, second.Groups, 2)
	for uid, g := range second.Groups {
		assert.Contains(t, first.Groups, uid)
		assert.Equal(t, "new.sqlite3", g.Source)
	}

	sources, err := f.store.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "new.sqlite3", sources[0].Name)
}

func TestIngestSkipImageLogsKeepsStoredFrames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(f.seedSplitScenario())
	_, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	req.SkipImageLogs = true
	sum, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	assert.Zero(t, sum.Deleted.Total())
	m := f.store.Model()
	assert.Len(t, m.Frames, 2)
	assert.Len(t, m.FrameLinks, 2)
	assert.Len(t, m.ImageLogs, 1)
}

func TestIngestArtifactWriteFailureStillCreatesFrames(t *testing.T) {
	f := newFixture(t)
	req := f.request(f.seedSplitScenario())
	f.artifacts.WriteErr = errors.New("no space left on device")

	sum, err := f.engine.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, countKind(sum.Diagnostics, application.ErrArtifactWrite))
	assert.Len(t, f.store.Model().Frames, 2)
}

func TestIngestWidensNearestSegmentForLatePoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(f.seedSplitScenario())
	_, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf",
		record(101, 10), record(101, 11), record(101, 12), record(101, 18), record(101, 19), record(101, 25))
	sum, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, domain.ModelCounts{Points: 1}, sum.Created)
	assert.Equal(t, 1, countKind(sum.Diagnostics, application.ErrSourceDefect))

	m := f.store.Model()
	groups := bySplit(m)
	require.Len(t, groups, 2, "an evaluated group is never split again")
	assert.WithinDuration(t, at(12), groups[0].End, 0)
	assert.WithinDuration(t, at(25), groups[1].End, 0)
	assertClosure(t, m)
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.DetectionLogDir = ""

	_, err := f.engine.Ingest(context.Background(), req)
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "detectionLogDir", vErr.Field)
}

func TestUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(f.seedSplitScenario())
	_, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	sum, err := f.engine.Undo(ctx, "disk1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModelCounts{Groups: 2, Tracks: 1, Points: 5, DetectionLogs: 1, ImageLogs: 1, Frames: 2}, sum.Deleted)
	assert.True(t, f.store.Model().Empty())

	_, err = f.engine.Undo(ctx, "disk1")
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestUndoKeepsLogsSharedWithOtherSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.disk.AddDetectionLog("/pgdf", "Gemini_Tracks_1.pgdf", record(101, 10), record(101, 11), record(102, 50))

	req := f.request(ports.SessionGroup{ID: 3, UID: 7, Start: at(10), End: at(11),
		Children: []ports.SessionChild{{UID: 101, BinaryFile: "Gemini_Tracks_1.pgdf"}}})
	req.SkipImageLogs = true
	_, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	req = f.request(ports.SessionGroup{ID: 1, UID: 70, Start: at(50), End: at(50.5),
		Children: []ports.SessionChild{{UID: 102, BinaryFile: "Gemini_Tracks_1.pgdf"}}})
	req.SourceName, req.SourceAlias = "disk2", ""
	req.SkipImageLogs = true
	_, err = f.engine.Ingest(ctx, req)
	require.NoError(t, err)

	sum, err := f.engine.Undo(ctx, "disk1")
	require.NoError(t, err)
	assert.Zero(t, sum.Deleted.DetectionLogs, "log still used by disk2")

	m := f.store.Model()
	assert.Len(t, m.Groups, 1)
	assert.Len(t, m.DetectionLogs, 1)
	assert.Len(t, m.DetectionLogLinks, 1)
}
