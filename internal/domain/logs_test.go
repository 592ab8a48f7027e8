package domain

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFrameFilename(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		sensorID int
		want     string
	}{
		{
			name:     "milliseconds padded",
			time:     time.Date(2023, 5, 1, 10, 0, 0, 7*int(time.Millisecond), time.UTC),
			sensorID: 854,
			want:     "2023_05_01_10_00_00_007_854.fits",
		},
		{
			name:     "sub-millisecond truncated",
			time:     time.Date(2023, 5, 1, 10, 0, 0, 250*int(time.Millisecond)+999, time.UTC),
			sensorID: 1,
			want:     "2023_05_01_10_00_00_250_1.fits",
		},
		{
			name:     "non-utc input normalised",
			time:     time.Date(2023, 5, 1, 11, 30, 15, 0, time.FixedZone("BST", 3600)),
			sensorID: 2,
			want:     "2023_05_01_10_30_15_000_2.fits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrameFilename(tt.time, tt.sensorID); got != tt.want {
				t.Errorf("FrameFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArtifactPath(t *testing.T) {
	ts := time.Date(2023, 5, 1, 23, 59, 59, 0, time.UTC)
	got := ArtifactPath("/out", ts, "x.fits")
	want := filepath.Join("/out", "2023_05_01", "x.fits.lz4")
	if got != want {
		t.Errorf("ArtifactPath() = %q, want %q", got, want)
	}
}

func TestGroupWindow(t *testing.T) {
	start := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	g := DetectionGroup{UID: uuid.New(), Start: start, End: start.Add(2 * time.Minute)}

	if !g.Contains(start) || !g.Contains(g.End) {
		t.Error("window should be closed at both ends")
	}
	if g.Contains(g.End.Add(time.Nanosecond)) {
		t.Error("time after end should not be contained")
	}
	if !g.Overlaps(start.Add(-time.Hour), start) {
		t.Error("range touching start should overlap")
	}
	if g.Overlaps(g.End.Add(time.Second), g.End.Add(time.Hour)) {
		t.Error("range after end should not overlap")
	}
	if g.Duration() != 2*time.Minute {
		t.Errorf("Duration() = %v", g.Duration())
	}
}

func TestHumanLabelStable(t *testing.T) {
	uid := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	first := HumanLabel(uid)
	if first == "" {
		t.Fatal("label should not be empty")
	}
	if again := HumanLabel(uid); again != first {
		t.Errorf("label not stable: %q then %q", first, again)
	}
}
