package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeDetectionLogName(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{name: "already canonical", ref: "Gemini_Tracks_20230501_100000.pgdf", want: "Gemini_Tracks_20230501_100000.pgdf"},
		{name: "missing extension", ref: "Gemini_Tracks_20230501_100000", want: "Gemini_Tracks_20230501_100000.pgdf"},
		{name: "missing prefix", ref: "i_Tracks_20230501_100000.pgdf", want: "Gemini_Tracks_20230501_100000.pgdf"},
		{name: "missing prefix and extension", ref: "i_Tracks_20230501_100000", want: "Gemini_Tracks_20230501_100000.pgdf"},
		{name: "unix directory", ref: "/data/disk1/Gemini_Tracks_1.pgdf", want: "Gemini_Tracks_1.pgdf"},
		{name: "windows directory", ref: `D:\pam\binary\Gemini_Tracks_1.pgdf`, want: "Gemini_Tracks_1.pgdf"},
		{name: "upper case extension", ref: "Gemini_Tracks_1.PGDF", want: "Gemini_Tracks_1.PGDF"},
		{name: "empty", ref: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDetectionLogName(tt.ref); got != tt.want {
				t.Errorf("NormalizeDetectionLogName(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestPointKeyIgnoresMutableFields(t *testing.T) {
	base := Point{
		UID:         uuid.New(),
		Time:        time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
		SensorID:    854,
		MinBearing:  -10.5,
		MaxBearing:  -12.0,
		MinRange:    3.2,
		MaxRange:    4.1,
		PeakBearing: -11,
		PeakRange:   3.7,
		Intensity:   200,
		Occupancy:   0.4,
		ObjSize:     12,
		TrackUID:    uuid.New(),
		GroupUID:    uuid.New(),
	}

	moved := base
	moved.UID = uuid.New()
	moved.PeakRange = 9.9
	moved.GroupUID = uuid.New()
	if base.Key() != moved.Key() {
		t.Error("peak range and group must not affect the natural key")
	}

	shifted := base
	shifted.Time = shifted.Time.Add(time.Millisecond)
	if base.Key() == shifted.Key() {
		t.Error("time must be part of the natural key")
	}

	other := base
	other.TrackUID = uuid.New()
	if base.Key() == other.Key() {
		t.Error("owning track must be part of the natural key")
	}
}
