package fitslz4

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealhits/internal/ports"
)

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2023_05_01", "2023_05_01_10_00_00_250_854.fits.lz4")
	img := &ports.FrameImage{
		Time:     time.Date(2023, 5, 1, 10, 0, 0, 250*int(time.Millisecond), time.UTC),
		SensorID: 854,
		Width:    4,
		Height:   3,
		Pixels:   []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}

	s := NewArtifactStore()
	exists, err := s.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Write(path, img))

	exists, err = s.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	header, pixels, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, img.Pixels, pixels)

	tests := []struct {
		key  string
		want int
	}{
		{"SONARID", 854},
		{"WIDTH", 4},
		{"HEIGHT", 3},
		{"YEAR", 2023},
		{"MONTH", 5},
		{"DAY", 1},
		{"HOUR", 10},
		{"MINUTE", 0},
		{"SECOND", 0},
		{"MILLI", 250},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := header.Int(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeFITSBlockAligned(t *testing.T) {
	var buf bytes.Buffer
	img := &ports.FrameImage{Time: time.Now(), Width: 10, Height: 10, Pixels: make([]byte, 100)}
	require.NoError(t, encodeFITS(&buf, img))
	assert.Equal(t, 0, buf.Len()%blockSize)
	assert.Equal(t, 2*blockSize, buf.Len())
}

func TestWriteRejectsBadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.fits.lz4")
	err := NewArtifactStore().Write(path, &ports.FrameImage{Width: 2, Height: 2, Pixels: []byte{1}})
	assert.Error(t, err)

	exists, err := NewArtifactStore().Exists(path)
	require.NoError(t, err)
	assert.False(t, exists, "failed writes leave nothing behind")
}
