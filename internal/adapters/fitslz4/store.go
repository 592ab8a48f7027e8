package fitslz4

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"sealhits/internal/ports"
)

// ArtifactStore implements ports.ArtifactStore on the local filesystem
type ArtifactStore struct{}

// Ensure ArtifactStore implements ports.ArtifactStore
var _ ports.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore creates a new ArtifactStore
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{}
}

// Exists reports whether an artifact is already present at path
func (s *ArtifactStore) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write encodes img as FITS, compresses it and moves it into place
func (s *ArtifactStore) Write(path string, img *ports.FrameImage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".frame-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := lz4.NewWriter(tmp)
	if err := encodeFITS(zw, img); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to compress frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

// Read decompresses an artifact and returns its header cards and pixels
func Read(path string) (Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(lz4.NewReader(f))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return decodeFITS(data)
}
