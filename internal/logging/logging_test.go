package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "ingest.log")

	logger, err := New(Options{Level: "info", File: file, MaxSizeMB: 1, Console: &console})
	require.NoError(t, err)

	logger.Info("group split", zap.Int64("gid", 7), zap.Int("successors", 1))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	assert.Contains(t, console.String(), "group split")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "group split", entry["msg"])
	assert.EqualValues(t, 7, entry["gid"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWithoutFile(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Options{Level: "debug", Console: &console})
	require.NoError(t, err)

	logger.Debug("visible")
	assert.Contains(t, console.String(), "visible")
}
