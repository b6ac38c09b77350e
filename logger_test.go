package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromadmin.log")
	logger := NewLogger(path, true)

	logger.Debug("hidden from file")
	logger.Info("collection created", zap.String("collection", "notes"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "collection created", entry["message"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "notes", entry["collection"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLoggerWithoutFile(t *testing.T) {
	logger := NewLogger("", false)
	require.NotNil(t, logger)
	logger.Info("console only")
}
