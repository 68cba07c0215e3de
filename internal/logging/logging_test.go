package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.log")

	logger, closer := New(Config{Level: "warn", File: path, MaxSizeMB: 1, MaxBackups: 1})
	logger.Info("dropped below level")
	logger.Warn("redemption mode not supported", "mode", "cash")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "redemption mode not supported")
	assert.Contains(t, string(data), "mode=cash")
	assert.NotContains(t, string(data), "dropped below level")
}

func TestNew_NoFile(t *testing.T) {
	logger, closer := New(Config{Level: "info"})
	require.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}
