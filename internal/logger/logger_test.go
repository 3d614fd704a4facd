package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning ", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, ParseLevel("INFO", slog.LevelError))
	assert.Equal(t, slog.LevelError, ParseLevel("loud", slog.LevelError))
}

func TestDefaultConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("MUSICDECK_LOG_LEVEL", "debug")
	assert.Equal(t, slog.LevelDebug, DefaultConfig().Level)

	t.Setenv("MUSICDECK_LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, DefaultConfig().Level)
}

func TestNewLogger_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})

	log.Info("hidden")
	log.Warn("shown", "track", "song")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "song", record["track"])
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deck.log")

	log, closer, err := OpenFile(path, slog.LevelInfo)
	require.NoError(t, err)
	log.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
}
