package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := SetupTo(&buf, &config.Config{Environment: "production", LogLevel: slog.LevelInfo})
	WithSession(l, "abc").Info("Dialogue started")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Dialogue started", rec["msg"])
	assert.Equal(t, "abc", rec["session_id"])
	assert.Same(t, l, slog.Default())
}

func TestSetup_DevelopmentIsTextAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := SetupTo(&buf, &config.Config{Environment: "development", LogLevel: slog.LevelWarn})
	l.Info("hidden")
	WithError(l, errors.New("boom")).Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "error=boom")
}

func TestSetup_LogFileFanOut(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "dialogue.log")
	l := SetupTo(&buf, &config.Config{LogLevel: slog.LevelDebug, LogFile: path})
	l.With("phase", 2).Debug("Phase changed")

	assert.Contains(t, buf.String(), "Phase changed")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, float64(2), rec["phase"])
}
