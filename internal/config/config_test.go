package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"ENVIRONMENT", "LOG_LEVEL", "LOG_FILE", "REDIS_URL", "DATA_DIR", "TRANSCRIPT_DB", "PLAYER_NAME", "PLAYER_KEYWORD", "TIME_SCALE", "PORT", "MANIFEST"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "Player", cfg.PlayerName)
	assert.Equal(t, "player", cfg.PlayerKeyword)
	assert.Equal(t, 1.0, cfg.TimeScale)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "story.yaml", cfg.Manifest)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("REDIS_URL", "localhost:6379")
	t.Setenv("PLAYER_NAME", "Sam")
	t.Setenv("TIME_SCALE", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, "Sam", cfg.PlayerName)
	assert.Equal(t, 0.0, cfg.TimeScale)
}

func TestLoad_BadTimeScale(t *testing.T) {
	for _, v := range []string{"fast", "-1"} {
		t.Setenv("TIME_SCALE", v)
		_, err := Load()
		assert.Error(t, err, v)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

const manifestYAML = `title: The Visit
player: Sam
player_keyword: me
entry: intro
assets: story
characters:
  - key: alice
    name: Alice
    hp: 10
    ac: 12
    stats:
      wisdom: 14
  - key: bob
replacements:
  heck: dickens
`

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "story.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "The Visit", m.Title)
	assert.Equal(t, "me", m.PlayerKeyword)
	assert.Equal(t, filepath.Join(dir, "story"), m.Assets)
	require.Len(t, m.Characters, 2)
	assert.Equal(t, 14, m.Characters[0].Stats["wisdom"])
	assert.Equal(t, "bob", m.Characters[1].Name, "name defaults to the key")
	assert.Equal(t, "dickens", m.Replacements["heck"])

	_, err = LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no entry", "title: x\n"},
		{"bad yaml", "entry: [unclosed\n"},
		{"keyless character", "entry: a\ncharacters:\n  - name: Alice\n"},
		{"duplicate character", "entry: a\ncharacters:\n  - key: a\n  - key: a\n"},
		{"negative max steps", "entry: a\nmax_steps: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
