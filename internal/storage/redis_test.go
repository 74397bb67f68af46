package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/session"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dataDir := t.TempDir()
	r := NewRedisStorageWithClient(client, dataDir, testLogger())
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedisStorage_SessionLifecycle(t *testing.T) {
	r, mr := setupRedisStorage(t)
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))

	s := session.New("intro", "Sam")
	s.PlayerKeyword = "me"
	vars := variable.NewStore()
	vars.Create("visits", "3")
	vars.Create("mood", "calm")
	s.Capture(vars)
	require.NoError(t, r.SaveSession(ctx, s))

	assert.True(t, mr.Exists("session:"+s.ID.String()))
	assert.Equal(t, SessionTTL, mr.TTL("session:"+s.ID.String()))

	loaded, err := r.LoadSession(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, "me", loaded.PlayerKeyword)
	assert.Equal(t, s.Variables, loaded.Variables)

	restored, err := loaded.Store()
	require.NoError(t, err)
	v, err := restored.Get("visits")
	require.NoError(t, err)
	assert.Equal(t, variable.Int, v.Type())

	require.NoError(t, r.DeleteSession(ctx, s.ID))
	loaded, err = r.LoadSession(ctx, s.ID)
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_LoadMissingAndCorrupt(t *testing.T) {
	r, mr := setupRedisStorage(t)
	ctx := context.Background()

	loaded, err := r.LoadSession(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, loaded)

	id := uuid.New()
	require.NoError(t, mr.Set("session:"+id.String(), "{not json"))
	_, err = r.LoadSession(ctx, id)
	assert.Error(t, err)

	assert.Error(t, r.SaveSession(ctx, nil))
}

func TestRedisStorage_PingFailsWhenDown(t *testing.T) {
	r := NewRedisStorage("127.0.0.1:1", t.TempDir(), testLogger())
	defer r.Close()
	assert.Error(t, r.Ping(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, r.WaitForConnection(ctx, 3, time.Second))
}

func TestRedisStorage_Scripts(t *testing.T) {
	r, _ := setupRedisStorage(t)
	ctx := context.Background()

	keys, err := r.ListScripts(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	dir := filepath.Join(r.dataDir, "scripts")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "act1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intro.dlg"), []byte("none\t\tHi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "act1", "scene.txt"), []byte("none\t\tScene"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	keys, err = r.ListScripts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"act1/scene", "intro"}, keys)

	text, err := r.GetScript(ctx, "act1/scene")
	require.NoError(t, err)
	assert.Equal(t, "none\t\tScene", text)

	_, err = r.GetScript(ctx, "missing")
	assert.ErrorIs(t, err, asset.ErrNotFound)
}
