package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/session"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStorage_Sessions(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	s := session.New("intro", "Sam")
	vars := variable.NewStore()
	vars.Create("visits", "1")
	s.Capture(vars)
	require.NoError(t, m.SaveSession(ctx, s))

	loaded, err := m.LoadSession(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Sam", loaded.PlayerName)
	assert.Equal(t, s.Variables, loaded.Variables)

	missing, err := m.LoadSession(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, m.DeleteSession(ctx, s.ID))
	loaded, err = m.LoadSession(ctx, s.ID)
	assert.NoError(t, err)
	assert.Nil(t, loaded)

	assert.Error(t, m.SaveSession(ctx, nil))
}

func TestMockStorage_Scripts(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()
	m.AddScript("b", "none\t\tB")
	m.AddScript("a", "none\t\tA")

	keys, err := m.ListScripts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	text, err := m.GetScript(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "none\t\tA", text)

	_, err = m.GetScript(ctx, "c")
	assert.ErrorIs(t, err, asset.ErrNotFound)
}

func TestMockStorage_Ping(t *testing.T) {
	m := NewMockStorage()
	assert.NoError(t, m.Ping(context.Background()))
	m.SetPingError(errors.New("down"))
	assert.EqualError(t, m.Ping(context.Background()), "down")
}
