package session

import (
	"testing"

	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CaptureAndStore(t *testing.T) {
	s := New("intro", "Sam")
	assert.NotEqual(t, s.ID.String(), New("intro", "Sam").ID.String())
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)

	vars := variable.NewStore()
	vars.Create("visits", "2")
	vars.Create("code", "\"007\"")
	vars.Create("brave", "true")
	s.Capture(vars)
	require.Len(t, s.Variables, 3)

	restored, err := s.Store()
	require.NoError(t, err)
	assert.Equal(t, vars.Snapshot(), restored.Snapshot())

	visits, err := restored.Get("visits")
	require.NoError(t, err)
	assert.Equal(t, variable.Int, visits.Type())
}

func TestSession_StoreRejectsBadSnapshot(t *testing.T) {
	s := New("intro", "Sam")
	s.Variables = []variable.Snapshot{{Key: "x", Type: "int", Value: "abc"}}
	_, err := s.Store()
	assert.Error(t, err)
}
