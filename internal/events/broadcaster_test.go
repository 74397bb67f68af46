package events

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/pkg/engine"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/stage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcaster_EngineRun(t *testing.T) {
	client := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id := uuid.New()
	events, err := Subscribe(ctx, client, id, quietLogger())
	require.NoError(t, err)

	table := instruction.NewTable()
	table.Append(0, &instruction.SystemOp{Op: instruction.SysJump, Phase: 3})
	table.Append(3, &instruction.Speech{Talker: "none", Text: "done"})

	reader := stage.NewReader(nil)
	b := NewBroadcaster(client, id, "intro", quietLogger())
	e := engine.New(stage.New().Host("Sam", reader, nil, nil), engine.WithObserver(b))
	require.NoError(t, e.Start(table))
	require.NoError(t, e.Run(ctx))

	ev := next(t, events)
	assert.Equal(t, EventTypeStarted, ev.Type)
	assert.Equal(t, id.String(), ev.SessionID)
	assert.Equal(t, "intro", ev.Script)

	ev = next(t, events)
	assert.Equal(t, EventTypePhaseChanged, ev.Type)
	assert.Equal(t, float64(0), ev.Data["from"])
	assert.Equal(t, float64(3), ev.Data["to"])

	assert.Equal(t, EventTypeEnded, next(t, events).Type)
}

func TestBroadcaster_Skipped(t *testing.T) {
	client := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id := uuid.New()
	events, err := Subscribe(ctx, client, id, quietLogger())
	require.NoError(t, err)

	b := NewBroadcaster(client, id, "", quietLogger())
	b.Ended(ctx, true)
	assert.Equal(t, EventTypeSkipped, next(t, events).Type)
}

func TestBroadcaster_OtherSessionIsolated(t *testing.T) {
	client := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine, other := uuid.New(), uuid.New()
	events, err := Subscribe(ctx, client, mine, quietLogger())
	require.NoError(t, err)

	NewBroadcaster(client, other, "", quietLogger()).Started(ctx)
	NewBroadcaster(client, mine, "", quietLogger()).Ended(ctx, false)
	assert.Equal(t, EventTypeEnded, next(t, events).Type)
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	client := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := Subscribe(ctx, client, uuid.New(), quietLogger())
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestBroadcaster_PublishFailureDoesNotPanic(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	b := NewBroadcaster(client, uuid.New(), "", quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, b.publish(ctx, Event{Type: EventTypeStarted}))
}
