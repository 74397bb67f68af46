package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/stage"
	"github.com/jwebster45206/dialogue-engine/pkg/textfilter"
	"github.com/jwebster45206/dialogue-engine/pkg/token"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roundTrip = "\tdefine\tscore\t0\n" +
	"Alice\t\tHello {player}!\tvoice:hi\n" +
	"\tselect\tYes|No\t1,2\tsaveto:choice\n" +
	"\tphase\t1\n" +
	"Alice\t\tYou said yes.\n" +
	"\tnextphase\t5\n" +
	"\tphase\t2\n" +
	"Alice\t\tYou said no.\n" +
	"\tphase\t5\n" +
	"Alice\t\tDone.\n"

func texts(lines []capability.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingObserver) Started(context.Context) { r.add("started") }
func (r *recordingObserver) PhaseChanged(_ context.Context, from, to int) {
	r.add(fmt.Sprintf("phase %d->%d", from, to))
}
func (r *recordingObserver) Ended(_ context.Context, skipped bool) {
	if skipped {
		r.add("skipped")
		return
	}
	r.add("ended")
}

func TestEngine_RoundTrip(t *testing.T) {
	vars := variable.NewStore()
	reader := stage.NewReader(nil, 1)
	st := stage.New()
	host := st.Host("Sam", reader, reader, vars)
	memory := transcript.NewMemory()
	obs := &recordingObserver{}

	table, err := parser.Parse(roundTrip, parser.WithCapabilities(host.Capabilities()))
	require.NoError(t, err)

	e := New(host, WithTranscript(memory), WithObserver(obs))
	require.NoError(t, e.Start(table))
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, []string{"Hello Sam!", "You said yes.", "Done."}, texts(reader.Lines()))
	assert.Equal(t, 5, e.Phase())
	assert.Equal(t, Ended, e.State())

	choice, err := vars.Get("choice")
	require.NoError(t, err)
	assert.Equal(t, "1", choice.Value.String())
	assert.Equal(t, variable.Int, choice.Type())

	entries := memory.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Alice", entries[0].Talker)
	assert.Equal(t, 1, entries[1].Phase)
	assert.Equal(t, []string{"voice:hi"}, st.Played())

	assert.Equal(t, []string{"started", "phase 0->1", "phase 1->5", "ended"}, obs.events)
}

func TestEngine_PhaseJumpDiscardsRest(t *testing.T) {
	reader := stage.NewReader(nil)
	host := &capability.Host{Display: reader}

	table := instruction.NewTable()
	table.Append(0,
		&instruction.Speech{Talker: "none", Text: "one"},
		&instruction.SystemOp{Op: instruction.SysJump, Phase: 2},
		&instruction.Speech{Talker: "none", Text: "never"},
	)
	table.Append(2, &instruction.Speech{Talker: "none", Text: "two"})

	e := New(host)
	require.NoError(t, e.Start(table))

	more, err := e.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, more)
	more, err = e.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, 2, e.Phase())
	assert.Equal(t, 0, e.Cursor())

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []string{"one", "two"}, texts(reader.Lines()))
}

func TestEngine_CapabilityGating(t *testing.T) {
	reader := stage.NewReader(nil)
	host := &capability.Host{Display: reader}

	table := instruction.NewTable()
	table.Append(0,
		&instruction.Selection{Choices: []capability.Choice{{Text: "A", Dest: 3}}},
		&instruction.SystemOp{Op: instruction.SysPlayMusic, Key: "theme"},
		&instruction.CharacterOp{Op: instruction.CharMove, Key: "ghost"},
		&instruction.Speech{Talker: "none", Text: "still here"},
	)
	table.Append(3, &instruction.Speech{Talker: "none", Text: "jumped"})

	e := New(host)
	require.NoError(t, e.Start(table))
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []string{"still here"}, texts(reader.Lines()))
	assert.Equal(t, 0, e.Phase())
}

func TestEngine_ExecErrorEndsRun(t *testing.T) {
	reader := stage.NewReader(nil)
	host := &capability.Host{Display: reader, Variables: variable.NewStore()}
	obs := &recordingObserver{}

	table := instruction.NewTable()
	table.Append(0,
		&instruction.Speech{Talker: "none", Text: "before"},
		&instruction.SystemOp{Op: instruction.SysSet, Key: "missing", Value: "1"},
		&instruction.Speech{Talker: "none", Text: "after"},
	)

	e := New(host, WithObserver(obs))
	require.NoError(t, e.Start(table))
	err := e.Run(context.Background())

	var ee *ExecError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 0, ee.Phase)
	assert.Equal(t, 1, ee.Index)
	assert.ErrorIs(t, err, variable.ErrUndefinedVariable)
	assert.Equal(t, Ended, e.State())
	assert.Equal(t, []string{"before"}, texts(reader.Lines()))
	assert.Equal(t, []string{"started", "ended"}, obs.events)

	more, err := e.Step(context.Background())
	assert.False(t, more)
	assert.NoError(t, err)
}

func TestEngine_StepLimit(t *testing.T) {
	loop := func() *instruction.Table {
		table := instruction.NewTable()
		table.Append(0,
			&instruction.Speech{Talker: "none", Text: "again"},
			&instruction.SystemOp{Op: instruction.SysJump, Phase: 0},
		)
		return table
	}

	tests := []struct {
		name  string
		limit int
		lines int
	}{
		{"limit five", 5, 3},
		{"limit one", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := stage.NewReader(nil)
			obs := &recordingObserver{}
			e := New(&capability.Host{Display: reader}, WithStepLimit(tt.limit), WithObserver(obs))
			require.NoError(t, e.Start(loop()))

			err := e.Run(context.Background())
			assert.ErrorIs(t, err, ErrStepLimit)
			assert.Equal(t, Ended, e.State())
			assert.Len(t, reader.Lines(), tt.lines)
			assert.Equal(t, "ended", obs.events[len(obs.events)-1])

			// Start resets the count.
			require.NoError(t, e.Start(loop()))
			assert.ErrorIs(t, e.Run(context.Background()), ErrStepLimit)
			assert.Len(t, reader.Lines(), 2*tt.lines)
		})
	}

	t.Run("zero is unlimited", func(t *testing.T) {
		table := instruction.NewTable()
		for i := 0; i < 50; i++ {
			table.Append(0, &instruction.Speech{Talker: "none", Text: "line"})
		}
		reader := stage.NewReader(nil)
		e := New(&capability.Host{Display: reader}, WithStepLimit(0))
		require.NoError(t, e.Start(table))
		require.NoError(t, e.Run(context.Background()))
		assert.Len(t, reader.Lines(), 50)
	})
}

func TestEngine_StepBeforeStart(t *testing.T) {
	e := New(&capability.Host{})
	_, err := e.Step(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.ErrorIs(t, e.Start(nil), ErrNilTable)
}

// blockingDisplay holds every line until its context ends.
type blockingDisplay struct {
	shown chan struct{}
}

func (b *blockingDisplay) ShowText(ctx context.Context, _ capability.Line) error {
	b.shown <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestEngine_SkipCancelsEverything(t *testing.T) {
	st := stage.New(stage.WithTimeScale(1))
	st.AddCharacter("alice", "Alice")
	display := &blockingDisplay{shown: make(chan struct{}, 1)}
	host := st.Host("Sam", display, nil, nil)
	obs := &recordingObserver{}

	table := instruction.NewTable()
	table.Append(0,
		&instruction.CharacterOp{Op: instruction.CharMove, Key: "alice", Pos: capability.Vec2{X: 500}, Duration: time.Hour},
		&instruction.LayerOp{Target: instruction.LayerBackground, Verb: instruction.LayerFadeIn, Duration: time.Hour},
		&instruction.Speech{Talker: "alice", Text: "Wait for me."},
		&instruction.Speech{Talker: "alice", Text: "never shown"},
	)

	e := New(host, WithObserver(obs))
	require.NoError(t, e.Start(table))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	select {
	case <-display.shown:
	case <-time.After(5 * time.Second):
		t.Fatal("speech was never shown")
	}
	assert.Equal(t, Suspended, e.State())

	e.Skip()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after skip")
	}
	assert.Equal(t, Skipped, e.State())
	assert.True(t, e.Finished())

	c, _ := st.Char("alice")
	assert.Less(t, c.Snapshot().Pos.X, 500.0, "detached move was canceled")
	e.Wait()
	assert.Equal(t, []string{"started", "skipped"}, obs.events)
}

func TestEngine_RestartAfterSkip(t *testing.T) {
	reader := stage.NewReader(nil)
	e := New(&capability.Host{Display: reader})
	table := instruction.NewTable()
	table.Append(0, &instruction.Speech{Talker: "none", Text: "again"})

	require.NoError(t, e.Start(table))
	e.Skip()
	require.NoError(t, e.Start(table))
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []string{"again"}, texts(reader.Lines()))
}

func TestEngine_DeferredConditions(t *testing.T) {
	src := "\tdefine\tx\t1\n" +
		"\tset\tx\t-1\n" +
		"\tif\tx\t>\t0\n" +
		"none\t\tpositive\n" +
		"\telse\n" +
		"none\t\tnot positive\n" +
		"\tendif\n"

	vars := variable.NewStore()
	reader := stage.NewReader(nil)
	host := &capability.Host{Display: reader, Variables: vars}
	table, err := parser.Parse(src, parser.WithCapabilities(host.Capabilities()))
	require.NoError(t, err)

	e := New(host)
	require.NoError(t, e.Start(table))
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []string{"not positive"}, texts(reader.Lines()))
}

func TestEngine_PlayFromAssets(t *testing.T) {
	fsys := fstest.MapFS{
		"scripts/intro.dlg": {Data: []byte(
			"\tcharacter\talice\tAlice\n" +
				"\tplayeris\tme\n" +
				"me\t\tHi, I'm {me}.\n" +
				"alice\tsmile\tWhat the heck, {me}?\n" +
				"\troll\t20\n",
		)},
		"sprites/alice_smile.png": {Data: []byte("png")},
	}
	reader := stage.NewReader(nil)
	st := stage.New()
	host := st.Host("Sam", reader, nil, nil)
	host.Assets = asset.NewFSSource(fsys, nil)

	var rolled int
	ext := map[string]parser.ExtensionFunc{
		"roll": func(*token.Tokenizer) (instruction.Instruction, error) {
			rolled++
			return nil, nil
		},
	}
	filter := textfilter.NewWordFilter(map[string]string{"heck": "dickens"})

	e := New(host, WithExtensions(ext), WithTextFilter(filter))
	require.NoError(t, e.Play(context.Background(), "intro"))

	lines := reader.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Sam", lines[0].Talker)
	assert.True(t, lines[0].IsPlayer)
	assert.Equal(t, "Hi, I'm Sam.", lines[0].Text)
	assert.Equal(t, "Alice", lines[1].Talker)
	assert.Equal(t, "What the dickens, Sam?", lines[1].Text)
	assert.Equal(t, 1, rolled)

	c, ok := st.Char("alice")
	require.True(t, ok)
	assert.Equal(t, "alice_smile", c.Snapshot().Sprite)
	assert.Equal(t, "me", e.PlayerKeyword())
}

func TestEngine_PlayErrors(t *testing.T) {
	e := New(&capability.Host{Display: stage.NewReader(nil)})
	assert.ErrorIs(t, e.Play(context.Background(), "x"), instruction.ErrNoAssetSource)

	host := &capability.Host{
		Display: stage.NewReader(nil),
		Assets:  asset.NewFSSource(fstest.MapFS{"scripts/bad.dlg": {Data: []byte("\tphase\t-3\n")}}, nil),
	}
	err := New(host).Play(context.Background(), "bad")
	var pe *parser.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)

	err = New(host).Play(context.Background(), "missing")
	assert.ErrorIs(t, err, asset.ErrNotFound)
}
