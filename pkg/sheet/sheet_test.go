package sheet

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/engine"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/stage"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(n int) Roller {
	return func(int) int { return n }
}

func newSheets(t *testing.T, roll int) *Sheets {
	t.Helper()
	s := New(fixed(roll))
	require.NoError(t, s.Add("alice", Spec{HP: 10, AC: 12, Stats: map[string]int{
		"wisdom":     14,
		"strength":   7,
		"persuasion": 5,
	}}))
	return s
}

func TestModifier(t *testing.T) {
	s := newSheets(t, 10)
	tests := []struct {
		attr string
		want int
	}{
		{"wisdom", 2},
		{"strength", -2},
		{"persuasion", 5},
		{"charisma", 0},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			got, err := s.Modifier("alice", tt.attr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.Modifier("bob", "wisdom")
	assert.ErrorIs(t, err, ErrNoSheet)
}

func TestAbilityModifier(t *testing.T) {
	for score, want := range map[int]int{1: -5, 8: -1, 9: -1, 10: 0, 11: 0, 12: 1, 20: 5} {
		assert.Equal(t, want, abilityModifier(score), "score %d", score)
	}
}

func TestResult_Success(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want bool
	}{
		{"meets dc", Result{Roll: 10, Modifier: 2, DC: 12}, true},
		{"misses dc", Result{Roll: 9, Modifier: 2, DC: 12}, false},
		{"natural 20", Result{Roll: 20, Modifier: -5, DC: 30}, true},
		{"natural 1", Result{Roll: 1, Modifier: 20, DC: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Success())
		})
	}
}

func TestSheets_Actor(t *testing.T) {
	s := newSheets(t, 10)
	a, ok := s.Actor("alice")
	require.True(t, ok)
	assert.Equal(t, 12, a.AC())
	assert.Equal(t, []string{"alice"}, s.Keys())

	require.NoError(t, s.Add("bob", Spec{}))
	a, ok = s.Actor("bob")
	require.True(t, ok)
	assert.Equal(t, 1, a.MaxHP())
}

func run(t *testing.T, s *Sheets, src string, host *capability.Host) *engine.Engine {
	t.Helper()
	table, err := parser.Parse(src,
		parser.WithCapabilities(host.Capabilities()),
		parser.WithExtensions(s.Extensions()),
	)
	require.NoError(t, err)
	e := engine.New(host, engine.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, e.Start(table))
	require.NoError(t, e.Run(context.Background()))
	return e
}

func TestCheck_SavesOutcome(t *testing.T) {
	vars := variable.NewStore()
	reader := stage.NewReader(nil)
	host := &capability.Host{Display: reader, Variables: vars}

	run(t, newSheets(t, 10), "\tcheck\talice\twisdom\t12\tsaveto:wise\n", host)
	v, err := vars.Get("wise")
	require.NoError(t, err)
	assert.Equal(t, variable.Bool, v.Type())
	assert.Equal(t, "true", v.Value.String())

	run(t, newSheets(t, 9), "\tcheck\talice\twisdom\t12\tsaveto:wise\n", host)
	v, _ = vars.Get("wise")
	assert.Equal(t, "false", v.Value.String())
}

func TestCheck_Jumps(t *testing.T) {
	src := "\tcheck\talice\tpersuasion\t15\tpass:1\tfail:2\n" +
		"\tphase\t1\n" +
		"none\t\tconvinced\n" +
		"\tnextphase\t3\n" +
		"\tphase\t2\n" +
		"none\t\tunmoved\n" +
		"\tphase\t3\n"

	for roll, want := range map[int]string{10: "convinced", 9: "unmoved"} {
		reader := stage.NewReader(nil)
		run(t, newSheets(t, roll), src, &capability.Host{Display: reader})
		lines := reader.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, want, lines[0].Text)
	}
}

func TestCheck_SkippedWithoutVariables(t *testing.T) {
	reader := stage.NewReader(nil)
	e := run(t, newSheets(t, 20), "\tcheck\talice\twisdom\t5\tsaveto:x\tpass:4\n", &capability.Host{Display: reader})
	assert.Equal(t, 0, e.Phase())
}

func TestCheck_UnknownCharacterFails(t *testing.T) {
	s := newSheets(t, 10)
	table, err := parser.Parse("\tcheck\tbob\twisdom\t10\n", parser.WithExtensions(s.Extensions()))
	require.NoError(t, err)

	e := engine.New(&capability.Host{}, engine.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, e.Start(table))
	err = e.Run(context.Background())
	var ee *engine.ExecError
	require.True(t, errors.As(err, &ee))
	assert.ErrorIs(t, err, ErrNoSheet)
}

func TestParseCheck(t *testing.T) {
	s := New(nil)
	ext := parser.WithExtensions(s.Extensions())

	table, err := parser.Parse("\tcheck\talice\twisdom\t12\tsaveto:wise\tfail:3\n", ext)
	require.NoError(t, err)
	b0, _ := table.Bucket(0)
	require.Len(t, b0, 1)
	assert.Equal(t, instruction.KindCustom, b0[0].Kind())
	assert.Equal(t, "check alice wisdom 12 saveto=wise fail=3", b0[0].String())

	bad := []string{
		"\tcheck\talice\twisdom\n",
		"\tcheck\talice\twisdom\thard\n",
		"\tcheck\talice\twisdom\t12\tsaveto\n",
		"\tcheck\talice\twisdom\t12\tpass:-1\n",
	}
	for _, src := range bad {
		_, err := parser.Parse(src, ext)
		var pe *parser.ParseError
		assert.True(t, errors.As(err, &pe), src)
	}
}
