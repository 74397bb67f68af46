package capability

import (
	"testing"

	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/stretchr/testify/assert"
)

func TestSet_Has(t *testing.T) {
	s := CharacterRoster | CharacterField
	assert.True(t, s.Has(CharacterRoster))
	assert.True(t, s.Has(CharacterRoster|CharacterField))
	assert.False(t, s.Has(CharacterRoster|Audio))
	assert.True(t, s.Has(None))
	assert.Equal(t, "character-roster|character-field", s.String())
	assert.Equal(t, "none", None.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Set
		ok   bool
	}{
		{"all", All, true},
		{"", None, true},
		{"audio, variable", Audio | Variable, true},
		{"selection,bogus", None, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHost_Capabilities(t *testing.T) {
	var nilHost *Host
	assert.Equal(t, None, nilHost.Capabilities())

	h := &Host{Variables: variable.NewStore()}
	assert.Equal(t, Variable, h.Capabilities())
	assert.True(t, h.Has(Variable))
	assert.False(t, h.Has(Selection))
	assert.Equal(t, All.Without(Variable).With(Variable), All)
}

func TestParseState(t *testing.T) {
	assert.Equal(t, Inactive, ParseState("inactive"))
	assert.Equal(t, Blackout, ParseState("blackout"))
	assert.Equal(t, Active, ParseState("wait"))
	assert.Equal(t, "blackout", Blackout.String())
}
