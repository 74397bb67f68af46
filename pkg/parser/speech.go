package parser

import (
	"strconv"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/token"
)

// speech parses "talker, sprite, text, tags...". A sprite key first emits a
// setsprite for the talker.
func (s *state) speech(talker string, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar, token.Scalar)
	if err != nil {
		return err
	}
	sprite, text := params[0].String(), params[1].String()

	sp := &instruction.Speech{Talker: talker, Text: text}
	for _, tag := range tk.Tags() {
		switch tag.Name {
		case "voice":
			key, err := tag.Arg(0)
			if err != nil {
				return err
			}
			if s.has(capability.Audio) {
				sp.Voice = key
			}
		case "cps":
			arg, err := tag.Arg(0)
			if err != nil {
				return err
			}
			cps, err := strconv.Atoi(arg)
			if err != nil {
				return token.Syntaxf("failed to parse cps %q", arg)
			}
			sp.CPS = cps
		case "unskippable":
			sp.Unskippable = true
		case "hidename":
			sp.HideName = true
		}
	}

	if sprite != "" && s.has(rosterField) {
		s.emit(&instruction.CharacterOp{Op: instruction.CharSetSprite, Key: talker, Sprite: sprite})
	}
	s.emit(sp)
	return nil
}
