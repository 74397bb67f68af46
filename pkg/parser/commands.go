package parser

import (
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/token"
)

const rosterField = capability.CharacterRoster | capability.CharacterField

type command struct {
	requires capability.Set
	parse    func(s *state, tk *token.Tokenizer) error
}

var commands = buildCommands()

func buildCommands() map[string]command {
	m := make(map[string]command)
	add := func(requires capability.Set, parse func(*state, *token.Tokenizer) error, names ...string) {
		for _, name := range names {
			m[name] = command{requires: requires, parse: parse}
		}
	}

	add(capability.None, parsePhase, "phase")
	add(capability.Variable, parseVariable(instruction.SysDefine), "define")
	add(capability.Variable, parseVariable(instruction.SysSet), "set")
	add(capability.None, parseNextPhase, "nextphase")
	add(capability.Audio, parseKeyOp(instruction.SysPlayMusic), "playmusic", "play-music")
	add(capability.Audio, parseKeyOp(instruction.SysPlaySE), "playse", "play-se")
	add(capability.None, parseWait, "waitfor", "wait")
	add(capability.None, parseKeyOp(instruction.SysSetPlayer), "playeris")
	add(capability.ExternalAction, parseKeyOp(instruction.SysCall), "call")
	add(capability.Selection, parseSelect, "select")

	add(capability.CharacterRoster, parseNamed(instruction.CharAdd), "character")
	add(capability.CharacterRoster, parseNamed(instruction.CharHideName), "hidename", "hide-name")
	add(capability.CharacterRoster, parseCharKey(instruction.CharShowName), "showname", "show-name")
	add(rosterField, parseSetSprite, "setsprite", "set-char-sprite")
	add(rosterField, parseSetPos, "setpos", "set-char-pos")
	add(rosterField, parseSetSize, "setsize", "set-char-size")
	add(rosterField, parseSetState, "setstate", "set-char-state")
	add(rosterField, parseSetChar, "setchar", "set-char")
	add(rosterField, parseCharKey(instruction.CharShow), "show")
	add(rosterField, parseCharKey(instruction.CharHide), "hide")
	add(rosterField, parseMove, "move")
	add(rosterField, parseMoveAxis(instruction.CharMoveX), "movex")
	add(rosterField, parseMoveAxis(instruction.CharMoveY), "movey")
	add(rosterField, parseCharScale, "scale")
	add(rosterField, parseCharTimed(instruction.CharFadeIn), "fadein")
	add(rosterField, parseCharTimed(instruction.CharFadeOut), "fadeout")
	add(rosterField, parseCharTimed(instruction.CharBlackout), "blackout")
	add(rosterField, parseCharTimed(instruction.CharColorize), "colorize")
	add(rosterField, parseNod(instruction.CharNodUp), "nodup")
	add(rosterField, parseNod(instruction.CharNodDown), "noddown")
	add(rosterField, parseColorizeFadeIn, "colorize-fadein")
	add(rosterField, parseBlackoutFadeOut, "blackout-fadeout")

	add(capability.Transition, parseSceneFade(instruction.SceneFadeIn), "scenefadein", "fadein-scene")
	add(capability.Transition, parseSceneFade(instruction.SceneFadeOut), "scenefadeout", "fadeout-scene")
	add(capability.Transition, parseUI(instruction.ShowUI), "show-ui")
	add(capability.Transition, parseUI(instruction.HideUI), "hide-ui")

	layers := []struct {
		prefix   string
		target   instruction.LayerTarget
		requires capability.Set
	}{
		{"bg", instruction.LayerBackground, capability.Background},
		{"fg", instruction.LayerForeground, capability.Foreground},
	}
	for _, l := range layers {
		p := l.prefix
		add(l.requires, parseLayerSet(l.target), "set"+p, "set-"+p)
		add(l.requires, parseLayerToggle(l.target, instruction.LayerShow), p+"show", "show-"+p)
		add(l.requires, parseLayerToggle(l.target, instruction.LayerHide), p+"hide", "hide-"+p)
		add(l.requires, parseLayerFade(l.target, instruction.LayerFadeIn), p+"fadein", "fadein-"+p)
		add(l.requires, parseLayerFade(l.target, instruction.LayerFadeOut), p+"fadeout", "fadeout-"+p)
		add(l.requires, parseLayerCrossFade(l.target), p+"crossfade", "crossfade-"+p)
		add(l.requires, parseLayerMove(l.target), p+"move", "move-"+p)
		add(l.requires, parseLayerScale(l.target), p+"scale", "scale-"+p)
	}
	return m
}

func waitTag(tk *token.Tokenizer) bool {
	return token.HasTag(tk.Tags(), "wait")
}

func vec(t token.Token) (capability.Vec2, error) {
	x, y, err := t.Vec()
	return capability.Vec2{X: x, Y: y}, err
}

func phaseNumber(t token.Token) (int, error) {
	n, err := t.Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, token.Syntaxf("phase must not be negative: %d", n)
	}
	return n, nil
}

func parsePhase(s *state, tk *token.Tokenizer) error {
	if len(s.blocks) > 0 {
		return token.Syntaxf("phase cannot change inside an if block")
	}
	params, err := tk.Params(token.Scalar)
	if err != nil {
		return err
	}
	n, err := phaseNumber(params[0])
	if err != nil {
		return err
	}
	s.phase = n
	s.table.Ensure(n)
	return nil
}

func parseNextPhase(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar)
	if err != nil {
		return err
	}
	n, err := phaseNumber(params[0])
	if err != nil {
		return err
	}
	s.table.Ensure(n)
	s.emit(&instruction.SystemOp{Op: instruction.SysJump, Phase: n})
	return nil
}

func parseVariable(op instruction.SysOp) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar, token.Scalar)
		if err != nil {
			return err
		}
		s.emit(&instruction.SystemOp{Op: op, Key: params[0].String(), Value: params[1].String()})
		return nil
	}
}

func parseKeyOp(op instruction.SysOp) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar)
		if err != nil {
			return err
		}
		s.emit(&instruction.SystemOp{Op: op, Key: params[0].String()})
		return nil
	}
}

func parseWait(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar)
	if err != nil {
		return err
	}
	d, err := params[0].Seconds()
	if err != nil {
		return err
	}
	s.emit(&instruction.SystemOp{Op: instruction.SysWait, Duration: d})
	return nil
}

func parseSelect(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.StringList, token.Tuple)
	if err != nil {
		return err
	}
	texts := params[0].Items
	dests, err := params[1].Ints()
	if err != nil {
		return err
	}
	if len(dests) < len(texts) {
		return token.Syntaxf("select has %d choices but %d destinations", len(texts), len(dests))
	}

	sel := &instruction.Selection{}
	seen := make(map[int]bool, len(texts))
	for i, text := range texts {
		dest := dests[i]
		if dest < 0 {
			return token.Syntaxf("phase must not be negative: %d", dest)
		}
		if seen[dest] {
			return token.Syntaxf("select destination %d is used twice", dest)
		}
		seen[dest] = true
		sel.Choices = append(sel.Choices, capability.Choice{Text: text, Dest: dest})
	}

	for _, tag := range tk.Tags() {
		switch tag.Name {
		case "saveto":
			key, err := tag.Arg(0)
			if err != nil {
				return err
			}
			if s.has(capability.Variable) {
				sel.SaveTo = key
			}
		case "saveonly":
			sel.SaveOnly = true
		}
	}

	for _, c := range sel.Choices {
		s.table.Ensure(c.Dest)
	}
	s.emit(sel)
	return nil
}

func parseNamed(op instruction.CharOp) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar, token.Scalar)
		if err != nil {
			return err
		}
		s.emit(&instruction.CharacterOp{Op: op, Key: params[0].String(), Name: params[1].String()})
		return nil
	}
}

func parseCharKey(op instruction.CharOp) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar)
		if err != nil {
			return err
		}
		s.emit(&instruction.CharacterOp{Op: op, Key: params[0].String()})
		return nil
	}
}

func parseSetSprite(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar, token.Scalar)
	if err != nil {
		return err
	}
	s.emit(&instruction.CharacterOp{Op: instruction.CharSetSprite, Key: params[0].String(), Sprite: params[1].String()})
	return nil
}

func parseSetPos(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar, token.Tuple)
	if err != nil {
		return err
	}
	pos, err := vec(params[1])
	if err != nil {
		return err
	}
	s.emit(&instruction.CharacterOp{Op: instruction.CharSetPos, Key: params[0].String(), Pos: pos})
	return nil
}

func parseSetSize(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar, token.Scalar)
	if err != nil {
		return err
	}
	scale, err := params[1].Float()
	if err != nil {
		return err
	}
	s.emit(&instruction.CharacterOp{Op: instruction.CharSetSize, Key: params[0].String(), Scale: scale})
	return nil
}

func parseSetState(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar, token.Scalar)
	if err != nil {
		return err
	}
	s.emit(&instruction.CharacterOp{
		Op:    instruction.CharSetState,
		Key:   params[0].String(),
		State: capability.ParseState(params[1].String()),
	})
	return nil
}

// parseSetChar expands into setsprite, setpos, setsize and one setstate per
// trailing tag.
func parseSetChar(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar, token.Scalar, token.Tuple, token.Scalar)
	if err != nil {
		return err
	}
	key := params[0].String()
	pos, err := vec(params[2])
	if err != nil {
		return err
	}
	scale, err := params[3].Float()
	if err != nil {
		return err
	}

	s.emit(
		&instruction.CharacterOp{Op: instruction.CharSetSprite, Key: key, Sprite: params[1].String()},
		&instruction.CharacterOp{Op: instruction.CharSetPos, Key: key, Pos: pos},
		&instruction.CharacterOp{Op: instruction.CharSetSize, Key: key, Scale: scale},
	)
	for _, tag := range tk.Tags() {
		s.emit(&instruction.CharacterOp{Op: instruction.CharSetState, Key: key, State: capability.ParseState(tag.Name)})
	}
	return nil
}

func parseMove(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar, token.Tuple, token.Scalar)
	if err != nil {
		return err
	}
	pos, err := vec(params[1])
	if err != nil {
		return err
	}
	d, err := params[2].Seconds()
	if err != nil {
		return err
	}
	s.emit(&instruction.CharacterOp{Op: instruction.CharMove, Key: params[0].String(), Pos: pos, Duration: d, Wait: waitTag(tk)})
	return nil
}

func parseMoveAxis(op instruction.CharOp) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar, token.Scalar, token.Scalar)
		if err != nil {
			return err
		}
		coord, err := params[1].Float()
		if err != nil {
			return err
		}
		d, err := params[2].Seconds()
		if err != nil {
			return err
		}
		var pos capability.Vec2
		if op == instruction.CharMoveX {
			pos.X = coord
		} else {
			pos.Y = coord
		}
		s.emit(&instruction.CharacterOp{Op: op, Key: params[0].String(), Pos: pos, Duration: d, Wait: waitTag(tk)})
		return nil
	}
}

func parseCharScale(s *state, tk *token.Tokenizer) error {
	params, err := tk.Params(token.Scalar, token.Scalar, token.Scalar)
	if err != nil {
		return err
	}
	scale, err := params[1].Float()
	if err != nil {
		return err
	}
	d, err := params[2].Seconds()
	if err != nil {
		return err
	}
	s.emit(&instruction.CharacterOp{Op: instruction.CharScale, Key: params[0].String(), Scale: scale, Duration: d, Wait: waitTag(tk)})
	return nil
}

func charTimedParams(tk *token.Tokenizer) (string, time.Duration, error) {
	params, err := tk.Params(token.Scalar, token.Scalar)
	if err != nil {
		return "", 0, err
	}
	d, err := params[1].Seconds()
	if err != nil {
		return "", 0, err
	}
	return params[0].String(), d, nil
}

func parseCharTimed(op instruction.CharOp) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		key, d, err := charTimedParams(tk)
		if err != nil {
			return err
		}
		s.emit(&instruction.CharacterOp{Op: op, Key: key, Duration: d, Wait: waitTag(tk)})
		return nil
	}
}

func parseNod(op instruction.CharOp) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar)
		if err != nil {
			return err
		}
		s.emit(&instruction.CharacterOp{Op: op, Key: params[0].String(), Wait: waitTag(tk)})
		return nil
	}
}

// parseColorizeFadeIn expands into a blackout state, a fade in over the first
// half that always waits, and a colorize over the second half.
func parseColorizeFadeIn(s *state, tk *token.Tokenizer) error {
	key, d, err := charTimedParams(tk)
	if err != nil {
		return err
	}
	half := d / 2
	s.emit(
		&instruction.CharacterOp{Op: instruction.CharSetState, Key: key, State: capability.Blackout},
		&instruction.CharacterOp{Op: instruction.CharFadeIn, Key: key, Duration: half, Wait: true},
		&instruction.CharacterOp{Op: instruction.CharColorize, Key: key, Duration: half, Wait: waitTag(tk)},
	)
	return nil
}

// parseBlackoutFadeOut expands into a blackout over the first half that
// always waits, then a fade out over the second half.
func parseBlackoutFadeOut(s *state, tk *token.Tokenizer) error {
	key, d, err := charTimedParams(tk)
	if err != nil {
		return err
	}
	half := d / 2
	s.emit(
		&instruction.CharacterOp{Op: instruction.CharBlackout, Key: key, Duration: half, Wait: true},
		&instruction.CharacterOp{Op: instruction.CharFadeOut, Key: key, Duration: half, Wait: waitTag(tk)},
	)
	return nil
}

func parseSceneFade(verb instruction.TransitionVerb) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar)
		if err != nil {
			return err
		}
		d, err := params[0].Seconds()
		if err != nil {
			return err
		}
		s.emit(&instruction.TransitionOp{Verb: verb, Duration: d, Wait: waitTag(tk)})
		return nil
	}
}

func parseUI(verb instruction.TransitionVerb) func(*state, *token.Tokenizer) error {
	return func(s *state, _ *token.Tokenizer) error {
		s.emit(&instruction.TransitionOp{Verb: verb})
		return nil
	}
}

func parseLayerSet(target instruction.LayerTarget) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar, token.Tuple, token.Scalar)
		if err != nil {
			return err
		}
		pos, err := vec(params[1])
		if err != nil {
			return err
		}
		scale, err := params[2].Float()
		if err != nil {
			return err
		}
		s.emit(&instruction.LayerOp{Target: target, Verb: instruction.LayerSet, Sprite: params[0].String(), Pos: pos, Scale: scale})
		return nil
	}
}

func parseLayerToggle(target instruction.LayerTarget, verb instruction.LayerVerb) func(*state, *token.Tokenizer) error {
	return func(s *state, _ *token.Tokenizer) error {
		s.emit(&instruction.LayerOp{Target: target, Verb: verb})
		return nil
	}
}

func parseLayerFade(target instruction.LayerTarget, verb instruction.LayerVerb) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar)
		if err != nil {
			return err
		}
		d, err := params[0].Seconds()
		if err != nil {
			return err
		}
		s.emit(&instruction.LayerOp{Target: target, Verb: verb, Duration: d, Wait: waitTag(tk)})
		return nil
	}
}

func parseLayerCrossFade(target instruction.LayerTarget) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar, token.Scalar)
		if err != nil {
			return err
		}
		d, err := params[1].Seconds()
		if err != nil {
			return err
		}
		s.emit(&instruction.LayerOp{Target: target, Verb: instruction.LayerCrossFade, Sprite: params[0].String(), Duration: d, Wait: waitTag(tk)})
		return nil
	}
}

func parseLayerMove(target instruction.LayerTarget) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Tuple, token.Scalar)
		if err != nil {
			return err
		}
		pos, err := vec(params[0])
		if err != nil {
			return err
		}
		d, err := params[1].Seconds()
		if err != nil {
			return err
		}
		s.emit(&instruction.LayerOp{Target: target, Verb: instruction.LayerMove, Pos: pos, Duration: d, Wait: waitTag(tk)})
		return nil
	}
}

func parseLayerScale(target instruction.LayerTarget) func(*state, *token.Tokenizer) error {
	return func(s *state, tk *token.Tokenizer) error {
		params, err := tk.Params(token.Scalar, token.Scalar)
		if err != nil {
			return err
		}
		scale, err := params[0].Float()
		if err != nil {
			return err
		}
		d, err := params[1].Seconds()
		if err != nil {
			return err
		}
		s.emit(&instruction.LayerOp{Target: target, Verb: instruction.LayerScale, Scale: scale, Duration: d, Wait: waitTag(tk)})
		return nil
	}
}
