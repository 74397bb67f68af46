package instruction

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
)

// CharOp selects what a CharacterOp does.
type CharOp int

const (
	CharAdd CharOp = iota
	CharHideName
	CharShowName
	CharSetSprite
	CharSetPos
	CharSetSize
	CharSetState
	CharShow
	CharHide
	CharMove
	CharMoveX
	CharMoveY
	CharScale
	CharFadeIn
	CharFadeOut
	CharNodUp
	CharNodDown
	CharBlackout
	CharColorize
)

var charOpNames = [...]string{
	CharAdd:       "character",
	CharHideName:  "hidename",
	CharShowName:  "showname",
	CharSetSprite: "setsprite",
	CharSetPos:    "setpos",
	CharSetSize:   "setsize",
	CharSetState:  "setstate",
	CharShow:      "show",
	CharHide:      "hide",
	CharMove:      "move",
	CharMoveX:     "movex",
	CharMoveY:     "movey",
	CharScale:     "scale",
	CharFadeIn:    "fadein",
	CharFadeOut:   "fadeout",
	CharNodUp:     "nodup",
	CharNodDown:   "noddown",
	CharBlackout:  "blackout",
	CharColorize:  "colorize",
}

func (o CharOp) String() string {
	if o < 0 || int(o) >= len(charOpNames) {
		return fmt.Sprintf("charop(%d)", int(o))
	}
	return charOpNames[o]
}

// SpriteKey is the asset key of a character sprite.
func SpriteKey(character, sprite string) string {
	return character + "_" + sprite
}

// CharacterOp manipulates one character. Only the fields the op reads are set.
type CharacterOp struct {
	Op       CharOp
	Key      string
	Name     string
	Sprite   string
	Pos      capability.Vec2
	Scale    float64
	State    capability.State
	Duration time.Duration
	Wait     bool
}

func (c *CharacterOp) Kind() Kind { return KindCharacter }

func (c *CharacterOp) Requires() capability.Set {
	switch c.Op {
	case CharAdd, CharHideName, CharShowName:
		return capability.CharacterRoster
	default:
		return capability.CharacterRoster | capability.CharacterField
	}
}

func (c *CharacterOp) Suspends() bool {
	return c.Wait || c.Op == CharSetSprite
}

func (c *CharacterOp) String() string {
	var args string
	switch c.Op {
	case CharAdd, CharHideName:
		args = fmt.Sprintf(" %q", c.Name)
	case CharSetSprite:
		args = " " + c.Sprite
	case CharSetPos:
		args = " " + formatVec(c.Pos)
	case CharSetSize:
		args = fmt.Sprintf(" %g", c.Scale)
	case CharSetState:
		args = " " + c.State.String()
	case CharMove:
		args = fmt.Sprintf(" %s %s", formatVec(c.Pos), c.Duration)
	case CharMoveX:
		args = fmt.Sprintf(" %g %s", c.Pos.X, c.Duration)
	case CharMoveY:
		args = fmt.Sprintf(" %g %s", c.Pos.Y, c.Duration)
	case CharScale:
		args = fmt.Sprintf(" %g %s", c.Scale, c.Duration)
	case CharFadeIn, CharFadeOut, CharBlackout, CharColorize:
		args = " " + c.Duration.String()
	}
	if c.Wait {
		args += " wait"
	}
	return fmt.Sprintf("%s %s%s", c.Op, c.Key, args)
}

func (c *CharacterOp) Execute(ctx context.Context, rt Runtime) error {
	host := rt.Host()
	switch c.Op {
	case CharAdd:
		host.Roster.AddCharacter(c.Key, c.Name)
		return nil
	case CharHideName:
		return host.Roster.OverrideName(c.Key, c.Name)
	case CharShowName:
		return host.Roster.ResetName(c.Key)
	}

	if !host.Roster.CharacterExists(c.Key) {
		return fmt.Errorf("%w: %q", ErrUnknownCharacter, c.Key)
	}
	ch, ok := host.Field.Character(c.Key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCharacter, c.Key)
	}

	name := c.Op.String() + " " + c.Key
	switch c.Op {
	case CharSetSprite:
		sprite, err := loadSprite(ctx, host, SpriteKey(c.Key, c.Sprite))
		if err != nil {
			return err
		}
		ch.SetSprite(sprite)
	case CharSetPos:
		ch.SetPosition(c.Pos)
	case CharSetSize:
		ch.SetScale(c.Scale)
	case CharSetState:
		ch.SetState(c.State)
	case CharShow:
		ch.Show()
	case CharHide:
		ch.Hide()
	case CharMove, CharMoveX, CharMoveY:
		to := c.Pos
		cur := ch.Position()
		if c.Op == CharMoveX {
			to.Y = cur.Y
		}
		if c.Op == CharMoveY {
			to.X = cur.X
		}
		return animate(ctx, rt, c.Wait, name, func(ctx context.Context) error {
			return ch.Move(ctx, to, c.Duration)
		})
	case CharScale:
		return animate(ctx, rt, c.Wait, name, func(ctx context.Context) error {
			return ch.Scale(ctx, c.Scale, c.Duration)
		})
	case CharFadeIn:
		return animate(ctx, rt, c.Wait, name, func(ctx context.Context) error {
			return ch.FadeIn(ctx, c.Duration)
		})
	case CharFadeOut:
		return animate(ctx, rt, c.Wait, name, func(ctx context.Context) error {
			return ch.FadeOut(ctx, c.Duration)
		})
	case CharNodUp:
		return animate(ctx, rt, c.Wait, name, ch.NodUp)
	case CharNodDown:
		return animate(ctx, rt, c.Wait, name, ch.NodDown)
	case CharBlackout:
		return animate(ctx, rt, c.Wait, name, func(ctx context.Context) error {
			return ch.Blackout(ctx, c.Duration)
		})
	case CharColorize:
		return animate(ctx, rt, c.Wait, name, func(ctx context.Context) error {
			return ch.Colorize(ctx, c.Duration)
		})
	default:
		return fmt.Errorf("unsupported character op %s", c.Op)
	}
	return nil
}

func formatVec(v capability.Vec2) string {
	return fmt.Sprintf("%g,%g", v.X, v.Y)
}
