package capability

import (
	"context"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
)

// Vec2 is a 2D position.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// State is the tint applied to a character sprite.
type State int

const (
	Active   State = iota // normal colors
	Inactive              // greyed out
	Blackout              // silhouette
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Blackout:
		return "blackout"
	default:
		return "active"
	}
}

// ParseState maps a script word to a State. Unknown words are Active.
func ParseState(word string) State {
	switch word {
	case "inactive":
		return Inactive
	case "blackout":
		return Blackout
	default:
		return Active
	}
}

// Line is one piece of speech handed to the displayer.
type Line struct {
	Talker      string
	Text        string
	CPS         int
	Unskippable bool
	HideName    bool
	IsPlayer    bool
	Voice       string
}

// Displayer shows speech. ShowText blocks until the reader acknowledges it.
type Displayer interface {
	ShowText(ctx context.Context, line Line) error
}

// Roster keeps the characters known to a script.
type Roster interface {
	AddCharacter(key, name string)
	CharacterExists(key string) bool
	// CharacterName returns the display name, honoring overrides.
	CharacterName(key string) (string, bool)
	OverrideName(key, name string) error
	ResetName(key string) error
}

// Character is a positioned, animatable character sprite.
type Character interface {
	SetSprite(sprite *asset.Sprite)
	SetPosition(pos Vec2)
	Position() Vec2
	SetScale(scale float64)
	SetState(state State)
	Show()
	Hide()
	Move(ctx context.Context, to Vec2, d time.Duration) error
	Scale(ctx context.Context, scale float64, d time.Duration) error
	FadeIn(ctx context.Context, d time.Duration) error
	FadeOut(ctx context.Context, d time.Duration) error
	NodUp(ctx context.Context) error
	NodDown(ctx context.Context) error
	Blackout(ctx context.Context, d time.Duration) error
	Colorize(ctx context.Context, d time.Duration) error
}

// Field gives access to the characters placed on screen.
type Field interface {
	Character(key string) (Character, bool)
}

// Choice is one option of a selection.
type Choice struct {
	Text string
	Dest int
}

// Selector presents a modal choice and blocks until one is picked.
// It returns the Dest of the chosen option.
type Selector interface {
	Select(ctx context.Context, choices []Choice) (int, error)
}

// Layer is a background or foreground image plane.
type Layer interface {
	SetSprite(sprite *asset.Sprite)
	SetPosition(pos Vec2)
	SetScale(scale float64)
	Show()
	Hide()
	FadeIn(ctx context.Context, d time.Duration) error
	FadeOut(ctx context.Context, d time.Duration) error
	CrossFade(ctx context.Context, sprite *asset.Sprite, d time.Duration) error
	Move(ctx context.Context, to Vec2, d time.Duration) error
	Scale(ctx context.Context, scale float64, d time.Duration) error
}

// Transitioner runs scene-wide effects.
type Transitioner interface {
	FadeIn(ctx context.Context, d time.Duration) error
	FadeOut(ctx context.Context, d time.Duration) error
	ShowUI()
	HideUI()
}

// Clock waits on the host's timeline, which may run faster or slower than
// the wall clock.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// AudioPlayer plays music, sound effects and voices by asset key.
type AudioPlayer interface {
	PlayMusic(ctx context.Context, key string) error
	PlaySE(ctx context.Context, key string) error
	PlayVoice(ctx context.Context, key string) error
}

// Actions invokes named host callbacks.
type Actions interface {
	Call(ctx context.Context, key string) error
}

// Host bundles the collaborators of one dialogue run. Nil fields are
// capabilities the host does not offer.
type Host struct {
	PlayerName string
	Display    Displayer
	Assets     asset.Source

	Roster     Roster
	Field      Field
	Selector   Selector
	Background Layer
	Foreground Layer
	Transition Transitioner
	Variables  *variable.Store
	Audio      AudioPlayer
	Actions    Actions
	// Clock paces waits. Without one they use the wall clock.
	Clock Clock
}

// Capabilities derives the capability set from the collaborators present.
func (h *Host) Capabilities() Set {
	if h == nil {
		return None
	}
	var s Set
	if h.Roster != nil {
		s |= CharacterRoster
	}
	if h.Field != nil {
		s |= CharacterField
	}
	if h.Selector != nil {
		s |= Selection
	}
	if h.Background != nil {
		s |= Background
	}
	if h.Foreground != nil {
		s |= Foreground
	}
	if h.Transition != nil {
		s |= Transition
	}
	if h.Variables != nil {
		s |= Variable
	}
	if h.Audio != nil {
		s |= Audio
	}
	if h.Actions != nil {
		s |= ExternalAction
	}
	return s
}

// Has reports whether the host offers every capability in req.
func (h *Host) Has(req Set) bool {
	return h.Capabilities().Has(req)
}
