package stage

import (
	"context"
	"sync"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
)

const (
	nodDuration = 150 * time.Millisecond
	nodOffset   = 12.0
)

// Character is a character sprite placed on the stage.
type Character struct {
	stage *Stage
	key   string

	mu      sync.RWMutex
	sprite  *asset.Sprite
	pos     capability.Vec2
	scale   float64
	state   capability.State
	visible bool
	alpha   float64
}

func newCharacter(s *Stage, key string) *Character {
	return &Character{stage: s, key: key, scale: 1}
}

func (c *Character) SetSprite(sprite *asset.Sprite) {
	c.mu.Lock()
	c.sprite = sprite
	c.mu.Unlock()
}

func (c *Character) SetPosition(pos capability.Vec2) {
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
}

func (c *Character) Position() capability.Vec2 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos
}

func (c *Character) SetScale(scale float64) {
	c.mu.Lock()
	c.scale = scale
	c.mu.Unlock()
}

func (c *Character) SetState(state capability.State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Character) Show() {
	c.mu.Lock()
	c.visible, c.alpha = true, 1
	c.mu.Unlock()
}

func (c *Character) Hide() {
	c.mu.Lock()
	c.visible, c.alpha = false, 0
	c.mu.Unlock()
}

func (c *Character) Move(ctx context.Context, to capability.Vec2, d time.Duration) error {
	from := c.Position()
	return c.stage.tween(ctx, d, func(t float64) {
		c.SetPosition(capability.Vec2{X: lerp(from.X, to.X, t), Y: lerp(from.Y, to.Y, t)})
	})
}

func (c *Character) Scale(ctx context.Context, scale float64, d time.Duration) error {
	c.mu.RLock()
	from := c.scale
	c.mu.RUnlock()
	return c.stage.tween(ctx, d, func(t float64) {
		c.SetScale(lerp(from, scale, t))
	})
}

func (c *Character) FadeIn(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.visible = true
	c.mu.Unlock()
	return c.stage.tween(ctx, d, func(t float64) {
		c.mu.Lock()
		c.alpha = t
		c.mu.Unlock()
	})
}

func (c *Character) FadeOut(ctx context.Context, d time.Duration) error {
	return c.stage.tween(ctx, d, func(t float64) {
		c.mu.Lock()
		c.alpha = 1 - t
		if t >= 1 {
			c.visible = false
		}
		c.mu.Unlock()
	})
}

func (c *Character) NodUp(ctx context.Context) error {
	return c.nod(ctx, -nodOffset)
}

func (c *Character) NodDown(ctx context.Context) error {
	return c.nod(ctx, nodOffset)
}

// nod moves the sprite by offset and back.
func (c *Character) nod(ctx context.Context, offset float64) error {
	base := c.Position()
	return c.stage.tween(ctx, nodDuration, func(t float64) {
		dy := offset * (1 - abs(2*t-1))
		c.SetPosition(capability.Vec2{X: base.X, Y: base.Y + dy})
	})
}

func (c *Character) Blackout(ctx context.Context, d time.Duration) error {
	return c.stage.tween(ctx, d, func(t float64) {
		if t >= 1 {
			c.SetState(capability.Blackout)
		}
	})
}

func (c *Character) Colorize(ctx context.Context, d time.Duration) error {
	return c.stage.tween(ctx, d, func(t float64) {
		if t >= 1 {
			c.SetState(capability.Active)
		}
	})
}

// Snapshot is a copy of a character's visible state.
type Snapshot struct {
	Key     string
	Sprite  string
	Pos     capability.Vec2
	Scale   float64
	State   capability.State
	Visible bool
	Alpha   float64
}

// Snapshot copies the character's state.
func (c *Character) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Key:     c.key,
		Pos:     c.pos,
		Scale:   c.scale,
		State:   c.state,
		Visible: c.visible,
		Alpha:   c.alpha,
	}
	if c.sprite != nil {
		snap.Sprite = c.sprite.Key
	}
	return snap
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
