package stage

import (
	"context"
	"sync"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
)

// Layer is a background or foreground plane.
type Layer struct {
	stage *Stage
	name  string

	mu      sync.RWMutex
	sprite  *asset.Sprite
	pos     capability.Vec2
	scale   float64
	visible bool
	alpha   float64
}

func newLayer(s *Stage, name string) *Layer {
	return &Layer{stage: s, name: name, scale: 1}
}

func (l *Layer) SetSprite(sprite *asset.Sprite) {
	l.mu.Lock()
	l.sprite = sprite
	l.mu.Unlock()
}

func (l *Layer) SetPosition(pos capability.Vec2) {
	l.mu.Lock()
	l.pos = pos
	l.mu.Unlock()
}

func (l *Layer) SetScale(scale float64) {
	l.mu.Lock()
	l.scale = scale
	l.mu.Unlock()
}

func (l *Layer) Show() {
	l.mu.Lock()
	l.visible, l.alpha = true, 1
	l.mu.Unlock()
}

func (l *Layer) Hide() {
	l.mu.Lock()
	l.visible, l.alpha = false, 0
	l.mu.Unlock()
}

func (l *Layer) FadeIn(ctx context.Context, d time.Duration) error {
	l.mu.Lock()
	l.visible = true
	l.mu.Unlock()
	return l.stage.tween(ctx, d, func(t float64) {
		l.mu.Lock()
		l.alpha = t
		l.mu.Unlock()
	})
}

func (l *Layer) FadeOut(ctx context.Context, d time.Duration) error {
	return l.stage.tween(ctx, d, func(t float64) {
		l.mu.Lock()
		l.alpha = 1 - t
		if t >= 1 {
			l.visible = false
		}
		l.mu.Unlock()
	})
}

// CrossFade swaps the sprite once the fade completes.
func (l *Layer) CrossFade(ctx context.Context, sprite *asset.Sprite, d time.Duration) error {
	return l.stage.tween(ctx, d, func(t float64) {
		if t >= 1 {
			l.SetSprite(sprite)
		}
	})
}

func (l *Layer) Move(ctx context.Context, to capability.Vec2, d time.Duration) error {
	l.mu.RLock()
	from := l.pos
	l.mu.RUnlock()
	return l.stage.tween(ctx, d, func(t float64) {
		l.SetPosition(capability.Vec2{X: lerp(from.X, to.X, t), Y: lerp(from.Y, to.Y, t)})
	})
}

func (l *Layer) Scale(ctx context.Context, scale float64, d time.Duration) error {
	l.mu.RLock()
	from := l.scale
	l.mu.RUnlock()
	return l.stage.tween(ctx, d, func(t float64) {
		l.SetScale(lerp(from, scale, t))
	})
}

// LayerSnapshot is a copy of a layer's visible state.
type LayerSnapshot struct {
	Name    string
	Sprite  string
	Pos     capability.Vec2
	Scale   float64
	Visible bool
	Alpha   float64
}

// Snapshot copies the layer's state.
func (l *Layer) Snapshot() LayerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := LayerSnapshot{
		Name:    l.name,
		Pos:     l.pos,
		Scale:   l.scale,
		Visible: l.visible,
		Alpha:   l.alpha,
	}
	if l.sprite != nil {
		snap.Sprite = l.sprite.Key
	}
	return snap
}
