package instruction

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
)

// LayerTarget names the image plane a LayerOp acts on.
type LayerTarget int

const (
	LayerBackground LayerTarget = iota
	LayerForeground
)

func (t LayerTarget) String() string {
	if t == LayerForeground {
		return "fg"
	}
	return "bg"
}

// LayerVerb selects what a LayerOp does.
type LayerVerb int

const (
	LayerSet LayerVerb = iota
	LayerShow
	LayerHide
	LayerFadeIn
	LayerFadeOut
	LayerCrossFade
	LayerMove
	LayerScale
)

var layerVerbNames = [...]string{
	LayerSet:       "set",
	LayerShow:      "show",
	LayerHide:      "hide",
	LayerFadeIn:    "fadein",
	LayerFadeOut:   "fadeout",
	LayerCrossFade: "crossfade",
	LayerMove:      "move",
	LayerScale:     "scale",
}

func (v LayerVerb) String() string {
	if v < 0 || int(v) >= len(layerVerbNames) {
		return fmt.Sprintf("layerverb(%d)", int(v))
	}
	return layerVerbNames[v]
}

// LayerOp manipulates the background or foreground plane.
type LayerOp struct {
	Target   LayerTarget
	Verb     LayerVerb
	Sprite   string
	Pos      capability.Vec2
	Scale    float64
	Duration time.Duration
	Wait     bool
}

func (l *LayerOp) Kind() Kind { return KindLayer }

func (l *LayerOp) Requires() capability.Set {
	if l.Target == LayerForeground {
		return capability.Foreground
	}
	return capability.Background
}

func (l *LayerOp) Suspends() bool {
	return l.Wait || l.Verb == LayerSet || l.Verb == LayerCrossFade
}

func (l *LayerOp) String() string {
	var args string
	switch l.Verb {
	case LayerSet:
		args = fmt.Sprintf(" %s %s %g", l.Sprite, formatVec(l.Pos), l.Scale)
	case LayerFadeIn, LayerFadeOut:
		args = " " + l.Duration.String()
	case LayerCrossFade:
		args = fmt.Sprintf(" %s %s", l.Sprite, l.Duration)
	case LayerMove:
		args = fmt.Sprintf(" %s %s", formatVec(l.Pos), l.Duration)
	case LayerScale:
		args = fmt.Sprintf(" %g %s", l.Scale, l.Duration)
	}
	if l.Wait {
		args += " wait"
	}
	if l.Verb == LayerSet {
		return fmt.Sprintf("set%s%s", l.Target, args)
	}
	return fmt.Sprintf("%s%s%s", l.Target, l.Verb, args)
}

func (l *LayerOp) layer(host *capability.Host) capability.Layer {
	if l.Target == LayerForeground {
		return host.Foreground
	}
	return host.Background
}

func (l *LayerOp) Execute(ctx context.Context, rt Runtime) error {
	host := rt.Host()
	layer := l.layer(host)
	name := l.String()

	switch l.Verb {
	case LayerSet:
		sprite, err := loadSprite(ctx, host, l.Sprite)
		if err != nil {
			return err
		}
		layer.SetSprite(sprite)
		layer.SetPosition(l.Pos)
		layer.SetScale(l.Scale)
	case LayerShow:
		layer.Show()
	case LayerHide:
		layer.Hide()
	case LayerFadeIn:
		return animate(ctx, rt, l.Wait, name, func(ctx context.Context) error {
			return layer.FadeIn(ctx, l.Duration)
		})
	case LayerFadeOut:
		return animate(ctx, rt, l.Wait, name, func(ctx context.Context) error {
			return layer.FadeOut(ctx, l.Duration)
		})
	case LayerCrossFade:
		sprite, err := loadSprite(ctx, host, l.Sprite)
		if err != nil {
			return err
		}
		return animate(ctx, rt, l.Wait, name, func(ctx context.Context) error {
			return layer.CrossFade(ctx, sprite, l.Duration)
		})
	case LayerMove:
		return animate(ctx, rt, l.Wait, name, func(ctx context.Context) error {
			return layer.Move(ctx, l.Pos, l.Duration)
		})
	case LayerScale:
		return animate(ctx, rt, l.Wait, name, func(ctx context.Context) error {
			return layer.Scale(ctx, l.Scale, l.Duration)
		})
	default:
		return fmt.Errorf("unsupported layer op %s", l.Verb)
	}
	return nil
}

func loadSprite(ctx context.Context, host *capability.Host, key string) (*asset.Sprite, error) {
	if host.Assets == nil {
		return nil, ErrNoAssetSource
	}
	sprite, err := host.Assets.Sprite(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load sprite %q: %w", key, err)
	}
	return sprite, nil
}
