package instruction

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
)

// TransitionVerb selects a scene-wide effect.
type TransitionVerb int

const (
	SceneFadeIn TransitionVerb = iota
	SceneFadeOut
	ShowUI
	HideUI
)

func (v TransitionVerb) String() string {
	switch v {
	case SceneFadeIn:
		return "scenefadein"
	case SceneFadeOut:
		return "scenefadeout"
	case ShowUI:
		return "show-ui"
	case HideUI:
		return "hide-ui"
	default:
		return fmt.Sprintf("transition(%d)", int(v))
	}
}

// TransitionOp runs a scene fade or toggles the dialogue UI.
type TransitionOp struct {
	Verb     TransitionVerb
	Duration time.Duration
	Wait     bool
}

func (t *TransitionOp) Kind() Kind               { return KindTransition }
func (t *TransitionOp) Requires() capability.Set { return capability.Transition }
func (t *TransitionOp) Suspends() bool           { return t.Wait }

func (t *TransitionOp) String() string {
	out := t.Verb.String()
	if t.Verb == SceneFadeIn || t.Verb == SceneFadeOut {
		out += " " + t.Duration.String()
	}
	if t.Wait {
		out += " wait"
	}
	return out
}

func (t *TransitionOp) Execute(ctx context.Context, rt Runtime) error {
	tr := rt.Host().Transition
	switch t.Verb {
	case SceneFadeIn:
		return animate(ctx, rt, t.Wait, t.String(), func(ctx context.Context) error {
			return tr.FadeIn(ctx, t.Duration)
		})
	case SceneFadeOut:
		return animate(ctx, rt, t.Wait, t.String(), func(ctx context.Context) error {
			return tr.FadeOut(ctx, t.Duration)
		})
	case ShowUI:
		tr.ShowUI()
	case HideUI:
		tr.HideUI()
	default:
		return fmt.Errorf("unsupported transition %s", t.Verb)
	}
	return nil
}
