package engine

import (
	"context"
	"log/slog"

	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver receives lifecycle events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithTranscript adds sinks that receive every displayed speech line.
func WithTranscript(sinks ...transcript.Sink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sinks...) }
}

// WithPlayerKeyword changes the talker keyword mapped to the player.
func WithPlayerKeyword(keyword string) Option {
	return func(e *Engine) {
		if keyword != "" {
			e.keyword = keyword
		}
	}
}

// WithTextFilter rewrites speech and choice text before display.
func WithTextFilter(f TextFilter) Option {
	return func(e *Engine) { e.filter = f }
}

// WithExtensions registers custom commands used by Play.
func WithExtensions(ext map[string]parser.ExtensionFunc) Option {
	return func(e *Engine) {
		for k, fn := range ext {
			e.extensions[k] = fn
		}
	}
}

// WithStepLimit ends a run with ErrStepLimit after n instructions. Zero
// means no limit.
func WithStepLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.stepLimit = n
		}
	}
}

// Observer is notified of run lifecycle changes. Calls are made from the
// goroutine driving the engine, or from Skip's caller.
type Observer interface {
	Started(ctx context.Context)
	PhaseChanged(ctx context.Context, from, to int)
	Ended(ctx context.Context, skipped bool)
}

type nopObserver struct{}

func (nopObserver) Started(context.Context)                {}
func (nopObserver) PhaseChanged(context.Context, int, int) {}
func (nopObserver) Ended(context.Context, bool)            {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (obs Observers) Started(ctx context.Context) {
	for _, o := range obs {
		o.Started(ctx)
	}
}

func (obs Observers) PhaseChanged(ctx context.Context, from, to int) {
	for _, o := range obs {
		o.PhaseChanged(ctx, from, to)
	}
}

func (obs Observers) Ended(ctx context.Context, skipped bool) {
	for _, o := range obs {
		o.Ended(ctx, skipped)
	}
}
