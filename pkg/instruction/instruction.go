// Package instruction defines the executable steps a parsed script is made
// of, and the phase table that holds them.
package instruction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
)

// Kind is the instruction family.
type Kind int

const (
	KindSpeech Kind = iota
	KindSelection
	KindCharacter
	KindLayer
	KindTransition
	KindSystem
	KindConditional
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindSpeech:
		return "speech"
	case KindSelection:
		return "selection"
	case KindCharacter:
		return "character"
	case KindLayer:
		return "layer"
	case KindTransition:
		return "transition"
	case KindSystem:
		return "system"
	case KindConditional:
		return "conditional"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrUnknownCharacter is returned when a character op names a key that is not on the field.
	ErrUnknownCharacter = errors.New("unknown character")
	// ErrNoAssetSource is returned when an instruction needs an asset and the host has no source.
	ErrNoAssetSource = errors.New("host has no asset source")
	// ErrNoDisplayer is returned when speech runs on a host without a displayer.
	ErrNoDisplayer = errors.New("host has no displayer")
)

// Instruction is one executable step.
type Instruction interface {
	Kind() Kind
	// Requires is the capability set the host must offer; otherwise the
	// instruction is skipped.
	Requires() capability.Set
	Execute(ctx context.Context, rt Runtime) error
	// String renders the instruction for listings.
	String() string
}

// Suspender is implemented by instructions that block the cursor while they run.
type Suspender interface {
	Suspends() bool
}

// Runtime is the engine surface instructions execute against.
type Runtime interface {
	Host() *capability.Host
	Logger() *slog.Logger

	Phase() int
	// SetPhase jumps to the start of bucket n. The rest of the running
	// bucket is abandoned.
	SetPhase(n int)
	// Epoch changes on every SetPhase.
	Epoch() uint64

	PlayerKeyword() string
	SetPlayerKeyword(keyword string)

	// Exec gates and runs a nested instruction.
	Exec(ctx context.Context, in Instruction) error
	// Detach runs fn in the background. Only a global skip cancels it.
	Detach(name string, fn func(ctx context.Context) error)

	// Record stores a displayed line in the transcript.
	Record(ctx context.Context, e transcript.Entry)
	// FilterText applies the configured word filter to speech text.
	FilterText(text string) string
}

// Accepts reports whether host can run in.
func Accepts(host *capability.Host, in Instruction) bool {
	return host.Has(in.Requires())
}

// animate runs fn in the foreground when wait is set and detached otherwise.
func animate(ctx context.Context, rt Runtime, wait bool, name string, fn func(ctx context.Context) error) error {
	if wait {
		return fn(ctx)
	}
	rt.Detach(name, fn)
	return nil
}
