// Package engine runs a phase table of instructions against a host.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
)

// DefaultPlayerKeyword is the talker keyword that maps to the player's name.
const DefaultPlayerKeyword = "player"

// State is the lifecycle of a run.
type State int

const (
	Idle State = iota
	Running
	Suspended
	Ended
	Skipped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Ended:
		return "ended"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNotStarted is returned by Step and Run before Start.
	ErrNotStarted = errors.New("dialogue not started")
	// ErrNilTable is returned by Start without a table.
	ErrNilTable = errors.New("nil instruction table")
	// ErrStepLimit ends a run that executed more instructions than WithStepLimit allows.
	ErrStepLimit = errors.New("step limit reached")
)

// ExecError is a runtime failure of one instruction. The run ends with it.
type ExecError struct {
	Phase int
	Index int
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("phase %d instruction %d: %v", e.Phase, e.Index, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// TextFilter rewrites speech and choice text before display.
type TextFilter interface {
	FilterText(text string) string
}

// Engine drives one dialogue at a time. Step, Run and Play must be called
// from a single goroutine; Skip, State and Wait are safe from any goroutine.
type Engine struct {
	host       *capability.Host
	logger     *slog.Logger
	observer   Observer
	sinks      []transcript.Sink
	filter     TextFilter
	extensions map[string]parser.ExtensionFunc
	stepLimit  int

	mu       sync.Mutex
	table    *instruction.Table
	state    State
	phase    int
	cursor   int
	epoch    uint64
	keyword  string
	draining bool
	steps    int

	skipCtx    context.Context
	skipCancel context.CancelFunc
	detached   sync.WaitGroup
}

// Ensure Engine implements instruction.Runtime
var _ instruction.Runtime = (*Engine)(nil)

// New creates an engine bound to host.
func New(host *capability.Host, opts ...Option) *Engine {
	e := &Engine{
		host:       host,
		logger:     slog.Default(),
		observer:   nopObserver{},
		keyword:    DefaultPlayerKeyword,
		extensions: make(map[string]parser.ExtensionFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.skipCtx, e.skipCancel = context.WithCancel(context.Background())
	return e
}

// Start loads table and positions the cursor at the start of phase 0.
func (e *Engine) Start(table *instruction.Table) error {
	if table == nil {
		return ErrNilTable
	}
	e.mu.Lock()
	e.table = table
	e.state = Running
	e.phase = 0
	e.cursor = 0
	e.epoch++
	e.steps = 0
	if e.skipCtx.Err() != nil {
		e.skipCtx, e.skipCancel = context.WithCancel(context.Background())
	}
	e.mu.Unlock()

	e.logger.Info("Dialogue started", "phases", len(table.Phases()), "instructions", table.Len())
	e.observer.Started(context.Background())
	return nil
}

// Step executes the next instruction. It reports false once the run is over.
func (e *Engine) Step(ctx context.Context) (bool, error) {
	e.mu.Lock()
	switch e.state {
	case Idle:
		e.mu.Unlock()
		return false, ErrNotStarted
	case Ended, Skipped:
		e.mu.Unlock()
		return false, nil
	}
	bucket, ok := e.table.Bucket(e.phase)
	if !ok {
		e.logger.Warn("Jumped to undefined phase", "phase", e.phase)
	}
	if e.cursor >= len(bucket) {
		e.state = Ended
		e.mu.Unlock()
		e.logger.Info("Dialogue ended")
		e.observer.Ended(context.Background(), false)
		return false, nil
	}
	if e.stepLimit > 0 && e.steps >= e.stepLimit {
		e.state = Ended
		e.mu.Unlock()
		e.logger.Warn("Step limit reached", "limit", e.stepLimit, "phase", e.phase)
		e.observer.Ended(context.Background(), false)
		return false, fmt.Errorf("%w: %d instructions", ErrStepLimit, e.stepLimit)
	}
	in := bucket[e.cursor]
	phase, index := e.phase, e.cursor
	e.cursor++
	e.steps++
	skipCtx := e.skipCtx
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(skipCtx, cancel)
	defer stop()

	if err := e.Exec(ctx, in); err != nil {
		if e.State() == Skipped {
			return false, nil
		}
		e.mu.Lock()
		e.state = Ended
		e.mu.Unlock()
		e.logger.Error("Instruction failed", "phase", phase, "index", index, "instruction", in.String(), "error", err)
		e.observer.Ended(context.Background(), false)
		return false, &ExecError{Phase: phase, Index: index, Err: err}
	}
	return !e.Finished(), nil
}

// Run steps until the run ends or fails.
func (e *Engine) Run(ctx context.Context) error {
	for {
		more, err := e.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Play loads the script key from the host asset source, parses it for the
// host's capabilities and runs it to the end.
func (e *Engine) Play(ctx context.Context, key string) error {
	if e.host == nil || e.host.Assets == nil {
		return instruction.ErrNoAssetSource
	}
	text, err := e.host.Assets.Text(ctx, key)
	if err != nil {
		return fmt.Errorf("load script %q: %w", key, err)
	}
	return e.PlayText(ctx, key, text)
}

// PlayText parses text for the host's capabilities and runs it to the end.
// name only labels errors.
func (e *Engine) PlayText(ctx context.Context, name, text string) error {
	p := parser.New(
		parser.WithCapabilities(e.host.Capabilities()),
		parser.WithExtensions(e.extensions),
		parser.WithLogger(e.logger),
	)
	table, err := p.Parse(text)
	if err != nil {
		return fmt.Errorf("parse script %q: %w", name, err)
	}
	if err := e.Start(table); err != nil {
		return err
	}
	return e.Run(ctx)
}

// Exec gates and runs one instruction, marking the engine suspended while a
// blocking instruction is in flight.
func (e *Engine) Exec(ctx context.Context, in instruction.Instruction) error {
	if !instruction.Accepts(e.host, in) {
		e.logger.Debug("Skipping instruction", "instruction", in.String(), "requires", in.Requires().String())
		return nil
	}
	if s, ok := in.(instruction.Suspender); ok && s.Suspends() {
		e.setState(Running, Suspended)
		defer e.setState(Suspended, Running)
	}
	return in.Execute(ctx, e)
}

// setState moves from one state to another; any other current state is kept.
func (e *Engine) setState(from, to State) {
	e.mu.Lock()
	if e.state == from {
		e.state = to
	}
	e.mu.Unlock()
}

// SetPhase jumps to the start of bucket n.
func (e *Engine) SetPhase(n int) {
	e.mu.Lock()
	from := e.phase
	e.phase = n
	e.cursor = 0
	e.epoch++
	e.mu.Unlock()

	e.logger.Debug("Phase changed", "from", from, "to", n)
	e.observer.PhaseChanged(context.Background(), from, n)
}

// Skip aborts the current suspension and every detached operation, waits for
// them to exit and ends the run as skipped.
func (e *Engine) Skip() {
	e.mu.Lock()
	active := e.state == Running || e.state == Suspended
	if active {
		e.state = Skipped
	}
	e.draining = true
	cancel := e.skipCancel
	e.mu.Unlock()

	cancel()
	e.detached.Wait()

	e.mu.Lock()
	e.draining = false
	e.mu.Unlock()

	if active {
		e.logger.Info("Dialogue skipped", "phase", e.Phase())
		e.observer.Ended(context.Background(), true)
	}
}

// Wait blocks until every detached operation has returned.
func (e *Engine) Wait() {
	e.detached.Wait()
}

// Detach runs fn in its own goroutine. fn is canceled only by Skip.
func (e *Engine) Detach(name string, fn func(ctx context.Context) error) {
	e.mu.Lock()
	if e.draining || e.state == Skipped {
		e.mu.Unlock()
		return
	}
	ctx := e.skipCtx
	e.detached.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.detached.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Warn("Detached operation failed", "operation", name, "error", err)
		}
	}()
}

// Record hands e to every transcript sink. Sink failures are logged.
func (e *Engine) Record(ctx context.Context, entry transcript.Entry) {
	for _, sink := range e.sinks {
		if err := sink.Record(ctx, entry); err != nil {
			e.logger.Warn("Failed to record transcript entry", "error", err)
		}
	}
}

// FilterText applies the configured text filter.
func (e *Engine) FilterText(text string) string {
	if e.filter == nil {
		return text
	}
	return e.filter.FilterText(text)
}

func (e *Engine) Host() *capability.Host { return e.host }
func (e *Engine) Logger() *slog.Logger   { return e.logger }

func (e *Engine) Phase() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Cursor is the index of the next instruction in the current phase.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

func (e *Engine) PlayerKeyword() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.keyword
}

func (e *Engine) SetPlayerKeyword(keyword string) {
	e.mu.Lock()
	e.keyword = keyword
	e.mu.Unlock()
}

// State reports where the run is in its lifecycle.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Finished reports whether the run has ended, skipped or not.
func (e *Engine) Finished() bool {
	s := e.State()
	return s == Ended || s == Skipped
}
