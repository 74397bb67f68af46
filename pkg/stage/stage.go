// Package stage is an in-memory dialogue host. It keeps characters, layers,
// audio and callbacks as plain state so runs can be driven headlessly.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
)

// ErrUnknownAction is returned by Call for an unregistered action key.
var ErrUnknownAction = errors.New("unknown action")

const frame = 16 * time.Millisecond

// Stage implements every capability contract except display and selection.
type Stage struct {
	mu         sync.RWMutex
	timeScale  float64
	logger     *slog.Logger
	assets     asset.Source
	characters map[string]*Character
	names      map[string]string
	overrides  map[string]string
	actions    map[string]func(ctx context.Context) error

	background *Layer
	foreground *Layer

	uiVisible  bool
	sceneAlpha float64
	music      string
	played     []string
	calls      []string
}

// Option configures a Stage.
type Option func(*Stage)

// WithTimeScale multiplies every animation duration. 0 makes animations instant.
func WithTimeScale(scale float64) Option {
	return func(s *Stage) { s.timeScale = scale }
}

// WithLogger sets the stage logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stage) { s.logger = logger }
}

// WithAssets makes audio playback resolve sounds through src.
func WithAssets(src asset.Source) Option {
	return func(s *Stage) { s.assets = src }
}

// New creates an empty stage with instant animations.
func New(opts ...Option) *Stage {
	s := &Stage{
		logger:     slog.Default(),
		characters: make(map[string]*Character),
		names:      make(map[string]string),
		overrides:  make(map[string]string),
		actions:    make(map[string]func(ctx context.Context) error),
		uiVisible:  true,
		sceneAlpha: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.background = newLayer(s, "bg")
	s.foreground = newLayer(s, "fg")
	return s
}

// Host wires the stage into a capability host. display and selector may be nil.
func (s *Stage) Host(playerName string, display capability.Displayer, selector capability.Selector, vars *variable.Store) *capability.Host {
	h := &capability.Host{
		PlayerName: playerName,
		Display:    display,
		Assets:     s.assets,
		Roster:     s,
		Field:      s,
		Background: s.background,
		Foreground: s.foreground,
		Transition: s,
		Variables:  vars,
		Audio:      s,
		Actions:    s,
		Clock:      s,
	}
	if selector != nil {
		h.Selector = selector
	}
	return h
}

// RegisterAction adds a callback reachable with the call command.
func (s *Stage) RegisterAction(key string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[key] = fn
}

// Roster

func (s *Stage) AddCharacter(key, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[key] = name
	if _, ok := s.characters[key]; !ok {
		s.characters[key] = newCharacter(s, key)
	}
	s.logger.Debug("character added", "key", key, "name", name)
}

func (s *Stage) CharacterExists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[key]
	return ok
}

func (s *Stage) CharacterName(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.overrides[key]; ok {
		return n, true
	}
	n, ok := s.names[key]
	return n, ok
}

func (s *Stage) OverrideName(key, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[key]; !ok {
		return fmt.Errorf("override name of %q: not on the roster", key)
	}
	s.overrides[key] = name
	return nil
}

func (s *Stage) ResetName(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[key]; !ok {
		return fmt.Errorf("reset name of %q: not on the roster", key)
	}
	delete(s.overrides, key)
	return nil
}

// Characters returns the roster keys in order.
func (s *Stage) Characters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.names))
	for k := range s.names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field

func (s *Stage) Character(key string) (capability.Character, bool) {
	c, ok := s.Char(key)
	if !ok {
		return nil, false
	}
	return c, true
}

// Char returns the concrete character for inspection.
func (s *Stage) Char(key string) (*Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[key]
	return c, ok
}

// Background returns the background plane.
func (s *Stage) Background() *Layer { return s.background }

// Foreground returns the foreground plane.
func (s *Stage) Foreground() *Layer { return s.foreground }

// Transition

func (s *Stage) FadeIn(ctx context.Context, d time.Duration) error {
	return s.tween(ctx, d, func(t float64) {
		s.mu.Lock()
		s.sceneAlpha = t
		s.mu.Unlock()
	})
}

func (s *Stage) FadeOut(ctx context.Context, d time.Duration) error {
	return s.tween(ctx, d, func(t float64) {
		s.mu.Lock()
		s.sceneAlpha = 1 - t
		s.mu.Unlock()
	})
}

func (s *Stage) ShowUI() {
	s.mu.Lock()
	s.uiVisible = true
	s.mu.Unlock()
}

func (s *Stage) HideUI() {
	s.mu.Lock()
	s.uiVisible = false
	s.mu.Unlock()
}

// SceneAlpha is the scene-wide opacity.
func (s *Stage) SceneAlpha() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sceneAlpha
}

// UIVisible reports whether the dialogue UI is shown.
func (s *Stage) UIVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uiVisible
}

// Audio

func (s *Stage) PlayMusic(ctx context.Context, key string) error {
	if err := s.loadSound(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	s.music = key
	s.played = append(s.played, "music:"+key)
	s.mu.Unlock()
	return nil
}

func (s *Stage) PlaySE(ctx context.Context, key string) error {
	if err := s.loadSound(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	s.played = append(s.played, "se:"+key)
	s.mu.Unlock()
	return nil
}

func (s *Stage) PlayVoice(ctx context.Context, key string) error {
	if err := s.loadSound(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	s.played = append(s.played, "voice:"+key)
	s.mu.Unlock()
	return nil
}

func (s *Stage) loadSound(ctx context.Context, key string) error {
	if s.assets == nil {
		return nil
	}
	if _, err := s.assets.Sound(ctx, key); err != nil {
		return fmt.Errorf("load sound %q: %w", key, err)
	}
	return nil
}

// Music is the key of the current background music.
func (s *Stage) Music() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.music
}

// Played lists every audio cue in order, prefixed with its channel.
func (s *Stage) Played() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.played...)
}

// Actions

func (s *Stage) Call(ctx context.Context, key string) error {
	s.mu.Lock()
	fn, ok := s.actions[key]
	s.calls = append(s.calls, key)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, key)
	}
	return fn(ctx)
}

// Calls lists every action key invoked, registered or not.
func (s *Stage) Calls() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.calls...)
}

// Sleep waits for d multiplied by the time scale.
func (s *Stage) Sleep(ctx context.Context, d time.Duration) error {
	return s.tween(ctx, d, func(float64) {})
}

// tween drives apply from 0 to 1 over the scaled duration. apply(1) is
// always the last call unless ctx ends first.
func (s *Stage) tween(ctx context.Context, d time.Duration, apply func(t float64)) error {
	total := time.Duration(float64(d) * s.timeScale)
	if total <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		apply(1)
		return nil
	}

	start := time.Now()
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			t := float64(now.Sub(start)) / float64(total)
			if t >= 1 {
				apply(1)
				return nil
			}
			apply(t)
		}
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
