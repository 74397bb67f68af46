// Package sheet keeps d20 character sheets and adds the "check" command to
// scripts: an attribute check against a difficulty class.
package sheet

import (
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/jwebster45206/d20"
)

// ErrNoSheet is returned for a character without a sheet.
var ErrNoSheet = errors.New("character has no sheet")

// abilities are scored 1-30 and contribute (score-10)/2. Any other
// attribute is a flat bonus.
var abilities = map[string]bool{
	"strength":     true,
	"dexterity":    true,
	"constitution": true,
	"intelligence": true,
	"wisdom":       true,
	"charisma":     true,
}

// Roller returns a number in [1, sides].
type Roller func(sides int) int

// RandomRoller rolls with math/rand.
func RandomRoller(sides int) int {
	return rand.IntN(sides) + 1
}

// Spec is the serializable form of a sheet.
type Spec struct {
	HP    int
	AC    int
	Stats map[string]int
}

// Sheets maps character keys to d20 actors.
type Sheets struct {
	mu     sync.RWMutex
	actors map[string]*d20.Actor
	roll   Roller
}

// New returns an empty set of sheets. A nil roller uses RandomRoller.
func New(roll Roller) *Sheets {
	if roll == nil {
		roll = RandomRoller
	}
	return &Sheets{actors: make(map[string]*d20.Actor), roll: roll}
}

// Add builds the d20 actor for key, replacing any previous sheet.
func (s *Sheets) Add(key string, spec Spec) error {
	attrs := make(map[string]int, len(spec.Stats))
	maps.Copy(attrs, spec.Stats)
	hp := spec.HP
	if hp <= 0 {
		hp = 1
	}

	actor, err := d20.NewActor(key).
		WithHP(hp).
		WithAC(spec.AC).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build actor %q: %w", key, err)
	}

	s.mu.Lock()
	s.actors[key] = actor
	s.mu.Unlock()
	return nil
}

// Actor returns the d20 actor behind a character.
func (s *Sheets) Actor(key string) (*d20.Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[key]
	return a, ok
}

// Keys lists characters with a sheet, sorted.
func (s *Sheets) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.actors))
	for k := range s.actors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Modifier is what a character adds to a d20 roll for attr. A missing
// attribute contributes nothing.
func (s *Sheets) Modifier(key, attr string) (int, error) {
	a, ok := s.Actor(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSheet, key)
	}
	v, ok := a.Attribute(attr)
	if !ok {
		return 0, nil
	}
	if abilities[attr] {
		return abilityModifier(v), nil
	}
	return v, nil
}

func abilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// Result is the outcome of one check.
type Result struct {
	Roll     int
	Modifier int
	DC       int
}

func (r Result) Total() int { return r.Roll + r.Modifier }

// Success follows the usual table rules: a natural 20 always passes and a
// natural 1 always fails.
func (r Result) Success() bool {
	switch r.Roll {
	case 20:
		return true
	case 1:
		return false
	}
	return r.Total() >= r.DC
}

// Check rolls a d20 for key's attr against dc.
func (s *Sheets) Check(key, attr string, dc int) (Result, error) {
	mod, err := s.Modifier(key, attr)
	if err != nil {
		return Result{}, err
	}
	return Result{Roll: s.roll(20), Modifier: mod, DC: dc}, nil
}
