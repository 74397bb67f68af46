package variable

import (
	"sort"
	"sync"
)

// Store is the session-wide variable table. The engine never resets it.
type Store struct {
	mu   sync.RWMutex
	vars map[string]Variable
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{vars: make(map[string]Variable)}
}

// Create defines key with a type inferred from literal. An existing
// variable is kept as is and Create reports false.
func (s *Store) Create(key, literal string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vars[key]; ok {
		return false
	}
	s.vars[key] = Variable{Key: key, Value: Infer(literal)}
	return true
}

// Set assigns literal to an existing variable, keeping its type.
func (s *Store) Set(key, literal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[key]
	if !ok {
		return undefined(key)
	}
	val, err := ParseAs(v.Type(), literal)
	if err != nil {
		return &ValueTypeError{Key: key, Want: v.Type(), Got: literal}
	}
	v.Value = val
	s.vars[key] = v
	return nil
}

// Assign sets key when it exists and creates it otherwise.
func (s *Store) Assign(key, literal string) error {
	if s.Create(key, literal) {
		return nil
	}
	return s.Set(key, literal)
}

// Get returns the variable stored under key.
func (s *Store) Get(key string) (Variable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[key]
	if !ok {
		return Variable{}, undefined(key)
	}
	return v, nil
}

// Has reports whether key is defined.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vars[key]
	return ok
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vars, key)
}

// Keys returns the defined keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.vars))
	for k := range s.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is the serializable form of one variable.
type Snapshot struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Snapshot returns every variable ordered by key.
func (s *Store) Snapshot() []Snapshot {
	keys := s.Keys()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		v := s.vars[k]
		out = append(out, Snapshot{Key: k, Type: v.Type().String(), Value: v.Value.String()})
	}
	return out
}

// Restore replaces the store content with snaps. Each value is parsed with
// its recorded type so a string variable holding "1" stays a string.
func (s *Store) Restore(snaps []Snapshot) error {
	vars := make(map[string]Variable, len(snaps))
	for _, snap := range snaps {
		t, err := ParseType(snap.Type)
		if err != nil {
			return err
		}
		val, err := ParseAs(t, snap.Value)
		if err != nil {
			return &ValueTypeError{Key: snap.Key, Want: t, Got: snap.Value}
		}
		vars[snap.Key] = Variable{Key: snap.Key, Value: val}
	}
	s.mu.Lock()
	s.vars = vars
	s.mu.Unlock()
	return nil
}
