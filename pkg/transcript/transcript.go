// Package transcript records the speech lines shown during a dialogue run.
package transcript

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry is one displayed speech line.
type Entry struct {
	Talker   string    `json:"talker"`
	Text     string    `json:"text"`
	Voice    string    `json:"voice,omitempty"`
	IsPlayer bool      `json:"is_player,omitempty"`
	Phase    int       `json:"phase"`
	At       time.Time `json:"at"`
}

// Sink receives transcript entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Memory keeps entries in memory.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

// Ensure Memory implements Sink
var _ Sink = (*Memory)(nil)

// NewMemory returns an empty in-memory transcript.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends e.
func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Reset drops every entry.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

// Format renders entries as plain "Talker: text" lines.
func Format(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.Talker == "" {
			fmt.Fprintln(&b, e.Text)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", e.Talker, e.Text)
	}
	return b.String()
}
