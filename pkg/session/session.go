// Package session holds the persisted state of one player's run through a story.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
)

// Session is what survives between runs: who is playing, which script they
// are on and every variable the scripts have defined so far.
type Session struct {
	ID            uuid.UUID           `json:"id"`
	Script        string              `json:"script"`
	PlayerName    string              `json:"player_name"`
	PlayerKeyword string              `json:"player_keyword,omitempty"`
	Variables     []variable.Snapshot `json:"variables,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func New(script, playerName string) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		Script:     script,
		PlayerName: playerName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Capture copies the store into the session.
func (s *Session) Capture(vars *variable.Store) {
	s.Variables = vars.Snapshot()
}

// Store rebuilds a variable store from the captured snapshot.
func (s *Session) Store() (*variable.Store, error) {
	vars := variable.NewStore()
	if err := vars.Restore(s.Variables); err != nil {
		return nil, err
	}
	return vars, nil
}
