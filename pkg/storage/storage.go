package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/pkg/session"
)

// Storage defines a unified interface for all storage operations
// This interface combines session persistence (Redis) with script loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations (Redis-backed). LoadSession returns nil, nil when
	// the session does not exist.
	SaveSession(ctx context.Context, s *session.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Script operations (filesystem-backed). Keys have no extension.
	ListScripts(ctx context.Context) ([]string, error)
	GetScript(ctx context.Context, key string) (string, error)
}
