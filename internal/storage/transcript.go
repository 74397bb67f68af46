package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const transcriptSchema = `CREATE TABLE IF NOT EXISTS transcript (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	talker     TEXT    NOT NULL,
	text       TEXT    NOT NULL,
	voice      TEXT    NOT NULL DEFAULT '',
	is_player  INTEGER NOT NULL DEFAULT 0,
	phase      INTEGER NOT NULL,
	at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS transcript_session ON transcript(session_id, id);`

// TranscriptStore keeps every displayed line in a SQLite database, keyed by
// session.
type TranscriptStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenTranscriptStore opens (and creates if needed) the database at path.
func OpenTranscriptStore(path string, logger *slog.Logger) (*TranscriptStore, error) {
	if path == "" {
		return nil, errors.New("transcript database path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, transcriptSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create transcript schema: %w", err)
	}

	logger.Debug("Transcript store ready", "path", path)
	return &TranscriptStore{db: db, logger: logger}, nil
}

func (s *TranscriptStore) Close() error {
	return s.db.Close()
}

// Sink returns a transcript sink writing under the given session.
func (s *TranscriptStore) Sink(id uuid.UUID) transcript.Sink {
	return &sessionSink{store: s, id: id}
}

// Append stores one entry for a session.
func (s *TranscriptStore) Append(ctx context.Context, id uuid.UUID, e transcript.Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcript (session_id, talker, text, voice, is_player, phase, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), e.Talker, e.Text, e.Voice, e.IsPlayer, e.Phase, at.UnixNano(),
	)
	if err != nil {
		s.logger.Error("Failed to append transcript entry", "uuid", id, "error", err)
		return fmt.Errorf("failed to append transcript entry: %w", err)
	}
	return nil
}

// Entries returns a session's lines in the order they were shown.
func (s *TranscriptStore) Entries(ctx context.Context, id uuid.UUID) ([]transcript.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT talker, text, voice, is_player, phase, at FROM transcript WHERE session_id = ? ORDER BY id`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var out []transcript.Entry
	for rows.Next() {
		var (
			e  transcript.Entry
			at int64
		)
		if err := rows.Scan(&e.Talker, &e.Text, &e.Voice, &e.IsPlayer, &e.Phase, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transcript entry: %w", err)
		}
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear removes every line of a session.
func (s *TranscriptStore) Clear(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcript WHERE session_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}

type sessionSink struct {
	store *TranscriptStore
	id    uuid.UUID
}

func (s *sessionSink) Record(ctx context.Context, e transcript.Entry) error {
	return s.store.Append(ctx, s.id, e)
}
