// Package story wires a manifest, its assets and the optional persistence
// backends into runnable dialogue sessions.
package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/internal/events"
	"github.com/jwebster45206/dialogue-engine/internal/logger"
	istorage "github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/engine"
	"github.com/jwebster45206/dialogue-engine/pkg/session"
	"github.com/jwebster45206/dialogue-engine/pkg/sheet"
	"github.com/jwebster45206/dialogue-engine/pkg/stage"
	"github.com/jwebster45206/dialogue-engine/pkg/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/textfilter"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when resuming an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// Story is one loaded manifest: its stage, sheets and text filter.
type Story struct {
	Manifest *config.Manifest
	Assets   *asset.FileSource
	Stage    *stage.Stage
	Sheets   *sheet.Sheets
	Filter   *textfilter.WordFilter
}

// Open builds the stage for m. Characters are registered on the roster and
// get a d20 sheet.
func Open(m *config.Manifest, timeScale float64, roll sheet.Roller, log *slog.Logger) (*Story, error) {
	if log == nil {
		log = slog.Default()
	}
	assets := asset.NewFileSource(m.Assets, log)
	s := &Story{
		Manifest: m,
		Assets:   assets,
		Stage:    stage.New(stage.WithTimeScale(timeScale), stage.WithLogger(log), stage.WithAssets(assets)),
		Sheets:   sheet.New(roll),
	}
	for _, c := range m.Characters {
		s.Stage.AddCharacter(c.Key, c.Name)
		if err := s.Sheets.Add(c.Key, sheet.Spec{HP: c.HP, AC: c.AC, Stats: c.Stats}); err != nil {
			return nil, err
		}
	}
	if len(m.Replacements) > 0 {
		s.Filter = textfilter.NewWordFilter(m.Replacements)
	}
	return s, nil
}

// Runner starts and resumes sessions of a story. Storage, Transcripts and
// Redis are optional.
type Runner struct {
	Story       *Story
	Storage     storage.Storage
	Transcripts *istorage.TranscriptStore
	Redis       *redis.Client
	Logger      *slog.Logger
}

// Request describes one run.
type Request struct {
	// SessionID resumes a stored session. uuid.Nil starts a new one.
	SessionID uuid.UUID
	// Script overrides the manifest entry (or the resumed session's script).
	Script string
	// Text, when set, is played instead of loading Script from the assets.
	Text       string
	PlayerName string
	Display    capability.Displayer
	Selector   capability.Selector
	// Transcript receives lines in addition to the SQLite store.
	Transcript transcript.Sink
	Observer   engine.Observer
}

// Run is a prepared session bound to an engine.
type Run struct {
	Session *session.Session
	Engine  *engine.Engine
	Vars    *variable.Store
	text    string
	runner  *Runner
	logger  *slog.Logger
}

// Prepare loads or creates the session and builds its engine.
func (r *Runner) Prepare(ctx context.Context, req Request) (*Run, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	m := r.Story.Manifest

	var sess *session.Session
	if req.SessionID != uuid.Nil {
		if r.Storage == nil {
			return nil, fmt.Errorf("%w: %s (no storage configured)", ErrSessionNotFound, req.SessionID)
		}
		loaded, err := r.Storage.LoadSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, req.SessionID)
		}
		sess = loaded
	} else {
		player := req.PlayerName
		if player == "" {
			player = m.Player
		}
		sess = session.New(m.Entry, player)
		sess.PlayerKeyword = m.PlayerKeyword
	}
	if req.Script != "" {
		sess.Script = req.Script
	}

	vars, err := sess.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to restore variables: %w", err)
	}

	log = logger.WithSession(log, sess.ID.String())
	host := r.Story.Stage.Host(sess.PlayerName, req.Display, req.Selector, vars)

	var observers engine.Observers
	if req.Observer != nil {
		observers = append(observers, req.Observer)
	}
	if r.Redis != nil {
		observers = append(observers, events.NewBroadcaster(r.Redis, sess.ID, sess.Script, log))
	}
	var sinks []transcript.Sink
	if req.Transcript != nil {
		sinks = append(sinks, req.Transcript)
	}
	if r.Transcripts != nil {
		sinks = append(sinks, r.Transcripts.Sink(sess.ID))
	}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithPlayerKeyword(sess.PlayerKeyword),
		engine.WithExtensions(r.Story.Sheets.Extensions()),
		engine.WithTranscript(sinks...),
		engine.WithObserver(observers),
		engine.WithStepLimit(m.MaxSteps),
	}
	if r.Story.Filter != nil {
		opts = append(opts, engine.WithTextFilter(r.Story.Filter))
	}

	return &Run{
		Session: sess,
		Engine:  engine.New(host, opts...),
		Vars:    vars,
		text:    req.Text,
		runner:  r,
		logger:  log,
	}, nil
}

// Play runs the session's script to the end and saves the session, also
// when the script fails part way.
func (run *Run) Play(ctx context.Context) error {
	var playErr error
	if run.text != "" {
		playErr = run.Engine.PlayText(ctx, run.Session.Script, run.text)
	} else {
		playErr = run.Engine.Play(ctx, run.Session.Script)
	}
	run.Engine.Wait()

	run.Session.Capture(run.Vars)
	run.Session.PlayerKeyword = run.Engine.PlayerKeyword()
	if st := run.runner.Storage; st != nil {
		if err := st.SaveSession(context.WithoutCancel(ctx), run.Session); err != nil {
			run.logger.Error("Failed to save session", "error", err)
			return errors.Join(playErr, err)
		}
	}
	return playErr
}

// Connect attaches the backends cfg names: Redis sessions and events when
// REDIS_URL is set, the SQLite transcript when TRANSCRIPT_DB is set. The
// returned func closes them.
func (r *Runner) Connect(ctx context.Context, cfg *config.Config) (func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	if cfg.RedisURL != "" {
		rs := istorage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, r.Logger)
		closers = append(closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			closeAll()
			return nil, err
		}
		r.Storage = rs
		r.Redis = rs.Client()
	}
	if cfg.TranscriptDB != "" {
		ts, err := istorage.OpenTranscriptStore(cfg.TranscriptDB, r.Logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, ts.Close)
		r.Transcripts = ts
	}
	return closeAll, nil
}
