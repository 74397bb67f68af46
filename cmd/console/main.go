// Command console plays a story manifest in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/internal/logger"
	"github.com/jwebster45206/dialogue-engine/internal/story"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
)

func main() {
	var (
		sessionID = flag.String("session", "", "resume a saved session by id")
		script    = flag.String("script", "", "script key to play instead of the manifest entry")
		player    = flag.String("player", "", "player name")
	)
	flag.Parse()

	manifestPath := "story.yaml"
	if flag.NArg() > 0 {
		manifestPath = flag.Arg(0)
	}

	if err := run(manifestPath, *sessionID, *script, *player); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath, sessionID, script, player string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// The terminal belongs to the UI; logs only go to LOG_FILE.
	log := logger.SetupTo(io.Discard, cfg)

	m, err := config.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	st, err := story.Open(m, cfg.TimeScale, nil, log)
	if err != nil {
		return err
	}

	runner := &story.Runner{Story: st, Logger: log}
	closeBackends, err := runner.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect storage: %w", err)
	}
	defer closeBackends()

	memory := transcript.NewMemory()
	b := newBridge()
	req := story.Request{
		Script:     script,
		PlayerName: player,
		Display:    b,
		Selector:   b,
		Transcript: memory,
	}
	if req.PlayerName == "" && m.Player == "" {
		req.PlayerName = cfg.PlayerName
	}
	if sessionID != "" {
		if req.SessionID, err = uuid.Parse(sessionID); err != nil {
			return fmt.Errorf("invalid session id: %w", err)
		}
	}

	sess, err := runner.Prepare(ctx, req)
	if err != nil {
		return err
	}

	ui := NewConsoleUI(m.Title, Controls{
		SessionID: sess.Session.ID.String(),
		Script:    sess.Session.Script,
		Vars:      func() []variable.Snapshot { return sess.Vars.Snapshot() },
		Phase:     sess.Engine.Phase,
		Skip:      sess.Engine.Skip,
	}, memory)

	p := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	b.send = p.Send

	played := make(chan error, 1)
	go func() {
		err := sess.Play(ctx)
		played <- err
		p.Send(runDoneMsg{err: err})
	}()

	_, uiErr := p.Run()

	// Leaving early ends the scene so the session is still saved.
	close(b.done)
	sess.Engine.Skip()
	playErr := <-played
	if uiErr != nil {
		return uiErr
	}
	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return playErr
	}
	fmt.Printf("Session %s\n", sess.Session.ID)
	return nil
}
