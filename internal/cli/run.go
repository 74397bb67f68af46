package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/internal/story"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/stage"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/spf13/cobra"
)

// RunResult is the JSON form of a finished run.
type RunResult struct {
	SessionID string              `json:"session_id"`
	Script    string              `json:"script"`
	Phase     int                 `json:"phase"`
	State     string              `json:"state"`
	Lines     []capability.Line   `json:"lines"`
	Variables []variable.Snapshot `json:"variables,omitempty"`
}

type runOptions struct {
	player   string
	choices  []int
	manifest string
	session  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Play a script headlessly on the in-memory stage",
		Long: `Play a script headlessly. Without --manifest the argument is a script
file. With --manifest it is a script key (default: the manifest entry).

Choices are answered from --choices in order (1-based). A selection with
no answer left fails the run. When REDIS_URL is set the session is saved and events are
published; --session resumes a saved session. TRANSCRIPT_DB records
every line to SQLite.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return runRun(cmd.Context(), out, rootOpts.Config, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.player, "player", "", "player name (default PLAYER_NAME or the manifest player)")
	cmd.Flags().IntSliceVar(&opts.choices, "choices", nil, "1-based answers to selections, in order")
	cmd.Flags().StringVar(&opts.manifest, "manifest", "", "story manifest (story.yaml)")
	cmd.Flags().StringVar(&opts.session, "session", "", "resume a saved session by id")
	return cmd
}

func runRun(ctx context.Context, out *OutputFormatter, cfg *config.Config, opts *runOptions, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	}

	m, req, err := resolveScript(opts, cfg, args)
	if err != nil {
		return err
	}
	st, err := story.Open(m, cfg.TimeScale, nil, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open story", err)
	}

	runner := &story.Runner{Story: st}
	closeBackends, err := runner.Connect(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot connect storage", err)
	}
	defer closeBackends()

	if opts.session != "" {
		if req.SessionID, err = uuid.Parse(opts.session); err != nil {
			return WrapExitError(ExitCommandError, "invalid --session", err)
		}
	}
	req.PlayerName = opts.player
	if req.PlayerName == "" && m.Player == "" {
		req.PlayerName = cfg.PlayerName
	}

	var echo io.Writer
	if !out.JSON() {
		echo = out.Writer
	}
	reader := stage.NewStrictReader(echo, opts.choices...)
	req.Display, req.Selector = reader, reader

	run, err := runner.Prepare(ctx, req)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot start session", err)
	}
	playErr := run.Play(ctx)

	res := RunResult{
		SessionID: run.Session.ID.String(),
		Script:    run.Session.Script,
		Phase:     run.Engine.Phase(),
		State:     run.Engine.State().String(),
		Lines:     reader.Lines(),
		Variables: run.Session.Variables,
	}
	if playErr != nil {
		_ = out.Fail(playErr)
		return WrapExitError(ExitFailure, "run failed", playErr)
	}
	if runner.Storage != nil && !out.JSON() {
		fmt.Fprintf(out.Writer, "session %s saved\n", res.SessionID)
	}
	return out.Result(true, res, "")
}

// resolveScript builds the manifest and request for either a manifest run
// or a bare script file.
func resolveScript(opts *runOptions, cfg *config.Config, args []string) (*config.Manifest, story.Request, error) {
	var req story.Request
	if opts.manifest != "" {
		m, err := config.LoadManifest(opts.manifest)
		if err != nil {
			return nil, req, WrapExitError(ExitCommandError, "cannot load manifest", err)
		}
		if len(args) == 1 {
			req.Script = args[0]
		}
		return m, req, nil
	}

	if len(args) == 0 && opts.session == "" {
		return nil, req, NewExitError(ExitCommandError, "a script file or --manifest is required")
	}
	m := &config.Manifest{Assets: cfg.DataDir, PlayerKeyword: cfg.PlayerKeyword}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, req, WrapExitError(ExitCommandError, "cannot read script", err)
		}
		m.Entry = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		m.Assets = filepath.Dir(args[0])
		req.Script = m.Entry
		req.Text = string(data)
	}
	return m, req, nil
}
