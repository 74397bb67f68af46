package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/sheet"
	"github.com/spf13/cobra"
)

// DumpResult is the JSON form of a dumped table.
type DumpResult struct {
	File   string              `json:"file"`
	Phases map[string][]string `json:"phases"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var caps string

	cmd := &cobra.Command{
		Use:   "dump <script>",
		Short: "Print the phase table a script compiles to",
		Long: `Print the phase table a script compiles to. --caps restricts the target
host so the effect of capability gating can be inspected.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			set := capability.All
			if cmd.Flags().Changed("caps") {
				var ok bool
				if set, ok = capability.Parse(caps); !ok {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid --caps %q", caps))
				}
			}
			return runDump(out, args[0], set)
		},
	}

	cmd.Flags().StringVar(&caps, "caps", "all", "comma separated capabilities of the target host")
	return cmd
}

func runDump(out *OutputFormatter, file string, caps capability.Set) error {
	data, err := os.ReadFile(file)
	if err != nil {
		_ = out.Fail(err)
		return WrapExitError(ExitCommandError, "cannot read script", err)
	}
	table, err := parser.Parse(string(data),
		parser.WithCapabilities(caps),
		parser.WithExtensions(sheet.New(nil).Extensions()),
	)
	if err != nil {
		_ = out.Fail(err)
		return WrapExitError(ExitFailure, "invalid script", err)
	}

	var text strings.Builder
	if err := table.Dump(&text); err != nil {
		return err
	}
	res := DumpResult{File: file, Phases: make(map[string][]string)}
	if out.JSON() {
		for _, n := range table.Phases() {
			bucket, _ := table.Bucket(n)
			lines := make([]string, len(bucket))
			for i, in := range bucket {
				lines[i] = in.String()
			}
			res.Phases[strconv.Itoa(n)] = lines
		}
	}
	return out.Result(true, res, text.String())
}
