package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/sheet"
	"github.com/spf13/cobra"
)

// FileResult is the validation outcome of one script.
type FileResult struct {
	File         string `json:"file"`
	Valid        bool   `json:"valid"`
	Line         int    `json:"line,omitempty"`
	Error        string `json:"error,omitempty"`
	Phases       int    `json:"phases,omitempty"`
	Instructions int    `json:"instructions,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <script>...",
		Short: "Parse scripts and report syntax errors",
		Long: `Parse each script for a host with every capability and report the
first syntax error of each file with its line number.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return runValidate(out, args)
		},
	}
}

func runValidate(out *OutputFormatter, files []string) error {
	// check is accepted so stories using sheets validate.
	p := parser.New(parser.WithExtensions(sheet.New(nil).Extensions()))

	results := make([]FileResult, 0, len(files))
	failed := 0
	var text strings.Builder
	for _, file := range files {
		res := validateFile(p, file)
		if !res.Valid {
			failed++
			fmt.Fprintf(&text, "✗ %s: %s\n", file, res.Error)
		} else {
			fmt.Fprintf(&text, "✓ %s (%d phases, %d instructions)\n", file, res.Phases, res.Instructions)
		}
		results = append(results, res)
	}

	if err := out.Result(failed == 0, results, text.String()); err != nil {
		return err
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d script(s) invalid", failed, len(files)))
	}
	return nil
}

func validateFile(p *parser.Parser, file string) FileResult {
	res := FileResult{File: file}
	data, err := os.ReadFile(file)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	table, err := p.Parse(string(data))
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			res.Line = pe.Line
		}
		res.Error = err.Error()
		return res
	}
	res.Valid = true
	res.Phases = len(table.Phases())
	res.Instructions = table.Len()
	return res
}
