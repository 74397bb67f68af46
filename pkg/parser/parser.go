// Package parser lowers script text into a phase table of instructions.
package parser

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/token"
)

// ExtensionFunc parses a custom command. The tokenizer is positioned after
// the keyword. A nil instruction is dropped.
type ExtensionFunc func(tk *token.Tokenizer) (instruction.Instruction, error)

// ParseError attributes a parse failure to a 1-based script line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns script text into instruction tables for one host shape.
type Parser struct {
	caps       capability.Set
	extensions map[string]ExtensionFunc
	logger     *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithCapabilities sets the capabilities of the host the script will run on.
// Commands the host cannot serve are dropped while parsing.
func WithCapabilities(caps capability.Set) Option {
	return func(p *Parser) { p.caps = caps }
}

// WithExtensions registers custom commands. Built-in keywords take precedence.
func WithExtensions(ext map[string]ExtensionFunc) Option {
	return func(p *Parser) {
		for k, fn := range ext {
			p.extensions[k] = fn
		}
	}
}

// WithLogger sets the logger used for dropped lines.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// New returns a parser targeting a host with every capability unless
// WithCapabilities says otherwise.
func New(opts ...Option) *Parser {
	p := &Parser{
		caps:       capability.All,
		extensions: make(map[string]ExtensionFunc),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse is shorthand for New(opts...).Parse(text).
func Parse(text string, opts ...Option) (*instruction.Table, error) {
	return New(opts...).Parse(text)
}

// Parse lowers text into a phase table. Parsing stops at the first error.
func (p *Parser) Parse(text string) (*instruction.Table, error) {
	s := &state{parser: p, table: instruction.NewTable()}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		s.line = i + 1
		if err := s.parseLine(line); err != nil {
			return nil, &ParseError{Line: s.line, Err: err}
		}
	}
	if n := len(s.blocks); n > 0 {
		open := s.blocks[n-1]
		return nil, &ParseError{Line: open.line, Err: token.Syntaxf("if block is never closed with endif")}
	}
	return s.table, nil
}

// Keywords lists the built-in command keywords, aliases included, sorted.
func Keywords() []string {
	out := make([]string, 0, len(commands)+4)
	for k := range commands {
		out = append(out, k)
	}
	out = append(out, "if", "elseif", "else", "endif")
	slices.Sort(out)
	return out
}

type state struct {
	parser *Parser
	table  *instruction.Table
	phase  int
	line   int
	blocks []*block
}

func (s *state) has(req capability.Set) bool {
	return s.parser.caps.Has(req)
}

// emit appends to the innermost open branch, or to the current phase.
func (s *state) emit(ins ...instruction.Instruction) {
	if n := len(s.blocks); n > 0 {
		b := s.blocks[n-1]
		if b.discard {
			return
		}
		br := &b.cond.Branches[len(b.cond.Branches)-1]
		br.Body = append(br.Body, ins...)
		return
	}
	s.table.Append(s.phase, ins...)
}

// isComment reports whether a line's first field marks a comment: a lone
// "#", or "#" followed by a space. "#narrator" is a talker.
func isComment(head string) bool {
	return head == "#" || strings.HasPrefix(head, "# ")
}

func (s *state) parseLine(line string) error {
	tk := token.New(line)
	first, err := tk.Next(token.Scalar)
	if err != nil {
		return nil
	}
	head := first.String()

	if isComment(head) {
		return nil
	}
	if head != "" {
		return s.speech(head, tk)
	}

	kw, err := tk.Next(token.Scalar)
	if err != nil {
		return nil
	}
	keyword := kw.String()
	if keyword == "" {
		return nil
	}
	return s.command(keyword, tk)
}

func (s *state) command(keyword string, tk *token.Tokenizer) error {
	if handled, err := s.block(keyword, tk); handled {
		return err
	}

	if cmd, ok := commands[keyword]; ok {
		if !s.has(cmd.requires) {
			return nil
		}
		return cmd.parse(s, tk)
	}

	if fn, ok := s.parser.extensions[keyword]; ok {
		in, err := fn(tk)
		if err != nil {
			return fmt.Errorf("%s: %w", keyword, err)
		}
		if in != nil {
			s.emit(in)
		}
		return nil
	}

	s.parser.logger.Debug("dropping unknown command", "keyword", keyword, "line", s.line)
	return nil
}
