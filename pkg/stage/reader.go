package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
)

// ErrChoicesExhausted is returned by a strict Reader's Select once its
// answers have all been used.
var ErrChoicesExhausted = errors.New("no answers left for selection")

// Reader is a headless Displayer and Selector. Lines are acknowledged at
// once; selections are answered from a queue of 1-based choice indices.
type Reader struct {
	mu      sync.Mutex
	out     io.Writer
	answers []int
	strict  bool
	lines   []capability.Line
	offered [][]capability.Choice
}

// NewReader returns a reader that echoes to out (nil for silence) and picks
// the given choices in order. Once the queue is empty the first choice wins.
func NewReader(out io.Writer, answers ...int) *Reader {
	return &Reader{out: out, answers: answers}
}

// NewStrictReader is like NewReader but fails with ErrChoicesExhausted
// instead of falling back once the answers run out.
func NewStrictReader(out io.Writer, answers ...int) *Reader {
	return &Reader{out: out, answers: answers, strict: true}
}

func (r *Reader) ShowText(ctx context.Context, line capability.Line) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if r.out != nil {
		if line.Talker == "" || line.HideName {
			fmt.Fprintln(r.out, line.Text)
		} else {
			fmt.Fprintf(r.out, "%s: %s\n", line.Talker, line.Text)
		}
	}
	return nil
}

func (r *Reader) Select(ctx context.Context, choices []capability.Choice) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(choices) == 0 {
		return 0, fmt.Errorf("selection has no choices")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offered = append(r.offered, choices)

	pick := 1
	switch {
	case len(r.answers) > 0:
		pick, r.answers = r.answers[0], r.answers[1:]
	case r.strict:
		return 0, fmt.Errorf("%w (%d offered)", ErrChoicesExhausted, len(r.offered))
	}
	if pick < 1 || pick > len(choices) {
		return 0, fmt.Errorf("choice %d out of range 1-%d", pick, len(choices))
	}
	if r.out != nil {
		for i, c := range choices {
			marker := " "
			if i+1 == pick {
				marker = ">"
			}
			fmt.Fprintf(r.out, "  %s %d) %s\n", marker, i+1, c.Text)
		}
	}
	return choices[pick-1].Dest, nil
}

// Lines returns every line shown so far.
func (r *Reader) Lines() []capability.Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capability.Line(nil), r.lines...)
}

// Offered returns every set of choices presented so far.
func (r *Reader) Offered() [][]capability.Choice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]capability.Choice(nil), r.offered...)
}
