package instruction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/textfilter"
)

// Selection presents a modal choice. The picked destination is written to
// SaveTo when set, and the engine jumps there unless SaveOnly is set.
type Selection struct {
	Choices  []capability.Choice
	SaveTo   string
	SaveOnly bool
}

func (s *Selection) Kind() Kind               { return KindSelection }
func (s *Selection) Requires() capability.Set { return capability.Selection }
func (s *Selection) Suspends() bool           { return true }

func (s *Selection) String() string {
	texts := make([]string, len(s.Choices))
	dests := make([]string, len(s.Choices))
	for i, c := range s.Choices {
		texts[i] = c.Text
		dests[i] = strconv.Itoa(c.Dest)
	}
	out := fmt.Sprintf("select %q -> %s", strings.Join(texts, "|"), strings.Join(dests, ","))
	if s.SaveTo != "" {
		out += " saveto=" + s.SaveTo
	}
	if s.SaveOnly {
		out += " saveonly"
	}
	return out
}

func (s *Selection) Execute(ctx context.Context, rt Runtime) error {
	host := rt.Host()
	choices := make([]capability.Choice, len(s.Choices))
	for i, c := range s.Choices {
		choices[i] = capability.Choice{Text: rt.FilterText(textfilter.Substitute(c.Text, Resolver(rt))), Dest: c.Dest}
	}

	dest, err := host.Selector.Select(ctx, choices)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}

	if s.SaveTo != "" && host.Variables != nil {
		if err := host.Variables.Assign(s.SaveTo, strconv.Itoa(dest)); err != nil {
			return fmt.Errorf("save selection to %q: %w", s.SaveTo, err)
		}
	}
	if !s.SaveOnly {
		rt.SetPhase(dest)
	}
	return nil
}
