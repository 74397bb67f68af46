package parser

import (
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/token"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
)

// block is an open if/elseif/else construct. A discarded block belongs to a
// host without variables; its structure is still checked but nothing in it
// is emitted.
type block struct {
	cond    *instruction.Conditional
	line    int
	sawElse bool
	discard bool
}

// block handles the conditional keywords. It reports false for any other keyword.
func (s *state) block(keyword string, tk *token.Tokenizer) (bool, error) {
	switch keyword {
	case "if":
		return true, s.openIf(tk)
	case "elseif":
		return true, s.elseIf(tk)
	case "else":
		return true, s.elseBranch()
	case "endif":
		return true, s.endIf()
	}
	return false, nil
}

func (s *state) top() *block {
	if n := len(s.blocks); n > 0 {
		return s.blocks[n-1]
	}
	return nil
}

func (s *state) openIf(tk *token.Tokenizer) error {
	parent := s.top()
	b := &block{line: s.line}
	b.discard = !s.has(capability.Variable) || (parent != nil && parent.discard)
	if !b.discard {
		set, err := parseConditions(tk)
		if err != nil {
			return err
		}
		b.cond = &instruction.Conditional{Branches: []instruction.Branch{{Cond: set}}}
	}
	s.blocks = append(s.blocks, b)
	return nil
}

func (s *state) elseIf(tk *token.Tokenizer) error {
	b := s.top()
	if b == nil {
		return token.Syntaxf("elseif without if")
	}
	if b.sawElse {
		return token.Syntaxf("elseif after else")
	}
	if b.discard {
		return nil
	}
	set, err := parseConditions(tk)
	if err != nil {
		return err
	}
	b.cond.Branches = append(b.cond.Branches, instruction.Branch{Cond: set})
	return nil
}

func (s *state) elseBranch() error {
	b := s.top()
	if b == nil {
		return token.Syntaxf("else without if")
	}
	if b.sawElse {
		return token.Syntaxf("duplicate else")
	}
	b.sawElse = true
	if b.discard {
		return nil
	}
	b.cond.Branches = append(b.cond.Branches, instruction.Branch{Cond: &variable.ConditionSet{Else: true}})
	return nil
}

func (s *state) endIf() error {
	b := s.top()
	if b == nil {
		return token.Syntaxf("endif without if")
	}
	s.blocks = s.blocks[:len(s.blocks)-1]
	if !b.discard {
		s.emit(b.cond)
	}
	return nil
}

// parseConditions reads "left op right [join left op right]..." from the
// remaining fields.
func parseConditions(tk *token.Tokenizer) (*variable.ConditionSet, error) {
	var fields []string
	for _, f := range tk.Rest() {
		if f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) < 3 || (len(fields)-3)%4 != 0 {
		return nil, token.Syntaxf("incomplete condition %q", strings.Join(fields, " "))
	}

	set := &variable.ConditionSet{}
	for i := 0; i < len(fields); i += 4 {
		if i > 0 {
			join, ok := variable.ParseJoin(fields[i-1])
			if !ok {
				return nil, token.Syntaxf("invalid condition join %q", fields[i-1])
			}
			set.Joins = append(set.Joins, join)
		}
		cmp, ok := variable.ParseComparator(fields[i+1])
		if !ok {
			return nil, token.Syntaxf("invalid compare operator %q", fields[i+1])
		}
		set.Conditions = append(set.Conditions, variable.Condition{
			Left:       fields[i],
			Right:      fields[i+2],
			Comparator: cmp,
		})
	}
	return set, nil
}
