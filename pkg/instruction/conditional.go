package instruction

import (
	"context"
	"fmt"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
)

// Branch is one arm of an if/elseif/else block.
type Branch struct {
	Cond *variable.ConditionSet
	Body []Instruction
}

// Conditional runs the body of the first branch whose condition holds.
type Conditional struct {
	Branches []Branch
}

func (c *Conditional) Kind() Kind               { return KindConditional }
func (c *Conditional) Requires() capability.Set { return capability.Variable }

func (c *Conditional) String() string {
	return fmt.Sprintf("if (%d branches)", len(c.Branches))
}

func (c *Conditional) Execute(ctx context.Context, rt Runtime) error {
	vars := rt.Host().Variables
	for i, br := range c.Branches {
		ok, err := br.Cond.Evaluate(vars)
		if err != nil {
			return fmt.Errorf("branch %d: %w", i, err)
		}
		if !ok {
			continue
		}
		epoch := rt.Epoch()
		for _, in := range br.Body {
			if err := rt.Exec(ctx, in); err != nil {
				return err
			}
			if rt.Epoch() != epoch {
				return nil
			}
		}
		return nil
	}
	return nil
}
