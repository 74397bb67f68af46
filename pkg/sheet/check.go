package sheet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/instruction"
	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/token"
)

// Check is the "check <character> <attribute> <dc> [saveto:<key>]" command.
// The outcome is stored as a bool when saveto is given; passing jumps to
// pass:<phase> and failing to fail:<phase> when those tags are present.
type Check struct {
	Character string
	Attribute string
	DC        int
	SaveTo    string
	Pass      int
	Fail      int
	sheets    *Sheets
}

// NoJump marks an absent pass or fail destination.
const NoJump = -1

func (c *Check) Kind() instruction.Kind { return instruction.KindCustom }

func (c *Check) Requires() capability.Set {
	if c.SaveTo != "" {
		return capability.Variable
	}
	return capability.None
}

func (c *Check) Execute(ctx context.Context, rt instruction.Runtime) error {
	res, err := c.sheets.Check(c.Character, c.Attribute, c.DC)
	if err != nil {
		return err
	}
	ok := res.Success()
	rt.Logger().Info("Attribute check",
		"character", c.Character,
		"attribute", c.Attribute,
		"roll", res.Roll,
		"modifier", res.Modifier,
		"dc", c.DC,
		"success", ok,
	)

	if c.SaveTo != "" {
		if err := rt.Host().Variables.Assign(c.SaveTo, strconv.FormatBool(ok)); err != nil {
			return err
		}
	}
	switch {
	case ok && c.Pass != NoJump:
		rt.SetPhase(c.Pass)
	case !ok && c.Fail != NoJump:
		rt.SetPhase(c.Fail)
	}
	return nil
}

func (c *Check) String() string {
	s := fmt.Sprintf("check %s %s %d", c.Character, c.Attribute, c.DC)
	if c.SaveTo != "" {
		s += " saveto=" + c.SaveTo
	}
	if c.Pass != NoJump {
		s += fmt.Sprintf(" pass=%d", c.Pass)
	}
	if c.Fail != NoJump {
		s += fmt.Sprintf(" fail=%d", c.Fail)
	}
	return s
}

// Extensions returns the parser hooks backed by s.
func (s *Sheets) Extensions() map[string]parser.ExtensionFunc {
	return map[string]parser.ExtensionFunc{"check": s.parseCheck}
}

func (s *Sheets) parseCheck(tk *token.Tokenizer) (instruction.Instruction, error) {
	params, err := tk.Params(token.Scalar, token.Scalar, token.Scalar)
	if err != nil {
		return nil, err
	}
	dc, err := params[2].Int()
	if err != nil {
		return nil, token.Syntaxf("invalid dc %q", params[2].Raw)
	}
	c := &Check{
		Character: params[0].String(),
		Attribute: params[1].String(),
		DC:        dc,
		Pass:      NoJump,
		Fail:      NoJump,
		sheets:    s,
	}

	for _, tag := range tk.Tags() {
		switch tag.Name {
		case "saveto":
			if c.SaveTo, err = tag.Arg(0); err != nil {
				return nil, err
			}
		case "pass", "fail":
			arg, err := tag.Arg(0)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				return nil, token.Syntaxf("invalid %s phase %q", tag.Name, arg)
			}
			if tag.Name == "pass" {
				c.Pass = n
			} else {
				c.Fail = n
			}
		}
	}
	return c, nil
}
