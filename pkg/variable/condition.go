package variable

import "fmt"

// Comparator is the relation tested by a Condition.
type Comparator int

const (
	Equal Comparator = iota
	NotEqual
	Greater
	Less
	GreaterOrEqual
	LessOrEqual
)

func (c Comparator) String() string {
	switch c {
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case Greater:
		return ">"
	case Less:
		return "<"
	case GreaterOrEqual:
		return ">="
	case LessOrEqual:
		return "<="
	default:
		return fmt.Sprintf("comparator(%d)", int(c))
	}
}

// ParseComparator maps script operators to comparators.
func ParseComparator(op string) (Comparator, bool) {
	switch op {
	case "=", "==":
		return Equal, true
	case "!=":
		return NotEqual, true
	case ">":
		return Greater, true
	case "<":
		return Less, true
	case ">=":
		return GreaterOrEqual, true
	case "<=":
		return LessOrEqual, true
	}
	return 0, false
}

// Join combines the running result of a ConditionSet with the next condition.
type Join int

const (
	And Join = iota
	Or
)

func (j Join) String() string {
	if j == Or {
		return "or"
	}
	return "and"
}

// ParseJoin maps "and"/"or" to a Join.
func ParseJoin(word string) (Join, bool) {
	switch word {
	case "and":
		return And, true
	case "or":
		return Or, true
	}
	return 0, false
}

// View is the read access a condition needs. *Store satisfies it.
type View interface {
	Get(key string) (Variable, error)
	Has(key string) bool
}

// Condition compares a variable with another variable or a literal.
// Operands are resolved on every evaluation, never when the condition is built.
type Condition struct {
	Left       string
	Right      string
	Comparator Comparator
}

// Link resolves both operands from the live store. A right operand that is
// not a defined key is parsed as a literal of the left operand's type.
func (c Condition) Link(view View) (left, right Value, err error) {
	lv, err := view.Get(c.Left)
	if err != nil {
		return Value{}, Value{}, err
	}
	left = lv.Value

	if view.Has(c.Right) {
		rv, err := view.Get(c.Right)
		if err != nil {
			return Value{}, Value{}, err
		}
		right = rv.Value
	} else {
		hot, err := ParseAs(left.Type, c.Right)
		if err != nil {
			return Value{}, Value{}, &TypeCompareError{Left: left.Type, Right: Infer(c.Right).Type, Comparator: c.Comparator}
		}
		right = hot
	}

	if left.Type != right.Type {
		return Value{}, Value{}, &TypeCompareError{Left: left.Type, Right: right.Type, Comparator: c.Comparator}
	}
	return left, right, nil
}

// Evaluate links the condition and applies its comparator.
func (c Condition) Evaluate(view View) (bool, error) {
	left, right, err := c.Link(view)
	if err != nil {
		return false, err
	}
	return compare(left, right, c.Comparator)
}

func compare(l, r Value, cmp Comparator) (bool, error) {
	switch l.Type {
	case Int:
		return ordered(l.Int, r.Int, cmp), nil
	case Float:
		return ordered(l.Float, r.Float, cmp), nil
	case Bool:
		return equality(l.Bool == r.Bool, l.Type, cmp)
	default:
		return equality(l.Str == r.Str, l.Type, cmp)
	}
}

func ordered[T int64 | float64](l, r T, cmp Comparator) bool {
	switch cmp {
	case Equal:
		return l == r
	case NotEqual:
		return l != r
	case Greater:
		return l > r
	case Less:
		return l < r
	case GreaterOrEqual:
		return l >= r
	default:
		return l <= r
	}
}

func equality(same bool, t Type, cmp Comparator) (bool, error) {
	switch cmp {
	case Equal:
		return same, nil
	case NotEqual:
		return !same, nil
	}
	return false, &TypeCompareError{Left: t, Right: t, Comparator: cmp}
}

// ConditionSet is an ordered list of conditions with the joins between them.
// len(Joins) is len(Conditions)-1.
type ConditionSet struct {
	Conditions []Condition
	Joins      []Join
	Else       bool
}

// Evaluate folds the conditions left to right. The fold stops as soon as the
// running result is false. A true result never stops it, but the operand
// after an OR is only evaluated while the result is still false.
func (s *ConditionSet) Evaluate(view View) (bool, error) {
	if s.Else {
		return true, nil
	}
	if len(s.Conditions) == 0 {
		return false, nil
	}

	result, err := s.Conditions[0].Evaluate(view)
	if err != nil {
		return false, err
	}
	for i, join := range s.Joins {
		if i+1 >= len(s.Conditions) {
			break
		}
		next := s.Conditions[i+1]
		switch join {
		case And:
			if result {
				if result, err = next.Evaluate(view); err != nil {
					return false, err
				}
			}
		case Or:
			if !result {
				if result, err = next.Evaluate(view); err != nil {
					return false, err
				}
			}
		}
		if !result {
			break
		}
	}
	return result, nil
}

// String renders the set in script syntax.
func (s *ConditionSet) String() string {
	if s.Else {
		return "else"
	}
	out := ""
	for i, c := range s.Conditions {
		if i > 0 {
			out += " " + s.Joins[i-1].String() + " "
		}
		out += fmt.Sprintf("%s %s %s", c.Left, c.Comparator, c.Right)
	}
	return out
}
