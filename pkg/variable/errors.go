package variable

import (
	"errors"
	"fmt"
)

// ErrUndefinedVariable is returned when a key is not in the store.
var ErrUndefinedVariable = errors.New("undefined variable")

// ValueTypeError is returned when a literal does not parse as a variable's fixed type.
type ValueTypeError struct {
	Key  string
	Want Type
	Got  string
}

func (e *ValueTypeError) Error() string {
	return fmt.Sprintf("cannot set %q into %s variable %q", e.Got, e.Want, e.Key)
}

// TypeCompareError is returned when two operands cannot be compared.
type TypeCompareError struct {
	Left       Type
	Right      Type
	Comparator Comparator
}

func (e *TypeCompareError) Error() string {
	if e.Left != e.Right {
		return fmt.Sprintf("cannot compare between %s and %s", e.Left, e.Right)
	}
	return fmt.Sprintf("cannot make %s comparison for %s type", e.Comparator, e.Left)
}

func undefined(key string) error {
	return fmt.Errorf("%w: %q", ErrUndefinedVariable, key)
}
