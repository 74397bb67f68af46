// Package variable holds the typed script variable store and the deferred
// condition evaluation built on top of it.
package variable

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the inferred, fixed type of a variable.
type Type int

const (
	Int Type = iota
	Float
	Bool
	String
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case String:
		return "string"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Value is a typed scalar. Only the field matching Type is meaningful.
type Value struct {
	Type  Type
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

// Infer parses literal trying Int, Float, Bool and String in that order.
func Infer(literal string) Value {
	if v, err := ParseAs(Int, literal); err == nil {
		return v
	}
	if v, err := ParseAs(Float, literal); err == nil {
		return v
	}
	if v, err := ParseAs(Bool, literal); err == nil {
		return v
	}
	return Value{Type: String, Str: literal}
}

// ParseAs parses literal as a value of type t.
func ParseAs(t Type, literal string) (Value, error) {
	s := strings.TrimSpace(literal)
	switch t {
	case Int:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: Int, Int: n}, nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: Float, Float: f}, nil
	case Bool:
		switch {
		case strings.EqualFold(s, "true"):
			return Value{Type: Bool, Bool: true}, nil
		case strings.EqualFold(s, "false"):
			return Value{Type: Bool, Bool: false}, nil
		}
		return Value{}, fmt.Errorf("invalid bool literal %q", literal)
	case String:
		return Value{Type: String, Str: literal}, nil
	}
	return Value{}, fmt.Errorf("unknown type %v", t)
}

// String renders the value the way scripts display it.
func (v Value) String() string {
	switch v.Type {
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// Variable is a named, typed value.
type Variable struct {
	Key   string
	Value Value
}

// Type returns the fixed type of the variable.
func (v Variable) Type() Type {
	return v.Value.Type
}

// ParseType is the inverse of Type.String.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "int":
		return Int, nil
	case "float":
		return Float, nil
	case "bool":
		return Bool, nil
	case "string":
		return String, nil
	}
	return 0, fmt.Errorf("unknown variable type %q", name)
}
