// Package token splits one tab-delimited script line into typed fields.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind classifies how a raw field is interpreted.
type Kind int

const (
	Scalar     Kind = iota // raw text
	Tuple                  // comma separated items
	StringList             // pipe separated items
	Tag                    // name or name:arg,arg
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Tuple:
		return "tuple"
	case StringList:
		return "string-list"
	case Tag:
		return "tag"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrMissingToken is returned when a line has no more fields.
var ErrMissingToken = errors.New("cannot find essential token")

// SyntaxError reports malformed script text.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Msg
}

// Syntaxf builds a SyntaxError with a formatted message.
func Syntaxf(format string, args ...any) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...)}
}

// Token is one classified field of a line.
type Token struct {
	Kind Kind
	Raw  string
	// Items holds the split parts for Tuple, StringList and Tag arguments.
	Items []string
	// Name is the tag name; empty for other kinds.
	Name string
}

func newToken(kind Kind, raw string) Token {
	t := Token{Kind: kind, Raw: raw}
	switch kind {
	case Tuple:
		t.Items = splitTrim(raw, ",")
	case StringList:
		t.Items = splitTrim(raw, "|")
	case Tag:
		name, args, ok := strings.Cut(raw, ":")
		t.Name = strings.TrimSpace(name)
		if ok {
			t.Items = splitTrim(args, ",")
		}
	}
	return t
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// String returns the trimmed raw text.
func (t Token) String() string {
	return strings.TrimSpace(t.Raw)
}

// Int parses the token as a base-10 integer.
func (t Token) Int() (int, error) {
	n, err := strconv.Atoi(t.String())
	if err != nil {
		return 0, Syntaxf("failed to parse integer parameter %q", t.Raw)
	}
	return n, nil
}

// Float parses the token as a float.
func (t Token) Float() (float64, error) {
	f, err := strconv.ParseFloat(t.String(), 64)
	if err != nil {
		return 0, Syntaxf("failed to parse number parameter %q", t.Raw)
	}
	return f, nil
}

// Seconds parses the token as a non-negative duration in seconds.
func (t Token) Seconds() (time.Duration, error) {
	f, err := t.Float()
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, Syntaxf("duration must not be negative: %q", t.Raw)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// Ints parses every item of a Tuple token as an integer.
func (t Token) Ints() ([]int, error) {
	out := make([]int, 0, len(t.Items))
	for _, item := range t.Items {
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, Syntaxf("failed to parse integer item %q", item)
		}
		out = append(out, n)
	}
	return out, nil
}

// Vec parses a Tuple token holding exactly two numbers.
func (t Token) Vec() (x, y float64, err error) {
	if len(t.Items) != 2 {
		return 0, 0, Syntaxf("expected an x,y pair, got %q", t.Raw)
	}
	if x, err = strconv.ParseFloat(t.Items[0], 64); err != nil {
		return 0, 0, Syntaxf("failed to parse x coordinate %q", t.Items[0])
	}
	if y, err = strconv.ParseFloat(t.Items[1], 64); err != nil {
		return 0, 0, Syntaxf("failed to parse y coordinate %q", t.Items[1])
	}
	return x, y, nil
}

// Arg returns the i-th tag argument.
func (t Token) Arg(i int) (string, error) {
	if i >= len(t.Items) || t.Items[i] == "" {
		return "", Syntaxf("tag %q requires an argument", t.Name)
	}
	return t.Items[i], nil
}
