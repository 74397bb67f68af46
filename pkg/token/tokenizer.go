package token

import "strings"

// Tokenizer hands out the fields of one line in order.
type Tokenizer struct {
	fields []string
	pos    int
}

// New splits line on tabs. A trailing carriage return is dropped.
func New(line string) *Tokenizer {
	line = strings.TrimSuffix(line, "\r")
	return &Tokenizer{fields: strings.Split(line, "\t")}
}

// Next returns the next field classified as kind.
func (t *Tokenizer) Next(kind Kind) (Token, error) {
	if t.pos >= len(t.fields) {
		return Token{}, ErrMissingToken
	}
	raw := t.fields[t.pos]
	t.pos++
	return newToken(kind, raw), nil
}

// Params pulls exactly len(kinds) tokens. A missing field is a syntax error.
func (t *Tokenizer) Params(kinds ...Kind) ([]Token, error) {
	out := make([]Token, 0, len(kinds))
	for i, kind := range kinds {
		tok, err := t.Next(kind)
		if err != nil {
			return nil, Syntaxf("expected %d parameters, found %d", len(kinds), i)
		}
		out = append(out, tok)
	}
	return out, nil
}

// Tags returns every remaining field as a Tag token. Empty fields are skipped.
func (t *Tokenizer) Tags() []Token {
	var tags []Token
	for t.pos < len(t.fields) {
		raw := t.fields[t.pos]
		t.pos++
		if strings.TrimSpace(raw) == "" {
			continue
		}
		tags = append(tags, newToken(Tag, raw))
	}
	return tags
}

// Rest returns every remaining field as trimmed scalar text.
func (t *Tokenizer) Rest() []string {
	var out []string
	for t.pos < len(t.fields) {
		out = append(out, strings.TrimSpace(t.fields[t.pos]))
		t.pos++
	}
	return out
}

// Remaining reports how many fields are left.
func (t *Tokenizer) Remaining() int {
	return len(t.fields) - t.pos
}

// HasTag reports whether tags contains one named name.
func HasTag(tags []Token, name string) bool {
	for _, tag := range tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}
