// Package capability declares the optional feature contracts a dialogue host
// may implement, and the flag set the parser and engine gate on.
package capability

import "strings"

// Set is a bit set of host capabilities.
type Set uint16

const (
	CharacterRoster Set = 1 << iota
	CharacterField
	Selection
	Background
	Foreground
	Transition
	Variable
	Audio
	ExternalAction
)

// None is the empty set. All holds every capability.
const (
	None Set = 0
	All  Set = CharacterRoster | CharacterField | Selection | Background |
		Foreground | Transition | Variable | Audio | ExternalAction
)

var names = []struct {
	flag Set
	name string
}{
	{CharacterRoster, "character-roster"},
	{CharacterField, "character-field"},
	{Selection, "selection"},
	{Background, "background"},
	{Foreground, "foreground"},
	{Transition, "transition"},
	{Variable, "variable"},
	{Audio, "audio"},
	{ExternalAction, "external-action"},
}

// Has reports whether every capability in req is present.
func (s Set) Has(req Set) bool {
	return s&req == req
}

// With returns s plus other.
func (s Set) With(other Set) Set {
	return s | other
}

// Without returns s minus other.
func (s Set) Without(other Set) Set {
	return s &^ other
}

func (s Set) String() string {
	if s == None {
		return "none"
	}
	var parts []string
	for _, n := range names {
		if s.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Parse converts a comma separated list of capability names into a Set.
// "all" selects every capability.
func Parse(list string) (Set, bool) {
	var s Set
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if part == "all" {
			s |= All
			continue
		}
		found := false
		for _, n := range names {
			if n.name == part {
				s |= n.flag
				found = true
				break
			}
		}
		if !found {
			return None, false
		}
	}
	return s, true
}
