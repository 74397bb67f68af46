// Package textfilter rewrites speech text before it is displayed: keyword
// substitution and word replacement.
package textfilter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// keywordPattern matches {keyword} and {keyword:modifier}.
var keywordPattern = regexp.MustCompile(`\{([\p{L}\p{N}_\s]*)(?::(title|upper|lower))?\}`)

// Resolver maps a keyword to its replacement text.
type Resolver func(keyword string) (string, bool)

// Substitute replaces every {keyword} in text using resolve. Keywords the
// resolver does not know are replaced by their own name.
func Substitute(text string, resolve Resolver) string {
	if !strings.Contains(text, "{") {
		return text
	}
	return keywordPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := keywordPattern.FindStringSubmatch(match)
		keyword, modifier := groups[1], groups[2]

		value := keyword
		if resolve != nil {
			if v, ok := resolve(keyword); ok {
				value = v
			}
		}
		return applyModifier(value, modifier)
	})
}

// Keywords lists the keywords referenced by text in order of appearance.
func Keywords(text string) []string {
	var out []string
	for _, m := range keywordPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func applyModifier(value, modifier string) string {
	switch modifier {
	case "title":
		return cases.Title(language.English).String(value)
	case "upper":
		return cases.Upper(language.English).String(value)
	case "lower":
		return cases.Lower(language.English).String(value)
	default:
		return value
	}
}

// Chain resolvers, first match wins.
func Chain(resolvers ...Resolver) Resolver {
	return func(keyword string) (string, bool) {
		for _, r := range resolvers {
			if r == nil {
				continue
			}
			if v, ok := r(keyword); ok {
				return v, true
			}
		}
		return "", false
	}
}
