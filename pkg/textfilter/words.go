package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WordFilter replaces whole words, keeping the case pattern of the original.
// Stories use it for content ratings and regional spellings.
type WordFilter struct {
	words        []string
	replacements map[string]string
	regexes      map[string]*regexp.Regexp
}

// NewWordFilter builds a filter from a word -> replacement map. Matching is
// case-insensitive on word boundaries.
func NewWordFilter(replacements map[string]string) *WordFilter {
	wf := &WordFilter{
		replacements: make(map[string]string, len(replacements)),
		regexes:      make(map[string]*regexp.Regexp, len(replacements)),
	}
	for word, repl := range replacements {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		wf.words = append(wf.words, word)
		wf.replacements[word] = repl
		wf.regexes[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	// Longer phrases first so "good grief" wins over "grief".
	sort.Slice(wf.words, func(i, j int) bool {
		if len(wf.words[i]) != len(wf.words[j]) {
			return len(wf.words[i]) > len(wf.words[j])
		}
		return wf.words[i] < wf.words[j]
	})
	return wf
}

// FilterText applies every replacement to text.
func (wf *WordFilter) FilterText(text string) string {
	if wf == nil {
		return text
	}
	result := text
	for _, word := range wf.words {
		repl := wf.replacements[word]
		result = wf.regexes[word].ReplaceAllStringFunc(result, func(match string) string {
			return preserveCase(match, repl)
		})
	}
	return result
}

// Contains reports whether text holds any filtered word.
func (wf *WordFilter) Contains(text string) bool {
	if wf == nil {
		return false
	}
	for _, word := range wf.words {
		if wf.regexes[word].MatchString(text) {
			return true
		}
	}
	return false
}

// preserveCase applies the case pattern of original to replacement.
func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}
	titleCaser := cases.Title(language.English)
	if titleCaser.String(strings.ToLower(original)) == original {
		return titleCaser.String(replacement)
	}

	// mixed case: copy per rune, extra runes lowercase
	orig := []rune(original)
	out := []rune(replacement)
	for i := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(out[i])
		} else {
			out[i] = unicode.ToLower(out[i])
		}
	}
	return string(out)
}
