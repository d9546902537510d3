// Package text turns raw note content into normalized word tokens.
package text

import (
	"iter"
	"strings"
)

// Normalize strips markup from raw note text and yields lowercase word
// tokens in document order. The sequence is computed lazily and can be
// ranged over any number of times.
func Normalize(raw string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if raw == "" {
			return
		}
		stripped := applyRules(raw)
		for field := range strings.FieldsSeq(stripped) {
			token := cleanWord(field)
			if token == "" {
				continue
			}
			if !yield(token) {
				return
			}
		}
	}
}

// StripLiterals removes frontmatter, code, comments and math from raw but
// leaves links and other inline syntax in place.
func StripLiterals(raw string) string {
	return apply(raw, literalRules)
}

// StripMarkup returns raw with document level markup removed but without
// splitting or lowercasing.
func StripMarkup(raw string) string {
	return applyRules(raw)
}
