// Package stopwords removes noise words from frequency maps.
package stopwords

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/cespare/xxhash/v2"
	"github.com/sha1n/mcp-vaultcloud-server/internal/freq"
)

// Set is a set of lowercase stop words.
type Set map[string]struct{}

// NewSet builds a set from words, lowercasing and trimming each one.
// Empty entries are ignored.
func NewSet(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s[w] = struct{}{}
		}
	}
	return s
}

// Parse reads a user supplied list. Entries may be separated by newlines or
// commas.
func Parse(text string) Set {
	return NewSet(strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})...)
}

// Has reports whether word, compared case-insensitively, is in the set.
func (s Set) Has(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

// Union returns a new set holding the words of s and every other set.
func (s Set) Union(others ...Set) Set {
	result := make(Set, len(s))
	maps.Copy(result, s)
	for _, o := range others {
		maps.Copy(result, o)
	}
	return result
}

// Words returns the set members in sorted order.
func (s Set) Words() []string {
	return slices.Sorted(maps.Keys(s))
}

// Fingerprint is a stable hash of the set contents. It changes whenever a
// word is added or removed.
func (s Set) Fingerprint() uint64 {
	d := xxhash.New()
	for _, w := range s.Words() {
		_, _ = d.WriteString(w)
		_, _ = d.WriteString("\n")
	}
	return d.Sum64()
}

var (
	builtinOnce sync.Once
	builtin     Set
)

// Builtin returns the English stop word list shipped with bleve. The
// returned set must not be modified.
func Builtin() Set {
	builtinOnce.Do(func() {
		tokens := analysis.NewTokenMap()
		if err := tokens.LoadBytes(en.EnglishStopWords); err != nil {
			builtin = Set{}
			return
		}
		builtin = make(Set, len(tokens))
		for w := range tokens {
			builtin[strings.ToLower(w)] = struct{}{}
		}
	})
	return builtin
}

// Remove returns a copy of m without the keys whose lowercase form is in
// set. Original key casing is kept. An empty set returns m unchanged.
func Remove(m freq.Map, set Set) freq.Map {
	if len(set) == 0 || m == nil {
		return m
	}
	result := make(freq.Map, len(m))
	for k, v := range m {
		if !set.Has(k) {
			result[k] = v
		}
	}
	return result
}

// Filter removes a fixed base set plus per-call extras.
type Filter struct {
	base Set
}

// NewFilter creates a filter over base. A nil base filters nothing on its own.
func NewFilter(base Set) *Filter {
	return &Filter{base: base}
}

// Default returns a filter over the built-in English list.
func Default() *Filter {
	return NewFilter(Builtin())
}

// Apply removes every key found in the base set or in extra.
func (f *Filter) Apply(m freq.Map, extra Set) freq.Map {
	return Remove(m, f.Effective(extra))
}

// Effective returns the union of the base set and extra.
func (f *Filter) Effective(extra Set) Set {
	if len(extra) == 0 {
		return f.base
	}
	return f.base.Union(extra)
}
