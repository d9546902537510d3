// Package freq holds frequency maps and the operations that build, combine
// and rank them.
package freq

import (
	"iter"
	"maps"
)

// Map counts occurrences per key. Every present key has a count >= 1.
type Map map[string]int

// Count builds a frequency map from a token sequence.
func Count(tokens iter.Seq[string]) Map {
	m := make(Map)
	for token := range tokens {
		m[token]++
	}
	return m
}

// Merge returns the key-wise sum of a and b. A nil operand acts as the
// identity and the other operand is returned as is. Neither input is mutated.
func Merge(a, b Map) Map {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	result := make(Map, max(len(a), len(b)))
	for k, v := range a {
		result[k] = v
	}
	for k, v := range b {
		result[k] += v
	}
	return result
}

// Add sums src into dst in place. It is the accumulator form of Merge used
// by callers that own dst exclusively.
func (m Map) Add(src Map) {
	for k, v := range src {
		m[k] += v
	}
}

// Clone returns a copy of m. Cloning a nil map returns nil.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Total returns the sum of all counts.
func (m Map) Total() int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// Equal reports whether a and b contain the same keys with the same counts.
// A nil map equals an empty one.
func Equal(a, b Map) bool {
	return maps.Equal(a, b)
}
