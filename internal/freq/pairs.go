package freq

import (
	"cmp"
	"slices"
)

// Pair is one ranked cloud entry. Weight is the display level, Count the raw
// frequency it was derived from.
type Pair struct {
	Label  string `json:"label"`
	Weight int    `json:"weight"`
	Count  int    `json:"count"`
}

// ToSortedPairs drops entries below minCount, sorts the rest by count
// descending (label ascending on ties) and assigns display levels.
//
// With maxLevels > 0 the first entry gets level maxLevels and the level drops
// by one every time the count strictly decreases; entries are no longer
// emitted once the level would reach zero. With maxLevels <= 0 the weight is
// the raw count and nothing is dropped.
func ToSortedPairs(m Map, minCount, maxLevels int) []Pair {
	pairs := make([]Pair, 0, len(m))
	for label, count := range m {
		if count < minCount || count <= 0 {
			continue
		}
		pairs = append(pairs, Pair{Label: label, Count: count})
	}

	slices.SortFunc(pairs, func(a, b Pair) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})

	if maxLevels <= 0 {
		for i := range pairs {
			pairs[i].Weight = pairs[i].Count
		}
		return pairs
	}

	level := maxLevels
	for i := range pairs {
		if i > 0 && pairs[i].Count < pairs[i-1].Count {
			level--
		}
		if level <= 0 {
			return pairs[:i]
		}
		pairs[i].Weight = level
	}
	return pairs
}
