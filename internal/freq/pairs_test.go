package freq

import (
	"slices"
	"testing"
)

func TestToSortedPairs(t *testing.T) {
	tests := []struct {
		name      string
		m         Map
		minCount  int
		maxLevels int
		want      []Pair
	}{
		{
			name:      "equal counts share a level",
			m:         Map{"x": 5, "y": 5, "z": 2},
			minCount:  1,
			maxLevels: 3,
			want: []Pair{
				{Label: "x", Weight: 3, Count: 5},
				{Label: "y", Weight: 3, Count: 5},
				{Label: "z", Weight: 2, Count: 2},
			},
		},
		{
			name:      "level budget exhausted",
			m:         Map{"a": 9, "b": 7, "c": 4, "d": 1},
			minCount:  0,
			maxLevels: 2,
			want: []Pair{
				{Label: "a", Weight: 2, Count: 9},
				{Label: "b", Weight: 1, Count: 7},
			},
		},
		{
			name:      "min count filters",
			m:         Map{"a": 3, "b": 1, "c": 2},
			minCount:  2,
			maxLevels: 10,
			want: []Pair{
				{Label: "a", Weight: 10, Count: 3},
				{Label: "c", Weight: 9, Count: 2},
			},
		},
		{
			name:      "no levels keeps raw counts",
			m:         Map{"b": 1, "a": 4},
			minCount:  0,
			maxLevels: 0,
			want: []Pair{
				{Label: "a", Weight: 4, Count: 4},
				{Label: "b", Weight: 1, Count: 1},
			},
		},
		{
			name:      "empty",
			m:         Map{},
			minCount:  1,
			maxLevels: 3,
			want:      []Pair{},
		},
		{
			name:      "nil",
			m:         nil,
			minCount:  1,
			maxLevels: 3,
			want:      []Pair{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToSortedPairs(tt.m, tt.minCount, tt.maxLevels)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ToSortedPairs = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToSortedPairs_StableTies(t *testing.T) {
	m := Map{"delta": 2, "alpha": 2, "charlie": 2, "bravo": 2}
	for range 5 {
		got := ToSortedPairs(m, 0, 5)
		labels := make([]string, len(got))
		for i, p := range got {
			labels[i] = p.Label
		}
		if !slices.Equal(labels, []string{"alpha", "bravo", "charlie", "delta"}) {
			t.Fatalf("labels = %q", labels)
		}
	}
}

func TestToSortedPairs_DoesNotMutate(t *testing.T) {
	m := Map{"a": 1, "b": 2}
	_ = ToSortedPairs(m, 2, 1)
	if !Equal(m, Map{"a": 1, "b": 2}) {
		t.Errorf("map mutated: %v", m)
	}
}
