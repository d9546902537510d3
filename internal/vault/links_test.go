package vault

import (
	"maps"
	"testing"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver([]string{
		"Home.md",
		"projects/Plan.md",
		"archive/Plan.md",
		"deep/nested/Plan.md",
		"people/Ada Lovelace.md",
	})

	tests := []struct {
		name   string
		source string
		target string
		want   string
		ok     bool
	}{
		{"exact path", "Home.md", "projects/Plan", "projects/Plan.md", true},
		{"exact path with extension", "Home.md", "projects/Plan.md", "projects/Plan.md", true},
		{"case insensitive", "Home.md", "home", "Home.md", true},
		{"relative to source", "deep/Index.md", "nested/Plan", "deep/nested/Plan.md", true},
		{"parent relative", "projects/Plan.md", "../Home", "Home.md", true},
		{"same folder preferred", "archive/Other.md", "Plan", "archive/Plan.md", true},
		{"shortest path wins", "Home.md", "Plan", "archive/Plan.md", true},
		{"partial path suffix", "Home.md", "nested/Plan", "deep/nested/Plan.md", true},
		{"name with spaces", "Home.md", "Ada Lovelace", "people/Ada Lovelace.md", true},
		{"unresolved", "Home.md", "Missing", "", false},
		{"unresolved folder", "Home.md", "other/Plan", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.source, tt.target)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%q, %q) = (%q, %v), want (%q, %v)", tt.source, tt.target, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestBuildLinkMaps(t *testing.T) {
	links := map[string][]string{
		"a.md": {"b", "b", "missing"},
		"b.md": {"a.md", "ghost"},
		"c.md": nil,
	}

	resolved, unresolved := BuildLinkMaps(links)

	wantResolved := LinkMap{
		"a.md": {"b.md": 2},
		"b.md": {"a.md": 1},
	}
	if len(resolved) != len(wantResolved) {
		t.Fatalf("resolved = %v, want %v", resolved, wantResolved)
	}
	for src, targets := range wantResolved {
		if !maps.Equal(resolved[src], targets) {
			t.Errorf("resolved[%s] = %v, want %v", src, resolved[src], targets)
		}
	}

	if !maps.Equal(unresolved["a.md"], map[string]int{"missing": 1}) {
		t.Errorf("unresolved[a.md] = %v", unresolved["a.md"])
	}
	if !maps.Equal(unresolved["b.md"], map[string]int{"ghost": 1}) {
		t.Errorf("unresolved[b.md] = %v", unresolved["b.md"])
	}
}

func TestNoteName(t *testing.T) {
	tests := map[string]string{
		"a/b/Note.md": "Note",
		"Note.MD":     "Note",
		"plain":       "plain",
		"x/y.txt":     "y.txt",
	}
	for in, want := range tests {
		if got := NoteName(in); got != want {
			t.Errorf("NoteName(%q) = %q, want %q", in, got, want)
		}
	}
}
