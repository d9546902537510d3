package cloud

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/sha1n/mcp-vaultcloud-server/internal/cache"
	"github.com/sha1n/mcp-vaultcloud-server/internal/freq"
	"github.com/sha1n/mcp-vaultcloud-server/internal/stopwords"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
)

// fakeVault implements the capability interfaces over fixed data.
type fakeVault struct {
	with, without freq.Map
	scanning      bool
	entries       map[string]cache.FileEntry
	resolved      vault.LinkMap
	unresolved    vault.LinkMap
	hits          map[string][]string
}

func (f *fakeVault) CurrentAggregate(withStopwords bool) freq.Map {
	if withStopwords {
		return f.with
	}
	return f.without
}

func (f *fakeVault) IsScanning() bool { return f.scanning }

func (f *fakeVault) Entry(path string) (cache.FileEntry, bool) {
	e, ok := f.entries[path]
	return e, ok
}

func (f *fakeVault) TagsForFile(path string) []string { return f.entries[path].Tags }

func (f *fakeVault) Files() []string {
	paths := make([]string, 0, len(f.entries))
	for p := range f.entries {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func (f *fakeVault) ResolvedLinks() vault.LinkMap   { return f.resolved }
func (f *fakeVault) UnresolvedLinks() vault.LinkMap { return f.unresolved }

func (f *fakeVault) Search(ctx context.Context, query string) ([]string, error) {
	paths, ok := f.hits[query]
	if !ok {
		return nil, errors.New("syntax error")
	}
	return paths, nil
}

func newFakeVault() *fakeVault {
	return &fakeVault{
		with:    freq.Map{"the": 5, "fox": 3, "dog": 2},
		without: freq.Map{"fox": 3, "dog": 2},
		entries: map[string]cache.FileEntry{
			"a.md": {
				WithStopwords:    freq.Map{"the": 2, "fox": 2},
				WithoutStopwords: freq.Map{"fox": 2},
				Tags:             []string{"Animal", "wild"},
			},
			"b.md": {
				WithStopwords:    freq.Map{"the": 3, "fox": 1, "dog": 2},
				WithoutStopwords: freq.Map{"fox": 1, "dog": 2},
				Tags:             []string{"animal", "daily"},
			},
		},
		resolved: vault.LinkMap{
			"a.md": {"notes/Target.md": 2, "b.md": 1},
			"b.md": {"notes/Target.md": 1},
			"c.md": {"other/Target.md": 1},
			"solo": {},
		},
		unresolved: vault.LinkMap{
			"a.md": {"Ghost": 1},
			"b.md": {"Ghost": 4, "Phantom": 1},
		},
		hits: map[string][]string{"tags:animal": {"a.md", "b.md"}, "words:dog": {"b.md"}},
	}
}

func newTestService(t *testing.T, f *fakeVault, store vault.Store) *Service {
	t.Helper()
	s, err := NewService(Config{
		Aggregates:   f,
		Entries:      f,
		Store:        store,
		Tags:         f,
		Links:        f,
		Searcher:     f,
		Stopwords:    stopwords.NewSet("the"),
		ExcludedTags: []string{"#Daily"},
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return s
}

func options(t *testing.T, block string) Options {
	t.Helper()
	opts, err := ParseOptions(block)
	if err != nil {
		t.Fatalf("ParseOptions(%q) failed: %v", block, err)
	}
	return opts
}

func labels(c *Cloud) map[string]int {
	m := make(map[string]int, len(c.Entries))
	for _, e := range c.Entries {
		m[e.Label] = e.Count
	}
	return m
}

func TestNewService_RequiresAggregates(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Error("Expected error for nil aggregates")
	}
}

func TestGenerate_WordsVault(t *testing.T) {
	s := newTestService(t, newFakeVault(), nil)

	c, err := s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	want := []Entry{
		{Pair: freq.Pair{Label: "fox", Weight: 3, Count: 3}, Search: "fox"},
		{Pair: freq.Pair{Label: "dog", Weight: 2, Count: 2}, Search: "dog"},
	}
	if !slices.Equal(c.Entries, want) {
		t.Errorf("Entries = %+v, want %+v", c.Entries, want)
	}

	c, err = s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "stopwords: false\nmaxDistinctLevels: 2")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(c.Entries) != 2 || c.Entries[0].Label != "the" || c.Entries[0].Weight != 2 || c.Entries[1].Weight != 1 {
		t.Errorf("Entries = %+v, want the:2 fox:1", c.Entries)
	}
}

func TestGenerate_MinCountAndEmpty(t *testing.T) {
	s := newTestService(t, newFakeVault(), nil)

	c, err := s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "minCount: 3")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := labels(c); len(got) != 1 || got["fox"] != 3 {
		t.Errorf("labels = %v, want only fox", got)
	}

	_, err = s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "minCount: 10")})
	if !errors.Is(err, ErrNoEntries) {
		t.Errorf("error = %v, want ErrNoEntries", err)
	}
}

func TestGenerate_ScanningNotice(t *testing.T) {
	f := newFakeVault()
	f.scanning = true
	s := newTestService(t, f, nil)

	c, err := s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if c.Notice != ScanningNotice {
		t.Errorf("Notice = %q, want scanning notice", c.Notice)
	}
}

func TestGenerate_WordsQuery(t *testing.T) {
	s := newTestService(t, newFakeVault(), nil)

	c, err := s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "source: query\nquery: \"words:dog\"")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := labels(c); got["dog"] != 2 || got["fox"] != 1 || len(got) != 2 {
		t.Errorf("labels = %v, want dog:2 fox:1", got)
	}

	_, err = s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "source: query\nquery: \"((\"")})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != "query" {
		t.Errorf("error = %v, want query ConfigError", err)
	}
}

func TestGenerate_WordsFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "note.md")
	if err := os.WriteFile(path, []byte("The fox and the hound #pets"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	store := vault.NewFSStore(root, nil)

	f := newFakeVault()
	s := newTestService(t, f, store)

	req := Request{Kind: KindWords, Options: options(t, "source: file"), Note: "note.md"}
	c, err := s.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := labels(c); got["fox"] != 1 || got["hound"] != 1 || got["pets"] != 1 || got["the"] != 0 {
		t.Errorf("labels = %v", got)
	}

	// A second request for the unchanged note is served from the memo.
	if _, err := s.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reads := s.files.reads.Load(); reads != 1 {
		t.Errorf("reads = %d, want 1", reads)
	}

	// A valid scan cache entry is preferred over reading the note.
	f.entries["note.md"] = cache.FileEntry{
		WithStopwords:    freq.Map{"cached": 1},
		WithoutStopwords: freq.Map{"cached": 1},
		SourceTimestamp:  time.Now().Add(time.Hour),
	}
	c, err = s.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := labels(c); got["cached"] != 1 || len(got) != 1 {
		t.Errorf("labels = %v, want cached entry", got)
	}
}

func TestGenerate_FileSourceErrors(t *testing.T) {
	s := newTestService(t, newFakeVault(), vault.NewFSStore(t.TempDir(), nil))

	_, err := s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "source: file")})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("missing note error = %v, want ConfigError", err)
	}

	_, err = s.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "source: file"), Note: "missing.md"})
	if err == nil {
		t.Error("Expected error for missing note")
	}

	noStore := newTestService(t, newFakeVault(), nil)
	_, err = noStore.Generate(context.Background(), Request{Kind: KindWords, Options: options(t, "source: file"), Note: "a.md"})
	if !errors.Is(err, ErrCapabilityUnavailable) {
		t.Errorf("error = %v, want ErrCapabilityUnavailable", err)
	}
}

func TestGenerate_Tags(t *testing.T) {
	s := newTestService(t, newFakeVault(), nil)

	c, err := s.Generate(context.Background(), Request{Kind: KindTags, Options: options(t, "")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	got := labels(c)
	if got["animal"] != 2 || got["wild"] != 1 {
		t.Errorf("labels = %v, want animal:2 wild:1", got)
	}
	if _, ok := got["daily"]; ok {
		t.Error("Excluded tag daily should be hidden")
	}
	if c.Entries[0].Search != "tag:animal" {
		t.Errorf("Search = %q, want tag:animal", c.Entries[0].Search)
	}

	c, err = s.Generate(context.Background(), Request{Kind: KindTags, Options: options(t, "source: query\nquery: \"words:dog\"")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := labels(c); len(got) != 1 || got["animal"] != 1 {
		t.Errorf("query labels = %v, want animal:1", got)
	}
}

func TestGenerate_Links(t *testing.T) {
	s := newTestService(t, newFakeVault(), nil)

	tests := []struct {
		name  string
		block string
		note  string
		want  map[string]int
	}{
		{
			name:  "resolved counts distinct sources",
			block: "",
			want:  map[string]int{"Target": 3, "b": 1},
		},
		{
			name:  "unresolved",
			block: "type: unresolved",
			want:  map[string]int{"Ghost": 2, "Phantom": 1},
		},
		{
			name:  "both",
			block: "type: both",
			want:  map[string]int{"Target": 3, "b": 1, "Ghost": 2, "Phantom": 1},
		},
		{
			name:  "file source",
			block: "source: file\ntype: both",
			note:  "b.md",
			want:  map[string]int{"Target": 1, "Ghost": 1, "Phantom": 1},
		},
		{
			name:  "query source",
			block: "source: query\nquery: \"words:dog\"",
			want:  map[string]int{"Target": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := s.Generate(context.Background(), Request{Kind: KindLinks, Options: options(t, tt.block), Note: tt.note})
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			got := labels(c)
			if len(got) != len(tt.want) {
				t.Fatalf("labels = %v, want %v", got, tt.want)
			}
			for label, count := range tt.want {
				if got[label] != count {
					t.Errorf("%s = %d, want %d", label, got[label], count)
				}
			}
			if c.Entries[0].Search != "file:"+c.Entries[0].Label {
				t.Errorf("Search = %q", c.Entries[0].Search)
			}
		})
	}
}

func TestGenerate_LinksSharedLabelAreSummed(t *testing.T) {
	f := newFakeVault()
	f.resolved = vault.LinkMap{
		"a.md": {"notes/Target.md": 1},
		"b.md": {"other/Target.md": 1},
	}
	f.unresolved = vault.LinkMap{
		"c.md": {"Target": 1},
	}
	s := newTestService(t, f, nil)

	tests := []struct {
		block string
		want  int
	}{
		{"type: resolved", 2},
		{"type: unresolved", 1},
		{"type: both", 3},
	}

	for _, tt := range tests {
		t.Run(tt.block, func(t *testing.T) {
			c, err := s.Generate(context.Background(), Request{Kind: KindLinks, Options: options(t, tt.block)})
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if len(c.Entries) != 1 || c.Entries[0].Label != "Target" || c.Entries[0].Count != tt.want {
				t.Errorf("entries = %+v, want one Target entry with count %d", c.Entries, tt.want)
			}
		})
	}
}

func TestGenerate_MissingCapabilities(t *testing.T) {
	s, err := NewService(Config{Aggregates: newFakeVault()})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	tests := []struct {
		kind  Kind
		block string
	}{
		{KindLinks, ""},
		{KindTags, ""},
		{KindTags, "source: query\nquery: x"},
		{KindWords, "source: query\nquery: x"},
	}
	for _, tt := range tests {
		_, err := s.Generate(context.Background(), Request{Kind: tt.kind, Options: options(t, tt.block)})
		if !errors.Is(err, ErrCapabilityUnavailable) {
			t.Errorf("%s %q: error = %v, want ErrCapabilityUnavailable", tt.kind, tt.block, err)
		}
	}
}

func TestGenerate_InvalidRequest(t *testing.T) {
	s := newTestService(t, newFakeVault(), nil)

	_, err := s.Generate(context.Background(), Request{Kind: "emoji", Options: DefaultOptions()})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != "kind" {
		t.Errorf("error = %v, want kind ConfigError", err)
	}

	bad := DefaultOptions()
	bad.Source = "web"
	if _, err := s.Generate(context.Background(), Request{Kind: KindWords, Options: bad}); !errors.As(err, &cfgErr) {
		t.Errorf("error = %v, want ConfigError", err)
	}
}
