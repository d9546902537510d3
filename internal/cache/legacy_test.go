package cache

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/sha1n/mcp-vaultcloud-server/internal/freq"
)

func TestLoadState_Legacy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	content := `{
		"stopwords": "Foo\nbar, baz",
		"filecache": {
			"a.md": {"withStopwords": {"x": 1}, "withoutStopwords": {"x": 1}, "timestamp": 1700000000000}
		},
		"wordCache": {
			"withStopwords": {"the": 3, "fox": 1},
			"withoutStopwords": {"fox": 1},
			"timestamp": 1700000000000
		},
		"tags": {"exclude": ["daily", ""]}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	if s.Version != StateVersion {
		t.Errorf("Version = %d, want %d", s.Version, StateVersion)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 (per-file records are recomputed)", s.Len())
	}

	snap := s.GetSnapshot()
	if !snap.ComputedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("ComputedAt = %v", snap.ComputedAt)
	}
	if !freq.Equal(snap.WithoutStopwords, freq.Map{"fox": 1}) {
		t.Errorf("WithoutStopwords = %v", snap.WithoutStopwords)
	}

	words, tags := s.Settings()
	if want := []string{"bar", "baz", "foo"}; !slices.Equal(words, want) {
		t.Errorf("UserStopwords = %q, want %q", words, want)
	}
	if want := []string{"daily"}; !slices.Equal(tags, want) {
		t.Errorf("ExcludedTags = %q, want %q", tags, want)
	}
}

func TestLoadState_LegacyWithoutSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	content := `{"stopwords": "", "filecache": {}, "wordCache": {"withStopwords": {}, "withoutStopwords": {}, "timestamp": 0}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !s.GetSnapshot().IsZero() {
		t.Error("Snapshot should be zero when the legacy timestamp is 0")
	}
}
