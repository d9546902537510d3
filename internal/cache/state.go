package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sha1n/mcp-vaultcloud-server/internal/freq"
)

const (
	// StateVersion is the current schema version
	StateVersion = 1

	// StateFilename is the default state filename
	StateFilename = "state.json"
)

// State is the persisted scan state: one entry per note plus the last
// completed vault-wide snapshot.
type State struct {
	Version int                  `json:"version"`
	Files   map[string]FileEntry `json:"files"`
	// Snapshot is the last fully completed vault aggregation.
	Snapshot Snapshot `json:"snapshot"`
	// StopwordsFingerprint identifies the stop word set the filtered maps
	// were computed with.
	StopwordsFingerprint uint64 `json:"stopwords_fingerprint,omitempty"`
	// UserStopwords and ExcludedTags carry settings imported from older
	// state files. They add to the configured values.
	UserStopwords []string     `json:"user_stopwords,omitempty"`
	ExcludedTags  []string     `json:"excluded_tags,omitempty"`
	mu            sync.RWMutex `json:"-"`
}

// FileEntry is the cached analysis of one note. Entries are replaced whole,
// never updated field by field.
type FileEntry struct {
	WithStopwords    freq.Map `json:"with_stopwords"`
	WithoutStopwords freq.Map `json:"without_stopwords"`
	Tags             []string `json:"tags,omitempty"`
	Links            []string `json:"links,omitempty"`
	// SourceTimestamp is the note modification time the entry was computed from.
	SourceTimestamp time.Time `json:"source_timestamp"`
}

// Snapshot is a vault-wide aggregation.
type Snapshot struct {
	WithStopwords    freq.Map  `json:"with_stopwords"`
	WithoutStopwords freq.Map  `json:"without_stopwords"`
	ComputedAt       time.Time `json:"computed_at"`
}

// IsZero reports whether the snapshot was never computed.
func (s Snapshot) IsZero() bool {
	return s.ComputedAt.IsZero()
}

// IsValid reports whether entry is still current for a note last modified
// at mtime.
func IsValid(entry FileEntry, mtime time.Time) bool {
	return !entry.SourceTimestamp.Before(mtime)
}

// NewState creates a new empty state.
func NewState() *State {
	return &State{
		Version: StateVersion,
		Files:   make(map[string]FileEntry),
	}
}

// LoadState reads a state file from disk, or creates a new one if it doesn't
// exist. Older formats are migrated.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	return decodeState(data)
}

// decodeState parses any supported state version into the current one.
func decodeState(data []byte) (*State, error) {
	var probe struct {
		Version   *int            `json:"version"`
		FileCache json.RawMessage `json:"filecache"`
		WordCache json.RawMessage `json:"wordCache"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	if probe.Version == nil && (probe.FileCache != nil || probe.WordCache != nil) {
		return migrateLegacy(data)
	}
	if probe.Version != nil && *probe.Version > StateVersion {
		return nil, fmt.Errorf("unsupported state version %d (max %d)", *probe.Version, StateVersion)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	state.applyDefaults()
	return &state, nil
}

// applyDefaults fills fields missing from older or partial files.
func (s *State) applyDefaults() {
	s.Version = StateVersion
	if s.Files == nil {
		s.Files = make(map[string]FileEntry)
	}
	for path, entry := range s.Files {
		if entry.WithStopwords == nil {
			entry.WithStopwords = freq.Map{}
		}
		if entry.WithoutStopwords == nil {
			entry.WithoutStopwords = freq.Map{}
		}
		s.Files[path] = entry
	}
}

// Save writes the state to disk atomically.
// Uses write-to-temp + rename pattern to prevent corruption.
func (s *State) Save(path string) error {
	s.mu.RLock()
	data, err := json.Marshal(s)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// Get returns the entry for a note path.
func (s *State) Get(path string) (FileEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.Files[path]
	return entry, ok
}

// Put stores the entry for a note path, replacing any previous one.
func (s *State) Put(path string, entry FileEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files[path] = entry
}

// Len returns the number of cached notes.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Files)
}

// Paths returns all cached note paths in sorted order.
func (s *State) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Entries returns a shallow copy of all entries. The maps inside entries are
// shared and must not be modified.
func (s *State) Entries() map[string]FileEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make(map[string]FileEntry, len(s.Files))
	for p, e := range s.Files {
		entries[p] = e
	}
	return entries
}

// Prune removes entries for notes not in present.
// Returns the removed paths in sorted order.
func (s *State) Prune(present map[string]struct{}) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for p := range s.Files {
		if _, ok := present[p]; !ok {
			removed = append(removed, p)
		}
	}
	for _, p := range removed {
		delete(s.Files, p)
	}
	slices.Sort(removed)
	return removed
}

// GetSnapshot returns the last completed snapshot.
func (s *State) GetSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Snapshot
}

// SetSnapshot replaces the snapshot.
func (s *State) SetSnapshot(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Snapshot = snap
}

// Fingerprint returns the stop word fingerprint of the filtered maps.
func (s *State) Fingerprint() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StopwordsFingerprint
}

// Refilter recomputes every entry's filtered map with filter and records
// fingerprint. The snapshot is cleared because its filtered aggregate no
// longer matches.
func (s *State) Refilter(fingerprint uint64, filter func(freq.Map) freq.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p, entry := range s.Files {
		entry.WithoutStopwords = filter(entry.WithStopwords)
		s.Files[p] = entry
	}
	s.StopwordsFingerprint = fingerprint
	s.Snapshot = Snapshot{}
}

// Settings returns the stop words and excluded tags carried by the state.
func (s *State) Settings() (userStopwords, excludedTags []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.UserStopwords), slices.Clone(s.ExcludedTags)
}

// SetFingerprint records the stop word fingerprint without touching entries.
// Used when there is nothing to refilter.
func (s *State) SetFingerprint(fingerprint uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopwordsFingerprint = fingerprint
}
