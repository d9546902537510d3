package scan

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sha1n/mcp-vaultcloud-server/internal/cache"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
)

type memNote struct {
	content string
	mtime   time.Time
}

// memStore is an in-memory vault.Store with hooks for failures and blocking.
type memStore struct {
	mu    sync.Mutex
	notes map[string]memNote
	fail  map[string]error
	// readGate, when set, blocks reads of the given path until closed or
	// the context is done.
	readGate map[string]chan struct{}
	// reading is signalled when a gated read starts waiting.
	reading chan string
	reads   []string
}

func newMemStore() *memStore {
	return &memStore{
		notes:    make(map[string]memNote),
		fail:     make(map[string]error),
		readGate: make(map[string]chan struct{}),
		reading:  make(chan string, 16),
	}
}

func (s *memStore) put(path, content string, mtime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[path] = memNote{content: content, mtime: mtime}
}

func (s *memStore) remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, path)
}

func (s *memStore) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reads)
}

func (s *memStore) List(ctx context.Context) ([]vault.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]vault.Document, 0, len(s.notes))
	for path, n := range s.notes {
		docs = append(docs, vault.Document{Path: path, ModTime: n.mtime, Size: int64(len(n.content))})
	}
	slices.SortFunc(docs, func(a, b vault.Document) int {
		return strings.Compare(a.Path, b.Path)
	})
	return docs, nil
}

func (s *memStore) Stat(ctx context.Context, path string) (vault.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[path]
	if !ok {
		return vault.Document{}, &vault.ReadError{Path: path, Err: errors.New("not found")}
	}
	return vault.Document{Path: path, ModTime: n.mtime, Size: int64(len(n.content))}, nil
}

func (s *memStore) Read(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	gate := s.readGate[path]
	s.reads = append(s.reads, path)
	s.mu.Unlock()

	if gate != nil {
		s.reading <- path
		select {
		case <-gate:
		case <-ctx.Done():
			return "", &vault.ReadError{Path: path, Err: ctx.Err()}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[path]; err != nil {
		return "", &vault.ReadError{Path: path, Err: err}
	}
	n, ok := s.notes[path]
	if !ok {
		return "", &vault.ReadError{Path: path, Err: errors.New("not found")}
	}
	return n.content, nil
}

// recordingIndex captures Sync calls.
type recordingIndex struct {
	mu      sync.Mutex
	calls   int
	changed []string
	removed []string
	entries int
}

func (r *recordingIndex) Sync(ctx context.Context, entries map[string]cache.FileEntry, changed, removed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.changed = append(r.changed, changed...)
	r.removed = append(r.removed, removed...)
	r.entries = len(entries)
	return nil
}
