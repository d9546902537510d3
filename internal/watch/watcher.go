// Package watch triggers vault rescans when notes change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
)

// DefaultDebounce is the quiet period after the last change before a rescan
// is triggered.
const DefaultDebounce = 2 * time.Second

// Config configures a Watcher.
type Config struct {
	// Root is the vault directory to watch recursively.
	Root string
	// Filter selects note files and prunes excluded directories. Nil uses
	// the default vault filter.
	Filter *vault.Filter
	// Ignore lists absolute directories whose events are dropped, such as a
	// data directory placed inside the vault.
	Ignore   []string
	Debounce time.Duration
	// OnChange is called from the watch loop once changes settle.
	OnChange func()
	Logger   *slog.Logger
}

// Watcher watches a vault and calls OnChange after bursts of note changes.
type Watcher struct {
	root     string
	filter   *vault.Filter
	ignore   []string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New creates a Watcher and registers every non-excluded directory under the
// root. Call Run to start delivering changes.
func New(cfg Config) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("onChange cannot be nil")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}
	filter := cfg.Filter
	if filter == nil {
		filter = vault.NewFilter(vault.DefaultExcludePatterns, vault.DefaultExtensions, 0)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ignore := make([]string, 0, len(cfg.Ignore))
	for _, dir := range cfg.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			ignore = append(ignore, abs)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		filter:   filter,
		ignore:   ignore,
		debounce: debounce,
		onChange: cfg.OnChange,
		logger:   logger,
		fsw:      fsw,
	}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch vault: %w", err)
	}
	return w, nil
}

// Run delivers debounced changes until ctx is cancelled, then releases the
// underlying watches. A pending change is dropped on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
				fire = timer.C
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Vault watcher error", "error", err)
		case <-fire:
			fire = nil
			w.logger.Debug("Vault changed, triggering scan")
			w.onChange()
		}
	}
}

// handle registers new directories and reports whether event should trigger
// a rescan.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod || w.ignored(event.Name) {
		return false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.filter.ShouldSkipDir(rel) {
				return false
			}
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("Failed to watch directory", "path", rel, "error", err)
			}
			// A directory moved into the vault arrives as a single create.
			return true
		}
	}

	if w.filter.IsNote(rel) {
		return true
	}
	// Removed or renamed directories no longer stat; an extensionless path
	// outside the exclusions may have held notes.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return filepath.Ext(rel) == "" && !w.filter.ShouldSkipDir(rel)
	}
	return false
}

func (w *Watcher) ignored(path string) bool {
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if rel, err := filepath.Rel(w.root, path); err == nil && w.filter.ShouldSkipDir(rel) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
