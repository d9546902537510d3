// Package scan runs incremental vault scans and publishes the resulting
// word aggregates.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cache"
	"github.com/sha1n/mcp-vaultcloud-server/internal/freq"
	"github.com/sha1n/mcp-vaultcloud-server/internal/stopwords"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
)

// ErrCancelled is returned by Run when a scan stops before completing.
var ErrCancelled = errors.New("scan cancelled")

// State is the scan lifecycle state.
type State int32

const (
	Idle State = iota
	Scanning
	Cancelling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Cancelling:
		return "cancelling"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// NoteIndex receives cache changes after each scan.
type NoteIndex interface {
	Sync(ctx context.Context, entries map[string]cache.FileEntry, changed, removed []string) error
}

// Config holds the orchestrator dependencies. Store and StateStore are
// required.
type Config struct {
	Store      vault.Store
	StateStore cache.Store
	// Stopwords is the effective filter set: built-in plus configured words.
	// Words imported with the state are added to it.
	Stopwords stopwords.Set
	// ExcludedTags are hidden from tag clouds.
	ExcludedTags []string
	Lock         *LeaderLock
	Index        NoteIndex
	Metrics      *Metrics
	Logger       *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// RunOptions tune a single scan.
type RunOptions struct {
	// Force skips the freshness pre-check and visits every note.
	Force bool
	// Wait is how long to wait for another process to release the scan lock.
	// Zero skips the scan when the lock is held.
	Wait time.Duration
}

// Result summarizes a scan.
type Result struct {
	ScanID string
	// Skipped is set when another scan was already running.
	Skipped bool
	// Fresh is set when the persisted snapshot was current and reused.
	Fresh            bool
	Files            int
	Hits             int
	Misses           int
	Failed           int
	Pruned           int
	WithStopwords    freq.Map
	WithoutStopwords freq.Map
	StartedAt        time.Time
	Duration         time.Duration
}

// Status describes the orchestrator for reporting.
type Status struct {
	State            string    `json:"state"`
	LastScanID       string    `json:"last_scan_id,omitempty"`
	LastOutcome      string    `json:"last_outcome,omitempty"`
	LastCompletedAt  time.Time `json:"last_completed_at,omitzero"`
	SnapshotAt       time.Time `json:"snapshot_at,omitzero"`
	CachedFiles      int       `json:"cached_files"`
	Files            int       `json:"files"`
	Hits             int       `json:"hits"`
	Misses           int       `json:"misses"`
	Failed           int       `json:"failed"`
	Pruned           int       `json:"pruned"`
	DistinctWords    int       `json:"distinct_words"`
	DistinctFiltered int       `json:"distinct_filtered_words"`
}

// Orchestrator owns the scan state machine, the per-file cache and the
// published aggregates.
type Orchestrator struct {
	store        vault.Store
	stateStore   cache.Store
	state        *cache.State
	stopwords    stopwords.Set
	excludedTags []string
	lock         *LeaderLock
	index        NoteIndex
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time

	scanState atomic.Int32

	mu        sync.RWMutex
	cancel    context.CancelFunc
	published cache.Snapshot
	last      Result
	outcome   string
}

// New loads the persisted state and publishes its snapshot.
// Entries computed with a different stop word set are refiltered.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("vault store cannot be nil")
	}
	if cfg.StateStore == nil {
		return nil, fmt.Errorf("state store cannot be nil")
	}

	state, err := cfg.StateStore.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	userWords, stateTags := state.Settings()
	filter := stopwords.NewFilter(cfg.Stopwords)
	extra := stopwords.NewSet(userWords...)
	set := filter.Effective(extra)
	excluded := slices.Concat(cfg.ExcludedTags, stateTags)

	o := &Orchestrator{
		store:        cfg.Store,
		stateStore:   cfg.StateStore,
		state:        state,
		stopwords:    set,
		excludedTags: excluded,
		lock:         cfg.Lock,
		index:        cfg.Index,
		metrics:      cfg.Metrics,
		logger:       logger,
		now:          now,
	}

	if fp := set.Fingerprint(); state.Fingerprint() != fp {
		if state.Len() == 0 {
			state.SetFingerprint(fp)
		} else {
			logger.Info("Stop words changed, refiltering cache", "files", state.Len())
			state.Refilter(fp, func(m freq.Map) freq.Map {
				return filter.Apply(m, extra)
			})
		}
	}

	o.published = state.GetSnapshot()
	return o, nil
}

// Run performs one scan. If a scan is already running it returns
// immediately with Result.Skipped set and no error. A cancelled scan returns
// ErrCancelled and publishes nothing.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (Result, error) {
	if !o.scanState.CompareAndSwap(int32(Idle), int32(Scanning)) {
		o.metrics.scanSkipped()
		o.logger.Debug("Scan already running, skipping")
		return Result{Skipped: true}, nil
	}
	defer o.scanState.Store(int32(Idle))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()

	if o.lock != nil {
		if err := o.acquireLock(ctx, opts.Wait); err != nil {
			switch {
			case ctx.Err() != nil:
				return Result{}, ErrCancelled
			case errors.Is(err, ErrLockWouldBlock), errors.Is(err, ErrLockTimeout):
				o.metrics.scanSkipped()
				o.logger.Info("Another process is scanning this vault, skipping", "waited", opts.Wait)
				return Result{Skipped: true}, nil
			}
			return Result{}, fmt.Errorf("failed to acquire scan lock: %w", err)
		}
		defer func() {
			if err := o.lock.Unlock(); err != nil {
				o.logger.Error("Failed to unlock", "error", err)
			}
		}()
	}

	o.metrics.scanStarted()
	res, err := o.run(ctx, opts)
	res.Duration = o.now().Sub(res.StartedAt)

	outcome := OutcomeCompleted
	switch {
	case errors.Is(err, ErrCancelled):
		outcome = OutcomeCancelled
	case err != nil:
		outcome = OutcomeFailed
	case res.Fresh:
		outcome = OutcomeFresh
	}
	o.metrics.scanFinished(outcome, res.Duration.Seconds())

	o.mu.Lock()
	o.last = res
	o.outcome = outcome
	o.mu.Unlock()

	return res, err
}

func (o *Orchestrator) acquireLock(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return o.lock.TryLock()
	}
	return o.lock.LockWithContext(ctx, wait)
}

func (o *Orchestrator) run(ctx context.Context, opts RunOptions) (Result, error) {
	res := Result{ScanID: uuid.NewString(), StartedAt: o.now()}
	logger := o.logger.With("scan_id", res.ScanID)

	docs, err := o.store.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("Scan cancelled while listing notes")
			return res, ErrCancelled
		}
		return res, err
	}
	res.Files = len(docs)
	logger.Info("Scan started", "files", len(docs), "force", opts.Force)

	if !opts.Force && o.isFresh(docs, res.StartedAt) {
		snap := o.state.GetSnapshot()
		res.Fresh = true
		res.Hits = len(docs)
		res.WithStopwords = snap.WithStopwords
		res.WithoutStopwords = snap.WithoutStopwords
		o.syncIndex(ctx, logger, nil, nil)
		o.publish(snap)
		logger.Info("Snapshot is current, reusing it", "computed_at", snap.ComputedAt)
		return res, nil
	}

	withAll := make(freq.Map)
	withoutStop := make(freq.Map)
	present := make(map[string]struct{}, len(docs))
	var changed []string

	for _, doc := range docs {
		if ctx.Err() != nil || o.scanState.Load() == int32(Cancelling) {
			o.saveCancelled(logger, changed)
			logger.Info("Scan cancelled", "visited", res.Hits+res.Misses+res.Failed, "files", len(docs))
			return res, ErrCancelled
		}
		present[doc.Path] = struct{}{}

		entry, ok := o.state.Get(doc.Path)
		if ok && cache.IsValid(entry, doc.ModTime) {
			res.Hits++
			o.metrics.file(FileHit)
		} else {
			content, err := o.store.Read(ctx, doc.Path)
			if err != nil {
				if ctx.Err() != nil {
					o.saveCancelled(logger, changed)
					logger.Info("Scan cancelled while reading", "path", doc.Path, "files", len(docs))
					return res, ErrCancelled
				}
				res.Failed++
				o.metrics.file(FileFailed)
				logger.Warn("Skipping unreadable note", "path", doc.Path, "error", err)
				continue
			}
			entry = cache.NewEntry(content, o.stopwords, doc.ModTime)
			o.state.Put(doc.Path, entry)
			changed = append(changed, doc.Path)
			res.Misses++
			o.metrics.file(FileMiss)
		}

		withAll.Add(entry.WithStopwords)
		withoutStop.Add(entry.WithoutStopwords)
	}

	removed := o.state.Prune(present)
	res.Pruned = len(removed)
	o.metrics.pruned(len(removed))
	for _, p := range removed {
		logger.Debug("Pruned deleted note", "path", p)
	}

	snap := cache.Snapshot{
		WithStopwords:    withAll,
		WithoutStopwords: withoutStop,
		ComputedAt:       res.StartedAt,
	}
	o.state.SetSnapshot(snap)
	if err := o.stateStore.Save(o.state); err != nil {
		logger.Error("Failed to save state", "error", err)
	}
	o.syncIndex(ctx, logger, changed, removed)
	o.publish(snap)

	res.WithStopwords = withAll
	res.WithoutStopwords = withoutStop
	logger.Info("Scan complete",
		"files", res.Files,
		"hits", res.Hits,
		"misses", res.Misses,
		"failed", res.Failed,
		"pruned", res.Pruned,
		"words", len(withAll))
	return res, nil
}

// isFresh reports whether the persisted snapshot still reflects every note.
func (o *Orchestrator) isFresh(docs []vault.Document, now time.Time) bool {
	snap := o.state.GetSnapshot()
	if snap.IsZero() || o.state.Len() != len(docs) {
		return false
	}
	for _, doc := range docs {
		if doc.ModTime.After(now) || doc.ModTime.After(snap.ComputedAt) {
			return false
		}
		entry, ok := o.state.Get(doc.Path)
		if !ok || !cache.IsValid(entry, doc.ModTime) {
			return false
		}
	}
	return true
}

// saveCancelled keeps the entries computed so far. The snapshot is left as
// it was.
func (o *Orchestrator) saveCancelled(logger *slog.Logger, changed []string) {
	if len(changed) == 0 {
		return
	}
	if err := o.stateStore.Save(o.state); err != nil {
		logger.Error("Failed to save state", "error", err)
	}
	o.syncIndex(context.Background(), logger, changed, nil)
}

func (o *Orchestrator) syncIndex(ctx context.Context, logger *slog.Logger, changed, removed []string) {
	if o.index == nil {
		return
	}
	if err := o.index.Sync(ctx, o.state.Entries(), changed, removed); err != nil {
		logger.Error("Failed to update search index", "error", err)
	}
}

func (o *Orchestrator) publish(snap cache.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.published = snap
}

// Cancel requests cooperative cancellation of the running scan.
// Returns false if no scan is running.
func (o *Orchestrator) Cancel() bool {
	if !o.scanState.CompareAndSwap(int32(Scanning), int32(Cancelling)) {
		return false
	}
	o.mu.RLock()
	cancel := o.cancel
	o.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	return true
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.scanState.Load())
}

// IsScanning reports whether a scan is running or being cancelled.
func (o *Orchestrator) IsScanning() bool {
	return o.State() != Idle
}

// CurrentAggregate returns the last published vault aggregate. The map is
// shared and must not be modified. It is nil before the first scan.
func (o *Orchestrator) CurrentAggregate(withStopwords bool) freq.Map {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if withStopwords {
		return o.published.WithStopwords
	}
	return o.published.WithoutStopwords
}

// Stopwords returns the effective stop word set used for filtered maps.
func (o *Orchestrator) Stopwords() stopwords.Set {
	return o.stopwords
}

// ExcludedTags returns the tags hidden from tag clouds.
func (o *Orchestrator) ExcludedTags() []string {
	return slices.Clone(o.excludedTags)
}

// Entry returns the cached analysis of a note.
func (o *Orchestrator) Entry(path string) (cache.FileEntry, bool) {
	return o.state.Get(path)
}

// Files returns all cached note paths in sorted order.
func (o *Orchestrator) Files() []string {
	return o.state.Paths()
}

// TagsForFile returns the cached tags of a note.
func (o *Orchestrator) TagsForFile(path string) []string {
	entry, _ := o.state.Get(path)
	return entry.Tags
}

// ResolvedLinks maps each note to the notes it links to.
func (o *Orchestrator) ResolvedLinks() vault.LinkMap {
	resolved, _ := o.linkMaps()
	return resolved
}

// UnresolvedLinks maps each note to link targets that match no note.
func (o *Orchestrator) UnresolvedLinks() vault.LinkMap {
	_, unresolved := o.linkMaps()
	return unresolved
}

func (o *Orchestrator) linkMaps() (resolved, unresolved vault.LinkMap) {
	entries := o.state.Entries()
	links := make(map[string][]string, len(entries))
	for path, entry := range entries {
		links[path] = entry.Links
	}
	return vault.BuildLinkMaps(links)
}

// Status reports the current state and the last scan.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Status{
		State:            o.State().String(),
		LastScanID:       o.last.ScanID,
		LastOutcome:      o.outcome,
		LastCompletedAt:  o.completedAt(),
		SnapshotAt:       o.published.ComputedAt,
		CachedFiles:      o.state.Len(),
		Files:            o.last.Files,
		Hits:             o.last.Hits,
		Misses:           o.last.Misses,
		Failed:           o.last.Failed,
		Pruned:           o.last.Pruned,
		DistinctWords:    len(o.published.WithStopwords),
		DistinctFiltered: len(o.published.WithoutStopwords),
	}
}

func (o *Orchestrator) completedAt() time.Time {
	if o.last.StartedAt.IsZero() {
		return time.Time{}
	}
	return o.last.StartedAt.Add(o.last.Duration)
}
