package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sha1n/mcp-vaultcloud-server/internal/cache"
	"github.com/sha1n/mcp-vaultcloud-server/internal/freq"
	"github.com/sha1n/mcp-vaultcloud-server/internal/stopwords"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
)

// NoEntriesMessage is shown when a cloud would be empty.
const NoEntriesMessage = "No entries to generate cloud from"

// ScanningNotice is attached to vault-wide clouds while a scan runs.
const ScanningNotice = "Word distribution is currently being calculated, results may change once it finishes"

var (
	// ErrNoEntries indicates nothing was left to show after filtering
	ErrNoEntries = errors.New("no entries to generate cloud from")

	// ErrCapabilityUnavailable indicates an optional index is not configured
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrUnsupportedSource indicates the source cannot feed the requested kind
	ErrUnsupportedSource = errors.New("unsupported source")
)

// Aggregates exposes the published vault-wide word counts.
type Aggregates interface {
	CurrentAggregate(withStopwords bool) freq.Map
	IsScanning() bool
}

// EntryCache exposes cached per-note analyses.
type EntryCache interface {
	Entry(path string) (cache.FileEntry, bool)
}

// TagIndex lists note tags.
type TagIndex interface {
	TagsForFile(path string) []string
	Files() []string
}

// LinkIndex lists note links grouped by source note.
type LinkIndex interface {
	ResolvedLinks() vault.LinkMap
	UnresolvedLinks() vault.LinkMap
}

// Searcher resolves a query string to note paths.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Config holds the service dependencies. Only Aggregates is required; each
// missing capability disables the clouds that need it.
type Config struct {
	Aggregates Aggregates
	Entries    EntryCache
	Store      vault.Store
	Tags       TagIndex
	Links      LinkIndex
	Searcher   Searcher
	// Stopwords is the effective stop word set for file-source word clouds.
	Stopwords    stopwords.Set
	ExcludedTags []string
	MemoSize     int
	Logger       *slog.Logger
}

// Request asks for one cloud.
type Request struct {
	Kind    Kind
	Options Options
	// Note is the vault-relative path of the note the cloud is rendered in.
	// It is required for the file source.
	Note string
}

// Entry is one ranked cloud item.
type Entry struct {
	freq.Pair
	// Search is the query the host opens when the entry is clicked.
	Search string `json:"search"`
}

// Cloud is a rendered cloud ready for the renderer.
type Cloud struct {
	Kind    Kind    `json:"kind"`
	Options Options `json:"options"`
	Entries []Entry `json:"entries"`
	// Notice is informational text to show next to the cloud.
	Notice string `json:"notice,omitempty"`
}

// Service builds clouds from cached frequencies.
type Service struct {
	aggregates   Aggregates
	entries      EntryCache
	store        vault.Store
	tags         TagIndex
	links        LinkIndex
	searcher     Searcher
	excludedTags stopwords.Set
	files        *fileCounter
	logger       *slog.Logger
}

// NewService creates a cloud service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Aggregates == nil {
		return nil, fmt.Errorf("aggregates cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		aggregates:   cfg.Aggregates,
		entries:      cfg.Entries,
		store:        cfg.Store,
		tags:         cfg.Tags,
		links:        cfg.Links,
		searcher:     cfg.Searcher,
		excludedTags: normalizeTagSet(cfg.ExcludedTags),
		logger:       logger,
	}
	if cfg.Store != nil {
		s.files = newFileCounter(cfg.Store, cfg.Stopwords, cfg.MemoSize)
	}
	return s, nil
}

// Generate builds the cloud for req. It returns ErrNoEntries when nothing
// remains after filtering.
func (s *Service) Generate(ctx context.Context, req Request) (*Cloud, error) {
	opts := req.Options
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		counts freq.Map
		err    error
	)
	switch req.Kind {
	case KindWords:
		counts, err = s.wordCounts(ctx, opts, req.Note)
	case KindTags:
		counts, err = s.tagCounts(ctx, opts, req.Note)
	case KindLinks:
		counts, err = s.linkCounts(ctx, opts, req.Note)
	default:
		return nil, &ConfigError{Key: "kind", Reason: fmt.Sprintf("unknown kind %q", req.Kind)}
	}
	if err != nil {
		return nil, err
	}

	pairs := freq.ToSortedPairs(counts, opts.MinCount, opts.MaxDistinctLevels)
	if len(pairs) == 0 {
		return nil, ErrNoEntries
	}

	cloud := &Cloud{
		Kind:    req.Kind,
		Options: opts,
		Entries: make([]Entry, len(pairs)),
	}
	for i, p := range pairs {
		cloud.Entries[i] = Entry{Pair: p, Search: searchHint(req.Kind, p.Label)}
	}
	if opts.Source != SourceFile && s.aggregates.IsScanning() {
		cloud.Notice = ScanningNotice
	}
	return cloud, nil
}

func (s *Service) wordCounts(ctx context.Context, opts Options, note string) (freq.Map, error) {
	pick := func(e cache.FileEntry) freq.Map {
		if opts.Stopwords {
			return e.WithoutStopwords
		}
		return e.WithStopwords
	}

	switch opts.Source {
	case SourceVault:
		return s.aggregates.CurrentAggregate(!opts.Stopwords), nil
	case SourceFile:
		entry, err := s.noteEntry(ctx, note)
		if err != nil {
			return nil, err
		}
		return pick(entry), nil
	case SourceQuery:
		if s.entries == nil {
			return nil, fmt.Errorf("%w: note cache", ErrCapabilityUnavailable)
		}
		paths, err := s.search(ctx, opts.Query)
		if err != nil {
			return nil, err
		}
		result := make(freq.Map)
		for _, p := range paths {
			if entry, ok := s.entries.Entry(p); ok {
				result.Add(pick(entry))
			}
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, opts.Source)
}

func (s *Service) tagCounts(ctx context.Context, opts Options, note string) (freq.Map, error) {
	var tags []string
	switch opts.Source {
	case SourceFile:
		entry, err := s.noteEntry(ctx, note)
		if err != nil {
			return nil, err
		}
		tags = entry.Tags
	case SourceVault:
		if s.tags == nil {
			return nil, fmt.Errorf("%w: tag index", ErrCapabilityUnavailable)
		}
		for _, p := range s.tags.Files() {
			tags = append(tags, s.tags.TagsForFile(p)...)
		}
	case SourceQuery:
		if s.tags == nil {
			return nil, fmt.Errorf("%w: tag index", ErrCapabilityUnavailable)
		}
		paths, err := s.search(ctx, opts.Query)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			tags = append(tags, s.tags.TagsForFile(p)...)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, opts.Source)
	}

	counts := make(freq.Map)
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimPrefix(tag, "#"))
		if tag == "" || s.excludedTags.Has(tag) {
			continue
		}
		counts[tag]++
	}
	return counts, nil
}

func (s *Service) linkCounts(ctx context.Context, opts Options, note string) (freq.Map, error) {
	if s.links == nil {
		return nil, fmt.Errorf("%w: link index", ErrCapabilityUnavailable)
	}

	var sources map[string]struct{}
	switch opts.Source {
	case SourceVault:
	case SourceFile:
		if note == "" {
			return nil, &ConfigError{Key: "source", Reason: "file source requires a note"}
		}
		sources = map[string]struct{}{note: {}}
	case SourceQuery:
		paths, err := s.search(ctx, opts.Query)
		if err != nil {
			return nil, err
		}
		sources = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			sources[p] = struct{}{}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, opts.Source)
	}

	counts := make(freq.Map)
	if opts.Type == LinkResolved || opts.Type == LinkBoth {
		countTargets(counts, s.links.ResolvedLinks(), sources, vault.NoteName)
	}
	if opts.Type == LinkUnresolved || opts.Type == LinkBoth {
		countTargets(counts, s.links.UnresolvedLinks(), sources, func(target string) string { return target })
	}
	return counts, nil
}

// countTargets adds one per distinct source note linking to each target.
// Targets that share a display label add into the same count. A nil sources
// set admits every source.
func countTargets(counts freq.Map, links vault.LinkMap, sources map[string]struct{}, label func(string) string) {
	for source, targets := range links {
		if sources != nil {
			if _, ok := sources[source]; !ok {
				continue
			}
		}
		for target := range targets {
			counts[label(target)]++
		}
	}
}

// noteEntry returns the analysis of one note, from the scan cache when it is
// still valid or freshly computed otherwise.
func (s *Service) noteEntry(ctx context.Context, note string) (cache.FileEntry, error) {
	if note == "" {
		return cache.FileEntry{}, &ConfigError{Key: "source", Reason: "file source requires a note"}
	}
	if s.store == nil {
		return cache.FileEntry{}, fmt.Errorf("%w: document store", ErrCapabilityUnavailable)
	}

	doc, err := s.store.Stat(ctx, note)
	if err != nil {
		return cache.FileEntry{}, err
	}
	if s.entries != nil {
		if entry, ok := s.entries.Entry(note); ok && cache.IsValid(entry, doc.ModTime) {
			return entry, nil
		}
	}
	s.logger.Debug("Computing note frequencies", "path", note)
	return s.files.Entry(ctx, doc)
}

func (s *Service) search(ctx context.Context, query string) ([]string, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("%w: search index", ErrCapabilityUnavailable)
	}
	paths, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, &ConfigError{Key: "query", Reason: err.Error()}
	}
	return paths, nil
}

// searchHint returns the host search string for a cloud entry.
func searchHint(kind Kind, label string) string {
	switch kind {
	case KindTags:
		return "tag:" + label
	case KindLinks:
		return "file:" + label
	default:
		return label
	}
}

func normalizeTagSet(tags []string) stopwords.Set {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		cleaned = append(cleaned, strings.TrimPrefix(strings.TrimSpace(t), "#"))
	}
	return stopwords.NewSet(cleaned...)
}
