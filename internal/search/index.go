// Package search maintains a Bleve index of vault notes for query-sourced
// clouds.
package search

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cache"
	"github.com/sha1n/mcp-vaultcloud-server/internal/domain"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
)

const (
	// IndexDirname is the index directory name inside the data directory
	IndexDirname = "notes.bleve"

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100

	// pageSize is the number of hits fetched per search request
	pageSize = 500
)

// Index is a full-text index over cached note analyses.
type Index struct {
	index bleve.Index
	path  string
}

// CreateIndexMapping creates the Bleve index mapping for note documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Words - analyzed so queries match regardless of case
	wordsField := bleve.NewTextFieldMapping()
	wordsField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(domain.NoteFieldWords, wordsField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = true
	docMapping.AddFieldMappingsAt(domain.NoteFieldTitle, titleField)

	// Tags and links - keyword, matched exactly
	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(domain.NoteFieldTags, tagsField)

	linksField := bleve.NewTextFieldMapping()
	linksField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(domain.NoteFieldLinks, linksField)

	// Path - keyword, stored
	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	docMapping.AddFieldMappingsAt(domain.NoteFieldPath, pathField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Open opens the index at path, creating it if it does not exist.
func Open(path string) (*Index, error) {
	index, err := bleve.Open(path)
	if err == nil {
		return &Index{index: index, path: path}, nil
	}

	index, err = bleve.New(path, CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Index{index: index, path: path}, nil
}

// OpenMem creates an in-memory index.
func OpenMem() (*Index, error) {
	index, err := bleve.NewMemOnly(CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Index{index: index}, nil
}

// NewNoteDocument builds the indexed form of a cached note.
func NewNoteDocument(path string, entry cache.FileEntry) domain.NoteDocument {
	tags := make([]string, 0, len(entry.Tags))
	for _, tag := range entry.Tags {
		tags = append(tags, strings.ToLower(tag))
	}
	return domain.NoteDocument{
		Path:  path,
		Title: vault.NoteName(path),
		Tags:  tags,
		Links: entry.Links,
		Words: strings.Join(slices.Sorted(maps.Keys(entry.WithStopwords)), " "),
	}
}

// Sync indexes the changed notes and deletes the removed ones. When the index
// is empty but entries are not, every entry is indexed.
func (i *Index) Sync(ctx context.Context, entries map[string]cache.FileEntry, changed, removed []string) (err error) {
	count, err := i.index.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 && len(entries) > 0 {
		changed = slices.Sorted(maps.Keys(entries))
	}

	batch := i.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := i.index.Batch(batch); err != nil {
			return fmt.Errorf("batch index failed: %w", err)
		}
		batch = i.index.NewBatch()
		return nil
	}

	for _, path := range removed {
		batch.Delete(path)
	}

	for _, path := range changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, ok := entries[path]
		if !ok {
			batch.Delete(path)
			continue
		}
		if err := batch.Index(path, NewNoteDocument(path, entry)); err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}
		if batch.Size() >= MaxBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// Search returns the paths of all notes matching a Bleve query string, in
// relevance order.
func (i *Index) Search(ctx context.Context, queryString string) ([]string, error) {
	if strings.TrimSpace(queryString) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	q := bleve.NewQueryStringQuery(queryString)

	var paths []string
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		results, err := i.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}
		for _, hit := range results.Hits {
			paths = append(paths, hit.ID)
		}
		if len(results.Hits) < pageSize || uint64(len(paths)) >= results.Total {
			break
		}
	}
	return paths, nil
}

// Count returns the number of indexed notes.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Delete closes the index and removes it from disk. In-memory indexes are
// only closed.
func (i *Index) Delete() error {
	if err := i.index.Close(); err != nil {
		return err
	}
	if i.path == "" {
		return nil
	}
	return os.RemoveAll(i.path)
}
