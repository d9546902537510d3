// Package vault reads notes from a vault directory and extracts their tags
// and links.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotANote is returned when a path is not a scannable note.
var ErrNotANote = errors.New("not a note")

// Document identifies a note and the modification time of its content.
type Document struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// Store lists and reads notes.
type Store interface {
	// List returns every note in a stable order.
	List(ctx context.Context) ([]Document, error)
	// Stat returns the document for one note path.
	Stat(ctx context.Context, path string) (Document, error)
	// Read returns the content of a note. Failures are *ReadError values.
	Read(ctx context.Context, path string) (string, error)
}

// ReadError reports a note that could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// FSStore is a Store backed by a directory on disk.
type FSStore struct {
	root   string
	filter *Filter
}

// NewFSStore creates a store rooted at root.
func NewFSStore(root string, filter *Filter) *FSStore {
	if filter == nil {
		filter = NewFilter(DefaultExcludePatterns, DefaultExtensions, 0)
	}
	return &FSStore{
		root:   root,
		filter: filter,
	}
}

// List walks the vault in lexical order and returns every note.
func (s *FSStore) List(ctx context.Context) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			return nil // Skip entries we cannot stat
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if s.filter.ShouldSkipDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.filter.IsNote(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if s.filter.TooLarge(info.Size()) {
			return nil
		}

		docs = append(docs, Document{
			Path:    relPath,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vault: %w", err)
	}

	return docs, nil
}

// Stat returns the document for path.
func (s *FSStore) Stat(_ context.Context, path string) (Document, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return Document{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return Document{}, &ReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return Document{}, &ReadError{Path: path, Err: ErrNotANote}
	}
	return Document{
		Path:    filepath.ToSlash(filepath.Clean(path)),
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}

// Read returns the content of the note at path.
func (s *FSStore) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	fullPath, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &ReadError{Path: path, Err: ErrNotANote}
	}
	if s.filter.TooLarge(info.Size()) {
		return "", &ReadError{Path: path, Err: fmt.Errorf("file too large (%d bytes)", info.Size())}
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	if IsBinary(content) {
		return "", &ReadError{Path: path, Err: errors.New("binary content")}
	}
	return string(content), nil
}

// resolve validates a vault relative path and joins it onto the root.
func (s *FSStore) resolve(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	rel := filepath.FromSlash(filepath.Clean(path))
	if !s.filter.IsNote(filepath.ToSlash(rel)) {
		return "", &ReadError{Path: path, Err: ErrNotANote}
	}
	fullPath := filepath.Join(s.root, rel)
	root := filepath.Clean(s.root)
	if fullPath != root && !strings.HasPrefix(fullPath, root+string(filepath.Separator)) {
		return "", &ReadError{Path: path, Err: errors.New("path traversal detected")}
	}
	return fullPath, nil
}

// ValidatePath performs security validation on a vault relative path.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleaned := filepath.Clean(path)

	if filepath.IsAbs(cleaned) {
		return fmt.Errorf("absolute paths are not allowed")
	}

	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, `..\`) ||
		strings.Contains(cleaned, "/..") || strings.Contains(cleaned, `\..`) {
		return fmt.Errorf("path traversal is not allowed")
	}

	return nil
}
