package vault

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludePatterns contains vault paths that never hold user notes:
// application config, trash, version control and our own data directory.
var DefaultExcludePatterns = []string{
	".obsidian/**",
	".trash/**",
	".git/**",
	".vaultcloud/**",
	"**/node_modules/**",
	"**/.DS_Store",
}

// dirProbe is a child name used to test whether a pattern covers a directory.
const dirProbe = "__vaultcloud_probe__"

// DefaultExtensions lists the note file extensions that are scanned.
var DefaultExtensions = []string{".md"}

// Filter decides which vault files are notes worth scanning.
type Filter struct {
	patterns    []string
	extensions  []string
	maxFileSize int64
}

// NewFilter creates a Filter. Patterns are doublestar globs relative to the
// vault root; an empty extension list falls back to DefaultExtensions.
// Invalid patterns are dropped.
func NewFilter(patterns, extensions []string, maxFileSize int64) *Filter {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" || !doublestar.ValidatePattern(p) {
			continue
		}
		valid = append(valid, p)
	}

	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	if len(exts) == 0 {
		exts = slices.Clone(DefaultExtensions)
	}

	return &Filter{
		patterns:    valid,
		extensions:  exts,
		maxFileSize: maxFileSize,
	}
}

// ShouldExclude returns true if relPath matches any exclusion pattern.
// The path must be relative to the vault root.
func (f *Filter) ShouldExclude(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range f.patterns {
		if doublestar.MatchUnvalidated(pattern, relPath) {
			return true
		}
	}
	return false
}

// ShouldSkipDir reports whether a whole directory can be pruned from a walk.
// A directory is skipped when anything inside it would be excluded.
func (f *Filter) ShouldSkipDir(relDir string) bool {
	relDir = filepath.ToSlash(relDir)
	if relDir == "." || relDir == "" {
		return false
	}
	return f.ShouldExclude(relDir) || f.ShouldExclude(relDir+"/"+dirProbe)
}

// IsNote reports whether relPath has a note extension and is not excluded.
func (f *Filter) IsNote(relPath string) bool {
	ext := strings.ToLower(filepath.Ext(relPath))
	if !slices.Contains(f.extensions, ext) {
		return false
	}
	return !f.ShouldExclude(relPath)
}

// MaxFileSize returns the size limit for scanned notes. Zero means no limit.
func (f *Filter) MaxFileSize() int64 {
	return f.maxFileSize
}

// TooLarge reports whether size exceeds the configured limit.
func (f *Filter) TooLarge(size int64) bool {
	return f.maxFileSize > 0 && size > f.maxFileSize
}

// IsBinary checks if the content appears to be binary by looking for null bytes
// in the first 512 bytes.
func IsBinary(content []byte) bool {
	checkLen := min(len(content), 512)

	for i := range checkLen {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
