package cache

import (
	"time"

	"github.com/sha1n/mcp-vaultcloud-server/internal/freq"
	"github.com/sha1n/mcp-vaultcloud-server/internal/stopwords"
	"github.com/sha1n/mcp-vaultcloud-server/internal/text"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
)

// NewEntry analyses raw note content. The filtered map drops every word in
// set. mtime is the note modification time the content was read at.
func NewEntry(content string, set stopwords.Set, mtime time.Time) FileEntry {
	words := freq.Count(text.Normalize(content))
	meta := vault.ExtractMetadata(content)
	return FileEntry{
		WithStopwords:    words,
		WithoutStopwords: stopwords.Remove(words, set),
		Tags:             meta.Tags,
		Links:            meta.Links,
		SourceTimestamp:  mtime,
	}
}
