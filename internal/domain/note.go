package domain

// NoteDocument represents a vault note in the Bleve search index.
// The body is indexed as its distinct words rather than raw text so the index
// can be rebuilt from the per-file cache without rereading notes.
type NoteDocument struct {
	// Path is the note path relative to the vault root, e.g. "projects/Plan.md".
	// It doubles as the document ID.
	Path string `json:"path"`

	// Title is the note name without folder and extension.
	Title string `json:"title"`

	// Tags are the lowercased note tags without '#'.
	Tags []string `json:"tags"`

	// Links are the raw outgoing link targets.
	Links []string `json:"links"`

	// Words is the space separated set of normalized words in the note.
	Words string `json:"words"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	NoteFieldPath  = "path"
	NoteFieldTitle = "title"
	NoteFieldTags  = "tags"
	NoteFieldLinks = "links"
	NoteFieldWords = "words"
)
