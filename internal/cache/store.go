package cache

import (
	"os"
)

// Store loads and saves the persisted state.
type Store interface {
	Load() (*State, error)
	Save(state *State) error
}

// FileStore keeps the state in a JSON file.
type FileStore struct {
	path       string
	legacyPath string
}

// NewFileStore creates a store at path. When path does not exist yet and
// legacyPath does, the first Load migrates the legacy file. Saves always go
// to path.
func NewFileStore(path, legacyPath string) *FileStore {
	return &FileStore{path: path, legacyPath: legacyPath}
}

// Path returns the state file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the state, or returns a new one if no file exists.
func (f *FileStore) Load() (*State, error) {
	if f.legacyPath != "" {
		if _, err := os.Stat(f.path); os.IsNotExist(err) {
			if _, err := os.Stat(f.legacyPath); err == nil {
				return LoadState(f.legacyPath)
			}
		}
	}
	return LoadState(f.path)
}

// Save writes the state atomically.
func (f *FileStore) Save(state *State) error {
	return state.Save(f.path)
}
