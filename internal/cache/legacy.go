package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sha1n/mcp-vaultcloud-server/internal/freq"
	"github.com/sha1n/mcp-vaultcloud-server/internal/stopwords"
)

// legacyWords is a word cache record in the unversioned format. Timestamps
// are Unix milliseconds.
type legacyWords struct {
	WithStopwords    freq.Map `json:"withStopwords"`
	WithoutStopwords freq.Map `json:"withoutStopwords"`
	Timestamp        int64    `json:"timestamp"`
}

type legacyState struct {
	Stopwords string                 `json:"stopwords"`
	FileCache map[string]legacyWords `json:"filecache"`
	WordCache legacyWords            `json:"wordCache"`
	Tags      struct {
		Exclude []string `json:"exclude"`
	} `json:"tags"`
}

// migrateLegacy converts an unversioned state file. Per-file records carry no
// tags or links, so they are dropped and recomputed by the next scan. The
// vault snapshot is kept so clouds can be served before that scan finishes.
func migrateLegacy(data []byte) (*State, error) {
	var legacy legacyState
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse legacy state: %w", err)
	}

	state := NewState()
	if legacy.WordCache.Timestamp > 0 {
		state.Snapshot = Snapshot{
			WithStopwords:    orEmpty(legacy.WordCache.WithStopwords),
			WithoutStopwords: orEmpty(legacy.WordCache.WithoutStopwords),
			ComputedAt:       time.UnixMilli(legacy.WordCache.Timestamp).UTC(),
		}
	}
	state.UserStopwords = stopwords.Parse(legacy.Stopwords).Words()
	for _, tag := range legacy.Tags.Exclude {
		if tag != "" {
			state.ExcludedTags = append(state.ExcludedTags, tag)
		}
	}
	return state, nil
}

func orEmpty(m freq.Map) freq.Map {
	if m == nil {
		return freq.Map{}
	}
	return m
}
