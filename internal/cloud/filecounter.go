package cloud

import (
	"context"
	"strconv"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cache"
	"github.com/sha1n/mcp-vaultcloud-server/internal/stopwords"
	"github.com/sha1n/mcp-vaultcloud-server/internal/vault"
	"golang.org/x/sync/singleflight"
)

// DefaultMemoSize is the number of analysed notes kept for file-source clouds.
const DefaultMemoSize = 256

// fileCounter analyses single notes on demand. Results are memoized per
// path and modification time, and concurrent requests for the same version
// share one read.
type fileCounter struct {
	store noteReader
	set   stopwords.Set
	memo  *lru.Cache[string, cache.FileEntry]
	group singleflight.Group
	reads atomic.Int64
}

// noteReader is the part of vault.Store the counter needs.
type noteReader interface {
	Read(ctx context.Context, path string) (string, error)
}

func newFileCounter(store noteReader, set stopwords.Set, size int) *fileCounter {
	if size <= 0 {
		size = DefaultMemoSize
	}
	memo, _ := lru.New[string, cache.FileEntry](size)
	return &fileCounter{
		store: store,
		set:   set,
		memo:  memo,
	}
}

func memoKey(doc vault.Document) string {
	return doc.Path + "\x00" + strconv.FormatInt(doc.ModTime.UnixNano(), 10)
}

// Entry returns the analysis of doc at its current modification time.
func (f *fileCounter) Entry(ctx context.Context, doc vault.Document) (cache.FileEntry, error) {
	key := memoKey(doc)
	if entry, ok := f.memo.Get(key); ok {
		return entry, nil
	}

	// The shared read outlives any single caller; each caller stops waiting
	// on its own context.
	readCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		content, err := f.store.Read(readCtx, doc.Path)
		if err != nil {
			return nil, err
		}
		f.reads.Add(1)
		entry := cache.NewEntry(content, f.set, doc.ModTime)
		f.memo.Add(key, entry)
		return entry, nil
	})
	select {
	case <-ctx.Done():
		return cache.FileEntry{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return cache.FileEntry{}, r.Err
		}
		return r.Val.(cache.FileEntry), nil
	}
}
