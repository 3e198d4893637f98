package discover

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of files a SourceCache keeps by default.
const DefaultCacheSize = 512

type cachedSource struct {
	modTime time.Time
	size    int64
	data    []byte
}

// SourceCache reads files through a bounded LRU keyed by path. An entry is
// reused only while the file's size and modification time are unchanged.
// It is safe for concurrent use.
type SourceCache struct {
	cache *lru.Cache[string, cachedSource]
}

// NewSourceCache creates a cache holding up to size files.
func NewSourceCache(size int) (*SourceCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedSource](size)
	if err != nil {
		return nil, fmt.Errorf("create source cache: %w", err)
	}
	return &SourceCache{cache: cache}, nil
}

// ReadFile returns the contents of path.
func (c *SourceCache) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if entry, ok := c.cache.Get(path); ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		return entry.data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, cachedSource{modTime: info.ModTime(), size: info.Size(), data: data})
	return data, nil
}

// Invalidate drops path from the cache.
func (c *SourceCache) Invalidate(path string) {
	c.cache.Remove(path)
}

// Len returns the number of cached files.
func (c *SourceCache) Len() int { return c.cache.Len() }
