// Package cache keeps the artifacts of previous builds so that unchanged
// assets skip their stages on the next build.
//
// Entries are keyed by a digest of everything that determines a stage
// pipeline's output (see the builder for the key). The working set is an
// LRU; Save persists it as zstd-compressed deterministic CBOR.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/digest"
	"github.com/vk/assetgraph/internal/srcfs"
)

// formatVersion changes whenever the file layout does. Files with another
// version are discarded.
const formatVersion = 1

// DefaultSize is the number of artifacts kept when no size is given.
const DefaultSize = 4096

type file struct {
	Version int      `cbor:"version"`
	Entries []record `cbor:"entries"`
}

type record struct {
	Key  digest.Hash `cbor:"key"`
	Path string      `cbor:"path"`
	Kind asset.Kind  `cbor:"kind"`
	Data []byte      `cbor:"data"`
}

// Cache is a concurrency-safe artifact cache.
type Cache struct {
	fs      billy.Filesystem
	name    string
	entries *lru.Cache[digest.Hash, *asset.Artifact]

	dirty  atomic.Bool
	hits   atomic.Int64
	misses atomic.Int64
}

// New returns an empty in-memory cache. If fsys is nil, Save is a no-op.
func New(fsys billy.Filesystem, name string, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[digest.Hash, *asset.Artifact](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Cache{fs: fsys, name: name, entries: entries}, nil
}

// Open loads the cache file name from fsys. A missing file yields an empty
// cache; an unreadable or outdated one is discarded with a warning.
func Open(ctx context.Context, fsys billy.Filesystem, name string, size int) (*Cache, error) {
	logger := ctxlog.FromContext(ctx)

	c, err := New(fsys, name, size)
	if err != nil {
		return nil, err
	}

	data, err := srcfs.ReadFile(fsys, name)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("No cache file yet, starting empty.", "file", name)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache %s: %w", name, err)
	}

	f, err := decode(data)
	if err != nil {
		logger.Warn("Discarding unreadable cache file.", "file", name, "error", err)
		return c, nil
	}
	if f.Version != formatVersion {
		logger.Warn("Discarding cache file with another format version.", "file", name, "version", f.Version)
		return c, nil
	}

	for _, r := range f.Entries {
		c.entries.Add(r.Key, &asset.Artifact{Path: r.Path, Kind: r.Kind, Data: r.Data})
	}
	logger.Debug("Cache loaded.", "file", name, "entries", c.entries.Len())
	return c, nil
}

// Get returns the artifact stored under key.
func (c *Cache) Get(key digest.Hash) (*asset.Artifact, bool) {
	a, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return a, ok
}

// Put stores an artifact under key.
func (c *Cache) Put(key digest.Hash, a *asset.Artifact) {
	c.entries.Add(key, a)
	c.dirty.Store(true)
}

// Len returns the number of cached artifacts.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns the hit and miss counts since the cache was opened.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Save writes the cache file if anything was added since it was opened or
// last saved. Entries are written least recently used first so that
// reloading preserves eviction order.
func (c *Cache) Save(ctx context.Context) error {
	if c.fs == nil || !c.dirty.Load() {
		return nil
	}

	f := &file{Version: formatVersion}
	for _, key := range c.entries.Keys() {
		a, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		f.Entries = append(f.Entries, record{Key: key, Path: a.Path, Kind: a.Kind, Data: a.Data})
	}

	data, err := encode(f)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := srcfs.WriteFileAtomic(c.fs, c.name, data); err != nil {
		return fmt.Errorf("failed to write cache %s: %w", c.name, err)
	}
	c.dirty.Store(false)
	ctxlog.FromContext(ctx).Debug("Cache saved.", "file", c.name, "entries", len(f.Entries))
	return nil
}
