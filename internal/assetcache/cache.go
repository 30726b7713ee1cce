package assetcache

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/drgolem/sfxmanager/internal/assetpath"
	"github.com/drgolem/sfxmanager/pkg/decoders"
	"github.com/drgolem/sfxmanager/pkg/types"
)

// Entry is a decoded asset.
type Entry struct {
	Format types.AudioFormat
	Buffer *types.SampleBuffer
}

// Cache maps normalized asset paths to decoded audio.
//
// Entries live for the lifetime of the Cache: there is no eviction, size
// bound or invalidation when the file changes on disk.
type Cache struct {
	load   decoders.LoadFunc
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

// New creates an empty cache that reads assets with load.
func New(load decoders.LoadFunc, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		load:    load,
		logger:  logger,
		entries: make(map[string]Entry),
	}
}

// Resolve returns the format and samples for path.
//
// With reuse set, a cached entry is returned without touching storage and a
// miss loads the asset and stores it. Without reuse the asset is always
// loaded and the cache is neither consulted nor modified.
// A failed load never creates an entry.
func (c *Cache) Resolve(path string, reuse bool) (types.AudioFormat, *types.SampleBuffer, error) {
	if !reuse {
		return c.load(path)
	}

	key := assetpath.Normalize(path)

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return e.Format, e.Buffer, nil
	}

	format, buf, err := c.load(path)
	if err != nil {
		return types.AudioFormat{}, nil, err
	}

	e = c.store(key, Entry{Format: format, Buffer: buf})
	c.logger.Debug("Asset cached", "path", key, "bytes", len(e.Buffer.Data))
	return e.Format, e.Buffer, nil
}

// store adds e under key unless another entry got there first, and returns
// the entry that ends up cached.
func (c *Cache) store(key string, e Entry) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = e
	return e
}

// Preload loads paths into the cache with at most limit concurrent loads.
// Paths already cached are skipped. The first load error cancels the
// remaining work and is returned; entries loaded before it stay cached.
func (c *Cache) Preload(ctx context.Context, paths []string, limit int) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if c.Contains(path) {
				return nil
			}
			format, buf, err := c.load(path)
			if err != nil {
				return err
			}
			c.store(assetpath.Normalize(path), Entry{Format: format, Buffer: buf})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	c.logger.Debug("Assets preloaded", "count", len(paths), "cached", c.Len())
	return nil
}

// Contains reports whether path has a cached entry.
func (c *Cache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[assetpath.Normalize(path)]
	return ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
