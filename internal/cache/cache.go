// Package cache wraps the per-unit analysis pipeline behind a
// content-addressed lookup/store. Results are persisted in one shard
// file per analysis-unit grouping so touching one file never rewrites a
// monolithic index; staleness is purely structural (a key embeds the
// content, settings, and permission bit) and never time-based.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/maypok86/otter"

	"github.com/flint-py/flint/internal/diag"
)

// sentinelName marks the cache root so backup and VCS tooling can
// recognize and skip it.
const sentinelName = "CACHEDIR.TAG"

const sentinelBody = "Signature: 8a477f597d28d172789f06886806bc55\n" +
	"# This directory is a cache managed by flint; its contents may be deleted.\n"

const frontCapacity = 4096

// Cache is the on-disk result cache plus a bounded in-memory front.
// It is the only shared mutable resource of a run: many workers call
// Lookup and Store concurrently, shards serialize their own writes, and
// no lock is held across another shard's I/O.
type Cache struct {
	root   string
	logger *slog.Logger

	mu     sync.Mutex
	shards map[string]*shard

	front otter.Cache[string, *diag.Result]
}

// Open prepares the cache root, writes the sentinel marker, and returns
// a handle. If root is empty, the cache lives under .flint/cache in the
// project directory.
func Open(root string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(root, "v1"), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root: %w", err)
	}
	sentinel := filepath.Join(root, sentinelName)
	if _, err := os.Stat(sentinel); os.IsNotExist(err) {
		if err := os.WriteFile(sentinel, []byte(sentinelBody), 0o644); err != nil {
			return nil, fmt.Errorf("writing cache sentinel: %w", err)
		}
	}

	front, err := otter.MustBuilder[string, *diag.Result](frontCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("building front cache: %w", err)
	}

	return &Cache{
		root:   root,
		logger: logger,
		shards: make(map[string]*shard),
		front:  front,
	}, nil
}

// DefaultRoot returns the cache location under a project directory.
func DefaultRoot(projectDir string) string {
	return filepath.Join(projectDir, ".flint", "cache")
}

// shardFor returns the handle for a grouping, creating it on first use.
// The registry lock covers only the map, never shard I/O.
func (c *Cache) shardFor(group string) *shard {
	name := GroupID(group) + ".mp"
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.shards[name]
	if !ok {
		s = newShard(filepath.Join(c.root, "v1", name))
		c.shards[name] = s
	}
	return s
}

// Lookup returns the cached result for a unit key, or nil on a miss.
// Corruption is logged at low severity and surfaces as a miss.
func (c *Cache) Lookup(group, key string) (*diag.Result, bool) {
	if r, ok := c.front.Get(key); ok {
		return r, true
	}
	s := c.shardFor(group)
	r, ok := s.lookup(key)
	if !ok {
		if err := s.loadErr; err != nil {
			c.logger.Debug("cache shard unreadable, treating as miss",
				"group", group, "error", err)
		}
		return nil, false
	}
	c.front.Set(key, r)
	return r, true
}

// Store persists a result under the unit key, rewriting the grouping's
// shard atomically.
func (c *Cache) Store(group, key string, result *diag.Result) error {
	c.front.Set(key, result)
	if err := c.shardFor(group).store(key, result); err != nil {
		return fmt.Errorf("storing cache entry for group %q: %w", group, err)
	}
	return nil
}

// Close releases the in-memory front.
func (c *Cache) Close() {
	c.front.Close()
}

// Stats summarizes the on-disk cache for `flint cache info`.
type Stats struct {
	Root       string
	ShardCount int
	TotalBytes int64
}

// Stat walks the shard directory.
func (c *Cache) Stat() (Stats, error) {
	st := Stats{Root: c.root}
	dir := filepath.Join(c.root, "v1")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".mp" {
			continue
		}
		st.ShardCount++
		if info, err := e.Info(); err == nil {
			st.TotalBytes += info.Size()
		}
	}
	return st, nil
}

// Clean removes every shard but keeps the root and sentinel in place.
func (c *Cache) Clean() error {
	c.mu.Lock()
	c.shards = make(map[string]*shard)
	c.mu.Unlock()
	c.front.Clear()
	if err := os.RemoveAll(filepath.Join(c.root, "v1")); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(c.root, "v1"), 0o755)
}
