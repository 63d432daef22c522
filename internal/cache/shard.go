package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/flint-py/flint/internal/diag"
)

// Increment when the payload layout changes; older shards then read as
// misses and are rewritten.
const shardSchemaVersion uint16 = 1

// shardPayload is the on-disk form of one shard: a schema version plus
// the unit-key → result map for one analysis-unit grouping.
type shardPayload struct {
	Schema  uint16                  `msgpack:"schema"`
	Entries map[string]*diag.Result `msgpack:"entries"`
}

var errCorrupt = errors.New("malformed shard payload")

// shard is the in-process handle for one shard file. The file is read
// once on first touch; lookups share the lock, and a store rewrites the
// whole file under the write lock via temp-then-rename, so an in-flight
// reader never sees a torn file.
type shard struct {
	path string

	once    sync.Once
	loadErr error

	mu      sync.RWMutex
	entries map[string]*diag.Result
}

func newShard(path string) *shard {
	return &shard{path: path}
}

// ensureLoaded reads the shard file exactly once. Any decode problem
// (malformed payload, wrong schema, partial write) leaves the shard
// empty: a corrupt entry is a miss, never a failure.
func (s *shard) ensureLoaded() error {
	s.once.Do(func() {
		s.entries = make(map[string]*diag.Result)

		f, err := os.Open(s.path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.loadErr = err
			}
			return
		}
		defer f.Close()

		var payload shardPayload
		if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
			s.loadErr = errCorrupt
			return
		}
		if payload.Schema != shardSchemaVersion {
			s.loadErr = errCorrupt
			return
		}
		if payload.Entries != nil {
			s.entries = payload.Entries
		}
	})
	return s.loadErr
}

func (s *shard) lookup(key string) (*diag.Result, bool) {
	if err := s.ensureLoaded(); err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.entries[key]
	return r, ok
}

// store inserts the entry and atomically rewrites the shard file.
func (s *shard) store(key string, result *diag.Result) error {
	if err := s.ensureLoaded(); err != nil && !errors.Is(err, errCorrupt) {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = result

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating shard directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tmp-shard-*")
	if err != nil {
		return fmt.Errorf("creating temp shard: %w", err)
	}
	defer os.Remove(tmp.Name())

	payload := shardPayload{Schema: shardSchemaVersion, Entries: s.entries}
	if err := msgpack.NewEncoder(tmp).Encode(&payload); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding shard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// Atomic replace: concurrent readers see the old file or the new
	// one, never a partial write.
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing shard: %w", err)
	}
	return nil
}
