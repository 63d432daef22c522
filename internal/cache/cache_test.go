package cache

// Test Plan for the result cache:
// - Key is a 64-character hex digest, deterministic for equal inputs
// - Key changes with content, settings fingerprint, and executable bit
// - GroupID is stable and 16 hex characters
// - Open creates the root with a CACHEDIR.TAG sentinel
// - Store then Lookup round-trips a result, including via a fresh
//   Cache handle reading the shard from disk
// - groups land in separate shard files
// - a corrupt shard file reads as a miss, never an error
// - concurrent stores and lookups on the same and different shards
//   lose nothing (run with -race)
// - Clean drops every entry but keeps the root usable

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/source"
)

func TestKeyDeterministicAndSensitive(t *testing.T) {
	t.Parallel()

	base := Key([]byte("import os\n"), "select=;ignore=;fix=off", false)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), base)

	assert.Equal(t, base, Key([]byte("import os\n"), "select=;ignore=;fix=off", false))

	assert.NotEqual(t, base, Key([]byte("import sys\n"), "select=;ignore=;fix=off", false),
		"content participates in the key")
	assert.NotEqual(t, base, Key([]byte("import os\n"), "select=F401;ignore=;fix=off", false),
		"settings participate in the key")
	assert.NotEqual(t, base, Key([]byte("import os\n"), "select=;ignore=;fix=off", true),
		"executable bit participates in the key")
}

func TestGroupID(t *testing.T) {
	t.Parallel()

	id := GroupID("pkg/sub")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), id)
	assert.Equal(t, id, GroupID("pkg/sub"))
	assert.NotEqual(t, id, GroupID("pkg/other"))
}

func TestOpenWritesSentinel(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "cache")
	c, err := Open(root, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	body, err := os.ReadFile(filepath.Join(root, sentinelName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "Signature: 8a477f597d28d172789f06886806bc55"))

	info, err := os.Stat(filepath.Join(root, "v1"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func sampleResult(path string) *diag.Result {
	return &diag.Result{
		Path: path,
		Diagnostics: []diag.Diagnostic{{
			Code:     "F401",
			Message:  "`os` imported but unused",
			Severity: diag.SevWarning,
			Span:     source.Span{Start: 7, End: 9},
		}},
		Text:   []byte("import os\n"),
		Status: diag.StatusStable,
	}
}

func TestStoreLookupRoundTrip(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "cache")
	c, err := Open(root, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	key := Key([]byte("import os\n"), "fp", false)
	require.NoError(t, c.Store("pkg", key, sampleResult("pkg/a.py")))

	got, ok := c.Lookup("pkg", key)
	require.True(t, ok)
	assert.Equal(t, "pkg/a.py", got.Path)

	// A fresh handle must read the shard back from disk.
	c2, err := Open(root, slog.Default())
	require.NoError(t, err)
	defer c2.Close()

	got, ok = c2.Lookup("pkg", key)
	require.True(t, ok)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, "F401", got.Diagnostics[0].Code)
	assert.Equal(t, source.Span{Start: 7, End: 9}, got.Diagnostics[0].Span)
	assert.Equal(t, []byte("import os\n"), got.Text)
}

func TestLookupMissesUnknownKey(t *testing.T) {
	t.Parallel()

	c, err := Open(filepath.Join(t.TempDir(), "cache"), slog.Default())
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Lookup("pkg", "nope")
	assert.False(t, ok)
}

func TestGroupsUseSeparateShards(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "cache")
	c, err := Open(root, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Store("pkg/a", "k1", sampleResult("pkg/a/x.py")))
	require.NoError(t, c.Store("pkg/b", "k2", sampleResult("pkg/b/y.py")))

	stats, err := c.Stat()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ShardCount)
	assert.Positive(t, stats.TotalBytes)
}

func TestCorruptShardIsAMiss(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "cache")
	shardPath := filepath.Join(root, "v1", GroupID("pkg")+".mp")
	require.NoError(t, os.MkdirAll(filepath.Dir(shardPath), 0o755))
	require.NoError(t, os.WriteFile(shardPath, []byte("not msgpack"), 0o644))

	c, err := Open(root, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Lookup("pkg", "anything")
	assert.False(t, ok)

	// The shard recovers on the next store.
	require.NoError(t, c.Store("pkg", "k1", sampleResult("pkg/a.py")))
	_, ok = c.Lookup("pkg", "k1")
	assert.True(t, ok)
}

func TestConcurrentStoresAndLookups(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "cache")
	c, err := Open(root, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	groups := []string{"pkg/a", "pkg/b"}
	const workers = 8
	const perWorker = 12

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		group := groups[w%len(groups)]
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				key := Key(fmt.Appendf(nil, "w%d-%d", w, i), "fp", false)
				if err := c.Store(group, key, sampleResult(group+"/x.py")); err != nil {
					return err
				}
				if _, ok := c.Lookup(group, key); !ok {
					return fmt.Errorf("entry %s vanished after store", key)
				}
			}
			return nil
		})
	}
	// Readers hammer both shards while the writers rewrite them. A miss
	// on a key not yet stored is fine; a torn read is not.
	for r := 0; r < 4; r++ {
		g.Go(func() error {
			for w := 0; w < workers; w++ {
				for i := 0; i < perWorker; i++ {
					c.Lookup(groups[w%len(groups)], Key(fmt.Appendf(nil, "w%d-%d", w, i), "fp", false))
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// Every stored entry survives, from this handle and from a fresh
	// one reading the shards back off disk.
	c2, err := Open(root, slog.Default())
	require.NoError(t, err)
	defer c2.Close()
	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			key := Key(fmt.Appendf(nil, "w%d-%d", w, i), "fp", false)
			_, ok := c.Lookup(groups[w%len(groups)], key)
			assert.True(t, ok, "worker %d entry %d", w, i)
			_, ok = c2.Lookup(groups[w%len(groups)], key)
			assert.True(t, ok, "worker %d entry %d from disk", w, i)
		}
	}

	stats, err := c2.Stat()
	require.NoError(t, err)
	assert.Equal(t, len(groups), stats.ShardCount)
}

func TestClean(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "cache")
	c, err := Open(root, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Store("pkg", "k1", sampleResult("pkg/a.py")))
	require.NoError(t, c.Clean())

	_, ok := c.Lookup("pkg", "k1")
	assert.False(t, ok)

	stats, err := c.Stat()
	require.NoError(t, err)
	assert.Zero(t, stats.ShardCount)

	// Still usable after cleaning.
	require.NoError(t, c.Store("pkg", "k2", sampleResult("pkg/b.py")))
	_, ok = c.Lookup("pkg", "k2")
	assert.True(t, ok)
}
