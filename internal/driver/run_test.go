package driver

// Test Plan for the multi-unit runner:
// - reports come back in input order with per-unit results
// - a second identical run is served from the cache
// - editing a file invalidates only its own cache entry
// - Write mode rewrites fixed files in place, preserving permissions
// - Write mode lands cached rewrites on disk even on a cache hit
// - per-path overrides disable rules through the enabled set
// - unreadable paths produce a report error without aborting the run

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-py/flint/internal/cache"
	"github.com/flint-py/flint/internal/config"
	"github.com/flint-py/flint/internal/fix"
	"github.com/flint-py/flint/internal/rule"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newRunner(t *testing.T, root string, c *cache.Cache, mode fix.Mode, write bool) *Runner {
	t.Helper()
	return &Runner{
		RootDir:  root,
		Config:   config.Default(),
		Registry: rule.Default(),
		Cache:    c,
		Mode:     mode,
		Write:    write,
		Jobs:     2,
		Logger:   slog.Default(),
	}
}

func TestRunReportsInInputOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a.py", "import os\nprint(1)\n")
	b := writeFile(t, root, "b.py", "print(2)\n")

	r := newRunner(t, root, nil, fix.ModeOff, false)
	reports, err := r.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, a, reports[0].Path)
	require.NotNil(t, reports[0].Result)
	require.Len(t, reports[0].Result.Diagnostics, 1)
	assert.Equal(t, "F401", reports[0].Result.Diagnostics[0].Code)

	assert.Equal(t, b, reports[1].Path)
	assert.Empty(t, reports[1].Result.Diagnostics)
}

func TestRunUsesCacheOnSecondPass(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a.py", "import os\nprint(1)\n")
	b := writeFile(t, root, "pkg/b.py", "print(2)\n")

	c, err := cache.Open(cache.DefaultRoot(root), slog.Default())
	require.NoError(t, err)
	defer c.Close()

	r := newRunner(t, root, c, fix.ModeOff, false)

	first, err := r.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.False(t, first[0].FromCache)
	assert.False(t, first[1].FromCache)

	second, err := r.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.True(t, second[0].FromCache)
	assert.True(t, second[1].FromCache)
	assert.Equal(t, first[0].Result.Diagnostics, second[0].Result.Diagnostics)
}

func TestRunEditInvalidatesOneEntry(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a.py", "import os\nprint(1)\n")
	b := writeFile(t, root, "b.py", "print(2)\n")

	c, err := cache.Open(cache.DefaultRoot(root), slog.Default())
	require.NoError(t, err)
	defer c.Close()

	r := newRunner(t, root, c, fix.ModeOff, false)
	_, err = r.Run(context.Background(), []string{a, b})
	require.NoError(t, err)

	writeFile(t, root, "a.py", "print(3)\n")

	reports, err := r.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.False(t, reports[0].FromCache, "edited file re-analyzes")
	assert.True(t, reports[1].FromCache, "untouched file stays cached")
	assert.Empty(t, reports[0].Result.Diagnostics)
}

func TestRunWriteModeRewritesFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a.py", "import os\nprint(1)")
	require.NoError(t, os.Chmod(a, 0o755))

	r := newRunner(t, root, nil, fix.ModeSafe, true)
	reports, err := r.Run(context.Background(), []string{a})
	require.NoError(t, err)
	require.NoError(t, reports[0].Err)

	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", string(got))

	info, err := os.Stat(a)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestRunWriteModeRewritesOnCacheHit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "a.py", "import os\nprint(1)")

	c, err := cache.Open(cache.DefaultRoot(root), slog.Default())
	require.NoError(t, err)
	defer c.Close()

	// Diff-style run: fixes computed and cached, disk untouched.
	diffRun := newRunner(t, root, c, fix.ModeSafe, false)
	_, err = diffRun.Run(context.Background(), []string{a})
	require.NoError(t, err)

	got, err := os.ReadFile(a)
	require.NoError(t, err)
	require.Equal(t, "import os\nprint(1)", string(got), "diff run leaves the file alone")

	// The write run hits the key the diff run primed; it must still
	// land the cached rewrite on disk.
	writeRun := newRunner(t, root, c, fix.ModeSafe, true)
	reports, err := writeRun.Run(context.Background(), []string{a})
	require.NoError(t, err)
	require.NoError(t, reports[0].Err)
	assert.True(t, reports[0].FromCache)

	got, err = os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", string(got))
}

func TestRunHonorsPerPathOverrides(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeFile(t, root, "legacy/a.py", "import os\nprint(1)\n")

	cfg := config.Default()
	cfg.Overrides = []config.Override{{Path: "legacy/**", Ignore: []string{"F401"}}}

	r := newRunner(t, root, nil, fix.ModeOff, false)
	r.Config = cfg

	reports, err := r.Run(context.Background(), []string{a})
	require.NoError(t, err)
	assert.Empty(t, reports[0].Result.Diagnostics)
}

func TestRunReportsUnreadablePath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b := writeFile(t, root, "b.py", "print(2)\n")

	r := newRunner(t, root, nil, fix.ModeOff, false)
	reports, err := r.Run(context.Background(), []string{filepath.Join(root, "missing.py"), b})
	require.NoError(t, err)

	assert.Error(t, reports[0].Err)
	assert.NoError(t, reports[1].Err)
	require.NotNil(t, reports[1].Result)
}
