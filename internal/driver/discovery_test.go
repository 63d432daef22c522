package driver

// Test Plan for file discovery:
// - directory walks pick up included extensions at any depth
// - excluded directories are pruned, not descended into
// - explicit file arguments bypass the include patterns but still
//   honor excludes
// - duplicates collapse and output is sorted
// - invalid glob patterns fail construction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-py/flint/internal/config"
)

func defaultDiscovery(t *testing.T, root string) *FileDiscovery {
	t.Helper()
	cfg := config.Default()
	fd, err := NewFileDiscovery(root, cfg.Paths.Include, cfg.Paths.Exclude)
	require.NoError(t, err)
	return fd
}

func TestDiscoverWalksDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	top := writeFile(t, root, "top.py", "x = 1\n")
	nested := writeFile(t, root, "pkg/sub/mod.py", "x = 1\n")
	stub := writeFile(t, root, "pkg/mod.pyi", "x: int\n")
	writeFile(t, root, "README.md", "docs\n")

	files, err := defaultDiscovery(t, root).Discover([]string{root})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{top, nested, stub}, files)
}

func TestDiscoverPrunesExcludedDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	keep := writeFile(t, root, "app.py", "x = 1\n")
	writeFile(t, root, "venv/lib.py", "x = 1\n")
	writeFile(t, root, "pkg/__pycache__/mod.py", "x = 1\n")

	files, err := defaultDiscovery(t, root).Discover([]string{root})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestDiscoverExplicitFileBypassesInclude(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	script := writeFile(t, root, "script", "x = 1\n")

	files, err := defaultDiscovery(t, root).Discover([]string{script})
	require.NoError(t, err)
	assert.Equal(t, []string{script}, files)
}

func TestDiscoverExplicitFileHonorsExclude(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	excluded := writeFile(t, root, "venv/lib.py", "x = 1\n")

	files, err := defaultDiscovery(t, root).Discover([]string{excluded})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverDeduplicatesAndSorts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b := writeFile(t, root, "b.py", "x = 1\n")
	a := writeFile(t, root, "a.py", "x = 1\n")

	files, err := defaultDiscovery(t, root).Discover([]string{root, b, root})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}

func TestNewFileDiscoveryRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFileDiscovery(t.TempDir(), []string{"[unclosed"}, nil)
	assert.Error(t, err)
}
