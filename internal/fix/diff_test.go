package fix

// Test Plan for diff rendering:
// - identical inputs yield an empty diff
// - a removed line shows up with -/+ hunks and the path in both headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedDiffNoChanges(t *testing.T) {
	t.Parallel()

	text, err := UnifiedDiff("a.py", []byte("x = 1\n"), []byte("x = 1\n"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestUnifiedDiffShowsRemoval(t *testing.T) {
	t.Parallel()

	text, err := UnifiedDiff("a.py",
		[]byte("import os\nprint(1)\n"),
		[]byte("print(1)\n"))
	require.NoError(t, err)
	assert.Contains(t, text, "--- a.py")
	assert.Contains(t, text, "+++ a.py")
	assert.Contains(t, text, "-import os")
}
