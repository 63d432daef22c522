package runner

// Test Plan for noqa parsing:
// - bare `# noqa` suppresses every code on its line only
// - `# noqa: CODE` suppresses the named codes, case-insensitively
// - multiple codes split on commas and spaces
// - `# flint: noqa` and `# ruff: noqa` suppress the whole file
// - lines without directives suppress nothing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuppressions(t *testing.T) {
	t.Parallel()

	unit := parseUnit(t, "t.py", `import os  # noqa
import sys  # noqa: F401
import json  # NOQA: F401, E501
x = 1
`)
	sup := parseSuppressions(unit)
	require.False(t, sup.wholeFile)

	assert.True(t, sup.suppressed("F401", 1), "bare noqa covers any code")
	assert.True(t, sup.suppressed("W999", 1))

	assert.True(t, sup.suppressed("F401", 2))
	assert.False(t, sup.suppressed("E501", 2), "only listed codes on line 2")

	assert.True(t, sup.suppressed("f401", 3), "codes compare case-insensitively")
	assert.True(t, sup.suppressed("E501", 3))
	assert.False(t, sup.suppressed("W291", 3))

	assert.False(t, sup.suppressed("F401", 4))
}

func TestFileLevelNoqa(t *testing.T) {
	t.Parallel()

	unit := parseUnit(t, "t.py", "# flint: noqa\nimport os\n")
	sup := parseSuppressions(unit)
	assert.True(t, sup.wholeFile)
	assert.True(t, sup.suppressed("F401", 2))

	unit = parseUnit(t, "t.py", "# ruff: noqa\nimport os\n")
	assert.True(t, parseSuppressions(unit).wholeFile)
}
