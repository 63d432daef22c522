package runner

// Test Plan for the collector:
// - diagnostics come back sorted by start offset regardless of rule
//   evaluation order
// - exact duplicates (code + range) from overlapping rules collapse
// - a panicking rule yields one crash diagnostic, other rules unharmed
// - the enabled set filters rules; nil enables everything
// - rules that do not accept the unit's kind are skipped
// - noqa directives suppress by line and code

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/rule"
	"github.com/flint-py/flint/internal/source"
)

// stubRule emits a fixed diagnostic set, optionally panicking first.
type stubRule struct {
	code   string
	kinds  func(source.FileKind) bool
	emit   []diag.Diagnostic
	panics bool
}

func (r *stubRule) Code() string    { return r.code }
func (r *stubRule) Summary() string { return "stub" }
func (r *stubRule) Accepts(kind source.FileKind) bool {
	if r.kinds == nil {
		return true
	}
	return r.kinds(kind)
}
func (r *stubRule) Check(*rule.Context) []diag.Diagnostic {
	if r.panics {
		panic("boom")
	}
	return r.emit
}

func parseUnit(t *testing.T, path, src string) *source.Unit {
	t.Helper()
	unit, err := source.NewUnit(path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(unit.Close)
	return unit
}

func TestCollectSortsDiagnostics(t *testing.T) {
	t.Parallel()

	late := &stubRule{code: "T100", emit: []diag.Diagnostic{
		{Code: "T100", Span: source.Span{Start: 8, End: 9}},
	}}
	early := &stubRule{code: "T200", emit: []diag.Diagnostic{
		{Code: "T200", Span: source.Span{Start: 0, End: 1}},
	}}
	c := NewCollector(rule.NewRegistry(late, early), nil, slog.Default())

	ds := c.Collect(parseUnit(t, "t.py", "x = 1\ny = 2\n"))
	require.Len(t, ds, 2)
	assert.Equal(t, "T200", ds[0].Code)
	assert.Equal(t, "T100", ds[1].Code)
}

func TestCollectDeduplicates(t *testing.T) {
	t.Parallel()

	d := diag.Diagnostic{Code: "T100", Span: source.Span{Start: 0, End: 1}}
	a := &stubRule{code: "T100", emit: []diag.Diagnostic{d, d}}
	c := NewCollector(rule.NewRegistry(a), nil, slog.Default())

	ds := c.Collect(parseUnit(t, "t.py", "x = 1\n"))
	assert.Len(t, ds, 1)
}

func TestCollectIsolatesPanickingRule(t *testing.T) {
	t.Parallel()

	broken := &stubRule{code: "T100", panics: true}
	healthy := &stubRule{code: "T200", emit: []diag.Diagnostic{
		{Code: "T200", Span: source.Span{Start: 2, End: 3}},
	}}
	c := NewCollector(rule.NewRegistry(broken, healthy), nil, slog.Default())

	ds := c.Collect(parseUnit(t, "t.py", "x = 1\n"))
	require.Len(t, ds, 2)
	assert.Equal(t, CrashCode, ds[0].Code)
	assert.Contains(t, ds[0].Message, "T100")
	assert.Equal(t, "T200", ds[1].Code)
}

func TestCollectHonorsEnabledSet(t *testing.T) {
	t.Parallel()

	a := &stubRule{code: "T100", emit: []diag.Diagnostic{{Code: "T100"}}}
	b := &stubRule{code: "T200", emit: []diag.Diagnostic{{Code: "T200"}}}
	enabled := map[string]struct{}{"T200": {}}
	c := NewCollector(rule.NewRegistry(a, b), enabled, slog.Default())

	ds := c.Collect(parseUnit(t, "t.py", "x = 1\n"))
	require.Len(t, ds, 1)
	assert.Equal(t, "T200", ds[0].Code)
}

func TestCollectSkipsNonAcceptingRules(t *testing.T) {
	t.Parallel()

	stubOnly := &stubRule{
		code:  "T100",
		kinds: func(k source.FileKind) bool { return k == source.KindStub },
		emit:  []diag.Diagnostic{{Code: "T100"}},
	}
	c := NewCollector(rule.NewRegistry(stubOnly), nil, slog.Default())

	assert.Empty(t, c.Collect(parseUnit(t, "t.py", "x = 1\n")))
	assert.Len(t, c.Collect(parseUnit(t, "t.pyi", "x = 1\n")), 1)
}

func TestCollectAppliesNoqa(t *testing.T) {
	t.Parallel()

	unit := parseUnit(t, "t.py", "import os  # noqa: F401\nimport sys\n")
	c := NewCollector(rule.Default(), nil, slog.Default())

	ds := c.Collect(unit)
	require.Len(t, ds, 1)
	assert.Equal(t, "F401", ds[0].Code)
	assert.Contains(t, ds[0].Message, "`sys`")
}
