package fix

// Test Plan for fix merging:
// - overlapping hulls defer the later candidate: [10,20) wins over [15,25)
// - identical hulls keep exactly one
// - disjoint fixes are all accepted
// - ties at one offset break on rule-registration order, then code
// - ModeOff accepts nothing; ModeSafe rejects manual fixes; ModeAll
//   accepts both
// - diagnostics without fixes are ignored

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/source"
)

func fixedDiag(code string, start, end uint, app diag.Applicability) diag.Diagnostic {
	return diag.Diagnostic{
		Code: code,
		Span: source.Span{Start: start, End: end},
		Fix: &diag.Fix{
			Edits:         []diag.Edit{{Span: source.Span{Start: start, End: end}}},
			Applicability: app,
		},
	}
}

func TestMergeDefersOverlap(t *testing.T) {
	t.Parallel()

	ds := []diag.Diagnostic{
		fixedDiag("A100", 10, 20, diag.SafeFix),
		fixedDiag("B200", 15, 25, diag.SafeFix),
	}
	plan := Merge(ds, ModeSafe, nil)
	assert.Equal(t, []int{0}, plan.Fixed)
	assert.Equal(t, []int{1}, plan.Deferred)
	require.Len(t, plan.Edits, 1)
	assert.Equal(t, source.Span{Start: 10, End: 20}, plan.Edits[0].Span)
}

func TestMergeIdenticalHullsKeepOne(t *testing.T) {
	t.Parallel()

	ds := []diag.Diagnostic{
		fixedDiag("A100", 5, 12, diag.SafeFix),
		fixedDiag("A100", 5, 12, diag.SafeFix),
	}
	plan := Merge(ds, ModeSafe, nil)
	assert.Len(t, plan.Fixed, 1)
	assert.Len(t, plan.Deferred, 1)
}

func TestMergeAcceptsDisjoint(t *testing.T) {
	t.Parallel()

	ds := []diag.Diagnostic{
		fixedDiag("A100", 30, 40, diag.SafeFix),
		fixedDiag("B200", 0, 10, diag.SafeFix),
		fixedDiag("C300", 10, 20, diag.SafeFix),
	}
	plan := Merge(ds, ModeSafe, nil)
	assert.Len(t, plan.Fixed, 3)
	assert.Empty(t, plan.Deferred)
	// Accepted in ascending start order regardless of input order.
	assert.Equal(t, []int{1, 2, 0}, plan.Fixed)
}

func TestMergeTieBreaksOnRegistrationOrder(t *testing.T) {
	t.Parallel()

	reg := map[string]int{"Z900": 0, "A100": 1}
	index := func(code string) int { return reg[code] }

	ds := []diag.Diagnostic{
		fixedDiag("A100", 10, 20, diag.SafeFix),
		fixedDiag("Z900", 10, 20, diag.SafeFix),
	}
	plan := Merge(ds, ModeSafe, index)
	require.Len(t, plan.Fixed, 1)
	assert.Equal(t, "Z900", ds[plan.Fixed[0]].Code,
		"earlier registration wins the tie")
}

func TestMergeTieBreaksOnCodeWhenOrderEqual(t *testing.T) {
	t.Parallel()

	ds := []diag.Diagnostic{
		fixedDiag("B200", 10, 20, diag.SafeFix),
		fixedDiag("A100", 10, 20, diag.SafeFix),
	}
	plan := Merge(ds, ModeSafe, nil)
	require.Len(t, plan.Fixed, 1)
	assert.Equal(t, "A100", ds[plan.Fixed[0]].Code)
}

func TestMergeModes(t *testing.T) {
	t.Parallel()

	ds := []diag.Diagnostic{
		fixedDiag("A100", 0, 5, diag.SafeFix),
		fixedDiag("B200", 10, 15, diag.ManualFix),
	}

	assert.Empty(t, Merge(ds, ModeOff, nil).Fixed)

	safe := Merge(ds, ModeSafe, nil)
	require.Len(t, safe.Fixed, 1)
	assert.Equal(t, "A100", ds[safe.Fixed[0]].Code)

	all := Merge(ds, ModeAll, nil)
	assert.Len(t, all.Fixed, 2)
}

func TestMergeIgnoresFixlessDiagnostics(t *testing.T) {
	t.Parallel()

	ds := []diag.Diagnostic{
		{Code: "A100", Span: source.Span{Start: 0, End: 5}},
		fixedDiag("B200", 0, 5, diag.SafeFix),
	}
	plan := Merge(ds, ModeSafe, nil)
	assert.Equal(t, []int{1}, plan.Fixed)
	assert.Empty(t, plan.Deferred)
}
