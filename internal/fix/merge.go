// Package fix merges the fixes proposed in one analysis pass into a
// single syntactically coherent edit set and applies it.
package fix

import (
	"sort"

	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/source"
)

// Mode gates which fix applicabilities are accepted.
type Mode int

const (
	ModeOff Mode = iota
	ModeSafe
	ModeAll
)

func (m Mode) String() string {
	switch m {
	case ModeSafe:
		return "safe-only"
	case ModeAll:
		return "safe+unsafe"
	default:
		return "off"
	}
}

// accepts reports whether the mode admits a fix's applicability.
func (m Mode) accepts(a diag.Applicability) bool {
	switch m {
	case ModeSafe:
		return a == diag.SafeFix
	case ModeAll:
		return true
	default:
		return false
	}
}

// Plan is the outcome of one merge pass over a diagnostic set.
type Plan struct {
	// Edits is the flattened, non-overlapping edit set to apply.
	Edits []diag.Edit
	// Fixed holds indices (into the input slice) of diagnostics whose
	// fix was accepted this pass.
	Fixed []int
	// Deferred holds indices of diagnostics whose fix overlapped an
	// earlier accepted one; they stay reported, marked pending.
	Deferred []int
}

type candidate struct {
	index int
	start uint
	order int
	code  string
}

// Merge selects a maximal non-overlapping subset of the fixes in ds
// under the given mode. Candidates are walked in ascending start
// offset; a fix is accepted only if its edit hull does not intersect
// the hull of the last accepted fix. Ties at the same offset break on
// rule-registration order, then lexicographic code. O(n log n) in the
// number of candidates.
//
// Overlapping losers are deferred, not dropped: once this pass's edits
// land their context changes, and they either re-trigger safely on the
// next pass or vanish.
func Merge(ds []diag.Diagnostic, mode Mode, registrationIndex func(code string) int) Plan {
	var plan Plan
	if mode == ModeOff {
		return plan
	}
	if registrationIndex == nil {
		registrationIndex = func(string) int { return 0 }
	}

	var cands []candidate
	for i := range ds {
		if !ds[i].HasFix() || !mode.accepts(ds[i].Fix.Applicability) {
			continue
		}
		cands = append(cands, candidate{
			index: i,
			start: ds[i].Fix.Span().Start,
			order: registrationIndex(ds[i].Code),
			code:  ds[i].Code,
		})
	}
	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].start != cands[b].start {
			return cands[a].start < cands[b].start
		}
		if cands[a].order != cands[b].order {
			return cands[a].order < cands[b].order
		}
		return cands[a].code < cands[b].code
	})

	haveLast := false
	var lastHull source.Span
	for _, c := range cands {
		hull := ds[c.index].Fix.Span()
		if haveLast && hull.Intersects(lastHull) {
			plan.Deferred = append(plan.Deferred, c.index)
			continue
		}
		plan.Fixed = append(plan.Fixed, c.index)
		plan.Edits = append(plan.Edits, ds[c.index].Fix.Edits...)
		lastHull = hull
		haveLast = true
	}
	return plan
}
