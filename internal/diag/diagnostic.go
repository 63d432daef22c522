package diag

import (
	"sort"

	"github.com/flint-py/flint/internal/source"
)

// Applicability tags how a fix may be applied.
type Applicability uint8

const (
	// SafeFix edits never change runtime behavior and apply under the
	// default fix mode.
	SafeFix Applicability = iota
	// ManualFix edits may change behavior; they apply only when the
	// caller opts in explicitly.
	ManualFix
)

func (a Applicability) String() string {
	if a == ManualFix {
		return "manual"
	}
	return "safe"
}

// Edit replaces the bytes covered by Span with NewText. An empty span is
// an insertion; empty NewText is a deletion.
type Edit struct {
	Span    source.Span `msgpack:"span" json:"span"`
	NewText string      `msgpack:"new_text" json:"new_text"`
}

// Fix is an ordered, internally non-overlapping set of edits that
// resolves one diagnostic.
type Fix struct {
	Title         string        `msgpack:"title" json:"title"`
	Edits         []Edit        `msgpack:"edits" json:"edits"`
	Applicability Applicability `msgpack:"applicability" json:"applicability"`
}

// Span returns the hull of the fix's edits, the range the conflict
// resolver schedules against.
func (f *Fix) Span() source.Span {
	if len(f.Edits) == 0 {
		return source.Span{}
	}
	hull := f.Edits[0].Span
	for _, e := range f.Edits[1:] {
		if e.Span.Start < hull.Start {
			hull.Start = e.Span.Start
		}
		if e.Span.End > hull.End {
			hull.End = e.Span.End
		}
	}
	return hull
}

// Note attaches a secondary location to a diagnostic.
type Note struct {
	Span    source.Span `msgpack:"span" json:"span"`
	Message string      `msgpack:"message" json:"message"`
}

// Diagnostic is a single rule violation. Immutable once produced; the
// collector and merger only read it.
type Diagnostic struct {
	Code     string      `msgpack:"code" json:"code"`
	Message  string      `msgpack:"message" json:"message"`
	Severity Severity    `msgpack:"severity" json:"severity"`
	Span     source.Span `msgpack:"span" json:"span"`
	Notes    []Note      `msgpack:"notes,omitempty" json:"notes,omitempty"`
	Fix      *Fix        `msgpack:"fix,omitempty" json:"fix,omitempty"`

	// Pending marks a diagnostic whose fix was deferred because it
	// overlapped an earlier accepted fix in the same pass.
	Pending bool `msgpack:"pending,omitempty" json:"pending,omitempty"`
}

// HasFix reports whether the diagnostic proposes at least one edit.
func (d *Diagnostic) HasFix() bool {
	return d.Fix != nil && len(d.Fix.Edits) > 0
}

// Sort orders diagnostics by start offset, then end, then code. Reports
// and fingerprints rely on this order.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Span.Start != ds[j].Span.Start {
			return ds[i].Span.Start < ds[j].Span.Start
		}
		if ds[i].Span.End != ds[j].Span.End {
			return ds[i].Span.End < ds[j].Span.End
		}
		return ds[i].Code < ds[j].Code
	})
}
