// Package report renders run results for the terminal: a compact text
// listing, a JSON document, or unified diffs for report-only fix runs.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/driver"
	"github.com/flint-py/flint/internal/source"
)

var (
	pathColor = color.New(color.Bold)
	codeColor = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

// Text writes one line per diagnostic as `path:line:col CODE message`,
// marking fixable diagnostics with [*] and deferred ones with [pending].
// Returns the number of diagnostics printed.
func Text(w io.Writer, reports []driver.UnitReport) int {
	count := 0
	for _, rep := range reports {
		if rep.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", pathColor.Sprint(rep.Path), rep.Err)
			continue
		}
		if rep.Result == nil {
			continue
		}
		lines := source.NewLineIndex(rep.Result.Text)
		for _, d := range rep.Result.Diagnostics {
			line, col := lines.Position(d.Span.Start)
			marker := ""
			if d.HasFix() {
				marker = " " + dimColor.Sprint("[*]")
			}
			if d.Pending {
				marker = " " + dimColor.Sprint("[pending]")
			}
			fmt.Fprintf(w, "%s:%d:%d %s %s%s\n",
				pathColor.Sprint(rep.Path), line, col,
				codeColor.Sprint(d.Code), d.Message, marker)
			count++
		}
		if rep.Result.Status == diag.StatusMaxIterations {
			fmt.Fprintf(w, "%s: %s\n", pathColor.Sprint(rep.Path),
				dimColor.Sprint("fix loop hit the iteration cap; remaining diagnostics reported as-is"))
		}
	}
	return count
}

// Summary prints the run trailer.
func Summary(w io.Writer, reports []driver.UnitReport, total int) {
	fixed := 0
	cached := 0
	for _, rep := range reports {
		if rep.Result != nil {
			fixed += rep.Result.FixedCount
		}
		if rep.FromCache {
			cached++
		}
	}
	switch {
	case total == 0 && fixed == 0:
		fmt.Fprintln(w, "All checks passed!")
	case fixed > 0:
		fmt.Fprintf(w, "Found %d diagnostics (%d fixed).\n", total+fixed, fixed)
	default:
		fmt.Fprintf(w, "Found %d diagnostics.\n", total)
	}
	if cached > 0 {
		fmt.Fprintf(w, "%d files unchanged since last run (cached).\n", cached)
	}
}
