package fix

import (
	"fmt"
	"sort"

	"github.com/flint-py/flint/internal/diag"
)

// Apply splices a non-overlapping edit set into text and returns the
// rewritten bytes. Edits are applied back-to-front so earlier offsets
// stay valid. An edit reaching outside the text is an error, never a
// silent truncation.
func Apply(text []byte, edits []diag.Edit) ([]byte, error) {
	if len(edits) == 0 {
		return text, nil
	}

	sorted := make([]diag.Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Span.Start > sorted[j].Span.Start
	})

	out := make([]byte, len(text))
	copy(out, text)
	for _, e := range sorted {
		if e.Span.End > uint(len(text)) || e.Span.Start > e.Span.End {
			return nil, fmt.Errorf("edit [%d,%d) outside text of %d bytes", e.Span.Start, e.Span.End, len(text))
		}
		var next []byte
		next = append(next, out[:e.Span.Start]...)
		next = append(next, e.NewText...)
		next = append(next, out[e.Span.End:]...)
		out = next
	}
	return out, nil
}
