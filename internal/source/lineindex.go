package source

import "sort"

// LineIndex maps byte offsets to 1-based line/column positions.
// Built once per SourceUnit and shared read-only by rules.
type LineIndex struct {
	// starts[i] is the byte offset of the first byte of line i+1.
	starts []uint
	size   uint
}

// NewLineIndex scans text once and records line start offsets.
func NewLineIndex(text []byte) *LineIndex {
	starts := []uint{0}
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, uint(i)+1)
		}
	}
	return &LineIndex{starts: starts, size: uint(len(text))}
}

// Position converts a byte offset to a 1-based (line, column) pair.
// Offsets past the end of text map to the final position.
func (ix *LineIndex) Position(offset uint) (line, col int) {
	if offset > ix.size {
		offset = ix.size
	}
	i := sort.Search(len(ix.starts), func(i int) bool {
		return ix.starts[i] > offset
	}) - 1
	return i + 1, int(offset-ix.starts[i]) + 1
}

// LineCount returns the number of lines, counting a trailing partial line.
func (ix *LineIndex) LineCount() int {
	return len(ix.starts)
}

// LineSpan returns the span of the 1-based line, excluding its newline.
func (ix *LineIndex) LineSpan(line int) Span {
	if line < 1 || line > len(ix.starts) {
		return Span{}
	}
	start := ix.starts[line-1]
	end := ix.size
	if line < len(ix.starts) {
		end = ix.starts[line] - 1
	}
	return Span{Start: start, End: end}
}
