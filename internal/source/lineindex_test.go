package source

// Test Plan for LineIndex:
// - Position maps offsets to 1-based line/column pairs
// - Offsets on a newline belong to the line that ends there
// - Offsets past EOF clamp to the final position
// - LineSpan excludes the trailing newline and handles the last line
// - Empty text still yields one line

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineIndexPosition(t *testing.T) {
	t.Parallel()

	ix := NewLineIndex([]byte("abc\ndef\n\nxyz"))

	tests := []struct {
		name   string
		offset uint
		line   int
		col    int
	}{
		{name: "start of file", offset: 0, line: 1, col: 1},
		{name: "middle of first line", offset: 2, line: 1, col: 3},
		{name: "newline belongs to its line", offset: 3, line: 1, col: 4},
		{name: "start of second line", offset: 4, line: 2, col: 1},
		{name: "empty line", offset: 8, line: 3, col: 1},
		{name: "last line", offset: 10, line: 4, col: 2},
		{name: "past EOF clamps", offset: 99, line: 4, col: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			line, col := ix.Position(tt.offset)
			assert.Equal(t, tt.line, line)
			assert.Equal(t, tt.col, col)
		})
	}
}

func TestLineIndexLineSpan(t *testing.T) {
	t.Parallel()

	ix := NewLineIndex([]byte("abc\ndef\n\nxyz"))

	assert.Equal(t, 4, ix.LineCount())
	assert.Equal(t, Span{Start: 0, End: 3}, ix.LineSpan(1), "newline excluded")
	assert.Equal(t, Span{Start: 8, End: 8}, ix.LineSpan(3), "empty line")
	assert.Equal(t, Span{Start: 9, End: 12}, ix.LineSpan(4), "unterminated last line")
	assert.Equal(t, Span{}, ix.LineSpan(0))
	assert.Equal(t, Span{}, ix.LineSpan(5))
}

func TestLineIndexEmptyText(t *testing.T) {
	t.Parallel()

	ix := NewLineIndex(nil)
	assert.Equal(t, 1, ix.LineCount())
	line, col := ix.Position(0)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)
}
