package source

// Span is a half-open byte range [Start, End) into a unit's text.
type Span struct {
	Start uint `msgpack:"start" json:"start"`
	End   uint `msgpack:"end" json:"end"`
}

// NewSpan builds a span, swapping the endpoints if they arrive reversed.
func NewSpan(start, end uint) Span {
	if end < start {
		start, end = end, start
	}
	return Span{Start: start, End: end}
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() uint {
	return s.End - s.Start
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset uint) bool {
	return offset >= s.Start && offset < s.End
}

// Intersects reports whether two spans share at least one byte, or touch
// at a shared boundary when either is empty. Insertions (empty spans) at
// the same offset as another edit must still count as a conflict.
func (s Span) Intersects(o Span) bool {
	if s.Start == o.Start {
		return true
	}
	return s.Start < o.End && o.Start < s.End
}

// CoveredBy reports whether s lies entirely within o.
func (s Span) CoveredBy(o Span) bool {
	return o.Start <= s.Start && s.End <= o.End
}
