package diag

// Status describes how an analysis terminated.
type Status uint8

const (
	// StatusStable means re-analysis produced no further accepted fixes.
	StatusStable Status = iota
	// StatusMaxIterations means the convergence cap (or the cycle guard)
	// stopped the loop; remaining diagnostics are reported as-is.
	StatusMaxIterations
)

func (s Status) String() string {
	if s == StatusMaxIterations {
		return "max-iterations"
	}
	return "stable"
}

// Result is the per-unit outcome: the final diagnostic set, the text
// after any applied fixes, and the termination status. It is the value
// serialized into the result cache.
type Result struct {
	Path        string       `msgpack:"path" json:"path"`
	Diagnostics []Diagnostic `msgpack:"diagnostics" json:"diagnostics"`
	// Text is the possibly-rewritten source. Equal to the input bytes
	// when no fixes were applied.
	Text []byte `msgpack:"text" json:"-"`
	// FixedCount is how many diagnostics were resolved by applied fixes
	// across all passes.
	FixedCount int    `msgpack:"fixed_count" json:"fixed_count"`
	Status     Status `msgpack:"status" json:"status"`
}

// Changed reports whether fixes rewrote the unit.
func (r *Result) Changed(original []byte) bool {
	return string(r.Text) != string(original)
}
