package rule

import (
	"github.com/flint-py/flint/internal/binding"
	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/source"
)

// Context is the shared read-only view one analysis pass hands to every
// rule: the parsed unit, its binding graph, and the raw lines.
type Context struct {
	Unit     *source.Unit
	Bindings *binding.Result
}

// Rule is the capability interface the invoker dispatches through. A
// rule declares which file kinds it understands and produces zero or
// more diagnostics against the shared view.
type Rule interface {
	Code() string
	Summary() string
	Accepts(kind source.FileKind) bool
	Check(ctx *Context) []diag.Diagnostic
}

// Registry is an immutable table of rules, built once at process start
// and passed by reference into every unit's pipeline. Registration
// order is the tie-break order the fix merger falls back to.
type Registry struct {
	rules []Rule
	index map[string]int
}

// NewRegistry builds a registry from rules in registration order.
// Duplicate codes keep the first registration.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{index: make(map[string]int, len(rules))}
	for _, rl := range rules {
		if _, ok := r.index[rl.Code()]; ok {
			continue
		}
		r.index[rl.Code()] = len(r.rules)
		r.rules = append(r.rules, rl)
	}
	return r
}

// Rules returns the table in registration order. Callers must not
// mutate the returned slice.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// Index returns a code's registration position, or len(rules) for
// unknown codes so they order last.
func (r *Registry) Index(code string) int {
	if i, ok := r.index[code]; ok {
		return i
	}
	return len(r.rules)
}

// Lookup returns the rule registered under code.
func (r *Registry) Lookup(code string) (Rule, bool) {
	i, ok := r.index[code]
	if !ok {
		return nil, false
	}
	return r.rules[i], true
}

// Default returns the built-in rule battery in registration order.
func Default() *Registry {
	return NewRegistry(
		&UnusedImport{},
		&RedefinedWhileUnused{},
		&UndefinedName{},
		&UnusedVariable{},
		&DanglingDeclaration{},
		&UsedPriorGlobalDeclaration{},
		&NoneComparison{},
		&BoolComparison{},
		&TrailingWhitespace{},
		&MissingNewlineAtEOF{},
	)
}
