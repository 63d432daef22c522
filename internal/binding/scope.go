package binding

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flint-py/flint/internal/source"
)

// ScopeKind classifies the lexical regions Python creates.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeClass
	ScopeFunction
	ScopeLambda
	ScopeComprehension
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	case ScopeLambda:
		return "lambda"
	case ScopeComprehension:
		return "comprehension"
	default:
		return "module"
	}
}

// ScopeID addresses a scope inside the arena. Parent/child links are
// index pairs, so the scope graph carries no owning cycles.
type ScopeID int

// NoScope is the parent of the module scope.
const NoScope ScopeID = -1

// Scope owns the bindings of one lexical region. The parent link is a
// back-reference by index, not ownership.
type Scope struct {
	Kind     ScopeKind
	Parent   ScopeID
	Children []ScopeID
	Node     *sitter.Node

	// bindings holds the live binding per name; order preserves every
	// binding ever created here for deterministic fact iteration.
	bindings map[string]*Binding
	order    []*Binding

	// globals and nonlocals record declared names.
	globals   map[string]struct{}
	nonlocals map[string]struct{}

	// firstUse records where a name was first read in this scope,
	// consulted when a later global/nonlocal declaration arrives.
	firstUse map[string]source.Span

	// usesStar is set by `from m import *`; it damps undefined-name
	// facts for everything resolved through this scope.
	usesStar bool
}

func newScope(kind ScopeKind, parent ScopeID, node *sitter.Node) *Scope {
	return &Scope{
		Kind:      kind,
		Parent:    parent,
		Node:      node,
		bindings:  make(map[string]*Binding),
		globals:   make(map[string]struct{}),
		nonlocals: make(map[string]struct{}),
		firstUse:  make(map[string]source.Span),
	}
}

// Lookup returns the live binding for name in this scope, if any.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	b, ok := s.bindings[name]
	return b, ok
}

// Bindings returns every binding created in this scope, in source order.
func (s *Scope) Bindings() []*Binding {
	return s.order
}

// DeclaredGlobal reports whether name was declared global here.
func (s *Scope) DeclaredGlobal(name string) bool {
	_, ok := s.globals[name]
	return ok
}

// DeclaredNonlocal reports whether name was declared nonlocal here.
func (s *Scope) DeclaredNonlocal(name string) bool {
	_, ok := s.nonlocals[name]
	return ok
}
