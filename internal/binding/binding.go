package binding

import (
	"github.com/flint-py/flint/internal/source"
)

// BindKind classifies how a name came to exist.
type BindKind int

const (
	BindImport BindKind = iota
	BindFunctionDef
	BindClassDef
	BindAssignment
	BindParameter
	BindGlobalDecl
	BindNonlocalDecl
	BindDeletion
)

func (k BindKind) String() string {
	switch k {
	case BindImport:
		return "import"
	case BindFunctionDef:
		return "function-def"
	case BindClassDef:
		return "class-def"
	case BindAssignment:
		return "assignment"
	case BindParameter:
		return "parameter"
	case BindGlobalDecl:
		return "global-decl"
	case BindNonlocalDecl:
		return "nonlocal-decl"
	default:
		return "deletion"
	}
}

// Binding is one named definition. Each binding belongs to exactly one
// scope; Used flips when resolution reaches it.
type Binding struct {
	Name  string
	Kind  BindKind
	Scope ScopeID
	// Span covers the bound name itself.
	Span source.Span
	// AliasSpan covers the full `name` or `name as alias` segment of an
	// import statement; zero for other kinds.
	AliasSpan source.Span
	// StmtSpan covers the whole statement that created the binding.
	StmtSpan source.Span
	// FullName is the dotted module path for imports (`os.path` for
	// `import os.path`), empty otherwise.
	FullName string
	Used     bool

	// branch locates the binding among enclosing if/elif/else arms so
	// rebindings in sibling arms are not treated as redefinitions.
	branch []branchStep
}

// branchStep records that a binding sits under clause `Clause` of the
// if statement spanning `If`.
type branchStep struct {
	If     source.Span
	Clause source.Span
}

// siblingBranches reports whether two bindings occupy different arms of
// the same conditional.
func siblingBranches(a, b *Binding) bool {
	for _, sa := range a.branch {
		for _, sb := range b.branch {
			if sa.If == sb.If && sa.Clause != sb.Clause {
				return true
			}
		}
	}
	return false
}

// Redefinition pairs a never-read binding with the one that shadowed it.
type Redefinition struct {
	Prev *Binding
	New  *Binding
}

// Use records a name read that resolved nowhere.
type Use struct {
	Name  string
	Span  source.Span
	Scope ScopeID
}

// Decl records a global/nonlocal declaration fact: a use preceding the
// declaration in the same scope, or a declaration naming nothing that
// exists in any enclosing scope.
type Decl struct {
	Binding *Binding
	// UsedAt is set for use-prior-to-declaration facts.
	UsedAt source.Span
}

// Result is the populated binding graph plus the semantic facts rules
// consume. Scopes live in an arena; index 0 is the module scope.
type Result struct {
	scopes []*Scope

	UnusedImports   []*Binding
	UnusedVariables []*Binding
	Redefinitions   []Redefinition
	Undefined       []Use
	UsedBeforeDecl  []Decl
	DanglingDecls   []Decl
}

// Scope returns the arena entry for id.
func (r *Result) Scope(id ScopeID) *Scope {
	return r.scopes[id]
}

// ModuleScope returns the root scope.
func (r *Result) ModuleScope() *Scope {
	return r.scopes[0]
}

// Scopes returns the arena in creation order.
func (r *Result) Scopes() []*Scope {
	return r.scopes
}

// Resolve walks the scope chain innermost-first from `from`, skipping
// class scopes that are not the starting scope, and returns the binding
// for name if one exists.
func (r *Result) Resolve(from ScopeID, name string) (*Binding, bool) {
	for id := from; id != NoScope; id = r.scopes[id].Parent {
		s := r.scopes[id]
		if id != from && s.Kind == ScopeClass {
			continue
		}
		if b, ok := s.Lookup(name); ok && b.Kind != BindDeletion {
			return b, true
		}
	}
	return nil, false
}
