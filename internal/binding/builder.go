package binding

import (
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flint-py/flint/internal/source"
)

// Build runs one depth-first walk over the unit's tree and returns the
// populated scope arena plus the semantic facts rules consume.
//
// The walk is split into two passes. The immediate pass visits
// executable statements in order, creating bindings and marking uses as
// they appear. Function and lambda bodies, and quoted ("string") type
// annotations, go onto a deferred queue drained only after the enclosing
// scope's immediate walk has finished, because both may legally refer to
// names defined later in that scope.
func Build(unit *source.Unit) *Result {
	b := &builder{
		unit: unit,
		res:  &Result{},
	}
	moduleID := b.newScope(ScopeModule, NoScope, unit.Root())
	b.walkBlock(moduleID, unit.Root())
	b.drainDeferred()
	b.finish()
	return b.res
}

type builder struct {
	unit *source.Unit
	res  *Result

	// deferred is a FIFO; entries may append more entries while it
	// drains (a nested def inside a deferred body).
	deferred []func()

	// decl validation happens after the whole unit is populated.
	globalDecls   []*Binding
	nonlocalDecls []*Binding

	// allNode is the value assigned to module-level __all__, if any.
	allNode *sitter.Node
}

func (b *builder) newScope(kind ScopeKind, parent ScopeID, node *sitter.Node) ScopeID {
	id := ScopeID(len(b.res.scopes))
	b.res.scopes = append(b.res.scopes, newScope(kind, parent, node))
	if parent != NoScope {
		p := b.res.scopes[parent]
		p.Children = append(p.Children, id)
	}
	return id
}

func (b *builder) defer_(fn func()) {
	b.deferred = append(b.deferred, fn)
}

func (b *builder) drainDeferred() {
	for i := 0; i < len(b.deferred); i++ {
		b.deferred[i]()
	}
}

// --- binding and use bookkeeping ---

func isDefinitionLike(k BindKind) bool {
	return k == BindImport || k == BindFunctionDef || k == BindClassDef
}

func (b *builder) bind(scopeID ScopeID, name string, kind BindKind, nameNode, stmt *sitter.Node) *Binding {
	scope := b.res.scopes[scopeID]
	nb := &Binding{
		Name:   name,
		Kind:   kind,
		Scope:  scopeID,
		Span:   source.NodeSpan(nameNode),
		branch: b.branchPath(stmt, scope.Node),
	}
	if stmt != nil {
		nb.StmtSpan = source.NodeSpan(stmt)
	}

	if prev, ok := scope.bindings[name]; ok {
		if !prev.Used && isDefinitionLike(prev.Kind) && isDefinitionLike(kind) &&
			!siblingBranches(prev, nb) {
			b.res.Redefinitions = append(b.res.Redefinitions, Redefinition{Prev: prev, New: nb})
		}
	}

	scope.bindings[name] = nb
	scope.order = append(scope.order, nb)
	return nb
}

// branchPath records which if/elif/else arms enclose stmt, up to the
// owning scope node.
func (b *builder) branchPath(stmt, scopeNode *sitter.Node) []branchStep {
	var steps []branchStep
	cur := stmt
	for cur != nil && !(cur.StartByte() == scopeNode.StartByte() && cur.EndByte() == scopeNode.EndByte() && cur.Kind() == scopeNode.Kind()) {
		parent := cur.Parent()
		if parent == nil {
			break
		}
		if parent.Kind() == "if_statement" {
			steps = append(steps, branchStep{
				If:     source.NodeSpan(parent),
				Clause: source.NodeSpan(cur),
			})
		}
		cur = parent
	}
	return steps
}

// markUse resolves name from scopeID and marks the binding read. An
// unresolved name that is not a builtin, and not shadowed by a wildcard
// import anywhere on the chain, becomes an undefined-name fact.
func (b *builder) markUse(scopeID ScopeID, name string, span source.Span) {
	start := b.res.scopes[scopeID]
	if _, seen := start.firstUse[name]; !seen {
		start.firstUse[name] = span
	}

	// A global declaration redirects resolution straight to the module
	// scope; assignments after the declaration land there too.
	if start.DeclaredGlobal(name) {
		if bd, ok := b.res.ModuleScope().Lookup(name); ok {
			bd.Used = true
		}
		return
	}

	starSeen := false
	for id := scopeID; id != NoScope; id = b.res.scopes[id].Parent {
		s := b.res.scopes[id]
		if id != scopeID && s.Kind == ScopeClass {
			continue
		}
		if s.usesStar {
			starSeen = true
		}
		if bd, ok := s.Lookup(name); ok && bd.Kind != BindDeletion {
			bd.Used = true
			return
		}
	}
	if IsBuiltin(name) || starSeen {
		return
	}
	b.res.Undefined = append(b.res.Undefined, Use{Name: name, Span: span, Scope: scopeID})
}

// --- statement walk ---

func (b *builder) walkBlock(scopeID ScopeID, block *sitter.Node) {
	for i := uint(0); i < block.NamedChildCount(); i++ {
		b.walkStatement(scopeID, block.NamedChild(i))
	}
}

func (b *builder) walkStatement(scopeID ScopeID, n *sitter.Node) {
	switch n.Kind() {
	case "import_statement":
		b.handleImport(scopeID, n)
	case "import_from_statement":
		b.handleImportFrom(scopeID, n)
	case "future_import_statement":
		b.handleFutureImport(scopeID, n)
	case "function_definition":
		b.handleFunction(scopeID, n, n)
	case "class_definition":
		b.handleClass(scopeID, n, n)
	case "decorated_definition":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			if child.Kind() == "decorator" {
				b.walkExprChildren(scopeID, child)
			}
		}
		if def := n.ChildByFieldName("definition"); def != nil {
			switch def.Kind() {
			case "function_definition":
				b.handleFunction(scopeID, def, n)
			case "class_definition":
				b.handleClass(scopeID, def, n)
			}
		}
	case "expression_statement":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			b.walkStatement(scopeID, n.NamedChild(i))
		}
	case "assignment":
		b.handleAssignment(scopeID, n)
	case "augmented_assignment":
		// `x += 1` both reads and rebinds x.
		if left := n.ChildByFieldName("left"); left != nil {
			b.walkExpr(scopeID, left)
			b.bindTarget(scopeID, left, BindAssignment, n)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			b.walkExpr(scopeID, right)
		}
	case "global_statement":
		b.handleDecl(scopeID, n, BindGlobalDecl)
	case "nonlocal_statement":
		b.handleDecl(scopeID, n, BindNonlocalDecl)
	case "delete_statement":
		b.handleDelete(scopeID, n)
	case "for_statement":
		if right := n.ChildByFieldName("right"); right != nil {
			b.walkExpr(scopeID, right)
		}
		if left := n.ChildByFieldName("left"); left != nil {
			b.bindTarget(scopeID, left, BindAssignment, n)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.walkBlock(scopeID, body)
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			b.walkElse(scopeID, alt)
		}
	case "while_statement":
		if cond := n.ChildByFieldName("condition"); cond != nil {
			b.walkExpr(scopeID, cond)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.walkBlock(scopeID, body)
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			b.walkElse(scopeID, alt)
		}
	case "if_statement":
		if cond := n.ChildByFieldName("condition"); cond != nil {
			b.walkExpr(scopeID, cond)
		}
		if cons := n.ChildByFieldName("consequence"); cons != nil {
			b.walkBlock(scopeID, cons)
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			switch child.Kind() {
			case "elif_clause":
				if cond := child.ChildByFieldName("condition"); cond != nil {
					b.walkExpr(scopeID, cond)
				}
				if cons := child.ChildByFieldName("consequence"); cons != nil {
					b.walkBlock(scopeID, cons)
				}
			case "else_clause":
				b.walkElse(scopeID, child)
			}
		}
	case "try_statement":
		if body := n.ChildByFieldName("body"); body != nil {
			b.walkBlock(scopeID, body)
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			switch child.Kind() {
			case "except_clause", "except_group_clause":
				b.handleExcept(scopeID, child)
			case "else_clause", "finally_clause":
				b.walkElse(scopeID, child)
			}
		}
	case "with_statement":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			if child.Kind() == "with_clause" {
				for j := uint(0); j < child.NamedChildCount(); j++ {
					if item := child.NamedChild(j); item.Kind() == "with_item" {
						if v := item.ChildByFieldName("value"); v != nil {
							b.walkExpr(scopeID, v)
						}
					}
				}
			}
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.walkBlock(scopeID, body)
		}
	case "match_statement":
		if subject := n.ChildByFieldName("subject"); subject != nil {
			b.walkExpr(scopeID, subject)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			for i := uint(0); i < body.NamedChildCount(); i++ {
				if c := body.NamedChild(i); c.Kind() == "case_clause" {
					b.handleCaseClause(scopeID, c)
				}
			}
		}
	case "return_statement", "raise_statement", "assert_statement",
		"print_statement", "exec_statement", "yield":
		b.walkExprChildren(scopeID, n)
	case "pass_statement", "break_statement", "continue_statement", "comment":
		// nothing binds or reads
	default:
		// Fallback: treat any other statement as an expression carrier.
		b.walkExpr(scopeID, n)
	}
}

// handleCaseClause binds the capture names of a match arm, walks its
// guard, and then its body. Every plain identifier in a case pattern is
// a capture; dotted and attribute references are value patterns and
// only read their base.
func (b *builder) handleCaseClause(scopeID ScopeID, clause *sitter.Node) {
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		switch child.Kind() {
		case "case_pattern":
			b.bindCasePattern(scopeID, child, clause)
		case "if_clause":
			b.walkExprChildren(scopeID, child)
		}
	}
	if cons := clause.ChildByFieldName("consequence"); cons != nil {
		b.walkBlock(scopeID, cons)
	}
}

func (b *builder) bindCasePattern(scopeID ScopeID, pattern, stmt *sitter.Node) {
	source.Walk(pattern, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "class_pattern":
			// `case Point(x=0, y=y)` reads Point; captures live in the
			// argument patterns.
			if head := n.NamedChild(0); head != nil {
				b.walkExpr(scopeID, head)
			}
			for i := uint(1); i < n.NamedChildCount(); i++ {
				b.bindCasePattern(scopeID, n.NamedChild(i), stmt)
			}
			return false
		case "attribute":
			b.walkExpr(scopeID, n)
			return false
		case "dotted_name":
			if head := n.NamedChild(0); head != nil && head.Kind() == "identifier" {
				b.markUse(scopeID, b.unit.NodeText(head), source.NodeSpan(head))
			}
			return false
		case "identifier":
			if name := b.unit.NodeText(n); name != "_" {
				b.bind(scopeID, name, BindAssignment, n, stmt)
			}
			return false
		}
		return true
	})
}

// walkElse walks the block of an else/finally clause.
func (b *builder) walkElse(scopeID ScopeID, clause *sitter.Node) {
	if body := clause.ChildByFieldName("body"); body != nil {
		b.walkBlock(scopeID, body)
		return
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		if c := clause.NamedChild(i); c.Kind() == "block" {
			b.walkBlock(scopeID, c)
		}
	}
}

func (b *builder) handleExcept(scopeID ScopeID, clause *sitter.Node) {
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		switch child.Kind() {
		case "block":
			b.walkBlock(scopeID, child)
		case "as_pattern":
			if v := child.NamedChild(0); v != nil {
				b.walkExpr(scopeID, v)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				b.bindTarget(scopeID, alias, BindAssignment, clause)
			}
		case "identifier":
			// `except E as name` surfaces the alias as a bare identifier
			// in some grammar versions: the last identifier before the
			// block is the alias when an `as` keyword precedes it.
			if b.precededByAs(child) {
				b.bind(scopeID, b.unit.NodeText(child), BindAssignment, child, clause)
			} else {
				b.walkExpr(scopeID, child)
			}
		default:
			b.walkExpr(scopeID, child)
		}
	}
}

func (b *builder) precededByAs(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	for i := uint(0); i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if child.EndByte() <= n.StartByte() && child.Kind() == "as" {
			return true
		}
	}
	return false
}

// --- imports ---

func (b *builder) handleImport(scopeID ScopeID, n *sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "dotted_name":
			full := b.unit.NodeText(child)
			head := child.NamedChild(0)
			if head == nil {
				continue
			}
			bd := b.bind(scopeID, b.unit.NodeText(head), BindImport, head, n)
			bd.FullName = full
			bd.AliasSpan = source.NodeSpan(child)
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if alias == nil {
				continue
			}
			bd := b.bind(scopeID, b.unit.NodeText(alias), BindImport, alias, n)
			bd.FullName = b.unit.NodeText(nameNode)
			bd.AliasSpan = source.NodeSpan(child)
		}
	}
}

func (b *builder) handleImportFrom(scopeID ScopeID, n *sitter.Node) {
	module := ""
	if m := n.ChildByFieldName("module_name"); m != nil {
		module = b.unit.NodeText(m)
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if m := n.ChildByFieldName("module_name"); m != nil &&
			child.StartByte() == m.StartByte() && child.EndByte() == m.EndByte() {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			b.res.scopes[scopeID].usesStar = true
		case "dotted_name":
			bd := b.bind(scopeID, b.unit.NodeText(child), BindImport, child, n)
			bd.FullName = module + "." + bd.Name
			bd.AliasSpan = source.NodeSpan(child)
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if alias == nil {
				continue
			}
			bd := b.bind(scopeID, b.unit.NodeText(alias), BindImport, alias, n)
			bd.FullName = module + "." + b.unit.NodeText(nameNode)
			bd.AliasSpan = source.NodeSpan(child)
		}
	}
}

func (b *builder) handleFutureImport(scopeID ScopeID, n *sitter.Node) {
	// __future__ features act at compile time; they are never "unused".
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child.Kind() == "dotted_name" {
			bd := b.bind(scopeID, b.unit.NodeText(child), BindImport, child, n)
			bd.FullName = "__future__." + bd.Name
			bd.Used = true
		}
	}
}

// --- definitions ---

func (b *builder) handleFunction(scopeID ScopeID, def, stmt *sitter.Node) {
	if name := def.ChildByFieldName("name"); name != nil {
		b.bind(scopeID, b.unit.NodeText(name), BindFunctionDef, name, stmt)
	}

	// The function scope exists eagerly so parameters are bound before
	// the deferred body walk runs.
	fnScope := b.newScope(ScopeFunction, scopeID, def)

	// Defaults and annotations evaluate in the enclosing scope, at
	// definition time. String annotations are deferred instead.
	if params := def.ChildByFieldName("parameters"); params != nil {
		b.bindParameters(fnScope, scopeID, params)
	}
	if ret := def.ChildByFieldName("return_type"); ret != nil {
		b.walkAnnotation(scopeID, ret)
	}

	if body := def.ChildByFieldName("body"); body != nil {
		b.defer_(func() {
			b.walkBlock(fnScope, body)
		})
	}
}

func (b *builder) handleLambda(scopeID ScopeID, n *sitter.Node) {
	lamScope := b.newScope(ScopeLambda, scopeID, n)
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.bindParameters(lamScope, scopeID, params)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.defer_(func() {
			b.walkExpr(lamScope, body)
		})
	}
}

// bindParameters binds each parameter into fnScope while evaluating
// defaults and annotations in the defining scope.
func (b *builder) bindParameters(fnScope, defScope ScopeID, params *sitter.Node) {
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		switch p.Kind() {
		case "identifier":
			b.bind(fnScope, b.unit.NodeText(p), BindParameter, p, p)
		case "typed_parameter":
			if t := p.ChildByFieldName("type"); t != nil {
				b.walkAnnotation(defScope, t)
			}
			if id := p.NamedChild(0); id != nil && id.Kind() == "identifier" {
				b.bind(fnScope, b.unit.NodeText(id), BindParameter, id, p)
			} else if id != nil {
				// *args / **kwargs carrying a type
				b.bindSplat(fnScope, id)
			}
		case "default_parameter", "typed_default_parameter":
			if t := p.ChildByFieldName("type"); t != nil {
				b.walkAnnotation(defScope, t)
			}
			if v := p.ChildByFieldName("value"); v != nil {
				b.walkExpr(defScope, v)
			}
			if name := p.ChildByFieldName("name"); name != nil {
				b.bind(fnScope, b.unit.NodeText(name), BindParameter, name, p)
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			b.bindSplat(fnScope, p)
		}
	}
}

func (b *builder) bindSplat(fnScope ScopeID, p *sitter.Node) {
	if id := p.NamedChild(0); id != nil && id.Kind() == "identifier" {
		b.bind(fnScope, b.unit.NodeText(id), BindParameter, id, p)
	} else if p.Kind() == "identifier" {
		b.bind(fnScope, b.unit.NodeText(p), BindParameter, p, p)
	}
}

func (b *builder) handleClass(scopeID ScopeID, def, stmt *sitter.Node) {
	if name := def.ChildByFieldName("name"); name != nil {
		b.bind(scopeID, b.unit.NodeText(name), BindClassDef, name, stmt)
	}
	if supers := def.ChildByFieldName("superclasses"); supers != nil {
		b.walkExprChildren(scopeID, supers)
	}
	// Class bodies execute immediately, in a scope of their own.
	clsScope := b.newScope(ScopeClass, scopeID, def)
	if body := def.ChildByFieldName("body"); body != nil {
		b.walkBlock(clsScope, body)
	}
}

// --- assignment and declarations ---

func (b *builder) handleAssignment(scopeID ScopeID, n *sitter.Node) {
	if right := n.ChildByFieldName("right"); right != nil {
		b.walkExpr(scopeID, right)
	}
	if t := n.ChildByFieldName("type"); t != nil {
		b.walkAnnotation(scopeID, t)
	}
	left := n.ChildByFieldName("left")
	if left == nil {
		return
	}
	if scopeID == 0 && left.Kind() == "identifier" && b.unit.NodeText(left) == "__all__" {
		b.allNode = n.ChildByFieldName("right")
	}
	b.bindTarget(scopeID, left, BindAssignment, n)
}

// bindTarget binds assignment targets; attribute and subscript targets
// only read their base object.
func (b *builder) bindTarget(scopeID ScopeID, target *sitter.Node, kind BindKind, stmt *sitter.Node) {
	switch target.Kind() {
	case "identifier":
		name := b.unit.NodeText(target)
		scope := b.res.scopes[scopeID]
		if scope.DeclaredGlobal(name) {
			b.bind(0, name, kind, target, stmt)
			return
		}
		if scope.DeclaredNonlocal(name) {
			if owner, ok := b.enclosingFunctionWith(scopeID, name); ok {
				b.bind(owner, name, kind, target, stmt)
				return
			}
		}
		b.bind(scopeID, name, kind, target, stmt)
	case "tuple_pattern", "list_pattern", "pattern_list", "tuple", "list", "parenthesized_expression":
		for i := uint(0); i < target.NamedChildCount(); i++ {
			b.bindTarget(scopeID, target.NamedChild(i), kind, stmt)
		}
	case "list_splat_pattern", "list_splat":
		if inner := target.NamedChild(0); inner != nil {
			b.bindTarget(scopeID, inner, kind, stmt)
		}
	case "as_pattern_target":
		if inner := target.NamedChild(0); inner != nil {
			b.bindTarget(scopeID, inner, kind, stmt)
		}
	case "attribute", "subscript":
		b.walkExpr(scopeID, target)
	default:
		b.walkExpr(scopeID, target)
	}
}

func (b *builder) enclosingFunctionWith(scopeID ScopeID, name string) (ScopeID, bool) {
	for id := b.res.scopes[scopeID].Parent; id != NoScope; id = b.res.scopes[id].Parent {
		s := b.res.scopes[id]
		if s.Kind != ScopeFunction && s.Kind != ScopeLambda {
			continue
		}
		if _, ok := s.Lookup(name); ok {
			return id, true
		}
	}
	return NoScope, false
}

func (b *builder) handleDecl(scopeID ScopeID, n *sitter.Node, kind BindKind) {
	scope := b.res.scopes[scopeID]
	for i := uint(0); i < n.NamedChildCount(); i++ {
		id := n.NamedChild(i)
		if id.Kind() != "identifier" {
			continue
		}
		name := b.unit.NodeText(id)
		bd := &Binding{
			Name:  name,
			Kind:  kind,
			Scope: scopeID,
			Span:  source.NodeSpan(id),
		}
		bd.StmtSpan = source.NodeSpan(n)

		// A read or a bind of the name earlier in the same scope makes
		// the declaration arrive too late.
		if used, ok := scope.firstUse[name]; ok && used.Start < bd.Span.Start {
			b.res.UsedBeforeDecl = append(b.res.UsedBeforeDecl, Decl{Binding: bd, UsedAt: used})
		} else if prev, ok := scope.Lookup(name); ok && prev.Kind != kind && prev.Span.Start < bd.Span.Start {
			b.res.UsedBeforeDecl = append(b.res.UsedBeforeDecl, Decl{Binding: bd, UsedAt: prev.Span})
		}

		if kind == BindGlobalDecl {
			scope.globals[name] = struct{}{}
			b.globalDecls = append(b.globalDecls, bd)
		} else {
			scope.nonlocals[name] = struct{}{}
			b.nonlocalDecls = append(b.nonlocalDecls, bd)
		}
	}
}

func (b *builder) handleDelete(scopeID ScopeID, n *sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		target := n.NamedChild(i)
		if target.Kind() != "identifier" {
			b.walkExpr(scopeID, target)
			continue
		}
		name := b.unit.NodeText(target)
		b.markUse(scopeID, name, source.NodeSpan(target))
		b.bind(scopeID, name, BindDeletion, target, n)
	}
}

// --- expressions ---

func (b *builder) walkExprChildren(scopeID ScopeID, n *sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		b.walkExpr(scopeID, n.NamedChild(i))
	}
}

func (b *builder) walkExpr(scopeID ScopeID, n *sitter.Node) {
	switch n.Kind() {
	case "identifier":
		b.markUse(scopeID, b.unit.NodeText(n), source.NodeSpan(n))
	case "attribute":
		// Only the base object is a name read; the attribute itself is
		// resolved at runtime.
		if obj := n.ChildByFieldName("object"); obj != nil {
			b.walkExpr(scopeID, obj)
		}
	case "keyword_argument":
		if v := n.ChildByFieldName("value"); v != nil {
			b.walkExpr(scopeID, v)
		}
	case "as_pattern":
		// `with expr as name` and `except E as name` read the value
		// and bind the alias.
		if v := n.NamedChild(0); v != nil {
			b.walkExpr(scopeID, v)
		}
		if alias := n.ChildByFieldName("alias"); alias != nil {
			b.bindTarget(scopeID, alias, BindAssignment, n)
		}
	case "lambda":
		b.handleLambda(scopeID, n)
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		b.handleComprehension(scopeID, n)
	case "named_expression":
		// The walrus target binds in the nearest non-comprehension scope.
		if v := n.ChildByFieldName("value"); v != nil {
			b.walkExpr(scopeID, v)
		}
		if name := n.ChildByFieldName("name"); name != nil {
			target := scopeID
			for b.res.scopes[target].Kind == ScopeComprehension {
				target = b.res.scopes[target].Parent
			}
			b.bindTarget(target, name, BindAssignment, n)
		}
	case "string":
		// f-string interpolations read names.
		source.Walk(n, func(c *sitter.Node) bool {
			if c.Kind() == "interpolation" {
				if expr := c.ChildByFieldName("expression"); expr != nil {
					b.walkExpr(scopeID, expr)
				} else {
					b.walkExprChildren(scopeID, c)
				}
				return false
			}
			return true
		})
	case "assignment", "augmented_assignment":
		b.walkStatement(scopeID, n)
	default:
		b.walkExprChildren(scopeID, n)
	}
}

func (b *builder) handleComprehension(scopeID ScopeID, n *sitter.Node) {
	comp := b.newScope(ScopeComprehension, scopeID, n)
	firstIterable := true
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "for_in_clause":
			if right := child.ChildByFieldName("right"); right != nil {
				// The leftmost iterable evaluates in the enclosing
				// scope, everything after in the comprehension scope.
				if firstIterable {
					b.walkExpr(scopeID, right)
					firstIterable = false
				} else {
					b.walkExpr(comp, right)
				}
			}
			if left := child.ChildByFieldName("left"); left != nil {
				b.bindTarget(comp, left, BindAssignment, child)
			}
		case "if_clause":
			b.walkExprChildren(comp, child)
		default:
			b.walkExpr(comp, child)
		}
	}
}

// --- annotations ---

var identPattern = regexp.MustCompile(`(\.?)\b([A-Za-z_][A-Za-z0-9_]*)`)

// walkAnnotation handles a type annotation. Quoted annotations may refer
// to names defined later in the enclosing scope, so their reads are
// deferred until the scope is fully populated.
func (b *builder) walkAnnotation(scopeID ScopeID, n *sitter.Node) {
	target := n
	if target.Kind() == "type" && target.NamedChildCount() > 0 {
		target = target.NamedChild(0)
	}
	if target.Kind() == "string" {
		text := b.unit.NodeText(target)
		span := source.NodeSpan(target)
		b.defer_(func() {
			b.markStringAnnotationUses(scopeID, text, span)
		})
		return
	}
	b.walkExpr(scopeID, target)
}

// markStringAnnotationUses extracts leading identifiers from a quoted
// annotation and marks them read. Dotted tails (`os.path` → `path`) are
// attribute accesses, not name reads.
func (b *builder) markStringAnnotationUses(scopeID ScopeID, raw string, span source.Span) {
	inner := strings.Trim(raw, `'"`)
	for _, m := range identPattern.FindAllStringSubmatch(inner, -1) {
		if m[1] == "." {
			continue
		}
		b.markUse(scopeID, m[2], span)
	}
}

// --- finish ---

func (b *builder) finish() {
	b.markExportList()

	for _, scope := range b.res.scopes {
		for _, bd := range scope.order {
			switch bd.Kind {
			case BindImport:
				if !bd.Used {
					b.res.UnusedImports = append(b.res.UnusedImports, bd)
				}
			case BindAssignment:
				if !bd.Used && scope.Kind == ScopeFunction && bd.Name != "_" &&
					!scope.DeclaredGlobal(bd.Name) && !scope.DeclaredNonlocal(bd.Name) {
					if live, ok := scope.Lookup(bd.Name); ok && live == bd {
						b.res.UnusedVariables = append(b.res.UnusedVariables, bd)
					}
				}
			}
		}
	}

	for _, bd := range b.globalDecls {
		if existing, ok := b.res.ModuleScope().Lookup(bd.Name); !ok || existing.Kind == BindGlobalDecl {
			b.res.DanglingDecls = append(b.res.DanglingDecls, Decl{Binding: bd})
		}
	}
	for _, bd := range b.nonlocalDecls {
		if _, ok := b.enclosingFunctionWith(bd.Scope, bd.Name); !ok {
			b.res.DanglingDecls = append(b.res.DanglingDecls, Decl{Binding: bd})
		}
	}
}

// markExportList marks names listed in module-level __all__ as used.
func (b *builder) markExportList() {
	if b.allNode == nil {
		return
	}
	module := b.res.ModuleScope()
	source.Walk(b.allNode, func(n *sitter.Node) bool {
		if n.Kind() != "string" {
			return true
		}
		name := strings.Trim(b.unit.NodeText(n), `'"`)
		if bd, ok := module.Lookup(name); ok {
			bd.Used = true
		}
		return false
	})
}
