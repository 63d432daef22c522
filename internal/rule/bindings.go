package rule

import (
	"fmt"

	"github.com/flint-py/flint/internal/binding"
	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/source"
)

// RedefinedWhileUnused reports a definition shadowed before it was ever
// read (F811). Rebindings in sibling conditional branches are excluded
// by the binding graph builder.
type RedefinedWhileUnused struct{}

func (r *RedefinedWhileUnused) Code() string                      { return "F811" }
func (r *RedefinedWhileUnused) Summary() string                   { return "redefinition of unused name" }
func (r *RedefinedWhileUnused) Accepts(kind source.FileKind) bool { return true }

func (r *RedefinedWhileUnused) Check(ctx *Context) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, rd := range ctx.Bindings.Redefinitions {
		prevLine, _ := ctx.Unit.Lines.Position(rd.Prev.Span.Start)
		out = append(out, diag.Diagnostic{
			Code:     r.Code(),
			Message:  fmt.Sprintf("redefinition of unused `%s` from line %d", rd.New.Name, prevLine),
			Severity: diag.SevWarning,
			Span:     rd.New.Span,
			Notes: []diag.Note{{
				Span:    rd.Prev.Span,
				Message: "previous definition is never read",
			}},
		})
	}
	return out
}

// UndefinedName reports reads that resolve to no binding, builtin, or
// wildcard import (F821).
type UndefinedName struct{}

func (r *UndefinedName) Code() string                      { return "F821" }
func (r *UndefinedName) Summary() string                   { return "undefined name" }
func (r *UndefinedName) Accepts(kind source.FileKind) bool { return kind != source.KindStub }

func (r *UndefinedName) Check(ctx *Context) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, u := range ctx.Bindings.Undefined {
		out = append(out, diag.Diagnostic{
			Code:     r.Code(),
			Message:  fmt.Sprintf("undefined name `%s`", u.Name),
			Severity: diag.SevError,
			Span:     u.Span,
		})
	}
	return out
}

// UnusedVariable reports function-local assignments never read (F841).
// The fix deletes the assignment, which can drop a side-effecting right
// hand side, so it stays manual-only.
type UnusedVariable struct{}

func (r *UnusedVariable) Code() string                      { return "F841" }
func (r *UnusedVariable) Summary() string                   { return "local variable assigned but never used" }
func (r *UnusedVariable) Accepts(kind source.FileKind) bool { return kind == source.KindSource }

func (r *UnusedVariable) Check(ctx *Context) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, bd := range ctx.Bindings.UnusedVariables {
		out = append(out, diag.Diagnostic{
			Code:     r.Code(),
			Message:  fmt.Sprintf("local variable `%s` is assigned to but never used", bd.Name),
			Severity: diag.SevWarning,
			Span:     bd.Span,
			Fix: &diag.Fix{
				Title:         fmt.Sprintf("Remove assignment to `%s`", bd.Name),
				Edits:         []diag.Edit{{Span: statementLineSpan(ctx.Unit, bd.StmtSpan)}},
				Applicability: diag.ManualFix,
			},
		})
	}
	return out
}

// DanglingDeclaration reports global/nonlocal statements naming nothing
// that exists in the scope they point at (F824).
type DanglingDeclaration struct{}

func (r *DanglingDeclaration) Code() string                      { return "F824" }
func (r *DanglingDeclaration) Summary() string                   { return "dangling global/nonlocal declaration" }
func (r *DanglingDeclaration) Accepts(kind source.FileKind) bool { return true }

func (r *DanglingDeclaration) Check(ctx *Context) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range ctx.Bindings.DanglingDecls {
		kind := "global"
		if d.Binding.Kind == binding.BindNonlocalDecl {
			kind = "nonlocal"
		}
		out = append(out, diag.Diagnostic{
			Code:     r.Code(),
			Message:  fmt.Sprintf("`%s %s` is unused: name is never assigned in scope", kind, d.Binding.Name),
			Severity: diag.SevWarning,
			Span:     d.Binding.Span,
		})
	}
	return out
}

// UsedPriorGlobalDeclaration reports a name read or bound before its
// global/nonlocal declaration in the same scope (PLE0118).
type UsedPriorGlobalDeclaration struct{}

func (r *UsedPriorGlobalDeclaration) Code() string { return "PLE0118" }
func (r *UsedPriorGlobalDeclaration) Summary() string {
	return "name used prior to global declaration"
}
func (r *UsedPriorGlobalDeclaration) Accepts(kind source.FileKind) bool { return true }

func (r *UsedPriorGlobalDeclaration) Check(ctx *Context) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range ctx.Bindings.UsedBeforeDecl {
		line, _ := ctx.Unit.Lines.Position(d.UsedAt.Start)
		out = append(out, diag.Diagnostic{
			Code:     r.Code(),
			Message:  fmt.Sprintf("name `%s` is used prior to its declaration on line %d", d.Binding.Name, line),
			Severity: diag.SevError,
			Span:     d.Binding.Span,
			Notes:    []diag.Note{{Span: d.UsedAt, Message: "first use is here"}},
		})
	}
	return out
}
