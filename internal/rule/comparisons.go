package rule

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/source"
)

// comparisonTerm is one operator token inside a comparison chain, with
// the operands on either side.
type comparisonTerm struct {
	op          *sitter.Node
	left, right *sitter.Node
}

// comparisonTerms flattens `a == b != c` into operator/operand triples.
func comparisonTerms(n *sitter.Node) []comparisonTerm {
	var terms []comparisonTerm
	var lastOperand *sitter.Node
	var pendingOp *sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.IsNamed() {
			if pendingOp != nil {
				terms = append(terms, comparisonTerm{op: pendingOp, left: lastOperand, right: child})
				pendingOp = nil
			}
			lastOperand = child
			continue
		}
		switch child.Kind() {
		case "==", "!=":
			pendingOp = child
		}
	}
	return terms
}

// eqOperatorFix rewrites an equality operator to an identity check. The
// rewrite is behavior-changing under `__eq__` overrides and for values
// that compare equal without being identical (`1 == True`), so it is
// never applied without opt-in.
func eqOperatorFix(op *sitter.Node) *diag.Fix {
	replacement := "is"
	title := "Replace `==` with `is`"
	if op.Kind() == "!=" {
		replacement = "is not"
		title = "Replace `!=` with `is not`"
	}
	return &diag.Fix{
		Title:         title,
		Edits:         []diag.Edit{{Span: source.NodeSpan(op), NewText: replacement}},
		Applicability: diag.ManualFix,
	}
}

// NoneComparison reports equality comparisons against None (E711); the
// fix swaps the operator for an identity check.
type NoneComparison struct{}

func (r *NoneComparison) Code() string                      { return "E711" }
func (r *NoneComparison) Summary() string                   { return "comparison to None" }
func (r *NoneComparison) Accepts(kind source.FileKind) bool { return true }

func (r *NoneComparison) Check(ctx *Context) []diag.Diagnostic {
	return checkComparisons(ctx, func(term comparisonTerm) (string, bool) {
		if term.left.Kind() == "none" || term.right.Kind() == "none" {
			op := "is"
			if term.op.Kind() == "!=" {
				op = "is not"
			}
			return "comparison to `None` should be `" + op + " None`", true
		}
		return "", false
	}, r.Code())
}

// BoolComparison reports equality comparisons against True/False (E712).
type BoolComparison struct{}

func (r *BoolComparison) Code() string                      { return "E712" }
func (r *BoolComparison) Summary() string                   { return "comparison to True/False" }
func (r *BoolComparison) Accepts(kind source.FileKind) bool { return true }

func (r *BoolComparison) Check(ctx *Context) []diag.Diagnostic {
	return checkComparisons(ctx, func(term comparisonTerm) (string, bool) {
		for _, n := range []*sitter.Node{term.left, term.right} {
			if n.Kind() == "true" || n.Kind() == "false" {
				return "comparison to `" + capitalized(n.Kind()) + "` should use `is` or a bare truth check", true
			}
		}
		return "", false
	}, r.Code())
}

func capitalized(kind string) string {
	if kind == "true" {
		return "True"
	}
	return "False"
}

func checkComparisons(ctx *Context, match func(comparisonTerm) (string, bool), code string) []diag.Diagnostic {
	var out []diag.Diagnostic
	source.Walk(ctx.Unit.Root(), func(n *sitter.Node) bool {
		if n.Kind() != "comparison_operator" {
			return true
		}
		for _, term := range comparisonTerms(n) {
			msg, ok := match(term)
			if !ok {
				continue
			}
			out = append(out, diag.Diagnostic{
				Code:     code,
				Message:  msg,
				Severity: diag.SevWarning,
				Span:     source.NodeSpan(term.op),
				Fix:      eqOperatorFix(term.op),
			})
		}
		return true
	})
	return out
}
