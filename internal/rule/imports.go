package rule

import (
	"fmt"

	"github.com/flint-py/flint/internal/binding"
	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/source"
)

// UnusedImport reports imported names that are never read (F401). The
// fix removes the alias from its statement, or the whole statement when
// every name it introduces is unused.
type UnusedImport struct{}

func (r *UnusedImport) Code() string    { return "F401" }
func (r *UnusedImport) Summary() string { return "imported but unused" }

// Stub files re-export by convention, so unused imports there are not
// violations.
func (r *UnusedImport) Accepts(kind source.FileKind) bool {
	return kind != source.KindStub
}

func (r *UnusedImport) Check(ctx *Context) []diag.Diagnostic {
	unused := ctx.Bindings.UnusedImports
	if len(unused) == 0 {
		return nil
	}

	// Per import statement: how many names it binds vs. how many of
	// those are unused. When the whole statement is dead, every one of
	// its diagnostics proposes deleting the statement; identical spans
	// collapse to a single applied edit in the merge step.
	total := make(map[source.Span]int)
	dead := make(map[source.Span]int)
	for _, s := range ctx.Bindings.Scopes() {
		for _, bd := range s.Bindings() {
			if bd.Kind == binding.BindImport {
				total[bd.StmtSpan]++
			}
		}
	}
	for _, bd := range unused {
		dead[bd.StmtSpan]++
	}

	var out []diag.Diagnostic
	for _, bd := range unused {
		var fix *diag.Fix
		if dead[bd.StmtSpan] == total[bd.StmtSpan] {
			fix = &diag.Fix{
				Title:         "Remove unused import statement",
				Edits:         []diag.Edit{{Span: statementLineSpan(ctx.Unit, bd.StmtSpan)}},
				Applicability: diag.SafeFix,
			}
		} else {
			fix = &diag.Fix{
				Title:         fmt.Sprintf("Remove unused import %q", bd.Name),
				Edits:         []diag.Edit{{Span: aliasRemovalSpan(ctx.Unit, bd.AliasSpan)}},
				Applicability: diag.SafeFix,
			}
		}
		out = append(out, diag.Diagnostic{
			Code:     r.Code(),
			Message:  fmt.Sprintf("`%s` imported but unused", importeeName(bd)),
			Severity: diag.SevWarning,
			Span:     bd.Span,
			Fix:      fix,
		})
	}
	return out
}

func importeeName(bd *binding.Binding) string {
	if bd.FullName != "" {
		return bd.FullName
	}
	return bd.Name
}

// statementLineSpan widens a statement span to whole lines, including
// the trailing newline, so deleting it leaves no blank residue.
func statementLineSpan(unit *source.Unit, span source.Span) source.Span {
	start := span.Start
	for start > 0 && unit.Text[start-1] != '\n' {
		if unit.Text[start-1] != ' ' && unit.Text[start-1] != '\t' {
			break
		}
		start--
	}
	end := span.End
	for end < uint(len(unit.Text)) {
		c := unit.Text[end]
		end++
		if c == '\n' {
			break
		}
	}
	return source.Span{Start: start, End: end}
}

// aliasRemovalSpan widens an alias span to swallow the separating comma
// and surrounding spaces, preferring the comma on the left.
func aliasRemovalSpan(unit *source.Unit, span source.Span) source.Span {
	text := unit.Text
	start, end := span.Start, span.End

	// `import a, b` with b unused: eat `, ` to the left.
	i := start
	for i > 0 && text[i-1] == ' ' {
		i--
	}
	if i > 0 && text[i-1] == ',' {
		return source.Span{Start: i - 1, End: end}
	}

	// First alias in the list: eat the comma and spaces to the right.
	j := end
	for j < uint(len(text)) && text[j] == ' ' {
		j++
	}
	if j < uint(len(text)) && text[j] == ',' {
		j++
		for j < uint(len(text)) && text[j] == ' ' {
			j++
		}
		return source.Span{Start: start, End: j}
	}
	return span
}
