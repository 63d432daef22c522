package rule

import (
	"github.com/flint-py/flint/internal/diag"
	"github.com/flint-py/flint/internal/source"
)

// TrailingWhitespace reports whitespace before a line break (W291) with
// a deletion fix.
type TrailingWhitespace struct{}

func (r *TrailingWhitespace) Code() string                      { return "W291" }
func (r *TrailingWhitespace) Summary() string                   { return "trailing whitespace" }
func (r *TrailingWhitespace) Accepts(kind source.FileKind) bool { return true }

func (r *TrailingWhitespace) Check(ctx *Context) []diag.Diagnostic {
	var out []diag.Diagnostic
	text := ctx.Unit.Text
	for line := 1; line <= ctx.Unit.Lines.LineCount(); line++ {
		span := ctx.Unit.Lines.LineSpan(line)
		end := span.End
		start := end
		for start > span.Start && (text[start-1] == ' ' || text[start-1] == '\t') {
			start--
		}
		if start == end {
			continue
		}
		ws := source.Span{Start: start, End: end}
		out = append(out, diag.Diagnostic{
			Code:     r.Code(),
			Message:  "trailing whitespace",
			Severity: diag.SevWarning,
			Span:     ws,
			Fix: &diag.Fix{
				Title:         "Remove trailing whitespace",
				Edits:         []diag.Edit{{Span: ws}},
				Applicability: diag.SafeFix,
			},
		})
	}
	return out
}

// MissingNewlineAtEOF reports a missing final newline (W292). Notebook
// cells legitimately end without one.
type MissingNewlineAtEOF struct{}

func (r *MissingNewlineAtEOF) Code() string    { return "W292" }
func (r *MissingNewlineAtEOF) Summary() string { return "no newline at end of file" }
func (r *MissingNewlineAtEOF) Accepts(kind source.FileKind) bool {
	return kind != source.KindNotebook
}

func (r *MissingNewlineAtEOF) Check(ctx *Context) []diag.Diagnostic {
	text := ctx.Unit.Text
	if len(text) == 0 || text[len(text)-1] == '\n' {
		return nil
	}
	eof := source.Span{Start: uint(len(text)), End: uint(len(text))}
	return []diag.Diagnostic{{
		Code:     r.Code(),
		Message:  "no newline at end of file",
		Severity: diag.SevWarning,
		Span:     eof,
		Fix: &diag.Fix{
			Title:         "Add trailing newline",
			Edits:         []diag.Edit{{Span: eof, NewText: "\n"}},
			Applicability: diag.SafeFix,
		},
	}}
}
