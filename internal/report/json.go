package report

import (
	"encoding/json"
	"io"

	"github.com/flint-py/flint/internal/driver"
	"github.com/flint-py/flint/internal/source"
)

// jsonDiagnostic is the wire form of one diagnostic.
type jsonDiagnostic struct {
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Fixable  bool   `json:"fixable"`
	Pending  bool   `json:"pending,omitempty"`
	FixTitle string `json:"fix_title,omitempty"`
}

type jsonUnit struct {
	Path        string           `json:"path"`
	Status      string           `json:"status"`
	FixedCount  int              `json:"fixed_count"`
	FromCache   bool             `json:"from_cache"`
	Error       string           `json:"error,omitempty"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
}

// JSON writes the whole run as one JSON array, one element per unit.
func JSON(w io.Writer, reports []driver.UnitReport) error {
	units := make([]jsonUnit, 0, len(reports))
	for _, rep := range reports {
		u := jsonUnit{Path: rep.Path, FromCache: rep.FromCache, Diagnostics: []jsonDiagnostic{}}
		if rep.Err != nil {
			u.Error = rep.Err.Error()
			units = append(units, u)
			continue
		}
		if rep.Result == nil {
			continue
		}
		u.Status = rep.Result.Status.String()
		u.FixedCount = rep.Result.FixedCount
		lines := source.NewLineIndex(rep.Result.Text)
		for _, d := range rep.Result.Diagnostics {
			line, col := lines.Position(d.Span.Start)
			jd := jsonDiagnostic{
				Path:     rep.Path,
				Line:     line,
				Column:   col,
				Code:     d.Code,
				Message:  d.Message,
				Severity: d.Severity.String(),
				Fixable:  d.HasFix(),
				Pending:  d.Pending,
			}
			if d.Fix != nil {
				jd.FixTitle = d.Fix.Title
			}
			u.Diagnostics = append(u.Diagnostics, jd)
		}
		units = append(units, u)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(units)
}
