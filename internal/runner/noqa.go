package runner

import (
	"regexp"
	"strings"

	"github.com/flint-py/flint/internal/source"
)

var (
	noqaPattern     = regexp.MustCompile(`(?i)#\s*noqa(?::\s*([A-Z0-9, \t]+))?`)
	fileNoqaPattern = regexp.MustCompile(`(?i)#\s*(?:flint|ruff)\s*:\s*noqa\s*$`)
)

// suppressions is the per-unit index of inline noqa directives.
type suppressions struct {
	// wholeFile suppresses every code in the unit.
	wholeFile bool
	// byLine maps a 1-based line to its suppressed codes; a nil slice
	// means a bare `# noqa` suppressing everything on that line.
	byLine map[int][]string
}

// parseSuppressions scans raw lines once for directives. A directive
// applies to diagnostics whose primary range starts on its line.
func parseSuppressions(unit *source.Unit) *suppressions {
	sup := &suppressions{byLine: make(map[int][]string)}
	text := string(unit.Text)
	for i, line := range strings.Split(text, "\n") {
		if fileNoqaPattern.MatchString(strings.TrimSpace(line)) {
			sup.wholeFile = true
			continue
		}
		m := noqaPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if m[1] == "" {
			sup.byLine[i+1] = nil
			continue
		}
		var codes []string
		for _, c := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			codes = append(codes, strings.ToUpper(c))
		}
		// `# noqa:` with nothing after the colon acts like a bare noqa.
		sup.byLine[i+1] = codes
	}
	return sup
}

// suppressed reports whether a diagnostic with code starting on line is
// covered by a directive.
func (s *suppressions) suppressed(code string, line int) bool {
	if s.wholeFile {
		return true
	}
	codes, ok := s.byLine[line]
	if !ok {
		return false
	}
	if codes == nil {
		return true
	}
	code = strings.ToUpper(code)
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
