package fix

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders the rewrite as a unified diff against the
// original, for report-only fix mode.
func UnifiedDiff(path string, original, rewritten []byte) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(rewritten)),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("diffing %s: %w", path, err)
	}
	return text, nil
}
