package rewriter

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between a project's current content and its
// rewritten form, for dry-run previews.
func Diff(path string, before, after []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
}
