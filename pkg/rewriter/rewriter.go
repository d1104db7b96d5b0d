package rewriter

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sambabib/cpm-migrate/pkg/logger"
	"github.com/sambabib/cpm-migrate/pkg/project"
)

// Rewrite strips the inline version declaration from every package reference
// in the project file whose id is in ids. Matching is by id only,
// case-insensitively; override references, Update-kind references, and
// everything else in the file keep their exact bytes.
func Rewrite(path string, ids []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading project %s: %w", path, err)
	}
	out, err := Strip(path, data, ids)
	if err != nil {
		return err
	}
	if string(out) == string(data) {
		logger.Debugf("rewriter: %s needed no changes", path)
		return nil
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing project %s: %w", path, err)
	}
	return nil
}

// Strip computes the rewritten project content without touching disk.
// Version attributes are spliced out of their start tags; version child
// elements are removed together with their line when they sit on one of
// their own.
func Strip(path string, data []byte, ids []string) ([]byte, error) {
	f, err := project.Parse(path, data)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[strings.ToLower(id)] = true
	}

	var removals []project.Span
	for _, ref := range f.References {
		if ref.Source != project.SourceInline || !wanted[strings.ToLower(ref.ID)] {
			continue
		}
		if !ref.VersionAttr.Empty() {
			removals = append(removals, ref.VersionAttr)
		}
		if !ref.VersionChild.Empty() {
			removals = append(removals, expandToLine(data, ref.VersionChild))
		}
	}

	sort.Slice(removals, func(i, j int) bool { return removals[i].Start > removals[j].Start })
	out := append([]byte(nil), data...)
	for _, span := range removals {
		out = append(out[:span.Start], out[span.End:]...)
	}
	return out, nil
}

// expandToLine widens a span to swallow its whole line when the span is the
// only content on it, so removing a child element does not leave a blank
// line behind.
func expandToLine(data []byte, span project.Span) project.Span {
	start := span.Start
	for start > 0 && (data[start-1] == ' ' || data[start-1] == '\t') {
		start--
	}
	if start > 0 && data[start-1] != '\n' {
		return span // something else precedes the element on this line
	}

	end := span.End
	for end < len(data) && (data[end] == ' ' || data[end] == '\t') {
		end++
	}
	if end < len(data) && data[end] == '\r' {
		end++
	}
	if end < len(data) && data[end] == '\n' {
		return project.Span{Start: start, End: end + 1}
	}
	return span
}
