package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/sambabib/cpm-migrate/pkg/logger"
	"github.com/sambabib/cpm-migrate/pkg/project"
	"github.com/sambabib/cpm-migrate/pkg/version"
)

// Write creates the centralized manifest at path, or merges resolved
// versions into an existing one. Merging never lowers a pre-existing entry
// (equal versions are left alone too), never touches entries outside
// resolved, and preserves every byte of the existing file outside the
// targeted edits.
func Write(path string, resolved map[string]string) error {
	existing, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading manifest %s: %w", path, err)
		}
		existing = nil
	}
	out, err := Merge(path, existing, resolved)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// Merge computes the manifest content that Write would produce, without
// touching disk. A nil existing produces a fresh manifest with the
// central-management marker.
func Merge(path string, existing []byte, resolved map[string]string) ([]byte, error) {
	if existing == nil {
		return render(resolved), nil
	}

	f, err := project.Parse(path, existing)
	if err != nil {
		return nil, fmt.Errorf("existing manifest %s: %w", path, err)
	}

	// First occurrence wins when the manifest repeats an id.
	entries := make(map[string]project.Reference, len(f.Versions))
	for _, v := range f.Versions {
		key := strings.ToLower(v.ID)
		if _, ok := entries[key]; !ok {
			entries[key] = v
		}
	}

	type edit struct {
		span project.Span
		text string
	}
	var edits []edit
	var missing []string

	for _, id := range sortedIDs(resolved) {
		want := resolved[id]
		entry, ok := entries[strings.ToLower(id)]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if !version.GreaterThan(want, entry.Version) {
			logger.Debugf("manifest: keeping %s at %s (resolved %s is not newer)", entry.ID, entry.Version, want)
			continue
		}
		logger.Debugf("manifest: upgrading %s from %s to %s", entry.ID, entry.Version, want)
		switch {
		case !entry.VersionAttr.Empty():
			raw := string(existing[entry.VersionAttr.Start:entry.VersionAttr.End])
			edits = append(edits, edit{entry.VersionAttr, replaceAttrValue(raw, want)})
		case !entry.VersionChild.Empty():
			edits = append(edits, edit{entry.VersionChild, "<Version>" + want + "</Version>"})
		default:
			// Entry without any version at all: add the attribute.
			span, text := addAttrEdit(existing, entry.Tag, want)
			edits = append(edits, edit{span, text})
		}
	}

	if len(missing) > 0 {
		span, text, err := appendEntries(f, existing, missing, resolved)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit{span, text})
	}

	// Splice back-to-front so earlier offsets stay valid.
	sort.Slice(edits, func(i, j int) bool { return edits[i].span.Start > edits[j].span.Start })
	out := append([]byte(nil), existing...)
	for _, e := range edits {
		out = append(out[:e.span.Start], append([]byte(e.text), out[e.span.End:]...)...)
	}
	return out, nil
}

// render produces a fresh manifest. Entry order is not semantically
// significant; ids are sorted so output is stable.
func render(resolved map[string]string) []byte {
	var sb strings.Builder
	sb.WriteString("<Project>\n")
	sb.WriteString("  <PropertyGroup>\n")
	sb.WriteString("    <ManagePackageVersionsCentrally>true</ManagePackageVersionsCentrally>\n")
	sb.WriteString("  </PropertyGroup>\n")
	sb.WriteString("  <ItemGroup>\n")
	for _, id := range sortedIDs(resolved) {
		fmt.Fprintf(&sb, "    <PackageVersion Include=%q Version=%q />\n", id, resolved[id])
	}
	sb.WriteString("  </ItemGroup>\n")
	sb.WriteString("</Project>\n")
	return []byte(sb.String())
}

// appendEntries builds the single insertion that adds the missing ids to the
// first item group already holding PackageVersion entries, falling back to
// the first item group, then to a brand-new group before </Project>.
func appendEntries(f *project.File, data []byte, ids []string, resolved map[string]string) (project.Span, string, error) {
	var target *project.ItemGroup
	for i := range f.ItemGroups {
		g := &f.ItemGroups[i]
		if g.SelfClosing {
			continue
		}
		if g.HasVersions {
			target = g
			break
		}
		if target == nil {
			target = g
		}
	}

	if target != nil {
		pos := target.InsertAt
		lineStart, indent, ownLine := lineIndent(data, pos)
		entryIndent := indent + "  "
		if target.HasVersions && len(f.Versions) > 0 {
			if _, ei, own := lineIndent(data, f.Versions[0].Tag.Start); own {
				entryIndent = ei
			}
		}
		var sb strings.Builder
		for _, id := range ids {
			if ownLine {
				fmt.Fprintf(&sb, "%s<PackageVersion Include=%q Version=%q />\n", entryIndent, id, resolved[id])
			} else {
				fmt.Fprintf(&sb, "<PackageVersion Include=%q Version=%q />", id, resolved[id])
			}
		}
		at := pos
		if ownLine {
			at = lineStart
		}
		return project.Span{Start: at, End: at}, sb.String(), nil
	}

	if f.ProjectEnd < 0 {
		return project.Span{}, "", fmt.Errorf("manifest %s has no closing Project element", f.Path)
	}
	lineStart, indent, ownLine := lineIndent(data, f.ProjectEnd)
	groupIndent := indent + "  "
	var sb strings.Builder
	if !ownLine {
		sb.WriteString("\n")
	}
	sb.WriteString(groupIndent + "<ItemGroup>\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "%s  <PackageVersion Include=%q Version=%q />\n", groupIndent, id, resolved[id])
	}
	sb.WriteString(groupIndent + "</ItemGroup>\n")
	at := f.ProjectEnd
	if ownLine {
		at = lineStart
	}
	return project.Span{Start: at, End: at}, sb.String(), nil
}

// replaceAttrValue swaps the quoted value of a raw ` Version="..."`
// attribute, keeping the original quote character.
func replaceAttrValue(raw, value string) string {
	i := strings.IndexAny(raw, `"'`)
	if i < 0 {
		return raw
	}
	q := raw[i]
	return raw[:i+1] + value + string(q)
}

// addAttrEdit produces the edit inserting a Version attribute just before a
// start tag's closing marker.
func addAttrEdit(data []byte, tag project.Span, value string) (project.Span, string) {
	raw := string(data[tag.Start:tag.End])
	i := strings.LastIndex(raw, "/>")
	if i < 0 {
		i = strings.LastIndex(raw, ">")
	}
	if i < 0 {
		return project.Span{Start: tag.End, End: tag.End}, ""
	}
	at := tag.Start + i
	text := fmt.Sprintf("Version=%q ", value)
	if i > 0 && raw[i-1] != ' ' && raw[i-1] != '\t' {
		text = " " + text
	}
	return project.Span{Start: at, End: at}, text
}

// lineIndent returns the start offset of the line containing pos, the
// leading whitespace of that line, and whether everything between the line
// start and pos is whitespace (i.e. pos begins its own line).
func lineIndent(data []byte, pos int) (lineStart int, indent string, ownLine bool) {
	ls := pos
	for ls > 0 && data[ls-1] != '\n' {
		ls--
	}
	i := ls
	for i < pos && (data[i] == ' ' || data[i] == '\t') {
		i++
	}
	return ls, string(data[ls:i]), i == pos
}

func sortedIDs(resolved map[string]string) []string {
	ids := make([]string, 0, len(resolved))
	for id := range resolved {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return strings.ToLower(ids[i]) < strings.ToLower(ids[j])
	})
	return ids
}
