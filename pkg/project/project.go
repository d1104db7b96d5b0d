package project

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultManifestName is the conventional file name of the centralized
// package-version manifest.
const DefaultManifestName = "Directory.Packages.props"

// LegacyManifestName is the per-project dependency manifest of the legacy
// packages.config era. Its presence next to a project file blocks migration.
const LegacyManifestName = "packages.config"

// Source identifies where a package reference's effective version comes from.
type Source int

const (
	// SourceInline means the version is declared directly in the project file.
	SourceInline Source = iota
	// SourceCentral means the version comes from the centralized manifest.
	SourceCentral
	// SourceOverride means the project explicitly overrides the central
	// version via VersionOverride. Never touched by migration.
	SourceOverride
)

func (s Source) String() string {
	switch s {
	case SourceInline:
		return "inline"
	case SourceCentral:
		return "central"
	case SourceOverride:
		return "override"
	}
	return "unknown"
}

// Span is a half-open byte range [Start, End) in a file's raw content.
type Span struct {
	Start, End int
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Reference is one PackageReference (or PackageVersion, in a manifest)
// parsed from a project file. Update-kind references are never surfaced.
// The spans index into the raw bytes the file was parsed from and let the
// rewriter and manifest writer edit targeted regions without re-serializing
// the document.
type Reference struct {
	ID      string // Include identifier, verbatim
	Version string // inline or override version text; central versions are filled in by Reader
	Source  Source

	// Tag spans the start tag; for self-closing elements that is the whole
	// element. VersionAttr covers the Version attribute including its leading
	// whitespace; VersionChild covers a <Version> child element.
	Tag          Span
	VersionAttr  Span
	VersionChild Span
}

// ItemGroup records where an <ItemGroup> element closes, for appending new
// entries into a manifest.
type ItemGroup struct {
	HasVersions bool // contains at least one PackageVersion
	InsertAt    int  // byte offset of the group's end tag
	SelfClosing bool
}

// File is a parsed project or manifest file.
type File struct {
	Path       string
	Data       []byte
	References []Reference // PackageReference items
	Versions   []Reference // PackageVersion items (manifests)
	ItemGroups []ItemGroup
	ProjectEnd int // byte offset of the </Project> end tag, -1 if absent

	// CentralProperty reflects ManagePackageVersionsCentrally when declared.
	CentralProperty *bool
}

// Name derives the project's display name from its path.
func (f *File) Name() string {
	base := filepath.Base(f.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// versionAttrRe matches a Version attribute with its leading whitespace, so
// splicing the match out of a start tag leaves the rest intact. The required
// leading whitespace keeps it from matching inside VersionOverride.
var versionAttrRe = regexp.MustCompile(`\s+Version\s*=\s*("[^"]*"|'[^']*')`)

// Parse reads MSBuild-style XML, collecting package references, version
// entries, and the structural offsets editing needs. The document is never
// re-serialized; all later edits are byte splices against data.
func Parse(path string, data []byte) (*File, error) {
	f := &File{Path: path, Data: data, ProjectEnd: -1}
	dec := xml.NewDecoder(bytes.NewReader(data))

	type groupFrame struct {
		tagEnd      int
		hasVersions bool
	}
	var groups []groupFrame

	for {
		tokStart := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "ManagePackageVersionsCentrally":
				text, _, err := consumeElement(dec)
				if err != nil {
					return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
				}
				v := strings.EqualFold(strings.TrimSpace(text), "true")
				f.CentralProperty = &v
			case "ItemGroup":
				groups = append(groups, groupFrame{tagEnd: int(dec.InputOffset())})
			case "PackageReference", "PackageVersion":
				ref, visible, err := parseReference(dec, data, el, int(tokStart))
				if err != nil {
					return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
				}
				if !visible {
					continue
				}
				if el.Name.Local == "PackageVersion" {
					f.Versions = append(f.Versions, ref)
					if len(groups) > 0 {
						groups[len(groups)-1].hasVersions = true
					}
				} else {
					f.References = append(f.References, ref)
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "ItemGroup":
				if len(groups) > 0 {
					frame := groups[len(groups)-1]
					groups = groups[:len(groups)-1]
					f.ItemGroups = append(f.ItemGroups, ItemGroup{
						HasVersions: frame.hasVersions,
						InsertAt:    int(tokStart),
						SelfClosing: int(tokStart) == frame.tagEnd,
					})
				}
			case "Project":
				f.ProjectEnd = int(tokStart)
			}
		}
	}
	return f, nil
}

// parseReference consumes one PackageReference/PackageVersion element and
// classifies it. visible is false for Update-kind references and elements
// without an Include identifier; those are invisible to every caller.
func parseReference(dec *xml.Decoder, data []byte, start xml.StartElement, tagStart int) (ref Reference, visible bool, err error) {
	tagEnd := int(dec.InputOffset())

	var include, overrideVal, attrVal string
	var hasUpdate, hasOverride bool
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "Include":
			include = a.Value
		case "Update":
			hasUpdate = true
		case "VersionOverride":
			hasOverride = true
			overrideVal = a.Value
		case "Version":
			attrVal = a.Value
		}
	}

	// Walk the element's subtree, capturing a <Version> child if present.
	var childSpan Span
	var childText string
	depth := 1
	for depth > 0 {
		pos := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return Reference{}, false, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if depth == 1 && el.Name.Local == "Version" {
				text, end, err := consumeElement(dec)
				if err != nil {
					return Reference{}, false, err
				}
				childSpan = Span{Start: int(pos), End: int(end)}
				childText = text
			} else {
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	if include == "" || hasUpdate {
		return Reference{}, false, nil
	}

	ref = Reference{
		ID:  include,
		Tag: Span{Start: tagStart, End: tagEnd},
	}
	if loc := versionAttrRe.FindIndex(data[tagStart:tagEnd]); loc != nil {
		ref.VersionAttr = Span{Start: tagStart + loc[0], End: tagStart + loc[1]}
	}
	ref.VersionChild = childSpan

	switch {
	case hasOverride:
		ref.Source = SourceOverride
		ref.Version = overrideVal
	case strings.TrimSpace(attrVal) != "":
		ref.Source = SourceInline
		ref.Version = attrVal
	case strings.TrimSpace(childText) != "":
		ref.Source = SourceInline
		ref.Version = strings.TrimSpace(childText)
	default:
		// No inline declaration at all: the version must come from the
		// manifest. Whitespace-only values count as absent.
		ref.Source = SourceCentral
	}
	return ref, true, nil
}

// consumeElement reads through the current element's matching end tag,
// returning its flattened character data and the offset just past the end
// tag.
func consumeElement(dec *xml.Decoder) (text string, end int64, err error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", 0, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				sb.Write(t)
			}
		}
	}
	return sb.String(), dec.InputOffset(), nil
}
