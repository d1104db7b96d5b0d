package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Status describes how one project resolves its package versions. Produced
// by Reader, typically after a migration to confirm its effect.
type Status struct {
	Path           string
	CentralEnabled bool
	ManifestPath   string // discovered manifest, empty if none applies
	References     []Reference
}

// Reader reports whether centralized package management is active for a
// project and which source (inline, central, override) supplies each
// reference's effective version. The migration engine itself never depends
// on it; callers use it to verify migration results.
type Reader struct {
	// ManifestName overrides the conventional manifest file name.
	ManifestName string
}

// Read parses the project at path and resolves its central-management state:
// an explicit ManagePackageVersionsCentrally property in the project wins,
// otherwise the property of a manifest discovered in the project's directory
// or any parent decides. Central references get their Version filled in from
// the manifest's entries.
func (r *Reader) Read(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", path, err)
	}
	f, err := Parse(path, data)
	if err != nil {
		return nil, err
	}

	st := &Status{Path: path, References: f.References}
	st.ManifestPath = r.findManifest(filepath.Dir(path))

	var manifest *File
	if st.ManifestPath != "" {
		if mdata, err := os.ReadFile(st.ManifestPath); err == nil {
			manifest, _ = Parse(st.ManifestPath, mdata)
		}
	}

	switch {
	case f.CentralProperty != nil:
		st.CentralEnabled = *f.CentralProperty
	case manifest != nil && manifest.CentralProperty != nil:
		st.CentralEnabled = *manifest.CentralProperty
	}

	if manifest != nil {
		central := make(map[string]string, len(manifest.Versions))
		for _, v := range manifest.Versions {
			central[strings.ToLower(v.ID)] = v.Version
		}
		for i := range st.References {
			if st.References[i].Source == SourceCentral {
				st.References[i].Version = central[strings.ToLower(st.References[i].ID)]
			}
		}
	}
	return st, nil
}

// findManifest walks from dir up to the filesystem root looking for the
// manifest file, nearest match first.
func (r *Reader) findManifest(dir string) string {
	name := r.ManifestName
	if name == "" {
		name = DefaultManifestName
	}
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
