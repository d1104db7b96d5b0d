package analyzer

// PackageRef is one inline (packageId, versionText) pair found in a project
// file. IDs are compared case-insensitively everywhere but stored verbatim.
type PackageRef struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// ProjectAnalysis is the classification of a single scanned project file:
// either migratable (with its inline references) or skipped (with a
// user-facing reason). A project with a non-empty SkipReason never reaches
// the migrate phase.
type ProjectAnalysis struct {
	Path       string       `json:"path"`
	Name       string       `json:"name"`
	InlineRefs []PackageRef `json:"inline_refs,omitempty"`
	SkipReason string       `json:"skip_reason,omitempty"`
}

// Skipped reports whether the project is excluded from migration.
func (p ProjectAnalysis) Skipped() bool {
	return p.SkipReason != ""
}

// AnalysisPlan is the immutable result of the analyze phase. The migrate
// phase consumes it as-is; ResolvedVersions holds exactly one entry for
// every package id appearing in any ToMigrate project, keyed by the id's
// first-seen spelling.
type AnalysisPlan struct {
	Root             string            `json:"root"`
	ToMigrate        []ProjectAnalysis `json:"to_migrate"`
	Skipped          []ProjectAnalysis `json:"skipped"`
	ResolvedVersions map[string]string `json:"resolved_versions"`
	ConflictCount    int               `json:"conflict_count"`
}
