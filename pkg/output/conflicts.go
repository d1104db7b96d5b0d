package output

import (
	"sort"
	"strings"

	"github.com/sambabib/cpm-migrate/pkg/analyzer"
)

// packageSummary is one resolved package as rendered in reports.
type packageSummary struct {
	ID       string   // first-seen spelling
	Resolved string   // authoritative version
	Versions []string // distinct version texts seen across projects
}

// Conflicted reports whether the package appeared with more than one
// distinct version text.
func (p packageSummary) Conflicted() bool {
	return len(p.Versions) > 1
}

// summarizePackages regroups the plan's inline references per package id so
// reports can show which version texts each resolution collapsed. Sorted by
// id for stable output.
func summarizePackages(plan *analyzer.AnalysisPlan) []packageSummary {
	type group struct {
		id       string
		versions []string
		seen     map[string]bool
	}
	groups := make(map[string]*group)
	for _, proj := range plan.ToMigrate {
		for _, ref := range proj.InlineRefs {
			key := strings.ToLower(ref.ID)
			g, ok := groups[key]
			if !ok {
				g = &group{id: ref.ID, seen: map[string]bool{}}
				groups[key] = g
			}
			if !g.seen[ref.Version] {
				g.seen[ref.Version] = true
				g.versions = append(g.versions, ref.Version)
			}
		}
	}

	summaries := make([]packageSummary, 0, len(groups))
	for _, g := range groups {
		sort.Strings(g.versions)
		summaries = append(summaries, packageSummary{
			ID:       g.id,
			Resolved: plan.ResolvedVersions[g.id],
			Versions: g.versions,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return strings.ToLower(summaries[i].ID) < strings.ToLower(summaries[j].ID)
	})
	return summaries
}
