package analyzer

import (
	"strings"

	"github.com/sambabib/cpm-migrate/pkg/version"
)

// Resolve aggregates the inline versions of every migratable project and
// picks one authoritative version per package id. Grouping is
// case-insensitive; each package keeps its first-seen spelling as the map
// key. A package id counts as one conflict when it appears with more than
// one distinct version text, no matter how many projects disagree.
//
// The reduction is a per-key maximum under version.Max, which is commutative
// and associative, so the result depends only on the multiset of version
// texts and never on scan order.
func Resolve(toMigrate []ProjectAnalysis) (resolved map[string]string, conflicts int) {
	type group struct {
		id       string // first-seen spelling
		max      string
		distinct map[string]bool
	}
	groups := make(map[string]*group)
	var order []string

	for _, proj := range toMigrate {
		for _, ref := range proj.InlineRefs {
			key := strings.ToLower(ref.ID)
			g, ok := groups[key]
			if !ok {
				g = &group{id: ref.ID, max: ref.Version, distinct: map[string]bool{}}
				groups[key] = g
				order = append(order, key)
			}
			g.max = version.Max(g.max, ref.Version)
			g.distinct[ref.Version] = true
		}
	}

	resolved = make(map[string]string, len(groups))
	for _, key := range order {
		g := groups[key]
		resolved[g.id] = g.max
		if len(g.distinct) > 1 {
			conflicts++
		}
	}
	return resolved, conflicts
}
