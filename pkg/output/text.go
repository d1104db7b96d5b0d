package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sambabib/cpm-migrate/pkg/analyzer"
	"github.com/sambabib/cpm-migrate/pkg/migrate"
)

// PrintPlanText prints the analysis plan in a tabular text format.
func PrintPlanText(w io.Writer, plan *analyzer.AnalysisPlan) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) // minwidth, tabwidth, padding, padchar, flags

	fmt.Fprintln(tw, "PROJECT\tACTION\tDETAIL")
	fmt.Fprintln(tw, "-------\t------\t------")
	for _, proj := range plan.ToMigrate {
		fmt.Fprintf(tw, "%s\tmigrate\t%d package(s)\n", proj.Name, len(proj.InlineRefs))
	}
	for _, proj := range plan.Skipped {
		fmt.Fprintf(tw, "%s\tskip\t%s\n", proj.Name, proj.SkipReason)
	}
	tw.Flush()

	if len(plan.ResolvedVersions) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PACKAGE\tRESOLVED\tSEEN")
		fmt.Fprintln(tw, "-------\t--------\t----")
		for _, pkg := range summarizePackages(plan) {
			seen := strings.Join(pkg.Versions, ", ")
			if pkg.Conflicted() {
				seen += " (conflict)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", pkg.ID, pkg.Resolved, seen)
		}
		tw.Flush()
	}

	fmt.Fprintf(w, "\n%d project(s) to migrate, %d skipped, %d package(s), %d conflict(s)\n",
		len(plan.ToMigrate), len(plan.Skipped), len(plan.ResolvedVersions), plan.ConflictCount)
}

// PrintOutcomeText prints the migration outcome.
func PrintOutcomeText(w io.Writer, out migrate.Outcome) {
	if !out.Success {
		fmt.Fprintf(w, "Migration failed: %s\n", out.Error)
		return
	}
	fmt.Fprintf(w, "Migrated %d project(s), centralized %d package(s), resolved %d conflict(s)\n",
		out.ProjectsMigrated, out.PackagesCentralized, out.ConflictsResolved)
	if out.ManifestPath != "" {
		fmt.Fprintf(w, "Manifest: %s\n", out.ManifestPath)
	}
	for _, path := range out.ModifiedPaths {
		fmt.Fprintf(w, "  rewrote %s\n", path)
	}
}
