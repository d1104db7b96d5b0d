package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sambabib/cpm-migrate/pkg/logger"
	"github.com/sambabib/cpm-migrate/pkg/project"
	"github.com/sambabib/cpm-migrate/pkg/scanner"
)

// Skip reasons surfaced to users. Analysis problems are data, not errors:
// the batch always completes and returns a full plan.
const (
	SkipReasonLegacyManifest = "legacy packages.config present; migrate to modern package references first"
	SkipReasonNoReferences   = "no package references"
	SkipReasonAlreadyCentral = "already centrally managed"
)

// Analyzer classifies project files for CPM migration and resolves
// cross-project version conflicts into a single plan.
type Analyzer struct {
	// Scanner discovers project files; nil selects a .csproj scanner with
	// the default exclusion set.
	Scanner *scanner.Scanner
	// IgnorePackage reports whether a package id's inline version is
	// deliberately left in place, like an override. Nil ignores nothing;
	// config.Config.IsPackageIgnored is the usual value.
	IgnorePackage func(id string) bool
	// Workers bounds the parallel per-project analysis fan-out; <= 0 uses
	// one worker per CPU.
	Workers int
}

// Analyze scans root and produces the plan for a subsequent migration. The
// phase is read-only: it never mutates disk state. Per-project analysis runs
// on a bounded worker pool; the conflict-resolution fold is sequential and
// order-independent, so the plan is deterministic regardless of fan-out.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*AnalysisPlan, error) {
	sc := a.Scanner
	if sc == nil {
		sc = scanner.New(scanner.MigrationExtensions, nil)
	}
	paths := sc.Scan(root)
	logger.Debugf("analyzer: found %d project file(s) under %s", len(paths), root)

	results := make([]ProjectAnalysis, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	workers := a.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.AnalyzeProject(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}

	plan := &AnalysisPlan{Root: root}
	for _, res := range results {
		if res.Skipped() {
			logger.Debugf("analyzer: skipping %s: %s", res.Name, res.SkipReason)
			plan.Skipped = append(plan.Skipped, res)
		} else {
			plan.ToMigrate = append(plan.ToMigrate, res)
		}
	}
	plan.ResolvedVersions, plan.ConflictCount = Resolve(plan.ToMigrate)
	return plan, nil
}

// AnalyzeProject classifies one project file. The legacy-manifest check runs
// before the project file is opened at all; parse failures become skip
// reasons carrying the parser's message rather than silently dropping the
// file.
func (a *Analyzer) AnalyzeProject(path string) ProjectAnalysis {
	res := ProjectAnalysis{
		Path: path,
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	legacy := filepath.Join(filepath.Dir(path), project.LegacyManifestName)
	if info, err := os.Stat(legacy); err == nil && !info.IsDir() {
		res.SkipReason = SkipReasonLegacyManifest
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		res.SkipReason = fmt.Sprintf("cannot read project file: %v", err)
		return res
	}
	f, err := project.Parse(path, data)
	if err != nil {
		res.SkipReason = fmt.Sprintf("project file is not valid XML: %v", err)
		return res
	}

	if len(f.References) == 0 {
		res.SkipReason = SkipReasonNoReferences
		return res
	}

	for _, ref := range f.References {
		// Overrides are an intentional escape hatch and already-central
		// references have nothing inline to migrate; both drop the single
		// reference, never the project.
		if ref.Source != project.SourceInline {
			continue
		}
		if a.IgnorePackage != nil && a.IgnorePackage(ref.ID) {
			continue
		}
		res.InlineRefs = append(res.InlineRefs, PackageRef{ID: ref.ID, Version: ref.Version})
	}

	if len(res.InlineRefs) == 0 {
		res.SkipReason = SkipReasonAlreadyCentral
	}
	return res
}
