package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sambabib/cpm-migrate/pkg/analyzer"
	"github.com/sambabib/cpm-migrate/pkg/logger"
	"github.com/sambabib/cpm-migrate/pkg/manifest"
	"github.com/sambabib/cpm-migrate/pkg/project"
	"github.com/sambabib/cpm-migrate/pkg/rewriter"
)

// DefaultBackupSuffix is appended to a project path to name its backup
// artifact. Backups are left on disk after a successful migration as an
// audit trail.
const DefaultBackupSuffix = ".cpm-backup"

// Outcome is the result of the migrate phase. On failure every project file
// and the manifest are byte-identical to their pre-migration state.
type Outcome struct {
	Success             bool     `json:"success"`
	ProjectsMigrated    int      `json:"projects_migrated"`
	PackagesCentralized int      `json:"packages_centralized"`
	ConflictsResolved   int      `json:"conflicts_resolved"`
	ModifiedPaths       []string `json:"modified_paths,omitempty"`
	ManifestPath        string   `json:"manifest_path,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// Transaction applies an AnalysisPlan with backup-before-mutate and
// rollback-on-failure semantics. Projects are processed strictly one at a
// time, in plan order, so rollback always has a deterministic, complete set
// of backups to restore. The zero value is ready to use.
type Transaction struct {
	// ManifestName overrides the manifest file name, written directly under
	// the plan's root.
	ManifestName string
	// BackupSuffix overrides DefaultBackupSuffix.
	BackupSuffix string
}

// BackupPath names the backup artifact for a project file.
func (t *Transaction) BackupPath(projectPath string) string {
	suffix := t.BackupSuffix
	if suffix == "" {
		suffix = DefaultBackupSuffix
	}
	return projectPath + suffix
}

// ManifestPath names the manifest the transaction writes for a plan.
func (t *Transaction) ManifestPath(plan *analyzer.AnalysisPlan) string {
	name := t.ManifestName
	if name == "" {
		name = project.DefaultManifestName
	}
	return filepath.Join(plan.Root, name)
}

// Run executes the migrate phase: back up every project, write the
// manifest, rewrite each project, commit. Any error or cancellation in the
// forward path triggers a full rollback; cancellation is checked before each
// per-project backup, before the manifest write, and before each per-project
// rewrite, never mid-file, so no file is ever left half-written.
func (t *Transaction) Run(ctx context.Context, plan *analyzer.AnalysisPlan) Outcome {
	if len(plan.ToMigrate) == 0 {
		logger.Infof("Nothing to migrate.")
		return Outcome{Success: true}
	}

	manifestPath := t.ManifestPath(plan)

	// The pre-existing manifest (if any) is snapshotted so rollback can
	// restore it byte-for-byte; a manifest we created ourselves is deleted
	// instead.
	manifestSnapshot, err := os.ReadFile(manifestPath)
	manifestExisted := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		// The manifest path holds something we cannot snapshot. Nothing has
		// been mutated yet, so there is nothing to roll back; removing or
		// overwriting the object here would destroy state we never captured.
		return Outcome{Error: fmt.Sprintf("reading existing manifest %s: %v", manifestPath, err)}
	}

	var backedUp []string

	// Backing-up.
	for _, proj := range plan.ToMigrate {
		if err := ctx.Err(); err != nil {
			return t.fail(err, backedUp, manifestPath, manifestExisted, manifestSnapshot)
		}
		if err := copyFile(proj.Path, t.BackupPath(proj.Path)); err != nil {
			return t.fail(fmt.Errorf("backing up %s: %w", proj.Path, err),
				backedUp, manifestPath, manifestExisted, manifestSnapshot)
		}
		backedUp = append(backedUp, proj.Path)
	}

	// Writing-manifest.
	if err := ctx.Err(); err != nil {
		return t.fail(err, backedUp, manifestPath, manifestExisted, manifestSnapshot)
	}
	if err := manifest.Write(manifestPath, plan.ResolvedVersions); err != nil {
		return t.fail(err, backedUp, manifestPath, manifestExisted, manifestSnapshot)
	}

	// Rewriting-projects. A later failure does not undo earlier rewrites by
	// itself; rollback restores all backed-up projects uniformly.
	var modified []string
	for _, proj := range plan.ToMigrate {
		if err := ctx.Err(); err != nil {
			return t.fail(err, backedUp, manifestPath, manifestExisted, manifestSnapshot)
		}
		ids := make([]string, len(proj.InlineRefs))
		for i, ref := range proj.InlineRefs {
			ids[i] = ref.ID
		}
		if err := rewriter.Rewrite(proj.Path, ids); err != nil {
			return t.fail(err, backedUp, manifestPath, manifestExisted, manifestSnapshot)
		}
		modified = append(modified, proj.Path)
		logger.Debugf("migrate: rewrote %s (%d reference(s))", proj.Path, len(ids))
	}

	return Outcome{
		Success:             true,
		ProjectsMigrated:    len(plan.ToMigrate),
		PackagesCentralized: len(plan.ResolvedVersions),
		ConflictsResolved:   plan.ConflictCount,
		ModifiedPaths:       modified,
		ManifestPath:        manifestPath,
	}
}

// fail rolls back and shapes the failure outcome, distinguishing
// cancellation from I/O errors.
func (t *Transaction) fail(cause error, backedUp []string, manifestPath string, manifestExisted bool, manifestSnapshot []byte) Outcome {
	t.rollback(backedUp, manifestPath, manifestExisted, manifestSnapshot)
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		msg = "migration cancelled"
	}
	return Outcome{Error: msg}
}

// rollback restores every backed-up project and the manifest. Best-effort
// throughout: a failed restoration is logged and the rest still proceed, so
// the original failure is never compounded into an abandoned restore.
func (t *Transaction) rollback(backedUp []string, manifestPath string, manifestExisted bool, manifestSnapshot []byte) {
	for _, path := range backedUp {
		if err := copyFile(t.BackupPath(path), path); err != nil {
			logger.Warnf("rollback: could not restore %s: %v", path, err)
		}
	}
	if manifestExisted {
		if err := os.WriteFile(manifestPath, manifestSnapshot, 0644); err != nil {
			logger.Warnf("rollback: could not restore manifest %s: %v", manifestPath, err)
		}
		return
	}
	if err := os.Remove(manifestPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("rollback: could not remove manifest %s: %v", manifestPath, err)
	}
}

// copyFile copies src's bytes over dst, preserving src's file mode.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}
