package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sambabib/cpm-migrate/pkg/analyzer"
	"github.com/sambabib/cpm-migrate/pkg/config"
	"github.com/sambabib/cpm-migrate/pkg/logger"
	"github.com/sambabib/cpm-migrate/pkg/manifest"
	"github.com/sambabib/cpm-migrate/pkg/migrate"
	"github.com/sambabib/cpm-migrate/pkg/output"
	"github.com/sambabib/cpm-migrate/pkg/project"
	"github.com/sambabib/cpm-migrate/pkg/rewriter"
)

var migratePath string
var migrateFormat string
var migrateOutput string
var dryRun bool
var assumeYes bool

// migrateCmd represents the migrate subcommand
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate projects to Central Package Management",
	Long: `Migrate runs the analyze phase, then rewrites every migratable project:
inline versions move into the centralized manifest and are stripped from
the project files. Each project is backed up first; any failure or
interrupt rolls the whole tree back to its pre-migration state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(migratePath)
		if err != nil {
			return err
		}

		plan, err := newAnalyzer(cfg).Analyze(cmd.Context(), migratePath)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		// Machine-readable formats get a single document on stdout; the
		// human-readable plan preamble is text-only.
		textOut := isTextFormat(effectiveFormat(cfg, migrateFormat))
		if textOut {
			output.PrintPlanText(os.Stdout, plan)
		}
		if len(plan.ToMigrate) == 0 {
			if textOut {
				fmt.Println("\nNothing to migrate.")
				return nil
			}
			return renderOutcome(cfg, plan, migrate.Outcome{Success: true})
		}

		tx := &migrate.Transaction{ManifestName: cfg.ManifestName, BackupSuffix: cfg.BackupSuffix}

		if dryRun {
			return printDryRun(tx, plan)
		}
		if !assumeYes && !confirm(fmt.Sprintf("\nMigrate %d project(s)?", len(plan.ToMigrate))) {
			fmt.Println("Aborted.")
			return nil
		}

		out := tx.Run(cmd.Context(), plan)
		if err := renderOutcome(cfg, plan, out); err != nil {
			return err
		}
		if !out.Success {
			return errors.New(out.Error)
		}
		verifyMigration(cfg, out)
		return nil
	},
}

// printDryRun shows the manifest that would be written and a unified diff
// per project rewrite, without touching disk.
func printDryRun(tx *migrate.Transaction, plan *analyzer.AnalysisPlan) error {
	manifestPath := tx.ManifestPath(plan)
	existing, err := os.ReadFile(manifestPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		existing = nil
	}
	merged, err := manifest.Merge(manifestPath, existing, plan.ResolvedVersions)
	if err != nil {
		return err
	}
	fmt.Printf("\n--- %s (would be written) ---\n%s", manifestPath, merged)

	for _, proj := range plan.ToMigrate {
		before, err := os.ReadFile(proj.Path)
		if err != nil {
			return err
		}
		ids := make([]string, len(proj.InlineRefs))
		for i, ref := range proj.InlineRefs {
			ids[i] = ref.ID
		}
		after, err := rewriter.Strip(proj.Path, before, ids)
		if err != nil {
			return err
		}
		diff, err := rewriter.Diff(proj.Path, before, after)
		if err != nil {
			return err
		}
		if diff != "" {
			fmt.Printf("\n%s", diff)
		}
	}
	fmt.Println("\nDry run: no files were modified.")
	return nil
}

// verifyMigration re-reads each rewritten project with the project reader
// and reports whether its packages now resolve centrally.
func verifyMigration(cfg *config.Config, out migrate.Outcome) {
	reader := &project.Reader{ManifestName: cfg.ManifestName}
	for _, path := range out.ModifiedPaths {
		st, err := reader.Read(path)
		if err != nil {
			logger.Warnf("verify: could not re-read %s: %v", path, err)
			continue
		}
		central := 0
		for _, ref := range st.References {
			if ref.Source == project.SourceCentral {
				central++
			}
		}
		logger.Debugf("verify: %s central=%v, %d/%d reference(s) centrally managed",
			path, st.CentralEnabled, central, len(st.References))
	}
}

// effectiveFormat resolves the output format, flag over config file.
func effectiveFormat(cfg *config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Output.Format
}

func isTextFormat(format string) bool {
	return format == "" || format == "text"
}

func renderOutcome(cfg *config.Config, plan *analyzer.AnalysisPlan, out migrate.Outcome) error {
	format := effectiveFormat(cfg, migrateFormat)
	file := migrateOutput
	if file == "" {
		file = cfg.Output.File
	}

	switch format {
	case "json":
		data, err := output.GenerateOutcomeJSON(out)
		if err != nil {
			return fmt.Errorf("failed to marshal outcome to JSON: %w", err)
		}
		return emit(data, file)
	case "sarif":
		data, err := output.GenerateSarifReport(plan, &out)
		if err != nil {
			return fmt.Errorf("failed to generate SARIF report: %w", err)
		}
		return emit(data, file)
	case "text", "":
		fmt.Println()
		output.PrintOutcomeText(os.Stdout, out)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected text, json or sarif)", format)
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVarP(&migratePath, "path", "p", ".", "Path to the directory tree to migrate")
	migrateCmd.Flags().StringVarP(&migrateFormat, "format", "f", "", "Output format: text, json or sarif")
	migrateCmd.Flags().StringVarP(&migrateOutput, "output", "o", "", "Output file (stdout if empty)")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the manifest and project diffs without writing")
	migrateCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}
