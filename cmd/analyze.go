package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sambabib/cpm-migrate/pkg/analyzer"
	"github.com/sambabib/cpm-migrate/pkg/config"
	"github.com/sambabib/cpm-migrate/pkg/output"
	"github.com/sambabib/cpm-migrate/pkg/scanner"
)

var analyzePath string
var analyzeFormat string // output format: text, json or sarif
var analyzeOutput string // output file, stdout if empty

// analyzeCmd represents the analyze subcommand
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze projects for CPM migration",
	Long: `Analyze scans the directory tree for .csproj files, classifies each as
migratable or skipped, and resolves cross-project version conflicts. The
phase is read-only; nothing on disk changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(analyzePath)
		if err != nil {
			return err
		}

		plan, err := newAnalyzer(cfg).Analyze(cmd.Context(), analyzePath)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		return renderPlan(cfg, plan)
	},
}

// loadConfig honors an explicit --config path, otherwise searches from the
// project directory upward.
func loadConfig(projectPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	return config.FindAndLoadConfig(projectPath)
}

func newAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	return &analyzer.Analyzer{
		Scanner:       scanner.New(scanner.MigrationExtensions, cfg.ExcludeDirs),
		IgnorePackage: cfg.IsPackageIgnored,
	}
}

// renderPlan writes the plan in the selected format to the selected sink.
func renderPlan(cfg *config.Config, plan *analyzer.AnalysisPlan) error {
	format := effectiveFormat(cfg, analyzeFormat)
	file := analyzeOutput
	if file == "" {
		file = cfg.Output.File
	}

	switch format {
	case "json":
		data, err := output.GeneratePlanJSON(plan)
		if err != nil {
			return fmt.Errorf("failed to marshal plan to JSON: %w", err)
		}
		return emit(data, file)
	case "sarif":
		data, err := output.GenerateSarifReport(plan, nil)
		if err != nil {
			return fmt.Errorf("failed to generate SARIF report: %w", err)
		}
		return emit(data, file)
	case "text", "":
		if file != "" {
			f, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			output.PrintPlanText(f, plan)
			return nil
		}
		output.PrintPlanText(os.Stdout, plan)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected text, json or sarif)", format)
	}
}

// emit writes data to path, or stdout when path is empty.
func emit(data []byte, path string) error {
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzePath, "path", "p", ".", "Path to the directory tree to analyze")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "", "Output format: text, json or sarif")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Output file (stdout if empty)")
}
