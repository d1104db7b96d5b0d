package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sambabib/cpm-migrate/pkg/logger"
)

// Version is set during build using ldflags
var Version = "dev"

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "cpmig",
	Short:   "Migrates .NET projects to Central Package Management",
	Long: `cpmig analyzes a tree of .NET project files and migrates their inline
package versions into a shared Directory.Packages.props manifest, with
backup-and-rollback semantics so a failed migration never leaves the tree
in an inconsistent state.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

// Execute runs the root command. An interrupt cancels the context, which the
// migration engine observes cooperatively and answers with a rollback.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a .cpmig.yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
