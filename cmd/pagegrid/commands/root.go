// Package commands defines the pagegrid CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagegrid",
		Short: "Pagegrid - widget collection synchronization server",
		Long: `Pagegrid keeps the widget collections of content entities synchronized
across concurrent editing surfaces: operations publish through a central
dispatcher, changes fan out to every other consumer, and committed state
lands in SQLite with a queryable edit journal.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newValidateSlotsCommand())

	return rootCmd
}
