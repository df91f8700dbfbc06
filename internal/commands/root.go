package commands

import (
	"github.com/spf13/cobra"

	"github.com/budgetbook/budgetbook/internal/buildinfo"
)

type rootOptions struct {
	dir      string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:     "budgetbook",
		Short:   "Bank statement ingestion and household ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "data root directory")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(opts),
		newListCommand(opts),
		newExportCommand(opts),
		newRestoreCommand(opts),
		newDedupeCommand(opts),
		newCategoriesCommand(opts),
		newBanksCommand(),
		newHistoryCommand(opts),
		newReportCommand(opts),
		newServeCommand(opts),
	)

	return rootCmd
}
