package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/songbook-offline/internal/app"
)

//nolint:gochecknoglobals // Cobra command requires a global definition.
var statusCmd = &cobra.Command{
	Use:   "status [flags] [item ids]",
	Short: "Show the download status of items",
	Long: `Shows the last known download status of the given items and the overall progress.

Without item ids every item of the manifest is shown. Downloads that were running
when a previous run exited are reported as interrupted.`,
	Run: func(cmd *cobra.Command, itemIDs []string) {
		app.ExecuteStatusCommand(cmd.Context(), appConfig, itemIDs)
	},
}

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	rootCmd.AddCommand(statusCmd)
}
