package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/songbook-offline/internal/app"
)

//nolint:gochecknoglobals // Cobra command requires a global definition.
var retryCmd = &cobra.Command{
	Use:   "retry [flags] [item ids]",
	Short: "Download failed, cancelled or interrupted items again",
	Long: `Downloads again the items whose last download failed, was cancelled
or was interrupted when the previous run exited.

Without item ids every item of the manifest is considered.`,
	Run: func(cmd *cobra.Command, itemIDs []string) {
		app.ExecuteRetryCommand(cmd.Context(), appConfig, itemIDs)
	},
}

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	rootCmd.AddCommand(retryCmd)
}
