package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/songbook-offline/internal/app"
)

var (
	//nolint:gochecknoglobals // Cobra flag storage.
	downloadAll bool

	downloadCmd = &cobra.Command{
		Use:   "download [flags] {item ids}",
		Short: "Download catalog items for offline use",
		Long: `Downloads the given catalog items, or every item of the manifest with --all.

Items that are already downloading are skipped. Press Ctrl+C to cancel the remaining downloads;
cancelled and failed items can be downloaded again with 'retry'.`,
		Example: `songbook-offline download amazing-grace scarborough-fair
songbook-offline download --all --concurrency 4`,
		Args: func(cmd *cobra.Command, args []string) error {
			if downloadAll {
				return cobra.NoArgs(cmd, args)
			}

			return cobra.MinimumNArgs(1)(cmd, args)
		},
		Run: func(cmd *cobra.Command, itemIDs []string) {
			app.ExecuteDownloadCommand(cmd.Context(), appConfig, itemIDs, downloadAll)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	downloadCmd.Flags().BoolVarP(&downloadAll, "all", "a", false, "download every item of the manifest.")

	rootCmd.AddCommand(downloadCmd)
}
