package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/songbook-offline/internal/app"
)

var (
	//nolint:gochecknoglobals // Cobra flag storage.
	deleteFiles bool

	libraryCmd = &cobra.Command{
		Use:   "library",
		Short: "Offline library management commands",
		Long: `Inspect and maintain the offline library.

Use 'library list' to see downloaded items, 'library outdated' to find items
that need a new download and 'library delete' to remove an item.`,
	}

	libraryListCmd = &cobra.Command{
		Use:   "list",
		Short: "List downloaded items",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteLibraryListCommand(cmd.Context(), appConfig)
		},
	}

	libraryDeleteCmd = &cobra.Command{
		Use:   "delete [flags] {item id}",
		Short: "Remove an item from the offline library",
		Long: `Cancels active downloads of the item and removes it from the library and the download history.

Downloaded files are kept unless --files is given.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			app.ExecuteLibraryDeleteCommand(cmd.Context(), appConfig, args[0], deleteFiles)
		},
	}

	libraryOutdatedCmd = &cobra.Command{
		Use:   "outdated",
		Short: "List items whose offline copy is missing, outdated or damaged",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteLibraryOutdatedCommand(cmd.Context(), appConfig)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	libraryDeleteCmd.Flags().BoolVar(&deleteFiles, "files", false, "delete the downloaded files too.")

	libraryCmd.AddCommand(libraryListCmd, libraryDeleteCmd, libraryOutdatedCmd)

	rootCmd.AddCommand(libraryCmd)
}
