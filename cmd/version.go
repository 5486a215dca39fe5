package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/songbook-offline/internal/version"
)

//nolint:gochecknoglobals // Cobra command requires a global definition.
var versionCmd = &cobra.Command{
	Use:              "version",
	Short:            "Print the version",
	Args:             cobra.NoArgs,
	PersistentPreRun: skipConfig,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full()) //nolint:errcheck // Nothing to do if stdout is gone.
	},
}

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	rootCmd.AddCommand(versionCmd)
}
