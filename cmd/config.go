package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/songbook-offline/internal/app"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	configSetManifestCmd = &cobra.Command{
		Use:     "set-manifest {url or path}",
		Short:   "Save the catalog manifest location to the configuration file",
		Example: "songbook-offline config set-manifest https://cdn.example.com/songbook/manifest.yaml",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			app.ExecuteSetManifestCommand(cmd.Context(), appConfig, args[0])
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Long: `Prints the configuration after defaults and command-line flags are applied.

The output is JSON, so it can be piped to other tools.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteConfigShowCommand(cmd.Context(), appConfig, cmd.OutOrStdout())
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	configCmd.AddCommand(configSetManifestCmd, configShowCmd)

	rootCmd.AddCommand(configCmd)
}
