package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/songbook-offline/internal/config"
	"github.com/oshokin/songbook-offline/internal/logger"
)

var (
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "songbook-offline",
		Short: "Keep songbook items available offline.",
		Long: `Songbook Offline downloads catalog items for offline use.
Every item is downloaded as one job that fetches all of its files:
- Audio tracks
- Lyrics
- Scores
- Alternative arrangements

Jobs run with a concurrency cap and automatic retries, and their status survives restarts.`,
		PersistentPreRun: initConfig,
		SilenceUsage:     true,
	}
)

// Execute executes the root command.
// The first signal cancels the command's context so running downloads stop cleanly,
// the second one terminates the process.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync()
	}()

	defer stop()

	done := make(chan struct{})

	go func() {
		defer close(done)

		err := rootCmd.ExecuteContext(ctx)
		cobra.CheckErr(err)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		stop()
		<-done
	}
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	rootFlags := rootCmd.PersistentFlags()

	rootFlags.StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))

	rootFlags.StringP(
		"output",
		"o",
		"",
		"directory of the offline library (the path will be created if it doesn't exist).")

	rootFlags.Int64(
		"concurrency",
		0,
		"maximum number of items downloading at the same time.")

	rootFlags.Int64(
		"retries",
		0,
		"number of retries after a failed download.")

	rootFlags.StringP(
		"speed-limit",
		"s",
		"",
		"set download speed limit, for example: 500 kbps, 1 mbps, 1.5 mbps.")

	rootFlags.StringP(
		"manifest",
		"m",
		"",
		"catalog manifest location: an http(s) URL or a local file.")
}

func initConfig(cmd *cobra.Command, _ []string) {
	err := config.LoadEnvFile(config.DefaultEnvFilename)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load environment: %v", err)
	}

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	if err = bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
		logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
	}

	logger.SetLevel(appConfig.ParsedLogLevel)
}

// skipConfig replaces initConfig for commands that work without a configuration file.
func skipConfig(*cobra.Command, []string) {}

func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	if flag := flags.Lookup("output"); flag != nil && flag.Changed {
		cfg.OutputPath, _ = flags.GetString("output")
	}

	if flag := flags.Lookup("concurrency"); flag != nil && flag.Changed {
		cfg.MaxConcurrentDownloads, _ = flags.GetInt64("concurrency")
	}

	if flag := flags.Lookup("retries"); flag != nil && flag.Changed {
		cfg.RetryAttemptsCount, _ = flags.GetInt64("retries")
	}

	if flag := flags.Lookup("speed-limit"); flag != nil && flag.Changed {
		cfg.DownloadSpeedLimit, _ = flags.GetString("speed-limit")
	}

	if flag := flags.Lookup("manifest"); flag != nil && flag.Changed {
		cfg.ManifestURL, _ = flags.GetString("manifest")
	}

	return config.ValidateConfig(cfg)
}
