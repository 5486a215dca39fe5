package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/oshokin/songbook-offline/internal/config"
	"github.com/oshokin/songbook-offline/internal/logger"
)

// configView is the JSON form of the effective configuration.
type configView struct {
	OutputPath             string `json:"output_path"`
	DatabaseDriver         string `json:"database_driver"`
	HistoryPath            string `json:"history_path"`
	ManifestURL            string `json:"manifest_url"`
	MaxConcurrentDownloads int64  `json:"max_concurrent_downloads"`
	RetryAttemptsCount     int64  `json:"retry_attempts_count"`
	RetryBasePause         string `json:"retry_base_pause"`
	DownloadSpeedLimit     string `json:"download_speed_limit"`
	DownloadSpeedLimitBPS  int64  `json:"download_speed_limit_bps"`
	HTTPTimeout            string `json:"http_timeout"`
	LogLevel               string `json:"log_level"`
	HistoryProgressStep    int64  `json:"history_progress_step"`
}

// ExecuteSetManifestCommand validates the manifest location and saves it to the configuration file.
func ExecuteSetManifestCommand(ctx context.Context, cfg *config.Config, manifestURL string) {
	if err := setManifest(cfg, manifestURL); err != nil {
		logger.Fatalf(ctx, "Failed to save manifest location: %v", err)
	}

	logger.Infof(ctx, "Manifest location saved to '%s'", cfg.ConfigFilename)
}

func setManifest(cfg *config.Config, manifestURL string) error {
	updated := *cfg
	updated.ManifestURL = manifestURL

	if err := config.ValidateConfig(&updated); err != nil {
		return err
	}

	if err := config.SaveConfig(&updated, config.KeyManifestURL); err != nil {
		return err
	}

	*cfg = updated

	return nil
}

// ExecuteConfigShowCommand writes the effective configuration to w as JSON.
// Secrets such as the database DSN are left out.
func ExecuteConfigShowCommand(ctx context.Context, cfg *config.Config, w io.Writer) {
	if err := writeConfig(cfg, w); err != nil {
		logger.Fatalf(ctx, "Failed to print configuration: %v", err)
	}
}

func writeConfig(cfg *config.Config, w io.Writer) error {
	view := configView{
		OutputPath:             cfg.OutputPath,
		DatabaseDriver:         cfg.DatabaseDriver,
		HistoryPath:            cfg.HistoryPath,
		ManifestURL:            cfg.ManifestURL,
		MaxConcurrentDownloads: cfg.MaxConcurrentDownloads,
		RetryAttemptsCount:     cfg.RetryAttemptsCount,
		RetryBasePause:         cfg.ParsedRetryBasePause.String(),
		DownloadSpeedLimit:     cfg.DownloadSpeedLimit,
		DownloadSpeedLimitBPS:  cfg.ParsedDownloadSpeedLimit,
		HTTPTimeout:            cfg.ParsedHTTPTimeout.String(),
		LogLevel:               cfg.ParsedLogLevel.String(),
		HistoryProgressStep:    cfg.HistoryProgressStep,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(view); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	return nil
}
