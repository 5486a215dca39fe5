package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/service/download"
)

const (
	summaryRule = "═══════════════════════════════════════════════════════════════"

	// minReportedDuration hides durations of runs that finished instantly.
	minReportedDuration = 100 * time.Millisecond
)

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// printBulkSummary prints the outcome of a bulk run.
func (a *App) printBulkSummary(ctx context.Context, result *bulkResult) {
	if len(result.items) == 0 {
		logger.Info(ctx, "Nothing to download")

		return
	}

	logger.Info(ctx, "")
	logger.Info(ctx, summaryRule)

	if result.interrupted {
		logger.Info(ctx, "           DOWNLOAD SUMMARY (Interrupted)")
	} else {
		logger.Info(ctx, "                     DOWNLOAD SUMMARY")
	}

	logger.Info(ctx, summaryRule)

	printProgress(ctx, result.progress)

	if result.bytes > 0 {
		logger.Info(ctx, "")
		//nolint:gosec // Sizes are never negative.
		logger.Infof(ctx, "Data Downloaded:  %s", humanize.Bytes(uint64(result.bytes)))
	}

	if result.duration > minReportedDuration {
		logger.Infof(ctx, "Duration:         %s", formatDuration(result.duration))

		if result.bytes > 0 {
			bytesPerSecond := float64(result.bytes) / result.duration.Seconds()
			logger.Infof(ctx, "Average Speed:    %s/s", humanize.Bytes(uint64(bytesPerSecond)))
		}
	}

	logger.Info(ctx, summaryRule)

	failedIDs := printFailures(ctx, result)
	printRetryCommand(ctx, failedIDs)
}

// printProgress prints the aggregated status counters.
func printProgress(ctx context.Context, progress *download.BulkProgress) {
	if progress == nil {
		return
	}

	logger.Infof(ctx, "Items:            %d total, %d%% downloaded", progress.Total, progress.ProgressPercent)

	if progress.Completed > 0 {
		logger.Infof(ctx, "  Downloaded:     %d", progress.Completed)
	}

	if progress.Queued+progress.Downloading > 0 {
		logger.Infof(ctx, "  In Progress:    %d", progress.Queued+progress.Downloading)
	}

	if progress.Failed > 0 {
		logger.Infof(ctx, "  Failed:         %d", progress.Failed)

		if progress.Interrupted > 0 {
			logger.Infof(ctx, "    Interrupted:  %d", progress.Interrupted)
		}
	}

	if progress.Cancelled > 0 {
		logger.Infof(ctx, "  Cancelled:      %d", progress.Cancelled)
	}

	if notStarted := progress.NotStarted(); notStarted > 0 {
		logger.Infof(ctx, "  Not Downloaded: %d", notStarted)
	}
}

// printFailures prints every failed or cancelled item of the run and returns their IDs.
func printFailures(ctx context.Context, result *bulkResult) []string {
	var failedIDs []string

	for _, item := range result.items {
		meta := result.metas[item.ID]
		if meta == nil || meta.IsActive() || meta.IsDownloaded() {
			continue
		}

		if len(failedIDs) == 0 {
			logger.Info(ctx, "")
			logger.Errorf(ctx, "NOT DOWNLOADED:")
		}

		failedIDs = append(failedIDs, item.ID)

		logger.Info(ctx, "")
		logger.Errorf(ctx, "  [%d] %s", len(failedIDs), item.DisplayName())
		logger.Errorf(ctx, "      ID: %s", item.ID)
		logger.Errorf(ctx, "      Status: %s", meta.Label())

		if meta.Error != "" {
			logger.Errorf(ctx, "      Error: %s", meta.Error)
		}
	}

	return failedIDs
}

// printRetryCommand prints a command that retries the given items.
func printRetryCommand(ctx context.Context, itemIDs []string) {
	if len(itemIDs) == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Info(ctx, "To retry, run:")
	logger.Infof(ctx, "songbook-offline retry %s", strings.Join(itemIDs, " "))
}
