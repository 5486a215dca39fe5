package app

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/songbook-offline/internal/config"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/service/download"
)

// itemStatus is one line of the status report.
type itemStatus struct {
	itemID string
	title  string
	meta   *download.SongDownloadMeta
}

// ExecuteStatusCommand prints the download status of the given items, or of every item of the manifest.
func ExecuteStatusCommand(ctx context.Context, cfg *config.Config, itemIDs []string) {
	a, err := New(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize offline library: %v", err)
	}

	defer a.Close(ctx)

	statuses, progress, err := a.collectStatus(ctx, itemIDs)
	if err != nil {
		logger.Fatalf(ctx, "Failed to read download status: %v", err)
	}

	for _, status := range statuses {
		logger.Info(ctx, formatStatusLine(status))

		if status.meta != nil && status.meta.Error != "" && !status.meta.IsDownloaded() {
			logger.Infof(ctx, "    %s", status.meta.Error)
		}
	}

	logger.Info(ctx, "")
	printProgress(ctx, progress)
}

// collectStatus reads the status of the selected items.
// Without a manifest, explicitly given IDs are still reported with their ID as the title.
func (a *App) collectStatus(ctx context.Context, args []string) ([]itemStatus, *download.BulkProgress, error) {
	statuses, err := a.statusTargets(ctx, args)
	if err != nil {
		return nil, nil, err
	}

	itemIDs := make([]string, 0, len(statuses))

	for i := range statuses {
		statuses[i].meta, err = a.service.GetSongDownloadMeta(ctx, statuses[i].itemID)
		if err != nil {
			return nil, nil, err
		}

		itemIDs = append(itemIDs, statuses[i].itemID)
	}

	progress, err := a.service.GetBulkDownloadProgress(ctx, itemIDs)
	if err != nil {
		return nil, nil, err
	}

	return statuses, progress, nil
}

func (a *App) statusTargets(ctx context.Context, args []string) ([]itemStatus, error) {
	if len(args) == 0 || a.cfg.ManifestURL != "" {
		items, err := a.selectItems(ctx, args)
		if err != nil {
			return nil, err
		}

		statuses := make([]itemStatus, 0, len(items))
		for _, item := range items {
			statuses = append(statuses, itemStatus{itemID: item.ID, title: item.DisplayName()})
		}

		return statuses, nil
	}

	itemIDs, err := expandItemIDs(args)
	if err != nil {
		return nil, err
	}

	statuses := make([]itemStatus, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		statuses = append(statuses, itemStatus{itemID: itemID, title: itemID})
	}

	return statuses, nil
}

func formatStatusLine(status itemStatus) string {
	line := fmt.Sprintf("%-24s %-40s %s", status.itemID, status.title, status.meta.Label())

	if status.meta != nil && !status.meta.UpdatedAt.IsZero() {
		line += " (" + humanize.Time(status.meta.UpdatedAt) + ")"
	}

	return line
}
