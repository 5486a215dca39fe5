package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/songbook-offline/internal/config"
	"github.com/oshokin/songbook-offline/internal/library"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/service/download"
)

// ExecuteLibraryListCommand prints every item of the offline library.
func ExecuteLibraryListCommand(ctx context.Context, cfg *config.Config) {
	a, err := New(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize offline library: %v", err)
	}

	defer a.Close(ctx)

	entries, err := a.repo.ListEntries(ctx)
	if err != nil {
		logger.Fatalf(ctx, "Failed to list offline library: %v", err)
	}

	if len(entries) == 0 {
		logger.Info(ctx, "The offline library is empty")

		return
	}

	var totalSize int64

	for _, entry := range entries {
		totalSize += entry.TotalSize()

		logger.Info(ctx, formatEntryLine(entry))
	}

	logger.Info(ctx, "")
	//nolint:gosec // Sizes are never negative.
	logger.Infof(ctx, "Items: %d, total size: %s", len(entries), humanize.Bytes(uint64(totalSize)))
}

// ExecuteLibraryDeleteCommand removes an item from the offline library.
func ExecuteLibraryDeleteCommand(ctx context.Context, cfg *config.Config, itemID string, deleteFiles bool) {
	a, err := New(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize offline library: %v", err)
	}

	defer a.Close(ctx)

	if err = a.service.DeleteItem(ctx, itemID, deleteFiles); err != nil {
		logger.Fatalf(ctx, "Failed to delete item '%s': %v", itemID, err)
	}

	if deleteFiles {
		logger.Infof(ctx, "Item '%s' and its files were deleted", itemID)
	} else {
		logger.Infof(ctx, "Item '%s' was removed from the library, its files were kept", itemID)
	}
}

// ExecuteLibraryOutdatedCommand prints the manifest items whose offline copy is missing, outdated or damaged.
func ExecuteLibraryOutdatedCommand(ctx context.Context, cfg *config.Config) {
	a, err := New(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize offline library: %v", err)
	}

	defer a.Close(ctx)

	updates, err := a.outdatedItems(ctx)
	if err != nil {
		logger.Fatalf(ctx, "Failed to check for updates: %v", err)
	}

	if len(updates) == 0 {
		logger.Info(ctx, "Every item is up to date")

		return
	}

	itemIDs := make([]string, 0, len(updates))

	for _, update := range updates {
		itemIDs = append(itemIDs, update.ItemID)

		logger.Info(ctx, formatUpdateLine(update))
	}

	logger.Info(ctx, "")
	logger.Info(ctx, "To download them, run:")
	logger.Infof(ctx, "songbook-offline download %s", strings.Join(itemIDs, " "))
}

func (a *App) outdatedItems(ctx context.Context) ([]*download.UpdateInfo, error) {
	manifest, err := a.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	return a.service.CheckForUpdates(ctx, manifest.Items)
}

func formatEntryLine(entry *library.Entry) string {
	version := entry.SourceVersion
	if version == "" {
		version = "-"
	}

	//nolint:gosec // Sizes are never negative.
	return fmt.Sprintf("%-24s %-40s %-10s %3d files %10s  %s",
		entry.ItemID,
		entry.Title,
		version,
		len(entry.FilePaths),
		humanize.Bytes(uint64(entry.TotalSize())),
		humanize.Time(entry.DownloadedAt))
}

func formatUpdateLine(update *download.UpdateInfo) string {
	line := fmt.Sprintf("%-24s %-40s %s", update.ItemID, update.Title, updateReasonText(update))

	if len(update.Files) > 0 {
		line += ": " + strings.Join(update.Files, ", ")
	}

	return line
}

func updateReasonText(update *download.UpdateInfo) string {
	switch update.Reason {
	case download.ReasonNotDownloaded:
		return "not downloaded"
	case download.ReasonVersionChanged:
		return fmt.Sprintf("new version %s (downloaded %s)", update.AvailableVersion, update.InstalledVersion)
	case download.ReasonAssetsChanged:
		return "new files"
	case download.ReasonFilesMissing:
		return "missing files"
	case download.ReasonFilesChanged:
		return "damaged files"
	default:
		return string(update.Reason)
	}
}
