package app

import (
	"context"
	"time"

	"github.com/oshokin/songbook-offline/internal/catalog"
	"github.com/oshokin/songbook-offline/internal/config"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/scheduler"
	"github.com/oshokin/songbook-offline/internal/service/download"
)

// bulkMode selects how a bulk run enqueues its items.
type bulkMode uint8

const (
	bulkModeDownload bulkMode = iota
	bulkModeRetry
)

// bulkResult describes a finished bulk run.
type bulkResult struct {
	items       []*catalog.Item
	jobIDs      []scheduler.JobID
	progress    *download.BulkProgress
	metas       map[string]*download.SongDownloadMeta
	interrupted bool
	duration    time.Duration
	bytes       int64
}

// ExecuteDownloadCommand downloads the given items, or every item of the manifest when all is set.
func ExecuteDownloadCommand(ctx context.Context, cfg *config.Config, itemIDs []string, all bool) {
	a, err := New(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize offline library: %v", err)
	}

	defer a.Close(ctx)

	if !all && len(itemIDs) == 0 {
		logger.Fatalf(ctx, "No items to download, pass item IDs or --all")
	}

	items, err := a.selectItems(ctx, itemIDs)
	if err != nil {
		logger.Fatalf(ctx, "Failed to select items: %v", err)
	}

	result, err := a.runBulk(ctx, items, bulkModeDownload)
	if err != nil {
		logger.Fatalf(ctx, "Download failed: %v", err)
	}

	a.printBulkSummary(ctx, result)
}

// ExecuteRetryCommand downloads again the failed, cancelled and interrupted items among the given ones.
func ExecuteRetryCommand(ctx context.Context, cfg *config.Config, itemIDs []string) {
	a, err := New(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize offline library: %v", err)
	}

	defer a.Close(ctx)

	items, err := a.selectItems(ctx, itemIDs)
	if err != nil {
		logger.Fatalf(ctx, "Failed to select items: %v", err)
	}

	result, err := a.runBulk(ctx, items, bulkModeRetry)
	if err != nil {
		logger.Fatalf(ctx, "Retry failed: %v", err)
	}

	a.printBulkSummary(ctx, result)
}

// runBulk enqueues the items, shows progress until every job finishes and collects the outcome.
// If ctx is cancelled meanwhile, the jobs of the run are cancelled.
func (a *App) runBulk(ctx context.Context, items []*catalog.Item, mode bulkMode) (*bulkResult, error) {
	var (
		startedAt = time.Now()
		jobIDs    []scheduler.JobID
		err       error
	)

	switch mode {
	case bulkModeRetry:
		jobIDs, err = a.service.RetryFailedBulkDownloads(ctx, items)
	default:
		jobIDs, err = a.service.DownloadItemsBulk(ctx, items)
	}

	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Downloads queued", "items", len(items), "jobs", len(jobIDs))

	tracker := newProgressTracker(jobIDs, a.progressOutput)
	unsubscribe := a.service.Subscribe(tracker.onSnapshot)

	// Summaries are collected after an interrupt too.
	detachedCtx := context.WithoutCancel(ctx)
	result := &bulkResult{items: items, jobIDs: jobIDs}

	err = a.service.WaitForJobs(ctx, jobIDs)
	if err != nil && ctx.Err() != nil {
		result.interrupted = true

		logger.Warn(detachedCtx, "Interrupted, cancelling remaining downloads")

		cancelled, cancelErr := a.service.CancelBulkDownloads(detachedCtx, itemIDsOf(items))
		if cancelErr != nil {
			logger.Errorf(detachedCtx, "Failed to cancel downloads: %v", cancelErr)
		}

		logger.DebugKV(detachedCtx, "Downloads cancelled", "jobs", cancelled)

		err = a.service.WaitForJobs(detachedCtx, jobIDs)
	}

	unsubscribe()
	tracker.finish()

	if err != nil {
		return nil, err
	}

	result.duration = time.Since(startedAt)

	if err = a.collectOutcome(detachedCtx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// collectOutcome fills the per-item status, the bulk progress and the size of the completed downloads.
func (a *App) collectOutcome(ctx context.Context, result *bulkResult) error {
	itemIDs := itemIDsOf(result.items)

	progress, err := a.service.GetBulkDownloadProgress(ctx, itemIDs)
	if err != nil {
		return err
	}

	result.progress = progress
	result.metas = make(map[string]*download.SongDownloadMeta, len(itemIDs))

	enqueued := make(map[string]struct{}, len(result.jobIDs))

	for _, jobID := range result.jobIDs {
		if job, ok := a.manager.Job(jobID); ok {
			enqueued[job.ItemID] = struct{}{}
		}
	}

	for _, itemID := range itemIDs {
		meta, metaErr := a.service.GetSongDownloadMeta(ctx, itemID)
		if metaErr != nil {
			return metaErr
		}

		result.metas[itemID] = meta

		if _, ok := enqueued[itemID]; !ok || !meta.IsDownloaded() {
			continue
		}

		entry, entryErr := a.repo.GetEntry(ctx, itemID)
		if entryErr != nil {
			return entryErr
		}

		if entry != nil {
			result.bytes += entry.TotalSize()
		}
	}

	return nil
}
