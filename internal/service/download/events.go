package download

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/oshokin/songbook-offline/internal/history"
	"github.com/oshokin/songbook-offline/internal/library"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/scheduler"
)

// settlement is a terminal job waiting for its library side effect.
type settlement struct {
	assoc *association
	view  scheduler.JobRecordView
	// latest is true when no newer job of the same item existed at the time.
	latest bool
}

// onSnapshot reacts to status changes: it records the history of each item's latest job
// and commits or discards library entries of finished jobs. Every status is acted on once per job.
// The in-memory history is updated before returning; writes happen on the effect queue.
func (s *ServiceImpl) onSnapshot(snap scheduler.Snapshot) {
	latestByItem := make(map[string]scheduler.JobID, len(snap.Jobs))
	for _, job := range snap.Jobs {
		latestByItem[job.ItemID] = job.JobID
	}

	var (
		historyUpdates = make(map[string]history.Entry)
		settlements    []settlement
	)

	s.mu.Lock()

	for _, job := range snap.Jobs {
		var (
			prev, seen    = s.jobs[job.JobID]
			step          = s.progressStep(job.ProgressPercent)
			statusChanged = !seen || prev.status != job.Status
		)

		if !statusChanged && (job.Status != scheduler.StatusDownloading || step <= prev.persistedStep) {
			continue
		}

		s.jobs[job.JobID] = jobState{status: job.Status, persistedStep: step}

		_, forgotten := s.forgotten[job.JobID]

		isLatest := latestByItem[job.ItemID] == job.JobID
		if isLatest && !forgotten {
			historyUpdates[job.ItemID] = historyEntry(job)
		}

		if !statusChanged || !job.Status.IsTerminal() {
			continue
		}

		settled := settlement{view: job, latest: isLatest}

		assoc, ok := s.tracked[job.JobID]
		if !ok {
			s.settled[job.JobID] = settled

			continue
		}

		delete(s.tracked, job.JobID)

		settled.assoc = assoc
		settlements = append(settlements, settled)
	}

	s.mu.Unlock()

	persist := len(historyUpdates) > 0
	if persist {
		s.applyHistory(s.baseCtx, historyUpdates)
	}

	if !persist && len(settlements) == 0 {
		return
	}

	s.effects.push(func() {
		if persist {
			if err := s.persistHistory(s.baseCtx); err != nil {
				logger.ErrorKV(s.baseCtx, "Failed to save download history", "error", err)
			}
		}

		for _, settled := range settlements {
			s.settle(s.baseCtx, settled)
		}
	})
}

func (s *ServiceImpl) progressStep(progress float64) int {
	return int(math.Floor(progress / s.cfg.HistoryProgressStep))
}

// settle applies the library side effect of a finished job.
func (s *ServiceImpl) settle(ctx context.Context, settled settlement) {
	var (
		view = settled.view
		item = settled.assoc.item
	)

	ctx = logger.WithKV(logger.WithKV(ctx, "item_id", item.ID), "job_id", view.JobID)

	switch view.Status {
	case scheduler.StatusCompleted:
		entry := s.offlineEntry(settled.assoc, view)
		if err := s.repo.UpsertEntry(ctx, entry); err != nil {
			logger.ErrorKV(ctx, "Failed to save downloaded item", "error", err)

			return
		}

		logger.InfoKV(ctx, "Item downloaded", "title", item.DisplayName(), "files", len(entry.FilePaths))
	case scheduler.StatusFailed, scheduler.StatusCancelled:
		if view.Status == scheduler.StatusFailed {
			logger.WarnKV(ctx, "Item download failed", "attempts", view.Attempts, "error", view.LastError)
		} else {
			logger.DebugKV(ctx, "Item download cancelled", "attempts", view.Attempts)
		}

		// Files of a job that never started are untouched, and a newer job owns the entry otherwise.
		if view.Attempts == 0 || !settled.latest {
			return
		}

		if err := s.repo.DeleteEntry(ctx, item.ID, library.DeleteOptions{}); err != nil {
			logger.ErrorKV(ctx, "Failed to drop outdated library entry", "error", err)
		}
	default:
	}
}

// offlineEntry builds the library entry of a completed job from its transfer results,
// falling back to the declared size and hash where the transfer reported none.
func (s *ServiceImpl) offlineEntry(assoc *association, view scheduler.JobRecordView) *library.Entry {
	results := make(map[scheduler.FileKind]scheduler.TransferResult, len(view.Results))
	for _, result := range view.Results {
		results[result.Kind] = result
	}

	entry := &library.Entry{
		ItemID:        assoc.item.ID,
		SourceVersion: assoc.item.Version,
		Title:         assoc.item.DisplayName(),
		DownloadedAt:  view.UpdatedAt,
		FilePaths:     make(map[string]string, len(view.Files)),
		Sizes:         make(map[string]int64, len(view.Files)),
		Hashes:        make(map[string]string, len(view.Files)),
	}

	if entry.DownloadedAt.IsZero() {
		entry.DownloadedAt = s.cfg.Now()
	}

	for _, file := range view.Files {
		var (
			kind   = string(file.Kind)
			result = results[file.Kind]
			path   = assoc.paths[file.Kind]
		)

		if path == "" {
			path = file.DestinationPath
		}

		entry.FilePaths[kind] = path

		if size := firstNonZero(result.SizeBytes, file.ExpectedSizeBytes); size > 0 {
			entry.Sizes[kind] = size
		}

		if hash := firstNonZero(result.SHA256, file.ExpectedSHA256); hash != "" {
			entry.Hashes[kind] = hash
		}
	}

	return entry
}

// applyHistory puts entries into the cached history blob.
func (s *ServiceImpl) applyHistory(ctx context.Context, entries map[string]history.Entry) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	blob, err := s.loadHistoryLocked(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to load download history", "error", err)

		return
	}

	next := blob.Clone()
	for itemID, entry := range entries {
		next.Items[itemID] = entry
	}

	s.blob = next
}

// persistHistory saves the cached blob unless it has been saved already.
// Cached blobs are never modified in place, so the latest one always covers earlier changes.
func (s *ServiceImpl) persistHistory(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.historyMu.Lock()
	blob := s.blob
	s.historyMu.Unlock()

	if blob == nil || blob == s.persisted {
		return nil
	}

	if err := s.store.Set(ctx, blob); err != nil {
		return fmt.Errorf("failed to write history store: %w", err)
	}

	s.persisted = blob

	return nil
}

// forgetHistory removes the item from the history.
func (s *ServiceImpl) forgetHistory(ctx context.Context, itemID string) error {
	s.historyMu.Lock()

	blob, err := s.loadHistoryLocked(ctx)
	if err != nil {
		s.historyMu.Unlock()

		return err
	}

	if _, ok := blob.Items[itemID]; !ok {
		s.historyMu.Unlock()

		return nil
	}

	next := blob.Clone()
	delete(next.Items, itemID)

	s.blob = next
	s.historyMu.Unlock()

	return s.persistHistory(ctx)
}

// historyEntryOf returns the persisted entry of the item.
func (s *ServiceImpl) historyEntryOf(ctx context.Context, itemID string) (*history.Entry, error) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	blob, err := s.loadHistoryLocked(ctx)
	if err != nil {
		return nil, err
	}

	entry, ok := blob.Entry(itemID)
	if !ok {
		return nil, nil //nolint:nilnil // An item that was never attempted has no history.
	}

	return &entry, nil
}

// loadHistoryLocked returns the cached blob, reading it from the store on first use.
// A corrupt history is replaced with an empty one.
func (s *ServiceImpl) loadHistoryLocked(ctx context.Context) (*history.Blob, error) {
	if s.blob != nil {
		return s.blob, nil
	}

	blob, err := s.store.Get(ctx)

	switch {
	case errors.Is(err, history.ErrCorruptHistory):
		logger.WarnKV(ctx, "Download history is corrupt, starting a new one", "error", err)

		blob = history.NewBlob()
	case err != nil:
		return nil, fmt.Errorf("failed to read download history: %w", err)
	case blob == nil:
		blob = history.NewBlob()
	}

	if blob.Items == nil {
		blob.Items = make(map[string]history.Entry)
	}

	s.blob = blob

	return blob, nil
}

func historyEntry(job scheduler.JobRecordView) history.Entry {
	return history.Entry{
		JobID:           string(job.JobID),
		Status:          job.Status,
		ProgressPercent: job.ProgressPercent,
		Attempts:        job.Attempts,
		UpdatedAt:       job.UpdatedAt,
		Error:           job.LastError,
	}
}

func firstNonZero[T comparable](values ...T) T {
	var zero T

	for _, value := range values {
		if value != zero {
			return value
		}
	}

	return zero
}
