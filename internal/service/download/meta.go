package download

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/oshokin/songbook-offline/internal/history"
	"github.com/oshokin/songbook-offline/internal/scheduler"
)

// SongDownloadMeta is the download status of an item, merged from the live scheduler and the history.
type SongDownloadMeta struct {
	ItemID          string
	JobID           scheduler.JobID
	Status          scheduler.Status
	ProgressPercent float64
	Attempts        int
	UpdatedAt       time.Time
	Error           string
	// Interrupted is set for downloads that were running when a previous process exited.
	Interrupted bool
}

// IsActive reports whether the item is queued, downloading or waiting to retry.
func (m *SongDownloadMeta) IsActive() bool {
	return m != nil && m.Status.IsActive()
}

// IsDownloaded reports whether the item's latest download completed.
func (m *SongDownloadMeta) IsDownloaded() bool {
	return m != nil && m.Status == scheduler.StatusCompleted
}

// Label returns a short human-readable status.
func (m *SongDownloadMeta) Label() string {
	if m == nil {
		return "Not downloaded"
	}

	switch m.Status {
	case scheduler.StatusQueued:
		return "Queued"
	case scheduler.StatusDownloading:
		return fmt.Sprintf("Downloading %d%%", int(math.Floor(m.ProgressPercent)))
	case scheduler.StatusRetrying:
		return fmt.Sprintf("Retrying after attempt %d", m.Attempts)
	case scheduler.StatusCompleted:
		return "Downloaded"
	case scheduler.StatusFailed:
		if m.Interrupted {
			return "Interrupted"
		}

		return "Failed"
	case scheduler.StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// ReconcileMeta derives the status of an item from the latest job this process has for it
// and from its persisted history entry.
// A live job wins whatever its status, since the history may still be catching up with it.
// Without one the history entry is used, and an entry that still says queued, downloading or retrying
// belongs to a process that died: it becomes a failed, interrupted download.
// Both arguments may be nil; so may the result.
func ReconcileMeta(itemID string, live *scheduler.JobRecordView, persisted *history.Entry) *SongDownloadMeta {
	if live != nil {
		return &SongDownloadMeta{
			ItemID:          itemID,
			JobID:           live.JobID,
			Status:          live.Status,
			ProgressPercent: live.ProgressPercent,
			Attempts:        live.Attempts,
			UpdatedAt:       live.UpdatedAt,
			Error:           live.LastError,
		}
	}

	if persisted == nil {
		return nil
	}

	meta := &SongDownloadMeta{
		ItemID:          itemID,
		JobID:           scheduler.JobID(persisted.JobID),
		Status:          persisted.Status,
		ProgressPercent: persisted.ProgressPercent,
		Attempts:        persisted.Attempts,
		UpdatedAt:       persisted.UpdatedAt,
		Error:           persisted.Error,
	}

	if !persisted.Status.IsTerminal() {
		meta.Status = scheduler.StatusFailed
		meta.Error = InterruptedDownloadMessage
		meta.Interrupted = true
	}

	return meta
}

// GetSongDownloadMeta returns the status of the item, or nil when it was never attempted.
func (s *ServiceImpl) GetSongDownloadMeta(ctx context.Context, itemID string) (*SongDownloadMeta, error) {
	live := s.liveJob(s.scheduler.Snapshot(), itemID)

	persisted, err := s.historyEntryOf(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return ReconcileMeta(itemID, live, persisted), nil
}

// liveJob returns the latest job of the item in snapshot, skipping jobs of deleted items.
func (s *ServiceImpl) liveJob(snapshot scheduler.Snapshot, itemID string) *scheduler.JobRecordView {
	job, ok := snapshot.LatestForItem(itemID)
	if !ok {
		return nil
	}

	s.mu.Lock()
	_, forgotten := s.forgotten[job.JobID]
	s.mu.Unlock()

	if forgotten {
		return nil
	}

	return &job
}

// BulkProgress aggregates the status of several items.
// Retrying items count as queued; interrupted items count as failed and are also counted in Interrupted.
type BulkProgress struct {
	Total       int
	Queued      int
	Downloading int
	Completed   int
	Failed      int
	Cancelled   int
	Interrupted int
	// ProgressPercent is the rounded share of completed items.
	ProgressPercent int
}

// NotStarted returns the number of items that have never been attempted.
func (p *BulkProgress) NotStarted() int {
	return p.Total - p.Queued - p.Downloading - p.Completed - p.Failed - p.Cancelled
}

// GetBulkDownloadProgress counts the statuses of the given items. Repeated IDs are counted once.
func (s *ServiceImpl) GetBulkDownloadProgress(ctx context.Context, itemIDs []string) (*BulkProgress, error) {
	var (
		snapshot = s.scheduler.Snapshot()
		seen     = make(map[string]struct{}, len(itemIDs))
		progress = new(BulkProgress)
	)

	for _, itemID := range itemIDs {
		if _, ok := seen[itemID]; ok {
			continue
		}

		seen[itemID] = struct{}{}
		progress.Total++

		live := s.liveJob(snapshot, itemID)

		persisted, err := s.historyEntryOf(ctx, itemID)
		if err != nil {
			return nil, err
		}

		progress.add(ReconcileMeta(itemID, live, persisted))
	}

	if progress.Total > 0 {
		progress.ProgressPercent = int(math.Round(float64(progress.Completed) / float64(progress.Total) * 100))
	}

	return progress, nil
}

func (p *BulkProgress) add(meta *SongDownloadMeta) {
	if meta == nil {
		return
	}

	switch meta.Status {
	case scheduler.StatusQueued, scheduler.StatusRetrying:
		p.Queued++
	case scheduler.StatusDownloading:
		p.Downloading++
	case scheduler.StatusCompleted:
		p.Completed++
	case scheduler.StatusFailed:
		p.Failed++

		if meta.Interrupted {
			p.Interrupted++
		}
	case scheduler.StatusCancelled:
		p.Cancelled++
	}
}
