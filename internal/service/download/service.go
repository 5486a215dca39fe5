package download

//go:generate $MOCKGEN -source=service.go -destination=mocks/service_mock.go

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/songbook-offline/internal/catalog"
	"github.com/oshokin/songbook-offline/internal/history"
	"github.com/oshokin/songbook-offline/internal/library"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/scheduler"
)

// DefaultHistoryProgressStep is the progress advance, in percent, that triggers a history write.
const DefaultHistoryProgressStep = 10

// Scheduler is the part of the job scheduler the service drives.
type Scheduler interface {
	// Enqueue adds a job and returns its ID.
	Enqueue(job scheduler.DownloadJob) (scheduler.JobID, error)
	// Cancel stops a job that has not finished yet.
	Cancel(id scheduler.JobID) error
	// Subscribe registers a listener and delivers the current snapshot to it right away.
	Subscribe(listener scheduler.Listener) func()
	// Snapshot returns the current scheduler state.
	Snapshot() scheduler.Snapshot
}

// Service provides offline downloads of catalog items.
type Service interface {
	// DownloadItem enqueues one job with all assets of the item.
	DownloadItem(ctx context.Context, item *catalog.Item) (scheduler.JobID, error)
	// DownloadItemsBulk enqueues one job per unique item that has no active job yet.
	DownloadItemsBulk(ctx context.Context, items []*catalog.Item) ([]scheduler.JobID, error)
	// CancelBulkDownloads cancels active jobs of the given items, or of all items when itemIDs is nil.
	CancelBulkDownloads(ctx context.Context, itemIDs []string) (int, error)
	// RetryFailedBulkDownloads downloads again the items whose latest known status is failed or cancelled.
	RetryFailedBulkDownloads(ctx context.Context, items []*catalog.Item) ([]scheduler.JobID, error)
	// GetSongDownloadMeta returns the download status of the item, or nil when it was never attempted.
	GetSongDownloadMeta(ctx context.Context, itemID string) (*SongDownloadMeta, error)
	// GetBulkDownloadProgress aggregates the download status of the given items.
	GetBulkDownloadProgress(ctx context.Context, itemIDs []string) (*BulkProgress, error)
	// CheckForUpdates reports items whose offline copy is missing, outdated or damaged.
	CheckForUpdates(ctx context.Context, items []*catalog.Item) ([]*UpdateInfo, error)
	// DeleteItem cancels active jobs of the item and removes it from the library and the history.
	DeleteItem(ctx context.Context, itemID string, deleteFiles bool) error
	// WaitForJobs blocks until every job has finished or ctx is done.
	WaitForJobs(ctx context.Context, jobIDs []scheduler.JobID) error
	// Subscribe forwards scheduler snapshots to listener until the returned function is called.
	Subscribe(listener scheduler.Listener) func()
	// Close stops listening to the scheduler.
	Close()
}

// Config holds the service settings.
type Config struct {
	// HistoryProgressStep is the progress advance, in percent, that is persisted while a job downloads.
	HistoryProgressStep float64
	// UpdateCheckConcurrency limits parallel file checks in CheckForUpdates.
	UpdateCheckConcurrency int
	// Now replaces the clock, mostly for tests.
	Now func() time.Time
}

// association is what the service remembers about a job it enqueued.
type association struct {
	item  *catalog.Item
	paths map[scheduler.FileKind]string
}

// jobState is the last status and persisted progress of a job seen by the listener.
type jobState struct {
	status        scheduler.Status
	persistedStep int
}

// ServiceImpl implements Service on top of the scheduler, the offline library and the history store.
type ServiceImpl struct {
	// scheduler runs the jobs.
	scheduler Scheduler
	// repo is the offline library.
	repo library.Repository
	// store persists the history blob.
	store history.Store
	// cfg contains the service settings.
	cfg Config
	// baseCtx is used for side effects triggered by scheduler snapshots.
	baseCtx context.Context //nolint:containedctx // Snapshot listeners have no caller context.

	// mu protects tracked, settled, jobs and forgotten.
	mu *sync.Mutex
	// tracked maps jobs enqueued by the service to their items.
	tracked map[scheduler.JobID]*association
	// settled keeps terminal jobs seen before DownloadItem registered their association.
	settled map[scheduler.JobID]settlement
	// jobs is the listener's view of every job it has seen.
	jobs map[scheduler.JobID]jobState
	// forgotten holds jobs of deleted items; they no longer describe their item.
	forgotten map[scheduler.JobID]struct{}

	// historyMu protects blob.
	historyMu *sync.Mutex
	// blob is the cached history, loaded on first use. It is replaced, never modified.
	blob *history.Blob
	// persistMu serializes history writes and protects persisted.
	persistMu *sync.Mutex
	// persisted is the last blob written to the store.
	persisted *history.Blob
	// effects runs library and history writes triggered by snapshots.
	effects *effectQueue

	// bulkMu serializes bulk operations so two of them cannot enqueue the same item.
	bulkMu *sync.Mutex

	unsubscribe func()
	closeOnce   *sync.Once
}

// NewService creates a download service and subscribes it to the scheduler.
func NewService(
	ctx context.Context,
	jobScheduler Scheduler,
	repo library.Repository,
	store history.Store,
	cfg Config,
) Service {
	if cfg.HistoryProgressStep <= 0 {
		cfg.HistoryProgressStep = DefaultHistoryProgressStep
	}

	if cfg.UpdateCheckConcurrency <= 0 {
		cfg.UpdateCheckConcurrency = defaultUpdateCheckConcurrency
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &ServiceImpl{
		scheduler: jobScheduler,
		repo:      repo,
		store:     store,
		cfg:       cfg,
		baseCtx:   logger.WithName(context.WithoutCancel(ctx), "download"),
		mu:        &sync.Mutex{},
		tracked:   make(map[scheduler.JobID]*association),
		settled:   make(map[scheduler.JobID]settlement),
		jobs:      make(map[scheduler.JobID]jobState),
		forgotten: make(map[scheduler.JobID]struct{}),
		historyMu: &sync.Mutex{},
		persistMu: &sync.Mutex{},
		effects:   newEffectQueue(),
		bulkMu:    &sync.Mutex{},
		closeOnce: &sync.Once{},
	}

	s.unsubscribe = jobScheduler.Subscribe(s.onSnapshot)

	return s
}

// DownloadItem allocates the item's folder, enqueues a job with its assets in order
// (audio A, audio B, lyrics, score, variants) and remembers where each file goes.
func (s *ServiceImpl) DownloadItem(ctx context.Context, item *catalog.Item) (scheduler.JobID, error) {
	if item == nil {
		return "", ErrNilItem
	}

	if strings.TrimSpace(item.ID) == "" {
		return "", ErrEmptyItemID
	}

	assets := itemAssets(item)
	if len(assets) == 0 {
		return "", fmt.Errorf("%w: '%s'", ErrNoAssets, item.ID)
	}

	itemPaths, err := s.repo.PrepareItemPaths(ctx, item.ID)
	if err != nil {
		return "", fmt.Errorf("failed to prepare folder of item '%s': %w", item.ID, err)
	}

	var (
		files = make([]scheduler.DownloadFile, 0, len(assets))
		assoc = &association{
			item:  item,
			paths: make(map[scheduler.FileKind]string, len(assets)),
		}
	)

	for _, asset := range assets {
		destination := itemPaths.For(string(asset.kind), asset.URL)
		assoc.paths[asset.kind] = destination

		files = append(files, scheduler.DownloadFile{
			Kind:              asset.kind,
			SourceURL:         asset.URL,
			DestinationPath:   destination,
			ExpectedSizeBytes: asset.SizeBytes,
			ExpectedSHA256:    asset.SHA256,
		})
	}

	jobID, err := s.scheduler.Enqueue(scheduler.DownloadJob{ItemID: item.ID, Files: files})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue item '%s': %w", item.ID, err)
	}

	s.mu.Lock()

	settled, alreadySettled := s.settled[jobID]
	if alreadySettled {
		delete(s.settled, jobID)
	} else {
		s.tracked[jobID] = assoc
	}

	s.mu.Unlock()

	logger.DebugKV(ctx, "Item enqueued", "item_id", item.ID, "job_id", jobID, "files", len(files))

	// The job finished before Enqueue returned.
	if alreadySettled {
		settled.assoc = assoc
		s.effects.push(func() { s.settle(s.baseCtx, settled) })
	}

	return jobID, nil
}

// DownloadItemsBulk enqueues the items in order, skipping duplicates and items with active jobs.
// Items that fail to enqueue are reported in the joined error; the others are still enqueued.
func (s *ServiceImpl) DownloadItemsBulk(ctx context.Context, items []*catalog.Item) ([]scheduler.JobID, error) {
	s.bulkMu.Lock()
	defer s.bulkMu.Unlock()

	var (
		snapshot = s.scheduler.Snapshot()
		seen     = make(map[string]struct{}, len(items))
		jobIDs   = make([]scheduler.JobID, 0, len(items))
		errs     []error
	)

	for _, item := range items {
		if item == nil {
			errs = append(errs, ErrNilItem)

			continue
		}

		if _, ok := seen[item.ID]; ok {
			continue
		}

		seen[item.ID] = struct{}{}

		if active, ok := snapshot.ActiveForItem(item.ID); ok {
			logger.DebugKV(ctx, "Skipping item with an active job", "item_id", item.ID, "job_id", active.JobID)

			continue
		}

		jobID, err := s.DownloadItem(ctx, item)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		jobIDs = append(jobIDs, jobID)
	}

	return jobIDs, errors.Join(errs...)
}

// CancelBulkDownloads cancels active jobs and returns how many were cancelled.
// A nil itemIDs cancels everything; an empty non-nil slice cancels nothing.
func (s *ServiceImpl) CancelBulkDownloads(ctx context.Context, itemIDs []string) (int, error) {
	var filter map[string]struct{}

	if itemIDs != nil {
		filter = make(map[string]struct{}, len(itemIDs))
		for _, itemID := range itemIDs {
			filter[itemID] = struct{}{}
		}
	}

	var (
		cancelled int
		errs      []error
	)

	for _, job := range s.scheduler.Snapshot().Jobs {
		if !job.Status.IsActive() {
			continue
		}

		if filter != nil {
			if _, ok := filter[job.ItemID]; !ok {
				continue
			}
		}

		err := s.scheduler.Cancel(job.JobID)
		if err != nil {
			// The job finished between the snapshot and the cancel.
			if errors.Is(err, scheduler.ErrJobFinished) {
				continue
			}

			errs = append(errs, err)

			continue
		}

		cancelled++

		logger.DebugKV(ctx, "Job cancelled", "item_id", job.ItemID, "job_id", job.JobID)
	}

	return cancelled, errors.Join(errs...)
}

// RetryFailedBulkDownloads enqueues new jobs for items that failed, were cancelled or were interrupted.
// Completed, active and never attempted items are skipped.
func (s *ServiceImpl) RetryFailedBulkDownloads(ctx context.Context, items []*catalog.Item) ([]scheduler.JobID, error) {
	s.bulkMu.Lock()
	defer s.bulkMu.Unlock()

	var (
		seen   = make(map[string]struct{}, len(items))
		jobIDs = make([]scheduler.JobID, 0, len(items))
		errs   []error
	)

	for _, item := range items {
		if item == nil {
			errs = append(errs, ErrNilItem)

			continue
		}

		if _, ok := seen[item.ID]; ok {
			continue
		}

		seen[item.ID] = struct{}{}

		meta, err := s.GetSongDownloadMeta(ctx, item.ID)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		if meta == nil || (meta.Status != scheduler.StatusFailed && meta.Status != scheduler.StatusCancelled) {
			continue
		}

		jobID, err := s.DownloadItem(ctx, item)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		logger.DebugKV(ctx, "Item retried",
			"item_id", item.ID, "job_id", jobID, "previous_status", meta.Status, "interrupted", meta.Interrupted)

		jobIDs = append(jobIDs, jobID)
	}

	return jobIDs, errors.Join(errs...)
}

// WaitForJobs blocks until every given job is terminal and its library and history writes are done.
func (s *ServiceImpl) WaitForJobs(ctx context.Context, jobIDs []scheduler.JobID) error {
	if len(jobIDs) == 0 {
		return nil
	}

	snapshot := s.scheduler.Snapshot()
	for _, jobID := range jobIDs {
		if _, ok := snapshot.Job(jobID); !ok {
			return fmt.Errorf("%w: %s", scheduler.ErrJobNotFound, jobID)
		}
	}

	var (
		done     = make(chan struct{})
		doneOnce = &sync.Once{}
	)

	unsubscribe := s.scheduler.Subscribe(func(snap scheduler.Snapshot) {
		for _, jobID := range jobIDs {
			job, ok := snap.Job(jobID)
			if !ok || !job.Status.IsTerminal() {
				return
			}
		}

		doneOnce.Do(func() { close(done) })
	})
	defer unsubscribe()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	return s.effects.flush(ctx)
}

// Subscribe forwards scheduler snapshots to listener.
func (s *ServiceImpl) Subscribe(listener scheduler.Listener) func() {
	return s.scheduler.Subscribe(listener)
}

// Close stops listening to the scheduler and finishes pending library and history writes.
// Jobs keep running until the scheduler is shut down.
func (s *ServiceImpl) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}

		s.effects.close()
	})
}
