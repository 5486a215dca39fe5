package scheduler

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/songbook-offline/internal/logger"
)

const (
	// DefaultConcurrencyLimit is used when Config.ConcurrencyLimit is not positive.
	DefaultConcurrencyLimit = 2
	// DefaultRetryBase is used when Config.RetryBase is not positive.
	DefaultRetryBase = time.Second

	maxBackoffShift = 20
	fullProgress    = 100
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Listener receives scheduler snapshots.
// Listeners run synchronously on the goroutine that mutated the state, one delivery at a time,
// so a slow listener holds up progress reports of every running job. Listeners should hand
// I/O off to their own goroutines and must not call Enqueue, Cancel or Shutdown themselves.
type Listener func(Snapshot)

// Config holds the Manager settings.
type Config struct {
	// ConcurrencyLimit is the maximum number of simultaneously downloading jobs.
	ConcurrencyLimit int
	// RetryLimit is the number of retries after the first failed run.
	RetryLimit int
	// RetryBase is the backoff before the first retry; it doubles with every attempt.
	RetryBase time.Duration
	// Sleep replaces the backoff wait, mostly for tests.
	Sleep SleepFunc
	// Now replaces the clock, mostly for tests.
	Now func() time.Time
}

// Manager is the job scheduler.
type Manager struct {
	adapter          TransferAdapter
	concurrencyLimit int
	retryLimit       int
	retryBase        time.Duration
	sleep            SleepFunc
	now              func() time.Time

	baseCtx    context.Context //nolint:containedctx // Parent of every job context, cancelled on Shutdown.
	baseCancel context.CancelFunc

	mu        *sync.Mutex
	idle      *sync.Cond
	seq       uint64
	version   uint64
	records   map[JobID]*jobRecord
	order     []JobID
	queue     []JobID
	active    int
	running   int
	closed    bool
	listeners []*subscription
	nextSubID uint64

	// emitMu serializes snapshot delivery so every listener sees versions in increasing order.
	emitMu *sync.Mutex
}

type jobRecord struct {
	id        JobID
	job       DownloadJob
	status    Status
	progress  float64
	attempts  int
	lastError string
	results   []TransferResult
	cancel    context.CancelFunc
	createdAt time.Time
	updatedAt time.Time
}

type subscription struct {
	id          uint64
	listener    Listener
	lastVersion uint64 // guarded by emitMu
	active      atomic.Bool
}

// NewManager creates a Manager that moves bytes through adapter.
func NewManager(adapter TransferAdapter, cfg Config) *Manager {
	if cfg.ConcurrencyLimit <= 0 {
		cfg.ConcurrencyLimit = DefaultConcurrencyLimit
	}

	if cfg.RetryLimit < 0 {
		cfg.RetryLimit = 0
	}

	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultRetryBase
	}

	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	baseCtx, baseCancel := context.WithCancel(logger.WithName(context.Background(), "scheduler"))

	m := &Manager{
		adapter:          adapter,
		concurrencyLimit: cfg.ConcurrencyLimit,
		retryLimit:       cfg.RetryLimit,
		retryBase:        cfg.RetryBase,
		sleep:            cfg.Sleep,
		now:              cfg.Now,
		baseCtx:          baseCtx,
		baseCancel:       baseCancel,
		mu:               &sync.Mutex{},
		records:          make(map[JobID]*jobRecord),
		emitMu:           &sync.Mutex{},
	}

	m.idle = sync.NewCond(m.mu)

	return m
}

// Enqueue validates job, stores it as queued and starts it when a slot is free.
func (m *Manager) Enqueue(job DownloadJob) (JobID, error) {
	if err := validateJob(job); err != nil {
		return "", err
	}

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()

		return "", ErrManagerClosed
	}

	m.seq++

	var (
		id  = JobID("job-" + strconv.FormatUint(m.seq, 10))
		now = m.now()
	)

	m.records[id] = &jobRecord{
		id: id,
		job: DownloadJob{
			ItemID: job.ItemID,
			Files:  slices.Clone(job.Files),
		},
		status:    StatusQueued,
		createdAt: now,
		updatedAt: now,
	}
	m.order = append(m.order, id)
	m.queue = append(m.queue, id)

	logger.DebugKV(m.baseCtx, "Job enqueued", "job_id", id, "item_id", job.ItemID, "files", len(job.Files))

	m.pumpLocked()

	snap := m.bumpLocked()
	m.mu.Unlock()

	m.deliver(snap)

	return id, nil
}

// Cancel stops the job. Queued jobs never reach the adapter; downloading jobs get their context
// cancelled and the adapter's Canceler hook called; retrying jobs stop waiting.
func (m *Manager) Cancel(id JobID) error {
	m.mu.Lock()

	rec, ok := m.records[id]
	if !ok {
		m.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	wasDownloading, err := m.cancelLocked(rec)
	if err != nil {
		m.mu.Unlock()

		return err
	}

	snap := m.bumpLocked()
	m.mu.Unlock()

	if wasDownloading {
		m.cancelHook(id)
	}

	m.deliver(snap)

	return nil
}

// Subscribe registers listener and immediately delivers the current snapshot to it.
// The returned function stops delivery; calling it more than once is safe.
func (m *Manager) Subscribe(listener Listener) func() {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	m.nextSubID++

	sub := &subscription{id: m.nextSubID, listener: listener}
	sub.active.Store(true)

	m.listeners = append(m.listeners, sub)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	sub.lastVersion = snap.Version
	listener(snap)

	return func() { m.unsubscribe(sub) }
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

// Job returns the view of a single job.
func (m *Manager) Job(id JobID) (JobRecordView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return JobRecordView{}, false
	}

	return rec.view(), true
}

// Wait blocks until no job is queued, downloading or waiting to retry.
func (m *Manager) Wait() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.running > 0 || len(m.queue) > 0 {
		m.idle.Wait()
	}
}

// Shutdown cancels every unfinished job, rejects new ones and waits for running goroutines to return.
func (m *Manager) Shutdown() {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		m.Wait()

		return
	}

	m.closed = true

	var downloading []JobID

	for _, id := range m.order {
		rec := m.records[id]
		if rec.status.IsTerminal() {
			continue
		}

		wasDownloading, err := m.cancelLocked(rec)
		if err == nil && wasDownloading {
			downloading = append(downloading, id)
		}
	}

	snap := m.bumpLocked()
	m.mu.Unlock()

	for _, id := range downloading {
		m.cancelHook(id)
	}

	m.deliver(snap)
	m.Wait()
	m.baseCancel()
}

// cancelLocked moves rec to cancelled and reports whether a transfer may still be in flight.
func (m *Manager) cancelLocked(rec *jobRecord) (bool, error) {
	if rec.status.IsTerminal() {
		return false, fmt.Errorf("%w: %s is %s", ErrJobFinished, rec.id, rec.status)
	}

	wasDownloading := rec.status == StatusDownloading

	if rec.status == StatusQueued {
		m.queue = slices.DeleteFunc(m.queue, func(queued JobID) bool { return queued == rec.id })
	}

	if rec.cancel != nil {
		rec.cancel()
	}

	if err := m.transitionLocked(rec, StatusCancelled); err != nil {
		return false, err
	}

	if len(m.queue) == 0 && m.running == 0 {
		m.idle.Broadcast()
	}

	return wasDownloading, nil
}

func (m *Manager) cancelHook(id JobID) {
	if canceler, ok := m.adapter.(Canceler); ok {
		canceler.Cancel(id)
	}
}

// pumpLocked starts queued jobs while slots are free.
func (m *Manager) pumpLocked() {
	for m.active < m.concurrencyLimit && len(m.queue) > 0 {
		id := m.queue[0]
		m.queue = m.queue[1:]

		rec, ok := m.records[id]
		if !ok || rec.status != StatusQueued {
			continue
		}

		if err := m.transitionLocked(rec, StatusDownloading); err != nil {
			continue
		}

		ctx, cancel := context.WithCancel(logger.WithKV(m.baseCtx, "job_id", id))

		rec.attempts++
		rec.progress = 0
		rec.results = nil
		rec.cancel = cancel

		m.active++
		m.running++

		logger.DebugKV(ctx, "Job started", "item_id", rec.job.ItemID, "attempt", rec.attempts)

		go m.run(ctx, id, rec.job)
	}
}

// run transfers the job's files and reports the outcome. It owns a concurrency slot until it returns.
func (m *Manager) run(ctx context.Context, id JobID, job DownloadJob) {
	results, err := m.execute(ctx, id, job)
	m.finish(ctx, id, results, err)
}

func (m *Manager) execute(ctx context.Context, id JobID, job DownloadJob) ([]TransferResult, error) {
	var (
		totalFiles = len(job.Files)
		results    = make([]TransferResult, 0, totalFiles)
	)

	for fileIndex, file := range job.Files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		onProgress := func(ratio float64) {
			m.reportProgress(id, foldProgress(fileIndex, totalFiles, ratio))
		}

		result, err := m.adapter.Transfer(ctx, TransferRequest{
			JobID:           id,
			Kind:            file.Kind,
			SourceURL:       file.SourceURL,
			DestinationPath: file.DestinationPath,
		}, onProgress)
		if err != nil {
			return results, fmt.Errorf("%w: %s: %w", ErrTransferFailure, file.SourceURL, err)
		}

		if err = m.validate(ctx, file, result); err != nil {
			return results, err
		}

		result.Kind = file.Kind
		result.DestinationPath = file.DestinationPath
		results = append(results, result)

		m.reportProgress(id, foldProgress(fileIndex, totalFiles, 1))
	}

	return results, nil
}

func (m *Manager) reportProgress(id JobID, progress float64) {
	m.mu.Lock()

	rec, ok := m.records[id]
	if !ok || rec.status != StatusDownloading || progress <= rec.progress {
		m.mu.Unlock()

		return
	}

	// Sub-percent movements are stored but not broadcast.
	changed := math.Floor(progress) > math.Floor(rec.progress)
	rec.progress = progress
	rec.updatedAt = m.now()

	if !changed {
		m.mu.Unlock()

		return
	}

	snap := m.bumpLocked()
	m.mu.Unlock()

	m.deliver(snap)
}

// finish releases the slot and applies the run's outcome unless the job was cancelled meanwhile.
func (m *Manager) finish(ctx context.Context, id JobID, results []TransferResult, runErr error) {
	m.mu.Lock()

	m.active--
	m.running--

	rec := m.records[id]
	if rec.cancel != nil {
		rec.cancel()
		rec.cancel = nil
	}

	switch {
	case rec.status != StatusDownloading:
		logger.DebugKV(ctx, "Discarding result of a job that is no longer downloading", "status", rec.status)
	case runErr == nil:
		rec.progress = fullProgress
		rec.results = results
		rec.lastError = ""

		if err := m.transitionLocked(rec, StatusCompleted); err == nil {
			logger.DebugKV(ctx, "Job completed", "item_id", rec.job.ItemID, "attempts", rec.attempts)
		}
	default:
		rec.lastError = runErr.Error()
		rec.results = results

		m.failLocked(ctx, rec, runErr)
	}

	m.pumpLocked()

	if m.running == 0 && len(m.queue) == 0 {
		m.idle.Broadcast()
	}

	snap := m.bumpLocked()
	m.mu.Unlock()

	m.deliver(snap)
}

func (m *Manager) failLocked(ctx context.Context, rec *jobRecord, runErr error) {
	if rec.attempts > m.retryLimit {
		if err := m.transitionLocked(rec, StatusFailed); err == nil {
			logger.WarnKV(ctx, "Job failed", "item_id", rec.job.ItemID, "attempts", rec.attempts, "error", runErr)
		}

		return
	}

	if err := m.transitionLocked(rec, StatusRetrying); err != nil {
		return
	}

	// The run context is already cancelled at this point, so the backoff gets its own.
	retryCtx, cancel := context.WithCancel(logger.WithKV(m.baseCtx, "job_id", rec.id))
	rec.cancel = cancel
	m.running++

	delay := m.backoff(rec.attempts)

	logger.DebugKV(ctx, "Job will be retried",
		"item_id", rec.job.ItemID, "attempts", rec.attempts, "delay", delay, "error", runErr)

	go m.retryAfter(retryCtx, rec.id, delay)
}

// retryAfter waits out the backoff and puts the job back at the tail of the queue.
func (m *Manager) retryAfter(ctx context.Context, id JobID, delay time.Duration) {
	sleepErr := m.sleep(ctx, delay)

	m.mu.Lock()

	m.running--

	rec := m.records[id]
	if rec.status != StatusRetrying {
		if m.running == 0 && len(m.queue) == 0 {
			m.idle.Broadcast()
		}

		m.mu.Unlock()

		return
	}

	if sleepErr != nil && ctx.Err() == nil {
		logger.DebugKV(ctx, "Backoff sleep returned early", "error", sleepErr)
	}

	if rec.cancel != nil {
		rec.cancel()
		rec.cancel = nil
	}

	rec.progress = 0

	if err := m.transitionLocked(rec, StatusQueued); err == nil {
		m.queue = append(m.queue, id)
	}

	m.pumpLocked()

	if m.running == 0 && len(m.queue) == 0 {
		m.idle.Broadcast()
	}

	snap := m.bumpLocked()
	m.mu.Unlock()

	m.deliver(snap)
}

func (m *Manager) backoff(attempts int) time.Duration {
	shift := min(max(attempts-1, 0), maxBackoffShift)

	return m.retryBase * time.Duration(1<<shift)
}

func (m *Manager) transitionLocked(rec *jobRecord, next Status) error {
	if !rec.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s for %s", ErrIllegalTransition, rec.status, next, rec.id)
	}

	rec.status = next
	rec.updatedAt = m.now()

	return nil
}

// bumpLocked records a mutation and returns the snapshot to deliver after unlocking.
func (m *Manager) bumpLocked() Snapshot {
	m.version++

	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	jobs := make([]JobRecordView, 0, len(m.order))
	for _, id := range m.order {
		jobs = append(jobs, m.records[id].view())
	}

	return Snapshot{
		Version:     m.version,
		ActiveCount: m.active,
		Jobs:        jobs,
	}
}

// deliver hands snap to every live listener that has not yet seen a newer version.
func (m *Manager) deliver(snap Snapshot) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, sub := range listeners {
		if !sub.active.Load() || snap.Version <= sub.lastVersion {
			continue
		}

		sub.lastVersion = snap.Version
		sub.listener(snap)
	}
}

func (m *Manager) unsubscribe(sub *subscription) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = slices.DeleteFunc(m.listeners, func(s *subscription) bool { return s.id == sub.id })
}

func (r *jobRecord) view() JobRecordView {
	return JobRecordView{
		JobID:           r.id,
		ItemID:          r.job.ItemID,
		Files:           slices.Clone(r.job.Files),
		Status:          r.status,
		ProgressPercent: r.progress,
		Attempts:        r.attempts,
		LastError:       r.lastError,
		Results:         slices.Clone(r.results),
		CreatedAt:       r.createdAt,
		UpdatedAt:       r.updatedAt,
	}
}

func validateJob(job DownloadJob) error {
	if len(job.Files) == 0 {
		return fmt.Errorf("%w: job for item '%s' has no files", ErrInvalidJob, job.ItemID)
	}

	for i, file := range job.Files {
		if file.SourceURL == "" || file.DestinationPath == "" {
			return fmt.Errorf("%w: file %d of item '%s' has no source or destination", ErrInvalidJob, i, job.ItemID)
		}
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
