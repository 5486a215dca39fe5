package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/songbook-offline/internal/scheduler"
	mock_scheduler "github.com/oshokin/songbook-offline/internal/scheduler/mocks"
)

const eventuallyTimeout = 5 * time.Second

var errBoom = errors.New("boom")

// blockingAdapter holds every transfer until release is closed.
type blockingAdapter struct {
	mu        sync.Mutex
	current   int
	peak      int
	started   chan scheduler.JobID
	release   chan struct{}
	cancelled []scheduler.JobID
	// ignoreContext emulates a transport that cannot be aborted.
	ignoreContext bool
}

func newBlockingAdapter() *blockingAdapter {
	return &blockingAdapter{
		started: make(chan scheduler.JobID, 64),
		release: make(chan struct{}),
	}
}

func (a *blockingAdapter) Transfer(
	ctx context.Context,
	req scheduler.TransferRequest,
	onProgress scheduler.ProgressFunc,
) (scheduler.TransferResult, error) {
	a.mu.Lock()
	a.current++
	a.peak = max(a.peak, a.current)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.current--
		a.mu.Unlock()
	}()

	a.started <- req.JobID

	if a.ignoreContext {
		<-a.release
	} else {
		select {
		case <-a.release:
		case <-ctx.Done():
			return scheduler.TransferResult{}, ctx.Err()
		}
	}

	onProgress(1)

	return scheduler.TransferResult{SizeBytes: 10}, nil
}

func (a *blockingAdapter) Exists(context.Context, string) (bool, error) {
	return true, nil
}

func (a *blockingAdapter) Cancel(jobID scheduler.JobID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelled = append(a.cancelled, jobID)
}

func (a *blockingAdapter) Peak() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.peak
}

func (a *blockingAdapter) Cancelled() []scheduler.JobID {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]scheduler.JobID(nil), a.cancelled...)
}

func instantSleep(context.Context, time.Duration) error {
	return nil
}

func testJob(itemID string, files int) scheduler.DownloadJob {
	job := scheduler.DownloadJob{ItemID: itemID}

	for i := range files {
		job.Files = append(job.Files, scheduler.DownloadFile{
			Kind:            scheduler.FileKind("file" + string(rune('a'+i))),
			SourceURL:       "https://cdn.example.com/" + itemID + "/" + string(rune('a'+i)),
			DestinationPath: "/library/" + itemID + "/" + string(rune('a'+i)),
		})
	}

	return job
}

func waitForStatus(t *testing.T, m *scheduler.Manager, id scheduler.JobID, status scheduler.Status) {
	t.Helper()

	require.Eventually(t, func() bool {
		job, ok := m.Job(id)

		return ok && job.Status == status
	}, eventuallyTimeout, time.Millisecond, "job %s never reached %s", id, status)
}

func receiveStarted(t *testing.T, adapter *blockingAdapter) scheduler.JobID {
	t.Helper()

	select {
	case id := <-adapter.started:
		return id
	case <-time.After(eventuallyTimeout):
		require.FailNow(t, "transfer did not start")

		return ""
	}
}

// TestManager_ConcurrencyLimit tests that no more than ConcurrencyLimit jobs download at once.
func TestManager_ConcurrencyLimit(t *testing.T) {
	t.Parallel()

	adapter := newBlockingAdapter()
	m := scheduler.NewManager(adapter, scheduler.Config{ConcurrencyLimit: 2, Sleep: instantSleep})

	var (
		observedMu   sync.Mutex
		observedPeak int
	)

	unsubscribe := m.Subscribe(func(snap scheduler.Snapshot) {
		downloading := 0

		for _, job := range snap.Jobs {
			if job.Status == scheduler.StatusDownloading {
				downloading++
			}
		}

		observedMu.Lock()
		observedPeak = max(observedPeak, downloading)
		observedMu.Unlock()
	})
	defer unsubscribe()

	ids := make([]scheduler.JobID, 0, 3)

	for _, item := range []string{"a", "b", "c"} {
		id, err := m.Enqueue(testJob(item, 1))
		require.NoError(t, err)

		ids = append(ids, id)
	}

	receiveStarted(t, adapter)
	receiveStarted(t, adapter)

	third, ok := m.Job(ids[2])
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusQueued, third.Status)
	assert.Equal(t, 2, m.Snapshot().ActiveCount)

	close(adapter.release)
	m.Wait()

	for _, id := range ids {
		job, found := m.Job(id)
		require.True(t, found)
		assert.Equal(t, scheduler.StatusCompleted, job.Status)
	}

	assert.LessOrEqual(t, adapter.Peak(), 2)

	observedMu.Lock()
	defer observedMu.Unlock()

	assert.LessOrEqual(t, observedPeak, 2)
	assert.Equal(t, 0, m.Snapshot().ActiveCount)
}

// TestManager_RetryThenSuccess tests that a job failing twice completes on the third run.
func TestManager_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	adapter := mock_scheduler.NewMockTransferAdapter(ctrl)

	gomock.InOrder(
		adapter.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(scheduler.TransferResult{}, errBoom).Times(2),
		adapter.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(scheduler.TransferResult{SizeBytes: 4, SHA256: "ABCD"}, nil),
	)
	adapter.EXPECT().Exists(gomock.Any(), "/library/song/a").Return(true, nil)

	var (
		delaysMu sync.Mutex
		delays   []time.Duration
	)

	m := scheduler.NewManager(adapter, scheduler.Config{
		ConcurrencyLimit: 1,
		RetryLimit:       3,
		RetryBase:        100 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			delaysMu.Lock()
			defer delaysMu.Unlock()

			delays = append(delays, d)

			return nil
		},
	})

	job := testJob("song", 1)
	job.Files[0].ExpectedSizeBytes = 4
	job.Files[0].ExpectedSHA256 = "abcd"

	id, err := m.Enqueue(job)
	require.NoError(t, err)

	m.Wait()

	view, ok := m.Job(id)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusCompleted, view.Status)
	assert.Equal(t, 3, view.Attempts)
	assert.InDelta(t, 100.0, view.ProgressPercent, 0)
	assert.Empty(t, view.LastError)
	require.Len(t, view.Results, 1)
	assert.Equal(t, int64(4), view.Results[0].SizeBytes)
	assert.Equal(t, "/library/song/a", view.Results[0].DestinationPath)

	delaysMu.Lock()
	defer delaysMu.Unlock()

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}

// TestManager_RetryExhausted tests that the job fails with the last error once retries run out.
func TestManager_RetryExhausted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	adapter := mock_scheduler.NewMockTransferAdapter(ctrl)
	adapter.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(scheduler.TransferResult{}, errBoom).Times(2)

	m := scheduler.NewManager(adapter, scheduler.Config{RetryLimit: 1, Sleep: instantSleep})

	id, err := m.Enqueue(testJob("song", 1))
	require.NoError(t, err)

	m.Wait()

	view, ok := m.Job(id)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusFailed, view.Status)
	assert.Equal(t, 2, view.Attempts)
	assert.Contains(t, view.LastError, "transfer failure")
	assert.Contains(t, view.LastError, "boom")
}

// TestManager_Progress tests that job progress is clamped, non-decreasing and ends at 100.
func TestManager_Progress(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	adapter := mock_scheduler.NewMockTransferAdapter(ctrl)
	adapter.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(
			_ context.Context,
			_ scheduler.TransferRequest,
			onProgress scheduler.ProgressFunc,
		) (scheduler.TransferResult, error) {
			for _, ratio := range []float64{-0.5, 0.3, 0.2, 0.75, 1.7} {
				onProgress(ratio)
			}

			return scheduler.TransferResult{}, nil
		}).Times(2)
	adapter.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil).Times(2)

	m := scheduler.NewManager(adapter, scheduler.Config{Sleep: instantSleep})

	var (
		progressMu sync.Mutex
		progress   []float64
	)

	unsubscribe := m.Subscribe(func(snap scheduler.Snapshot) {
		progressMu.Lock()
		defer progressMu.Unlock()

		for _, job := range snap.Jobs {
			progress = append(progress, job.ProgressPercent)
		}
	})
	defer unsubscribe()

	id, err := m.Enqueue(testJob("song", 2))
	require.NoError(t, err)

	m.Wait()

	view, ok := m.Job(id)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusCompleted, view.Status)
	assert.InDelta(t, 100.0, view.ProgressPercent, 0)

	progressMu.Lock()
	defer progressMu.Unlock()

	require.NotEmpty(t, progress)

	for i, value := range progress {
		assert.GreaterOrEqual(t, value, 0.0)
		assert.LessOrEqual(t, value, 100.0)

		if i > 0 {
			assert.GreaterOrEqual(t, value, progress[i-1], "progress went backwards at %d", i)
		}
	}

	assert.InDelta(t, 100.0, progress[len(progress)-1], 0)
}

// TestManager_CancelQueued tests that a cancelled queued job never reaches the adapter.
func TestManager_CancelQueued(t *testing.T) {
	t.Parallel()

	adapter := newBlockingAdapter()
	m := scheduler.NewManager(adapter, scheduler.Config{ConcurrencyLimit: 1, Sleep: instantSleep})

	first, err := m.Enqueue(testJob("a", 1))
	require.NoError(t, err)

	second, err := m.Enqueue(testJob("b", 1))
	require.NoError(t, err)

	assert.Equal(t, first, receiveStarted(t, adapter))

	require.NoError(t, m.Cancel(second))

	view, ok := m.Job(second)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusCancelled, view.Status)
	assert.Equal(t, 0, view.Attempts)

	close(adapter.release)
	m.Wait()

	select {
	case id := <-adapter.started:
		assert.Failf(t, "unexpected transfer", "job %s reached the adapter", id)
	default:
	}

	assert.Empty(t, adapter.Cancelled())

	view, _ = m.Job(first)
	assert.Equal(t, scheduler.StatusCompleted, view.Status)
}

// TestManager_CancelDownloadingIgnoresLateSuccess tests that a transfer finishing after cancel
// leaves the job cancelled.
func TestManager_CancelDownloadingIgnoresLateSuccess(t *testing.T) {
	t.Parallel()

	adapter := newBlockingAdapter()
	adapter.ignoreContext = true

	m := scheduler.NewManager(adapter, scheduler.Config{ConcurrencyLimit: 1, Sleep: instantSleep})

	id, err := m.Enqueue(testJob("song", 1))
	require.NoError(t, err)

	receiveStarted(t, adapter)
	require.NoError(t, m.Cancel(id))

	assert.Equal(t, []scheduler.JobID{id}, adapter.Cancelled())

	close(adapter.release)
	m.Wait()

	view, ok := m.Job(id)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusCancelled, view.Status)
	assert.Less(t, view.ProgressPercent, 100.0)
	assert.Equal(t, 0, m.Snapshot().ActiveCount)

	require.ErrorIs(t, m.Cancel(id), scheduler.ErrJobFinished)
}

// TestManager_CancelRetrying tests that cancelling during backoff stops the job for good.
func TestManager_CancelRetrying(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	adapter := mock_scheduler.NewMockTransferAdapter(ctrl)
	adapter.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(scheduler.TransferResult{}, errBoom).Times(1)

	sleeping := make(chan struct{})

	m := scheduler.NewManager(adapter, scheduler.Config{
		RetryLimit: 5,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			close(sleeping)
			<-ctx.Done()

			return ctx.Err()
		},
	})

	id, err := m.Enqueue(testJob("song", 1))
	require.NoError(t, err)

	<-sleeping
	waitForStatus(t, m, id, scheduler.StatusRetrying)
	assert.Equal(t, 0, m.Snapshot().ActiveCount)

	require.NoError(t, m.Cancel(id))
	m.Wait()

	view, ok := m.Job(id)
	require.True(t, ok)
	assert.Equal(t, scheduler.StatusCancelled, view.Status)
	assert.Equal(t, 1, view.Attempts)
}

// TestManager_CancelErrors tests cancel of unknown and finished jobs.
func TestManager_CancelErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	adapter := mock_scheduler.NewMockTransferAdapter(ctrl)
	adapter.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Return(scheduler.TransferResult{}, nil)
	adapter.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil)

	m := scheduler.NewManager(adapter, scheduler.Config{Sleep: instantSleep})

	require.ErrorIs(t, m.Cancel("job-404"), scheduler.ErrJobNotFound)

	id, err := m.Enqueue(testJob("song", 1))
	require.NoError(t, err)

	m.Wait()

	require.ErrorIs(t, m.Cancel(id), scheduler.ErrJobFinished)
}

// TestManager_EnqueueInvalid tests that malformed jobs are rejected synchronously.
func TestManager_EnqueueInvalid(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	m := scheduler.NewManager(mock_scheduler.NewMockTransferAdapter(ctrl), scheduler.Config{})

	tests := []struct {
		name string
		job  scheduler.DownloadJob
	}{
		{
			name: "no files",
			job:  scheduler.DownloadJob{ItemID: "song"},
		},
		{
			name: "file without source",
			job: scheduler.DownloadJob{
				ItemID: "song",
				Files:  []scheduler.DownloadFile{{Kind: scheduler.KindText, DestinationPath: "/x"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := m.Enqueue(tt.job)
			require.ErrorIs(t, err, scheduler.ErrInvalidJob)
			assert.Empty(t, id)
		})
	}
}

// TestManager_Validation tests post-transfer validation of landed files.
func TestManager_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		exists         bool
		existsErr      error
		expectedSize   int64
		expectedHash   string
		result         scheduler.TransferResult
		expectedStatus scheduler.Status
		expectedError  string
	}{
		{
			name:           "missing file",
			exists:         false,
			expectedStatus: scheduler.StatusFailed,
			expectedError:  "file is missing",
		},
		{
			name:           "exists check error",
			existsErr:      errBoom,
			expectedStatus: scheduler.StatusFailed,
			expectedError:  "file is missing",
		},
		{
			name:           "size mismatch",
			exists:         true,
			expectedSize:   10,
			result:         scheduler.TransferResult{SizeBytes: 8},
			expectedStatus: scheduler.StatusFailed,
			expectedError:  "size mismatch",
		},
		{
			name:           "hash mismatch",
			exists:         true,
			expectedHash:   "aaaa",
			result:         scheduler.TransferResult{SHA256: "bbbb"},
			expectedStatus: scheduler.StatusFailed,
			expectedError:  "sha256 mismatch",
		},
		{
			name:           "hash differs only in case",
			exists:         true,
			expectedHash:   "ABCDEF",
			result:         scheduler.TransferResult{SHA256: "abcdef"},
			expectedStatus: scheduler.StatusCompleted,
		},
		{
			name:           "size not measured",
			exists:         true,
			expectedSize:   10,
			expectedStatus: scheduler.StatusCompleted,
		},
		{
			name:           "nothing declared",
			exists:         true,
			result:         scheduler.TransferResult{SizeBytes: 3, SHA256: "ff"},
			expectedStatus: scheduler.StatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			adapter := mock_scheduler.NewMockTransferAdapter(ctrl)
			adapter.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.result, nil)
			adapter.EXPECT().Exists(gomock.Any(), "/library/song/a").Return(tt.exists, tt.existsErr)

			m := scheduler.NewManager(adapter, scheduler.Config{RetryLimit: 0, Sleep: instantSleep})

			job := testJob("song", 1)
			job.Files[0].ExpectedSizeBytes = tt.expectedSize
			job.Files[0].ExpectedSHA256 = tt.expectedHash

			id, err := m.Enqueue(job)
			require.NoError(t, err)

			m.Wait()

			view, ok := m.Job(id)
			require.True(t, ok)
			assert.Equal(t, tt.expectedStatus, view.Status)

			if tt.expectedError != "" {
				assert.Contains(t, view.LastError, "validation failure")
				assert.Contains(t, view.LastError, tt.expectedError)
			}
		})
	}
}

// TestManager_Subscribe tests immediate delivery, ordering and unsubscription.
func TestManager_Subscribe(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	adapter := mock_scheduler.NewMockTransferAdapter(ctrl)
	adapter.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(scheduler.TransferResult{}, nil).AnyTimes()
	adapter.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()

	m := scheduler.NewManager(adapter, scheduler.Config{Sleep: instantSleep})

	var (
		mu            sync.Mutex
		firstVersions []uint64
		secondCalls   int
	)

	unsubscribeFirst := m.Subscribe(func(snap scheduler.Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		firstVersions = append(firstVersions, snap.Version)
	})
	defer unsubscribeFirst()

	unsubscribeSecond := m.Subscribe(func(scheduler.Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		secondCalls++
	})

	mu.Lock()
	assert.Len(t, firstVersions, 1)
	assert.Equal(t, 1, secondCalls)
	mu.Unlock()

	unsubscribeSecond()
	unsubscribeSecond()

	_, err := m.Enqueue(testJob("song", 1))
	require.NoError(t, err)

	m.Wait()

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 1, secondCalls)
	assert.Greater(t, len(firstVersions), 1)

	for i := 1; i < len(firstVersions); i++ {
		assert.Greater(t, firstVersions[i], firstVersions[i-1])
	}
}

// TestManager_Shutdown tests that shutdown cancels pending work and rejects new jobs.
func TestManager_Shutdown(t *testing.T) {
	t.Parallel()

	adapter := newBlockingAdapter()
	m := scheduler.NewManager(adapter, scheduler.Config{ConcurrencyLimit: 1, Sleep: instantSleep})

	running, err := m.Enqueue(testJob("a", 1))
	require.NoError(t, err)

	queued, err := m.Enqueue(testJob("b", 1))
	require.NoError(t, err)

	receiveStarted(t, adapter)

	m.Shutdown()

	for _, id := range []scheduler.JobID{running, queued} {
		view, ok := m.Job(id)
		require.True(t, ok)
		assert.Equal(t, scheduler.StatusCancelled, view.Status)
	}

	_, err = m.Enqueue(testJob("c", 1))
	require.ErrorIs(t, err, scheduler.ErrManagerClosed)

	m.Shutdown()
}

// TestManager_JobIDs tests that every enqueue produces a fresh, increasing id.
func TestManager_JobIDs(t *testing.T) {
	t.Parallel()

	adapter := newBlockingAdapter()
	close(adapter.release)

	m := scheduler.NewManager(adapter, scheduler.Config{Sleep: instantSleep})

	first, err := m.Enqueue(testJob("song", 1))
	require.NoError(t, err)

	second, err := m.Enqueue(testJob("song", 1))
	require.NoError(t, err)

	assert.Equal(t, scheduler.JobID("job-1"), first)
	assert.Equal(t, scheduler.JobID("job-2"), second)

	m.Wait()

	latest, ok := m.Snapshot().LatestForItem("song")
	require.True(t, ok)
	assert.Equal(t, second, latest.JobID)
}
