package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/songbook-offline/internal/config"
	"github.com/oshokin/songbook-offline/internal/constants"
	"github.com/oshokin/songbook-offline/internal/scheduler"
	"github.com/oshokin/songbook-offline/internal/service/download"
)

const testManifest = `
version: "1"
items:
  - id: amazing-grace
    title: Amazing Grace
    artist: Traditional
    version: "2"
    audio_a:
      url: %[1]s/files/amazing-grace-a.mp3
    lyrics:
      url: %[1]s/files/amazing-grace.txt
  - id: scarborough-fair
    title: Scarborough Fair
    audio_a:
      url: %[1]s/files/scarborough-fair-a.mp3
  - id: flaky
    title: Flaky
    score:
      url: %[1]s/flaky/score.pdf
  - id: slow
    title: Slow
    audio_a:
      url: %[1]s/slow/a.mp3
`

// catalogServer serves the manifest and the files of its items.
type catalogServer struct {
	*httptest.Server

	failing atomic.Bool
	slowHit chan struct{}
	hitOnce sync.Once
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()

	s := &catalogServer{slowHit: make(chan struct{})}

	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.yaml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, testManifest, s.URL)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "content of "+r.URL.Path)
	})
	mux.HandleFunc("/flaky/", func(w http.ResponseWriter, _ *http.Request) {
		if s.failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		_, _ = io.WriteString(w, "score")
	})
	mux.HandleFunc("/slow/", func(w http.ResponseWriter, r *http.Request) {
		s.hitOnce.Do(func() { close(s.slowHit) })

		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()

		<-r.Context().Done()
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func newTestApp(t *testing.T, manifestURL string) *App {
	t.Helper()

	cfg := &config.Config{
		OutputPath:             t.TempDir(),
		ManifestURL:            manifestURL,
		MaxConcurrentDownloads: 2,
		RetryAttemptsCount:     1,
		RetryBasePause:         "1ms",
		LogLevel:               "error",
	}
	require.NoError(t, config.ValidateConfig(cfg))

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	a.progressOutput = io.Discard

	t.Cleanup(func() { a.Close(context.Background()) })

	return a
}

func TestApp_RunBulkDownload(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		server = newCatalogServer(t)
		a      = newTestApp(t, server.URL+"/manifest.yaml")
	)

	items, err := a.selectItems(ctx, []string{"amazing-grace", "scarborough-fair"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	result, err := a.runBulk(ctx, items, bulkModeDownload)
	require.NoError(t, err)

	assert.False(t, result.interrupted)
	assert.Len(t, result.jobIDs, 2)
	assert.Equal(t, 2, result.progress.Completed)
	assert.Equal(t, 100, result.progress.ProgressPercent)
	assert.Positive(t, result.bytes)
	assert.True(t, result.metas["amazing-grace"].IsDownloaded())
	assert.Empty(t, printFailures(ctx, result))

	entries, err := a.repo.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "amazing-grace", entries[0].ItemID)
	assert.Equal(t, "2", entries[0].SourceVersion)
	assert.Len(t, entries[0].FilePaths, 2)

	for _, path := range entries[0].FilePaths {
		assert.FileExists(t, path)
	}
}

func TestApp_RunBulkRetry(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		server = newCatalogServer(t)
		a      = newTestApp(t, server.URL+"/manifest.yaml")
	)

	server.failing.Store(true)

	items, err := a.selectItems(ctx, []string{"flaky", "scarborough-fair"})
	require.NoError(t, err)

	result, err := a.runBulk(ctx, items, bulkModeDownload)
	require.NoError(t, err)

	assert.Equal(t, 1, result.progress.Completed)
	assert.Equal(t, 1, result.progress.Failed)
	assert.Equal(t, []string{"flaky"}, printFailures(ctx, result))
	assert.Equal(t, 2, result.metas["flaky"].Attempts)

	server.failing.Store(false)

	retried, err := a.runBulk(ctx, items, bulkModeRetry)
	require.NoError(t, err)

	assert.Len(t, retried.jobIDs, 1)
	assert.Equal(t, 2, retried.progress.Completed)
	assert.Empty(t, printFailures(ctx, retried))
}

func TestApp_RunBulkInterrupted(t *testing.T) {
	t.Parallel()

	var (
		server      = newCatalogServer(t)
		a           = newTestApp(t, server.URL+"/manifest.yaml")
		ctx, cancel = context.WithCancel(context.Background())
	)

	defer cancel()

	items, err := a.selectItems(ctx, []string{"slow"})
	require.NoError(t, err)

	go func() {
		<-server.slowHit
		cancel()
	}()

	result, err := a.runBulk(ctx, items, bulkModeDownload)
	require.NoError(t, err)

	assert.True(t, result.interrupted)
	assert.Equal(t, 1, result.progress.Cancelled)
	assert.Equal(t, []string{"slow"}, printFailures(context.Background(), result))

	entry, err := a.repo.GetEntry(context.Background(), "slow")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestApp_CollectStatus(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		server = newCatalogServer(t)
		a      = newTestApp(t, server.URL+"/manifest.yaml")
	)

	items, err := a.selectItems(ctx, []string{"scarborough-fair"})
	require.NoError(t, err)

	_, err = a.runBulk(ctx, items, bulkModeDownload)
	require.NoError(t, err)

	statuses, progress, err := a.collectStatus(ctx, nil)
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	assert.Equal(t, "amazing-grace", statuses[0].itemID)
	assert.Equal(t, "Traditional - Amazing Grace", statuses[0].title)
	assert.Nil(t, statuses[0].meta)
	assert.Equal(t, "Downloaded", statuses[1].meta.Label())
	assert.Contains(t, formatStatusLine(statuses[1]), "Downloaded")
	assert.Contains(t, formatStatusLine(statuses[0]), "Not downloaded")

	assert.Equal(t, 4, progress.Total)
	assert.Equal(t, 1, progress.Completed)
	assert.Equal(t, 3, progress.NotStarted())
	assert.Equal(t, 25, progress.ProgressPercent)
}

func TestApp_CollectStatusWithoutManifest(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, "")

	_, _, err := a.collectStatus(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoManifest)

	statuses, progress, err := a.collectStatus(context.Background(), []string{"anything"})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "anything", statuses[0].title)
	assert.Equal(t, 1, progress.NotStarted())
}

func TestApp_OutdatedItems(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		server = newCatalogServer(t)
		a      = newTestApp(t, server.URL+"/manifest.yaml")
	)

	items, err := a.selectItems(ctx, []string{"amazing-grace", "scarborough-fair"})
	require.NoError(t, err)

	_, err = a.runBulk(ctx, items, bulkModeDownload)
	require.NoError(t, err)

	entry, err := a.repo.GetEntry(ctx, "amazing-grace")
	require.NoError(t, err)
	require.NoError(t, os.Remove(entry.FilePaths["text"]))

	updates, err := a.outdatedItems(ctx)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	assert.Equal(t, "amazing-grace", updates[0].ItemID)
	assert.Equal(t, download.ReasonFilesMissing, updates[0].Reason)
	assert.Equal(t, []string{"text"}, updates[0].Files)
	assert.Contains(t, formatUpdateLine(updates[0]), "missing files: text")
	assert.Equal(t, "flaky", updates[1].ItemID)
	assert.Equal(t, download.ReasonNotDownloaded, updates[1].Reason)
	assert.Equal(t, "slow", updates[2].ItemID)
}

func TestApp_SelectItemsErrors(t *testing.T) {
	t.Parallel()

	server := newCatalogServer(t)

	_, err := newTestApp(t, "").selectItems(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoManifest)

	_, err = newTestApp(t, server.URL+"/manifest.yaml").selectItems(context.Background(), []string{"unknown"})
	require.Error(t, err)
}

func TestExpandItemIDs(t *testing.T) {
	t.Parallel()

	listPath := filepath.Join(t.TempDir(), "items.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("slow\n\namazing-grace\nslow\n"), constants.DefaultFilePermissions))

	itemIDs, err := expandItemIDs([]string{"flaky", listPath, "amazing-grace"})
	require.NoError(t, err)
	assert.Equal(t, []string{"flaky", "slow", "amazing-grace"}, itemIDs)

	_, err = expandItemIDs([]string{filepath.Join(t.TempDir(), "missing.txt")})
	require.Error(t, err)
}

func TestProgressTracker(t *testing.T) {
	t.Parallel()

	var (
		output  bytes.Buffer
		tracker = newProgressTracker([]scheduler.JobID{"job-1", "job-2"}, &output)
	)

	require.NotNil(t, tracker.bar)

	tracker.onSnapshot(scheduler.Snapshot{Jobs: []scheduler.JobRecordView{
		{JobID: "job-1", Status: scheduler.StatusDownloading, ProgressPercent: 50},
		{JobID: "job-2", Status: scheduler.StatusCompleted, ProgressPercent: 100},
		{JobID: "job-3", Status: scheduler.StatusDownloading, ProgressPercent: 10},
	}})

	assert.Equal(t, 75, tracker.percent)
	assert.Equal(t, 1, tracker.finished)
	assert.Equal(t, "Items 1/2", tracker.description())

	// A retry starts the job over, the bar keeps its position.
	tracker.onSnapshot(scheduler.Snapshot{Jobs: []scheduler.JobRecordView{
		{JobID: "job-1", Status: scheduler.StatusQueued},
		{JobID: "job-2", Status: scheduler.StatusCompleted, ProgressPercent: 100},
	}})

	assert.Equal(t, 75, tracker.percent)

	tracker.onSnapshot(scheduler.Snapshot{Jobs: []scheduler.JobRecordView{
		{JobID: "job-1", Status: scheduler.StatusFailed, ProgressPercent: 20},
		{JobID: "job-2", Status: scheduler.StatusCompleted, ProgressPercent: 100},
	}})

	assert.Equal(t, 100, tracker.percent)
	assert.Equal(t, 2, tracker.finished)

	tracker.finish()
	assert.NotZero(t, output.Len())

	hidden := newProgressTracker([]scheduler.JobID{"job-1"}, nil)
	assert.Nil(t, hidden.bar)

	hidden.onSnapshot(scheduler.Snapshot{Jobs: []scheduler.JobRecordView{
		{JobID: "job-1", Status: scheduler.StatusDownloading, ProgressPercent: 40},
	}})
	hidden.finish()

	assert.Equal(t, 40, hidden.percent)
}

func TestSetManifest(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: \"info\"\noutput_path: \"/tmp/songbook\"\n"),
		constants.DefaultFilePermissions))

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	require.NoError(t, config.ValidateConfig(cfg))

	require.Error(t, setManifest(cfg, "ftp://example.com/manifest.yaml"))
	assert.Empty(t, cfg.ManifestURL)

	require.NoError(t, setManifest(cfg, "https://cdn.example.com/manifest.yaml"))
	assert.Equal(t, "https://cdn.example.com/manifest.yaml", cfg.ManifestURL)

	reloaded, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/manifest.yaml", reloaded.ManifestURL)
	assert.Equal(t, "/tmp/songbook", reloaded.OutputPath)
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		OutputPath:             "/tmp/songbook",
		ManifestURL:            "catalog.yaml",
		MaxConcurrentDownloads: 3,
		RetryAttemptsCount:     2,
		RetryBasePause:         "2s",
		DownloadSpeedLimit:     "1KB",
		LogLevel:               "debug",
	}
	require.NoError(t, config.ValidateConfig(cfg))

	var buf bytes.Buffer
	require.NoError(t, writeConfig(cfg, &buf))

	var view configView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))

	assert.Equal(t, "/tmp/songbook", view.OutputPath)
	assert.Equal(t, config.DriverSQLite, view.DatabaseDriver)
	assert.Equal(t, filepath.Join("/tmp/songbook", config.DefaultHistoryFilename), view.HistoryPath)
	assert.Equal(t, int64(3), view.MaxConcurrentDownloads)
	assert.Equal(t, "2s", view.RetryBasePause)
	assert.Equal(t, int64(1000), view.DownloadSpeedLimitBPS)
	assert.Equal(t, "debug", view.LogLevel)
	assert.Equal(t, int64(config.DefaultHistoryProgressStep), view.HistoryProgressStep)
}

// TestFormatDuration tests the formatDuration helper function.
func TestFormatDuration(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{name: "milliseconds", duration: 250 * time.Millisecond, expected: "250ms"},
		{name: "seconds", duration: 42 * time.Second, expected: "42s"},
		{name: "minutes", duration: 3*time.Minute + 5*time.Second, expected: "3m 5s"},
		{name: "hours", duration: 2*time.Hour + 1*time.Minute + 9*time.Second, expected: "2h 1m 9s"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, formatDuration(tc.duration))
		})
	}
}
