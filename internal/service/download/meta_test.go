package download_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/songbook-offline/internal/history"
	"github.com/oshokin/songbook-offline/internal/scheduler"
	"github.com/oshokin/songbook-offline/internal/service/download"
)

func TestReconcileMeta(t *testing.T) {
	t.Parallel()

	var (
		liveTime      = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		persistedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	)

	liveJob := func(status scheduler.Status) *scheduler.JobRecordView {
		return &scheduler.JobRecordView{
			JobID:           "job-9",
			ItemID:          "song",
			Status:          status,
			ProgressPercent: 55,
			Attempts:        2,
			LastError:       "previous attempt failed",
			UpdatedAt:       liveTime,
		}
	}

	persistedEntry := func(status scheduler.Status) *history.Entry {
		return &history.Entry{
			JobID:           "job-3",
			Status:          status,
			ProgressPercent: 30,
			Attempts:        1,
			UpdatedAt:       persistedTime,
			Error:           "disk full",
		}
	}

	tests := []struct {
		name      string
		live      *scheduler.JobRecordView
		persisted *history.Entry
		want      *download.SongDownloadMeta
	}{
		{
			name: "nothing known",
			want: nil,
		},
		{
			name:      "active live job wins over history",
			live:      liveJob(scheduler.StatusDownloading),
			persisted: persistedEntry(scheduler.StatusFailed),
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-9",
				Status:          scheduler.StatusDownloading,
				ProgressPercent: 55,
				Attempts:        2,
				UpdatedAt:       liveTime,
				Error:           "previous attempt failed",
			},
		},
		{
			name: "retrying live job",
			live: liveJob(scheduler.StatusRetrying),
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-9",
				Status:          scheduler.StatusRetrying,
				ProgressPercent: 55,
				Attempts:        2,
				UpdatedAt:       liveTime,
				Error:           "previous attempt failed",
			},
		},
		{
			name: "completed live job wins over lagging history",
			live: liveJob(scheduler.StatusCompleted),
			persisted: &history.Entry{
				JobID:           "job-9",
				Status:          scheduler.StatusDownloading,
				ProgressPercent: 50,
				Attempts:        2,
				UpdatedAt:       persistedTime,
			},
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-9",
				Status:          scheduler.StatusCompleted,
				ProgressPercent: 55,
				Attempts:        2,
				UpdatedAt:       liveTime,
				Error:           "previous attempt failed",
			},
		},
		{
			name:      "cancelled live job wins over older history",
			live:      liveJob(scheduler.StatusCancelled),
			persisted: persistedEntry(scheduler.StatusCompleted),
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-9",
				Status:          scheduler.StatusCancelled,
				ProgressPercent: 55,
				Attempts:        2,
				UpdatedAt:       liveTime,
				Error:           "previous attempt failed",
			},
		},
		{
			name: "failed live job without history",
			live: liveJob(scheduler.StatusFailed),
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-9",
				Status:          scheduler.StatusFailed,
				ProgressPercent: 55,
				Attempts:        2,
				UpdatedAt:       liveTime,
				Error:           "previous attempt failed",
			},
		},
		{
			name:      "completed history verbatim",
			persisted: persistedEntry(scheduler.StatusCompleted),
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-3",
				Status:          scheduler.StatusCompleted,
				ProgressPercent: 30,
				Attempts:        1,
				UpdatedAt:       persistedTime,
				Error:           "disk full",
			},
		},
		{
			name:      "downloading history is interrupted",
			persisted: persistedEntry(scheduler.StatusDownloading),
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-3",
				Status:          scheduler.StatusFailed,
				ProgressPercent: 30,
				Attempts:        1,
				UpdatedAt:       persistedTime,
				Error:           download.InterruptedDownloadMessage,
				Interrupted:     true,
			},
		},
		{
			name:      "queued history is interrupted",
			persisted: persistedEntry(scheduler.StatusQueued),
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-3",
				Status:          scheduler.StatusFailed,
				ProgressPercent: 30,
				Attempts:        1,
				UpdatedAt:       persistedTime,
				Error:           download.InterruptedDownloadMessage,
				Interrupted:     true,
			},
		},
		{
			name:      "unknown history status is interrupted",
			persisted: persistedEntry(scheduler.Status("paused")),
			want: &download.SongDownloadMeta{
				ItemID:          "song",
				JobID:           "job-3",
				Status:          scheduler.StatusFailed,
				ProgressPercent: 30,
				Attempts:        1,
				UpdatedAt:       persistedTime,
				Error:           download.InterruptedDownloadMessage,
				Interrupted:     true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := download.ReconcileMeta("song", tt.live, tt.persisted)
			if tt.want == nil {
				assert.Nil(t, got)

				return
			}

			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestSongDownloadMeta_Label(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta *download.SongDownloadMeta
		want string
	}{
		{name: "nil", meta: nil, want: "Not downloaded"},
		{name: "queued", meta: &download.SongDownloadMeta{Status: scheduler.StatusQueued}, want: "Queued"},
		{
			name: "downloading",
			meta: &download.SongDownloadMeta{Status: scheduler.StatusDownloading, ProgressPercent: 42.9},
			want: "Downloading 42%",
		},
		{
			name: "retrying",
			meta: &download.SongDownloadMeta{Status: scheduler.StatusRetrying, Attempts: 2},
			want: "Retrying after attempt 2",
		},
		{name: "completed", meta: &download.SongDownloadMeta{Status: scheduler.StatusCompleted}, want: "Downloaded"},
		{name: "failed", meta: &download.SongDownloadMeta{Status: scheduler.StatusFailed}, want: "Failed"},
		{
			name: "interrupted",
			meta: &download.SongDownloadMeta{Status: scheduler.StatusFailed, Interrupted: true},
			want: "Interrupted",
		},
		{name: "cancelled", meta: &download.SongDownloadMeta{Status: scheduler.StatusCancelled}, want: "Cancelled"},
		{name: "unknown", meta: &download.SongDownloadMeta{Status: "paused"}, want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.meta.Label())
		})
	}
}

func TestSongDownloadMeta_Predicates(t *testing.T) {
	t.Parallel()

	var missing *download.SongDownloadMeta

	assert.False(t, missing.IsActive())
	assert.False(t, missing.IsDownloaded())

	assert.True(t, (&download.SongDownloadMeta{Status: scheduler.StatusRetrying}).IsActive())
	assert.False(t, (&download.SongDownloadMeta{Status: scheduler.StatusCompleted}).IsActive())
	assert.True(t, (&download.SongDownloadMeta{Status: scheduler.StatusCompleted}).IsDownloaded())
	assert.False(t, (&download.SongDownloadMeta{Status: scheduler.StatusFailed}).IsDownloaded())
}
