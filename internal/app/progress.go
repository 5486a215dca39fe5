package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/songbook-offline/internal/scheduler"
)

const progressBarWidth = 40

// progressTracker renders the overall progress of a bulk run from scheduler snapshots.
type progressTracker struct {
	mu   *sync.Mutex
	bar  *progressbar.ProgressBar
	jobs map[scheduler.JobID]struct{}
	// percent and finished are the last rendered values.
	percent  int
	finished int
}

// newProgressTracker returns a tracker of jobIDs. A nil output disables rendering but keeps the counters.
func newProgressTracker(jobIDs []scheduler.JobID, output io.Writer) *progressTracker {
	t := &progressTracker{
		mu:   &sync.Mutex{},
		jobs: make(map[scheduler.JobID]struct{}, len(jobIDs)),
	}

	for _, jobID := range jobIDs {
		t.jobs[jobID] = struct{}{}
	}

	if output != nil && len(jobIDs) > 0 {
		t.bar = progressbar.NewOptions(
			100, //nolint:mnd // Percent.
			progressbar.OptionSetWriter(output),
			progressbar.OptionSetWidth(progressBarWidth),
			progressbar.OptionSetDescription(t.description()),
			progressbar.OptionClearOnFinish(),
		)
	}

	return t
}

// onSnapshot averages the progress of the tracked jobs, counting finished ones as complete.
func (t *progressTracker) onSnapshot(snap scheduler.Snapshot) {
	if len(t.jobs) == 0 {
		return
	}

	var (
		total    float64
		finished int
	)

	for _, job := range snap.Jobs {
		if _, ok := t.jobs[job.JobID]; !ok {
			continue
		}

		if job.Status.IsTerminal() {
			finished++
			total += 100

			continue
		}

		total += job.ProgressPercent
	}

	percent := int(total / float64(len(t.jobs)))

	t.mu.Lock()
	defer t.mu.Unlock()

	// A retried job restarts from zero; the bar does not move back.
	t.percent = max(t.percent, percent)
	t.finished = finished

	if t.bar == nil {
		return
	}

	t.bar.Describe(t.description())
	_ = t.bar.Set(t.percent) //nolint:errcheck // Rendering errors are not critical.
}

// finish removes the bar from the terminal.
func (t *progressTracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar == nil {
		return
	}

	_ = t.bar.Finish() //nolint:errcheck // Rendering errors are not critical.
}

func (t *progressTracker) description() string {
	return fmt.Sprintf("Items %d/%d", t.finished, len(t.jobs))
}
