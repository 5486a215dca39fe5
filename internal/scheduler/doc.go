// Package scheduler implements the in-memory download job scheduler.
//
// A Manager owns a FIFO queue of multi-file jobs, runs at most ConcurrencyLimit of them at once,
// transfers each job's files sequentially through a TransferAdapter, validates every file after it lands,
// retries failed jobs with exponential backoff and lets callers cancel jobs at any stage.
// Observers receive immutable, versioned snapshots through Subscribe.
package scheduler
