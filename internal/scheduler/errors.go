package scheduler

import "errors"

// Static error definitions for better error handling.
var (
	// ErrInvalidJob indicates that a job was rejected at enqueue time.
	ErrInvalidJob = errors.New("invalid job")
	// ErrTransferFailure indicates that the transfer adapter failed to move a file.
	ErrTransferFailure = errors.New("transfer failure")
	// ErrValidationFailure indicates that a transferred file did not pass post-transfer checks.
	ErrValidationFailure = errors.New("validation failure")
	// ErrFileMissing indicates that the transferred file does not exist at its destination.
	ErrFileMissing = errors.New("file is missing")
	// ErrSizeMismatch indicates that the transferred size differs from the declared one.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrHashMismatch indicates that the transferred SHA-256 differs from the declared one.
	ErrHashMismatch = errors.New("sha256 mismatch")
	// ErrJobNotFound indicates that no job with the given ID was ever enqueued.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinished indicates that the job already reached a terminal status.
	ErrJobFinished = errors.New("job already finished")
	// ErrIllegalTransition indicates an attempt to move a job along an edge the state machine forbids.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrManagerClosed indicates that the manager was shut down and accepts no new jobs.
	ErrManagerClosed = errors.New("scheduler is shut down")
)
