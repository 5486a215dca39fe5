package scheduler

import "context"

//go:generate $MOCKGEN -source=adapter.go -destination=mocks/adapter_mock.go

// ProgressFunc receives the fraction of the current file that has been transferred.
type ProgressFunc func(ratio float64)

// TransferAdapter moves bytes for the scheduler. The scheduler knows nothing about the transport.
type TransferAdapter interface {
	// Transfer downloads one file to its destination and reports what it measured.
	Transfer(ctx context.Context, req TransferRequest, onProgress ProgressFunc) (TransferResult, error)
	// Exists reports whether a regular file exists at path.
	Exists(ctx context.Context, path string) (bool, error)
}

// Canceler is implemented by adapters that can abort an in-flight transfer of a job.
type Canceler interface {
	// Cancel is a best-effort hint to stop transferring files of the job.
	Cancel(jobID JobID)
}
