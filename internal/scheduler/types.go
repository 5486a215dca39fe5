package scheduler

import (
	"strings"
	"time"
)

// FileKind identifies the role of a file within an item.
type FileKind string

// Well-known file kinds.
const (
	KindPrimaryA FileKind = "primary_a"
	KindPrimaryB FileKind = "primary_b"
	KindText     FileKind = "text"
	KindDocument FileKind = "document"

	variantKindPrefix = "variant_"
)

// VariantKind returns the kind used for an alternate audio variant.
func VariantKind(variantID string) FileKind {
	return FileKind(variantKindPrefix + variantID)
}

// IsVariant reports whether the kind denotes an alternate audio variant.
func (k FileKind) IsVariant() bool {
	return strings.HasPrefix(string(k), variantKindPrefix)
}

// DownloadFile describes one file of a job. Zero ExpectedSizeBytes or empty ExpectedSHA256 mean "not declared".
type DownloadFile struct {
	Kind              FileKind
	SourceURL         string
	DestinationPath   string
	ExpectedSizeBytes int64
	ExpectedSHA256    string
}

// DownloadJob is a request to download all files of one item, in order.
type DownloadJob struct {
	ItemID string
	Files  []DownloadFile
}

// JobID identifies one enqueue call.
type JobID string

// TransferRequest is the input of a single file transfer.
type TransferRequest struct {
	JobID           JobID
	Kind            FileKind
	SourceURL       string
	DestinationPath string
}

// TransferResult is what the adapter reports about a transferred file.
// Zero values mean the adapter did not measure the property.
type TransferResult struct {
	Kind            FileKind
	DestinationPath string
	SizeBytes       int64
	SHA256          string
}

// JobRecordView is an immutable copy of a job record.
type JobRecordView struct {
	JobID           JobID
	ItemID          string
	Files           []DownloadFile
	Status          Status
	ProgressPercent float64
	Attempts        int
	LastError       string
	Results         []TransferResult
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Snapshot is the full observable state of the scheduler at an instant.
// Version grows with every mutation; a listener never receives a lower version than one it has seen.
type Snapshot struct {
	Version     uint64
	ActiveCount int
	Jobs        []JobRecordView
}

// Job returns the view of the given job.
func (s Snapshot) Job(id JobID) (JobRecordView, bool) {
	for _, job := range s.Jobs {
		if job.JobID == id {
			return job, true
		}
	}

	return JobRecordView{}, false
}

// LatestForItem returns the most recently enqueued job of the item.
func (s Snapshot) LatestForItem(itemID string) (JobRecordView, bool) {
	for i := len(s.Jobs) - 1; i >= 0; i-- {
		if s.Jobs[i].ItemID == itemID {
			return s.Jobs[i], true
		}
	}

	return JobRecordView{}, false
}

// ActiveForItem returns the active job of the item, if any.
func (s Snapshot) ActiveForItem(itemID string) (JobRecordView, bool) {
	for i := len(s.Jobs) - 1; i >= 0; i-- {
		if s.Jobs[i].ItemID == itemID && s.Jobs[i].Status.IsActive() {
			return s.Jobs[i], true
		}
	}

	return JobRecordView{}, false
}
