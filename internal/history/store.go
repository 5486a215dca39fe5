package history

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/oshokin/songbook-offline/internal/scheduler"
)

//go:generate $MOCKGEN -source=store.go -destination=mocks/store_mock.go

// CurrentVersion is the schema version written into new blobs.
const CurrentVersion = 1

// Static error definitions for better error handling.
var (
	// ErrCorruptHistory indicates that the persisted blob cannot be decoded.
	ErrCorruptHistory = errors.New("history file is corrupt")
	// ErrNilBlob indicates that Set was called without a blob.
	ErrNilBlob = errors.New("history blob is nil")
)

// Store reads and writes the whole history blob.
type Store interface {
	// Get returns the persisted blob, or nil when nothing has been persisted yet.
	Get(ctx context.Context) (*Blob, error)
	// Set replaces the persisted blob.
	Set(ctx context.Context, blob *Blob) error
}

// Blob is the persisted history of all items.
type Blob struct {
	Version int              `json:"version"`
	Items   map[string]Entry `json:"items"`
}

// Entry is the last known status of an item's latest download job.
type Entry struct {
	JobID           string           `json:"job_id"`
	Status          scheduler.Status `json:"status"`
	ProgressPercent float64          `json:"progress_percent"`
	Attempts        int              `json:"attempts"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Error           string           `json:"error,omitempty"`
}

// NewBlob returns an empty blob of the current version.
func NewBlob() *Blob {
	return &Blob{
		Version: CurrentVersion,
		Items:   make(map[string]Entry),
	}
}

// Clone returns a deep copy of b.
func (b *Blob) Clone() *Blob {
	if b == nil {
		return nil
	}

	clone := &Blob{
		Version: b.Version,
		Items:   maps.Clone(b.Items),
	}

	if clone.Items == nil {
		clone.Items = make(map[string]Entry)
	}

	return clone
}

// Entry returns the entry of the item.
func (b *Blob) Entry(itemID string) (Entry, bool) {
	if b == nil {
		return Entry{}, false
	}

	entry, ok := b.Items[itemID]

	return entry, ok
}
