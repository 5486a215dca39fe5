package library

import (
	"errors"
	"maps"
	"time"
)

// Static error definitions for better error handling.
var (
	// ErrNilEntry indicates that UpsertEntry was called without an entry.
	ErrNilEntry = errors.New("offline entry is nil")
	// ErrEmptyItemID indicates that an item ID is missing.
	ErrEmptyItemID = errors.New("item ID cannot be empty")
	// ErrUnsupportedDriver indicates that the database driver is unknown.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Entry is the durable proof that an item's files exist on disk.
// Maps are keyed by file kind.
type Entry struct {
	ItemID        string            `gorm:"primaryKey;size:128" json:"item_id"`
	SourceVersion string            `gorm:"size:64" json:"source_version"`
	Title         string            `gorm:"size:255" json:"title"`
	DownloadedAt  time.Time         `gorm:"index" json:"downloaded_at"`
	FilePaths     map[string]string `gorm:"serializer:json" json:"file_paths"`
	Sizes         map[string]int64  `gorm:"serializer:json" json:"sizes,omitempty"`
	Hashes        map[string]string `gorm:"serializer:json" json:"hashes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// TableName returns the table name.
func (Entry) TableName() string {
	return "offline_entries"
}

// TotalSize returns the sum of all recorded file sizes.
func (e *Entry) TotalSize() int64 {
	var total int64

	for _, size := range e.Sizes {
		total += size
	}

	return total
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	clone := *e
	clone.FilePaths = maps.Clone(e.FilePaths)
	clone.Sizes = maps.Clone(e.Sizes)
	clone.Hashes = maps.Clone(e.Hashes)

	return &clone
}

// DeleteOptions controls DeleteEntry.
type DeleteOptions struct {
	// DeleteFiles removes the item's files and folder as well as its index entry.
	DeleteFiles bool
}
