package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oshokin/songbook-offline/internal/constants"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/utils"
)

//go:generate $MOCKGEN -source=repository.go -destination=mocks/repository_mock.go

// Repository is the offline library.
type Repository interface {
	// PrepareItemPaths creates the item's folder and returns it.
	PrepareItemPaths(ctx context.Context, itemID string) (*ItemPaths, error)
	// UpsertEntry creates or replaces the entry of entry.ItemID.
	UpsertEntry(ctx context.Context, entry *Entry) error
	// GetEntry returns the entry of the item, or nil when the item is not in the library.
	GetEntry(ctx context.Context, itemID string) (*Entry, error)
	// ListEntries returns all entries ordered by item ID.
	ListEntries(ctx context.Context) ([]*Entry, error)
	// DeleteEntry removes the entry of the item and optionally its files.
	DeleteEntry(ctx context.Context, itemID string, opts DeleteOptions) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// EnsureDir creates path and its parents.
	EnsureDir(path string) error
	// DeleteFile removes a file; a missing file is not an error.
	DeleteFile(path string) error
	// FileSize returns the size of the file at path.
	FileSize(path string) (int64, error)
}

// RepositoryImpl stores entries with gorm and files under OutputPath.
type RepositoryImpl struct {
	db         *gorm.DB
	outputPath string
	now        func() time.Time
}

// NewRepository creates a Repository.
func NewRepository(db *gorm.DB, outputPath string) Repository {
	return &RepositoryImpl{
		db:         db,
		outputPath: outputPath,
		now:        time.Now,
	}
}

// PrepareItemPaths creates <output>/<sanitized item ID>/.
func (r *RepositoryImpl) PrepareItemPaths(ctx context.Context, itemID string) (*ItemPaths, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := r.itemDir(itemID)
	if err != nil {
		return nil, err
	}

	if err = r.EnsureDir(dir); err != nil {
		return nil, err
	}

	return &ItemPaths{ItemID: itemID, Dir: dir}, nil
}

// UpsertEntry creates or replaces the entry.
func (r *RepositoryImpl) UpsertEntry(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return ErrNilEntry
	}

	if strings.TrimSpace(entry.ItemID) == "" {
		return ErrEmptyItemID
	}

	record := entry.Clone()
	if record.DownloadedAt.IsZero() {
		record.DownloadedAt = r.now()
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns()),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert offline entry '%s': %w", entry.ItemID, err)
	}

	logger.DebugKV(ctx, "Offline entry saved", "item_id", entry.ItemID, "files", len(entry.FilePaths))

	return nil
}

func upsertColumns() []string {
	return []string{"source_version", "title", "downloaded_at", "file_paths", "sizes", "hashes", "updated_at"}
}

// GetEntry returns the entry, or nil when absent.
func (r *RepositoryImpl) GetEntry(ctx context.Context, itemID string) (*Entry, error) {
	var entry Entry

	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil //nolint:nilnil // Absence is not an error.
		}

		return nil, fmt.Errorf("failed to get offline entry '%s': %w", itemID, err)
	}

	return &entry, nil
}

// ListEntries returns all entries ordered by item ID.
func (r *RepositoryImpl) ListEntries(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry

	if err := r.db.WithContext(ctx).Order("item_id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list offline entries: %w", err)
	}

	return entries, nil
}

// DeleteEntry removes the entry. With DeleteFiles it also removes the recorded files and the item folder.
// Deleting an absent entry is not an error.
func (r *RepositoryImpl) DeleteEntry(ctx context.Context, itemID string, opts DeleteOptions) error {
	entry, err := r.GetEntry(ctx, itemID)
	if err != nil {
		return err
	}

	if opts.DeleteFiles {
		if err = r.deleteItemFiles(itemID, entry); err != nil {
			return err
		}
	}

	if entry == nil {
		return nil
	}

	if err = r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete offline entry '%s': %w", itemID, err)
	}

	logger.DebugKV(ctx, "Offline entry deleted", "item_id", itemID, "files_deleted", opts.DeleteFiles)

	return nil
}

func (r *RepositoryImpl) deleteItemFiles(itemID string, entry *Entry) error {
	if entry != nil {
		for _, path := range entry.FilePaths {
			if err := r.DeleteFile(path); err != nil {
				return err
			}
		}
	}

	dir, err := r.itemDir(itemID)
	if err != nil {
		return err
	}

	if err = os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete item folder %s: %w", dir, err)
	}

	return nil
}

// Exists reports whether a regular file exists at path.
func (r *RepositoryImpl) Exists(path string) (bool, error) {
	return utils.IsFileExist(path)
}

// EnsureDir creates path and its parents.
func (r *RepositoryImpl) EnsureDir(path string) error {
	if err := os.MkdirAll(path, constants.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}

	return nil
}

// DeleteFile removes a file; a missing file is not an error.
func (r *RepositoryImpl) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}

	return nil
}

// FileSize returns the size of the file at path.
func (r *RepositoryImpl) FileSize(path string) (int64, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	return stat.Size(), nil
}

func (r *RepositoryImpl) itemDir(itemID string) (string, error) {
	name := utils.SanitizeFilename(strings.TrimSpace(itemID))
	if name == "" {
		return "", ErrEmptyItemID
	}

	return filepath.Join(r.outputPath, name), nil
}
