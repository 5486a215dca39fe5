package download

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/songbook-offline/internal/catalog"
	"github.com/oshokin/songbook-offline/internal/library"
	"github.com/oshokin/songbook-offline/internal/logger"
)

const defaultUpdateCheckConcurrency = 4

// UpdateReason explains why an item needs to be downloaded again.
type UpdateReason string

// Update reasons.
const (
	// ReasonNotDownloaded means the item is not in the offline library.
	ReasonNotDownloaded UpdateReason = "not_downloaded"
	// ReasonVersionChanged means the manifest declares a newer version than the downloaded one.
	ReasonVersionChanged UpdateReason = "version_changed"
	// ReasonAssetsChanged means the manifest declares assets the offline copy lacks.
	ReasonAssetsChanged UpdateReason = "assets_changed"
	// ReasonFilesMissing means recorded files are gone from disk.
	ReasonFilesMissing UpdateReason = "files_missing"
	// ReasonFilesChanged means recorded files have a different size than when they were downloaded.
	ReasonFilesChanged UpdateReason = "files_changed"
)

// UpdateInfo describes an item whose offline copy is missing, outdated or damaged.
type UpdateInfo struct {
	ItemID           string
	Title            string
	Reason           UpdateReason
	InstalledVersion string
	AvailableVersion string
	// Files lists the affected file kinds, when the reason concerns files.
	Files []string
}

// CheckForUpdates checks the given items against the offline library and returns those that need a download,
// in the order of items.
func (s *ServiceImpl) CheckForUpdates(ctx context.Context, items []*catalog.Item) ([]*UpdateInfo, error) {
	var (
		results = make([]*UpdateInfo, len(items))
		g, gctx = errgroup.WithContext(ctx)
	)

	g.SetLimit(s.cfg.UpdateCheckConcurrency)

	for idx, item := range items {
		if item == nil {
			continue
		}

		g.Go(func() error {
			info, err := s.checkItem(gctx, item)
			if err != nil {
				return fmt.Errorf("failed to check item '%s': %w", item.ID, err)
			}

			results[idx] = info

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	updates := slices.DeleteFunc(results, func(info *UpdateInfo) bool { return info == nil })

	logger.DebugKV(ctx, "Update check finished", "items", len(items), "updates", len(updates))

	return updates, nil
}

// checkItem returns nil when the offline copy of item is up to date.
func (s *ServiceImpl) checkItem(ctx context.Context, item *catalog.Item) (*UpdateInfo, error) {
	entry, err := s.repo.GetEntry(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	info := &UpdateInfo{
		ItemID:           item.ID,
		Title:            item.DisplayName(),
		AvailableVersion: item.Version,
	}

	if entry == nil {
		info.Reason = ReasonNotDownloaded

		return info, nil
	}

	info.InstalledVersion = entry.SourceVersion

	if item.Version != "" && item.Version != entry.SourceVersion {
		info.Reason = ReasonVersionChanged

		return info, nil
	}

	for _, asset := range itemAssets(item) {
		if _, ok := entry.FilePaths[string(asset.kind)]; !ok {
			info.Files = append(info.Files, string(asset.kind))
		}
	}

	if len(info.Files) > 0 {
		info.Reason = ReasonAssetsChanged

		return info, nil
	}

	var missing, changed []string

	for _, kind := range slices.Sorted(maps.Keys(entry.FilePaths)) {
		path := entry.FilePaths[kind]

		exists, err := s.repo.Exists(path)
		if err != nil {
			return nil, err
		}

		if !exists {
			missing = append(missing, kind)

			continue
		}

		expectedSize := entry.Sizes[kind]
		if expectedSize <= 0 {
			continue
		}

		size, err := s.repo.FileSize(path)
		if err != nil {
			return nil, err
		}

		if size != expectedSize {
			changed = append(changed, kind)
		}
	}

	switch {
	case len(missing) > 0:
		info.Reason = ReasonFilesMissing
		info.Files = missing
	case len(changed) > 0:
		info.Reason = ReasonFilesChanged
		info.Files = changed
	default:
		return nil, nil //nolint:nilnil // Up-to-date items have nothing to report.
	}

	return info, nil
}

// DeleteItem cancels active jobs of the item, removes its library entry (and files, if asked)
// and forgets its history. Jobs of the item that exist at this point stop describing it.
func (s *ServiceImpl) DeleteItem(ctx context.Context, itemID string, deleteFiles bool) error {
	if strings.TrimSpace(itemID) == "" {
		return ErrEmptyItemID
	}

	cancelled, err := s.CancelBulkDownloads(ctx, []string{itemID})
	if err != nil {
		return err
	}

	s.forgetJobs(itemID)

	// A finished job may still have its library entry queued.
	if err = s.effects.flush(ctx); err != nil {
		return err
	}

	if err = s.repo.DeleteEntry(ctx, itemID, library.DeleteOptions{DeleteFiles: deleteFiles}); err != nil {
		return err
	}

	if err = s.forgetHistory(ctx, itemID); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Item deleted", "item_id", itemID, "cancelled_jobs", cancelled, "files_deleted", deleteFiles)

	return nil
}

func (s *ServiceImpl) forgetJobs(itemID string) {
	snapshot := s.scheduler.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range snapshot.Jobs {
		if job.ItemID == itemID {
			s.forgotten[job.JobID] = struct{}{}
		}
	}
}
