package download

import "errors"

// Static error definitions for better error handling.
var (
	// ErrNilItem indicates that a nil catalog item was passed.
	ErrNilItem = errors.New("catalog item is nil")
	// ErrEmptyItemID indicates a catalog item without an ID.
	ErrEmptyItemID = errors.New("catalog item has no ID")
	// ErrNoAssets indicates a catalog item without a single downloadable asset.
	ErrNoAssets = errors.New("catalog item has no assets to download")
)

// InterruptedDownloadMessage is reported for downloads that were still running when the process exited.
const InterruptedDownloadMessage = "Download was interrupted before it finished. Retry to download it again."
