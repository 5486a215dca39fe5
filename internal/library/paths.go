package library

import (
	"path/filepath"

	"github.com/oshokin/songbook-offline/internal/constants"
	"github.com/oshokin/songbook-offline/internal/utils"
)

// ItemPaths is the folder allocated to an item.
type ItemPaths struct {
	ItemID string
	Dir    string
}

// For returns the destination of a file of the given kind.
// The extension is taken from the source URL path and falls back to ".bin".
func (p *ItemPaths) For(kind, sourceURL string) string {
	ext := utils.ExtensionFromURL(sourceURL)
	if ext == "" {
		ext = constants.ExtensionBin
	}

	return filepath.Join(p.Dir, utils.SetFileExtension(utils.SanitizeFilename(kind), ext, false))
}
