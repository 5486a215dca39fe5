package download

import (
	"github.com/oshokin/songbook-offline/internal/catalog"
	"github.com/oshokin/songbook-offline/internal/scheduler"
)

// itemAsset is a declared asset together with the file kind it is stored as.
type itemAsset struct {
	kind scheduler.FileKind
	catalog.Asset
}

// itemAssets lists the item's assets in download order, skipping those without a URL.
func itemAssets(item *catalog.Item) []itemAsset {
	candidates := make([]itemAsset, 0, 4+len(item.Variants))
	candidates = append(candidates,
		itemAsset{kind: scheduler.KindPrimaryA, Asset: item.AudioA},
		itemAsset{kind: scheduler.KindPrimaryB, Asset: item.AudioB},
		itemAsset{kind: scheduler.KindText, Asset: item.Lyrics},
		itemAsset{kind: scheduler.KindDocument, Asset: item.Score},
	)

	for _, variant := range item.Variants {
		candidates = append(candidates, itemAsset{kind: scheduler.VariantKind(variant.ID), Asset: variant.Asset})
	}

	assets := candidates[:0]

	for _, candidate := range candidates {
		if candidate.IsEmpty() {
			continue
		}

		assets = append(assets, candidate)
	}

	return assets
}
