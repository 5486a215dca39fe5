package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Static error definitions for better error handling.
var (
	// ErrEmptyItemID indicates a manifest item without an ID.
	ErrEmptyItemID = errors.New("manifest item has no ID")
	// ErrDuplicateItemID indicates that two manifest items share an ID.
	ErrDuplicateItemID = errors.New("duplicate manifest item ID")
	// ErrInvalidVariant indicates a variant with an empty or repeated ID.
	ErrInvalidVariant = errors.New("invalid item variant")
	// ErrItemNotFound indicates that a requested ID is not in the manifest.
	ErrItemNotFound = errors.New("item not found in manifest")
)

// Asset is one remote file of an item.
// SizeBytes and SHA256 are optional and, when set, are checked after the download.
type Asset struct {
	URL       string `yaml:"url" json:"url"`
	SizeBytes int64  `yaml:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	SHA256    string `yaml:"sha256,omitempty" json:"sha256,omitempty"`
}

// IsEmpty reports whether the asset has no URL.
func (a Asset) IsEmpty() bool {
	return strings.TrimSpace(a.URL) == ""
}

// Variant is an alternate audio rendition of an item.
type Variant struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	Asset `yaml:",inline"`
}

// Item is a catalog entry, usually a song.
type Item struct {
	ID       string    `yaml:"id" json:"id"`
	Title    string    `yaml:"title" json:"title"`
	Artist   string    `yaml:"artist,omitempty" json:"artist,omitempty"`
	Version  string    `yaml:"version,omitempty" json:"version,omitempty"`
	AudioA   Asset     `yaml:"audio_a,omitempty" json:"audio_a"`
	AudioB   Asset     `yaml:"audio_b,omitempty" json:"audio_b"`
	Lyrics   Asset     `yaml:"lyrics,omitempty" json:"lyrics"`
	Score    Asset     `yaml:"score,omitempty" json:"score"`
	Variants []Variant `yaml:"variants,omitempty" json:"variants,omitempty"`
}

// DisplayName returns "Artist - Title", or whatever part of it is known.
func (i *Item) DisplayName() string {
	switch {
	case i.Artist != "" && i.Title != "":
		return i.Artist + " - " + i.Title
	case i.Title != "":
		return i.Title
	default:
		return i.ID
	}
}

// Manifest is the full catalog.
type Manifest struct {
	Version string  `yaml:"version,omitempty" json:"version,omitempty"`
	Items   []*Item `yaml:"items" json:"items"`
}

// Validate rejects empty and duplicate item IDs and broken variants.
func (m *Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m.Items))

	for idx, item := range m.Items {
		if item == nil || strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("%w: item #%d", ErrEmptyItemID, idx+1)
		}

		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("%w: '%s'", ErrDuplicateItemID, item.ID)
		}

		seen[item.ID] = struct{}{}

		variants := make(map[string]struct{}, len(item.Variants))
		for _, variant := range item.Variants {
			if strings.TrimSpace(variant.ID) == "" {
				return fmt.Errorf("%w: item '%s' has a variant without ID", ErrInvalidVariant, item.ID)
			}

			if _, ok := variants[variant.ID]; ok {
				return fmt.Errorf("%w: item '%s' repeats variant '%s'", ErrInvalidVariant, item.ID, variant.ID)
			}

			variants[variant.ID] = struct{}{}
		}
	}

	return nil
}

// Item returns the item with the given ID.
func (m *Manifest) Item(id string) (*Item, bool) {
	for _, item := range m.Items {
		if item.ID == id {
			return item, true
		}
	}

	return nil, false
}

// Find resolves IDs into items, keeping the order of ids.
// All unknown IDs are reported in one ErrItemNotFound error.
func (m *Manifest) Find(ids []string) ([]*Item, error) {
	index := make(map[string]*Item, len(m.Items))
	for _, item := range m.Items {
		index[item.ID] = item
	}

	var (
		result  = make([]*Item, 0, len(ids))
		missing []string
	)

	for _, id := range ids {
		item, ok := index[id]
		if !ok {
			missing = append(missing, id)

			continue
		}

		result = append(result, item)
	}

	if len(missing) > 0 {
		return result, fmt.Errorf("%w: %s", ErrItemNotFound, strings.Join(missing, ", "))
	}

	return result, nil
}
