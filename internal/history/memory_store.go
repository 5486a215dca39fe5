package history

import (
	"context"
	"sync"
)

// MemoryStore keeps the blob in memory.
type MemoryStore struct {
	mu   *sync.Mutex
	blob *Blob
}

// NewMemoryStore creates a MemoryStore seeded with a copy of blob, which may be nil.
func NewMemoryStore(blob *Blob) *MemoryStore {
	return &MemoryStore{
		mu:   &sync.Mutex{},
		blob: blob.Clone(),
	}
}

// Get returns a copy of the stored blob.
func (s *MemoryStore) Get(ctx context.Context) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.blob.Clone(), nil
}

// Set stores a copy of blob.
func (s *MemoryStore) Set(ctx context.Context, blob *Blob) error {
	if blob == nil {
		return ErrNilBlob
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blob = blob.Clone()

	return nil
}
