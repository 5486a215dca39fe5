package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/songbook-offline/internal/constants"
)

// FileStore keeps the blob in a JSON file that is replaced atomically on every write.
type FileStore struct {
	path string
	mu   *sync.Mutex
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		mu:   &sync.Mutex{},
	}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads the blob. A missing file yields nil without error.
func (s *FileStore) Get(ctx context.Context) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil //nolint:nilnil // Absence of history is not an error.
		}

		return nil, fmt.Errorf("read history %s: %w", s.path, err)
	}

	blob := NewBlob()
	if err = json.Unmarshal(data, blob); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptHistory, s.path, err)
	}

	if blob.Items == nil {
		blob.Items = make(map[string]Entry)
	}

	return blob, nil
}

// Set writes the blob.
func (s *FileStore) Set(ctx context.Context, blob *Blob) error {
	if blob == nil {
		return ErrNilBlob
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes data to a temp file in the target folder and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}

	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		cleanup()

		return fmt.Errorf("write temp file for %s: %w", path, err)
	}

	if err = tmp.Chmod(constants.DefaultFilePermissions); err != nil {
		_ = tmp.Close()

		cleanup()

		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}

	if err = tmp.Close(); err != nil {
		cleanup()

		return fmt.Errorf("close temp file for %s: %w", path, err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		cleanup()

		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}

	return nil
}
