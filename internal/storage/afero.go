package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nfrund/parley/internal/domain"
	"github.com/spf13/afero"
)

// AferoStore keeps uploads on an afero filesystem rooted at a directory.
// Objects are served back through MediaHandler under publicURL.
type AferoStore struct {
	fs        afero.Fs
	publicURL string
}

var _ domain.ObjectStore = (*AferoStore)(nil)

// NewAferoStore creates a store on fs. publicURL is the URL prefix the media
// handler is mounted at.
func NewAferoStore(fs afero.Fs, publicURL string) *AferoStore {
	return &AferoStore{fs: fs, publicURL: strings.TrimRight(publicURL, "/")}
}

// NewLocalStore creates a store on the OS filesystem under dir.
func NewLocalStore(dir, publicURL string) (*AferoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return NewAferoStore(afero.NewBasePathFs(afero.NewOsFs(), dir), publicURL), nil
}

// Put writes r to key, creating parent directories.
func (s *AferoStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		return err
	}
	f, err := s.fs.Create(key)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = s.fs.Remove(key)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing object is not an error.
func (s *AferoStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Open returns a reader for key.
func (s *AferoStore) Open(ctx context.Context, key string) (afero.File, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return s.fs.OpenFile(key, os.O_RDONLY, 0)
}

// URL returns the public URL for key.
func (s *AferoStore) URL(key string) string {
	return s.publicURL + "/" + key
}

// checkKey rejects keys that could escape the storage root.
func checkKey(key string) error {
	if err := (domain.Media{FileID: key}).Validate(); err != nil || key == "" {
		return fmt.Errorf("%w: unsafe storage key %q", domain.ErrInvalidInput, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: unsafe storage key %q", domain.ErrInvalidInput, key)
	}
	return nil
}
