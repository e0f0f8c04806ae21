package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/spf13/afero"
)

// FSStore keeps uploads on a filesystem served under urlPrefix.
type FSStore struct {
	fs        afero.Fs
	urlPrefix string
	now       func() time.Time
}

// NewFSStore roots the store at dir on the host filesystem.
func NewFSStore(dir, urlPrefix string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir %s: %w", dir, err)
	}
	return NewFSStoreOn(afero.NewBasePathFs(afero.NewOsFs(), dir), urlPrefix), nil
}

// NewFSStoreOn uses an arbitrary afero filesystem, e.g. afero.NewMemMapFs() in tests.
func NewFSStoreOn(fs afero.Fs, urlPrefix string) *FSStore {
	return &FSStore{fs: fs, urlPrefix: urlPrefix, now: time.Now}
}

func (s *FSStore) Save(_ context.Context, r io.Reader) (string, error) {
	contentType, body, err := Sniff(r)
	if err != nil {
		return "", err
	}
	key := NewKey(s.now(), contentType)

	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	f, err := s.fs.Create(key)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(body, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if n > MaxImageSize {
		_ = s.fs.Remove(key)
		return "", fmt.Errorf("image larger than %d bytes", MaxImageSize)
	}
	return key, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *FSStore) URL(key string) string {
	return joinURL(s.urlPrefix, key)
}
