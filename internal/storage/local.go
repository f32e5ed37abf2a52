package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps card images on the local filesystem, mirroring the
// upload directory the reference server served statically.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir returns the root upload directory, used to mount the static
// /uploads file server.
func (l *LocalStorage) Dir() string {
	return l.dir
}

func (l *LocalStorage) Init(ctx context.Context) error {
	return os.MkdirAll(l.dir, 0o755)
}

func (l *LocalStorage) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func (l *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (l *LocalStorage) Remove(ctx context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (l *LocalStorage) path(key string) (string, error) {
	// Keys are server-generated, but refuse anything that could escape
	// the upload directory.
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", errors.New("invalid storage key")
	}
	return filepath.Join(l.dir, key), nil
}
