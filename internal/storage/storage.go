package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cybercards/apiserver/config"
)

// ObjectStorage stores uploaded card images under opaque keys.
type ObjectStorage interface {
	// Init prepares the backend (creates the bucket or directory).
	Init(ctx context.Context) error

	// Save stores an object. contentType is the sniffed MIME type.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns a reader for a stored object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Remove deletes a stored object.
	Remove(ctx context.Context, key string) error
}

// New selects a storage backend from config.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return NewLocalStorage(cfg.UploadDir)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	case "gcs":
		return NewGCSStorage(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
