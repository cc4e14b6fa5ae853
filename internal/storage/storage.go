// Package storage persists submission images in object storage so the
// spreadsheet backend never has to hold megabyte base64 blobs. Two backends
// are supported: MinIO (self-hosted) and Google Cloud Storage.
package storage

import (
	"context"
	"io"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}
