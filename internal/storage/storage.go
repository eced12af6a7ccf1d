// Package storage defines the object store contract the archive pipeline
// writes through. The s3 subpackage carries the MinIO-backed
// implementation; tests substitute in-memory fakes.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound reports a key with no object behind it. Get returns
// it so callers can branch without knowing the backend.
var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

type PutOptions struct {
	ContentType string
}

// ObjectStore abstracts the archive bucket. The exporter only ever writes;
// Get and Delete complete the contract so operators can verify and clean
// up snapshots through the same seam. Delete of a missing object succeeds.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
