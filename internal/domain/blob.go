package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	// PutMultipart uploads large payloads (archives) in parts.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	// Get returns the object body, or ErrNotFound. Caller closes the reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// BlobDeleter removes objects from object storage.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
	// DeletePrefix removes every object under the given prefix and returns
	// the number of objects deleted.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Archiver exports the auction's final results to object storage.
type Archiver interface {
	// ArchiveResults uploads the sold records and team standings as a
	// snapshot and returns the object path written.
	ArchiveResults(ctx context.Context) (string, error)
}
