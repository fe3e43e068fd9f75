package tracker

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves the source page body as text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// BlobStore writes an artifact and returns a URI for it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Object is one artifact in a batch write.
type Object struct {
	Path        string
	ContentType string
	Data        []byte
}

// BatchBlobStore is implemented by stores that can publish several objects
// so that none replaces its predecessor unless all of them were written.
type BatchBlobStore interface {
	BlobStore
	PutObjects(ctx context.Context, objects []Object) ([]string, error)
}

// Hasher computes content digests for written artifacts.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
