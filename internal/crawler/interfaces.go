package crawler

import (
	"context"
	"io"
)

// Fetcher performs a single HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// Limiter spaces outbound requests.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// BlobStore writes artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// PageStore is the local page mirror keyed by URL path.
type PageStore interface {
	BlobStore
	Exists(key string) (bool, error)
	Path(key string) (string, error)
}
