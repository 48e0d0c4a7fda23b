// Package artifact persists generated documents (exported reports)
// outside the durable collections. A local file store is the default;
// an S3-compatible store is used when object storage is configured.
package artifact

import "context"

// Store writes and reads artifact blobs under slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}
