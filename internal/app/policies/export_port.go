package policies

import "context"

// ObjectStore receives generated documents and returns a URL they can be fetched from.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}
