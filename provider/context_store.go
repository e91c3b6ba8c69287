package provider

import (
	"context"
	"time"
)

// ContextStore provides typed key/value persistence. The key is an opaque
// string; the consumer decides the key schema. TTL of 0 means no expiration.
type ContextStore[C any] interface {
	// Load retrieves a value. Returns (nil, nil) if key doesn't exist.
	Load(ctx context.Context, key string) (*C, error)
	// Save persists a value with optional TTL. TTL of 0 means no expiration.
	Save(ctx context.Context, key string, val *C, ttl time.Duration) error
	// Delete removes a value.
	Delete(ctx context.Context, key string) error
}
