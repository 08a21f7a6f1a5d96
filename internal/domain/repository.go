package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque bytes; callers own the encoding.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogSource provides read access to the product and brand datasets
type CatalogSource interface {
	// Load reads both datasets. Missing or unreadable data yields ErrCatalogUnavailable.
	Load(ctx context.Context) (*Catalog, error)
	// Version returns a cheap fingerprint that changes whenever the datasets change.
	Version(ctx context.Context) (string, error)
}

// Embedder maps texts into a shared fixed-dimension vector space
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
