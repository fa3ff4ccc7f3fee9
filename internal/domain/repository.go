package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching raw payloads
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogSource fetches the raw delimited-text catalog feed
type CatalogSource interface {
	FetchCatalog(ctx context.Context) (string, error)
}

// CatalogProvider hands out the session catalog, loading it on first demand
type CatalogProvider interface {
	Get(ctx context.Context) (*Catalog, error)
}

// ImageProber checks whether an image URL can be loaded
type ImageProber interface {
	Probe(ctx context.Context, url string) error
}
