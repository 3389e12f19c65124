package upstream

import (
	"context"
	"errors"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/schema"
)

// CachedFetcher reads through the cache store before calling the wrapped
// fetcher. Only payloads that decode for their category are written back.
type CachedFetcher struct {
	inner contract.Fetcher
	cache contract.CacheStore
}

var _ contract.Fetcher = &CachedFetcher{} // Compile-time check

// NewCachedFetcher wraps a fetcher with the cache store. A nil store disables caching.
func NewCachedFetcher(inner contract.Fetcher, cache contract.CacheStore) contract.Fetcher {
	if cache == nil {
		return inner
	}
	return &CachedFetcher{inner: inner, cache: cache}
}

// Category implements contract.Fetcher.
func (c *CachedFetcher) Category() schema.CacheCategory {
	return c.inner.Category()
}

// Fetch implements contract.Fetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, areaCode string) ([]byte, error) {
	category := c.inner.Category()
	if payload, ok := c.cache.Read(ctx, category, areaCode, 0); ok {
		if err := Validate(category, payload); err == nil {
			return payload, nil
		}
		logging.Warn().Str("category", string(category)).Str("area", areaCode).Msg("dropping undecodable cache entry")
		if _, err := c.cache.Invalidate(ctx, category, areaCode); err != nil {
			logging.Warn().Err(err).Str("category", string(category)).Str("area", areaCode).Msg("cache invalidate failed")
		}
	}

	payload, err := c.inner.Fetch(ctx, areaCode)
	if err != nil {
		return nil, err
	}
	if err := Validate(category, payload); err != nil {
		return nil, err
	}
	if err := c.cache.Write(ctx, category, areaCode, payload); err != nil {
		// The payload is still good for this run
		logging.Warn().Err(err).Str("category", string(category)).Str("area", areaCode).Msg("cache write failed")
	}
	return payload, nil
}

// IsUnknown reports whether a fetch error should leave the category unknown
// rather than abort the ranking.
func IsUnknown(err error) bool {
	return errors.Is(err, contract.ErrNotFound) || errors.Is(err, contract.ErrTransient)
}
