package iocache

import (
	"context"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/metrics"
	"github.com/huangsam/placewise/schema"
)

// NoneCacheStore disables caching: every read misses and writes are dropped.
type NoneCacheStore struct{}

var _ contract.CacheStore = NoneCacheStore{} // Compile-time check

// Read always misses.
func (NoneCacheStore) Read(_ context.Context, category schema.CacheCategory, _ string, _ time.Duration) ([]byte, bool) {
	recordCache(opRead, category, metrics.OutcomeMiss)
	return nil, false
}

// Write discards the payload.
func (NoneCacheStore) Write(_ context.Context, category schema.CacheCategory, _ string, _ []byte) error {
	recordCache(opWrite, category, metrics.OutcomeOK)
	return nil
}

// Invalidate never finds anything.
func (NoneCacheStore) Invalidate(context.Context, schema.CacheCategory, string) (bool, error) {
	return false, nil
}

// Sweep never removes anything.
func (NoneCacheStore) Sweep(context.Context, time.Duration) (int, error) {
	return 0, nil
}

// Stats reports an empty, disconnected store.
func (NoneCacheStore) Stats(context.Context) (schema.CacheStatus, error) {
	status := newStatus(schema.NoneBackend, "")
	status.Connected = false
	return status, nil
}

// Close is a no-op.
func (NoneCacheStore) Close() error {
	return nil
}
