// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/placewise/schema"
)

// CacheManager defines the interface for managing the cache and history stores.
// This allows the storage layer to be mocked for testing.
type CacheManager interface {
	GetCacheStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore is a TTL-aware key/value store for upstream payloads.
// Entries are addressed by (category, key) and overwritten whole on write.
type CacheStore interface {
	// Read returns the payload when an entry exists, decodes cleanly and is
	// fresh. A positive maxAge overrides the category TTL. Any other case
	// (absent, corrupt, stale, backend failure) is a miss.
	Read(ctx context.Context, category schema.CacheCategory, key string, maxAge time.Duration) ([]byte, bool)

	// Write stores the payload, replacing any previous entry.
	Write(ctx context.Context, category schema.CacheCategory, key string, payload []byte) error

	// Invalidate deletes one entry and reports whether it existed.
	Invalidate(ctx context.Context, category schema.CacheCategory, key string) (bool, error)

	// Sweep deletes entries strictly older than maxAge regardless of TTL.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)

	// Stats summarizes the store contents.
	Stats(ctx context.Context) (schema.CacheStatus, error)

	// Close releases the underlying connection.
	Close() error
}

// HistoryStore records ranking runs and the recommendations they produced.
type HistoryStore interface {
	// BeginRun creates a run row and returns its numeric ID.
	BeginRun(ctx context.Context, runUUID string, persona schema.Persona, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun stores completion data for a run.
	EndRun(ctx context.Context, runID int64, endTime time.Time, totalAreas, filteredOut int) error

	// RecordRecommendation stores one ranked candidate for a run.
	RecordRecommendation(ctx context.Context, runID int64, persona schema.Persona, candidate schema.ScoredCandidate) error

	// GetStatus returns status information about the history store.
	GetStatus(ctx context.Context) (schema.HistoryStatus, error)

	// GetAllRuns returns every run, oldest first.
	GetAllRuns(ctx context.Context) ([]schema.RunRecord, error)

	// GetAllRecommendations returns every recorded recommendation ordered by run and rank.
	GetAllRecommendations(ctx context.Context) ([]schema.RecommendationRecord, error)

	// Close closes the underlying connection.
	Close() error
}

// Fetcher retrieves the raw upstream payload of one category for an area.
// A missing area returns an error wrapping ErrNotFound; an upstream failure
// returns one wrapping ErrTransient.
type Fetcher interface {
	Category() schema.CacheCategory
	Fetch(ctx context.Context, areaCode string) ([]byte, error)
}

// Explainer produces a short natural-language summary for a recommendation.
type Explainer interface {
	// Format names the explanation style and is part of the cache key.
	Format() string
	Explain(ctx context.Context, candidate schema.ScoredCandidate, persona schema.Persona) (schema.Explanation, error)
}
