package iocache

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/metrics"
	"github.com/huangsam/placewise/schema"
)

// Cache operation names used as metric labels.
const (
	opRead       = "read"
	opWrite      = "write"
	opInvalidate = "invalidate"
	opSweep      = "sweep"
)

// readTTL returns the freshness window for a read. A positive maxAge
// overrides the category default.
func readTTL(category schema.CacheCategory, maxAge time.Duration) time.Duration {
	if maxAge > 0 {
		return maxAge
	}
	return schema.TTLFor(category)
}

// isFresh reports whether an entry written at createdAt is still usable at now.
func isFresh(createdAt, now time.Time, ttl time.Duration) bool {
	if ttl == schema.NeverExpires {
		return true
	}
	return now.Sub(createdAt) <= ttl
}

// envelope is the on-disk record of the file and badger backends. Payloads
// are kept byte for byte: UTF-8 text as a JSON string, anything else base64.
type envelope struct {
	CreatedAt  time.Time            `json:"created_at"`
	Category   schema.CacheCategory `json:"category"`
	Key        string               `json:"key"`
	Payload    *string              `json:"payload,omitempty"`
	PayloadB64 []byte               `json:"payload_b64,omitempty"`
}

func newEnvelope(category schema.CacheCategory, key string, payload []byte, now time.Time) envelope {
	e := envelope{CreatedAt: now.UTC(), Category: category, Key: key}
	if utf8.Valid(payload) {
		text := string(payload)
		e.Payload = &text
	} else {
		e.PayloadB64 = payload
	}
	return e
}

func (e envelope) payload() []byte {
	if e.Payload != nil {
		return []byte(*e.Payload)
	}
	if e.PayloadB64 == nil {
		return []byte{}
	}
	return e.PayloadB64
}

// decodeEnvelope parses an envelope and checks that it belongs to (category, key).
func decodeEnvelope(data []byte, category schema.CacheCategory, key string) (envelope, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("%w: %v", contract.ErrCacheCorruption, err)
	}
	if e.CreatedAt.IsZero() {
		return e, fmt.Errorf("%w: missing created_at", contract.ErrCacheCorruption)
	}
	if e.Category != category || e.Key != key {
		return e, fmt.Errorf("%w: entry belongs to %s/%s", contract.ErrCacheCorruption, e.Category, e.Key)
	}
	return e, nil
}

func recordCache(op string, category schema.CacheCategory, outcome string) {
	metrics.RecordCache(op, string(category), outcome)
}

// newStatus returns an empty status for a backend.
func newStatus(backend schema.DatabaseBackend, location string) schema.CacheStatus {
	return schema.CacheStatus{
		Backend:    string(backend),
		Location:   location,
		Connected:  true,
		ByCategory: make(map[schema.CacheCategory]schema.CategoryStatus),
	}
}

// addToStatus folds one entry into a status.
func addToStatus(status *schema.CacheStatus, category schema.CacheCategory, size int64, createdAt time.Time) {
	cs := status.ByCategory[category]
	cs.Entries++
	cs.SizeBytes += size
	status.ByCategory[category] = cs
	status.TotalEntries++
	status.TotalSizeBytes += size
	if status.LastEntryTime.IsZero() || createdAt.After(status.LastEntryTime) {
		status.LastEntryTime = createdAt
	}
	if status.OldestEntryTime.IsZero() || createdAt.Before(status.OldestEntryTime) {
		status.OldestEntryTime = createdAt
	}
}
