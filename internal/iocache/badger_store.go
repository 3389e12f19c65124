package iocache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/metrics"
	"github.com/huangsam/placewise/schema"
)

var badgerPrefix = []byte("cache/")

// BadgerCacheStore keeps envelopes in an embedded badger database under
// cache/<category>/<key>.
type BadgerCacheStore struct {
	db  *badger.DB
	dir string
	now func() time.Time
}

var _ contract.CacheStore = &BadgerCacheStore{} // Compile-time check

// NewBadgerCacheStore opens a badger database in dir. An empty dir uses the
// default location; ":memory:" keeps everything in memory.
func NewBadgerCacheStore(dir string) (*BadgerCacheStore, error) {
	if dir == "" {
		dir = contract.GetBadgerDirPath()
	}
	var opts badger.Options
	if dir == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache at %q: %w", dir, err)
	}
	return &BadgerCacheStore{db: db, dir: dir, now: time.Now}, nil
}

func badgerKey(category schema.CacheCategory, key string) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", badgerPrefix, category, key))
}

// Read returns a fresh payload. Missing, stale and corrupt entries are misses.
func (s *BadgerCacheStore) Read(_ context.Context, category schema.CacheCategory, key string, maxAge time.Duration) ([]byte, bool) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(category, key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		recordCache(opRead, category, metrics.OutcomeMiss)
		return nil, false
	case err != nil:
		logging.Warn().Err(err).Str("category", string(category)).Str("key", key).Msg("cache read failed")
		recordCache(opRead, category, metrics.OutcomeError)
		return nil, false
	}

	e, err := decodeEnvelope(data, category, key)
	if err != nil {
		logging.Warn().Err(err).Str("category", string(category)).Str("key", key).Msg("ignoring corrupt cache entry")
		recordCache(opRead, category, metrics.OutcomeCorrupt)
		return nil, false
	}
	if !isFresh(e.CreatedAt, s.now(), readTTL(category, maxAge)) {
		recordCache(opRead, category, metrics.OutcomeStale)
		return nil, false
	}
	recordCache(opRead, category, metrics.OutcomeHit)
	return e.payload(), true
}

// Write replaces the entry.
func (s *BadgerCacheStore) Write(_ context.Context, category schema.CacheCategory, key string, payload []byte) error {
	data, err := json.Marshal(newEnvelope(category, key, payload, s.now()))
	if err != nil {
		recordCache(opWrite, category, metrics.OutcomeError)
		return fmt.Errorf("failed to encode cache entry %s/%s: %w", category, key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(badgerKey(category, key), data))
	})
	if err != nil {
		recordCache(opWrite, category, metrics.OutcomeError)
		return fmt.Errorf("failed to write cache entry %s/%s: %w", category, key, err)
	}
	recordCache(opWrite, category, metrics.OutcomeOK)
	return nil
}

// Invalidate deletes the entry.
func (s *BadgerCacheStore) Invalidate(_ context.Context, category schema.CacheCategory, key string) (bool, error) {
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		k := badgerKey(category, key)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return txn.Delete(k)
	})
	if err != nil {
		recordCache(opInvalidate, category, metrics.OutcomeError)
		return false, fmt.Errorf("failed to invalidate cache entry %s/%s: %w", category, key, err)
	}
	if !found {
		recordCache(opInvalidate, category, metrics.OutcomeNotFound)
		return false, nil
	}
	recordCache(opInvalidate, category, metrics.OutcomeOK)
	return true, nil
}

// each iterates over every entry. Corrupt values are passed with a nil envelope.
func (s *BadgerCacheStore) each(txn *badger.Txn, visit func(key []byte, size int, e *envelope) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(badgerPrefix); it.ValidForPrefix(badgerPrefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var e envelope
		if err := json.Unmarshal(value, &e); err != nil || e.CreatedAt.IsZero() {
			if err := visit(key, len(value), nil); err != nil {
				return err
			}
			continue
		}
		if err := visit(key, len(value), &e); err != nil {
			return err
		}
	}
	return nil
}

// Sweep deletes entries strictly older than maxAge along with corrupt values.
func (s *BadgerCacheStore) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	var expired [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		return s.each(txn, func(key []byte, _ int, e *envelope) error {
			if e == nil || e.CreatedAt.Before(cutoff) {
				expired = append(expired, key)
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep badger cache: %w", err)
	}

	// Delete in batches to stay under the transaction size limit
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range expired {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("failed to sweep badger cache: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("failed to sweep badger cache: %w", err)
	}
	metrics.CacheSweptEntries.Add(float64(len(expired)))
	return len(expired), nil
}

// Stats iterates over every entry.
func (s *BadgerCacheStore) Stats(_ context.Context) (schema.CacheStatus, error) {
	status := newStatus(schema.BadgerBackend, s.dir)
	err := s.db.View(func(txn *badger.Txn) error {
		return s.each(txn, func(key []byte, _ int, e *envelope) error {
			if e == nil {
				return nil
			}
			addToStatus(&status, e.Category, int64(len(e.payload())), e.CreatedAt)
			return nil
		})
	})
	if err != nil {
		return status, fmt.Errorf("failed to scan badger cache: %w", err)
	}
	lsm, vlog := s.db.Size()
	status.StorageBytes = lsm + vlog
	return status, nil
}

// Clear drops every cache entry.
func (s *BadgerCacheStore) Clear() error {
	return s.db.DropPrefix(bytes.Clone(badgerPrefix))
}

// Close closes the badger database.
func (s *BadgerCacheStore) Close() error {
	return s.db.Close()
}
