package iocache

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/metrics"
	"github.com/huangsam/placewise/schema"
)

const tmpPrefix = ".tmp-"

// FileCacheStore keeps one JSON envelope per (category, key) in a directory.
type FileCacheStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

var _ contract.CacheStore = &FileCacheStore{} // Compile-time check

// NewFileCacheStore creates the cache directory when missing.
func NewFileCacheStore(dir string) (*FileCacheStore, error) {
	if dir == "" {
		dir = contract.GetCacheDirPath()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %q: %w", dir, err)
	}
	return &FileCacheStore{dir: dir, now: time.Now}, nil
}

// SanitizeKey replaces path-unsafe characters with underscores.
func SanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '.', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}

// entryFileName names the file of an entry. Keys that sanitization changes
// get a hash suffix so that "E1 6AN" and "E1_6AN" stay distinct.
func entryFileName(category schema.CacheCategory, key string) string {
	name := SanitizeKey(key)
	if name != key {
		h := fnv.New32a()
		_, _ = h.Write([]byte(key))
		name = fmt.Sprintf("%s-%08x", name, h.Sum32())
	}
	return fmt.Sprintf("%s_%s.json", category, name)
}

// ownsFile reports whether a file in the cache directory was written by the
// store: an entry of a known category or a leftover temp file.
func ownsFile(name string) bool {
	if strings.HasPrefix(name, tmpPrefix) {
		return true
	}
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	for category := range schema.CacheTTL {
		if strings.HasPrefix(name, string(category)+"_") {
			return true
		}
	}
	return false
}

func (s *FileCacheStore) path(category schema.CacheCategory, key string) string {
	return filepath.Join(s.dir, entryFileName(category, key))
}

// Read returns a fresh payload. Missing, stale and corrupt files are misses.
func (s *FileCacheStore) Read(_ context.Context, category schema.CacheCategory, key string, maxAge time.Duration) ([]byte, bool) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path(category, key))
	s.mu.Unlock()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Warn().Err(err).Str("category", string(category)).Str("key", key).Msg("cache read failed")
			recordCache(opRead, category, metrics.OutcomeError)
			return nil, false
		}
		recordCache(opRead, category, metrics.OutcomeMiss)
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

// Write replaces the entry file. The envelope goes to a temp file first and
// is renamed into place so readers never see a partial write.
func (s *FileCacheStore) Write(_ context.Context, category schema.CacheCategory, key string, payload []byte) error {
	data, err := json.Marshal(newEnvelope(category, key, payload, s.now()))
	if err != nil {
		recordCache(opWrite, category, metrics.OutcomeError)
		return fmt.Errorf("failed to encode cache entry %s/%s: %w", category, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(category, key)
	tmp, err := os.CreateTemp(s.dir, tmpPrefix+"*")
	if err != nil {
		recordCache(opWrite, category, metrics.OutcomeError)
		return fmt.Errorf("failed to write cache entry %s/%s: %w", category, key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		recordCache(opWrite, category, metrics.OutcomeError)
		return fmt.Errorf("failed to write cache entry %s/%s: %w", category, key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		recordCache(opWrite, category, metrics.OutcomeError)
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		recordCache(opWrite, category, metrics.OutcomeError)
		return fmt.Errorf("failed to write cache entry %s/%s: %w", category, key, err)
	}
	recordCache(opWrite, category, metrics.OutcomeOK)
	return nil
}

// Invalidate removes the entry file.
func (s *FileCacheStore) Invalidate(_ context.Context, category schema.CacheCategory, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(category, key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		recordCache(opInvalidate, category, metrics.OutcomeNotFound)
		return false, nil
	case err != nil:
		recordCache(opInvalidate, category, metrics.OutcomeError)
		return false, fmt.Errorf("failed to invalidate cache entry %s/%s: %w", category, key, err)
	}
	recordCache(opInvalidate, category, metrics.OutcomeOK)
	return true, nil
}

// walk visits every entry file with its decoded envelope. Corrupt files are
// passed with a nil envelope. Files the store does not own are skipped.
func (s *FileCacheStore) walk(visit func(path string, info fs.FileInfo, e *envelope) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, tmpPrefix) || !ownsFile(name) {
			continue
		}
		path := filepath.Join(s.dir, name)
		info, err := entry.Info()
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e envelope
		if err := json.Unmarshal(data, &e); err != nil || e.CreatedAt.IsZero() {
			if err := visit(path, info, nil); err != nil {
				return err
			}
			continue
		}
		if err := visit(path, info, &e); err != nil {
			return err
		}
	}
	return nil
}

// Sweep deletes entries strictly older than maxAge. Corrupt files are judged
// by their modification time.
func (s *FileCacheStore) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	err := s.walk(func(path string, info fs.FileInfo, e *envelope) error {
		created := info.ModTime()
		if e != nil {
			created = e.CreatedAt
		}
		if !created.Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to sweep cache directory %q: %w", s.dir, err)
	}
	metrics.CacheSweptEntries.Add(float64(removed))
	return removed, nil
}

// Stats scans the cache directory.
func (s *FileCacheStore) Stats(_ context.Context) (schema.CacheStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := newStatus(schema.FileBackend, s.dir)
	err := s.walk(func(_ string, info fs.FileInfo, e *envelope) error {
		status.StorageBytes += info.Size()
		if e == nil {
			return nil
		}
		addToStatus(&status, e.Category, int64(len(e.payload())), e.CreatedAt)
		return nil
	})
	if err != nil {
		return status, fmt.Errorf("failed to scan cache directory %q: %w", s.dir, err)
	}
	return status, nil
}

// Clear removes the entry and temp files of the store, then the directory
// itself when nothing else is left in it.
func (s *FileCacheStore) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory %q: %w", s.dir, err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !ownsFile(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to clear cache directory %q: %w", s.dir, err)
		}
		removed++
	}
	// Fails harmlessly when foreign files remain
	_ = os.Remove(s.dir)
	return removed, nil
}

// Close is a no-op for the file backend.
func (s *FileCacheStore) Close() error {
	return nil
}
