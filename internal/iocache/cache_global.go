package iocache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// NewCacheStore opens the cache backend. connStr is the database or redis
// connection; dir is the directory of the file and badger backends.
func NewCacheStore(backend schema.DatabaseBackend, connStr, dir string) (contract.CacheStore, error) {
	switch backend {
	case schema.FileBackend, "":
		return NewFileCacheStore(dir)
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
		return NewSQLCacheStore(backend, connStr)
	case schema.RedisBackend:
		return NewRedisCacheStore(connStr)
	case schema.BadgerBackend:
		return NewBadgerCacheStore(dir)
	case schema.NoneBackend:
		return NoneCacheStore{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s. Must be file, sqlite, mysql, postgresql, redis, badger, or none", backend)
	}
}

// InitStores initializes the global manager with the cache and history stores.
// An empty historyBackend disables run history.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr, cacheDir string, historyBackend schema.DatabaseBackend, historyConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		cacheStore, err := NewCacheStore(cacheBackend, cacheConnStr, cacheDir)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize caching: %w", err)
			return
		}

		var historyStore contract.HistoryStore
		if historyBackend != "" {
			historyStore, err = NewHistoryStore(historyBackend, historyConnStr)
			if err != nil {
				_ = cacheStore.Close()
				initErr = fmt.Errorf("failed to initialize history store: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.cache = cacheStore
		Manager.history = historyStore
	})

	return initErr
}

// CloseCaching should be called on application shutdown.
func CloseCaching() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.cache != nil {
			_ = Manager.cache.Close()
		}
		if Manager.history != nil {
			_ = Manager.history.Close()
		}
	})
}

// ClearCache removes every cache entry of the backend.
// For file, it deletes the entry files and leaves foreign files alone.
// For badger, it drops the cache keys.
// For SQLite, it deletes the database file.
// For MySQL/PostgreSQL, it drops the cache table.
// For redis, it deletes every placewise key.
func ClearCache(backend schema.DatabaseBackend, connStr, dir string) error {
	switch backend {
	case schema.FileBackend, "":
		if dir == "" {
			dir = contract.GetCacheDirPath()
		}
		store := &FileCacheStore{dir: dir, now: time.Now}
		_, err := store.Clear()
		return err

	case schema.BadgerBackend:
		if dir == "" {
			dir = contract.GetBadgerDirPath()
		}
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		store, err := NewBadgerCacheStore(dir)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return store.Clear()

	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = contract.GetCacheDBFilePath()
		}
		return removePath(connStr)

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTable(backend, connStr, CacheTableName)

	case schema.RedisBackend:
		store, err := NewRedisCacheStore(connStr)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		_, err = store.Clear(context.Background())
		return err

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}

// ClearHistory drops the run history of the backend.
// For SQLite, it deletes the database file.
// For MySQL/PostgreSQL, it drops the history tables.
func ClearHistory(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = contract.GetHistoryDBFilePath()
		}
		return removePath(connStr)

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		for _, table := range []string{recommendationsTable, runsTable, "schema_migrations"} {
			if err := clearSQLTable(backend, connStr, table); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend, "":
		return nil

	default:
		return fmt.Errorf("unsupported history backend for clearing: %s", backend)
	}
}

// removePath removes a file or directory; a missing path is not an error.
func removePath(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
