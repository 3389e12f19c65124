package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/metrics"
	"github.com/huangsam/placewise/schema"
)

// CacheTableName is the table used by the SQL cache backends.
const CacheTableName = "placewise_cache"

// SQLCacheStore keeps cache entries in one table keyed by (category, cache_key).
type SQLCacheStore struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
	now       func() time.Time
}

var _ contract.CacheStore = &SQLCacheStore{} // Compile-time check

// NewSQLCacheStore opens a SQL backend and creates the cache table when missing.
func NewSQLCacheStore(backend schema.DatabaseBackend, connStr string) (*SQLCacheStore, error) {
	return newSQLCacheStore(CacheTableName, backend, connStr)
}

func newSQLCacheStore(tableName string, backend schema.DatabaseBackend, connStr string) (*SQLCacheStore, error) {
	// Validate table name to prevent SQL injection
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	db, err := openSQL(backend, connStr, contract.GetCacheDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(getCreateCacheTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return &SQLCacheStore{
		db:        db,
		tableName: tableName,
		backend:   backend,
		connStr:   connStr,
		now:       time.Now,
	}, nil
}

// getCreateCacheTableQuery returns the CREATE TABLE query for the given backend.
func getCreateCacheTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quoted := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				category VARCHAR(64) NOT NULL,
				cache_key VARCHAR(191) NOT NULL,
				payload LONGBLOB NOT NULL,
				created_at BIGINT NOT NULL,
				PRIMARY KEY (category, cache_key)
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				category TEXT NOT NULL,
				cache_key TEXT NOT NULL,
				payload BYTEA NOT NULL,
				created_at BIGINT NOT NULL,
				PRIMARY KEY (category, cache_key)
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				category TEXT NOT NULL,
				cache_key TEXT NOT NULL,
				payload BLOB NOT NULL,
				created_at INTEGER NOT NULL,
				PRIMARY KEY (category, cache_key)
			);
		`, quoted)
	}
}

// getUpsertQuery returns the UPSERT query for the backend.
func (s *SQLCacheStore) getUpsertQuery() string {
	quoted := quoteTableName(s.tableName, s.backend)
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (category, cache_key, payload, created_at) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE payload = new.payload, created_at = new.created_at`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (category, cache_key, payload, created_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (category, cache_key) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`, quoted)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (category, cache_key, payload, created_at) VALUES (?, ?, ?, ?)`, quoted)
	}
}

// Read returns a fresh payload. Missing, stale and unreadable rows are misses.
func (s *SQLCacheStore) Read(ctx context.Context, category schema.CacheCategory, key string, maxAge time.Duration) ([]byte, bool) {
	query := fmt.Sprintf(`SELECT payload, created_at FROM %s WHERE category = %s AND cache_key = %s`,
		quoteTableName(s.tableName, s.backend), placeholder(s.backend, 1), placeholder(s.backend, 2))

	var payload []byte
	var createdMs int64
	err := s.db.QueryRowContext(ctx, query, string(category), key).Scan(&payload, &createdMs)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		recordCache(opRead, category, metrics.OutcomeMiss)
		return nil, false
	case err != nil:
		logging.Warn().Err(err).Str("category", string(category)).Str("key", key).Msg("cache read failed")
		recordCache(opRead, category, metrics.OutcomeError)
		return nil, false
	}

	if !isFresh(time.UnixMilli(createdMs), s.now(), readTTL(category, maxAge)) {
		recordCache(opRead, category, metrics.OutcomeStale)
		return nil, false
	}
	recordCache(opRead, category, metrics.OutcomeHit)
	if payload == nil {
		payload = []byte{}
	}
	return payload, true
}

// Write replaces the entry for (category, key).
func (s *SQLCacheStore) Write(ctx context.Context, category schema.CacheCategory, key string, payload []byte) error {
	if payload == nil {
		payload = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, s.getUpsertQuery(), string(category), key, payload, s.now().UnixMilli()); err != nil {
		recordCache(opWrite, category, metrics.OutcomeError)
		return fmt.Errorf("failed to write cache entry %s/%s: %w", category, key, err)
	}
	recordCache(opWrite, category, metrics.OutcomeOK)
	return nil
}

// Invalidate deletes the entry for (category, key).
func (s *SQLCacheStore) Invalidate(ctx context.Context, category schema.CacheCategory, key string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE category = %s AND cache_key = %s`,
		quoteTableName(s.tableName, s.backend), placeholder(s.backend, 1), placeholder(s.backend, 2))
	res, err := s.db.ExecContext(ctx, query, string(category), key)
	if err != nil {
		recordCache(opInvalidate, category, metrics.OutcomeError)
		return false, fmt.Errorf("failed to invalidate cache entry %s/%s: %w", category, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		recordCache(opInvalidate, category, metrics.OutcomeNotFound)
		return false, nil
	}
	recordCache(opInvalidate, category, metrics.OutcomeOK)
	return true, nil
}

// Sweep deletes entries strictly older than maxAge.
func (s *SQLCacheStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	query := fmt.Sprintf(`DELETE FROM %s WHERE created_at < %s`,
		quoteTableName(s.tableName, s.backend), placeholder(s.backend, 1))
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	metrics.CacheSweptEntries.Add(float64(n))
	return int(n), nil
}

// Stats summarizes the cache table per category.
func (s *SQLCacheStore) Stats(ctx context.Context) (schema.CacheStatus, error) {
	location := s.connStr
	if s.backend == schema.SQLiteBackend && location == "" {
		location = contract.GetCacheDBFilePath()
	}
	status := newStatus(s.backend, location)
	if s.backend != schema.SQLiteBackend {
		// Avoid leaking credentials from DSNs
		status.Location = ""
	}

	query := fmt.Sprintf(`SELECT category, COUNT(*), COALESCE(SUM(LENGTH(payload)), 0), MIN(created_at), MAX(created_at)
		FROM %s GROUP BY category`, quoteTableName(s.tableName, s.backend))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return status, fmt.Errorf("failed to query cache stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var category string
		var entries int
		var size, oldest, newest int64
		if err := rows.Scan(&category, &entries, &size, &oldest, &newest); err != nil {
			return status, fmt.Errorf("failed to scan cache stats: %w", err)
		}
		cat := schema.CacheCategory(category)
		status.ByCategory[cat] = schema.CategoryStatus{Entries: entries, SizeBytes: size}
		status.TotalEntries += entries
		status.TotalSizeBytes += size

		oldestTime, newestTime := time.UnixMilli(oldest), time.UnixMilli(newest)
		if status.OldestEntryTime.IsZero() || oldestTime.Before(status.OldestEntryTime) {
			status.OldestEntryTime = oldestTime
		}
		if newestTime.After(status.LastEntryTime) {
			status.LastEntryTime = newestTime
		}
	}
	if err := rows.Err(); err != nil {
		return status, err
	}

	if size, err := s.storageBytes(ctx); err == nil {
		status.StorageBytes = size
	}
	return status, nil
}

// storageBytes returns the on-disk size of the cache table.
func (s *SQLCacheStore) storageBytes(ctx context.Context) (int64, error) {
	var size int64
	var err error
	switch s.backend {
	case schema.SQLiteBackend:
		err = s.db.QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	case schema.MySQLBackend:
		var cfg *mysql.Config
		cfg, err = mysql.ParseDSN(s.connStr)
		if err != nil {
			return 0, err
		}
		err = s.db.QueryRowContext(ctx, "SELECT COALESCE(data_length + index_length, 0) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			cfg.DBName, s.tableName).Scan(&size)
	case schema.PostgreSQLBackend:
		err = s.db.QueryRowContext(ctx, "SELECT pg_total_relation_size($1)", s.tableName).Scan(&size)
	}
	return size, err
}

// Close closes the database connection.
func (s *SQLCacheStore) Close() error {
	return s.db.Close()
}
