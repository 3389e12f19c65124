package iocache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/metrics"
	"github.com/huangsam/placewise/schema"
	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes every cache hash in redis.
const RedisKeyPrefix = "placewise:cache:"

// Hash fields of a cache entry.
const (
	redisPayloadField = "payload"
	redisCreatedField = "created_at"
)

// RedisCacheStore keeps each entry in a hash under placewise:cache:<category>:<key>.
type RedisCacheStore struct {
	rdb  *redis.Client
	addr string
	now  func() time.Time
}

var _ contract.CacheStore = &RedisCacheStore{} // Compile-time check

// NewRedisCacheStore connects to redis. connStr is host:port or a redis:// URL.
func NewRedisCacheStore(connStr string) (*RedisCacheStore, error) {
	opts, err := redisOptions(connStr)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisCacheStore{rdb: rdb, addr: opts.Addr, now: time.Now}, nil
}

func redisOptions(connStr string) (*redis.Options, error) {
	connStr = strings.TrimSpace(connStr)
	if connStr == "" {
		connStr = contract.DefaultRedisAddr
	}
	if strings.HasPrefix(connStr, "redis://") || strings.HasPrefix(connStr, "rediss://") {
		opts, err := redis.ParseURL(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: connStr, DialTimeout: 5 * time.Second}, nil
}

func redisKey(category schema.CacheCategory, key string) string {
	return RedisKeyPrefix + string(category) + ":" + key
}

// redisCategory extracts the category from a full redis key.
func redisCategory(fullKey string) schema.CacheCategory {
	rest := strings.TrimPrefix(fullKey, RedisKeyPrefix)
	category, _, _ := strings.Cut(rest, ":")
	return schema.CacheCategory(category)
}

// Read returns a fresh payload. Missing, stale and malformed hashes are misses.
func (s *RedisCacheStore) Read(ctx context.Context, category schema.CacheCategory, key string, maxAge time.Duration) ([]byte, bool) {
	fields, err := s.rdb.HGetAll(ctx, redisKey(category, key)).Result()
	if err != nil {
		logging.Warn().Err(err).Str("category", string(category)).Str("key", key).Msg("cache read failed")
		recordCache(opRead, category, metrics.OutcomeError)
		return nil, false
	}
	if len(fields) == 0 {
		recordCache(opRead, category, metrics.OutcomeMiss)
		return nil, false
	}

	payload, hasPayload := fields[redisPayloadField]
	createdMs, err := strconv.ParseInt(fields[redisCreatedField], 10, 64)
	if !hasPayload || err != nil {
		logging.Warn().Str("category", string(category)).Str("key", key).Msg("ignoring corrupt cache entry")
		recordCache(opRead, category, metrics.OutcomeCorrupt)
		return nil, false
	}
	if !isFresh(time.UnixMilli(createdMs), s.now(), readTTL(category, maxAge)) {
		recordCache(opRead, category, metrics.OutcomeStale)
		return nil, false
	}
	recordCache(opRead, category, metrics.OutcomeHit)
	return []byte(payload), true
}

// Write replaces the hash in one transaction so no field from an older entry survives.
func (s *RedisCacheStore) Write(ctx context.Context, category schema.CacheCategory, key string, payload []byte) error {
	k := redisKey(category, key)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, redisPayloadField, payload, redisCreatedField, s.now().UnixMilli())
		return nil
	})
	if err != nil {
		recordCache(opWrite, category, metrics.OutcomeError)
		return fmt.Errorf("failed to write cache entry %s/%s: %w", category, key, err)
	}
	recordCache(opWrite, category, metrics.OutcomeOK)
	return nil
}

// Invalidate deletes the hash.
func (s *RedisCacheStore) Invalidate(ctx context.Context, category schema.CacheCategory, key string) (bool, error) {
	n, err := s.rdb.Del(ctx, redisKey(category, key)).Result()
	if err != nil {
		recordCache(opInvalidate, category, metrics.OutcomeError)
		return false, fmt.Errorf("failed to invalidate cache entry %s/%s: %w", category, key, err)
	}
	if n == 0 {
		recordCache(opInvalidate, category, metrics.OutcomeNotFound)
		return false, nil
	}
	recordCache(opInvalidate, category, metrics.OutcomeOK)
	return true, nil
}

// scan visits every cache hash.
func (s *RedisCacheStore) scan(ctx context.Context, visit func(key string) error) error {
	iter := s.rdb.Scan(ctx, 0, RedisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := visit(iter.Val()); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Sweep deletes entries strictly older than maxAge.
func (s *RedisCacheStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	removed := 0
	err := s.scan(ctx, func(key string) error {
		created, err := s.rdb.HGet(ctx, key, redisCreatedField).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			// Unparseable timestamps are treated as expired
			created = 0
		}
		if created >= cutoff {
			return nil
		}
		n, err := s.rdb.Del(ctx, key).Result()
		if err != nil {
			return err
		}
		removed += int(n)
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to sweep redis cache: %w", err)
	}
	metrics.CacheSweptEntries.Add(float64(removed))
	return removed, nil
}

// Stats scans every cache hash.
func (s *RedisCacheStore) Stats(ctx context.Context) (schema.CacheStatus, error) {
	status := newStatus(schema.RedisBackend, s.addr)
	err := s.scan(ctx, func(key string) error {
		vals, err := s.rdb.HMGet(ctx, key, redisPayloadField, redisCreatedField).Result()
		if err != nil {
			return err
		}
		payload, _ := vals[0].(string)
		createdStr, _ := vals[1].(string)
		createdMs, err := strconv.ParseInt(createdStr, 10, 64)
		if err != nil {
			return nil
		}
		addToStatus(&status, redisCategory(key), int64(len(payload)), time.UnixMilli(createdMs))
		return nil
	})
	if err != nil {
		return status, fmt.Errorf("failed to scan redis cache: %w", err)
	}
	return status, nil
}

// Clear deletes every cache hash.
func (s *RedisCacheStore) Clear(ctx context.Context) (int, error) {
	removed := 0
	err := s.scan(ctx, func(key string) error {
		n, err := s.rdb.Del(ctx, key).Result()
		removed += int(n)
		return err
	})
	return removed, err
}

// Close closes the redis client.
func (s *RedisCacheStore) Close() error {
	return s.rdb.Close()
}
