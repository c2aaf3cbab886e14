package iocache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"github.com/redis/go-redis/v9"
)

// redisEntryTTL bounds how long Redis keeps an entry. Readers still apply their own staleness check.
const redisEntryTTL = 7 * 24 * time.Hour

// Hash fields of a cache entry.
const (
	fieldValue     = "value"
	fieldVersion   = "version"
	fieldTimestamp = "timestamp"
)

// RedisStore keeps anomaly tables as Redis hashes under a common prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ contract.CacheStore = &RedisStore{} // Compile-time check

// NewRedisStore connects to Redis. connStr is a redis:// URL or a plain host:port address.
func NewRedisStore(ctx context.Context, prefix, connStr string) (*RedisStore, error) {
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		opts = &redis.Options{Addr: connStr}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (rs *RedisStore) entryKey(key string) string {
	return rs.prefix + ":" + key
}

// ErrCacheMiss is returned by RedisStore.Get for unknown keys.
var ErrCacheMiss = errors.New("cache miss")

// Get retrieves a value by key from the store.
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, int, int64, error) {
	fields, err := rs.client.HGetAll(ctx, rs.entryKey(key)).Result()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(fields) == 0 {
		return nil, 0, 0, ErrCacheMiss
	}
	version, err := strconv.Atoi(fields[fieldVersion])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache version: %w", err)
	}
	ts, err := strconv.ParseInt(fields[fieldTimestamp], 10, 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache timestamp: %w", err)
	}
	return []byte(fields[fieldValue]), version, ts, nil
}

// Set inserts or replaces a key/value pair in the store.
func (rs *RedisStore) Set(ctx context.Context, key string, value []byte, version int, timestamp int64) error {
	k := rs.entryKey(key)
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldValue, value, fieldVersion, version, fieldTimestamp, timestamp)
		pipe.Expire(ctx, k, redisEntryTTL)
		return nil
	})
	return err
}

// GetStatus scans the entries under the prefix.
func (rs *RedisStore) GetStatus(ctx context.Context) (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.RedisBackend)}
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return status, nil
	}
	status.Connected = true

	var oldest, newest int64
	iter := rs.client.Scan(ctx, 0, rs.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		status.TotalEntries++
		ts, err := rs.client.HGet(ctx, k, fieldTimestamp).Int64()
		if err == nil {
			if oldest == 0 || ts < oldest {
				oldest = ts
			}
			newest = max(newest, ts)
		}
		if size, err := rs.client.MemoryUsage(ctx, k).Result(); err == nil {
			status.TableSizeBytes += size
		}
	}
	if err := iter.Err(); err != nil {
		return status, fmt.Errorf("failed to scan cache entries: %w", err)
	}
	if status.TotalEntries > 0 {
		status.OldestEntryTime = time.Unix(oldest, 0)
		status.LastEntryTime = time.Unix(newest, 0)
	}
	return status, nil
}

// Clear deletes every entry under the prefix.
func (rs *RedisStore) Clear(ctx context.Context) error {
	iter := rs.client.Scan(ctx, 0, rs.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rs.client.Del(ctx, keys...).Err()
}

// Close closes the client.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
