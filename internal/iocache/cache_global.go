package iocache

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
)

// anomalyTable names the SQL table and Redis key prefix of the anomaly cache.
const anomalyTable = "footfall_anomaly_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStores initializes the global manager with the anomaly cache and the run store.
// An empty or none backend leaves the matching store nil.
func InitStores(ctx context.Context, cacheBackend schema.DatabaseBackend, cacheConnStr string, runBackend schema.DatabaseBackend, runConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		cache, runs, err := openStores(ctx, cacheBackend, cacheConnStr, runBackend, runConnStr)
		if err != nil {
			initErr = err
			return
		}
		Manager.Lock()
		defer Manager.Unlock()
		Manager.cache = cache
		Manager.runs = runs
	})

	return initErr
}

// openStores opens the enabled stores. A disabled store comes back as an untyped nil.
func openStores(ctx context.Context, cacheBackend schema.DatabaseBackend, cacheConnStr string, runBackend schema.DatabaseBackend, runConnStr string) (contract.CacheStore, contract.RunStore, error) {
	var cache contract.CacheStore
	if enabled(cacheBackend) {
		store, err := NewCacheStore(ctx, anomalyTable, cacheBackend, cacheConnStr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize anomaly caching: %w", err)
		}
		cache = store
	}

	var runs contract.RunStore
	if enabled(runBackend) {
		store, err := NewRunStore(ctx, runBackend, runConnStr)
		if err != nil {
			if cache != nil {
				_ = cache.Close()
			}
			return nil, nil, fmt.Errorf("failed to initialize run store: %w", err)
		}
		runs = store
	}
	return cache, runs, nil
}

func enabled(backend schema.DatabaseBackend) bool {
	return backend != "" && backend != schema.NoneBackend
}

// CloseStores should be called on application shutdown.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.cache != nil {
			_ = Manager.cache.Close()
		}
		if Manager.runs != nil {
			_ = Manager.runs.Close()
		}
	})
}

// ClearCache removes every cached anomaly table.
// SQLite deletes the database file, MySQL and PostgreSQL drop the table and Redis deletes the prefixed keys.
func ClearCache(ctx context.Context, backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeSQLiteFile(dbFilePath)
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropTables(ctx, backend, connStr, anomalyTable)
	case schema.RedisBackend:
		rs, err := NewRedisStore(ctx, anomalyTable, connStr)
		if err != nil {
			return err
		}
		defer func() { _ = rs.Close() }()
		return rs.Clear(ctx)
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}

// ClearRuns removes the run history. The migration bookkeeping table goes too,
// so the next open recreates the schema from scratch.
func ClearRuns(ctx context.Context, backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeSQLiteFile(dbFilePath)
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropTables(ctx, backend, connStr, typicalTable, runsTable, "schema_migrations")
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported run backend for clearing: %s", backend)
	}
}

func removeSQLiteFile(path string) error {
	if path == "" {
		return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove SQLite database file %s: %w", path, err)
	}
	return nil
}
