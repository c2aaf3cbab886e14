package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/iocache"
	"github.com/huangsam/footfall/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeSetup loads the backend settings of one store without the full shared setup,
// so store commands need no input file.
func storeSetup(backendKey, connKey string, valid map[schema.DatabaseBackend]struct{}) (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	if err := setupLogging(viper.GetString("log-level"), viper.GetString("log-format")); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(viper.GetString(backendKey))
	if backend == "" {
		backend = schema.NoneBackend
	}
	if _, ok := valid[backend]; !ok {
		return "", "", fmt.Errorf("invalid --%s '%s'", backendKey, backend)
	}
	connStr := viper.GetString(connKey)
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// sqlitePath resolves the database file of a SQLite store.
func sqlitePath(connStr, defaultPath string) string {
	if connStr != "" {
		return connStr
	}
	return defaultPath
}

// cacheSetup loads the cache settings into cfg.
func cacheSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeSetup("cache-backend", "cache-db-connect", schema.ValidCacheBackends)
	if err != nil {
		return err
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheCmd focused on cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the anomaly cache (improves performance)",
	Long: `Manage the cache of scored anomaly tables.

Footfall caches each scored table under a hash of its metric, options and
aggregated rows, so repeated runs over the same data skip the scoring step.
Entries expire after 7 days.

Supported backends: SQLite (default), MySQL, PostgreSQL, Redis, or None

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached anomaly tables",
	Long: `Delete all cached anomaly tables from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table
For Redis: Deletes the cache keys

Examples:
  footfall cache clear

  # Clear a Redis cache (set connection string via env variable)
  FOOTFALL_CACHE_BACKEND=redis FOOTFALL_CACHE_DB_CONNECT="redis://localhost:6379/0" footfall cache clear`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		path := sqlitePath(cfg.CacheDBConnect, contract.GetCacheDBFilePath())
		if err := iocache.ClearCache(rootCtx, cfg.CacheBackend, path, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show the backend, connection state, entry count, entry age and size of the anomaly cache.

Examples:
  footfall cache status`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.InitStores(rootCtx, cfg.CacheBackend, cfg.CacheDBConnect, schema.NoneBackend, ""); err != nil {
			contract.LogFatal("Failed to initialize cache", err)
		}
		store := iocache.Manager.GetCacheStore()
		if store == nil {
			iocache.PrintCacheStatus(os.Stdout, schema.CacheStatus{Backend: string(cfg.CacheBackend)})
			return
		}
		status, err := store.GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}
