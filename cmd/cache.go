package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/iocache"
	"github.com/huangsam/placewise/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := initLogging(); err != nil {
		return err
	}

	// Get cache-related config values
	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("cache-backend")))
	connStr := viper.GetString("cache-db-connect")
	dir := viper.GetString("cache-dir")

	if _, ok := schema.ValidCacheBackends[backend]; !ok {
		return fmt.Errorf("%w: invalid cache backend '%s'", contract.ErrConfiguration, backend)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// Initialize caching with the loaded config (no run history for cache commands)
	if err := iocache.InitStores(backend, connStr, dir, "", ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	cfg.CacheDir = dir

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// parseCategory accepts only the categories the cache knows a TTL for.
func parseCategory(s string) (schema.CacheCategory, error) {
	category := schema.CacheCategory(strings.ToLower(s))
	if _, ok := schema.CacheTTL[category]; !ok {
		return "", fmt.Errorf("%w: unknown cache category '%s'", contract.ErrInvalidInput, s)
	}
	return category, nil
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by ranking commands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the upstream response cache",
	Long: `Manage the cache of upstream collaborator responses and explanations.

Each category has its own freshness window: property data for a day, crime
and amenities for thirty days, school data for ninety days. Video URLs never
expire. Stale entries are ignored on read and removed by sweep.

Supported backends: file (default), SQLite, MySQL, PostgreSQL, Redis, Badger, or None

Subcommands:
  status     - Show cache statistics per category
  clear      - Remove all cached data
  sweep      - Remove entries older than --days
  get        - Print one cached payload
  invalidate - Remove one cached entry

Examples:
  # Check cache status
  placewise cache status

  # Drop entries older than thirty days
  placewise cache sweep --days 30

  # Inspect the cached property data for E14
  placewise cache get scansan_property E14`,
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display cache statistics and connection details",
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetCacheStore().Stats(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached data",
	Long: `Delete all cached data from the configured backend.

For file: Deletes the entry files (other files in --cache-dir are kept)
For badger: Drops every cache key
For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table
For Redis: Deletes every placewise key

Examples:
  # Clear the file cache (default)
  placewise cache clear

  # Clear a Redis cache (set connection string via env variable)
  PLACEWISE_CACHE_BACKEND=redis PLACEWISE_CACHE_DB_CONNECT="redis://localhost:6379/0" placewise cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release file handles before removing the backing files
		iocache.CloseCaching()
		if err := iocache.ClearCache(cfg.CacheBackend, cfg.CacheDBConnect, cfg.CacheDir); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheSweepCmd removes old entries.
var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove cache entries older than a number of days",
	Long: `Remove every cache entry created more than --days days ago, regardless of category.

Examples:
  # Default retention of ninety days
  placewise cache sweep

  # Keep one week
  placewise cache sweep --days 7`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		days := viper.GetInt("sweep-days")
		if days < 0 {
			contract.LogFatal("Invalid sweep window", fmt.Errorf("%w: --days must be >= 0", contract.ErrInvalidInput))
		}
		removed, err := iocache.Manager.GetCacheStore().Sweep(rootCtx, time.Duration(days)*24*time.Hour)
		if err != nil {
			contract.LogFatal("Failed to sweep cache", err)
		}
		fmt.Printf("Removed %d cache entries older than %d days.\n", removed, days)
	},
}

// cacheGetCmd prints a cached payload.
var cacheGetCmd = &cobra.Command{
	Use:   "get <category> <key>",
	Short: "Print a fresh cached payload",
	Long: `Print the payload cached under a category and key, if it is still fresh.

Examples:
  placewise cache get scansan_property E14
  placewise cache get explanation E14_student_medium_1_79.0`,
	Args:    cobra.ExactArgs(2),
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		category, err := parseCategory(args[0])
		if err != nil {
			contract.LogFatal("Cannot read cache", err)
		}
		payload, ok := iocache.Manager.GetCacheStore().Read(rootCtx, category, args[1], schema.TTLFor(category))
		if !ok {
			contract.LogFatal("Cannot read cache", fmt.Errorf("%w: no fresh entry for %s/%s", contract.ErrNotFound, category, args[1]))
		}
		fmt.Println(string(payload))
	},
}

// cacheInvalidateCmd removes a cached entry.
var cacheInvalidateCmd = &cobra.Command{
	Use:     "invalidate <category> <key>",
	Short:   "Remove one cached entry",
	Args:    cobra.ExactArgs(2),
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		category, err := parseCategory(args[0])
		if err != nil {
			contract.LogFatal("Cannot invalidate cache entry", err)
		}
		removed, err := iocache.Manager.GetCacheStore().Invalidate(rootCtx, category, args[1])
		if err != nil {
			contract.LogFatal("Cannot invalidate cache entry", err)
		}
		if removed {
			fmt.Printf("Removed %s/%s.\n", category, args[1])
			return
		}
		fmt.Printf("No entry for %s/%s.\n", category, args[1])
	},
}
