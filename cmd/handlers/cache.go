package handlers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"updater/internal/config"
	"updater/internal/logger"
	"updater/internal/store"
)

// NewCacheCmd creates the cache management command
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the reference extraction cache",
		Long:  `Inspect and prune the SQLite cache of extracted reference pages.`,
	}

	cacheCmd.AddCommand(newCacheStatsCmd())
	cacheCmd.AddCommand(newCachePruneCmd())

	return cacheCmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and storage size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(cmd, cmd.OutOrStdout())
		},
	}
}

func newCachePruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove cache entries older than the configured TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePrune(cmd, cmd.OutOrStdout())
		},
	}
}

func openCache() (*store.Store, error) {
	cfg := config.Get()
	cacheStore, err := store.NewStore(cfg.Cache.Directory, config.Duration(cfg.Cache.TTL, store.DefaultTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}
	return cacheStore, nil
}

func runCacheStats(cmd *cobra.Command, out io.Writer) error {
	cacheStore, err := openCache()
	if err != nil {
		return err
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()

	stats, err := cacheStore.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get cache statistics: %w", err)
	}
	return json.NewEncoder(out).Encode(map[string]any{
		"entries":    stats.Entries,
		"fresh":      stats.Fresh,
		"size_bytes": stats.SizeBytes,
	})
}

func runCachePrune(cmd *cobra.Command, out io.Writer) error {
	cacheStore, err := openCache()
	if err != nil {
		return err
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()

	removed, err := cacheStore.Prune(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("Pruned extraction cache", "removed", removed)
	return json.NewEncoder(out).Encode(map[string]int64{"removed": removed})
}
