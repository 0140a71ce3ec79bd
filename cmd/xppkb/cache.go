package main

import (
	"fmt"

	"xppkb/internal/cache"
	"xppkb/internal/storage"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the query cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached query result",
	Long: `Removes every xppkb entry from the configured cache backend. Indexing
already does this; use it after editing metadata without reindexing.

Examples:
  xppkb cache clear`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := storage.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	layer := cache.Open(ctx, cfg.Cache, cfg.DataDir, store, logger)
	defer layer.Close()

	if !layer.Enabled() {
		fmt.Println("Cache is disabled; nothing to clear.")
		return nil
	}
	if err := layer.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear %s cache: %w", layer.BackendName(), err)
	}
	fmt.Printf("Cleared %s cache.\n", layer.BackendName())
	return nil
}
