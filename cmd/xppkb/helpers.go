package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"xppkb/internal/cache"
	"xppkb/internal/config"
	"xppkb/internal/fuzzy"
	"xppkb/internal/index"
	"xppkb/internal/logging"
	"xppkb/internal/metadata"
	"xppkb/internal/storage"
	"xppkb/internal/tools"
	"xppkb/internal/workspace"
)

// errReported marks a failure whose details were already written to stdout.
var errReported = stderrors.New("failure already reported")

// app bundles what every query command needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *storage.DB
	cache     *cache.Layer
	graph     *fuzzy.Shared
	workspace *workspace.Workspace
	service   *tools.Service
}

// loadConfig reads and validates the configuration in --data-dir.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(dataDirFlag)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.NewLogger(logging.Config{
		Format:    logging.Format(cfg.Logging.Format),
		Level:     cfg.Logging.Level,
		Verbosity: verbosity,
		Quiet:     quietFlag,
	})
}

// openApp opens the store and cache and builds the tool service. The term
// graph is built from the store; the workspace is scanned once when a root
// is configured.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	store, err := storage.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if store.Recovered() {
		logger.Warn("Store was corrupt and has been recreated; run 'xppkb index' to rebuild it")
	}

	graph := &fuzzy.Shared{}
	if err := index.RebuildGraph(ctx, store, graph); err != nil {
		logger.Warn("Failed to build term graph", "error", err.Error())
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		cache:  cache.Open(ctx, cfg.Cache, cfg.DataDir, store, logger),
		graph:  graph,
	}
	var ws tools.Workspace
	if cfg.Workspace.Root != "" {
		scanner := workspace.NewScanner(cfg.Workspace, metadata.NewXMLParser(), logger)
		a.workspace = workspace.New(scanner, logger)
		if err := a.workspace.Refresh(ctx); err != nil {
			logger.Warn("Workspace scan failed", "root", cfg.Workspace.Root, "error", err.Error())
		}
		ws = a.workspace
	}
	a.service = tools.New(store, cfg, a.cache, graph, ws, logger)
	return a, nil
}

// Close releases the cache and the store.
func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("Failed to close cache", "error", err.Error())
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close store", "error", err.Error())
	}
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
