package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"xppkb/internal/mcp"
	"xppkb/internal/version"
)

var serveMetricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol (MCP) server.

The server speaks JSON-RPC 2.0 over stdin/stdout and exposes these tools:
  - search, batch_search: find symbols by name
  - get_symbol, get_completions: symbol details and members
  - analyze_code_patterns, suggest_missing_methods,
    find_similar_methods, get_api_usage_patterns: pattern analysis

Logs go to stderr. When workspace.watch is set, the workspace is rescanned
as metadata files change. --metrics-addr exposes Prometheus metrics over
HTTP.

Example usage:
  xppkb serve
  xppkb serve --metrics-addr 127.0.0.1:9464

This command is typically invoked by MCP clients and not directly by users.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	sigCtx, stop := newContext()
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if stats, err := a.store.Stats(ctx); err == nil && stats.Total == 0 {
		a.logger.Warn("Symbol store is empty; run 'xppkb index' first")
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.workspace != nil && a.cfg.Workspace.Watch {
		g.Go(func() error {
			return a.workspace.Watch(gctx)
		})
	}

	if serveMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              serveMetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("Serving metrics", "addr", serveMetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	server := mcp.NewServer(a.service, version.Version, a.logger)
	g.Go(func() error {
		// The client closing stdin ends the session and everything else with it.
		defer cancel()
		a.logger.Info("Starting MCP server", "version", version.Info())
		return server.Serve(gctx, os.Stdin, os.Stdout)
	})

	err = g.Wait()
	if err != nil && stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
