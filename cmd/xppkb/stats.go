package main

import (
	"fmt"

	"xppkb/internal/index"
	"xppkb/internal/modules"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store contents and index freshness",
	Long: `Counts the stored symbols by kind and model, reports the last index run,
and checks whether any metadata file changed since then. The full-text
search index is verified and rebuilt if it has drifted from the symbols.

Examples:
  xppkb stats
  xppkb stats --format yaml`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.service.Stats(ctx)
	if err != nil {
		return err
	}
	report := &statsReport{Store: stats, Cache: a.cache.BackendName(), SearchIndex: "ok"}
	rebuilt, err := a.store.EnsureFTS(ctx)
	switch {
	case err != nil:
		return err
	case rebuilt:
		report.SearchIndex = "rebuilt"
	}

	switch {
	case a.cfg.Metadata.Root == "":
		report.Freshness = index.FreshnessResult{Reason: "metadata.root is not configured"}
	default:
		models, err := modules.Resolve(a.cfg)
		if err != nil {
			return err
		}
		report.Freshness, err = index.CheckFreshness(ctx, stats.LastRun, a.cfg.Metadata.Root, models)
		if err != nil {
			return err
		}
	}

	out, err := FormatResponse(report, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
