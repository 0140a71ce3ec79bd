package main

import (
	"fmt"
	"sort"
	"strings"

	"xppkb/internal/cache"
	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/index"
	"xppkb/internal/metadata"
	"xppkb/internal/modules"
	"xppkb/internal/storage"

	"github.com/spf13/cobra"
)

var indexModels []string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the configured models into the symbol store",
	Long: `Parses the AxClass, AxTable and AxEnum files of every configured model and
replaces their symbols in the store in one transaction. Files that fail to
parse are reported and skipped. The query cache is cleared afterwards.

Examples:
  xppkb index
  xppkb index --models ContosoExtensions
  xppkb index --format json`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringSliceVar(&indexModels, "models", nil, "Only index these models (comma-separated)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if cfg.Metadata.Root == "" {
		return errors.New(errors.InvalidArgument, "metadata.root is not configured; run 'xppkb init --metadata-root <dir>'", nil)
	}

	lock, err := index.AcquireLock(cfg.DataDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	models, err := modules.Resolve(cfg)
	if err != nil {
		return err
	}
	if models, err = selectModels(models, indexModels); err != nil {
		return err
	}

	store, err := storage.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	layer := cache.Open(ctx, cfg.Cache, cfg.DataDir, store, logger)
	defer layer.Close()

	ix := index.New(store, metadata.NewXMLParser(), layer, &fuzzy.Shared{}, logger)
	result, err := ix.BulkIndex(ctx, cfg.Metadata.Root, models)
	if err != nil {
		return err
	}

	out, err := FormatResponse(result, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// selectModels keeps the models named by --models, in resolved order.
func selectModels(models []modules.Model, names []string) ([]modules.Model, error) {
	if len(names) == 0 {
		return models, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var out []modules.Model
	for _, m := range models {
		if wanted[strings.ToLower(m.Name)] {
			out = append(out, m)
			delete(wanted, strings.ToLower(m.Name))
		}
	}
	if len(wanted) > 0 {
		var unknown []string
		for n := range wanted {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, errors.New(errors.InvalidArgument,
			fmt.Sprintf("unknown model(s): %s", strings.Join(unknown, ", ")), nil)
	}
	return out, nil
}
