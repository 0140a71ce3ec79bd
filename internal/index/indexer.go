// Package index drives bulk indexing: it walks model directories, parses
// metadata files, and swaps the parsed symbols into the store in one
// transaction, then refreshes the derived state that depends on them.
package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"xppkb/internal/cache"
	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/metadata"
	"xppkb/internal/modules"
	"xppkb/internal/storage"
	"xppkb/internal/symbols"
)

// maxReportedFailures caps the per-file failures kept on a Result.
const maxReportedFailures = 50

// Indexer rebuilds the store from metadata files.
type Indexer struct {
	store  *storage.DB
	parser metadata.Parser
	cache  *cache.Layer
	graph  *fuzzy.Shared
	logger *slog.Logger

	// Concurrency bounds parallel file parsing; zero means GOMAXPROCS.
	Concurrency int
}

// New creates an indexer. layer and graph may be nil.
func New(store *storage.DB, parser metadata.Parser, layer *cache.Layer, graph *fuzzy.Shared, logger *slog.Logger) *Indexer {
	if parser == nil {
		parser = metadata.NewXMLParser()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Indexer{store: store, parser: parser, cache: layer, graph: graph, logger: logger}
}

// FileFailure is one metadata file that could not be parsed.
type FileFailure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Result summarizes a bulk index pass.
type Result struct {
	RunID         string        `json:"runId" yaml:"runId"`
	Models        []string      `json:"models" yaml:"models"`
	Files         int           `json:"files" yaml:"files"`
	Symbols       int           `json:"symbols" yaml:"symbols"`
	ParseFailures int           `json:"parseFailures" yaml:"parseFailures"`
	Failures      []FileFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

type parsedFile struct {
	path string
	syms []symbols.Symbol
	err  error
}

// BulkIndex replaces the symbols of models with what their metadata files
// under root declare. Files that fail to parse are counted and skipped.
// The clear and every insert share one transaction: if anything fails
// the store keeps its previous content.
func (ix *Indexer) BulkIndex(ctx context.Context, root string, models []modules.Model) (*Result, error) {
	if len(models) == 0 {
		return nil, errors.New(errors.InvalidArgument, "no models to index", nil)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, errors.New(errors.InvalidArgument, fmt.Sprintf("metadata root %q is not a directory", root), err)
	}

	started := time.Now()
	result := &Result{RunID: uuid.NewString(), Models: modules.Names(models)}
	logger := ix.logger.With("run", result.RunID)
	logger.Info("Index run started", "root", root, "models", len(models))

	written, err := ix.run(ctx, root, models, result, logger)
	result.Symbols = written
	result.Duration = time.Since(started)

	run := storage.IndexRun{
		RunID:         result.RunID,
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Models:        result.Models,
		Files:         result.Files,
		Symbols:       result.Symbols,
		ParseFailures: result.ParseFailures,
		Status:        storage.RunCompleted,
	}
	if err != nil {
		run.Status = storage.RunFailed
		run.Error = err.Error()
		run.Symbols = 0
	}
	// A cancelled context would also refuse the run record.
	if recErr := ix.store.RecordIndexRun(context.WithoutCancel(ctx), run); recErr != nil {
		logger.Warn("Failed to record index run", "error", recErr.Error())
	}
	if err != nil {
		logger.Error("Index run failed", "error", err.Error())
		return nil, err
	}

	ix.refreshDerived(ctx, logger)

	logger.Info("Index run finished",
		"files", result.Files,
		"symbols", result.Symbols,
		"parseFailures", result.ParseFailures,
		"duration", result.Duration.String(),
	)
	return result, nil
}

func (ix *Indexer) run(ctx context.Context, root string, models []modules.Model, result *Result, logger *slog.Logger) (int, error) {
	var files []fileRef
	for _, m := range models {
		found, err := metadataFiles(ctx, m.Dir(root), m.Name)
		if err != nil {
			return 0, err
		}
		if len(found) == 0 {
			logger.Warn("No metadata files found for model", "model", m.Name, "dir", m.Dir(root))
		}
		files = append(files, found...)
	}
	result.Files = len(files)

	parsed, err := ix.parseAll(ctx, files)
	if err != nil {
		return 0, err
	}

	var all []symbols.Symbol
	for _, pf := range parsed {
		if pf.err != nil {
			result.ParseFailures++
			if len(result.Failures) < maxReportedFailures {
				result.Failures = append(result.Failures, FileFailure{Path: pf.path, Error: pf.err.Error()})
			}
			logger.Debug("Skipping unparseable file", "path", pf.path, "error", pf.err.Error())
			continue
		}
		all = append(all, pf.syms...)
	}
	assignUsageFrequency(all)

	return ix.store.ReplaceModels(ctx, result.Models, func(w storage.SymbolWriter) error {
		for i := range all {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.Write(ctx, &all[i]); err != nil {
				return fmt.Errorf("%s: %w", all[i].SourceLocation, err)
			}
		}
		return nil
	})
}

// parseAll parses files in parallel; results keep the input order.
func (ix *Indexer) parseAll(ctx context.Context, files []fileRef) ([]parsedFile, error) {
	limit := ix.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	out := make([]parsedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			syms, err := ix.parser.ParseFile(f.path, f.model)
			out[i] = parsedFile{path: f.path, syms: syms, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// refreshDerived drops cached results and rebuilds the term graph. Both
// are accelerators, so failures are logged rather than returned.
func (ix *Indexer) refreshDerived(ctx context.Context, logger *slog.Logger) {
	if ix.cache != nil && ix.cache.Enabled() {
		if err := ix.cache.Clear(ctx); err != nil {
			logger.Warn("Failed to invalidate cache after reindex", "error", err.Error())
		}
	}
	if ix.graph != nil {
		if err := RebuildGraph(ctx, ix.store, ix.graph); err != nil {
			logger.Warn("Failed to rebuild term graph", "error", err.Error())
		}
	}
}

// RebuildGraph builds the term graph from every stored symbol and
// publishes it.
func RebuildGraph(ctx context.Context, store *storage.DB, shared *fuzzy.Shared) error {
	// Read the run first: a reindex that lands during the scan leaves the
	// graph tagged with the older run and so triggers another rebuild.
	var runID string
	run, err := store.LatestIndexRun(ctx)
	if err != nil {
		return err
	}
	if run != nil {
		runID = run.RunID
	}

	g := fuzzy.NewTermGraph()
	err = store.ForEach(ctx, func(s symbols.Symbol) error {
		g.Add(&s)
		return nil
	})
	if err != nil {
		return err
	}
	g.Terms()
	shared.StoreRun(g, runID)
	return nil
}

type fileRef struct {
	path  string
	model string
}

// metadataFiles lists the XML files under dir that sit in an AxClass,
// AxTable, or AxEnum folder, sorted by path.
func metadataFiles(ctx context.Context, dir, model string) ([]fileRef, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var out []fileRef
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		if _, ok := metadata.ElementDirs[filepath.Base(filepath.Dir(path))]; ok {
			out = append(out, fileRef{path: path, model: model})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

// assignUsageFrequency counts, within one batch, how often each
// top-level symbol is named as a used or base type and how often each
// method name is called.
func assignUsageFrequency(all []symbols.Symbol) {
	typeRefs := make(map[string]int)
	callRefs := make(map[string]int)
	for i := range all {
		s := &all[i]
		for _, t := range s.UsedTypes {
			typeRefs[strings.ToLower(t)]++
		}
		if s.Extends != "" {
			typeRefs[strings.ToLower(s.Extends)]++
		}
		for _, c := range s.MethodCalls {
			callRefs[strings.ToLower(c)]++
		}
	}
	for i := range all {
		s := &all[i]
		switch {
		case s.Kind.IsTopLevel():
			s.UsageFrequency = typeRefs[strings.ToLower(s.Name)]
		case s.Kind == symbols.KindMethod:
			s.UsageFrequency = callRefs[strings.ToLower(s.Name)]
		}
	}
}
