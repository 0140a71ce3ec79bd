// Package tools implements the public operations of the knowledge base.
// Every operation validates its arguments, consults the cache, runs the
// search or analysis engine on a miss, and returns a Result that is safe to
// hand to any transport: failures are converted, never raised.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"xppkb/internal/cache"
	"xppkb/internal/config"
	"xppkb/internal/envelope"
	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/index"
	"xppkb/internal/patterns"
	"xppkb/internal/search"
	"xppkb/internal/storage"
	"xppkb/internal/symbols"
)

// Tool names.
const (
	ToolSearch                = "search"
	ToolGetSymbol             = "get_symbol"
	ToolCompletions           = "completions"
	ToolAnalyzePatterns       = "analyze_patterns"
	ToolSuggestMissingMethods = "suggest_missing_methods"
	ToolFindSimilarMethods    = "find_similar_methods"
	ToolAPIUsagePatterns      = "api_usage_patterns"
	ToolBatchSearch           = "batch_search"
)

// Names lists every tool in registration order.
var Names = []string{
	ToolSearch,
	ToolGetSymbol,
	ToolCompletions,
	ToolAnalyzePatterns,
	ToolSuggestMissingMethods,
	ToolFindSimilarMethods,
	ToolAPIUsagePatterns,
	ToolBatchSearch,
}

// Workspace supplies unindexed symbols from a local checkout.
type Workspace interface {
	Symbols() []symbols.Symbol
}

// Result is the outcome of one operation.
type Result struct {
	// Content is the pre-rendered human-readable answer.
	Content string
	IsError bool
	// Response is the structured form of the same answer.
	Response *envelope.Response
}

// Service runs the public operations.
type Service struct {
	store     *storage.DB
	engine    *search.Engine
	analyzer  *patterns.Analyzer
	cache     *cache.Layer
	graph     *fuzzy.Shared
	fuzzy     fuzzy.Config
	workspace Workspace
	maxLimit  int
	logger    *slog.Logger

	rebuildMu sync.Mutex
}

// New creates a service over store. layer, graph, and ws may be nil.
func New(store *storage.DB, cfg *config.Config, layer *cache.Layer, graph *fuzzy.Shared, ws Workspace, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if graph == nil {
		graph = &fuzzy.Shared{}
	}
	engine := search.New(store, cfg.Search, logger)
	return &Service{
		store:     store,
		engine:    engine,
		analyzer:  patterns.NewAnalyzer(store, logger),
		cache:     layer,
		graph:     graph,
		fuzzy:     fuzzy.FromConfig(cfg.Fuzzy),
		workspace: ws,
		maxLimit:  engine.MaxLimit(),
		logger:    logger,
	}
}

// Engine returns the search engine the service queries.
func (s *Service) Engine() *search.Engine {
	return s.engine
}

func (s *Service) workspaceSymbols() []symbols.Symbol {
	if s.workspace == nil {
		return nil
	}
	return s.workspace.Symbols()
}

// analysisLimit keeps non-positive limits, which the analyzer maps to its
// own default, and caps the rest.
func (s *Service) analysisLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	return min(limit, s.maxLimit)
}

// finish runs deferred by every operation: a panic becomes an
// internal-error result, and the call is counted and timed.
func (s *Service) finish(tool string, started time.Time, res **Result) {
	if p := recover(); p != nil {
		s.logger.Error("Tool panicked",
			"tool", tool,
			"panic", fmt.Sprint(p),
			"stack", string(debug.Stack()),
		)
		*res = s.failure(tool, errors.Newf(errors.InternalError, "%s failed unexpectedly: %v", tool, p))
	}
	observe(tool, *res, time.Since(started))
}

// invalid reports a missing or malformed required argument.
func (s *Service) invalid(tool, format string, args ...any) *Result {
	return s.failure(tool, errors.Newf(errors.InvalidArgument, format, args...))
}

// failure converts err into an error result with next steps.
func (s *Service) failure(tool string, err error) *Result {
	code := errors.CodeOf(err)
	level := slog.LevelWarn
	if code == errors.InvalidArgument {
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, "Tool failed", "tool", tool, "code", string(code), "error", err.Error())

	resp := envelope.New(tool).Error(err).Build()
	if resp.Error.Code == errors.InternalError && len(resp.Error.SuggestedFixes) == 0 {
		resp.Error.SuggestedFixes = []errors.FixAction{{
			Type:        errors.RunCommand,
			Command:     "xppkb stats",
			Description: "Check that the index is present and healthy",
		}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error [%s]: %s\n", resp.Error.Code, resp.Error.Message)
	renderFixes(&b, resp.Error.SuggestedFixes)
	return &Result{Content: b.String(), IsError: true, Response: resp}
}

// respond wraps a successful payload.
func (s *Service) respond(ctx context.Context, b *envelope.Builder, hit cache.Hit, started time.Time, content string) *Result {
	b.WithCache(hit.Cached, hit.Fuzzy, hit.Key).WithDuration(time.Since(started))
	if run, err := s.store.LatestIndexRun(ctx); err == nil && run != nil {
		b.WithFreshness(run.FinishedAt, "")
	}
	return &Result{Content: content, Response: b.Build()}
}

// suggest proposes alternatives for a query that matched nothing. Typo
// candidates are the indexed and workspace names sharing its first letters.
func (s *Service) suggest(ctx context.Context, query string) []fuzzy.Suggestion {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	r := []rune(query)
	head := string(r[:min(len(r), 3)])

	var names []string
	candidates, err := s.store.PrefixLookup(ctx, head, nil, 500)
	if err != nil {
		s.logger.Debug("Suggestion lookup failed", "query", query, "error", err.Error())
	}
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	for _, w := range s.workspaceSymbols() {
		names = append(names, w.Name)
	}
	return s.fuzzy.GenerateSuggestions(query, names, s.currentGraph(ctx))
}

// currentGraph returns the term graph, first rebuilding it when the store
// records an index run newer than the one the graph was built from. This
// picks up reindexes done by another process.
func (s *Service) currentGraph(ctx context.Context) *fuzzy.TermGraph {
	run, err := s.store.LatestIndexRun(ctx)
	if err != nil || run == nil || run.RunID == s.graph.Run() {
		return s.graph.Load()
	}

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	if run.RunID != s.graph.Run() {
		s.logger.Info("Index changed, rebuilding term graph", "run", run.RunID)
		if err := index.RebuildGraph(ctx, s.store, s.graph); err != nil {
			s.logger.Warn("Failed to rebuild term graph", "error", err.Error())
		}
	}
	return s.graph.Load()
}

// indexEmpty reports whether nothing has been indexed yet.
func (s *Service) indexEmpty(ctx context.Context) bool {
	st, err := s.store.Stats(ctx)
	return err == nil && st.Total == 0
}

func suggestCalls(b *envelope.Builder, tool, param string, suggestions []fuzzy.Suggestion) {
	for _, sg := range suggestions {
		b.Suggest(tool, map[string]any{param: sg.Query}, fmt.Sprintf("%s (%.2f)", sg.Kind, sg.Confidence))
	}
}

// Stats summarizes the indexed store.
func (s *Service) Stats(ctx context.Context) (*storage.Stats, error) {
	return s.store.Stats(ctx)
}
