// Package search answers symbol queries against the store: exact, prefix,
// and ranked lookups, plus the hybrid search that merges them with local
// workspace symbols.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"xppkb/internal/config"
	"xppkb/internal/fuzzy"
	"xppkb/internal/storage"
	"xppkb/internal/symbols"
)

// Match sources.
const (
	SourceExact     = "exact"
	SourcePrefix    = "prefix"
	SourceRanked    = "ranked"
	SourceWorkspace = "workspace"
)

// Match is a search hit with a score in [0, 1].
type Match struct {
	symbols.Symbol `yaml:",inline"`
	Score          float64 `json:"score" yaml:"score"`
	Source         string  `json:"source" yaml:"source"`
}

// Options describes a hybrid search.
type Options struct {
	Query string
	Kinds []symbols.Kind
	Limit int
	// Extra holds workspace symbols merged into the result. They are
	// never written to the store.
	Extra []symbols.Symbol
}

// Engine runs searches against a store.
type Engine struct {
	store  *storage.DB
	cfg    config.SearchConfig
	logger *slog.Logger
}

// New creates an engine. Zero limits in cfg fall back to the defaults.
func New(store *storage.DB, cfg config.SearchConfig, logger *slog.Logger) *Engine {
	def := config.DefaultConfig().Search
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = def.BatchConcurrency
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: store, cfg: cfg, logger: logger}
}

// Store returns the engine's store.
func (e *Engine) Store() *storage.DB {
	return e.store
}

// ClampLimit maps non-positive limits to the default and caps large ones.
func (e *Engine) ClampLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.DefaultLimit
	}
	return min(limit, e.cfg.MaxLimit)
}

// MaxLimit is the largest result count a request may ask for.
func (e *Engine) MaxLimit() int {
	return e.cfg.MaxLimit
}

// BatchConcurrency is the fan-out width for batch requests.
func (e *Engine) BatchConcurrency() int {
	return e.cfg.BatchConcurrency
}

// SearchExact returns the symbols named name, first inserted first. kind
// may be empty.
func (e *Engine) SearchExact(ctx context.Context, name string, kind symbols.Kind) ([]symbols.Symbol, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var kinds []symbols.Kind
	if kind != "" {
		kinds = []symbols.Kind{kind}
	}
	return e.store.ExactLookup(ctx, name, kinds, 0)
}

// SearchPrefix returns symbols whose name starts with prefix, in lexical order.
func (e *Engine) SearchPrefix(ctx context.Context, prefix string, kinds []symbols.Kind, limit int) ([]symbols.Symbol, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	return e.store.PrefixLookup(ctx, prefix, kinds, e.ClampLimit(limit))
}

// SearchRanked returns full-text matches by relevance. Scores are relative
// to the best hit, which scores 1.
func (e *Engine) SearchRanked(ctx context.Context, query string, kinds []symbols.Kind, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	ranked, err := e.store.RankedLookup(ctx, query, kinds, e.ClampLimit(limit))
	if err != nil {
		return nil, err
	}

	out := make([]Match, len(ranked))
	for i, r := range ranked {
		out[i] = Match{Symbol: r.Symbol, Score: relevance(r.Rank, ranked[0].Rank), Source: SourceRanked}
	}
	return out, nil
}

// relevance maps a bm25 rank onto (0, 1] relative to the best rank.
// bm25 ranks are negative with better hits further from zero.
func relevance(rank, best float64) float64 {
	if best >= 0 || rank >= 0 {
		return 1
	}
	return min(rank/best, 1)
}

// Search merges exact, ranked, and prefix hits from the store with matching
// workspace symbols, scores them, drops duplicates, and returns the best
// Limit results. Equal scores keep exact, workspace, ranked, prefix order.
func (e *Engine) Search(ctx context.Context, opts Options) ([]Match, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, nil
	}
	limit := e.ClampLimit(opts.Limit)

	exact, err := e.store.ExactLookup(ctx, query, opts.Kinds, limit)
	if err != nil {
		return nil, err
	}
	ranked, err := e.SearchRanked(ctx, query, opts.Kinds, limit)
	if err != nil {
		return nil, err
	}
	var prefix []symbols.Symbol
	if len(exact)+len(ranked) < limit {
		prefix, err = e.store.PrefixLookup(ctx, query, opts.Kinds, limit)
		if err != nil {
			return nil, err
		}
	}

	var candidates []Match
	for _, s := range exact {
		candidates = append(candidates, Match{Symbol: s, Score: 1, Source: SourceExact})
	}
	for _, s := range opts.Extra {
		if !kindAllowed(s.Kind, opts.Kinds) {
			continue
		}
		if score, ok := workspaceScore(query, s.Name); ok {
			candidates = append(candidates, Match{Symbol: s, Score: score, Source: SourceWorkspace})
		}
	}
	for _, m := range ranked {
		m.Score = rankedScore(query, m.Name, m.Score)
		candidates = append(candidates, m)
	}
	for _, s := range prefix {
		candidates = append(candidates, Match{Symbol: s, Score: prefixScore(query, s.Name), Source: SourcePrefix})
	}

	merged := dedupe(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	e.logger.Debug("Search finished",
		"query", query,
		"exact", len(exact),
		"ranked", len(ranked),
		"prefix", len(prefix),
		"workspace", len(opts.Extra),
		"returned", len(merged),
	)
	return merged, nil
}

// dedupe keeps the first candidate for each (name, kind, parent). When an
// exact store hit and a workspace copy collide, the workspace copy wins.
func dedupe(candidates []Match) []Match {
	index := make(map[string]int)
	out := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		key := c.DedupKey()
		if i, ok := index[key]; ok {
			if c.Source == SourceWorkspace {
				c.Score = max(c.Score, out[i].Score)
				out[i] = c
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

func kindAllowed(k symbols.Kind, kinds []symbols.Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func prefixScore(query, name string) float64 {
	return 0.8 + 0.2*fuzzy.Similarity(query, name)
}

func rankedScore(query, name string, rel float64) float64 {
	if strings.EqualFold(query, name) {
		return 1
	}
	if hasPrefixFold(name, query) {
		return prefixScore(query, name)
	}
	return 0.5*fuzzy.Similarity(query, name) + 0.3*rel
}

// workspaceScore scores a workspace symbol the way store hits are scored.
// Names that neither contain the query nor resemble it are rejected.
func workspaceScore(query, name string) (float64, bool) {
	switch {
	case strings.EqualFold(query, name):
		return 1, true
	case hasPrefixFold(name, query):
		return prefixScore(query, name), true
	case strings.Contains(strings.ToLower(name), strings.ToLower(query)):
		return 0.5*fuzzy.Similarity(query, name) + 0.3, true
	}
	if sim := fuzzy.Similarity(query, name); sim >= 0.75 {
		return 0.5 * sim, true
	}
	return 0, false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Completions returns the members of className starting with prefix:
// methods of a class or fields of a table. parent is nil when className is
// not indexed.
func (e *Engine) Completions(ctx context.Context, className, prefix string, limit int) (parent *symbols.Symbol, members []symbols.Symbol, err error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return nil, nil, nil
	}

	for _, k := range []symbols.Kind{symbols.KindClass, symbols.KindTable} {
		parent, err = e.store.GetByName(ctx, className, k)
		if err != nil {
			return nil, nil, err
		}
		if parent != nil {
			break
		}
	}
	if parent == nil {
		return nil, nil, nil
	}

	childKind, _ := parent.Kind.ChildKind()
	children, err := e.store.GetChildren(ctx, parent.Name, childKind)
	if err != nil {
		return nil, nil, err
	}

	limit = e.ClampLimit(limit)
	for _, c := range children {
		if prefix != "" && !hasPrefixFold(c.Name, prefix) {
			continue
		}
		members = append(members, c)
		if len(members) >= limit {
			break
		}
	}
	return parent, members, nil
}
