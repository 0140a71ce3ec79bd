package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"xppkb/internal/cache"
	"xppkb/internal/envelope"
	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/search"
	"xppkb/internal/symbols"
)

// maxBatchQueries bounds one batch_search call.
const maxBatchQueries = 20

// SearchParams are the arguments of search.
type SearchParams struct {
	Query string `json:"query"`
	// Kinds is a comma-separated kind filter; empty means every kind.
	Kinds string `json:"kinds,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResponse is the payload of search.
type SearchResponse struct {
	Query       string             `json:"query" yaml:"query"`
	Kinds       string             `json:"kinds" yaml:"kinds"`
	Limit       int                `json:"limit" yaml:"limit"`
	Matches     []search.Match     `json:"matches" yaml:"matches"`
	Suggestions []fuzzy.Suggestion `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

func emptySearch(r *SearchResponse) bool {
	return len(r.Matches) == 0
}

// Search runs a hybrid search. Searches that find nothing come back with
// alternative queries.
func (s *Service) Search(ctx context.Context, p SearchParams) (res *Result) {
	started := time.Now()
	defer s.finish(ToolSearch, started, &res)

	query := strings.TrimSpace(p.Query)
	if query == "" {
		return s.invalid(ToolSearch, "query is required")
	}
	kinds, err := symbols.ParseKinds(p.Kinds)
	if err != nil {
		return s.failure(ToolSearch, errors.Newf(errors.InvalidArgument, "invalid kinds filter: %v", err))
	}
	limit := s.engine.ClampLimit(p.Limit)

	resp, hit, err := s.search(ctx, query, kinds, limit)
	if err != nil {
		return s.failure(ToolSearch, err)
	}

	b := envelope.New(ToolSearch).Data(resp)
	if len(resp.Matches) == limit {
		b.WithTruncation(true, limit, 0, "limit")
	}
	if len(resp.Matches) == 0 && s.indexEmpty(ctx) {
		b.WarningWithCode(errors.IndexEmpty, "nothing has been indexed yet; run xppkb index")
	}
	suggestCalls(b, ToolSearch, "query", resp.Suggestions)
	return s.respond(ctx, b, hit, started, renderSearch(resp))
}

// search serves one query through the cache. Results that include
// workspace symbols change with the checkout and are never cached.
func (s *Service) search(ctx context.Context, query string, kinds []symbols.Kind, limit int) (*SearchResponse, cache.Hit, error) {
	extra := s.workspaceSymbols()
	compute := func(ctx context.Context) (*SearchResponse, error) {
		matches, err := s.engine.Search(ctx, search.Options{
			Query: query,
			Kinds: kinds,
			Limit: limit,
			Extra: extra,
		})
		if err != nil {
			return nil, err
		}
		resp := &SearchResponse{
			Query:   query,
			Kinds:   symbols.KindsKey(kinds),
			Limit:   limit,
			Matches: matches,
		}
		if resp.Matches == nil {
			resp.Matches = []search.Match{}
		}
		if len(matches) == 0 {
			resp.Suggestions = s.suggest(ctx, query)
		}
		return resp, nil
	}

	if len(extra) > 0 {
		resp, err := compute(ctx)
		return resp, cache.Hit{}, err
	}
	key := cache.NewKey(ToolSearch, symbols.KindsKey(kinds), limit, query)
	return cache.WithCache(ctx, s.cache, key, cache.Policy[*SearchResponse]{
		Tier:  cache.Short,
		Fuzzy: true,
		Empty: emptySearch,
	}, compute)
}

// BatchSearchParams are the arguments of batch_search.
type BatchSearchParams struct {
	Queries []string `json:"queries"`
	Kinds   string   `json:"kinds,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// BatchItem is the outcome of one query in a batch.
type BatchItem struct {
	Query    string          `json:"query" yaml:"query"`
	Response *SearchResponse `json:"response,omitempty" yaml:"response,omitempty"`
	Cached   bool            `json:"cached,omitempty" yaml:"cached,omitempty"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchResponse is the payload of batch_search.
type BatchResponse struct {
	Results   []BatchItem `json:"results" yaml:"results"`
	Succeeded int         `json:"succeeded" yaml:"succeeded"`
	Failed    int         `json:"failed" yaml:"failed"`
}

type batchOutcome struct {
	resp *SearchResponse
	hit  cache.Hit
}

// BatchSearch runs several searches concurrently. A failing query only
// marks its own item.
func (s *Service) BatchSearch(ctx context.Context, p BatchSearchParams) (res *Result) {
	started := time.Now()
	defer s.finish(ToolBatchSearch, started, &res)

	if len(p.Queries) == 0 {
		return s.invalid(ToolBatchSearch, "queries is required")
	}
	kinds, err := symbols.ParseKinds(p.Kinds)
	if err != nil {
		return s.failure(ToolBatchSearch, errors.Newf(errors.InvalidArgument, "invalid kinds filter: %v", err))
	}
	limit := s.engine.ClampLimit(p.Limit)

	queries := p.Queries
	b := envelope.New(ToolBatchSearch)
	if len(queries) > maxBatchQueries {
		b.WithTruncation(true, maxBatchQueries, len(queries), "max-batch")
		queries = queries[:maxBatchQueries]
	}

	results := search.Batch(ctx, queries, s.engine.BatchConcurrency(), func(ctx context.Context, q string) (batchOutcome, error) {
		q = strings.TrimSpace(q)
		if q == "" {
			return batchOutcome{}, errors.Newf(errors.InvalidArgument, "empty query")
		}
		resp, hit, err := s.search(ctx, q, kinds, limit)
		return batchOutcome{resp: resp, hit: hit}, err
	})

	out := &BatchResponse{Results: make([]BatchItem, len(results))}
	for i, r := range results {
		item := BatchItem{Query: queries[i]}
		if r.Err != nil {
			item.Error = r.Err.Error()
			out.Failed++
		} else {
			item.Response = r.Value.resp
			item.Cached = r.Value.hit.Cached
			out.Succeeded++
		}
		out.Results[i] = item
	}
	if out.Failed > 0 {
		b.Warning(fmt.Sprintf("%d of %d queries failed", out.Failed, len(results)))
	}
	return s.respond(ctx, b.Data(out), cache.Hit{}, started, renderBatch(out))
}
