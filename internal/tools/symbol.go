package tools

import (
	"context"
	"strings"
	"time"

	"xppkb/internal/cache"
	"xppkb/internal/envelope"
	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/symbols"
)

// GetSymbolParams are the arguments of get_symbol.
type GetSymbolParams struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

// SymbolResponse is the payload of get_symbol. Names are not unique, so
// every match is returned, first inserted first; Members belong to the
// first top-level match.
type SymbolResponse struct {
	Name        string             `json:"name" yaml:"name"`
	Found       bool               `json:"found" yaml:"found"`
	Symbols     []symbols.Symbol   `json:"symbols" yaml:"symbols"`
	Members     []symbols.Symbol   `json:"members,omitempty" yaml:"members,omitempty"`
	Suggestions []fuzzy.Suggestion `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// GetSymbol looks a symbol up by exact name, with the members of a class
// or table. An unknown name is a not-found answer, not an error.
func (s *Service) GetSymbol(ctx context.Context, p GetSymbolParams) (res *Result) {
	started := time.Now()
	defer s.finish(ToolGetSymbol, started, &res)

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return s.invalid(ToolGetSymbol, "name is required")
	}
	var kind symbols.Kind
	if strings.TrimSpace(p.Kind) != "" {
		k, err := symbols.ParseKind(p.Kind)
		if err != nil {
			return s.failure(ToolGetSymbol, errors.Newf(errors.InvalidArgument, "invalid kind: %v", err))
		}
		kind = k
	}

	// The name goes in the filter segment, which keeps underscores.
	key := cache.NewKey(ToolGetSymbol, name, 0, string(kind))
	resp, hit, err := cache.WithCache(ctx, s.cache, key, cache.Policy[*SymbolResponse]{
		Tier:  cache.Long,
		Empty: func(r *SymbolResponse) bool { return !r.Found },
	}, func(ctx context.Context) (*SymbolResponse, error) {
		return s.getSymbol(ctx, name, kind)
	})
	if err != nil {
		return s.failure(ToolGetSymbol, err)
	}

	b := envelope.New(ToolGetSymbol).Data(resp)
	if !resp.Found {
		b.WarningWithCode(errors.SymbolNotFound, "no symbol named "+name)
		suggestCalls(b, ToolGetSymbol, "name", resp.Suggestions)
		b.Suggest(ToolSearch, map[string]any{"query": name}, "search by partial name")
	}
	return s.respond(ctx, b, hit, started, renderSymbol(resp))
}

func (s *Service) getSymbol(ctx context.Context, name string, kind symbols.Kind) (*SymbolResponse, error) {
	found, err := s.engine.SearchExact(ctx, name, kind)
	if err != nil {
		return nil, err
	}
	resp := &SymbolResponse{Name: name, Found: len(found) > 0, Symbols: found}
	if resp.Symbols == nil {
		resp.Symbols = []symbols.Symbol{}
	}
	if !resp.Found {
		resp.Suggestions = s.suggest(ctx, name)
		return resp, nil
	}

	for _, sym := range found {
		childKind, ok := sym.Kind.ChildKind()
		if !ok {
			continue
		}
		resp.Members, err = s.store.GetChildren(ctx, sym.Name, childKind)
		if err != nil {
			return nil, err
		}
		break
	}
	return resp, nil
}

// CompletionsParams are the arguments of completions.
type CompletionsParams struct {
	ClassName string `json:"className"`
	Prefix    string `json:"prefix,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// CompletionsResponse is the payload of completions.
type CompletionsResponse struct {
	ClassName   string             `json:"className" yaml:"className"`
	Prefix      string             `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Found       bool               `json:"found" yaml:"found"`
	ParentKind  symbols.Kind       `json:"parentKind,omitempty" yaml:"parentKind,omitempty"`
	Members     []symbols.Symbol   `json:"members" yaml:"members"`
	Suggestions []fuzzy.Suggestion `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// Completions lists the methods of a class or the fields of a table that
// start with prefix.
func (s *Service) Completions(ctx context.Context, p CompletionsParams) (res *Result) {
	started := time.Now()
	defer s.finish(ToolCompletions, started, &res)

	className := strings.TrimSpace(p.ClassName)
	if className == "" {
		return s.invalid(ToolCompletions, "className is required")
	}
	prefix := strings.TrimSpace(p.Prefix)
	limit := s.engine.ClampLimit(p.Limit)

	key := cache.NewKey(ToolCompletions, className, limit, prefix)
	resp, hit, err := cache.WithCache(ctx, s.cache, key, cache.Policy[*CompletionsResponse]{
		Tier:  cache.Long,
		Empty: func(r *CompletionsResponse) bool { return !r.Found },
	}, func(ctx context.Context) (*CompletionsResponse, error) {
		parent, members, err := s.engine.Completions(ctx, className, prefix, limit)
		if err != nil {
			return nil, err
		}
		resp := &CompletionsResponse{ClassName: className, Prefix: prefix, Members: members}
		if resp.Members == nil {
			resp.Members = []symbols.Symbol{}
		}
		if parent == nil {
			resp.Suggestions = s.suggest(ctx, className)
			return resp, nil
		}
		resp.Found = true
		resp.ParentKind = parent.Kind
		return resp, nil
	})
	if err != nil {
		return s.failure(ToolCompletions, err)
	}

	b := envelope.New(ToolCompletions).Data(resp)
	if !resp.Found {
		b.WarningWithCode(errors.SymbolNotFound, "no class or table named "+className)
		suggestCalls(b, ToolCompletions, "className", resp.Suggestions)
	} else if len(resp.Members) == limit {
		b.WithTruncation(true, limit, 0, "limit")
	}
	return s.respond(ctx, b, hit, started, renderCompletions(resp))
}
