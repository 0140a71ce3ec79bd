package tools

import (
	"context"
	"strings"
	"time"

	"xppkb/internal/cache"
	"xppkb/internal/envelope"
	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/patterns"
)

// AnalyzePatternsParams are the arguments of analyze_patterns.
type AnalyzePatternsParams struct {
	Scenario    string `json:"scenario"`
	ClassFilter string `json:"classFilter,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// AnalyzePatterns summarizes the classes relevant to a scenario.
func (s *Service) AnalyzePatterns(ctx context.Context, p AnalyzePatternsParams) (res *Result) {
	started := time.Now()
	defer s.finish(ToolAnalyzePatterns, started, &res)

	scenario := strings.TrimSpace(p.Scenario)
	if scenario == "" {
		return s.invalid(ToolAnalyzePatterns, "scenario is required")
	}
	classFilter := strings.TrimSpace(p.ClassFilter)
	limit := s.analysisLimit(p.Limit)

	key := cache.NewKey(ToolAnalyzePatterns, classFilter, limit, scenario)
	analysis, hit, err := cache.WithCache(ctx, s.cache, key, cache.Policy[*patterns.PatternAnalysis]{
		Tier:  cache.Medium,
		Empty: func(a *patterns.PatternAnalysis) bool { return a.TotalMatched == 0 },
	}, func(ctx context.Context) (*patterns.PatternAnalysis, error) {
		return s.analyzer.AnalyzePatterns(ctx, scenario, classFilter, limit)
	})
	if err != nil {
		return s.failure(ToolAnalyzePatterns, err)
	}

	b := envelope.New(ToolAnalyzePatterns).Data(analysis)
	if analysis.TotalMatched == 0 {
		b.Suggest(ToolSearch, map[string]any{"query": scenario}, "look for classes by name instead")
	}
	return s.respond(ctx, b, hit, started, renderAnalysis(analysis))
}

// SuggestMissingMethodsParams are the arguments of suggest_missing_methods.
type SuggestMissingMethodsParams struct {
	ClassName string `json:"className"`
	Limit     int    `json:"limit,omitempty"`
}

// MissingMethodsResponse is the payload of suggest_missing_methods.
type MissingMethodsResponse struct {
	patterns.MissingMethodsReport `yaml:",inline"`
	Alternatives                  []fuzzy.Suggestion `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// SuggestMissingMethods lists the methods peers of a class usually declare
// but the class does not.
func (s *Service) SuggestMissingMethods(ctx context.Context, p SuggestMissingMethodsParams) (res *Result) {
	started := time.Now()
	defer s.finish(ToolSuggestMissingMethods, started, &res)

	className := strings.TrimSpace(p.ClassName)
	if className == "" {
		return s.invalid(ToolSuggestMissingMethods, "className is required")
	}
	limit := s.analysisLimit(p.Limit)

	key := cache.NewKey(ToolSuggestMissingMethods, className, limit, "")
	resp, hit, err := cache.WithCache(ctx, s.cache, key, cache.Policy[*MissingMethodsResponse]{
		Tier:  cache.Medium,
		Empty: func(r *MissingMethodsResponse) bool { return !r.Found },
	}, func(ctx context.Context) (*MissingMethodsResponse, error) {
		report, err := s.analyzer.SuggestMissingMethods(ctx, className, limit)
		if err != nil {
			return nil, err
		}
		resp := &MissingMethodsResponse{MissingMethodsReport: *report}
		if !report.Found {
			resp.Alternatives = s.suggest(ctx, className)
		}
		return resp, nil
	})
	if err != nil {
		return s.failure(ToolSuggestMissingMethods, err)
	}

	b := envelope.New(ToolSuggestMissingMethods).Data(resp)
	if !resp.Found {
		b.WarningWithCode(errors.SymbolNotFound, "no class named "+className)
		suggestCalls(b, ToolSuggestMissingMethods, "className", resp.Alternatives)
	}
	return s.respond(ctx, b, hit, started, renderMissing(resp))
}

// FindSimilarMethodsParams are the arguments of find_similar_methods.
type FindSimilarMethodsParams struct {
	MethodName string `json:"methodName"`
	ClassName  string `json:"className,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// SimilarMethodsResponse is the payload of find_similar_methods.
type SimilarMethodsResponse struct {
	MethodName string                   `json:"methodName" yaml:"methodName"`
	ClassName  string                   `json:"className,omitempty" yaml:"className,omitempty"`
	Methods    []patterns.SimilarMethod `json:"methods" yaml:"methods"`
}

// FindSimilarMethods ranks methods resembling methodName, favoring those in
// classes like className.
func (s *Service) FindSimilarMethods(ctx context.Context, p FindSimilarMethodsParams) (res *Result) {
	started := time.Now()
	defer s.finish(ToolFindSimilarMethods, started, &res)

	methodName := strings.TrimSpace(p.MethodName)
	if methodName == "" {
		return s.invalid(ToolFindSimilarMethods, "methodName is required")
	}
	className := strings.TrimSpace(p.ClassName)
	limit := s.analysisLimit(p.Limit)

	key := cache.NewKey(ToolFindSimilarMethods, className, limit, methodName)
	resp, hit, err := cache.WithCache(ctx, s.cache, key, cache.Policy[*SimilarMethodsResponse]{
		Tier:  cache.Medium,
		Empty: func(r *SimilarMethodsResponse) bool { return len(r.Methods) == 0 },
	}, func(ctx context.Context) (*SimilarMethodsResponse, error) {
		methods, err := s.analyzer.FindSimilarMethods(ctx, methodName, className, limit)
		if err != nil {
			return nil, err
		}
		if methods == nil {
			methods = []patterns.SimilarMethod{}
		}
		return &SimilarMethodsResponse{MethodName: methodName, ClassName: className, Methods: methods}, nil
	})
	if err != nil {
		return s.failure(ToolFindSimilarMethods, err)
	}

	b := envelope.New(ToolFindSimilarMethods).Data(resp)
	if len(resp.Methods) == 0 {
		b.Suggest(ToolSearch, map[string]any{"query": methodName, "kinds": "method"}, "search methods by name")
	}
	return s.respond(ctx, b, hit, started, renderSimilar(resp))
}

// APIUsagePatternsParams are the arguments of api_usage_patterns.
type APIUsagePatternsParams struct {
	APIName string `json:"apiName"`
	Limit   int    `json:"limit,omitempty"`
}

// APIUsagePatterns reports how an API is typically initialized and called.
func (s *Service) APIUsagePatterns(ctx context.Context, p APIUsagePatternsParams) (res *Result) {
	started := time.Now()
	defer s.finish(ToolAPIUsagePatterns, started, &res)

	apiName := strings.TrimSpace(p.APIName)
	if apiName == "" {
		return s.invalid(ToolAPIUsagePatterns, "apiName is required")
	}
	limit := s.analysisLimit(p.Limit)

	key := cache.NewKey(ToolAPIUsagePatterns, apiName, limit, "")
	report, hit, err := cache.WithCache(ctx, s.cache, key, cache.Policy[*patterns.APIUsageReport]{
		Tier:  cache.Medium,
		Empty: func(r *patterns.APIUsageReport) bool { return !r.Found },
	}, func(ctx context.Context) (*patterns.APIUsageReport, error) {
		return s.analyzer.GetAPIUsagePatterns(ctx, apiName, limit)
	})
	if err != nil {
		return s.failure(ToolAPIUsagePatterns, err)
	}

	b := envelope.New(ToolAPIUsagePatterns).Data(report)
	if !report.Found {
		b.WarningWithCode(errors.SymbolNotFound, "no usage of "+apiName+" is indexed")
		b.Suggest(ToolSearch, map[string]any{"query": apiName}, "check the API name")
	}
	return s.respond(ctx, b, hit, started, renderAPIUsage(report))
}
