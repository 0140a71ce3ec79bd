package tools

import (
	"context"
	"encoding/json"

	"xppkb/internal/errors"
)

// Call runs the named tool with loosely typed arguments, as they arrive
// from a transport. Unknown tools and undecodable arguments are reported
// as invalid-argument results.
func (s *Service) Call(ctx context.Context, tool string, args map[string]any) *Result {
	switch tool {
	case ToolSearch:
		return call(ctx, s, tool, args, s.Search)
	case ToolGetSymbol:
		return call(ctx, s, tool, args, s.GetSymbol)
	case ToolCompletions:
		return call(ctx, s, tool, args, s.Completions)
	case ToolAnalyzePatterns:
		return call(ctx, s, tool, args, s.AnalyzePatterns)
	case ToolSuggestMissingMethods:
		return call(ctx, s, tool, args, s.SuggestMissingMethods)
	case ToolFindSimilarMethods:
		return call(ctx, s, tool, args, s.FindSimilarMethods)
	case ToolAPIUsagePatterns:
		return call(ctx, s, tool, args, s.APIUsagePatterns)
	case ToolBatchSearch:
		return call(ctx, s, tool, args, s.BatchSearch)
	}
	return s.invalid(tool, "unknown tool %q", tool)
}

func call[P any](ctx context.Context, s *Service, tool string, args map[string]any, op func(context.Context, P) *Result) *Result {
	var p P
	if len(args) > 0 {
		raw, err := json.Marshal(args)
		if err != nil {
			return s.failure(tool, errors.New(errors.InvalidArgument, "arguments are not encodable", err))
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return s.failure(tool, errors.Newf(errors.InvalidArgument, "malformed arguments: %v", err))
		}
	}
	return op(ctx, p)
}
