package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"xppkb/internal/tools"
)

func limitOption() mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum number of results (default 20 for searches, 10 for analyses)"),
	)
}

func kindsOption() mcp.ToolOption {
	return mcp.WithString("kinds",
		mcp.Description("Comma-separated kinds to keep: class, table, method, field, enum"),
	)
}

// toolDefinitions describes every tool in tools.Names order.
func toolDefinitions() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(tools.ToolSearch,
			mcp.WithDescription("Search classes, tables, methods, fields, and enums by name. Returns alternative spellings when nothing matches."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Name or part of a name (e.g. 'CustTable', 'SalesLine')"),
			),
			kindsOption(),
			limitOption(),
		),
		mcp.NewTool(tools.ToolGetSymbol,
			mcp.WithDescription("Get a symbol by exact name, with the methods of a class or the fields of a table."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Exact symbol name (case-insensitive)"),
			),
			mcp.WithString("kind",
				mcp.Description("Restrict to one kind: class, table, method, field, enum"),
			),
		),
		mcp.NewTool(tools.ToolCompletions,
			mcp.WithDescription("List the methods of a class or the fields of a table that start with a prefix."),
			mcp.WithString("className",
				mcp.Required(),
				mcp.Description("Class or table name"),
			),
			mcp.WithString("prefix",
				mcp.Description("Member name prefix; empty lists every member"),
			),
			limitOption(),
		),
		mcp.NewTool(tools.ToolAnalyzePatterns,
			mcp.WithDescription("Summarize the classes relevant to a scenario: pattern types, common methods, and common dependencies."),
			mcp.WithString("scenario",
				mcp.Required(),
				mcp.Description("What is being built (e.g. 'sales order posting')"),
			),
			mcp.WithString("classFilter",
				mcp.Description("Keep only classes whose name contains this text or whose pattern type equals it"),
			),
			limitOption(),
		),
		mcp.NewTool(tools.ToolSuggestMissingMethods,
			mcp.WithDescription("List methods that classes of the same pattern type usually declare but this class does not."),
			mcp.WithString("className",
				mcp.Required(),
				mcp.Description("Class to check"),
			),
			limitOption(),
		),
		mcp.NewTool(tools.ToolFindSimilarMethods,
			mcp.WithDescription("Find methods resembling a method name, favoring classes similar to the given one."),
			mcp.WithString("methodName",
				mcp.Required(),
				mcp.Description("Method name to compare against"),
			),
			mcp.WithString("className",
				mcp.Description("Class the method belongs to or will belong to"),
			),
			limitOption(),
		),
		mcp.NewTool(tools.ToolAPIUsagePatterns,
			mcp.WithDescription("Show how an API (class or table) is typically initialized and called across the codebase."),
			mcp.WithString("apiName",
				mcp.Required(),
				mcp.Description("API class or table name (e.g. 'DimensionAttributeValueSet')"),
			),
			limitOption(),
		),
		mcp.NewTool(tools.ToolBatchSearch,
			mcp.WithDescription("Run several searches at once. Each query succeeds or fails on its own."),
			mcp.WithArray("queries",
				mcp.Required(),
				mcp.Description("Search queries (at most 20)"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			kindsOption(),
			limitOption(),
		),
	}
}
