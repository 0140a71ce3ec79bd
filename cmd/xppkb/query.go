package main

import (
	"context"
	"fmt"

	"xppkb/internal/tools"

	"github.com/spf13/cobra"
)

var (
	searchKinds string
	searchLimit int

	symbolKind string

	completionsLimit int

	patternsClassFilter string
	patternsLimit       int

	missingLimit int

	similarClass string
	similarLimit int

	apiUsageLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query> [query...]",
	Short: "Search for symbols",
	Long: `Search indexed and workspace symbols. Exact names rank first, then
full-text matches. A query without results lists spelling and
broader/narrower suggestions. Several queries run as one batch.

Examples:
  xppkb search CustTable
  xppkb search DimensionAttribute --kinds class,table
  xppkb search CustTable VendTable LedgerJournalTrans --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			return runTool(func(ctx context.Context, s *tools.Service) *tools.Result {
				return s.BatchSearch(ctx, tools.BatchSearchParams{Queries: args, Kinds: searchKinds, Limit: searchLimit})
			})
		}
		return runTool(func(ctx context.Context, s *tools.Service) *tools.Result {
			return s.Search(ctx, tools.SearchParams{Query: args[0], Kinds: searchKinds, Limit: searchLimit})
		})
	},
}

var symbolCmd = &cobra.Command{
	Use:   "symbol <name>",
	Short: "Show a symbol and its members",
	Long: `Looks a symbol up by name (case-insensitive). Classes list their methods,
tables their fields and methods.

Examples:
  xppkb symbol CustTable
  xppkb symbol NoYes --kind enum`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(func(ctx context.Context, s *tools.Service) *tools.Result {
			return s.GetSymbol(ctx, tools.GetSymbolParams{Name: args[0], Kind: symbolKind})
		})
	},
}

var completionsCmd = &cobra.Command{
	Use:   "completions <class> [prefix]",
	Short: "List members of a class or table",
	Long: `Lists the methods (and, for tables, fields) of a type whose names start
with prefix.

Examples:
  xppkb completions CustTable find
  xppkb completions SalesFormLetter --limit 50`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tools.CompletionsParams{ClassName: args[0], Limit: completionsLimit}
		if len(args) == 2 {
			p.Prefix = args[1]
		}
		return runTool(func(ctx context.Context, s *tools.Service) *tools.Result {
			return s.Completions(ctx, p)
		})
	},
}

var patternsCmd = &cobra.Command{
	Use:   "patterns <scenario>",
	Short: "Analyze the code patterns of a scenario",
	Long: `Finds classes related to a scenario and reports their dominant pattern
type, common methods and common dependencies.

Examples:
  xppkb patterns ledger
  xppkb patterns posting --class-filter Cust`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(func(ctx context.Context, s *tools.Service) *tools.Result {
			return s.AnalyzePatterns(ctx, tools.AnalyzePatternsParams{
				Scenario:    args[0],
				ClassFilter: patternsClassFilter,
				Limit:       patternsLimit,
			})
		})
	},
}

var missingMethodsCmd = &cobra.Command{
	Use:   "missing-methods <class>",
	Short: "Suggest methods that similar classes have",
	Long: `Compares a class with peers of the same pattern type and lists methods
most of them implement but this class lacks.

Examples:
  xppkb missing-methods ContosoCustHelper`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(func(ctx context.Context, s *tools.Service) *tools.Result {
			return s.SuggestMissingMethods(ctx, tools.SuggestMissingMethodsParams{ClassName: args[0], Limit: missingLimit})
		})
	},
}

var similarMethodsCmd = &cobra.Command{
	Use:   "similar-methods <method>",
	Short: "Find methods with a similar name",
	Long: `Finds methods whose names resemble the given one. With --class, methods
in classes of the same pattern type or with shared tags rank higher.

Examples:
  xppkb similar-methods validateWrite
  xppkb similar-methods post --class LedgerJournalCheckPost`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(func(ctx context.Context, s *tools.Service) *tools.Result {
			return s.FindSimilarMethods(ctx, tools.FindSimilarMethodsParams{
				MethodName: args[0],
				ClassName:  similarClass,
				Limit:      similarLimit,
			})
		})
	},
}

var apiUsageCmd = &cobra.Command{
	Use:   "api-usage <api>",
	Short: "Show how an API is typically used",
	Long: `Looks at the classes that reference an API and reports common
initialization steps, call sequences and error handling.

Examples:
  xppkb api-usage DimensionAttributeValueSetStorage`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(func(ctx context.Context, s *tools.Service) *tools.Result {
			return s.APIUsagePatterns(ctx, tools.APIUsagePatternsParams{APIName: args[0], Limit: apiUsageLimit})
		})
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchKinds, "kinds", "", "Filter by kinds (comma-separated: class,table,enum,method,field)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (default from config)")

	symbolCmd.Flags().StringVar(&symbolKind, "kind", "", "Only match this kind")

	completionsCmd.Flags().IntVar(&completionsLimit, "limit", 0, "Maximum number of members (default from config)")

	patternsCmd.Flags().StringVar(&patternsClassFilter, "class-filter", "", "Narrow to class names containing this, or to this pattern type")
	patternsCmd.Flags().IntVar(&patternsLimit, "limit", 0, "Maximum number of entries per section")

	missingMethodsCmd.Flags().IntVar(&missingLimit, "limit", 0, "Maximum number of suggestions")

	similarMethodsCmd.Flags().StringVar(&similarClass, "class", "", "Class whose pattern type and tags boost related methods")
	similarMethodsCmd.Flags().IntVar(&similarLimit, "limit", 0, "Maximum number of methods")

	apiUsageCmd.Flags().IntVar(&apiUsageLimit, "limit", 0, "Maximum number of entries per section")

	rootCmd.AddCommand(searchCmd, symbolCmd, completionsCmd, patternsCmd,
		missingMethodsCmd, similarMethodsCmd, apiUsageCmd)
}

// runTool opens the store, runs one tool operation and prints its result.
// A failed operation exits non-zero after its output is printed.
func runTool(op func(context.Context, *tools.Service) *tools.Result) error {
	ctx, cancel := newContext()
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := op(ctx, a.service)
	out, err := FormatResult(res, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Println(out)
	if res.IsError {
		return errReported
	}
	return nil
}
