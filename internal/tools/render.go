package tools

import (
	"fmt"
	"strings"

	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/patterns"
	"xppkb/internal/symbols"
)

func renderFixes(b *strings.Builder, fixes []errors.FixAction) {
	if len(fixes) == 0 {
		return
	}
	b.WriteString("\nNext steps:\n")
	for _, f := range fixes {
		switch f.Type {
		case errors.RunCommand:
			fmt.Fprintf(b, "  - run `%s`: %s\n", f.Command, f.Description)
		case errors.CallTool:
			fmt.Fprintf(b, "  - call %s: %s\n", f.Tool, f.Description)
		default:
			fmt.Fprintf(b, "  - %s\n", f.Description)
		}
	}
}

func renderSuggestions(b *strings.Builder, suggestions []fuzzy.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	b.WriteString("\nDid you mean:\n")
	for _, s := range suggestions {
		fmt.Fprintf(b, "  - %s (%s, %.0f%%)\n", s.Query, s.Kind, s.Confidence*100)
	}
}

func symbolLine(s *symbols.Symbol) string {
	line := fmt.Sprintf("%s [%s]", s.QualifiedName(), s.Kind)
	if s.Model != "" {
		line += " in " + s.Model
	}
	return line
}

func renderSearch(r *SearchResponse) string {
	var b strings.Builder
	if len(r.Matches) == 0 {
		fmt.Fprintf(&b, "No symbols match %q.\n", r.Query)
		renderSuggestions(&b, r.Suggestions)
		return b.String()
	}
	fmt.Fprintf(&b, "%d symbol(s) for %q:\n", len(r.Matches), r.Query)
	for i := range r.Matches {
		m := &r.Matches[i]
		fmt.Fprintf(&b, "  %2d. %s  score %.2f (%s)\n", i+1, symbolLine(&m.Symbol), m.Score, m.Source)
		if m.Signature != "" {
			fmt.Fprintf(&b, "      %s\n", m.Signature)
		}
	}
	return b.String()
}

func renderBatch(r *BatchResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch of %d queries: %d succeeded, %d failed.\n", len(r.Results), r.Succeeded, r.Failed)
	for _, item := range r.Results {
		b.WriteString("\n")
		if item.Error != "" {
			fmt.Fprintf(&b, "%q failed: %s\n", item.Query, item.Error)
			continue
		}
		b.WriteString(renderSearch(item.Response))
	}
	return b.String()
}

func renderSymbol(r *SymbolResponse) string {
	var b strings.Builder
	if !r.Found {
		fmt.Fprintf(&b, "Symbol %q not found.\n", r.Name)
		renderSuggestions(&b, r.Suggestions)
		b.WriteString("\nTry the search tool with part of the name.\n")
		return b.String()
	}
	for i := range r.Symbols {
		s := &r.Symbols[i]
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(symbolLine(s) + "\n")
		if s.Signature != "" {
			fmt.Fprintf(&b, "  signature:  %s\n", s.Signature)
		}
		if s.Extends != "" {
			fmt.Fprintf(&b, "  extends:    %s\n", s.Extends)
		}
		if s.PatternType != "" {
			fmt.Fprintf(&b, "  pattern:    %s\n", s.PatternType)
		}
		if len(s.Tags) > 0 {
			fmt.Fprintf(&b, "  tags:       %s\n", strings.Join(s.Tags, ", "))
		}
		if s.SourceLocation != "" {
			fmt.Fprintf(&b, "  location:   %s\n", s.SourceLocation)
		}
		if s.Complexity > 0 {
			fmt.Fprintf(&b, "  complexity: %d\n", s.Complexity)
		}
	}
	if len(r.Members) > 0 {
		fmt.Fprintf(&b, "\nMembers (%d):\n", len(r.Members))
		for _, m := range r.Members {
			fmt.Fprintf(&b, "  - %s\n", memberLine(m))
		}
	}
	return b.String()
}

func memberLine(m symbols.Symbol) string {
	if m.Signature != "" {
		return m.Signature
	}
	return m.Name
}

func renderCompletions(r *CompletionsResponse) string {
	var b strings.Builder
	if !r.Found {
		fmt.Fprintf(&b, "No class or table named %q.\n", r.ClassName)
		renderSuggestions(&b, r.Suggestions)
		return b.String()
	}
	if len(r.Members) == 0 {
		fmt.Fprintf(&b, "%s has no members starting with %q.\n", r.ClassName, r.Prefix)
		return b.String()
	}
	fmt.Fprintf(&b, "Members of %s %s:\n", r.ParentKind, r.ClassName)
	for _, m := range r.Members {
		fmt.Fprintf(&b, "  - %s\n", memberLine(m))
	}
	return b.String()
}

func renderFrequencies(b *strings.Builder, title string, fs []patterns.Frequency) {
	if len(fs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, f := range fs {
		fmt.Fprintf(b, "  - %s (%d)\n", f.Name, f.Count)
	}
}

func renderAnalysis(a *patterns.PatternAnalysis) string {
	var b strings.Builder
	if a.TotalMatched == 0 {
		fmt.Fprintf(&b, "No classes match scenario %q.\n", a.Scenario)
		return b.String()
	}
	fmt.Fprintf(&b, "%d class(es) match scenario %q.\n", a.TotalMatched, a.Scenario)
	if len(a.PatternGroups) > 0 {
		b.WriteString("\nPattern types:\n")
		for _, g := range a.PatternGroups {
			fmt.Fprintf(&b, "  - %s (%d): %s\n", g.PatternType, g.Count, strings.Join(g.Examples, ", "))
		}
	}
	renderFrequencies(&b, "Common methods", a.CommonMethods)
	renderFrequencies(&b, "Common dependencies", a.CommonDependencies)
	if len(a.ExampleClasses) > 0 {
		fmt.Fprintf(&b, "\nExamples: %s\n", strings.Join(a.ExampleClasses, ", "))
	}
	return b.String()
}

func renderMissing(r *MissingMethodsResponse) string {
	var b strings.Builder
	if !r.Found {
		fmt.Fprintf(&b, "Class %q not found.\n", r.ClassName)
		renderSuggestions(&b, r.Alternatives)
		return b.String()
	}
	if len(r.Suggestions) == 0 {
		fmt.Fprintf(&b, "%s already has the methods its %d peer(s) share.\n", r.ClassName, r.PeerCount)
		return b.String()
	}
	fmt.Fprintf(&b, "Methods %s may be missing (compared with %d %s class(es)):\n", r.ClassName, r.PeerCount, r.PatternType)
	for _, m := range r.Suggestions {
		fmt.Fprintf(&b, "  - %s: %d/%d peers (%.0f%%)\n", m.Method, m.Frequency, m.Total, m.Percentage)
		if m.Signature != "" {
			fmt.Fprintf(&b, "      %s\n", m.Signature)
		}
	}
	return b.String()
}

func renderSimilar(r *SimilarMethodsResponse) string {
	var b strings.Builder
	if len(r.Methods) == 0 {
		fmt.Fprintf(&b, "No methods resemble %q.\n", r.MethodName)
		return b.String()
	}
	fmt.Fprintf(&b, "Methods similar to %s:\n", r.MethodName)
	for i, m := range r.Methods {
		fmt.Fprintf(&b, "  %2d. %s.%s  score %.2f, complexity %d\n", i+1, m.ClassName, m.Name, m.Score, m.Complexity)
		if m.Signature != "" {
			fmt.Fprintf(&b, "      %s\n", m.Signature)
		}
	}
	return b.String()
}

func renderSequences(b *strings.Builder, title string, groups []patterns.SequenceGroup) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, g := range groups {
		fmt.Fprintf(b, "  - used %d time(s) by %s\n", g.Count, strings.Join(g.Classes, ", "))
		for _, step := range g.Steps {
			fmt.Fprintf(b, "      %s\n", step)
		}
	}
}

func renderAPIUsage(r *patterns.APIUsageReport) string {
	var b strings.Builder
	if !r.Found {
		fmt.Fprintf(&b, "No indexed usage of %q.\n", r.API)
		return b.String()
	}
	fmt.Fprintf(&b, "%s is used %d time(s)", r.API, r.UsageCount)
	if len(r.UsedBy) > 0 {
		fmt.Fprintf(&b, " by %s", strings.Join(r.UsedBy, ", "))
	}
	b.WriteString(".\n")
	renderSequences(&b, "Initialization", r.Initializations)
	renderSequences(&b, "Call sequences", r.CallSequences)
	renderFrequencies(&b, "Common calls", r.CommonCalls)
	if len(r.Examples) > 0 {
		b.WriteString("\nExamples:\n")
		for _, ex := range r.Examples {
			fmt.Fprintf(&b, "  %s\n", ex)
		}
	}
	return b.String()
}
