package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"xppkb/internal/index"
	"xppkb/internal/storage"
	"xppkb/internal/tools"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
)

// statsReport is the output of the stats command.
type statsReport struct {
	Store       *storage.Stats        `json:"store" yaml:"store"`
	Freshness   index.FreshnessResult `json:"freshness" yaml:"freshness"`
	SearchIndex string                `json:"searchIndex,omitempty" yaml:"searchIndex,omitempty"`
	Cache       string                `json:"cache" yaml:"cache"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// FormatResult renders a tool result. Human output is the text the MCP
// client sees; json and yaml carry the full envelope.
func FormatResult(res *tools.Result, format OutputFormat) (string, error) {
	if format == FormatHuman {
		return strings.TrimRight(res.Content, "\n"), nil
	}
	return FormatResponse(res.Response, format)
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *index.Result:
		return formatIndexHuman(v), nil
	case *statsReport:
		return formatStatsHuman(v), nil
	case string:
		return v, nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatIndexHuman(r *index.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Indexed %d symbols from %d files in %s\n", r.Symbols, r.Files, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Run:    %s\n", r.RunID)
	fmt.Fprintf(&b, "Models: %s\n", strings.Join(r.Models, ", "))
	if r.ParseFailures > 0 {
		fmt.Fprintf(&b, "\n%d file(s) could not be parsed:\n", r.ParseFailures)
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  %s: %s\n", f.Path, f.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatsHuman(r *statsReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbols: %d\n", r.Store.Total)
	writeCounts(&b, "By kind", r.Store.ByKind)
	writeCounts(&b, "By model", r.Store.ByModel)

	b.WriteString("\nIndex:\n")
	if r.Freshness.LastRunID == "" {
		b.WriteString("  never indexed\n")
	} else {
		fmt.Fprintf(&b, "  Last run: %s (%s ago)\n", r.Freshness.LastRunID, r.Freshness.Age)
	}
	if r.Freshness.Fresh {
		b.WriteString("  Status:   fresh\n")
	} else {
		fmt.Fprintf(&b, "  Status:   stale (%s)\n", r.Freshness.Reason)
	}
	if r.SearchIndex != "" {
		fmt.Fprintf(&b, "  Search:   %s\n", r.SearchIndex)
	}
	fmt.Fprintf(&b, "\nCache: %s", r.Cache)
	return b.String()
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "  %-28s %d\n", k, counts[k])
	}
}
