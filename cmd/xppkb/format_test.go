package main

import (
	"strings"
	"testing"
	"time"

	"xppkb/internal/envelope"
	"xppkb/internal/index"
	"xppkb/internal/modules"
	"xppkb/internal/storage"
	"xppkb/internal/tools"
)

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, `"key": "value"`) {
		t.Error("JSON output missing expected key")
	}
	if !strings.Contains(result, `"num": 42`) {
		t.Error("JSON output missing expected number")
	}
}

func TestFormatResponse_YAML(t *testing.T) {
	resp := &statsReport{
		Store: &storage.Stats{Total: 3, ByKind: map[string]int{"class": 3}},
		Cache: "none",
	}

	result, err := FormatResponse(resp, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"total: 3", "byKind:", "class: 3", "cache: none"} {
		if !strings.Contains(result, want) {
			t.Errorf("YAML output %q missing %q", result, want)
		}
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(map[string]string{"key": "value"}, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatResult(t *testing.T) {
	res := &tools.Result{
		Content:  "CustTable [table] in ApplicationSuite\n",
		Response: envelope.New(tools.ToolGetSymbol).Data(map[string]string{"name": "CustTable"}).Build(),
	}

	human, err := FormatResult(res, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if human != "CustTable [table] in ApplicationSuite" {
		t.Errorf("human = %q", human)
	}

	js, err := FormatResult(res, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"tool": "get_symbol"`, `"name": "CustTable"`} {
		if !strings.Contains(js, want) {
			t.Errorf("JSON %q missing %q", js, want)
		}
	}
}

func TestFormatIndexHuman(t *testing.T) {
	out, err := FormatResponse(&index.Result{
		RunID:         "run-1",
		Models:        []string{"ApplicationSuite", "ContosoExtensions"},
		Files:         12,
		Symbols:       140,
		ParseFailures: 1,
		Failures:      []index.FileFailure{{Path: "AxClass/Broken.xml", Error: "unexpected EOF"}},
		Duration:      1500 * time.Millisecond,
	}, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"Indexed 140 symbols from 12 files in 1.5s",
		"Models: ApplicationSuite, ContosoExtensions",
		"1 file(s) could not be parsed",
		"AxClass/Broken.xml: unexpected EOF",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestFormatStatsHuman(t *testing.T) {
	tests := []struct {
		name        string
		freshness   index.FreshnessResult
		searchIndex string
		want        []string
	}{
		{
			name:      "never indexed",
			freshness: index.FreshnessResult{Reason: "no index run recorded"},
			want:      []string{"never indexed", "stale (no index run recorded)"},
		},
		{
			name:        "fresh",
			freshness:   index.FreshnessResult{Fresh: true, LastRunID: "run-7", Age: "5m"},
			searchIndex: "rebuilt",
			want:        []string{"Last run: run-7 (5m ago)", "Status:   fresh", "Search:   rebuilt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatStatsHuman(&statsReport{
				Store: &storage.Stats{
					Total:   2,
					ByKind:  map[string]int{"table": 1, "class": 1},
					ByModel: map[string]int{"ApplicationSuite": 2},
				},
				Freshness:   tt.freshness,
				SearchIndex: tt.searchIndex,
				Cache:       "local",
			})
			want := append([]string{"Symbols: 2", "By kind:", "Cache: local"}, tt.want...)
			for _, w := range want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			if strings.Index(out, "class") > strings.Index(out, "table") {
				t.Errorf("kinds not sorted: %q", out)
			}
		})
	}
}

func TestSelectModels(t *testing.T) {
	models := []modules.Model{
		{Name: "ApplicationSuite", Layer: modules.LayerStandard},
		{Name: "ContosoExtensions", Layer: modules.LayerCustom},
		{Name: "ContosoReports", Layer: modules.LayerCustom},
	}

	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr string
	}{
		{name: "all when empty", names: nil, want: []string{"ApplicationSuite", "ContosoExtensions", "ContosoReports"}},
		{name: "keeps resolved order", names: []string{"contosoreports", "ApplicationSuite"}, want: []string{"ApplicationSuite", "ContosoReports"}},
		{name: "unknown model", names: []string{"Fleet", "ContosoReports", "Alpha"}, wantErr: "unknown model(s): alpha, fleet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectModels(models, tt.names)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if names := modules.Names(got); strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", names, tt.want)
			}
		})
	}
}
