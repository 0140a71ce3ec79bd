package modules

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"xppkb/internal/config"
)

func writeModelsFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ModelsDeclarationFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write MODELS.toml: %v", err)
	}
	return path
}

func TestParseModelsFile(t *testing.T) {
	path := writeModelsFile(t, t.TempDir(), `
version = 1

[[model]]
name = "ContosoExtensions"
layer = "custom"
path = "Contoso/ContosoExtensions"
description = "Sales customizations"

[[model]]
name = "ApplicationSuite"
layer = "Standard"
`)

	modelsFile, err := ParseModelsFile(path)
	if err != nil {
		t.Fatalf("Failed to parse MODELS.toml: %v", err)
	}
	if modelsFile.Version != 1 {
		t.Errorf("Expected version 1, got %d", modelsFile.Version)
	}
	if len(modelsFile.Models) != 2 {
		t.Fatalf("Expected 2 models, got %d", len(modelsFile.Models))
	}

	contoso := modelsFile.Models[0]
	if contoso.Name != "ContosoExtensions" || contoso.Path != "Contoso/ContosoExtensions" {
		t.Errorf("Unexpected first model: %+v", contoso)
	}
	if contoso.Description != "Sales customizations" {
		t.Errorf("Expected description, got '%s'", contoso.Description)
	}
}

func TestParseModelsFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing name", "[[model]]\nlayer = \"custom\"\n", "name"},
		{"bad layer", "[[model]]\nname = \"X\"\nlayer = \"vendor\"\n", "layer"},
		{"bad toml", "[[model]\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeModelsFile(t, t.TempDir(), tt.content)
			_, err := ParseModelsFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseModelsFile() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseModelsFileDefaultVersion(t *testing.T) {
	path := writeModelsFile(t, t.TempDir(), "[[model]]\nname = \"X\"\n")
	modelsFile, err := ParseModelsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if modelsFile.Version != 1 {
		t.Errorf("Expected default version 1, got %d", modelsFile.Version)
	}
}

func TestLoadDeclaredModelsMissingFile(t *testing.T) {
	decls, err := LoadDeclaredModels(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if decls != nil {
		t.Errorf("Expected nil declarations, got %v", decls)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeModelsFile(t, root, `
[[model]]
name = "contosoext"
path = "Contoso/ContosoExt"
description = "declared path"

[[model]]
name = "FleetManagement"
layer = "standard"

[[model]]
name = "ApplicationFoundation"
skip = true
`)

	cfg := config.DefaultConfig()
	cfg.Metadata.Root = root
	cfg.Metadata.CustomModels = []string{"ContosoExt"}

	models, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	want := []string{"ApplicationSuite", "ApplicationPlatform", "ContosoExt", "FleetManagement"}
	if got := Names(models); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}

	contoso := models[2]
	if !contoso.IsCustom() || !contoso.Declared || contoso.Path != "Contoso/ContosoExt" {
		t.Errorf("ContosoExt = %+v", contoso)
	}
	if got := contoso.Dir(root); got != filepath.Join(root, "Contoso", "ContosoExt") {
		t.Errorf("Dir = %s", got)
	}

	fleet := models[3]
	if fleet.IsCustom() || fleet.Path != "FleetManagement" {
		t.Errorf("FleetManagement = %+v", fleet)
	}
	if models[0].Declared || models[0].Layer != LayerStandard {
		t.Errorf("ApplicationSuite = %+v", models[0])
	}
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		in   string
		want Layer
		ok   bool
	}{
		{"", LayerCustom, true},
		{"custom", LayerCustom, true},
		{" STANDARD ", LayerStandard, true},
		{"isv", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLayer(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLayer(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWriteAndCreateExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ModelsDeclarationFile)
	if err := CreateExampleModelsFile(path, []string{"ContosoExt"}); err != nil {
		t.Fatalf("CreateExampleModelsFile() error: %v", err)
	}

	modelsFile, err := ParseModelsFile(path)
	if err != nil {
		t.Fatalf("written file does not parse: %v", err)
	}
	if len(modelsFile.Models) != 1 || modelsFile.Models[0].Name != "ContosoExt" || modelsFile.Models[0].Layer != "custom" {
		t.Errorf("Unexpected models: %+v", modelsFile.Models)
	}
}
