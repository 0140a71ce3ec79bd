package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"xppkb/internal/config"
)

// ModelsDeclarationFile is the default filename for model declarations
const ModelsDeclarationFile = "MODELS.toml"

// ModelDeclaration represents a declared model in MODELS.toml
type ModelDeclaration struct {
	// Name is the model name (required)
	Name string `toml:"name"`

	// Layer is "standard" or "custom"; empty means custom
	Layer string `toml:"layer,omitempty"`

	// Path is the model directory relative to the metadata root (defaults to Name)
	Path string `toml:"path,omitempty"`

	// Description is a one-line summary of the model
	Description string `toml:"description,omitempty"`

	// Skip excludes a model listed in the config from indexing
	Skip bool `toml:"skip,omitempty"`
}

// ModelsFile represents the root structure of MODELS.toml
type ModelsFile struct {
	// Version is the schema version
	Version int `toml:"version"`

	// Models is the list of declared models
	Models []ModelDeclaration `toml:"model"`
}

// ParseModelsFile parses a MODELS.toml file from the given path
func ParseModelsFile(filePath string) (*ModelsFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(filePath), err)
	}

	var modelsFile ModelsFile
	if err := toml.Unmarshal(data, &modelsFile); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(filePath), err)
	}

	if modelsFile.Version < 1 {
		modelsFile.Version = 1
	}

	for i, decl := range modelsFile.Models {
		if strings.TrimSpace(decl.Name) == "" {
			return nil, fmt.Errorf("model declaration %d missing required 'name' field", i+1)
		}
		if _, ok := ParseLayer(decl.Layer); !ok {
			return nil, fmt.Errorf("model %s: layer must be \"standard\" or \"custom\", got %q", decl.Name, decl.Layer)
		}
	}

	return &modelsFile, nil
}

// LoadDeclaredModels loads MODELS.toml from the metadata root if it exists.
// Returns nil without error when there is no declaration file.
func LoadDeclaredModels(root string, declarationFile string) ([]ModelDeclaration, error) {
	if declarationFile == "" {
		declarationFile = ModelsDeclarationFile
	}

	filePath := declarationFile
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(root, declarationFile)
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	}

	modelsFile, err := ParseModelsFile(filePath)
	if err != nil {
		return nil, err
	}
	return modelsFile.Models, nil
}

// Resolve merges the configured model lists with the declaration file.
// Config models come first (standard, then custom); a declaration for a
// configured model overrides its layer and path, and declared models the
// config does not name are appended in file order.
func Resolve(cfg *config.Config) ([]Model, error) {
	decls, err := LoadDeclaredModels(cfg.Metadata.Root, cfg.Metadata.DeclarationFile)
	if err != nil {
		return nil, err
	}
	return merge(cfg, decls), nil
}

func merge(cfg *config.Config, decls []ModelDeclaration) []Model {
	var models []Model
	index := make(map[string]int)

	add := func(name string, layer Layer) {
		key := strings.ToLower(name)
		if _, ok := index[key]; ok || strings.TrimSpace(name) == "" {
			return
		}
		index[key] = len(models)
		models = append(models, Model{Name: name, Layer: layer, Path: name})
	}
	for _, name := range cfg.Metadata.StandardModels {
		add(name, LayerStandard)
	}
	for _, name := range cfg.Metadata.CustomModels {
		add(name, LayerCustom)
	}

	skipped := make(map[string]bool)
	for _, decl := range decls {
		key := strings.ToLower(decl.Name)
		if decl.Skip {
			skipped[key] = true
			continue
		}
		layer, _ := ParseLayer(decl.Layer)
		i, ok := index[key]
		if !ok {
			add(decl.Name, layer)
			i = index[key]
		}
		m := &models[i]
		m.Layer = layer
		m.Declared = true
		m.Description = decl.Description
		if decl.Path != "" {
			m.Path = filepath.ToSlash(decl.Path)
		}
	}

	if len(skipped) == 0 {
		return models
	}
	kept := models[:0]
	for _, m := range models {
		if !skipped[strings.ToLower(m.Name)] {
			kept = append(kept, m)
		}
	}
	return kept
}

// WriteModelsFile writes a ModelsFile to the given path
func WriteModelsFile(filePath string, modelsFile *ModelsFile) error {
	data, err := toml.Marshal(modelsFile)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(filePath), err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filePath), err)
	}

	return nil
}

// CreateExampleModelsFile writes a MODELS.toml declaring the given custom
// models, or a placeholder when there are none.
func CreateExampleModelsFile(filePath string, custom []string) error {
	example := &ModelsFile{Version: 1}
	for _, name := range custom {
		example.Models = append(example.Models, ModelDeclaration{
			Name:  name,
			Layer: string(LayerCustom),
		})
	}
	if len(example.Models) == 0 {
		example.Models = []ModelDeclaration{{
			Name:        "ContosoExtensions",
			Layer:       string(LayerCustom),
			Description: "Customer extensions",
		}}
	}
	return WriteModelsFile(filePath, example)
}
