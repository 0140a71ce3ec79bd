// Package modules resolves which AOT models are indexed and whether each
// one is vendor (standard) or customer (custom) code.
package modules

import (
	"path/filepath"
	"strings"
)

// Layer separates vendor models from customer models.
type Layer string

const (
	LayerStandard Layer = "standard"
	LayerCustom   Layer = "custom"
)

// ParseLayer accepts "standard" or "custom" in any case; empty means custom.
func ParseLayer(s string) (Layer, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(LayerCustom):
		return LayerCustom, true
	case string(LayerStandard):
		return LayerStandard, true
	}
	return "", false
}

// Model is one model the indexer walks.
type Model struct {
	// Name is the model name as it appears in symbol records
	Name string `json:"name" yaml:"name"`

	// Layer tells vendor code from customer code
	Layer Layer `json:"layer" yaml:"layer"`

	// Path is the model directory relative to the metadata root
	Path string `json:"path" yaml:"path"`

	// Description comes from the declaration file, if any
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Declared is true when the model is listed in the declaration file
	Declared bool `json:"declared" yaml:"declared"`
}

// IsCustom reports whether the model holds customer code.
func (m Model) IsCustom() bool {
	return m.Layer == LayerCustom
}

// Dir returns the model directory under root.
func (m Model) Dir(root string) string {
	if filepath.IsAbs(m.Path) {
		return m.Path
	}
	return filepath.Join(root, filepath.FromSlash(m.Path))
}

// Names returns the model names in order.
func Names(models []Model) []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.Name
	}
	return out
}
