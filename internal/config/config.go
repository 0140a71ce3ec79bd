package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// ConfigFileName is the config file looked up inside the data directory.
const ConfigFileName = "config.toml"

// DefaultDataDir is used when no --data-dir is given.
const DefaultDataDir = ".xppkb"

// Config represents the complete xppkb configuration
type Config struct {
	Version int    `json:"version" toml:"version" mapstructure:"version"`
	DataDir string `json:"dataDir" toml:"dataDir" mapstructure:"dataDir"`

	Store     StoreConfig     `json:"store" toml:"store" mapstructure:"store"`
	Metadata  MetadataConfig  `json:"metadata" toml:"metadata" mapstructure:"metadata"`
	Search    SearchConfig    `json:"search" toml:"search" mapstructure:"search"`
	Fuzzy     FuzzyConfig     `json:"fuzzy" toml:"fuzzy" mapstructure:"fuzzy"`
	Cache     CacheConfig     `json:"cache" toml:"cache" mapstructure:"cache"`
	Workspace WorkspaceConfig `json:"workspace" toml:"workspace" mapstructure:"workspace"`
	Logging   LoggingConfig   `json:"logging" toml:"logging" mapstructure:"logging"`
}

// StoreConfig contains symbol store configuration
type StoreConfig struct {
	// Path of the SQLite file; empty means <dataDir>/xppkb.db
	Path          string `json:"path" toml:"path" mapstructure:"path"`
	BusyTimeoutMs int    `json:"busyTimeoutMs" toml:"busyTimeoutMs" mapstructure:"busyTimeoutMs"`
}

// MetadataConfig describes where the AOT metadata lives and which models
// count as vendor-supplied (standard) or custom.
type MetadataConfig struct {
	Root            string   `json:"root" toml:"root" mapstructure:"root"`
	StandardModels  []string `json:"standardModels" toml:"standardModels" mapstructure:"standardModels"`
	CustomModels    []string `json:"customModels" toml:"customModels" mapstructure:"customModels"`
	DeclarationFile string   `json:"declarationFile" toml:"declarationFile" mapstructure:"declarationFile"`
}

// SearchConfig contains search defaults
type SearchConfig struct {
	DefaultLimit     int `json:"defaultLimit" toml:"defaultLimit" mapstructure:"defaultLimit"`
	MaxLimit         int `json:"maxLimit" toml:"maxLimit" mapstructure:"maxLimit"`
	BatchConcurrency int `json:"batchConcurrency" toml:"batchConcurrency" mapstructure:"batchConcurrency"`
}

// FuzzyConfig holds the suggestion heuristics. The defaults are the
// historical values and are kept as-is.
type FuzzyConfig struct {
	TypoThreshold        float64 `json:"typoThreshold" toml:"typoThreshold" mapstructure:"typoThreshold"`
	TypoOneEditThreshold float64 `json:"typoOneEditThreshold" toml:"typoOneEditThreshold" mapstructure:"typoOneEditThreshold"`
	BroaderConfidence    float64 `json:"broaderConfidence" toml:"broaderConfidence" mapstructure:"broaderConfidence"`
	WildcardConfidence   float64 `json:"wildcardConfidence" toml:"wildcardConfidence" mapstructure:"wildcardConfidence"`
	NarrowerConfidence   float64 `json:"narrowerConfidence" toml:"narrowerConfidence" mapstructure:"narrowerConfidence"`
	RelatedConfidence    float64 `json:"relatedConfidence" toml:"relatedConfidence" mapstructure:"relatedConfidence"`
	MaxSuggestions       int     `json:"maxSuggestions" toml:"maxSuggestions" mapstructure:"maxSuggestions"`
}

// CacheConfig contains cache configuration
type CacheConfig struct {
	// URL selects the backend: redis://..., badger:///path, local, or empty (disabled)
	URL                    string  `json:"url" toml:"url" mapstructure:"url"`
	TimeoutMs              int     `json:"timeoutMs" toml:"timeoutMs" mapstructure:"timeoutMs"`
	ShortTtlSeconds        int     `json:"shortTtlSeconds" toml:"shortTtlSeconds" mapstructure:"shortTtlSeconds"`
	MediumTtlSeconds       int     `json:"mediumTtlSeconds" toml:"mediumTtlSeconds" mapstructure:"mediumTtlSeconds"`
	LongTtlSeconds         int     `json:"longTtlSeconds" toml:"longTtlSeconds" mapstructure:"longTtlSeconds"`
	NegativeTtlSeconds     int     `json:"negativeTtlSeconds" toml:"negativeTtlSeconds" mapstructure:"negativeTtlSeconds"`
	FuzzyEnabled           bool    `json:"fuzzyEnabled" toml:"fuzzyEnabled" mapstructure:"fuzzyEnabled"`
	FuzzyThreshold         float64 `json:"fuzzyThreshold" toml:"fuzzyThreshold" mapstructure:"fuzzyThreshold"`
	FuzzyLimitDelta        int     `json:"fuzzyLimitDelta" toml:"fuzzyLimitDelta" mapstructure:"fuzzyLimitDelta"`
	FuzzySampleSize        int     `json:"fuzzySampleSize" toml:"fuzzySampleSize" mapstructure:"fuzzySampleSize"`
	CompressThresholdBytes int     `json:"compressThresholdBytes" toml:"compressThresholdBytes" mapstructure:"compressThresholdBytes"`
}

// WorkspaceConfig configures the local workspace scanner
type WorkspaceConfig struct {
	Root    string   `json:"root" toml:"root" mapstructure:"root"`
	Include []string `json:"include" toml:"include" mapstructure:"include"`
	Watch   bool     `json:"watch" toml:"watch" mapstructure:"watch"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" toml:"format" mapstructure:"format"`
	Level  string `json:"level" toml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		DataDir: DefaultDataDir,
		Store: StoreConfig{
			BusyTimeoutMs: 5000,
		},
		Metadata: MetadataConfig{
			StandardModels:  []string{"ApplicationSuite", "ApplicationFoundation", "ApplicationPlatform"},
			CustomModels:    []string{},
			DeclarationFile: "MODELS.toml",
		},
		Search: SearchConfig{
			DefaultLimit:     20,
			MaxLimit:         500,
			BatchConcurrency: 4,
		},
		Fuzzy: FuzzyConfig{
			TypoThreshold:        0.85,
			TypoOneEditThreshold: 0.75,
			BroaderConfidence:    0.7,
			WildcardConfidence:   0.6,
			NarrowerConfidence:   0.65,
			RelatedConfidence:    0.6,
			MaxSuggestions:       5,
		},
		Cache: CacheConfig{
			URL:                    "",
			TimeoutMs:              500,
			ShortTtlSeconds:        30 * 60,
			MediumTtlSeconds:       2 * 60 * 60,
			LongTtlSeconds:         24 * 60 * 60,
			NegativeTtlSeconds:     60,
			FuzzyEnabled:           true,
			FuzzyThreshold:         0.8,
			FuzzyLimitDelta:        10,
			FuzzySampleSize:        100,
			CompressThresholdBytes: 4096,
		},
		Workspace: WorkspaceConfig{
			Include: []string{"**/*.xml"},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// envKeys are the keys that may be overridden through XPPKB_* variables,
// e.g. XPPKB_CACHE_URL or XPPKB_LOGGING_LEVEL.
var envKeys = []string{
	"dataDir",
	"store.path",
	"metadata.root",
	"cache.url",
	"cache.timeoutMs",
	"workspace.root",
	"logging.level",
	"logging.format",
}

// LoadConfig loads <dataDir>/config.toml (json and yaml are accepted too).
// A missing file yields the defaults; environment overrides apply either way.
func LoadConfig(dataDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(dataDir)
	v.SetEnvPrefix("XPPKB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := DefaultConfig()
	defaults.DataDir = dataDir
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Unmarshal over the defaults so keys missing from the file keep them.
	cfg := defaults
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}

	return cfg, nil
}

// Save writes the configuration to <dataDir>/config.toml
func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return os.WriteFile(filepath.Join(dataDir, ConfigFileName), buf.Bytes(), 0644)
}

// StorePath returns the resolved SQLite path.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "xppkb.db")
}

// AllModels returns standard models followed by custom models, without duplicates.
func (c *Config) AllModels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range append(append([]string{}, c.Metadata.StandardModels...), c.Metadata.CustomModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// IsCustomModel reports whether model is listed as custom.
func (c *Config) IsCustomModel(model string) bool {
	for _, m := range c.Metadata.CustomModels {
		if strings.EqualFold(m, model) {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Search.DefaultLimit <= 0 {
		return &ConfigError{Field: "search.defaultLimit", Message: "must be positive"}
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return &ConfigError{Field: "search.maxLimit", Message: "must be at least search.defaultLimit"}
	}
	for field, v := range map[string]float64{
		"fuzzy.typoThreshold":        c.Fuzzy.TypoThreshold,
		"fuzzy.typoOneEditThreshold": c.Fuzzy.TypoOneEditThreshold,
		"cache.fuzzyThreshold":       c.Cache.FuzzyThreshold,
	} {
		if v < 0 || v > 1 {
			return &ConfigError{Field: field, Message: "must be within [0,1]"}
		}
	}
	if c.Cache.TimeoutMs <= 0 {
		return &ConfigError{Field: "cache.timeoutMs", Message: "must be positive"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
