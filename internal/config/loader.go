package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr             string   `json:"addr" yaml:"addr" toml:"addr"`
	DatabaseURL      string   `json:"database_url" yaml:"database_url" toml:"database_url"`
	BackendURL       string   `json:"backend_url" yaml:"backend_url" toml:"backend_url"`
	BackendAPIKey    string   `json:"backend_api_key" yaml:"backend_api_key" toml:"backend_api_key"`
	MaxContextTokens int      `json:"max_context_tokens" yaml:"max_context_tokens" toml:"max_context_tokens"`
	HistoryEnabled   *bool    `json:"history_enabled" yaml:"history_enabled" toml:"history_enabled"`
	CORSOrigins      []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	Tokenizer        string   `json:"tokenizer" yaml:"tokenizer" toml:"tokenizer"`
	ModelsDir        string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	LogLevel         string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat        string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxBodyBytes     int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	// Lifecycle timings in milliseconds.
	WarmupPolicy    string `json:"warmup_policy" yaml:"warmup_policy" toml:"warmup_policy"`
	WarmupTimeoutMS int    `json:"warmup_timeout_ms" yaml:"warmup_timeout_ms" toml:"warmup_timeout_ms"`
	UnloadDelayMS   int    `json:"unload_delay_ms" yaml:"unload_delay_ms" toml:"unload_delay_ms"`
	TickIntervalMS  int    `json:"tick_interval_ms" yaml:"tick_interval_ms" toml:"tick_interval_ms"`
	MinVisualMS     int    `json:"min_visual_ms" yaml:"min_visual_ms" toml:"min_visual_ms"`
	MaxVisualMS     int    `json:"max_visual_ms" yaml:"max_visual_ms" toml:"max_visual_ms"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
