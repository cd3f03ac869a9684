package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults mirror the chat app's historical environment defaults.
const (
	DefaultAddr             = ":3001"
	DefaultDatabaseURL      = "file:./dev.db"
	DefaultBackendURL       = "http://localhost:1234/v1"
	DefaultMaxContextTokens = 4096
	DefaultTokenizer        = "approx"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMaxBodyBytes     = 1 << 20
	DefaultWarmupPolicy     = "best_effort"
	DefaultWarmupTimeoutMS  = 60_000
	DefaultUnloadDelayMS    = 800
	DefaultTickIntervalMS   = 150
	DefaultMinVisualMS      = 3_000
	DefaultMaxVisualMS      = 8_000
)

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = DefaultDatabaseURL
	}
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = DefaultMaxContextTokens
	}
	if c.HistoryEnabled == nil {
		on := true
		c.HistoryEnabled = &on
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.Tokenizer == "" {
		c.Tokenizer = DefaultTokenizer
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.WarmupPolicy == "" {
		c.WarmupPolicy = DefaultWarmupPolicy
	}
	if c.WarmupTimeoutMS <= 0 {
		c.WarmupTimeoutMS = DefaultWarmupTimeoutMS
	}
	if c.UnloadDelayMS <= 0 {
		c.UnloadDelayMS = DefaultUnloadDelayMS
	}
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = DefaultTickIntervalMS
	}
	if c.MinVisualMS <= 0 {
		c.MinVisualMS = DefaultMinVisualMS
	}
	if c.MaxVisualMS <= 0 {
		c.MaxVisualMS = DefaultMaxVisualMS
	}
	return c
}

// Validate checks a defaulted config.
func (c Config) Validate() error {
	switch strings.ToLower(c.Tokenizer) {
	case "approx", "tiktoken":
	default:
		return fmt.Errorf("tokenizer must be approx or tiktoken, got %q", c.Tokenizer)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	if c.MaxVisualMS < c.MinVisualMS {
		return fmt.Errorf("max_visual_ms (%d) is below min_visual_ms (%d)", c.MaxVisualMS, c.MinVisualMS)
	}
	return nil
}

// History reports the effective history flag.
func (c Config) History() bool { return c.HistoryEnabled == nil || *c.HistoryEnabled }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c Config) WarmupTimeout() time.Duration { return ms(c.WarmupTimeoutMS) }
func (c Config) UnloadDelay() time.Duration   { return ms(c.UnloadDelayMS) }
func (c Config) TickInterval() time.Duration  { return ms(c.TickIntervalMS) }
func (c Config) MinVisual() time.Duration     { return ms(c.MinVisualMS) }
func (c Config) MaxVisual() time.Duration     { return ms(c.MaxVisualMS) }
