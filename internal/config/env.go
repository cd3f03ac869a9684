package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables understood by ApplyEnv.
const (
	EnvPort             = "PORT"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvBackendURL       = "LMSTUDIO_BASE_URL"
	EnvBackendAPIKey    = "LMSTUDIO_API_KEY"
	EnvMaxContextTokens = "MAX_CONTEXT_TOKENS"
	EnvCORSOrigin       = "CORS_ORIGIN"
	EnvHistoryEnabled   = "HISTORY_ENABLED"
	EnvLogLevel         = "LMRELAY_LOG_LEVEL"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(string) (string, bool)

// ApplyEnv overlays environment values onto cfg. Set variables win over
// file values. A nil lookup reads the process environment.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvPort); ok {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.Addr = ":" + v
	}
	if v, ok := get(EnvDatabaseURL); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := get(EnvBackendURL); ok {
		cfg.BackendURL = v
	}
	if v, ok := get(EnvBackendAPIKey); ok {
		cfg.BackendAPIKey = v
	}
	if v, ok := get(EnvMaxContextTokens); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxContextTokens, err)
		}
		cfg.MaxContextTokens = n
	}
	if v, ok := get(EnvCORSOrigin); ok {
		cfg.CORSOrigins = SplitCSV(v)
	}
	if v, ok := get(EnvHistoryEnabled); ok {
		// Anything but "false" keeps history on.
		enabled := !strings.EqualFold(v, "false")
		cfg.HistoryEnabled = &enabled
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
