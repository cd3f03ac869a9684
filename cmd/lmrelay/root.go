package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/config"
)

// flagValues collects command-line overrides. Only flags the user actually
// set are applied on top of file and environment values.
type flagValues struct {
	configPath       string
	addr             string
	db               string
	backendURL       string
	maxContextTokens int
	history          bool
	corsOrigins      string
	tokenizer        string
	modelsDir        string
	logLevel         string
	logFormat        string
	warmupPolicy     string
}

func buildRootCmd() *cobra.Command { return buildRootCmdWith(&flagValues{}) }

// buildRootCmdWith binds every flag to fv.
func buildRootCmdWith(fv *flagValues) *cobra.Command {
	root := &cobra.Command{
		Use:           "lmrelay",
		Short:         "Chat relay for LM Studio compatible inference servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, fv)
		},
	}
	root.PersistentFlags().StringVar(&fv.configPath, "config", "", "Path to a YAML, JSON or TOML config file")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP API (default)",
		Example: "  lmrelay serve --addr :3001 --backend-url http://localhost:1234/v1",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, fv)
		},
	}
	for _, c := range []*cobra.Command{root, serveCmd} {
		f := c.Flags()
		f.StringVar(&fv.addr, "addr", config.DefaultAddr, "HTTP listen address (env PORT)")
		f.StringVar(&fv.db, "db", config.DefaultDatabaseURL, "SQLite database path (env DATABASE_URL)")
		f.StringVar(&fv.backendURL, "backend-url", config.DefaultBackendURL, "OpenAI-compatible backend base URL (env LMSTUDIO_BASE_URL)")
		f.IntVar(&fv.maxContextTokens, "max-context-tokens", config.DefaultMaxContextTokens, "Token budget for chat history (env MAX_CONTEXT_TOKENS)")
		f.BoolVar(&fv.history, "history", true, "Send prior turns with each request (env HISTORY_ENABLED)")
		f.StringVar(&fv.corsOrigins, "cors-origins", "*", "Comma-separated allowed origins (env CORS_ORIGIN)")
		f.StringVar(&fv.tokenizer, "tokenizer", config.DefaultTokenizer, "Token estimator: approx|tiktoken")
		f.StringVar(&fv.modelsDir, "models-dir", "", "Directory of *.gguf files offered when the backend is unreachable")
		f.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug|info|warn|error (env LMRELAY_LOG_LEVEL)")
		f.StringVar(&fv.logFormat, "log-format", config.DefaultLogFormat, "Log format: json|console")
		f.StringVar(&fv.warmupPolicy, "warmup-policy", config.DefaultWarmupPolicy, "Warmup failure handling: best_effort|strict")
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
	root.AddCommand(serveCmd, versionCmd)
	return root
}

// resolveConfig layers file, environment and flags, in that order.
func resolveConfig(cmd *cobra.Command, fv *flagValues, lookup config.LookupFunc) (config.Config, error) {
	var cfg config.Config
	if fv.configPath != "" {
		c, err := config.Load(fv.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg, lookup); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = fv.addr
	}
	if f.Changed("db") {
		cfg.DatabaseURL = fv.db
	}
	if f.Changed("backend-url") {
		cfg.BackendURL = fv.backendURL
	}
	if f.Changed("max-context-tokens") {
		cfg.MaxContextTokens = fv.maxContextTokens
	}
	if f.Changed("history") {
		h := fv.history
		cfg.HistoryEnabled = &h
	}
	if f.Changed("cors-origins") {
		cfg.CORSOrigins = config.SplitCSV(fv.corsOrigins)
	}
	if f.Changed("tokenizer") {
		cfg.Tokenizer = fv.tokenizer
	}
	if f.Changed("models-dir") {
		cfg.ModelsDir = fv.modelsDir
	}
	if f.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if f.Changed("warmup-policy") {
		cfg.WarmupPolicy = fv.warmupPolicy
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
