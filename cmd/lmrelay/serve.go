package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/backend"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/config"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/contextwindow"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/httpapi"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/manager"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/registry"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/relay"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/store"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := resolveConfig(cmd, fv, nil)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, log, nil)
}

// app is the wired service graph.
type app struct {
	handler http.Handler
	manager *manager.Manager
	store   *store.Store
}

func (a *app) Close() error {
	return errors.Join(a.manager.Close(), a.store.Close())
}

// buildApp wires storage, backend, lifecycle and relay behind the HTTP mux.
func buildApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	be := backend.New(cfg.BackendURL, backend.Options{APIKey: cfg.BackendAPIKey})

	policy, err := manager.ParseWarmupPolicy(cfg.WarmupPolicy)
	if err != nil {
		st.Close()
		return nil, err
	}
	mlog := log.With().Str("component", "manager").Logger()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Warmer:        be,
		Memory:        store.ModelMemory{S: st},
		Logger:        &mlog,
		TickInterval:  cfg.TickInterval(),
		MinVisual:     cfg.MinVisual(),
		MaxVisual:     cfg.MaxVisual(),
		WarmupTimeout: cfg.WarmupTimeout(),
		UnloadDelay:   cfg.UnloadDelay(),
		WarmupPolicy:  policy,
	})
	if err := mgr.Init(ctx); err != nil {
		// A broken settings row should not keep the server down.
		log.Warn().Err(err).Msg("restore active model failed")
	}

	est, err := contextwindow.NewEstimator(cfg.Tokenizer)
	if err != nil {
		mgr.Close()
		st.Close()
		return nil, err
	}
	rlog := log.With().Str("component", "relay").Logger()
	rl := relay.New(mgr, st, be, contextwindow.NewBuilder(est), relay.Config{
		MaxContextTokens: cfg.MaxContextTokens,
		HistoryEnabled:   cfg.History(),
		Logger:           &rlog,
	})

	clog := log.With().Str("component", "catalog").Logger()
	catalog := registry.NewCatalog(be, cfg.ModelsDir, &clog)

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)
	httpapi.SetBaseContext(ctx)

	mux := httpapi.NewMux(httpapi.Deps{
		Lifecycle: mgr,
		Catalog:   catalog,
		Store:     st,
		Relay:     rl,
	})
	return &app{handler: mux, manager: mgr, store: st}, nil
}

// serve runs until ctx is cancelled. A nil ln listens on cfg.Addr.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger, ln net.Listener) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()

	if ln == nil {
		ln, err = net.Listen("tcp", cfg.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Addr, err)
		}
	}
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", ln.Addr().String()).
			Str("backend", cfg.BackendURL).
			Str("db", cfg.DatabaseURL).
			Bool("history", cfg.History()).
			Int("max_context_tokens", cfg.MaxContextTokens).
			Msg("lmrelay listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown (Ctrl+C / SIGTERM)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
