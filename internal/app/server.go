// Package app wires the server together: config snapshot, credential store,
// provider adapters, routing state, and the chi middleware stack.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openfreerouter/freerouter/internal/auth"
	"github.com/openfreerouter/freerouter/internal/classify"
	"github.com/openfreerouter/freerouter/internal/config"
	"github.com/openfreerouter/freerouter/internal/health"
	"github.com/openfreerouter/freerouter/internal/httpapi"
	"github.com/openfreerouter/freerouter/internal/logging"
	"github.com/openfreerouter/freerouter/internal/metrics"
	"github.com/openfreerouter/freerouter/internal/providers/anthropic"
	"github.com/openfreerouter/freerouter/internal/providers/openai"
	"github.com/openfreerouter/freerouter/internal/router"
	"github.com/openfreerouter/freerouter/internal/stats"
	"github.com/openfreerouter/freerouter/internal/tracing"
)

type Server struct {
	store *config.Store
	auth  *auth.Store
	snap  atomic.Pointer[httpapi.Snapshot]

	r      *chi.Mux
	logger *slog.Logger

	shutdownTracing func(context.Context) error
}

// NewServer loads config (path may be empty to use discovery), builds the
// routing state, and mounts all routes.
func NewServer(configPath, version string) (*Server, error) {
	store, err := config.NewStore(configPath)
	if err != nil {
		return nil, err
	}
	cfg := store.Current()
	logger := logging.Setup(cfg.LogLevel)

	s := &Server{
		store:  store,
		auth:   auth.NewStore(cfg.Auth),
		logger: logger,
	}
	s.installSnapshot(cfg)

	s.shutdownTracing, err = tracing.Setup(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: router.Namespace,
	})
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	s.r = r

	httpapi.MountRoutes(r, httpapi.Dependencies{
		Snapshot: func() *httpapi.Snapshot { return s.snap.Load() },
		Stats:    stats.NewCollector(),
		Metrics:  metrics.New(),
		Health:   health.NewTracker(health.DefaultConfig()),
		Version:  version,

		RedactedConfig: store.Redacted,
		ReloadCreds:    s.ReloadCreds,
		ReloadConfig:   s.ReloadConfig,
	})

	return s, nil
}

func (s *Server) Router() http.Handler { return s.r }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.store.Current().Addr() }

// ReloadCreds drops the credential cache; the next upstream call re-resolves.
func (s *Server) ReloadCreds() error {
	s.auth.Invalidate()
	s.logger.Info("credentials invalidated")
	return nil
}

// ReloadConfig re-reads the config file and, on success, swaps in a freshly
// built snapshot. A parse or validation error leaves the old snapshot active.
func (s *Server) ReloadConfig() error {
	if err := s.store.Reload(); err != nil {
		return err
	}
	cfg := s.store.Current()
	logging.SetLevel(cfg.LogLevel)
	s.auth.SetConfig(cfg.Auth)
	s.installSnapshot(cfg)
	s.logger.Info("config reloaded", slog.Int("providers", len(cfg.Providers)))
	return nil
}

func (s *Server) Close() error {
	if s.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.shutdownTracing(ctx)
	}
	return nil
}

// installSnapshot builds the immutable per-request routing state from a
// config and publishes it atomically.
func (s *Server) installSnapshot(cfg *config.Config) {
	reg := router.NewRegistry()
	for id, p := range cfg.Providers {
		reg.Register(s.buildAdapter(id, p, cfg))
	}

	timeouts := make(map[router.Tier]time.Duration, len(cfg.TierTimeoutSecs))
	for tier, secs := range cfg.TierTimeoutSecs {
		timeouts[tier] = time.Duration(secs) * time.Second
	}

	s.snap.Store(&httpapi.Snapshot{
		Config:     cfg,
		Classifier: classify.New(cfg.EffectiveScoring()),
		Selector: &router.Selector{
			Tiers:         cfg.Tiers,
			AgenticTiers:  cfg.AgenticTiers,
			Catalog:       cfg.Models,
			BaselineModel: cfg.BaselineModel,
		},
		Adapters:     reg,
		Timeouts:     timeouts,
		StallTimeout: time.Duration(cfg.StallTimeoutSecs) * time.Second,
	})
}

func (s *Server) buildAdapter(id string, p config.Provider, cfg *config.Config) router.Sender {
	client := &http.Client{Transport: tracing.HTTPTransport(nil)}
	if p.API == "anthropic" {
		return anthropic.New(id, p.BaseURL, anthropic.CredFunc(s.auth.Func(id)),
			anthropic.WithHTTPClient(client),
			anthropic.WithStaticHeaders(p.Headers),
			anthropic.WithAdaptiveModels(cfg.Thinking.Adaptive),
			anthropic.WithThinkingBudget(cfg.Thinking.Enabled.Budget),
		)
	}
	return openai.New(id, p.BaseURL, openai.CredFunc(s.auth.Func(id)),
		openai.WithHTTPClient(client),
		openai.WithStaticHeaders(p.Headers),
	)
}
