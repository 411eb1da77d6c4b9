// ABOUTME: HTTP lint API built on a chi router: lint requests, run history, health, and Prometheus metrics.
// ABOUTME: Wires request IDs, request logging, a result cache, and optional SQLite run history.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389-research/flowlint/history"
	"github.com/2389-research/flowlint/lint"
)

// maxBodyBytes caps the size of a lint request body.
const maxBodyBytes = 10 << 20

// defaultLintTimeout bounds a single lint request when Config.LintTimeout is zero.
const defaultLintTimeout = time.Minute

// defaultCacheTTL is used when Config.CacheTTL is zero.
const defaultCacheTTL = 5 * time.Minute

// Config configures a Server.
type Config struct {
	Addr string
	// Lint is used for requests that do not carry their own config.
	Lint        lint.Config
	Plugins     lint.Registry
	Concurrency int
	// History, when set, records every successful lint and enables the runs routes.
	History *history.Store
	// HistoryKeep, when positive, trims History to the newest HistoryKeep runs after each record.
	HistoryKeep int
	LintTimeout time.Duration
	CacheTTL    time.Duration
	// CacheEntries caps the result cache; zero selects DefaultMaxCacheEntries.
	CacheEntries int
}

// Server serves the lint API.
type Server struct {
	cfg     Config
	router  chi.Router
	cache   *ResultCache
	metrics *Metrics
	reg     *prometheus.Registry
}

// New builds a Server with all routes configured.
func New(cfg Config) *Server {
	if cfg.LintTimeout <= 0 {
		cfg.LintTimeout = defaultLintTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:     cfg,
		reg:     reg,
		metrics: NewMetrics(reg),
	}
	s.cache = NewResultCache(s.lintFlow, cfg.CacheTTL, cfg.CacheEntries)
	s.router = s.buildRouter()
	return s
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.cache.RunJanitor(janitorCtx, s.cfg.CacheTTL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/lint", s.handleLint)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	return r
}
