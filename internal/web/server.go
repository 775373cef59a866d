// Package web serves the back office over HTTP: module CRUD, CSV/XLSX
// export, sample templates and file imports.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/wms/internal/config"
	"github.com/JonMunkholm/wms/internal/metrics"
	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/pipeline"
	"github.com/JonMunkholm/wms/internal/store"
	mw "github.com/JonMunkholm/wms/internal/web/middleware"
)

// Server is the HTTP front of the back office.
type Server struct {
	cfg      *config.Config
	db       store.DBTX
	registry *modules.Registry
	pipeline *pipeline.Pipeline
	metrics  *metrics.Collector
	ping     func(context.Context) error

	router      *chi.Mux
	server      *http.Server
	limiters    []*mw.RateLimiter
	stopSweeper context.CancelFunc
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithMetrics instruments requests and serves cfg.Metrics.Path.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithHealthCheck makes /healthz report the result of ping.
func WithHealthCheck(ping func(context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

// NewServer wires the router. db is shared by every request.
func NewServer(cfg *config.Config, db store.DBTX, registry *modules.Registry, p *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		db:       db,
		registry: registry,
		pipeline: p,
		router:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/export/{module}", s.handleExport)
			r.Post("/export/{module}", s.handleExport)
			r.Get("/sample/{module}", s.handleSample)

			r.Route("/api", func(r chi.Router) {
				r.Get("/modules", s.handleModules)

				r.Route("/{module}", func(r chi.Router) {
					r.Get("/", s.handleList)
					r.Post("/", s.handleCreate)
					r.Get("/lite", s.handleLite)
					r.Get("/{id}", s.handleGet)
					r.Put("/{id}", s.handleUpdate)
					r.Delete("/{id}", s.handleDelete)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Import.Timeout))
			if s.cfg.Rate.Enabled {
				r.Use(s.rateLimiter(s.cfg.Rate.ImportsPerMinute).Handler)
			}
			r.Post("/import/{module}", s.handleImport)
		})
	})
}

func (s *Server) rateLimiter(perMinute int) *mw.RateLimiter {
	rl := mw.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start listens on cfg.Server.Addr until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweeper = cancel
	for _, rl := range s.limiters {
		go rl.Run(ctx)
	}

	slog.Info("server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
