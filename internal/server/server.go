// Package server exposes the digest pipeline and the admin store over HTTP.
package server

import (
	"aidigest/internal/config"
	"aidigest/internal/core"
	"aidigest/internal/digest"
	"aidigest/internal/feeds"
	"aidigest/internal/logger"
	"aidigest/internal/metrics"
	"aidigest/internal/persistence"
	"aidigest/internal/summarize"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// FeedSource returns the feed list the public digest endpoints run over.
type FeedSource func(ctx context.Context) ([]core.FeedConfig, error)

// StaticFeeds serves a fixed feed list.
func StaticFeeds(list []core.FeedConfig) FeedSource {
	return func(context.Context) ([]core.FeedConfig, error) { return list, nil }
}

// FeedValidator checks that a URL serves a parseable feed.
type FeedValidator interface {
	Validate(ctx context.Context, url string) feeds.Validation
}

// Deps are the collaborators the handlers use. Store and Summarizer may be
// nil; the routes that need them then answer 503.
type Deps struct {
	Generator  *digest.Generator
	Feeds      FeedSource
	Validator  FeedValidator
	Store      persistence.Store
	Summarizer *summarize.Service
	Metrics    *metrics.Metrics
	Days       int
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     config.Server
	log        *slog.Logger
	jobs       *jobRegistry

	// base outlives requests so background digest jobs survive the handler.
	base   context.Context
	cancel context.CancelFunc
}

// New creates a new HTTP server instance
func New(deps Deps, cfg config.Server) *Server {
	if deps.Days <= 0 {
		deps.Days = digest.DefaultOptions().Days
	}
	base, cancel := context.WithCancel(context.Background())

	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		config: cfg,
		log:    logger.Get(),
		jobs:   newJobRegistry(config.Duration(cfg.JobTTL, time.Hour)),
		base:   base,
		cancel: cancel,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  config.Duration(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.WriteTimeout, 120*time.Second),
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(90 * time.Second))

	origins := s.config.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: s.config.CORS.AllowCredentials,
		MaxAge:           s.config.CORS.MaxAge,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}
	s.router.Get("/digest", s.handleDigestPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/feeds", s.handleListFeeds)
		r.Post("/fetch-feed", s.handleFetchFeed)
		r.Post("/digest", s.handleGenerateDigest)
		r.Post("/export", s.handleExport)
		r.Post("/summarize", s.handleSummarize)

		r.Route("/digest/jobs", func(r chi.Router) {
			r.Post("/", s.handleStartJob)
			r.Get("/{id}", s.handleGetJob)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdminToken)

			r.Route("/discover", func(r chi.Router) {
				r.Get("/", s.handleListNiches)
				r.Get("/niche/{niche}", s.handleNicheSuggestions)
				r.Get("/search", s.handleSearchSuggestions)
				r.With(s.requireStore).Post("/add", s.handleAddDiscoveredFeeds)
				r.With(s.requireStore).Post("/suggestions", s.handleCreateSuggestion)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireStore)

				r.Route("/feeds", func(r chi.Router) {
					r.Get("/", s.handleAdminListFeeds)
					r.Post("/", s.handleAdminCreateFeed)
					r.Post("/validate", s.handleAdminValidateFeed)
					r.Post("/bulk", s.handleAdminBulkFeeds)
					r.Get("/{id}", s.handleAdminGetFeed)
					r.Put("/{id}", s.handleAdminUpdateFeed)
					r.Put("/{id}/toggle", s.handleAdminToggleFeed)
					r.Delete("/{id}", s.handleAdminDeleteFeed)
				})

				r.Route("/categories", func(r chi.Router) {
					r.Get("/", s.handleListCategories)
					r.Post("/", s.handleCreateCategory)
					r.Put("/{id}", s.handleUpdateCategory)
					r.Delete("/{id}", s.handleDeleteCategory)
				})

				r.Route("/icps", func(r chi.Router) {
					r.Get("/", s.handleListICPs)
					r.Post("/", s.handleCreateICP)
					r.Post("/parse", s.handleParseICP)
					r.Get("/{id}", s.handleGetICP)
					r.Put("/{id}", s.handleUpdateICP)
					r.Put("/{id}/default", s.handleSetDefaultICP)
					r.Delete("/{id}", s.handleDeleteICP)
				})

				r.Route("/settings", func(r chi.Router) {
					r.Get("/", s.handleListSettings)
					r.Get("/{key}", s.handleGetSetting)
					r.Put("/{key}", s.handleUpdateSetting)
				})
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout.String(),
		"write_timeout", s.httpServer.WriteTimeout.String(),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server and cancels running jobs
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")
	s.cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
