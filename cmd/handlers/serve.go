package handlers

import (
	"aidigest/internal/config"
	"aidigest/internal/logger"
	"aidigest/internal/persistence"
	"aidigest/internal/server"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port  int
		host  string
		noDB  bool
		token string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the digest API server",
		Long: `Start the aidigest HTTP server.

The server provides:
  • JSON API: feed list, per-feed fetch, full digest, markdown export, summaries
  • Polled digest jobs with live progress
  • Admin API for feeds, categories, ICP profiles and settings
  • Health check and Prometheus metrics

Admin routes need "Authorization: Bearer <token>". With no server.admin_token
(ADMIN_API_TOKEN) configured any bearer value is accepted.

Examples:
  # Start server on default port 8080
  aidigest serve

  # Start on custom port without the admin database
  aidigest serve --port 3000 --no-db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, token, noDB)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().StringVar(&token, "admin-token", "", "Admin bearer token (default from config)")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "Run without the admin database")

	return cmd
}

func runServe(ctx context.Context, port int, host, token string, noDB bool) error {
	log := logger.Get()
	cfg := config.Get()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}
	if token != "" {
		serverCfg.AdminToken = token
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	var store persistence.Store
	if !noDB {
		log.Info("Connecting to database", "driver", cfg.Database.Driver)
		db, err := a.openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		store = db
	} else if cfg.Feeds.Source == config.SourceStore {
		return fmt.Errorf("feeds.source is %q but --no-db was given", config.SourceStore)
	}

	feedSource, err := a.feedSource("", "", store)
	if err != nil {
		return err
	}

	summarizer, closeSummarizer, err := a.summarizer(ctx, store)
	if err != nil {
		return err
	}
	defer closeSummarizer()

	if serverCfg.AdminToken == "" {
		log.Warn("server.admin_token not set, admin API accepts any bearer token")
	}

	srv := server.New(server.Deps{
		Generator:  a.generator,
		Feeds:      feedSource,
		Validator:  a.fetcher,
		Store:      store,
		Summarizer: summarizer,
		Metrics:    a.metrics,
		Days:       cfg.Digest.Days,
	}, serverCfg)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s", serverCfg.Addr()))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}
