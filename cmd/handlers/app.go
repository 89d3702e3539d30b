package handlers

import (
	"aidigest/internal/config"
	"aidigest/internal/core"
	"aidigest/internal/digest"
	"aidigest/internal/enrich"
	"aidigest/internal/feeds"
	"aidigest/internal/lexicon"
	"aidigest/internal/logger"
	"aidigest/internal/metrics"
	"aidigest/internal/persistence"
	"aidigest/internal/server"
	"aidigest/internal/summarize"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg       *config.Config
	fetcher   *feeds.HTTPFetcher
	generator *digest.Generator
	metrics   *metrics.Metrics
}

func newApp(cfg *config.Config) (*app, error) {
	lex := lexicon.Default()
	if cfg.Lexicon.File != "" {
		loaded, err := lexicon.Load(cfg.Lexicon.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load lexicon: %w", err)
		}
		lex = loaded
	}

	timeout := config.Duration(cfg.Feeds.Timeout, feeds.DefaultTimeout)
	fetcher := feeds.NewHTTPFetcher(feeds.Options{Timeout: timeout, UserAgent: cfg.Feeds.UserAgent})
	m := metrics.New()

	gen := digest.NewGenerator(fetcher, enrich.New(lex), digest.GeneratorOptions{
		Concurrency: cfg.Feeds.Concurrency,
		Timeout:     timeout,
		Assemble: digest.Options{
			Days:         cfg.Digest.Days,
			TopN:         cfg.Digest.TopStories,
			SpotlightN:   cfg.Digest.Spotlight,
			SpotlightMin: cfg.Digest.SpotlightMinScore,
		},
		Metrics: m,
	})

	return &app{cfg: cfg, fetcher: fetcher, generator: gen, metrics: m}, nil
}

// openStore connects to the configured admin database.
func (a *app) openStore() (*persistence.DB, error) {
	driver, dsn := a.cfg.Database.Driver, a.cfg.Database.DSN
	if driver == "" || driver == persistence.DriverSQLite {
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := persistence.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// summarizer builds the summary service, caching through store when it is
// not nil. Without an API key the service is still returned and reports
// summarize.ErrNotConfigured on use.
func (a *app) summarizer(ctx context.Context, store persistence.Store) (*summarize.Service, func(), error) {
	extractor := summarize.NewExtractor(nil,
		config.Duration(a.cfg.Summarize.FetchTimeout, 10*time.Second), a.cfg.Summarize.MaxWords)

	g := a.cfg.AI.Gemini
	gemini, err := summarize.NewGemini(ctx, summarize.GeminiConfig{
		APIKey:    g.APIKey,
		Model:     g.Model,
		Timeout:   config.Duration(g.Timeout, 60*time.Second),
		MaxTokens: g.MaxTokens,
	})
	switch {
	case errors.Is(err, summarize.ErrNotConfigured):
		logger.Warn("Gemini API key not set, summaries disabled")
		return a.withCache(summarize.NewService(extractor, nil, a.metrics), store), func() {}, nil
	case err != nil:
		return nil, nil, err
	}

	closeFn := func() {
		if err := gemini.Close(); err != nil {
			logger.Warn("Failed to close Gemini client", "error", err.Error())
		}
	}
	return a.withCache(summarize.NewService(extractor, gemini, a.metrics), store), closeFn, nil
}

func (a *app) withCache(svc *summarize.Service, store persistence.Store) *summarize.Service {
	if store == nil {
		return svc
	}
	return svc.WithCache(store.Summaries(), config.Duration(a.cfg.Summarize.CacheTTL, 7*24*time.Hour))
}

// feedSource resolves the configured feed list. source overrides
// feeds.source when set; store may be nil unless the source is "store".
func (a *app) feedSource(source, file string, store persistence.Store) (server.FeedSource, error) {
	if source == "" {
		source = a.cfg.Feeds.Source
	}
	if file == "" {
		file = a.cfg.Feeds.File
	}

	switch source {
	case "", config.SourceBuiltin:
		return server.StaticFeeds(feeds.Builtin()), nil
	case config.SourceFile:
		if file == "" {
			return nil, fmt.Errorf("feeds source %q needs a feeds file", source)
		}
		list, err := feeds.LoadFile(file)
		if err != nil {
			return nil, err
		}
		return server.StaticFeeds(list), nil
	case config.SourceStore:
		if store == nil {
			return nil, fmt.Errorf("feeds source %q needs a database", source)
		}
		return storeFeeds(store), nil
	default:
		return nil, fmt.Errorf("unknown feeds source %q", source)
	}
}

// storeFeeds reads the active feeds from the database on every call, so
// admin edits apply to the next digest.
func storeFeeds(store persistence.Store) server.FeedSource {
	return func(ctx context.Context) ([]core.FeedConfig, error) {
		list, err := store.Feeds().ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load feeds: %w", err)
		}
		out := make([]core.FeedConfig, 0, len(list))
		for _, f := range list {
			out = append(out, f.Config())
		}
		return out, nil
	}
}
