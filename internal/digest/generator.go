package digest

import (
	"aidigest/internal/core"
	"aidigest/internal/enrich"
	"aidigest/internal/feeds"
	"aidigest/internal/logger"
	"aidigest/internal/metrics"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const maxErrorRunes = 100

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Concurrency int           // feeds fetched at once
	Timeout     time.Duration // per-feed fetch timeout
	Assemble    Options       // Days and Now are overridden per call
	Metrics     *metrics.Metrics
	Clock       func() time.Time
}

// DefaultGeneratorOptions returns the standard generator settings.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Concurrency: 8,
		Timeout:     feeds.DefaultTimeout,
		Assemble:    DefaultOptions(),
		Clock:       time.Now,
	}
}

// Generator fetches feeds concurrently and runs the enrichment pipeline.
type Generator struct {
	fetcher  feeds.Fetcher
	enricher *enrich.Enricher
	opts     GeneratorOptions
	log      *slog.Logger
}

// NewGenerator creates a Generator. Zero options fall back to the defaults.
func NewGenerator(fetcher feeds.Fetcher, enricher *enrich.Enricher, opts GeneratorOptions) *Generator {
	def := DefaultGeneratorOptions()
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Assemble.TopN == 0 && opts.Assemble.SpotlightN == 0 && opts.Assemble.SpotlightMin == 0 {
		opts.Assemble = def.Assemble
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	if enricher == nil {
		enricher = enrich.New(nil)
	}
	return &Generator{
		fetcher:  fetcher,
		enricher: enricher,
		opts:     opts,
		log:      logger.Get(),
	}
}

// FetchError describes why one feed contributed no articles. Reason is the
// short user-facing text ("Timeout", "Feed parsing error", or the error
// message truncated to 100 characters).
type FetchError struct {
	Feed   string
	Reason string
	Err    error
}

func (e *FetchError) Error() string { return e.Reason }
func (e *FetchError) Unwrap() error { return e.Err }

// FeedError converts to the record stored in a digest.
func (e *FetchError) FeedError() core.FeedError {
	return core.FeedError{Feed: e.Feed, Error: e.Reason}
}

// Enricher returns the enricher the generator runs articles through.
func (g *Generator) Enricher() *enrich.Enricher {
	return g.enricher
}

type feedResult struct {
	articles []core.Article
	err      *FetchError
}

// Generate builds a digest over feedList. Feed failures never fail the call:
// each failed feed adds one entry to Digest.Errors. An error is returned only
// for invalid input or when ctx is cancelled.
func (g *Generator) Generate(ctx context.Context, feedList []core.FeedConfig, days int, progress *Progress) (core.Digest, error) {
	if days <= 0 {
		return core.Digest{}, fmt.Errorf("%w: got %d", ErrInvalidDays, days)
	}
	if len(feedList) == 0 {
		return core.Digest{}, ErrNoFeeds
	}

	now := g.opts.Clock()
	start := time.Now()
	progress.start(len(feedList))

	results := make([]feedResult, len(feedList))
	var eg errgroup.Group
	eg.SetLimit(g.opts.Concurrency)
	for i, feed := range feedList {
		eg.Go(func() error {
			progress.fetching(feed.Name)
			articles, ferr := g.fetchFeed(ctx, feed, now, days)
			results[i] = feedResult{articles: articles, err: ferr}
			if ferr != nil {
				fe := ferr.FeedError()
				progress.finished(&fe)
			} else {
				progress.finished(nil)
			}
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		progress.Fail()
		return core.Digest{}, fmt.Errorf("digest generation cancelled: %w", err)
	}

	var collected []core.Article
	feedErrors := []core.FeedError{}
	sources := make([]string, 0, len(feedList))
	for i, r := range results {
		sources = append(sources, feedList[i].Name)
		if r.err != nil {
			feedErrors = append(feedErrors, r.err.FeedError())
			continue
		}
		collected = append(collected, r.articles...)
	}

	progress.enriching()
	enriched := g.enricher.Enrich(collected)
	g.opts.Metrics.AddArticles("in_window", len(collected))
	g.opts.Metrics.AddArticles("relevant", len(enriched))

	opts := g.opts.Assemble
	opts.Days = days
	opts.Now = now
	d, err := Assemble(enriched, opts)
	if err != nil {
		progress.Fail()
		return core.Digest{}, err
	}
	d.Errors = feedErrors
	d.SourcesChecked = sources

	progress.done()
	g.opts.Metrics.DigestGenerated()
	g.log.Info("Digest generated",
		"feeds", len(feedList),
		"failed_feeds", len(feedErrors),
		"articles", len(collected),
		"relevant", len(enriched),
		"duration", time.Since(start).String())
	return d, nil
}

// GenerateFeed fetches one feed by name from catalog and returns its
// enriched, in-window articles. A fetch failure is returned as *FetchError.
func (g *Generator) GenerateFeed(ctx context.Context, catalog []core.FeedConfig, name string, days int) ([]core.Article, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDays, days)
	}
	feed, ok := feeds.Find(catalog, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, name)
	}

	articles, ferr := g.fetchFeed(ctx, feed, g.opts.Clock(), days)
	if ferr != nil {
		return nil, ferr
	}
	return g.enricher.Enrich(articles), nil
}

// fetchFeed runs fetch, normalize and the window filter for one feed.
func (g *Generator) fetchFeed(ctx context.Context, feed core.FeedConfig, now time.Time, days int) ([]core.Article, *FetchError) {
	fctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	started := time.Now()
	entries, err := g.fetcher.Fetch(fctx, feed.URL)
	if err == nil && fctx.Err() != nil {
		err = fctx.Err()
	}
	if err != nil {
		reason := describeFetchError(err)
		g.opts.Metrics.ObserveFetch(feed.Name, outcomeLabel(reason), time.Since(started))
		g.log.Warn("Feed fetch failed", "feed", feed.Name, "url", feed.URL, "error", err.Error())
		return nil, &FetchError{Feed: feed.Name, Reason: reason, Err: err}
	}
	g.opts.Metrics.ObserveFetch(feed.Name, "ok", time.Since(started))
	g.opts.Metrics.AddArticles("fetched", len(entries))

	articles := enrich.NormalizeFeed(entries, feed, now)
	return WithinWindow(articles, now, days), nil
}

func describeFetchError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "Timeout"
	case errors.Is(err, feeds.ErrParse):
		return "Feed parsing error"
	}
	msg := err.Error()
	if utf8.RuneCountInString(msg) > maxErrorRunes {
		msg = string([]rune(msg)[:maxErrorRunes])
	}
	return msg
}

func outcomeLabel(reason string) string {
	switch reason {
	case "Timeout":
		return "timeout"
	case "Feed parsing error":
		return "parse_error"
	default:
		return "error"
	}
}
