// Package digest assembles enriched articles into a digest and drives the
// fetch → normalize → enrich pipeline across many feeds.
package digest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"aidigest/internal/core"
)

var (
	// ErrInvalidDays is returned for a non-positive lookback window.
	ErrInvalidDays = errors.New("days must be a positive integer")
	// ErrNoFeeds is returned when generation is asked to run over zero feeds.
	ErrNoFeeds = errors.New("at least one feed is required")
	// ErrUnknownFeed is returned when a feed name is not in the catalog.
	ErrUnknownFeed = errors.New("unknown feed")
)

// Options controls digest assembly.
type Options struct {
	Days         int       // lookback window in days
	Now          time.Time // reference time for the window; zero means time.Now()
	TopN         int       // top stories to keep
	SpotlightN   int       // spotlight entries to keep
	SpotlightMin int       // minimum SMB score for the spotlight
}

// DefaultOptions returns the standard digest settings.
func DefaultOptions() Options {
	return Options{
		Days:         7,
		TopN:         5,
		SpotlightN:   3,
		SpotlightMin: 4,
	}
}

func (o Options) validate() error {
	if o.Days <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDays, o.Days)
	}
	if o.TopN < 0 || o.SpotlightN < 0 || o.SpotlightMin < 0 {
		return fmt.Errorf("digest limits must not be negative (top=%d, spotlight=%d, min score=%d)",
			o.TopN, o.SpotlightN, o.SpotlightMin)
	}
	return nil
}

// WithinWindow keeps articles published strictly after now minus days.
func WithinWindow(articles []core.Article, now time.Time, days int) []core.Article {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	kept := make([]core.Article, 0, len(articles))
	for _, a := range articles {
		if a.Published.After(cutoff) {
			kept = append(kept, a)
		}
	}
	return kept
}

// Assemble builds the digest views over already-enriched articles.
// Errors and SourcesChecked are left for the caller to fill in.
func Assemble(articles []core.Article, opts Options) (core.Digest, error) {
	if err := opts.validate(); err != nil {
		return core.Digest{}, err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	inWindow := WithinWindow(articles, now, opts.Days)
	byTopic, order := GroupByTopic(inWindow)

	return core.Digest{
		GeneratedAt:    now.UTC(),
		Days:           opts.Days,
		TopStories:     TopStories(inWindow, opts.TopN),
		SMBSpotlight:   Spotlight(inWindow, opts.SpotlightMin, opts.SpotlightN),
		ByTopic:        byTopic,
		TopicOrder:     order,
		Articles:       inWindow,
		Errors:         []core.FeedError{},
		SourcesChecked: []string{},
	}, nil
}

// TopStories orders by priority (1 first), then most recent first, and keeps n.
func TopStories(articles []core.Article, n int) []core.Article {
	sorted := make([]core.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Published.After(sorted[j].Published)
	})
	return head(sorted, n)
}

// Spotlight keeps articles scoring at least minScore, highest score first,
// ties in input order.
func Spotlight(articles []core.Article, minScore, n int) []core.Article {
	var picked []core.Article
	for _, a := range articles {
		if a.SMBScore >= minScore {
			picked = append(picked, a)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].SMBScore > picked[j].SMBScore
	})
	return head(picked, n)
}

// GroupByTopic groups articles by topic, preserving input order within each
// group. The returned order lists the standard topics in display order
// followed by any other labels in first-seen order; empty groups are omitted.
func GroupByTopic(articles []core.Article) (map[string][]core.Article, []string) {
	groups := make(map[string][]core.Article)
	var extra []string
	for _, a := range articles {
		if _, ok := groups[a.Topic]; !ok && !core.IsTopic(a.Topic) {
			extra = append(extra, a.Topic)
		}
		groups[a.Topic] = append(groups[a.Topic], a)
	}

	order := make([]string, 0, len(groups))
	for _, t := range core.Topics {
		if len(groups[t]) > 0 {
			order = append(order, t)
		}
	}
	return groups, append(order, extra...)
}

func head(articles []core.Article, n int) []core.Article {
	if len(articles) > n {
		articles = articles[:n]
	}
	if articles == nil {
		return []core.Article{}
	}
	return articles
}
