// Package enrich turns raw feed entries into scored, classified and annotated
// articles. Every function here is pure: no I/O, no shared state.
package enrich

import (
	"aidigest/internal/core"
	"aidigest/internal/logger"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

const (
	maxSummaryRunes = 500
	ellipsis        = "..."
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// NormalizeFeed maps every entry of one feed into an Article, preserving order.
func NormalizeFeed(entries []core.RawEntry, feed core.FeedConfig, now time.Time) []core.Article {
	articles := make([]core.Article, 0, len(entries))
	for _, entry := range entries {
		articles = append(articles, NormalizeEntry(entry, feed, now))
	}
	return articles
}

// NormalizeEntry converts one raw entry into an Article. It never fails: a
// panic during extraction is recovered and the fields extracted so far are
// kept, with the publication date falling back to now.
func NormalizeEntry(entry core.RawEntry, feed core.FeedConfig, now time.Time) (article core.Article) {
	now = now.UTC()
	article = core.Article{
		Title:    core.DefaultTitle,
		Source:   feed.Name,
		Category: feed.Category,
		Priority: feed.Priority,
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Recovered while normalizing entry", "feed", feed.Name, "panic", fmt.Sprint(r))
			article.Published = now
			article.PublishedDisplay = now.Format(core.DisplayDateFmt)
			article.ID = articleID(article)
		}
	}()

	if title := strings.TrimSpace(entry.Title); title != "" {
		article.Title = title
	}
	article.Link = strings.TrimSpace(entry.Link)
	article.Summary = CleanSummary(firstNonEmpty(entry.Summary, entry.Description))
	article.Published = ResolvePublished(entry, now)
	article.PublishedDisplay = article.Published.Format(core.DisplayDateFmt)
	article.ID = articleID(article)
	return article
}

// ResolvePublished picks the publication date of an entry. Structured dates
// are tried first (published, updated, created), then the free-text fields in
// the same order, then now.
func ResolvePublished(entry core.RawEntry, now time.Time) time.Time {
	for _, parts := range []*core.DateParts{entry.PublishedParsed, entry.UpdatedParsed, entry.CreatedParsed} {
		if parts == nil {
			continue
		}
		if t, err := parts.Time(); err == nil {
			return t
		}
	}

	for _, s := range []string{entry.Published, entry.Updated, entry.Created} {
		if t, ok := ParseDate(s); ok {
			return t
		}
	}

	return now.UTC()
}

// ParseDate parses a free-text date permissively. Dates without a zone are
// read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// CleanSummary strips markup, truncates to 500 characters plus an ellipsis
// and trims surrounding whitespace.
func CleanSummary(raw string) string {
	s := tagPattern.ReplaceAllString(raw, "")
	if utf8.RuneCountInString(s) > maxSummaryRunes {
		s = truncateRunes(s, maxSummaryRunes) + ellipsis
	}
	return strings.TrimSpace(s)
}

func articleID(a core.Article) string {
	key := a.Link
	if key == "" {
		key = a.Source + "|" + a.Title
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
