// Package feeds provides RSS/Atom feed fetching and the feed catalog
package feeds

import (
	"aidigest/internal/core"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	// DefaultUserAgent looks like a browser; several publishers reject bot agents.
	DefaultUserAgent = "Mozilla/5.0 (compatible; AIDigest/1.0; +https://github.com/aidigest)"
	DefaultTimeout   = 8 * time.Second
)

// ErrParse marks a response body that is not a readable RSS/Atom/JSON feed.
var ErrParse = errors.New("feed parsing error")

// Fetcher retrieves the raw entries of one feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]core.RawEntry, error)
}

// Parsed is a fetched feed with its channel metadata.
type Parsed struct {
	Title       string
	Description string
	Entries     []core.RawEntry
}

// HTTPFetcher fetches feeds over HTTP and parses them with gofeed.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// Options configures an HTTPFetcher.
type Options struct {
	Timeout   time.Duration // per-fetch timeout, applied on top of the caller's context
	UserAgent string
	Client    *http.Client
}

// NewHTTPFetcher creates a fetcher. Zero options select the defaults.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &HTTPFetcher{
		client:    opts.Client,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]core.RawEntry, error) {
	parsed, err := f.FetchFeed(ctx, url)
	if err != nil {
		return nil, err
	}
	return parsed.Entries, nil
}

// FetchFeed fetches and parses a feed, keeping the channel metadata.
func (f *HTTPFetcher) FetchFeed(ctx context.Context, url string) (*Parsed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		// A deadline hit while streaming the body is a timeout, not bad XML.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to read feed: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	parsed := &Parsed{
		Title:       feed.Title,
		Description: feed.Description,
		Entries:     make([]core.RawEntry, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed.Entries = append(parsed.Entries, entryFromItem(item))
	}
	return parsed, nil
}

// entryFromItem maps a gofeed item onto the raw entry shape. The item
// description is the feed's summary; full content is the fallback.
func entryFromItem(item *gofeed.Item) core.RawEntry {
	entry := core.RawEntry{
		Title:       item.Title,
		Link:        item.Link,
		Summary:     item.Description,
		Description: item.Content,
		Published:   item.Published,
		Updated:     item.Updated,
	}
	if item.Link == "" && len(item.Links) > 0 {
		entry.Link = item.Links[0]
	}
	if item.PublishedParsed != nil {
		entry.PublishedParsed = core.DatePartsOf(*item.PublishedParsed)
	}
	if item.UpdatedParsed != nil {
		entry.UpdatedParsed = core.DatePartsOf(*item.UpdatedParsed)
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
		entry.Created = item.DublinCoreExt.Date[0]
	}
	return entry
}

// Validation is the result of probing a feed URL.
type Validation struct {
	Valid       bool    `json:"valid"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	EntryCount  int     `json:"entry_count"`
	SampleEntry *string `json:"sample_entry"`
	Error       string  `json:"error,omitempty"`
}

// Validate fetches url and reports whether it is a usable feed. Failures are
// reported in the result rather than as an error.
func (f *HTTPFetcher) Validate(ctx context.Context, url string) Validation {
	url = strings.TrimSpace(url)
	if url == "" {
		return Validation{Error: "URL is required"}
	}

	parsed, err := f.FetchFeed(ctx, url)
	if err != nil {
		return Validation{Error: err.Error()}
	}

	v := Validation{
		Valid:       true,
		Title:       parsed.Title,
		Description: parsed.Description,
		EntryCount:  len(parsed.Entries),
	}
	if v.Title == "" {
		v.Title = "Unknown"
	}
	if len(parsed.Entries) > 0 {
		sample := parsed.Entries[0].Title
		v.SampleEntry = &sample
	}
	return v
}
