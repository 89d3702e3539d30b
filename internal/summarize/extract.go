package summarize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultMaxWords     = 4000
	maxPageBytes        = 5 << 20
	browserUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// contentSelectors are tried in order when readability finds nothing.
var contentSelectors = []string{"article", "main", ".post-content", ".article-content", ".entry-content"}

// Extractor downloads an article page and reduces it to plain text.
type Extractor struct {
	client   *http.Client
	timeout  time.Duration
	maxWords int
}

// NewExtractor creates an Extractor. Zero values select the defaults.
func NewExtractor(client *http.Client, timeout time.Duration, maxWords int) *Extractor {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Extractor{client: client, timeout: timeout, maxWords: maxWords}
}

// Extract fetches pageURL and returns its main text, one line per block and
// capped at the configured word count.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("failed to fetch article: invalid URL %q", pageURL)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch article: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}

	text := readableText(body, parsedURL)
	if text == "" {
		text, err = selectorText(body)
		if err != nil {
			return "", fmt.Errorf("failed to fetch article: %w", err)
		}
	}
	return capWords(cleanLines(text), e.maxWords), nil
}

func readableText(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// selectorText strips page chrome and takes the first content container,
// falling back to <body>.
func selectorText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav, header, footer, aside").Remove()

	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return nodeText(s), nil
		}
	}
	return nodeText(doc.Find("body").First()), nil
}

// nodeText joins every text node under s with newlines.
func nodeText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}

func cleanLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// capWords truncates to maxWords words. Truncated text is re-joined with
// single spaces and ends with "...".
func capWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
