// Package summarize produces on-demand long-form summaries of article pages.
package summarize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"aidigest/internal/core"
	"aidigest/internal/logger"
	"aidigest/internal/metrics"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrURLRequired is returned for a request without a URL.
	ErrURLRequired = errors.New("URL is required")
	// ErrNoContent is returned when nothing could be extracted from the page.
	ErrNoContent = errors.New("No content could be extracted from the article")
)

const footerTemplate = `
<p style="margin-top: 20px; padding-top: 16px; border-top: 1px solid #e9ecef; font-size: 0.85rem;">
    <a href="%s" target="_blank" style="color: #667eea; text-decoration: none;">Read full article →</a>
</p>
`

// Request asks for one summary.
type Request struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Mode  string `json:"type"`
}

// Cache stores generated summaries. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, url, mode, contentHash string, maxAge time.Duration) (*core.Summary, error)
	Put(ctx context.Context, summary *core.Summary) error
}

// Service fetches an article and asks the generator for a summary.
type Service struct {
	extractor *Extractor
	gen       Generator
	metrics   *metrics.Metrics

	cache    Cache
	cacheTTL time.Duration
}

// NewService creates a Service. gen may be nil, in which case Summarize
// reports ErrNotConfigured.
func NewService(extractor *Extractor, gen Generator, m *metrics.Metrics) *Service {
	if extractor == nil {
		extractor = NewExtractor(nil, 0, 0)
	}
	return &Service{extractor: extractor, gen: gen, metrics: m}
}

// WithCache reuses summaries generated from unchanged article text within
// ttl. A zero ttl never expires entries.
func (s *Service) WithCache(c Cache, ttl time.Duration) *Service {
	s.cache = c
	s.cacheTTL = ttl
	return s
}

// Summarize returns sanitized HTML followed by a link to the full article.
func (s *Service) Summarize(ctx context.Context, req Request) (string, error) {
	mode := ParseMode(req.Mode)
	out, cached, err := s.summarize(ctx, req, mode)
	if err != nil {
		s.metrics.ObserveSummary(string(mode), "error")
		logger.Warn("Summary failed", "url", req.URL, "mode", string(mode), "error", err.Error())
		return "", err
	}
	outcome := "ok"
	if cached {
		outcome = "cached"
	}
	s.metrics.ObserveSummary(string(mode), outcome)
	return out, nil
}

func (s *Service) summarize(ctx context.Context, req Request, mode Mode) (string, bool, error) {
	pageURL := strings.TrimSpace(req.URL)
	if pageURL == "" {
		return "", false, ErrURLRequired
	}
	if s.gen == nil {
		return "", false, ErrNotConfigured
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Article"
	}

	text, err := s.extractor.Extract(ctx, pageURL)
	if err != nil {
		return "", false, err
	}
	if text == "" {
		return "", false, ErrNoContent
	}

	hash := contentHash(text)
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, pageURL, string(mode), hash, s.cacheTTL)
		if err != nil {
			logger.Warn("Summary cache lookup failed", "url", pageURL, "error", err.Error())
		} else if hit != nil {
			return hit.Content, true, nil
		}
	}

	reply, err := s.gen.Generate(ctx, BuildPrompt(mode, title, pageURL, text))
	if err != nil {
		return "", false, fmt.Errorf("failed to generate summary: %w", err)
	}
	out := Sanitize(reply) + fmt.Sprintf(footerTemplate, html.EscapeString(pageURL))

	if s.cache != nil {
		summary := &core.Summary{URL: pageURL, Mode: string(mode), Title: title, ContentHash: hash, Content: out}
		if err := s.cache.Put(ctx, summary); err != nil {
			logger.Warn("Failed to cache summary", "url", pageURL, "error", err.Error())
		}
	}
	return out, false, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Sanitize drops scripts, event handlers and unsafe URLs from model output
// while keeping headings, lists and emphasis.
func Sanitize(s string) string {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowURLSchemes("http", "https", "mailto")
		p.AddTargetBlankToFullyQualifiedLinks(true)
		policy = p
	})
	return strings.TrimSpace(policy.Sanitize(stripCodeFence(s)))
}

// Models sometimes wrap HTML replies in a ```html fence.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```html")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

var (
	mdOnce      sync.Once
	mdConverter *htmltomarkdown.Converter
)

// ToMarkdown converts a summary to markdown for terminal output.
func ToMarkdown(htmlText string) (string, error) {
	mdOnce.Do(func() {
		mdConverter = htmltomarkdown.NewConverter(
			htmltomarkdown.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
	})
	md, err := mdConverter.ConvertString(htmlText)
	if err != nil {
		return "", fmt.Errorf("failed to convert summary to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
