package core

import (
	"fmt"
	"time"
)

// Topic labels assigned by the classifier.
const (
	TopicFunding   = "Funding & Deals"
	TopicProduct   = "Product News"
	TopicResearch  = "Research"
	TopicPolicy    = "Policy & Regulation"
	TopicBigTech   = "Big Tech"
	TopicSMB       = "SMB Focus"
	TopicGeneral   = "General AI News"
	DefaultTitle   = "No title"
	DisplayDateFmt = "Jan 02, 2006"
)

// Topics lists every topic label in display order.
var Topics = []string{
	TopicBigTech,
	TopicFunding,
	TopicProduct,
	TopicResearch,
	TopicPolicy,
	TopicSMB,
	TopicGeneral,
}

// IsTopic reports whether label is one of the fixed topic labels.
func IsTopic(label string) bool {
	for _, t := range Topics {
		if t == label {
			return true
		}
	}
	return false
}

// FeedConfig describes one configured feed source. The pipeline only reads it.
type FeedConfig struct {
	Name     string `json:"name" yaml:"name"`         // Display name, also used as Article.Source
	URL      string `json:"url" yaml:"url"`           // RSS/Atom URL
	Category string `json:"category" yaml:"category"` // Feed-level category (not the computed topic)
	Priority int    `json:"priority" yaml:"priority"` // 1 = higher editorial weight, 2 = lower
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
}

// DateParts is a structured date as exposed by feed parsers.
type DateParts struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// DatePartsOf splits t (in UTC) into its calendar components.
func DatePartsOf(t time.Time) *DateParts {
	t = t.UTC()
	return &DateParts{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Time builds a UTC timestamp from the components. Out-of-range components
// are rejected rather than normalized.
func (d DateParts) Time() (time.Time, error) {
	if d.Year < 1 || d.Year > 9999 {
		return time.Time{}, fmt.Errorf("year %d out of range", d.Year)
	}
	if d.Month < 1 || d.Month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", d.Month)
	}
	// Day zero of the next month is the last day of this one.
	last := time.Date(d.Year, time.Month(d.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if d.Day < 1 || d.Day > last {
		return time.Time{}, fmt.Errorf("day %d out of range for %04d-%02d", d.Day, d.Year, d.Month)
	}
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second > 59 {
		return time.Time{}, fmt.Errorf("time %02d:%02d:%02d out of range", d.Hour, d.Minute, d.Second)
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, time.UTC), nil
}

// RawEntry is one entry as returned by the feed source. Every field is optional;
// an empty string or nil pointer means the field was absent.
type RawEntry struct {
	Title       string
	Link        string
	Summary     string
	Description string

	PublishedParsed *DateParts
	UpdatedParsed   *DateParts
	CreatedParsed   *DateParts

	Published string
	Updated   string
	Created   string
}

// Impact is the "what it means" annotation of an article.
type Impact struct {
	GeneralImpact string `json:"general_impact"`
	SMBImpact     string `json:"smb_impact"`
}

// Article is a normalized feed entry. Core fields are set by the normalizer;
// enrichment fields are added by later stages.
type Article struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Link             string    `json:"link"`
	Summary          string    `json:"summary"`
	Published        time.Time `json:"published"`
	PublishedDisplay string    `json:"published_display"`
	Source           string    `json:"source"`
	Category         string    `json:"category"`
	Priority         int       `json:"priority"`

	SMBScore           int      `json:"smb_score"`
	Topic              string   `json:"topic,omitempty"`
	KeyBullets         []string `json:"key_bullets,omitempty"`
	ViralScore         int      `json:"viral_score"`
	Impact             *Impact  `json:"impact,omitempty"`
	ContentSuggestions []string `json:"content_suggestions"` // nil unless the article is viral
}

// Text returns the lowercase-ready text the keyword stages match against.
func (a Article) Text() string {
	return a.Title + " " + a.Summary
}

// FeedError records one feed that contributed no articles.
type FeedError struct {
	Feed  string `json:"feed"`
	Error string `json:"error"`
}

// Digest is the assembled view over one lookback window.
type Digest struct {
	GeneratedAt    time.Time            `json:"generated_at"`
	Days           int                  `json:"days"`
	TopStories     []Article            `json:"top_stories"`
	SMBSpotlight   []Article            `json:"smb_spotlight"`
	ByTopic        map[string][]Article `json:"by_topic"`
	TopicOrder     []string             `json:"topic_order"`
	Articles       []Article            `json:"all_articles"`
	Errors         []FeedError          `json:"errors"`
	SourcesChecked []string             `json:"sources_checked"`
}

// Feed is a persisted feed record managed through the admin surface.
type Feed struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	Priority    int       `json:"priority"`
	FeedType    string    `json:"feed_type"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Config converts the record into the read-only shape the pipeline consumes.
func (f Feed) Config() FeedConfig {
	return FeedConfig{
		Name:     f.Name,
		URL:      f.URL,
		Category: f.Category,
		Priority: f.Priority,
		Type:     f.FeedType,
	}
}

// Category is an admin-defined feed category.
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"display_order"`
	Color        string    `json:"color"`
	CreatedAt    time.Time `json:"created_at"`
}

// ICPProfile is a stored ideal-customer-profile description.
type ICPProfile struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data"`
	SourceType  string         `json:"source_type"` // "json" or "text"
	IsActive    bool           `json:"is_active"`
	IsDefault   bool           `json:"is_default"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FeedSuggestion is a stored feed recommendation offered by feed discovery.
type FeedSuggestion struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	URL             string    `json:"url"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	RelevanceTags   []string  `json:"relevance_tags"`
	PopularityScore int       `json:"popularity_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// Setting is one key-value admin setting. Value holds raw JSON.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is a cached long-form article summary. ContentHash identifies the
// extracted article text the summary was generated from.
type Summary struct {
	URL         string    `json:"url"`
	Mode        string    `json:"mode"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}
