// Package persistence provides database abstraction interfaces for the admin
// records: feeds, categories, ICP profiles, settings, feed suggestions and
// cached summaries.
package persistence

import (
	"aidigest/internal/core"
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalid is returned for records that fail validation before any write.
	ErrInvalid = errors.New("invalid record")
)

// FeedRepository handles RSS/Atom feed records
type FeedRepository interface {
	// List returns every feed ordered by category then name
	List(ctx context.Context) ([]core.Feed, error)

	// ListActive returns only active feeds
	ListActive(ctx context.Context) ([]core.Feed, error)

	Get(ctx context.Context, id string) (*core.Feed, error)

	// Create validates and inserts a feed, filling defaults
	Create(ctx context.Context, feed *core.Feed) error

	// Update applies the non-nil fields of patch and returns the new record
	Update(ctx context.Context, id string, patch FeedPatch) (*core.Feed, error)

	Delete(ctx context.Context, id string) error

	SetActive(ctx context.Context, id string, active bool) (*core.Feed, error)
}

// CategoryRepository handles feed categories
type CategoryRepository interface {
	// List returns categories ordered by display order
	List(ctx context.Context) ([]core.Category, error)
	Create(ctx context.Context, category *core.Category) error
	Update(ctx context.Context, id string, patch CategoryPatch) (*core.Category, error)
	Delete(ctx context.Context, id string) error
}

// ICPProfileRepository handles ideal customer profiles. At most one profile
// is the default.
type ICPProfileRepository interface {
	// List returns profiles ordered by name
	List(ctx context.Context) ([]core.ICPProfile, error)
	ListActive(ctx context.Context) ([]core.ICPProfile, error)
	Get(ctx context.Context, id string) (*core.ICPProfile, error)
	GetDefault(ctx context.Context) (*core.ICPProfile, error)
	Create(ctx context.Context, profile *core.ICPProfile) error
	Update(ctx context.Context, id string, patch ICPPatch) (*core.ICPProfile, error)
	Delete(ctx context.Context, id string) error
	SetDefault(ctx context.Context, id string) (*core.ICPProfile, error)
}

// SettingsRepository is a key-value store of raw JSON values
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*core.Setting, error)
	// Set inserts or replaces the value for key
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]core.Setting, error)
}

// SuggestionRepository holds feed recommendations for discovery. Lists are
// ordered by popularity, highest first.
type SuggestionRepository interface {
	// List returns suggestions whose tags include every tag given
	List(ctx context.Context, tags []string, limit int) ([]core.FeedSuggestion, error)

	// Search matches term case-insensitively against name and description
	Search(ctx context.Context, term string, limit int) ([]core.FeedSuggestion, error)

	Create(ctx context.Context, suggestion *core.FeedSuggestion) error
}

// SummaryRepository caches generated article summaries
type SummaryRepository interface {
	// Get returns nil, nil on a miss
	Get(ctx context.Context, url, mode, contentHash string, maxAge time.Duration) (*core.Summary, error)
	Put(ctx context.Context, summary *core.Summary) error
	Stats(ctx context.Context) (SummaryStats, error)
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
	Clear(ctx context.Context) (int64, error)
}

// Store groups the repositories behind one connection
type Store interface {
	Feeds() FeedRepository
	Categories() CategoryRepository
	ICPProfiles() ICPProfileRepository
	Settings() SettingsRepository
	Suggestions() SuggestionRepository
	Summaries() SummaryRepository
	Ping(ctx context.Context) error
	Close() error
}

// FeedPatch lists the feed fields an update may change. Nil fields are left
// untouched.
type FeedPatch struct {
	Name        *string `json:"name"`
	URL         *string `json:"url"`
	Category    *string `json:"category"`
	Priority    *int    `json:"priority"`
	FeedType    *string `json:"feed_type"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// Empty reports whether the patch changes nothing.
func (p FeedPatch) Empty() bool { return len(p.values()) == 0 }

func (p FeedPatch) values() map[string]any {
	m := map[string]any{}
	setIf(m, "name", p.Name)
	setIf(m, "url", p.URL)
	setIf(m, "category", p.Category)
	setIf(m, "priority", p.Priority)
	setIf(m, "feed_type", p.FeedType)
	setIf(m, "description", p.Description)
	setIf(m, "is_active", p.IsActive)
	return m
}

// CategoryPatch lists the category fields an update may change.
type CategoryPatch struct {
	Name         *string `json:"name"`
	DisplayOrder *int    `json:"display_order"`
	Color        *string `json:"color"`
}

func (p CategoryPatch) Empty() bool { return len(p.values()) == 0 }

func (p CategoryPatch) values() map[string]any {
	m := map[string]any{}
	setIf(m, "name", p.Name)
	setIf(m, "display_order", p.DisplayOrder)
	setIf(m, "color", p.Color)
	return m
}

// ICPPatch lists the profile fields an update may change.
type ICPPatch struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Data        *map[string]any `json:"data"`
	IsActive    *bool           `json:"is_active"`
	IsDefault   *bool           `json:"is_default"`
}

func (p ICPPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Data == nil && p.IsActive == nil && p.IsDefault == nil
}

func setIf[T any](m map[string]any, col string, v *T) {
	if v != nil {
		m[col] = *v
	}
}
