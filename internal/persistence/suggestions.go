package persistence

import (
	"aidigest/internal/core"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// DefaultSuggestionCategory is used for suggestions stored without a category.
const DefaultSuggestionCategory = "Newsletter"

var suggestionColumns = []string{
	"id", "name", "url", "description", "category",
	"relevance_tags", "popularity_score", "created_at",
}

type suggestionRepo struct {
	d *DB
}

func (r *suggestionRepo) List(ctx context.Context, tags []string, limit int) ([]core.FeedSuggestion, error) {
	b := r.d.sb.Select(suggestionColumns...).From("feed_suggestions").OrderBy("popularity_score DESC", "name")
	if len(tags) == 0 && limit > 0 {
		b = b.Limit(uint64(limit))
	}

	all, err := r.list(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return all, nil
	}

	// Tags live in a JSON column, so containment is checked here rather than in SQL.
	matched := []core.FeedSuggestion{}
	for _, s := range all {
		if hasAllTags(s.RelevanceTags, tags) {
			matched = append(matched, s)
			if limit > 0 && len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

func (r *suggestionRepo) Search(ctx context.Context, term string, limit int) ([]core.FeedSuggestion, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []core.FeedSuggestion{}, nil
	}
	pattern := "%" + strings.ToLower(term) + "%"

	b := r.d.sb.Select(suggestionColumns...).From("feed_suggestions").
		Where(sq.Or{
			sq.Like{"LOWER(name)": pattern},
			sq.Like{"LOWER(description)": pattern},
		}).
		OrderBy("popularity_score DESC", "name")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.list(ctx, b)
}

func (r *suggestionRepo) Create(ctx context.Context, s *core.FeedSuggestion) error {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	if s.Name == "" || s.URL == "" {
		return fmt.Errorf("%w: name and URL are required", ErrInvalid)
	}
	if s.Category == "" {
		s.Category = DefaultSuggestionCategory
	}
	if s.RelevanceTags == nil {
		s.RelevanceTags = []string{}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()

	tags, err := json.Marshal(s.RelevanceTags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = execBuilder(ctx, r.d.db, r.d.sb.Insert("feed_suggestions").Columns(suggestionColumns...).Values(
		s.ID, s.Name, s.URL, s.Description, s.Category,
		string(tags), s.PopularityScore, formatTime(s.CreatedAt),
	))
	if err != nil {
		return fmt.Errorf("failed to create feed suggestion: %w", err)
	}
	return nil
}

func (r *suggestionRepo) list(ctx context.Context, b sq.SelectBuilder) ([]core.FeedSuggestion, error) {
	rows, err := queryBuilder(ctx, r.d.db, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	suggestions := []core.FeedSuggestion{}
	for rows.Next() {
		var (
			s             core.FeedSuggestion
			tags, created string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.Description, &s.Category,
			&tags, &s.PopularityScore, &created); err != nil {
			return nil, fmt.Errorf("failed to scan feed suggestion: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &s.RelevanceTags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", s.URL, err)
		}
		s.CreatedAt = parseTime(created)
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

func hasAllTags(have, want []string) bool {
	for _, t := range want {
		if !slices.Contains(have, t) {
			return false
		}
	}
	return true
}
