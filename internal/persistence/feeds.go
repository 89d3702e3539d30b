package persistence

import (
	"aidigest/internal/core"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const (
	DefaultCategory = "Uncategorized"
	DefaultPriority = 2
	DefaultFeedType = "news"
)

var feedColumns = []string{
	"id", "name", "url", "category", "priority", "feed_type",
	"description", "is_active", "created_at", "updated_at",
}

type feedRepo struct {
	d *DB
}

func (r *feedRepo) List(ctx context.Context) ([]core.Feed, error) {
	return r.list(ctx, r.d.sb.Select(feedColumns...).From("feeds").OrderBy("category", "name"))
}

func (r *feedRepo) ListActive(ctx context.Context) ([]core.Feed, error) {
	return r.list(ctx, r.d.sb.Select(feedColumns...).From("feeds").
		Where(sq.Eq{"is_active": true}).OrderBy("category", "name"))
}

func (r *feedRepo) list(ctx context.Context, b sq.SelectBuilder) ([]core.Feed, error) {
	rows, err := queryBuilder(ctx, r.d.db, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := []core.Feed{}
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *feed)
	}
	return feeds, rows.Err()
}

func (r *feedRepo) Get(ctx context.Context, id string) (*core.Feed, error) {
	row, err := queryRowBuilder(ctx, r.d.db, r.d.sb.Select(feedColumns...).From("feeds").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return scanFeed(row)
}

func (r *feedRepo) Create(ctx context.Context, feed *core.Feed) error {
	feed.Name = strings.TrimSpace(feed.Name)
	feed.URL = strings.TrimSpace(feed.URL)
	if feed.Name == "" || feed.URL == "" {
		return fmt.Errorf("%w: name and URL are required", ErrInvalid)
	}
	if feed.Category == "" {
		feed.Category = DefaultCategory
	}
	if feed.Priority == 0 {
		feed.Priority = DefaultPriority
	}
	if feed.FeedType == "" {
		feed.FeedType = DefaultFeedType
	}
	if feed.ID == "" {
		feed.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	feed.CreatedAt, feed.UpdatedAt = now, now

	_, err := execBuilder(ctx, r.d.db, r.d.sb.Insert("feeds").Columns(feedColumns...).Values(
		feed.ID, feed.Name, feed.URL, feed.Category, feed.Priority, feed.FeedType,
		feed.Description, feed.IsActive, formatTime(now), formatTime(now),
	))
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}
	return nil
}

func (r *feedRepo) Update(ctx context.Context, id string, patch FeedPatch) (*core.Feed, error) {
	values := patch.values()
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	values["updated_at"] = formatTime(time.Now())

	res, err := execBuilder(ctx, r.d.db, r.d.sb.Update("feeds").SetMap(values).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to update feed: %w", err)
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *feedRepo) SetActive(ctx context.Context, id string, active bool) (*core.Feed, error) {
	return r.Update(ctx, id, FeedPatch{IsActive: &active})
}

func (r *feedRepo) Delete(ctx context.Context, id string) error {
	res, err := execBuilder(ctx, r.d.db, r.d.sb.Delete("feeds").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	return affected(res)
}

func scanFeed(s scanner) (*core.Feed, error) {
	var (
		feed             core.Feed
		created, updated string
	)
	err := s.Scan(&feed.ID, &feed.Name, &feed.URL, &feed.Category, &feed.Priority,
		&feed.FeedType, &feed.Description, &feed.IsActive, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}
	feed.CreatedAt = parseTime(created)
	feed.UpdatedAt = parseTime(updated)
	return &feed, nil
}
