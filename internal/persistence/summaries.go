package persistence

import (
	"aidigest/internal/core"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// SummaryStats describes the summary cache.
type SummaryStats struct {
	Count  int       `json:"count"`
	Oldest time.Time `json:"oldest"`
	Newest time.Time `json:"newest"`
}

type summaryRepo struct {
	d *DB
}

// Get returns the cached summary for url and mode if it was generated from
// the same content within maxAge. A miss returns nil, nil.
func (r *summaryRepo) Get(ctx context.Context, url, mode, contentHash string, maxAge time.Duration) (*core.Summary, error) {
	b := r.d.sb.Select("url", "mode", "title", "content_hash", "content", "created_at").
		From("summaries").
		Where(sq.Eq{"url": url, "mode": mode, "content_hash": contentHash})
	if maxAge > 0 {
		b = b.Where(sq.Gt{"created_at": time.Now().Add(-maxAge).Unix()})
	}

	row, err := queryRowBuilder(ctx, r.d.db, b)
	if err != nil {
		return nil, err
	}

	var (
		s       core.Summary
		created int64
	)
	err = row.Scan(&s.URL, &s.Mode, &s.Title, &s.ContentHash, &s.Content, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}
	s.CreatedAt = time.Unix(created, 0).UTC()
	return &s, nil
}

// Put stores s, replacing any summary for the same url and mode.
func (r *summaryRepo) Put(ctx context.Context, s *core.Summary) error {
	if s.URL == "" || s.Mode == "" {
		return fmt.Errorf("%w: summary url and mode are required", ErrInvalid)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := execBuilder(ctx, r.d.db, r.d.sb.Insert("summaries").
		Columns("url", "mode", "title", "content_hash", "content", "created_at").
		Values(s.URL, s.Mode, s.Title, s.ContentHash, s.Content, s.CreatedAt.Unix()).
		Suffix(`ON CONFLICT (url, mode) DO UPDATE SET title = excluded.title,
			content_hash = excluded.content_hash, content = excluded.content, created_at = excluded.created_at`))
	if err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	return nil
}

func (r *summaryRepo) Stats(ctx context.Context) (SummaryStats, error) {
	row, err := queryRowBuilder(ctx, r.d.db, r.d.sb.
		Select("COUNT(*)", "COALESCE(MIN(created_at), 0)", "COALESCE(MAX(created_at), 0)").
		From("summaries"))
	if err != nil {
		return SummaryStats{}, err
	}

	var (
		stats          SummaryStats
		oldest, newest int64
	)
	if err := row.Scan(&stats.Count, &oldest, &newest); err != nil {
		return SummaryStats{}, fmt.Errorf("failed to get summary stats: %w", err)
	}
	if stats.Count > 0 {
		stats.Oldest = time.Unix(oldest, 0).UTC()
		stats.Newest = time.Unix(newest, 0).UTC()
	}
	return stats, nil
}

// Cleanup removes summaries older than maxAge and reports how many went.
func (r *summaryRepo) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := execBuilder(ctx, r.d.db, r.d.sb.Delete("summaries").
		Where(sq.Lt{"created_at": time.Now().Add(-maxAge).Unix()}))
	if err != nil {
		return 0, fmt.Errorf("failed to clean summaries: %w", err)
	}
	return res.RowsAffected()
}

func (r *summaryRepo) Clear(ctx context.Context) (int64, error) {
	res, err := execBuilder(ctx, r.d.db, r.d.sb.Delete("summaries"))
	if err != nil {
		return 0, fmt.Errorf("failed to clear summaries: %w", err)
	}
	return res.RowsAffected()
}
