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

const DefaultCategoryColor = "#6366f1"

var categoryColumns = []string{"id", "name", "display_order", "color", "created_at"}

type categoryRepo struct {
	d *DB
}

func (r *categoryRepo) List(ctx context.Context) ([]core.Category, error) {
	rows, err := queryBuilder(ctx, r.d.db, r.d.sb.Select(categoryColumns...).From("categories").OrderBy("display_order", "name"))
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *categoryRepo) get(ctx context.Context, id string) (*core.Category, error) {
	row, err := queryRowBuilder(ctx, r.d.db, r.d.sb.Select(categoryColumns...).From("categories").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return scanCategory(row)
}

func (r *categoryRepo) Create(ctx context.Context, c *core.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if c.Color == "" {
		c.Color = DefaultCategoryColor
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := execBuilder(ctx, r.d.db, r.d.sb.Insert("categories").Columns(categoryColumns...).
		Values(c.ID, c.Name, c.DisplayOrder, c.Color, formatTime(c.CreatedAt)))
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepo) Update(ctx context.Context, id string, patch CategoryPatch) (*core.Category, error) {
	values := patch.values()
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	res, err := execBuilder(ctx, r.d.db, r.d.sb.Update("categories").SetMap(values).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

func (r *categoryRepo) Delete(ctx context.Context, id string) error {
	res, err := execBuilder(ctx, r.d.db, r.d.sb.Delete("categories").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return affected(res)
}

func scanCategory(s scanner) (*core.Category, error) {
	var (
		c       core.Category
		created string
	)
	err := s.Scan(&c.ID, &c.Name, &c.DisplayOrder, &c.Color, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	c.CreatedAt = parseTime(created)
	return &c, nil
}
