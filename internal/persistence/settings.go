package persistence

import (
	"aidigest/internal/core"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

type settingsRepo struct {
	d *DB
}

func (r *settingsRepo) Get(ctx context.Context, key string) (*core.Setting, error) {
	row, err := queryRowBuilder(ctx, r.d.db, r.d.sb.Select("key", "value", "updated_at").
		From("admin_settings").Where(sq.Eq{"key": key}))
	if err != nil {
		return nil, err
	}
	return scanSetting(row)
}

// Set stores value, which must be valid JSON.
func (r *settingsRepo) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: setting key is required", ErrInvalid)
	}
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("%w: setting %q is not valid JSON", ErrInvalid, key)
	}

	_, err := execBuilder(ctx, r.d.db, r.d.sb.Insert("admin_settings").
		Columns("key", "value", "updated_at").
		Values(key, value, formatTime(time.Now())).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at"))
	if err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

func (r *settingsRepo) All(ctx context.Context) ([]core.Setting, error) {
	rows, err := queryBuilder(ctx, r.d.db, r.d.sb.Select("key", "value", "updated_at").
		From("admin_settings").OrderBy("key"))
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	settings := []core.Setting{}
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, *s)
	}
	return settings, rows.Err()
}

func scanSetting(s scanner) (*core.Setting, error) {
	var (
		setting core.Setting
		updated string
	)
	err := s.Scan(&setting.Key, &setting.Value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan setting: %w", err)
	}
	setting.UpdatedAt = parseTime(updated)
	return &setting, nil
}
