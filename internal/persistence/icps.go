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
	"github.com/google/uuid"
)

const (
	SourceJSON = "json"
	SourceText = "text"
)

var icpColumns = []string{
	"id", "name", "description", "data", "source_type",
	"is_active", "is_default", "created_at", "updated_at",
}

type icpRepo struct {
	d *DB
}

func (r *icpRepo) List(ctx context.Context) ([]core.ICPProfile, error) {
	return r.list(ctx, r.d.sb.Select(icpColumns...).From("icp_profiles").OrderBy("name"))
}

func (r *icpRepo) ListActive(ctx context.Context) ([]core.ICPProfile, error) {
	return r.list(ctx, r.d.sb.Select(icpColumns...).From("icp_profiles").
		Where(sq.Eq{"is_active": true}).OrderBy("name"))
}

func (r *icpRepo) list(ctx context.Context, b sq.SelectBuilder) ([]core.ICPProfile, error) {
	rows, err := queryBuilder(ctx, r.d.db, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list ICP profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	profiles := []core.ICPProfile{}
	for rows.Next() {
		p, err := scanICP(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (r *icpRepo) Get(ctx context.Context, id string) (*core.ICPProfile, error) {
	row, err := queryRowBuilder(ctx, r.d.db, r.d.sb.Select(icpColumns...).From("icp_profiles").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return scanICP(row)
}

func (r *icpRepo) GetDefault(ctx context.Context) (*core.ICPProfile, error) {
	row, err := queryRowBuilder(ctx, r.d.db, r.d.sb.Select(icpColumns...).From("icp_profiles").
		Where(sq.Eq{"is_default": true}).Limit(1))
	if err != nil {
		return nil, err
	}
	return scanICP(row)
}

func (r *icpRepo) Create(ctx context.Context, p *core.ICPProfile) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if p.SourceType == "" {
		p.SourceType = SourceJSON
	}
	if p.SourceType != SourceJSON && p.SourceType != SourceText {
		return fmt.Errorf("%w: invalid source_type: %s", ErrInvalid, p.SourceType)
	}
	if p.Data == nil {
		p.Data = map[string]any{}
	}
	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("%w: failed to encode profile data: %v", ErrInvalid, err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if p.IsDefault {
			if err := r.clearDefault(ctx, tx, ""); err != nil {
				return err
			}
		}
		_, err := execBuilder(ctx, tx, r.d.sb.Insert("icp_profiles").Columns(icpColumns...).Values(
			p.ID, p.Name, p.Description, string(data), p.SourceType,
			p.IsActive, p.IsDefault, formatTime(now), formatTime(now),
		))
		if err != nil {
			return fmt.Errorf("failed to create ICP profile: %w", err)
		}
		return nil
	})
}

func (r *icpRepo) Update(ctx context.Context, id string, patch ICPPatch) (*core.ICPProfile, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	values := map[string]any{"updated_at": formatTime(time.Now())}
	setIf(values, "name", patch.Name)
	setIf(values, "description", patch.Description)
	setIf(values, "is_active", patch.IsActive)
	setIf(values, "is_default", patch.IsDefault)
	if patch.Data != nil {
		data, err := json.Marshal(*patch.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode profile data: %v", ErrInvalid, err)
		}
		values["data"] = string(data)
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if patch.IsDefault != nil && *patch.IsDefault {
			if err := r.clearDefault(ctx, tx, id); err != nil {
				return err
			}
		}
		res, err := execBuilder(ctx, tx, r.d.sb.Update("icp_profiles").SetMap(values).Where(sq.Eq{"id": id}))
		if err != nil {
			return fmt.Errorf("failed to update ICP profile: %w", err)
		}
		return affected(res)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *icpRepo) SetDefault(ctx context.Context, id string) (*core.ICPProfile, error) {
	isDefault := true
	return r.Update(ctx, id, ICPPatch{IsDefault: &isDefault})
}

func (r *icpRepo) Delete(ctx context.Context, id string) error {
	res, err := execBuilder(ctx, r.d.db, r.d.sb.Delete("icp_profiles").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete ICP profile: %w", err)
	}
	return affected(res)
}

// clearDefault unsets the default flag on every profile except keepID.
func (r *icpRepo) clearDefault(ctx context.Context, tx *sql.Tx, keepID string) error {
	b := r.d.sb.Update("icp_profiles").Set("is_default", false).Where(sq.Eq{"is_default": true})
	if keepID != "" {
		b = b.Where(sq.NotEq{"id": keepID})
	}
	if _, err := execBuilder(ctx, tx, b); err != nil {
		return fmt.Errorf("failed to clear default ICP profile: %w", err)
	}
	return nil
}

func (r *icpRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanICP(s scanner) (*core.ICPProfile, error) {
	var (
		p                      core.ICPProfile
		data, created, updated string
	)
	err := s.Scan(&p.ID, &p.Name, &p.Description, &data, &p.SourceType,
		&p.IsActive, &p.IsDefault, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ICP profile: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
		return nil, fmt.Errorf("failed to decode ICP profile data: %w", err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}
