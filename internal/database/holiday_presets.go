// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

// CreateHolidayPreset inserts an operator-defined preset.
func (db *DB) CreateHolidayPreset(ctx context.Context, req *models.CreateHolidayPresetRequest) (p *models.HolidayPreset, err error) {
	defer db.track("insert", "holiday_presets", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO holiday_presets (name, start_month, start_day, end_month, end_day)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id, name, start_month, start_day, end_month, end_day, is_builtin, created_at`,
		req.Name, req.StartMonth, req.StartDay, req.EndMonth, req.EndDay)

	p, err = scanHolidayPreset(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrPresetNameConflict
		}
		return nil, fmt.Errorf("failed to create holiday preset: %w", err)
	}
	return p, nil
}

// GetHolidayPreset retrieves a preset by ID.
func (db *DB) GetHolidayPreset(ctx context.Context, id int64) (p *models.HolidayPreset, err error) {
	defer db.track("select", "holiday_presets", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, start_month, start_day, end_month, end_day, is_builtin, created_at
		 FROM holiday_presets WHERE id = ?`, id)

	p, err = scanHolidayPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHolidayPresetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holiday preset: %w", err)
	}
	return p, nil
}

// ListHolidayPresets retrieves all presets in calendar order.
func (db *DB) ListHolidayPresets(ctx context.Context) (out []models.HolidayPreset, err error) {
	defer db.track("select", "holiday_presets", time.Now())(err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, start_month, start_day, end_month, end_day, is_builtin, created_at
		 FROM holiday_presets ORDER BY start_month, start_day, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list holiday presets: %w", err)
	}
	defer rows.Close()

	out = []models.HolidayPreset{}
	for rows.Next() {
		p, err := scanHolidayPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holiday preset: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DeleteHolidayPreset removes an operator preset. Builtin presets are
// refused so the seeded library stays intact.
func (db *DB) DeleteHolidayPreset(ctx context.Context, id int64) (err error) {
	defer db.track("delete", "holiday_presets", time.Now())(err)

	return db.inTx(ctx, func(tx *sql.Tx) error {
		var isBuiltin bool
		err := tx.QueryRowContext(ctx, `SELECT is_builtin FROM holiday_presets WHERE id = ?`, id).Scan(&isBuiltin)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrHolidayPresetNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check holiday preset: %w", err)
		}
		if isBuiltin {
			return ErrBuiltinPreset
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM holiday_presets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete holiday preset: %w", err)
		}
		return nil
	})
}

func scanHolidayPreset(row rowScanner) (*models.HolidayPreset, error) {
	var p models.HolidayPreset
	err := row.Scan(&p.ID, &p.Name, &p.StartMonth, &p.StartDay, &p.EndMonth, &p.EndDay,
		&p.IsBuiltin, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
