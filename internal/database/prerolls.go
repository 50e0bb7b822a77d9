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
	"path/filepath"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

// CreatePreroll registers a file with the engine. Path is unique; mapping the
// same file twice is a conflict.
func (db *DB) CreatePreroll(ctx context.Context, req *models.CreatePrerollRequest) (p *models.Preroll, err error) {
	defer db.track("insert", "prerolls", time.Now())(err)

	filename := filepath.Base(req.Path)

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO prerolls (filename, path, display_name, category_id, managed)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id, filename, path, display_name, category_id, duration_seconds, size_bytes,
		           managed, created_at, updated_at`,
		filename, req.Path, req.DisplayName, req.CategoryID, req.Managed)

	p, err = scanPreroll(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrPrerollPathConflict
		}
		return nil, fmt.Errorf("failed to create preroll: %w", err)
	}
	return p, nil
}

// GetPreroll retrieves a preroll by ID, including its membership set.
func (db *DB) GetPreroll(ctx context.Context, id int64) (p *models.Preroll, err error) {
	defer db.track("select", "prerolls", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, filename, path, display_name, category_id, duration_seconds, size_bytes,
		        managed, created_at, updated_at
		 FROM prerolls WHERE id = ?`, id)

	p, err = scanPreroll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrerollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preroll: %w", err)
	}
	if p.Categories, err = db.prerollCategories(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPrerollByPath retrieves a preroll by its unique path.
func (db *DB) GetPrerollByPath(ctx context.Context, path string) (p *models.Preroll, err error) {
	defer db.track("select", "prerolls", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, filename, path, display_name, category_id, duration_seconds, size_bytes,
		        managed, created_at, updated_at
		 FROM prerolls WHERE path = ?`, path)

	p, err = scanPreroll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrerollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preroll by path: %w", err)
	}
	return p, nil
}

// ListPrerolls retrieves all prerolls ordered by ID.
func (db *DB) ListPrerolls(ctx context.Context) (out []models.Preroll, err error) {
	defer db.track("select", "prerolls", time.Now())(err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, filename, path, display_name, category_id, duration_seconds, size_bytes,
		        managed, created_at, updated_at
		 FROM prerolls ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prerolls: %w", err)
	}
	defer rows.Close()
	return collectPrerolls(rows)
}

// ListPrerollsByCategory retrieves the prerolls of a category: the union of
// rows whose primary category matches and rows joined through the membership
// table, deduplicated, in stable ID order. This ordering is what makes
// playlist-mode applies deterministic.
func (db *DB) ListPrerollsByCategory(ctx context.Context, categoryID int64) (out []models.Preroll, err error) {
	defer db.track("select", "prerolls", time.Now())(err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT p.id, p.filename, p.path, p.display_name, p.category_id,
		        p.duration_seconds, p.size_bytes, p.managed, p.created_at, p.updated_at
		 FROM prerolls p
		 LEFT JOIN preroll_categories pc ON pc.preroll_id = p.id
		 WHERE p.category_id = ? OR pc.category_id = ?
		 ORDER BY p.id`, categoryID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prerolls by category: %w", err)
	}
	defer rows.Close()
	return collectPrerolls(rows)
}

// UpdatePreroll applies a partial update. A non-nil CategoryIDs replaces the
// additional-membership set atomically.
func (db *DB) UpdatePreroll(ctx context.Context, id int64, req *models.UpdatePrerollRequest) (p *models.Preroll, err error) {
	defer db.track("update", "prerolls", time.Now())(err)

	err = db.inTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE prerolls SET updated_at = CURRENT_TIMESTAMP`
		args := []any{}
		if req.DisplayName != nil {
			query += ", display_name = ?"
			args = append(args, *req.DisplayName)
		}
		if req.CategoryID != nil {
			query += ", category_id = ?"
			args = append(args, *req.CategoryID)
		}
		query += " WHERE id = ?"
		args = append(args, id)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update preroll: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrPrerollNotFound
		}

		if req.CategoryIDs != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM preroll_categories WHERE preroll_id = ?`, id); err != nil {
				return fmt.Errorf("failed to clear memberships: %w", err)
			}
			for _, cid := range req.CategoryIDs {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO preroll_categories (preroll_id, category_id) VALUES (?, ?)`, id, cid); err != nil {
					return fmt.Errorf("failed to add membership: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetPreroll(ctx, id)
}

// UpdatePrerollProbe records a probed duration and file size.
func (db *DB) UpdatePrerollProbe(ctx context.Context, id int64, duration *float64, size *int64) (err error) {
	defer db.track("update", "prerolls", time.Now())(err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE prerolls SET duration_seconds = ?, size_bytes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, duration, size, id)
	if err != nil {
		return fmt.Errorf("failed to record probe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPrerollNotFound
	}
	return nil
}

// DeletePreroll removes the database row and membership rows. Callers decide
// separately whether the file itself may be touched (managed prerolls only).
func (db *DB) DeletePreroll(ctx context.Context, id int64) (err error) {
	defer db.track("delete", "prerolls", time.Now())(err)

	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM preroll_categories WHERE preroll_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM prerolls WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete preroll: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrPrerollNotFound
		}
		return nil
	})
}

// prerollCategories reads the full membership set (primary plus additional).
func (db *DB) prerollCategories(ctx context.Context, prerollID int64) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT c.id, c.name, c.description, c.plex_mode, c.apply_to_plex, c.is_system,
		        c.created_at, c.updated_at
		 FROM categories c
		 LEFT JOIN preroll_categories pc ON pc.category_id = c.id
		 LEFT JOIN prerolls p ON p.category_id = c.id AND p.id = ?
		 WHERE pc.preroll_id = ? OR p.id = ?
		 ORDER BY c.id`, prerollID, prerollID, prerollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preroll categories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.PlexMode, &c.ApplyToPlex,
			&c.IsSystem, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanPreroll(row rowScanner) (*models.Preroll, error) {
	var (
		p           models.Preroll
		displayName sql.NullString
		categoryID  sql.NullInt64
		duration    sql.NullFloat64
		size        sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Filename, &p.Path, &displayName, &categoryID,
		&duration, &size, &p.Managed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DisplayName = nullableString(displayName)
	p.CategoryID = nullableInt64(categoryID)
	if duration.Valid {
		v := duration.Float64
		p.Duration = &v
	}
	p.FileSize = nullableInt64(size)
	return &p, nil
}

func collectPrerolls(rows *sql.Rows) ([]models.Preroll, error) {
	out := []models.Preroll{}
	for rows.Next() {
		p, err := scanPreroll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preroll: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
