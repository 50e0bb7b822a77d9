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

// CreateCategory inserts a category and returns it with its assigned ID.
func (db *DB) CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (c *models.Category, err error) {
	defer db.track("insert", "categories", time.Now())(err)

	plexMode := req.PlexMode
	if plexMode == "" {
		plexMode = models.PlexModeShuffle
	}

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO categories (name, description, plex_mode)
		 VALUES (?, ?, ?)
		 RETURNING id, name, description, plex_mode, apply_to_plex, is_system, created_at, updated_at`,
		req.Name, req.Description, plexMode)

	c, err = scanCategory(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrCategoryNameConflict
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

// GetCategory retrieves a category by ID.
func (db *DB) GetCategory(ctx context.Context, id int64) (c *models.Category, err error) {
	defer db.track("select", "categories", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, plex_mode, apply_to_plex, is_system, created_at, updated_at
		 FROM categories WHERE id = ?`, id)

	c, err = scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// GetCategoryByName retrieves a category by its unique name.
func (db *DB) GetCategoryByName(ctx context.Context, name string) (c *models.Category, err error) {
	defer db.track("select", "categories", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, plex_mode, apply_to_plex, is_system, created_at, updated_at
		 FROM categories WHERE name = ?`, name)

	c, err = scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return c, nil
}

// ListCategories retrieves all categories ordered by name, each annotated
// with its preroll count (primary plus membership, deduplicated).
func (db *DB) ListCategories(ctx context.Context) (out []models.Category, err error) {
	defer db.track("select", "categories", time.Now())(err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.name, c.description, c.plex_mode, c.apply_to_plex, c.is_system,
		        c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM (
		            SELECT p.id FROM prerolls p WHERE p.category_id = c.id
		            UNION
		            SELECT pc.preroll_id FROM preroll_categories pc WHERE pc.category_id = c.id
		        )) AS preroll_count
		 FROM categories c
		 ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	out = []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.PlexMode, &c.ApplyToPlex,
			&c.IsSystem, &c.CreatedAt, &c.UpdatedAt, &c.PrerollCount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCategory applies a partial update. Nil fields are left unchanged.
func (db *DB) UpdateCategory(ctx context.Context, id int64, req *models.UpdateCategoryRequest) (c *models.Category, err error) {
	defer db.track("update", "categories", time.Now())(err)

	query := `UPDATE categories SET updated_at = CURRENT_TIMESTAMP`
	args := []any{}
	if req.Name != nil {
		query += ", name = ?"
		args = append(args, *req.Name)
	}
	if req.Description != nil {
		query += ", description = ?"
		args = append(args, *req.Description)
	}
	if req.PlexMode != nil {
		query += ", plex_mode = ?"
		args = append(args, *req.PlexMode)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrCategoryNameConflict
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrCategoryNotFound
	}
	return db.GetCategory(ctx, id)
}

// DeleteCategory removes a category and its membership rows. System
// categories are refused. Prerolls whose primary category was deleted keep
// existing with a null primary.
func (db *DB) DeleteCategory(ctx context.Context, id int64) (err error) {
	defer db.track("delete", "categories", time.Now())(err)

	return db.inTx(ctx, func(tx *sql.Tx) error {
		var isSystem bool
		err := tx.QueryRowContext(ctx, `SELECT is_system FROM categories WHERE id = ?`, id).Scan(&isSystem)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check category: %w", err)
		}
		if isSystem {
			return ErrSystemCategory
		}

		if _, err := tx.ExecContext(ctx, `UPDATE prerolls SET category_id = NULL WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("failed to detach prerolls: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM preroll_categories WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete category memberships: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
}

// SetCategoryApplied flips the apply_to_plex marker so that exactly the given
// category holds it. id=0 clears the marker everywhere. Both writes happen in
// one transaction; readers never observe two applied categories.
func (db *DB) SetCategoryApplied(ctx context.Context, id int64) (err error) {
	defer db.track("update", "categories", time.Now())(err)

	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET apply_to_plex = false WHERE apply_to_plex = true AND id != ?`, id); err != nil {
			return fmt.Errorf("failed to clear applied marker: %w", err)
		}
		if id == 0 {
			return nil
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE categories SET apply_to_plex = true WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to set applied marker: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
}

// EnsureSystemCategory returns the named system category, creating it on
// first use. The ingest watcher and coming-soon filler both rely on this.
func (db *DB) EnsureSystemCategory(ctx context.Context, name, description string) (*models.Category, error) {
	c, err := db.GetCategoryByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCategoryNotFound) {
		return nil, err
	}

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO categories (name, description, plex_mode, is_system)
		 VALUES (?, ?, ?, true)
		 RETURNING id, name, description, plex_mode, apply_to_plex, is_system, created_at, updated_at`,
		name, description, models.PlexModeShuffle)

	c, err = scanCategory(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with a concurrent ensure; read back.
			return db.GetCategoryByName(ctx, name)
		}
		return nil, fmt.Errorf("failed to create system category: %w", err)
	}
	return c, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.PlexMode, &c.ApplyToPlex,
		&c.IsSystem, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
