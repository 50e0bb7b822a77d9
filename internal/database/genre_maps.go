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

// CreateGenreMap inserts a mapping. genreNorm is the canonical key computed
// by the caller; duplicates on it are a conflict.
func (db *DB) CreateGenreMap(ctx context.Context, genre, genreNorm string, categoryID int64) (g *models.GenreMap, err error) {
	defer db.track("insert", "genre_maps", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO genre_maps (genre, genre_norm, category_id)
		 VALUES (?, ?, ?)
		 RETURNING id, genre, genre_norm, category_id, created_at`,
		genre, genreNorm, categoryID)

	g, err = scanGenreMap(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrGenreMapConflict
		}
		return nil, fmt.Errorf("failed to create genre map: %w", err)
	}
	return g, nil
}

// GetGenreMap retrieves a mapping by ID.
func (db *DB) GetGenreMap(ctx context.Context, id int64) (g *models.GenreMap, err error) {
	defer db.track("select", "genre_maps", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, genre, genre_norm, category_id, created_at
		 FROM genre_maps WHERE id = ?`, id)

	g, err = scanGenreMap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGenreMapNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get genre map: %w", err)
	}
	return g, nil
}

// GetGenreMapByNorm retrieves a mapping by its canonical key. This is the
// lookup the apply path uses.
func (db *DB) GetGenreMapByNorm(ctx context.Context, genreNorm string) (g *models.GenreMap, err error) {
	defer db.track("select", "genre_maps", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, genre, genre_norm, category_id, created_at
		 FROM genre_maps WHERE genre_norm = ?`, genreNorm)

	g, err = scanGenreMap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGenreMapNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get genre map by key: %w", err)
	}
	return g, nil
}

// ListGenreMaps retrieves all mappings ordered by the raw genre label.
func (db *DB) ListGenreMaps(ctx context.Context) (out []models.GenreMap, err error) {
	defer db.track("select", "genre_maps", time.Now())(err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, genre, genre_norm, category_id, created_at
		 FROM genre_maps ORDER BY genre`)
	if err != nil {
		return nil, fmt.Errorf("failed to list genre maps: %w", err)
	}
	defer rows.Close()

	out = []models.GenreMap{}
	for rows.Next() {
		g, err := scanGenreMap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan genre map: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// UpdateGenreMap applies a partial update. When the raw label changes the
// caller recomputes genreNorm and passes it alongside.
func (db *DB) UpdateGenreMap(ctx context.Context, id int64, genre, genreNorm *string, categoryID *int64) (g *models.GenreMap, err error) {
	defer db.track("update", "genre_maps", time.Now())(err)

	query := `UPDATE genre_maps SET id = id`
	args := []any{}
	if genre != nil {
		query += ", genre = ?"
		args = append(args, *genre)
	}
	if genreNorm != nil {
		query += ", genre_norm = ?"
		args = append(args, *genreNorm)
	}
	if categoryID != nil {
		query += ", category_id = ?"
		args = append(args, *categoryID)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrGenreMapConflict
		}
		return nil, fmt.Errorf("failed to update genre map: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrGenreMapNotFound
	}
	return db.GetGenreMap(ctx, id)
}

// DeleteGenreMap removes a mapping.
func (db *DB) DeleteGenreMap(ctx context.Context, id int64) (err error) {
	defer db.track("delete", "genre_maps", time.Now())(err)

	res, err := db.conn.ExecContext(ctx, `DELETE FROM genre_maps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete genre map: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGenreMapNotFound
	}
	return nil
}

func scanGenreMap(row rowScanner) (*models.GenreMap, error) {
	var g models.GenreMap
	err := row.Scan(&g.ID, &g.Genre, &g.GenreNorm, &g.CategoryID, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
