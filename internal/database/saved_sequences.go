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

// CreateSavedSequence inserts a reusable sequence program. Steps must already
// be validated by the caller.
func (db *DB) CreateSavedSequence(ctx context.Context, name, description, steps string) (s *models.SavedSequence, err error) {
	defer db.track("insert", "saved_sequences", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO saved_sequences (name, description, steps)
		 VALUES (?, ?, ?)
		 RETURNING id, name, description, steps, created_at, updated_at`,
		name, description, steps)

	s, err = scanSavedSequence(row)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSequenceNameConflict
		}
		return nil, fmt.Errorf("failed to create saved sequence: %w", err)
	}
	return s, nil
}

// GetSavedSequence retrieves a saved sequence by ID.
func (db *DB) GetSavedSequence(ctx context.Context, id int64) (s *models.SavedSequence, err error) {
	defer db.track("select", "saved_sequences", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, steps, created_at, updated_at
		 FROM saved_sequences WHERE id = ?`, id)

	s, err = scanSavedSequence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSequenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved sequence: %w", err)
	}
	return s, nil
}

// ListSavedSequences retrieves all saved sequences ordered by name.
func (db *DB) ListSavedSequences(ctx context.Context) (out []models.SavedSequence, err error) {
	defer db.track("select", "saved_sequences", time.Now())(err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, description, steps, created_at, updated_at
		 FROM saved_sequences ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved sequences: %w", err)
	}
	defer rows.Close()

	out = []models.SavedSequence{}
	for rows.Next() {
		s, err := scanSavedSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved sequence: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpdateSavedSequence applies a partial update. Nil fields are left
// unchanged.
func (db *DB) UpdateSavedSequence(ctx context.Context, id int64, name, description, steps *string) (s *models.SavedSequence, err error) {
	defer db.track("update", "saved_sequences", time.Now())(err)

	query := `UPDATE saved_sequences SET updated_at = CURRENT_TIMESTAMP`
	args := []any{}
	if name != nil {
		query += ", name = ?"
		args = append(args, *name)
	}
	if description != nil {
		query += ", description = ?"
		args = append(args, *description)
	}
	if steps != nil {
		query += ", steps = ?"
		args = append(args, *steps)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSequenceNameConflict
		}
		return nil, fmt.Errorf("failed to update saved sequence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSequenceNotFound
	}
	return db.GetSavedSequence(ctx, id)
}

// DeleteSavedSequence removes a saved sequence.
func (db *DB) DeleteSavedSequence(ctx context.Context, id int64) (err error) {
	defer db.track("delete", "saved_sequences", time.Now())(err)

	res, err := db.conn.ExecContext(ctx, `DELETE FROM saved_sequences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved sequence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSequenceNotFound
	}
	return nil
}

func scanSavedSequence(row rowScanner) (*models.SavedSequence, error) {
	var s models.SavedSequence
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Steps, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
