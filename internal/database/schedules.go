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

const scheduleColumns = `id, name, type, start_date, end_date, category_id, fallback_category_id,
	shuffle, playlist, priority, exclusive, blend_enabled, is_active,
	recurrence_pattern, sequence, last_run, next_run, created_at, updated_at`

// CreateSchedule inserts a schedule and returns it with its assigned ID.
func (db *DB) CreateSchedule(ctx context.Context, req *models.CreateScheduleRequest) (s *models.Schedule, err error) {
	defer db.track("insert", "schedules", time.Now())(err)

	priority := models.SchedulePriorityDefault
	if req.Priority != nil {
		priority = *req.Priority
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	var recurrence, sequence *string
	if len(req.RecurrencePattern) > 0 {
		v := string(req.RecurrencePattern)
		recurrence = &v
	}
	if len(req.Sequence) > 0 {
		v := string(req.Sequence)
		sequence = &v
	}

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO schedules (name, type, start_date, end_date, category_id, fallback_category_id,
		                        shuffle, playlist, priority, exclusive, blend_enabled, is_active,
		                        recurrence_pattern, sequence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+scheduleColumns,
		req.Name, req.Type, req.StartDate, req.EndDate, req.CategoryID, req.FallbackCategoryID,
		req.Shuffle, req.Playlist, priority, req.Exclusive, req.BlendEnabled, isActive,
		recurrence, sequence)

	s, err = scanSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	return s, nil
}

// GetSchedule retrieves a schedule by ID.
func (db *DB) GetSchedule(ctx context.Context, id int64) (s *models.Schedule, err error) {
	defer db.track("select", "schedules", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)

	s, err = scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

// ListSchedules retrieves all schedules ordered by ID.
func (db *DB) ListSchedules(ctx context.Context) (out []models.Schedule, err error) {
	defer db.track("select", "schedules", time.Now())(err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// ListEnabledSchedules retrieves schedules with is_active = true in stable ID
// order. Window evaluation is the engine's job; the store only filters the
// operator toggle.
func (db *DB) ListEnabledSchedules(ctx context.Context) (out []models.Schedule, err error) {
	defer db.track("select", "schedules", time.Now())(err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE is_active = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled schedules: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// UpdateSchedule applies a partial update. Nil fields are left unchanged; a
// non-nil RecurrencePattern or Sequence replaces the stored JSON ("null"
// clears it).
func (db *DB) UpdateSchedule(ctx context.Context, id int64, req *models.UpdateScheduleRequest) (s *models.Schedule, err error) {
	defer db.track("update", "schedules", time.Now())(err)

	query := `UPDATE schedules SET updated_at = CURRENT_TIMESTAMP`
	args := []any{}
	if req.Name != nil {
		query += ", name = ?"
		args = append(args, *req.Name)
	}
	if req.Type != nil {
		query += ", type = ?"
		args = append(args, *req.Type)
	}
	if req.StartDate != nil {
		query += ", start_date = ?"
		args = append(args, *req.StartDate)
	}
	if req.EndDate != nil {
		query += ", end_date = ?"
		args = append(args, *req.EndDate)
	}
	if req.CategoryID != nil {
		query += ", category_id = ?"
		args = append(args, *req.CategoryID)
	}
	if req.FallbackCategoryID != nil {
		query += ", fallback_category_id = ?"
		args = append(args, *req.FallbackCategoryID)
	}
	if req.Shuffle != nil {
		query += ", shuffle = ?"
		args = append(args, *req.Shuffle)
	}
	if req.Playlist != nil {
		query += ", playlist = ?"
		args = append(args, *req.Playlist)
	}
	if req.Priority != nil {
		query += ", priority = ?"
		args = append(args, *req.Priority)
	}
	if req.Exclusive != nil {
		query += ", exclusive = ?"
		args = append(args, *req.Exclusive)
	}
	if req.BlendEnabled != nil {
		query += ", blend_enabled = ?"
		args = append(args, *req.BlendEnabled)
	}
	if req.IsActive != nil {
		query += ", is_active = ?"
		args = append(args, *req.IsActive)
	}
	if len(req.RecurrencePattern) > 0 {
		if string(req.RecurrencePattern) == "null" {
			query += ", recurrence_pattern = NULL"
		} else {
			query += ", recurrence_pattern = ?"
			args = append(args, string(req.RecurrencePattern))
		}
	}
	if len(req.Sequence) > 0 {
		if string(req.Sequence) == "null" {
			query += ", sequence = NULL"
		} else {
			query += ", sequence = ?"
			args = append(args, string(req.Sequence))
		}
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrScheduleNotFound
	}
	return db.GetSchedule(ctx, id)
}

// SetScheduleRun records the last and next run timestamps after a tick in
// which the schedule won arbitration.
func (db *DB) SetScheduleRun(ctx context.Context, id int64, lastRun time.Time, nextRun *time.Time) (err error) {
	defer db.track("update", "schedules", time.Now())(err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE schedules SET last_run = ?, next_run = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, lastRun, nextRun, id)
	if err != nil {
		return fmt.Errorf("failed to record schedule run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule.
func (db *DB) DeleteSchedule(ctx context.Context, id int64) (err error) {
	defer db.track("delete", "schedules", time.Now())(err)

	res, err := db.conn.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var (
		s          models.Schedule
		endDate    sql.NullTime
		fallbackID sql.NullInt64
		recurrence sql.NullString
		sequence   sql.NullString
		lastRun    sql.NullTime
		nextRun    sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Name, &s.Type, &s.StartDate, &endDate, &s.CategoryID, &fallbackID,
		&s.Shuffle, &s.Playlist, &s.Priority, &s.Exclusive, &s.BlendEnabled, &s.IsActive,
		&recurrence, &sequence, &lastRun, &nextRun, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.EndDate = nullableTime(endDate)
	s.FallbackCategoryID = nullableInt64(fallbackID)
	s.RecurrencePattern = nullableString(recurrence)
	s.Sequence = nullableString(sequence)
	s.LastRun = nullableTime(lastRun)
	s.NextRun = nullableTime(nextRun)
	return &s, nil
}

func collectSchedules(rows *sql.Rows) ([]models.Schedule, error) {
	out := []models.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
