// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

// GetSettings reads the singleton settings row. The row is seeded at startup,
// so a missing row is a real error, not a not-found.
func (db *DB) GetSettings(ctx context.Context) (s *models.Settings, err error) {
	defer db.track("select", "settings", time.Now())(err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, plex_url, jellyfin_url, active_category_id, last_schedule_fallback_id,
		        override_expires_at, path_mappings,
		        filler_enabled, filler_type, filler_category_id, filler_sequence_id,
		        filler_coming_soon_layout, filler_active,
		        clear_when_inactive, passive_mode,
		        genre_auto_apply, genre_priority_mode, genre_override_ttl_seconds,
		        timezone, scheduler_enabled, last_applied_value, updated_at
		 FROM settings WHERE id = 1`)

	var (
		out              models.Settings
		activeCategory   sql.NullInt64
		fallback         sql.NullInt64
		overrideExpires  sql.NullTime
		fillerCategory   sql.NullInt64
		fillerSequence   sql.NullInt64
		fillerActive     sql.NullString
		lastAppliedValue sql.NullString
	)
	err = row.Scan(&out.ID, &out.PlexURL, &out.JellyfinURL, &activeCategory, &fallback,
		&overrideExpires, &out.PathMappings,
		&out.FillerEnabled, &out.FillerType, &fillerCategory, &fillerSequence,
		&out.FillerComingSoonLayout, &fillerActive,
		&out.ClearWhenInactive, &out.PassiveMode,
		&out.GenreAutoApply, &out.GenrePriorityMode, &out.GenreOverrideTTLSeconds,
		&out.Timezone, &out.SchedulerEnabled, &lastAppliedValue, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	out.ActiveCategoryID = nullableInt64(activeCategory)
	out.LastScheduleFallbackID = nullableInt64(fallback)
	out.OverrideExpiresAt = nullableTime(overrideExpires)
	out.FillerCategoryID = nullableInt64(fillerCategory)
	out.FillerSequenceID = nullableInt64(fillerSequence)
	out.FillerActive = nullableString(fillerActive)
	out.LastAppliedValue = nullableString(lastAppliedValue)
	return &out, nil
}

// UpdateSettings applies an operator update. Engine-owned fields are never
// touched here; they have dedicated setters below.
func (db *DB) UpdateSettings(ctx context.Context, req *models.UpdateSettingsRequest) (s *models.Settings, err error) {
	defer db.track("update", "settings", time.Now())(err)

	query := `UPDATE settings SET updated_at = CURRENT_TIMESTAMP`
	args := []any{}
	if req.PlexURL != nil {
		query += ", plex_url = ?"
		args = append(args, *req.PlexURL)
	}
	if req.JellyfinURL != nil {
		query += ", jellyfin_url = ?"
		args = append(args, *req.JellyfinURL)
	}
	if req.PathMappings != nil {
		encoded, encErr := models.EncodePathMappings(req.PathMappings)
		if encErr != nil {
			return nil, encErr
		}
		query += ", path_mappings = ?"
		args = append(args, encoded)
	}
	if req.FillerEnabled != nil {
		query += ", filler_enabled = ?"
		args = append(args, *req.FillerEnabled)
	}
	if req.FillerType != nil {
		query += ", filler_type = ?"
		args = append(args, *req.FillerType)
	}
	if req.FillerCategoryID != nil {
		query += ", filler_category_id = ?"
		args = append(args, *req.FillerCategoryID)
	}
	if req.FillerSequenceID != nil {
		query += ", filler_sequence_id = ?"
		args = append(args, *req.FillerSequenceID)
	}
	if req.FillerComingSoonLayout != nil {
		query += ", filler_coming_soon_layout = ?"
		args = append(args, *req.FillerComingSoonLayout)
	}
	if req.ClearWhenInactive != nil {
		query += ", clear_when_inactive = ?"
		args = append(args, *req.ClearWhenInactive)
	}
	if req.PassiveMode != nil {
		query += ", passive_mode = ?"
		args = append(args, *req.PassiveMode)
	}
	if req.GenreAutoApply != nil {
		query += ", genre_auto_apply = ?"
		args = append(args, *req.GenreAutoApply)
	}
	if req.GenrePriorityMode != nil {
		query += ", genre_priority_mode = ?"
		args = append(args, *req.GenrePriorityMode)
	}
	if req.GenreOverrideTTLSeconds != nil {
		query += ", genre_override_ttl_seconds = ?"
		args = append(args, *req.GenreOverrideTTLSeconds)
	}
	if req.Timezone != nil {
		query += ", timezone = ?"
		args = append(args, *req.Timezone)
	}
	query += " WHERE id = 1"

	if _, err = db.conn.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return db.GetSettings(ctx)
}

// SetActiveCategory records the category the engine last applied. nil clears.
func (db *DB) SetActiveCategory(ctx context.Context, id *int64) (err error) {
	defer db.track("update", "settings", time.Now())(err)
	return db.setSettingsField(ctx, "active_category_id", id)
}

// SetLastScheduleFallback records the winning schedule's fallback category.
func (db *DB) SetLastScheduleFallback(ctx context.Context, id *int64) (err error) {
	defer db.track("update", "settings", time.Now())(err)
	return db.setSettingsField(ctx, "last_schedule_fallback_id", id)
}

// SetOverrideExpiresAt sets or clears the genre override window.
func (db *DB) SetOverrideExpiresAt(ctx context.Context, t *time.Time) (err error) {
	defer db.track("update", "settings", time.Now())(err)
	return db.setSettingsField(ctx, "override_expires_at", t)
}

// SetFillerActive sets or clears the filler marker ("category:3" etc.).
func (db *DB) SetFillerActive(ctx context.Context, marker *string) (err error) {
	defer db.track("update", "settings", time.Now())(err)
	return db.setSettingsField(ctx, "filler_active", marker)
}

// SetLastAppliedValue records the exact wire value of the last successful
// apply, which the reconciler compares against the live preference.
func (db *DB) SetLastAppliedValue(ctx context.Context, value *string) (err error) {
	defer db.track("update", "settings", time.Now())(err)
	return db.setSettingsField(ctx, "last_applied_value", value)
}

// SetSchedulerEnabled persists the operator's start/stop toggle.
func (db *DB) SetSchedulerEnabled(ctx context.Context, enabled bool) (err error) {
	defer db.track("update", "settings", time.Now())(err)
	return db.setSettingsField(ctx, "scheduler_enabled", enabled)
}

// setSettingsField writes one engine-owned column on the singleton row. The
// column name is always a compile-time constant from the setters above.
func (db *DB) setSettingsField(ctx context.Context, column string, value any) error {
	query := fmt.Sprintf(
		`UPDATE settings SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`, column)
	if _, err := db.conn.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}
