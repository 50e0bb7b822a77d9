// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nexroll/nexroll/internal/logging"
)

// schemaContext bounds schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates all tables and sequences. Every statement is
// idempotent (IF NOT EXISTS), so startup after an upgrade is safe.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_categories START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_prerolls START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_schedules START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_holiday_presets START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_genre_maps START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_saved_sequences START 1`,

		`CREATE TABLE IF NOT EXISTS categories (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_categories'),
			name VARCHAR NOT NULL UNIQUE,
			description VARCHAR NOT NULL DEFAULT '',
			plex_mode VARCHAR NOT NULL DEFAULT 'shuffle',
			apply_to_plex BOOLEAN NOT NULL DEFAULT false,
			is_system BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS prerolls (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_prerolls'),
			filename VARCHAR NOT NULL,
			path VARCHAR NOT NULL UNIQUE,
			display_name VARCHAR,
			category_id BIGINT,
			duration_seconds DOUBLE,
			size_bytes BIGINT,
			managed BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS preroll_categories (
			preroll_id BIGINT NOT NULL,
			category_id BIGINT NOT NULL,
			PRIMARY KEY (preroll_id, category_id)
		)`,

		`CREATE TABLE IF NOT EXISTS schedules (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_schedules'),
			name VARCHAR NOT NULL,
			type VARCHAR NOT NULL,
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP,
			category_id BIGINT NOT NULL,
			fallback_category_id BIGINT,
			shuffle BOOLEAN NOT NULL DEFAULT false,
			playlist BOOLEAN NOT NULL DEFAULT false,
			priority INTEGER NOT NULL DEFAULT 5,
			exclusive BOOLEAN NOT NULL DEFAULT false,
			blend_enabled BOOLEAN NOT NULL DEFAULT false,
			is_active BOOLEAN NOT NULL DEFAULT true,
			recurrence_pattern VARCHAR,
			sequence VARCHAR,
			last_run TIMESTAMP,
			next_run TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS holiday_presets (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_holiday_presets'),
			name VARCHAR NOT NULL UNIQUE,
			start_month INTEGER NOT NULL,
			start_day INTEGER NOT NULL,
			end_month INTEGER NOT NULL,
			end_day INTEGER NOT NULL,
			is_builtin BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS genre_maps (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_genre_maps'),
			genre VARCHAR NOT NULL,
			genre_norm VARCHAR NOT NULL UNIQUE,
			category_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS saved_sequences (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_saved_sequences'),
			name VARCHAR NOT NULL UNIQUE,
			description VARCHAR NOT NULL DEFAULT '',
			steps VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			id BIGINT PRIMARY KEY,
			plex_url VARCHAR NOT NULL DEFAULT '',
			jellyfin_url VARCHAR NOT NULL DEFAULT '',
			active_category_id BIGINT,
			last_schedule_fallback_id BIGINT,
			override_expires_at TIMESTAMP,
			path_mappings VARCHAR NOT NULL DEFAULT '[]',
			filler_enabled BOOLEAN NOT NULL DEFAULT false,
			filler_type VARCHAR NOT NULL DEFAULT '',
			filler_category_id BIGINT,
			filler_sequence_id BIGINT,
			filler_coming_soon_layout VARCHAR NOT NULL DEFAULT '',
			filler_active VARCHAR,
			clear_when_inactive BOOLEAN NOT NULL DEFAULT false,
			passive_mode BOOLEAN NOT NULL DEFAULT false,
			genre_auto_apply BOOLEAN NOT NULL DEFAULT false,
			genre_priority_mode VARCHAR NOT NULL DEFAULT 'schedules_override',
			genre_override_ttl_seconds INTEGER NOT NULL DEFAULT 300,
			timezone VARCHAR NOT NULL DEFAULT '',
			scheduler_enabled BOOLEAN NOT NULL DEFAULT true,
			last_applied_value VARCHAR,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_prerolls_category ON prerolls(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_preroll_categories_category ON preroll_categories(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_active ON schedules(is_active)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// builtinHolidayPresets seed on first run. Windows follow common US
// observances; operators can add their own.
var builtinHolidayPresets = []struct {
	name                                   string
	startMonth, startDay, endMonth, endDay int
}{
	{"New Year's", 12, 30, 1, 2},
	{"Valentine's Day", 2, 13, 2, 14},
	{"St. Patrick's Day", 3, 16, 3, 17},
	{"Independence Day", 7, 1, 7, 4},
	{"Halloween", 10, 1, 10, 31},
	{"Thanksgiving", 11, 20, 11, 28},
	{"Christmas", 12, 1, 12, 26},
}

// seed inserts the settings singleton and the builtin holiday presets when
// the respective tables are empty.
func (db *DB) seed() error {
	ctx, cancel := schemaContext()
	defer cancel()

	var settingsCount int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings`).Scan(&settingsCount); err != nil {
		return fmt.Errorf("count settings: %w", err)
	}
	if settingsCount == 0 {
		if _, err := db.conn.ExecContext(ctx, `INSERT INTO settings (id) VALUES (1)`); err != nil {
			return fmt.Errorf("seed settings singleton: %w", err)
		}
		logging.Info().Msg("Seeded settings singleton")
	}

	var presetCount int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM holiday_presets`).Scan(&presetCount); err != nil {
		return fmt.Errorf("count holiday presets: %w", err)
	}
	if presetCount == 0 {
		for _, p := range builtinHolidayPresets {
			_, err := db.conn.ExecContext(ctx,
				`INSERT INTO holiday_presets (name, start_month, start_day, end_month, end_day, is_builtin)
				 VALUES (?, ?, ?, ?, ?, true)`,
				p.name, p.startMonth, p.startDay, p.endMonth, p.endDay)
			if err != nil {
				return fmt.Errorf("seed holiday preset %q: %w", p.name, err)
			}
		}
		logging.Info().Int("count", len(builtinHolidayPresets)).Msg("Seeded builtin holiday presets")
	}

	return nil
}
