// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package database is the persistent store for the preroll engine. It wraps
// a DuckDB file behind typed CRUD methods with per-call transactions; no
// policy lives here. Engine-owned Settings fields get dedicated atomic
// setters so operator updates and engine bookkeeping cannot trample each
// other.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/nexroll/nexroll/internal/config"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
)

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists; DuckDB will not create it.
	if dbDir := filepath.Dir(cfg.Path); dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is an in-process engine; a single writer connection avoids
	// write-write conflicts between the engine tick and API handlers.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.createSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := db.seed(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("Database ready")
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection, for health checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// track instruments one store call for Prometheus. Usage:
//
//	defer db.track("select", "schedules", time.Now())(err)
func (db *DB) track(operation, table string, start time.Time) func(error) {
	return func(err error) {
		metrics.RecordDBQuery(operation, table, time.Since(start), err)
	}
}

// inTx runs fn inside a transaction, rolling back on error.
func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Error().Err(rbErr).Msg("Transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// nullableTime converts a sql.NullTime to *time.Time.
func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullableInt64 converts a sql.NullInt64 to *int64.
func nullableInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// nullableString converts a sql.NullString to *string.
func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
