// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import "time"

// SchedulerStatus is the scheduler's introspection surface
// (GET /api/v1/scheduler/status).
type SchedulerStatus struct {
	Running      bool       `json:"running"`
	TickSeconds  int        `json:"tick_seconds"`
	LastTickAt   *time.Time `json:"last_tick_at,omitempty"`
	LastTickMS   int64      `json:"last_tick_ms,omitempty"`
	NextTickAt   *time.Time `json:"next_tick_at,omitempty"`
	TicksTotal   uint64     `json:"ticks_total"`
	LastError    string     `json:"last_error,omitempty"`
	LastErrorAt  *time.Time `json:"last_error_at,omitempty"`
	ActiveIDs    []int64    `json:"active_schedule_ids,omitempty"`
	FillerActive *string    `json:"filler_active,omitempty"`

	// OverrideActive reports a live genre override window.
	OverrideActive  bool       `json:"override_active"`
	OverrideExpires *time.Time `json:"override_expires_at,omitempty"`
}

// HealthStatus is the /api/v1/health surface.
type HealthStatus struct {
	Status    string    `json:"status"` // "healthy", "degraded"
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`

	Database  string           `json:"database"` // "ok" or error text
	Scheduler *SchedulerStatus `json:"scheduler,omitempty"`

	Plex     *ConnectionStatus `json:"plex,omitempty"`
	Jellyfin *ConnectionStatus `json:"jellyfin,omitempty"`
}
