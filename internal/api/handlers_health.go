// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nexroll/nexroll/internal/mediaserver"
	"github.com/nexroll/nexroll/internal/models"
)

// Health handles GET /api/v1/health: database ping, scheduler state, and a
// live connection check against each configured media server. Overall
// status degrades when the database or any configured adapter fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := &models.HealthStatus{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Database:  "ok",
	}

	if err := h.store.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Database = err.Error()
	}

	sched := h.engine.Status()
	status.Scheduler = &sched

	for _, adapter := range h.adapters {
		conn := checkAdapter(ctx, adapter)
		switch adapter.Name() {
		case "plex":
			status.Plex = conn
		case "jellyfin":
			status.Jellyfin = conn
		}
		if conn.Configured && !conn.Connected {
			status.Status = "degraded"
		}
	}

	respondSuccess(w, http.StatusOK, status)
}

// Liveness handles GET /api/v1/health/live: process-up only.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /api/v1/health/ready: the database must answer.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, codeDatabase, "database not ready", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}

// checkAdapter probes one media server with a short deadline so a hung
// server cannot stall the health endpoint.
func checkAdapter(ctx context.Context, adapter mediaserver.Adapter) *models.ConnectionStatus {
	now := time.Now().UTC()
	conn := &models.ConnectionStatus{
		Configured: adapter.Configured(),
		CheckedAt:  &now,
	}
	if !conn.Configured {
		return conn
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	info, err := adapter.GetServerInfo(ctx)
	if err != nil {
		conn.Error = err.Error()
		return conn
	}
	conn.Connected = true
	conn.Platform = info.Platform
	conn.Version = info.Version
	return conn
}
