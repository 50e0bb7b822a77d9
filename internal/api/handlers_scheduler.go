// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import "net/http"

// SchedulerStatus handles GET /api/v1/scheduler/status.
func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.engine.Status())
}

// StartScheduler handles POST /api/v1/scheduler/start. Idempotent.
func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Start(r.Context()); err != nil {
		respondEngineError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, h.engine.Status())
}

// StopScheduler handles POST /api/v1/scheduler/stop. The engine keeps
// serving status and manual runs while paused.
func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Stop(r.Context()); err != nil {
		respondEngineError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, h.engine.Status())
}

// RunSchedulerNow handles POST /api/v1/scheduler/run-now: one synchronous
// tick, even while paused. Tick failures come back with their real class.
func (h *Handler) RunSchedulerNow(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RunNow(r.Context()); err != nil {
		respondEngineError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, h.engine.Status())
}
