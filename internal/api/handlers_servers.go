// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexroll/nexroll/internal/models"
)

// ListServers handles GET /api/v1/servers: a connection check against
// every registered adapter, configured or not.
func (h *Handler) ListServers(w http.ResponseWriter, r *http.Request) {
	result := make(map[string]*models.ConnectionStatus, len(h.adapters))
	for _, adapter := range h.adapters {
		result[adapter.Name()] = checkAdapter(r.Context(), adapter)
	}
	respondSuccess(w, http.StatusOK, result)
}

// TestServer handles POST /api/v1/servers/{name}/test: a single live
// connection check. Unknown names are 404.
func (h *Handler) TestServer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, adapter := range h.adapters {
		if adapter.Name() != name {
			continue
		}
		respondSuccess(w, http.StatusOK, checkAdapter(r.Context(), adapter))
		return
	}
	respondError(w, http.StatusNotFound, codeNotFound, "unknown server: "+name, nil)
}

// ProbePlex handles GET /api/v1/plex/probe: exercise the three Plex
// preference setter variants against a harmless readback and report which
// one the server honors.
func (h *Handler) ProbePlex(w http.ResponseWriter, r *http.Request) {
	if h.prober == nil {
		respondError(w, http.StatusConflict, codeState, "plex is not configured", nil)
		return
	}
	respondSuccess(w, http.StatusOK, h.prober.Probe(r.Context()))
}
