// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"net"
	"net/http"

	"github.com/nexroll/nexroll/internal/models"
	"github.com/nexroll/nexroll/internal/secrets"
)

// clientAddr extracts the peer IP for audit log lines.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetSettings handles GET /api/v1/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/v1/settings. Engine-owned fields
// (active category, override expiry, filler state) have no request
// counterpart and cannot be set here.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSettingsRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.FillerCategoryID != nil && *req.FillerCategoryID > 0 {
		if _, err := h.store.GetCategory(r.Context(), *req.FillerCategoryID); err != nil {
			respondStoreError(w, err)
			return
		}
	}
	if req.FillerSequenceID != nil && *req.FillerSequenceID > 0 {
		if _, err := h.store.GetSavedSequence(r.Context(), *req.FillerSequenceID); err != nil {
			respondStoreError(w, err)
			return
		}
	}

	settings, err := h.store.UpdateSettings(r.Context(), &req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, settings)
}

// UpdateCredentials handles PUT /api/v1/settings/credentials: rotate the
// Plex token or Jellyfin API key in the encrypted store. The new value is
// never echoed back.
func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialUpdateRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if h.secrets == nil {
		respondError(w, http.StatusConflict, codeState, "secret store is not configured", nil)
		return
	}

	key := secrets.KeyPlexToken
	if req.Server == "jellyfin" {
		key = secrets.KeyJellyfinAPIKey
	}
	if err := h.secrets.Set(key, req.Token); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "could not store credential", nil)
		return
	}
	h.seclog.LogCredentialRotation(req.Server, clientAddr(r))

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"server":  req.Server,
		"rotated": true,
	})
}
