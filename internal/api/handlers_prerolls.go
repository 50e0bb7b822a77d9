// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/models"
)

// ListPrerolls handles GET /api/v1/prerolls.
func (h *Handler) ListPrerolls(w http.ResponseWriter, r *http.Request) {
	prerolls, err := h.store.ListPrerolls(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, prerolls)
}

// CreatePreroll handles POST /api/v1/prerolls: registering an existing
// file by absolute path. There is no upload; the file must already be
// reachable from this process (or be a mapped remote path).
func (h *Handler) CreatePreroll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePrerollRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Path = strings.TrimSpace(req.Path)
	if !filepath.IsAbs(req.Path) && !looksLikeWindowsAbs(req.Path) {
		respondError(w, http.StatusBadRequest, codeValidation, "path must be absolute", nil)
		return
	}
	// API registrations are operator-owned: never managed, so deletes
	// never touch the file.
	req.Managed = false

	preroll, err := h.store.CreatePreroll(r.Context(), &req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, preroll)
}

// GetPreroll handles GET /api/v1/prerolls/{id}.
func (h *Handler) GetPreroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	preroll, err := h.store.GetPreroll(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, preroll)
}

// UpdatePreroll handles PUT /api/v1/prerolls/{id}: display name and
// category membership edits.
func (h *Handler) UpdatePreroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req models.UpdatePrerollRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	preroll, err := h.store.UpdatePreroll(r.Context(), id, &req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, preroll)
}

// DeletePreroll handles DELETE /api/v1/prerolls/{id}. Managed prerolls
// (ingested from the library roots) have their file removed; unmanaged
// rows only lose their registration and the file is never touched.
func (h *Handler) DeletePreroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	preroll, err := h.store.GetPreroll(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	fileRemoved := false
	if preroll.Managed {
		switch err := os.Remove(preroll.Path); {
		case err == nil:
			fileRemoved = true
		case os.IsNotExist(err):
			// Already gone; the row is stale either way.
		default:
			logging.Error().Err(err).Str("path", preroll.Path).Msg("Could not remove managed preroll file")
			respondError(w, http.StatusInternalServerError, codeInternal, "could not remove file", nil)
			return
		}
	}

	if err := h.store.DeletePreroll(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"deleted":      id,
		"file_removed": fileRemoved,
	})
}

// looksLikeWindowsAbs recognizes drive-letter and UNC paths, which
// filepath.IsAbs rejects on POSIX hosts. Registrations may point at files
// that only exist on the media server's side of a path mapping.
func looksLikeWindowsAbs(path string) bool {
	if strings.HasPrefix(path, `\\`) {
		return true
	}
	return len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/')
}
