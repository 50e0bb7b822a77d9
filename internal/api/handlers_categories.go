// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"net/http"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/models"
)

// ListCategories handles GET /api/v1/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCategoryRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	category, err := h.store.CreateCategory(r.Context(), &req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, category)
}

// GetCategory handles GET /api/v1/categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	category, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, category)
}

// UpdateCategory handles PUT /api/v1/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req models.UpdateCategoryRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	category, err := h.store.UpdateCategory(r.Context(), id, &req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/v1/categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int64{"deleted": id})
}

// ApplyCategory handles POST /api/v1/categories/{id}/apply: the manual
// apply path, synchronous through the same arbiter/adapter code the
// scheduler uses.
func (h *Handler) ApplyCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if _, err := h.store.GetCategory(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	if err := h.engine.ApplyCategory(r.Context(), id); err != nil {
		respondEngineError(w, err)
		return
	}
	logging.Info().Int64("category_id", id).Msg("Category applied manually")
	respondSuccess(w, http.StatusOK, map[string]interface{}{"applied": true, "category_id": id})
}
