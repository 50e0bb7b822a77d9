// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nexroll/nexroll/internal/engine"
	"github.com/nexroll/nexroll/internal/genres"
	"github.com/nexroll/nexroll/internal/models"
)

// ListGenreMaps handles GET /api/v1/genres.
func (h *Handler) ListGenreMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := h.store.ListGenreMaps(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, maps)
}

// CreateGenreMap handles POST /api/v1/genres. The raw label is kept for
// display; lookups go through the canonical key, so two labels that fold
// to the same key are a conflict.
func (h *Handler) CreateGenreMap(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGenreMapRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	norm := genres.Canonical(req.Genre)
	if norm == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "genre label is empty after normalization", nil)
		return
	}
	if _, err := h.store.GetCategory(r.Context(), req.CategoryID); err != nil {
		respondStoreError(w, err)
		return
	}

	mapping, err := h.store.CreateGenreMap(r.Context(), req.Genre, norm, req.CategoryID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, mapping)
}

// UpdateGenreMap handles PUT /api/v1/genres/{id}.
func (h *Handler) UpdateGenreMap(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req models.UpdateGenreMapRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	var norm *string
	if req.Genre != nil {
		n := genres.Canonical(*req.Genre)
		if n == "" {
			respondError(w, http.StatusBadRequest, codeValidation, "genre label is empty after normalization", nil)
			return
		}
		norm = &n
	}

	mapping, err := h.store.UpdateGenreMap(r.Context(), id, req.Genre, norm, req.CategoryID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, mapping)
}

// DeleteGenreMap handles DELETE /api/v1/genres/{id}.
func (h *Handler) DeleteGenreMap(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteGenreMap(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int64{"deleted": id})
}

// ApplyGenre handles POST /api/v1/genres/apply: resolve a genre label and
// apply its category immediately. This is an automation entry point, so
// engine config/state refusals come back as 200 with an explanatory body;
// only transport-class failures surface as errors.
func (h *Handler) ApplyGenre(w http.ResponseWriter, r *http.Request) {
	if h.genres == nil {
		respondError(w, http.StatusConflict, codeState, "genre mapping requires a configured Plex server", nil)
		return
	}
	var req models.ApplyGenreRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	mapping, err := h.genres.ApplyDirect(r.Context(), req.Genre)
	if err != nil {
		// A missing mapping or a schedule holding precedence is a normal
		// outcome for an automation caller, not an HTTP failure.
		blocked := mapping != nil
		if errors.Is(err, genres.ErrNoMapping) || blocked {
			respondSuccess(w, http.StatusOK, map[string]interface{}{
				"applied": false,
				"genre":   req.Genre,
				"reason":  err.Error(),
			})
			return
		}
		switch engine.KindOf(err) {
		case engine.KindConfig, engine.KindState, engine.KindConflict:
			respondSuccess(w, http.StatusOK, map[string]interface{}{
				"applied": false,
				"genre":   req.Genre,
				"reason":  err.Error(),
			})
		default:
			respondEngineError(w, err)
		}
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"applied":     true,
		"genre":       mapping.Genre,
		"category_id": mapping.CategoryID,
	})
}

// ApplyGenreByRatingKey handles GET /api/v1/genres/apply-by-key. It runs
// the same metadata-driven flow the webhook uses, asynchronously: the
// response acknowledges the trigger, not the outcome.
func (h *Handler) ApplyGenreByRatingKey(w http.ResponseWriter, r *http.Request) {
	if h.genres == nil {
		respondError(w, http.StatusConflict, codeState, "genre mapping requires a configured Plex server", nil)
		return
	}
	ratingKey := strings.TrimSpace(r.URL.Query().Get("rating_key"))
	if ratingKey == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "rating_key query parameter is required", nil)
		return
	}

	h.genres.ApplyByRatingKey(r.Context(), ratingKey)
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"accepted":   true,
		"rating_key": ratingKey,
	})
}

// RecentGenreApplications handles GET /api/v1/genres/recent.
func (h *Handler) RecentGenreApplications(w http.ResponseWriter, r *http.Request) {
	if h.genres == nil {
		respondSuccess(w, http.StatusOK, []models.GenreApplication{})
		return
	}
	respondSuccess(w, http.StatusOK, h.genres.Recent())
}
