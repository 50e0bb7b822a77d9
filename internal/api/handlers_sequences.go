// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"net/http"

	"github.com/nexroll/nexroll/internal/models"
)

// ListSavedSequences handles GET /api/v1/sequences.
func (h *Handler) ListSavedSequences(w http.ResponseWriter, r *http.Request) {
	sequences, err := h.store.ListSavedSequences(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, sequences)
}

// CreateSavedSequence handles POST /api/v1/sequences. The step program is
// strictly validated; malformed or unknown step tags never reach the store.
func (h *Handler) CreateSavedSequence(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSavedSequenceRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	steps, err := models.ParseSequence(req.Steps)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	encoded, err := models.EncodeSequence(steps)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	sequence, err := h.store.CreateSavedSequence(r.Context(), req.Name, req.Description, encoded)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, sequence)
}

// GetSavedSequence handles GET /api/v1/sequences/{id}.
func (h *Handler) GetSavedSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	sequence, err := h.store.GetSavedSequence(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, sequence)
}

// UpdateSavedSequence handles PUT /api/v1/sequences/{id}.
func (h *Handler) UpdateSavedSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req models.UpdateSavedSequenceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	var encoded *string
	if len(req.Steps) > 0 && string(req.Steps) != "null" {
		steps, err := models.ParseSequence(req.Steps)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
			return
		}
		s, err := models.EncodeSequence(steps)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
			return
		}
		encoded = &s
	}

	sequence, err := h.store.UpdateSavedSequence(r.Context(), id, req.Name, req.Description, encoded)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, sequence)
}

// DeleteSavedSequence handles DELETE /api/v1/sequences/{id}.
func (h *Handler) DeleteSavedSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteSavedSequence(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int64{"deleted": id})
}
