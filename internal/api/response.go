// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nexroll/nexroll/internal/database"
	"github.com/nexroll/nexroll/internal/engine"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/models"
	"github.com/nexroll/nexroll/internal/validation"
)

// Error codes used in the response envelope.
const (
	codeValidation     = "VALIDATION_ERROR"
	codeDatabase       = "DATABASE_ERROR"
	codeNotFound       = "NOT_FOUND"
	codeConflict       = "CONFLICT"
	codeTransport      = "TRANSPORT_ERROR"
	codeProtocol       = "PROTOCOL_ERROR"
	codeAuthentication = "AUTHENTICATION_ERROR"
	codeState          = "STATE_ERROR"
	codeRateLimited    = "RATE_LIMIT_EXCEEDED"
	codeInternal       = "INTERNAL_ERROR"
)

// respondSuccess writes the standard success envelope.
func respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// respondError writes the standard error envelope.
func respondError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	writeEnvelope(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, resp *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode API response")
	}
}

// decodeRequest decodes a JSON body into dst and runs struct validation.
// On failure it writes the error response and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// respondStoreError maps the store's sentinel errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrCategoryNotFound),
		errors.Is(err, database.ErrPrerollNotFound),
		errors.Is(err, database.ErrScheduleNotFound),
		errors.Is(err, database.ErrHolidayPresetNotFound),
		errors.Is(err, database.ErrGenreMapNotFound),
		errors.Is(err, database.ErrSequenceNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, err.Error(), nil)

	case errors.Is(err, database.ErrCategoryNameConflict),
		errors.Is(err, database.ErrPrerollPathConflict),
		errors.Is(err, database.ErrPresetNameConflict),
		errors.Is(err, database.ErrGenreMapConflict),
		errors.Is(err, database.ErrSequenceNameConflict),
		errors.Is(err, database.ErrSystemCategory),
		errors.Is(err, database.ErrBuiltinPreset):
		respondError(w, http.StatusConflict, codeConflict, err.Error(), nil)

	default:
		logging.Error().Err(err).Msg("Store operation failed")
		respondError(w, http.StatusInternalServerError, codeDatabase, "database operation failed", nil)
	}
}

// engineErrorCode maps an engine error kind to an envelope code and the
// status an interactive endpoint should use.
func engineErrorCode(err error) (code string, status int) {
	switch engine.KindOf(err) {
	case engine.KindConfig:
		return codeValidation, http.StatusBadRequest
	case engine.KindState:
		return codeState, http.StatusConflict
	case engine.KindConflict:
		return codeConflict, http.StatusConflict
	case engine.KindAuth:
		return codeAuthentication, http.StatusBadGateway
	case engine.KindProtocol:
		return codeProtocol, http.StatusBadGateway
	default:
		return codeTransport, http.StatusBadGateway
	}
}

// respondEngineError is the interactive mapping: the caller sees the real
// HTTP status of the failure class.
func respondEngineError(w http.ResponseWriter, err error) {
	code, status := engineErrorCode(err)
	respondError(w, status, code, err.Error(), nil)
}
