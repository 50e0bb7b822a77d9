// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"errors"
	"net/http"

	"github.com/nexroll/nexroll/internal/auth"
	"github.com/nexroll/nexroll/internal/models"
)

// Login handles POST /api/v1/auth/login. Only jwt mode issues tokens;
// basic mode authenticates per request and none mode has nothing to log
// into.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	token, expiresAt, err := h.auth.Login(r, req.Username, req.Password)
	switch {
	case err == nil:
		respondSuccess(w, http.StatusOK, &models.LoginResponse{
			Token:     token,
			TokenType: "Bearer",
			ExpiresAt: expiresAt,
		})
	case errors.Is(err, auth.ErrTooManyAttempts):
		respondError(w, http.StatusTooManyRequests, codeRateLimited, "too many login attempts, try again later", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, codeAuthentication, "invalid credentials", nil)
	case errors.Is(err, auth.ErrLoginNotSupported):
		respondError(w, http.StatusBadRequest, codeValidation, "login is not available in this auth mode", nil)
	default:
		respondError(w, http.StatusInternalServerError, codeInternal, "login failed", nil)
	}
}

// AuthMode handles GET /api/v1/auth/mode so clients can pick a flow
// before authenticating.
func (h *Handler) AuthMode(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"mode":    h.auth.Mode(),
		"enabled": h.auth.Enabled(),
	})
}
