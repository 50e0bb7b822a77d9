// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import "time"

// LoginRequest authenticates an operator when auth mode is "jwt".
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=120"`
	Password string `json:"password" validate:"required,min=1,max=1024"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"` // always "Bearer"
	ExpiresAt time.Time `json:"expires_at"`
}

// CredentialUpdateRequest rotates a media server credential in the secret
// store. The credential never round-trips through the settings API.
type CredentialUpdateRequest struct {
	Server string `json:"server" validate:"required,oneof=plex jellyfin"`
	Token  string `json:"token" validate:"required,min=1,max=1024"`
}
