// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthManager verifies the single admin credential pair. The password
// is bcrypt-hashed once at startup so plaintext never sits in memory past
// initialization.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes the admin password and returns a manager.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("admin_username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("admin_password is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("admin_password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// ValidateCredentials checks an HTTP Basic Authorization header value and
// returns the username on success.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid credentials format")
	}

	if !m.Verify(parts[0], parts[1]) {
		return "", fmt.Errorf("invalid username or password")
	}
	return parts[0], nil
}

// Verify compares a username/password pair against the stored credential.
// The username check is constant-time and bcrypt's comparison is
// timing-safe by construction.
func (m *BasicAuthManager) Verify(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// GetWWWAuthenticateHeader returns the challenge sent with 401 responses.
func (m *BasicAuthManager) GetWWWAuthenticateHeader() string {
	return `Basic realm="NeXroll", charset="UTF-8"`
}
