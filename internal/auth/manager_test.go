// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nexroll/nexroll/internal/config"
)

func jwtConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		AuthMode:       ModeJWT,
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		SessionTimeout: time.Hour,
		AdminUsername:  "admin",
		AdminPassword:  "correct horse battery",
	}
}

func basicConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		AuthMode:      ModeBasic,
		AdminUsername: "admin",
		AdminPassword: "correct horse battery",
	}
}

func protectedEcho(m *Manager) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UsernameFromContext(r.Context())))
	})
}

func TestNewManager_ModeValidation(t *testing.T) {
	if _, err := NewManager(&config.SecurityConfig{AuthMode: "oauth"}); err == nil {
		t.Error("unknown auth mode accepted")
	}
	if _, err := NewManager(&config.SecurityConfig{AuthMode: ModeBasic}); err == nil {
		t.Error("basic mode without credentials accepted")
	}
	cfg := jwtConfig()
	cfg.JWTSecret = "short"
	if _, err := NewManager(cfg); err == nil {
		t.Error("short jwt secret accepted")
	}

	m, err := NewManager(&config.SecurityConfig{})
	if err != nil {
		t.Fatalf("NewManager(empty) error: %v", err)
	}
	if m.Mode() != ModeNone || m.Enabled() {
		t.Errorf("empty config mode = %q, enabled = %v", m.Mode(), m.Enabled())
	}
}

func TestAuthenticate_NoneModePassesThrough(t *testing.T) {
	m, err := NewManager(&config.SecurityConfig{AuthMode: ModeNone})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	protectedEcho(m)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticate_BasicMode(t *testing.T) {
	m, err := NewManager(basicConfig())
	if err != nil {
		t.Fatal(err)
	}
	handler := protectedEcho(m)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without credentials = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("401 missing WWW-Authenticate challenge")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	creds := base64.StdEncoding.EncodeToString([]byte("admin:correct horse battery"))
	req.Header.Set("Authorization", "Basic "+creds)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "admin" {
		t.Errorf("authenticated request: status %d, user %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	bad := base64.StdEncoding.EncodeToString([]byte("admin:wrong"))
	req.Header.Set("Authorization", "Basic "+bad)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with bad password = %d, want 401", rec.Code)
	}
}

func TestAuthenticate_JWTMode(t *testing.T) {
	m, err := NewManager(jwtConfig())
	if err != nil {
		t.Fatal(err)
	}
	handler := protectedEcho(m)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	login := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	login.RemoteAddr = "10.0.0.1:52000"
	token, expiresAt, err := m.Login(login, "admin", "correct horse battery")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Error("token already expired at issue")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "admin" {
		t.Errorf("authenticated request: status %d, user %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with garbage token = %d, want 401", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	m, err := NewManager(jwtConfig())
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:52000"

	if _, _, err := m.Login(req, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	m, err := NewManager(jwtConfig())
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.3:52000"

	var last error
	for i := 0; i < 10; i++ {
		_, _, last = m.Login(req, "admin", "wrong")
	}
	if !errors.Is(last, ErrTooManyAttempts) {
		t.Errorf("tenth attempt error = %v, want ErrTooManyAttempts", last)
	}

	// A different IP is unaffected.
	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "10.0.0.4:52000"
	if _, _, err := m.Login(other, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("fresh IP error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_RequiresJWTMode(t *testing.T) {
	m, err := NewManager(basicConfig())
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if _, _, err := m.Login(req, "admin", "correct horse battery"); !errors.Is(err, ErrLoginNotSupported) {
		t.Errorf("Login() in basic mode error = %v, want ErrLoginNotSupported", err)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc123")
	if got := bearerToken(req); got != "abc123" {
		t.Errorf("bearerToken (lowercase scheme) = %q", got)
	}

	req.Header.Set("Authorization", "Basic abc123")
	if got := bearerToken(req); got != "" {
		t.Errorf("bearerToken on basic header = %q, want empty", got)
	}
}
