// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package auth implements the three authentication modes: none (default,
// matching a LAN appliance), HTTP Basic against a single admin credential,
// and JWT bearer sessions issued by the login endpoint.
package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nexroll/nexroll/internal/config"
	"github.com/nexroll/nexroll/internal/logging"
)

// Authentication modes.
const (
	ModeNone  = "none"
	ModeBasic = "basic"
	ModeJWT   = "jwt"
)

// AdminRole is the only role the single-admin model issues.
const AdminRole = "admin"

// Sentinel errors returned by Login.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrLoginNotSupported  = errors.New("login requires jwt auth mode")
)

type userContextKey struct{}

// Manager dispatches authentication according to the configured mode.
type Manager struct {
	mode    string
	basic   *BasicAuthManager
	jwt     *JWTManager
	limiter *loginLimiter
	seclog  *logging.SecurityLogger
}

// NewManager builds the manager for the configured auth mode. Basic and
// jwt modes require the admin credential pair; jwt additionally requires
// a signing secret.
func NewManager(cfg *config.SecurityConfig) (*Manager, error) {
	m := &Manager{
		mode:    cfg.AuthMode,
		limiter: newLoginLimiter(5, 5*time.Minute),
		seclog:  logging.NewSecurityLogger(),
	}

	switch cfg.AuthMode {
	case "", ModeNone:
		m.mode = ModeNone
		return m, nil

	case ModeBasic:
		basic, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		m.basic = basic
		return m, nil

	case ModeJWT:
		basic, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		jwtManager, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.basic = basic
		m.jwt = jwtManager
		return m, nil

	default:
		return nil, errors.New("auth_mode must be none, basic, or jwt")
	}
}

// Mode returns the active authentication mode.
func (m *Manager) Mode() string { return m.mode }

// Enabled reports whether requests must authenticate.
func (m *Manager) Enabled() bool { return m.mode != ModeNone }

// Login verifies the admin credential pair and issues a session token.
// Only meaningful in jwt mode; basic mode authenticates per request and
// none mode has no credentials at all.
func (m *Manager) Login(r *http.Request, username, password string) (string, time.Time, error) {
	if m.mode != ModeJWT {
		return "", time.Time{}, ErrLoginNotSupported
	}

	ip := clientIP(r)
	if !m.limiter.Allow(ip) {
		m.seclog.LogRateLimited(username, ip)
		return "", time.Time{}, ErrTooManyAttempts
	}

	if !m.basic.Verify(username, password) {
		m.seclog.LogLoginFailure(username, ModeJWT, ip, r.UserAgent(), "bad credentials")
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := m.jwt.GenerateToken(username, AdminRole)
	if err != nil {
		return "", time.Time{}, err
	}
	m.seclog.LogLoginSuccess(username, ModeJWT, ip, r.UserAgent())
	return token, expiresAt, nil
}

// Authenticate gates a handler behind the configured auth mode.
func (m *Manager) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	switch m.mode {
	case ModeBasic:
		return func(w http.ResponseWriter, r *http.Request) {
			username, err := m.basic.ValidateCredentials(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", m.basic.GetWWWAuthenticateHeader())
				writeUnauthorized(w, "authentication required")
				return
			}
			next(w, r.WithContext(ContextWithUsername(r.Context(), username)))
		}

	case ModeJWT:
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, "bearer token required")
				return
			}
			claims, err := m.jwt.ValidateToken(token)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			next(w, r.WithContext(ContextWithUsername(r.Context(), claims.Username)))
		}

	default:
		return next
	}
}

// ContextWithUsername records the authenticated user on the context.
func ContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userContextKey{}, username)
}

// UsernameFromContext returns the authenticated user, or "" when the
// request was not authenticated (mode none).
func UsernameFromContext(ctx context.Context) string {
	if username, ok := ctx.Value(userContextKey{}).(string); ok {
		return username
	}
	return ""
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// clientIP returns the remote host without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	//nolint:errcheck // nothing useful to do with a failed error write
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
