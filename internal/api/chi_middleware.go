// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Middleware bundles the router's CORS and rate limit factories, built from
// the security config.
type Middleware struct {
	corsOrigins []string
	reqs        int
	window      time.Duration
}

// NewMiddleware creates the factory set. Zero values fall back to 100
// requests per minute; an empty origin list disables cross-origin access.
func NewMiddleware(corsOrigins []string, reqs int, window time.Duration) *Middleware {
	if reqs <= 0 {
		reqs = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Middleware{corsOrigins: corsOrigins, reqs: reqs, window: window}
}

// CORS handles preflight and origin checks. Global so OPTIONS works on
// every route.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: m.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Plex-Signature", "X-Request-ID"},
		MaxAge:         86400,
	})
}

// RateLimit is the per-IP default for management endpoints.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return httprate.LimitByIP(m.reqs, m.window)
}

// RateLimitLogin is strict: brute force on the login endpoint burns out
// long before the in-process attempt limiter does.
func (m *Middleware) RateLimitLogin() func(http.Handler) http.Handler {
	return httprate.LimitByIP(10, time.Minute)
}

// RateLimitHealth is permissive so monitoring can poll freely.
func (m *Middleware) RateLimitHealth() func(http.Handler) http.Handler {
	return httprate.LimitByIP(1000, time.Minute)
}

// APISecurityHeaders adds the response headers every endpoint carries.
// HSTS only goes out when the request arrived over TLS, directly or via a
// terminating proxy.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// chiMiddleware adapts a HandlerFunc-chaining middleware onto chi's
// http.Handler signature.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
