// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package middleware provides HTTP middleware shared across the API:
// request ID propagation for tracing and Prometheus instrumentation.
// Middleware here uses the http.HandlerFunc chaining style; the API
// router adapts it onto chi where needed.
package middleware
