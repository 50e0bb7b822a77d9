// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package metrics provides Prometheus instrumentation for the preroll
// engine, the store, the management API, and the media server adapters.
// All collectors are registered via promauto at package init and exposed
// on GET /metrics.
package metrics
