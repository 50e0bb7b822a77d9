// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package models provides data models for the application.
//
// Domain entities (Preroll, Category, Schedule, GenreMap, Settings) mirror the
// DuckDB schema in internal/database. Wire models (Plex sessions and prefs,
// Jellyfin plugin configuration, webhook payloads) mirror the exact shapes the
// media servers speak, including the XML-or-JSON duality of Plex endpoints.
//
// Request types carry go-playground/validator tags; the API layer validates
// them before anything reaches the store.
package models
