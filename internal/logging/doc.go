// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package logging provides centralized zerolog-based structured logging for NeXroll.
//
// The scheduler, the media-server adapters, and the HTTP API all log through the
// single global logger configured here. Production output is JSON; development
// can switch to console format.
//
// # Quick Start
//
//	import "github.com/nexroll/nexroll/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	// Log messages with structured fields
//	logging.Info().Int64("schedule_id", id).Msg("Schedule activated")
//	logging.Error().Err(err).Msg("Preroll apply failed")
//
// # Configuration
//
// Environment Variables (mapped by internal/config):
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting:
//
//	logging.Info().Str("category", name).Int("count", n).Msg("Applied")  // Correct
//	logging.Info().Msgf("applied %d prerolls for %s", n, name)           // Avoid
//
// # slog Adapter
//
// Libraries that require *slog.Logger (sutureslog in particular) get one via
// NewSlogLogger(), which routes records into the zerolog backend.
//
// # Failure Deduplication
//
// The scheduler ticks continuously, so a persistent failure (an unreachable
// Plex server, a bad token) would repeat the same error line every few
// seconds. Deduper suppresses unchanged failure states for a window
// (5 minutes by default) and logs state changes and recoveries immediately.
//
// # Credential Sanitization
//
// Plex tokens, Jellyfin API keys, and passwords must never reach log output.
// SanitizeToken, SanitizeURL, and SecurityLogger mask them before emission.
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger is
// protected by sync.RWMutex for configuration changes.
package logging
