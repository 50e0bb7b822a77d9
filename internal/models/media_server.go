// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import "time"

// Server platforms reported by get_server_info and used for path validation.
const (
	PlatformWindows = "windows"
	PlatformLinux   = "linux"
	PlatformMacOS   = "macos"
	PlatformUnknown = "unknown"
)

// ServerInfo is the normalized identity of a media server, shared by the
// Plex and Jellyfin adapters.
type ServerInfo struct {
	Platform string `json:"platform"` // normalized: windows, linux, macos, unknown
	Name     string `json:"name,omitempty"`
	Version  string `json:"version,omitempty"`
	// RawPlatform preserves the server's own platform string for logs.
	RawPlatform string `json:"raw_platform,omitempty"`
}

// IsWindows reports whether the server filesystem is Windows-styled.
func (s *ServerInfo) IsWindows() bool {
	return s.Platform == PlatformWindows
}

// PlaybackSession is a normalized active session, decoded from either the
// XML or JSON form of Plex /status/sessions. The genre flow picks one
// session and reads its genres.
type PlaybackSession struct {
	SessionKey           string   `json:"session_key"`
	RatingKey            string   `json:"rating_key"`
	ParentRatingKey      string   `json:"parent_rating_key,omitempty"`
	GrandparentRatingKey string   `json:"grandparent_rating_key,omitempty"`
	Type                 string   `json:"type"`
	Title                string   `json:"title"`
	State                string   `json:"state"` // "playing", "paused", "buffering"
	ViewOffset           int64    `json:"view_offset"`
	Duration             int64    `json:"duration"`
	Genres               []string `json:"genres,omitempty"`
}

// IsPlaying reports whether the session is actively playing.
func (s *PlaybackSession) IsPlaying() bool {
	return s.State == "playing"
}

// Progress returns the playback fraction in [0,1], 0 when unknown.
func (s *PlaybackSession) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.ViewOffset) / float64(s.Duration)
}

// MediaMetadata is a normalized metadata record for one rating key,
// used for the parent/grandparent genre fallback.
type MediaMetadata struct {
	RatingKey            string   `json:"rating_key"`
	ParentRatingKey      string   `json:"parent_rating_key,omitempty"`
	GrandparentRatingKey string   `json:"grandparent_rating_key,omitempty"`
	Type                 string   `json:"type"`
	Title                string   `json:"title"`
	Genres               []string `json:"genres,omitempty"`
}

// ConnectionStatus is the health surface for one configured media server.
type ConnectionStatus struct {
	Configured bool       `json:"configured"`
	Connected  bool       `json:"connected"`
	Platform   string     `json:"platform,omitempty"`
	Version    string     `json:"version,omitempty"`
	Error      string     `json:"error,omitempty"`
	CheckedAt  *time.Time `json:"checked_at,omitempty"`
}

// ProbeResult reports a Plex write-path probe: which setter variant
// succeeded against a harmless readback, without touching the real value.
type ProbeResult struct {
	Reachable      bool   `json:"reachable"`
	PrefsReadable  bool   `json:"prefs_readable"`
	WorkingVariant string `json:"working_variant,omitempty"` // "query_put", "form_put", "post"
	CurrentValue   string `json:"current_value,omitempty"`
	Error          string `json:"error,omitempty"`
}
