// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package mediaserver holds the Plex and Jellyfin adapters. Each adapter
// translates the engine's "apply this preroll value" intent into the
// server's own wire protocol and verifies the write with a readback.
package mediaserver

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

// Adapter is the capability surface the engine needs from a media server.
type Adapter interface {
	// Name identifies the adapter in logs and metrics ("plex", "jellyfin").
	Name() string

	// Configured reports whether a server URL and credential are present.
	Configured() bool

	// TestConnection verifies reachability and authentication.
	TestConnection(ctx context.Context) error

	// GetServerInfo fetches the server identity, including the normalized
	// platform used for path validation.
	GetServerInfo(ctx context.Context) (*models.ServerInfo, error)

	// GetPreroll reads the current preroll value from the server.
	GetPreroll(ctx context.Context) (string, error)

	// SetPreroll writes the preroll value and confirms it with a readback.
	SetPreroll(ctx context.Context, value string) error
}

// SessionSource is the additional surface the genre flow needs. Only the
// Plex adapter implements it; Jellyfin has no session-driven genre path.
type SessionSource interface {
	// ActiveSessions lists current playback sessions.
	ActiveSessions(ctx context.Context) ([]models.PlaybackSession, error)

	// GetMetadata fetches metadata for one rating key, for the
	// parent/grandparent genre fallback.
	GetMetadata(ctx context.Context, ratingKey string) (*models.MediaMetadata, error)
}

// newHTTPClient builds the outbound client for one adapter. TLS verification
// is decided per server by the caller (config.InferTLSVerify).
func newHTTPClient(timeout time.Duration, tlsVerify bool) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if !tlsVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- operator opted out for local servers
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// containsFold is a case-insensitive strings.Contains.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// normalizePlatform maps a server's raw platform string to one of the
// models.Platform* constants.
func normalizePlatform(raw string) string {
	switch {
	case raw == "":
		return models.PlatformUnknown
	case containsFold(raw, "windows"):
		return models.PlatformWindows
	case containsFold(raw, "darwin"), containsFold(raw, "macos"), containsFold(raw, "osx"), containsFold(raw, "os x"):
		return models.PlatformMacOS
	case containsFold(raw, "linux"), containsFold(raw, "debian"), containsFold(raw, "ubuntu"),
		containsFold(raw, "docker"), containsFold(raw, "freebsd"):
		return models.PlatformLinux
	default:
		return models.PlatformUnknown
	}
}
