// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package config

import (
	"net"
	"net/url"
	"strings"
)

// InferTLSVerify decides whether certificate verification applies to a media
// server URL. Pure function; no network access.
//
// Precedence:
//  1. A non-empty override ("0"/"false"/"no"/"off" or "1"/"true"/"yes"/"on")
//     always wins.
//  2. For https URLs targeting loopback, RFC1918 private ranges, ".local"
//     names, or Docker host aliases, verification is disabled: these hosts
//     almost always run self-signed certificates.
//  3. Everything else verifies.
//
// Plain http URLs return true; the value is unused without TLS.
func InferTLSVerify(rawURL, override string) bool {
	switch strings.ToLower(strings.TrimSpace(override)) {
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return true
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return true
	}

	if host == "localhost" || strings.HasSuffix(host, ".local") {
		return false
	}
	if host == "host.docker.internal" || host == "gateway.docker.internal" {
		return false
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() {
			return false
		}
	}

	return true
}
