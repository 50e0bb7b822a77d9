// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package config

import "testing"

func TestInferTLSVerify(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		override string
		want     bool
	}{
		{"http url verifies by default", "http://plex.example.com:32400", "", true},
		{"https public host verifies", "https://plex.example.com:32400", "", true},
		{"https localhost skips", "https://localhost:32400", "", false},
		{"https loopback ip skips", "https://127.0.0.1:32400", "", false},
		{"https rfc1918 10 skips", "https://10.0.0.5:32400", "", false},
		{"https rfc1918 172 skips", "https://172.16.4.2:32400", "", false},
		{"https rfc1918 192 skips", "https://192.168.1.10:32400", "", false},
		{"https 172 outside private range verifies", "https://172.32.0.1:32400", "", true},
		{"https dot-local skips", "https://plex.local:32400", "", false},
		{"https docker host alias skips", "https://host.docker.internal:32400", "", false},
		{"override 0 wins over public host", "https://plex.example.com", "0", false},
		{"override false wins", "https://plex.example.com", "false", false},
		{"override 1 wins over localhost", "https://localhost:32400", "1", true},
		{"override true wins over private ip", "https://192.168.1.10", "true", true},
		{"override is case-insensitive", "https://plex.example.com", "FALSE", false},
		{"unparseable url verifies", "://not-a-url", "", true},
		{"empty url verifies", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferTLSVerify(tt.url, tt.override); got != tt.want {
				t.Errorf("InferTLSVerify(%q, %q) = %v, want %v", tt.url, tt.override, got, tt.want)
			}
		})
	}
}
