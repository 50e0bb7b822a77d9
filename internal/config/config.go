// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package config provides layered configuration management for NeXroll.
//
// Configuration is loaded via Koanf v2 with the precedence ENV > file >
// defaults. See koanf.go for the loading pipeline and the environment
// variable mapping table.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for the NeXroll server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Secrets  SecretsConfig  `koanf:"secrets"`
	Plex     PlexConfig     `koanf:"plex"`
	Jellyfin JellyfinConfig `koanf:"jellyfin"`
	Engine   EngineConfig   `koanf:"engine"`
	Library  LibraryConfig  `koanf:"library"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// SecretsConfig holds the encrypted credential store settings.
type SecretsConfig struct {
	// Path is the Badger directory for the encrypted token store.
	Path string `koanf:"path"`

	// MasterKey seeds HKDF key derivation for credential encryption.
	// When empty, a key file is generated next to Path on first run.
	MasterKey string `koanf:"master_key"`
}

// PlexConfig holds Plex Media Server connection settings.
//
// Token is mirrored into the secret store at startup; while the environment
// variable is set it wins over the stored value.
type PlexConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`

	// TLSVerify overrides the TLS verification heuristic when non-empty:
	// "1"/"true" forces verification on, "0"/"false" forces it off.
	TLSVerify string `koanf:"tls_verify"`

	// WebhookSecret enables HMAC-SHA1 verification of webhook payloads
	// when set.
	WebhookSecret string `koanf:"webhook_secret"`

	// AlertListener enables the optional realtime notification WebSocket.
	// Advisory only; the webhook path is the reliable trigger.
	AlertListener bool `koanf:"alert_listener"`
}

// JellyfinConfig holds Jellyfin server connection settings.
type JellyfinConfig struct {
	URL       string `koanf:"url"`
	APIKey    string `koanf:"api_key"`
	TLSVerify string `koanf:"tls_verify"`
}

// EngineConfig holds decision-engine cadences. Intervals are whole seconds
// because the legacy SCHEDULER_INTERVAL variable carries bare seconds.
type EngineConfig struct {
	// TickSeconds is the control loop cadence. Default 60.
	TickSeconds int `koanf:"tick_seconds"`

	// RotateSeconds re-emits a winning sequence with random steps so the
	// picks cycle. Default 300.
	RotateSeconds int `koanf:"rotate_seconds"`

	// VerifySeconds is the reconciler cadence. Default 300.
	VerifySeconds int `koanf:"verify_seconds"`

	// HTTPTimeout bounds every outbound media server call. Default 10s.
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// HolidayAPIURL is the public-holiday API base. Overridable for tests.
	HolidayAPIURL string `koanf:"holiday_api_url"`
}

// TickInterval returns the control loop cadence as a duration.
func (e *EngineConfig) TickInterval() time.Duration {
	return time.Duration(e.TickSeconds) * time.Second
}

// RotateInterval returns the sequence rotation cadence as a duration.
func (e *EngineConfig) RotateInterval() time.Duration {
	return time.Duration(e.RotateSeconds) * time.Second
}

// VerifyInterval returns the reconciler cadence as a duration.
func (e *EngineConfig) VerifyInterval() time.Duration {
	return time.Duration(e.VerifySeconds) * time.Second
}

// LibraryConfig holds the ingest watcher settings.
type LibraryConfig struct {
	Enabled bool `koanf:"enabled"`

	// Roots are the directories watched for new video files.
	Roots []string `koanf:"roots"`

	// IngestCategory names the category new files register into.
	IngestCategory string `koanf:"ingest_category"`

	// SettleDelay is how long a file must be quiet before registration,
	// so partially copied files are not picked up.
	SettleDelay time.Duration `koanf:"settle_delay"`

	// Extensions is the allowed file extension whitelist (lowercase,
	// with dot).
	Extensions []string `koanf:"extensions"`
}

// SecurityConfig holds management API authentication settings.
type SecurityConfig struct {
	// AuthMode is "none", "basic", or "jwt".
	AuthMode string `koanf:"auth_mode"`

	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for internal consistency. It is called
// by Load after all layers are merged.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Engine.TickSeconds < 1 {
		return fmt.Errorf("engine.tick_seconds must be >= 1, got %d", c.Engine.TickSeconds)
	}
	if c.Engine.RotateSeconds < 1 {
		return fmt.Errorf("engine.rotate_seconds must be >= 1, got %d", c.Engine.RotateSeconds)
	}
	if c.Engine.VerifySeconds < 1 {
		return fmt.Errorf("engine.verify_seconds must be >= 1, got %d", c.Engine.VerifySeconds)
	}

	for name, raw := range map[string]string{"plex.url": c.Plex.URL, "jellyfin.url": c.Jellyfin.URL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("%s has no host", name)
		}
	}

	switch c.Security.AuthMode {
	case "none", "basic", "jwt":
	default:
		return fmt.Errorf("security.auth_mode must be none, basic, or jwt, got %q", c.Security.AuthMode)
	}
	if c.Security.AuthMode == "jwt" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters when auth_mode=jwt")
	}
	if c.Security.AuthMode != "none" && (c.Security.AdminUsername == "" || c.Security.AdminPassword == "") {
		return fmt.Errorf("security.admin_username and admin_password are required when auth_mode=%s", c.Security.AuthMode)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// PlexConfigured reports whether a Plex server is configured.
func (c *Config) PlexConfigured() bool {
	return c.Plex.URL != ""
}

// JellyfinConfigured reports whether a Jellyfin server is configured.
func (c *Config) JellyfinConfigured() bool {
	return c.Jellyfin.URL != ""
}
