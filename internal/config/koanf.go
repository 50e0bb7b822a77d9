// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nexroll/config.yaml",
	"/etc/nexroll/config.yml",
}

// ConfigPathEnvVar overrides the config file search when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults load
// first, then the config file, then environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    9393,
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/nexroll.duckdb",
			MaxMemory: "512MB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Secrets: SecretsConfig{
			Path:      "/data/secrets",
			MasterKey: "",
		},
		Plex: PlexConfig{
			URL:           "",
			Token:         "",
			TLSVerify:     "",
			WebhookSecret: "",
			AlertListener: false, // advisory intercept, opt-in only
		},
		Jellyfin: JellyfinConfig{
			URL:       "",
			APIKey:    "",
			TLSVerify: "",
		},
		Engine: EngineConfig{
			TickSeconds:   60,
			RotateSeconds: 300,
			VerifySeconds: 300,
			HTTPTimeout:   10 * time.Second,
			HolidayAPIURL: "https://date.nager.at",
		},
		Library: LibraryConfig{
			Enabled:        false,
			Roots:          []string{},
			IngestCategory: "Incoming",
			SettleDelay:    5 * time.Second,
			Extensions:     []string{".mp4", ".mkv", ".mov", ".avi", ".m4v", ".webm"},
		},
		Security: SecurityConfig{
			AuthMode:        "none",
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "",
			AdminPassword:   "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (CONFIG_PATH or the default search paths)
//  3. Environment variables: highest priority, see envTransformFunc
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are the config paths parsed as comma-separated slices
// when they arrive as strings from environment variables.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"library.roots",
	"library.extensions",
}

// processSliceFields converts comma-separated string values to slices for
// the known slice fields. YAML-sourced values are already slices and skip.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps recognized environment variables (lowercased) to koanf
// config paths. Unmapped variables are ignored rather than guessed, so
// unrelated environment noise cannot perturb the configuration.
var envMappings = map[string]string{
	// Media servers
	"nexroll_plex_url":            "plex.url",
	"nexroll_plex_token":          "plex.token",
	"nexroll_plex_tls_verify":     "plex.tls_verify",
	"nexroll_plex_webhook_secret": "plex.webhook_secret",
	"nexroll_plex_alert_listener": "plex.alert_listener",
	"nexroll_jellyfin_url":        "jellyfin.url",
	"nexroll_jellyfin_api_key":    "jellyfin.api_key",
	"nexroll_jellyfin_tls_verify": "jellyfin.tls_verify",

	// Engine cadences (legacy variable carries bare seconds)
	"scheduler_interval":      "engine.tick_seconds",
	"nexroll_rotate_seconds":  "engine.rotate_seconds",
	"nexroll_verify_seconds":  "engine.verify_seconds",
	"nexroll_holiday_api_url": "engine.holiday_api_url",

	// Storage
	"database_path":      "database.path",
	"duckdb_path":        "database.path",
	"secrets_path":       "secrets.path",
	"nexroll_master_key": "secrets.master_key",

	// HTTP server
	"http_host": "server.host",
	"http_port": "server.port",

	// Library watcher
	"library_enabled":         "library.enabled",
	"library_roots":           "library.roots",
	"library_ingest_category": "library.ingest_category",

	// Security
	"auth_mode":      "security.auth_mode",
	"jwt_secret":     "security.jwt_secret",
	"admin_username": "security.admin_username",
	"admin_password": "security.admin_password",
	"cors_origins":   "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Returning "" drops the variable.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
