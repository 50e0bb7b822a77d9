// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package mediaserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
)

// introPluginNames are matched against GET /Plugins entries, most specific
// first. The community plugin has shipped under several names.
var introPluginNames = []string{"local intros", "intros", "intro"}

// Jellyfin drives a Jellyfin server through the "Local Intros" community
// plugin. Jellyfin has no native preroll preference, so the adapter rewrites
// the plugin's configuration document: it receives the same delimited wire
// value as the Plex adapter, derives the parent directories, and stores
// those under whichever configuration key this plugin build uses.
type Jellyfin struct {
	baseURL string
	apiKey  string
	client  *http.Client

	// pluginID caches the discovered plugin so apply does not re-list
	// /Plugins every tick. Invalidated on plugin errors.
	pluginID string
}

// NewJellyfin creates the adapter. An empty baseURL yields an unconfigured
// adapter whose methods return ErrNotConfigured.
func NewJellyfin(baseURL, apiKey string, timeout time.Duration, tlsVerify bool) *Jellyfin {
	return &Jellyfin{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout, tlsVerify),
	}
}

// Name implements Adapter.
func (j *Jellyfin) Name() string { return "jellyfin" }

// Configured implements Adapter.
func (j *Jellyfin) Configured() bool { return j.baseURL != "" }

// TestConnection implements Adapter.
func (j *Jellyfin) TestConnection(ctx context.Context) error {
	_, err := j.GetServerInfo(ctx)
	return err
}

// GetServerInfo fetches /System/Info, reduced to identity fields.
func (j *Jellyfin) GetServerInfo(ctx context.Context) (*models.ServerInfo, error) {
	if !j.Configured() {
		return nil, ErrNotConfigured
	}

	var info models.JellyfinSystemInfo
	if err := j.getJSON(ctx, "/System/Info", &info); err != nil {
		return nil, err
	}
	return &models.ServerInfo{
		Platform:    normalizePlatform(info.OperatingSystem),
		RawPlatform: info.OperatingSystem,
		Name:        info.ServerName,
		Version:     info.Version,
	}, nil
}

// GetPreroll reads the current intro directories from the plugin
// configuration, joined with ";" to mirror the Plex wire form.
func (j *Jellyfin) GetPreroll(ctx context.Context) (string, error) {
	if !j.Configured() {
		return "", ErrNotConfigured
	}

	pluginID, err := j.findIntroPlugin(ctx)
	if err != nil {
		return "", err
	}
	cfg, err := j.getPluginConfig(ctx, pluginID)
	if err != nil {
		return "", err
	}

	if key, dirs, ok := matchedListKey(cfg); ok {
		logging.Debug().Str("key", key).Int("dirs", len(dirs)).Msg("Read Jellyfin intro list key")
		return strings.Join(dirs, ";"), nil
	}
	if key, dir, ok := matchedStringKey(cfg); ok {
		logging.Debug().Str("key", key).Msg("Read Jellyfin intro string key")
		return dir, nil
	}
	return "", nil
}

// SetPreroll rewrites the plugin configuration so its intro directories are
// the parent directories of the delimited paths in value. The write is
// confirmed by re-reading the configuration.
func (j *Jellyfin) SetPreroll(ctx context.Context, value string) error {
	if !j.Configured() {
		return ErrNotConfigured
	}

	err := j.setPreroll(ctx, value)
	if err != nil {
		metrics.ApplyAttempts.WithLabelValues(j.Name(), "failure").Inc()
		// A stale cached plugin ID is rediscovered on the next apply.
		j.pluginID = ""
		return err
	}
	metrics.ApplyAttempts.WithLabelValues(j.Name(), "success").Inc()
	return nil
}

func (j *Jellyfin) setPreroll(ctx context.Context, value string) error {
	dirs := parentDirs(splitWireValue(value))
	if len(dirs) == 0 {
		return fmt.Errorf("no usable directories in preroll value")
	}

	pluginID, err := j.findIntroPlugin(ctx)
	if err != nil {
		return err
	}
	cfg, err := j.getPluginConfig(ctx, pluginID)
	if err != nil {
		return err
	}

	wroteKey := applyDirsToConfig(cfg, dirs)
	// The "Local" key always receives the first directory in addition to
	// whichever key matched; several plugin builds read only it.
	cfg[models.JellyfinLocalKey] = dirs[0]

	if err := j.postPluginConfig(ctx, pluginID, cfg); err != nil {
		return err
	}

	// Readback gate, same contract as the Plex adapter.
	verify, err := j.getPluginConfig(ctx, pluginID)
	if err != nil {
		return fmt.Errorf("readback after configuration write: %w", err)
	}
	if !configHoldsDirs(verify, dirs) {
		metrics.ApplyReadbackMismatches.WithLabelValues(j.Name(), "config").Inc()
		return ErrValueMismatch
	}

	logging.Info().Str("key", wroteKey).Int("dirs", len(dirs)).Msg("Applied Jellyfin intro directories")
	return nil
}

// findIntroPlugin locates the Local Intros plugin, trying the known names
// most specific first.
func (j *Jellyfin) findIntroPlugin(ctx context.Context) (string, error) {
	if j.pluginID != "" {
		return j.pluginID, nil
	}

	var plugins []models.JellyfinPlugin
	if err := j.getJSON(ctx, "/Plugins", &plugins); err != nil {
		return "", err
	}

	for _, needle := range introPluginNames {
		for _, plugin := range plugins {
			if containsFold(plugin.Name, needle) {
				j.pluginID = plugin.ID
				logging.Debug().Str("plugin", plugin.Name).Str("id", plugin.ID).Msg("Found Jellyfin intros plugin")
				return plugin.ID, nil
			}
		}
	}
	return "", fmt.Errorf("no intros plugin installed on Jellyfin server")
}

func (j *Jellyfin) getPluginConfig(ctx context.Context, pluginID string) (models.JellyfinPluginConfig, error) {
	var cfg models.JellyfinPluginConfig
	if err := j.getJSON(ctx, "/Plugins/"+url.PathEscape(pluginID)+"/Configuration", &cfg); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = models.JellyfinPluginConfig{}
	}
	return cfg, nil
}

func (j *Jellyfin) postPluginConfig(ctx context.Context, pluginID string, cfg models.JellyfinPluginConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode plugin configuration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		j.baseURL+"/Plugins/"+url.PathEscape(pluginID)+"/Configuration", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create configuration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return &HTTPError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
}

func (j *Jellyfin) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return classifyError(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (j *Jellyfin) do(req *http.Request) (*http.Response, error) {
	if j.apiKey != "" {
		// Both header spellings: Jellyfin reads X-Emby-Token, older
		// Emby-lineage builds only X-MediaBrowser-Token.
		req.Header.Set("X-Emby-Token", j.apiKey)
		req.Header.Set("X-MediaBrowser-Token", j.apiKey)
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	return resp, nil
}

// splitWireValue splits a delimited preroll value on both wire separators.
func splitWireValue(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parentDirs maps file paths to their parent directories, deduplicated in
// first-seen order. Both separators are honored so Windows-styled server
// paths survive.
func parentDirs(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		dir := parentDir(p)
		if dir == "" {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	return out
}

func parentDir(path string) string {
	idx := strings.LastIndexAny(path, `/\`)
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

// matchedListKey returns the first probe key holding a non-empty string
// list.
func matchedListKey(cfg models.JellyfinPluginConfig) (string, []string, bool) {
	for _, key := range models.JellyfinIntroListKeys {
		raw, ok := cfg[key]
		if !ok {
			continue
		}
		list, ok := raw.([]interface{})
		if !ok {
			continue
		}
		dirs := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				dirs = append(dirs, s)
			}
		}
		if len(dirs) > 0 {
			return key, dirs, true
		}
	}
	return "", nil, false
}

// matchedStringKey returns the first probe key holding a non-empty string.
func matchedStringKey(cfg models.JellyfinPluginConfig) (string, string, bool) {
	for _, key := range models.JellyfinIntroStringKeys {
		if s, ok := cfg[key].(string); ok && s != "" {
			return key, s, true
		}
	}
	return "", "", false
}

// applyDirsToConfig writes dirs into the first configuration key this plugin
// build carries: a present list key gets the full set, a present string key
// gets the first directory. When no known key exists at all, the preferred
// list key is created.
func applyDirsToConfig(cfg models.JellyfinPluginConfig, dirs []string) string {
	asAny := make([]interface{}, len(dirs))
	for i, d := range dirs {
		asAny[i] = d
	}

	for _, key := range models.JellyfinIntroListKeys {
		if _, ok := cfg[key]; ok {
			cfg[key] = asAny
			return key
		}
	}
	for _, key := range models.JellyfinIntroStringKeys {
		if _, ok := cfg[key]; ok {
			cfg[key] = dirs[0]
			return key
		}
	}
	cfg[models.JellyfinIntroListKeys[0]] = asAny
	return models.JellyfinIntroListKeys[0]
}

// configHoldsDirs reports whether a re-read configuration reflects the
// written directories through any known key.
func configHoldsDirs(cfg models.JellyfinPluginConfig, dirs []string) bool {
	if _, got, ok := matchedListKey(cfg); ok {
		if len(got) == len(dirs) {
			match := true
			for i := range dirs {
				if got[i] != dirs[i] {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	if _, got, ok := matchedStringKey(cfg); ok && got == dirs[0] {
		return true
	}
	if s, ok := cfg[models.JellyfinLocalKey].(string); ok && s == dirs[0] {
		return true
	}
	return false
}
