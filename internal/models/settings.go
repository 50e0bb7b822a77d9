// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Genre priority modes. schedules_override means an active schedule beats a
// genre application; genres_override lets genre playback win.
const (
	GenrePriorityScheduleWins = "schedules_override"
	GenrePriorityGenreWins    = "genres_override"
)

// Filler types for the empty-set ladder.
const (
	FillerTypeCategory   = "category"
	FillerTypeSequence   = "sequence"
	FillerTypeComingSoon = "coming_soon"
)

// Settings is the process-wide singleton (row id=1).
//
// ActiveCategoryID, LastScheduleFallbackID, OverrideExpiresAt, FillerActive,
// and LastAppliedValue are written exclusively by the engine; everything else
// is operator configuration. Media server tokens never live here: they are
// held in the encrypted secret store and only the URLs are persisted.
type Settings struct {
	ID int64 `json:"id"`

	PlexURL     string `json:"plex_url,omitempty"`
	JellyfinURL string `json:"jellyfin_url,omitempty"`

	// ActiveCategoryID is the last category the engine applied.
	ActiveCategoryID *int64 `json:"active_category_id,omitempty"`

	// LastScheduleFallbackID holds the winning schedule's fallback category,
	// replayed when the active set empties.
	LastScheduleFallbackID *int64 `json:"last_schedule_fallback_id,omitempty"`

	// OverrideExpiresAt guards a fresh genre application from being stomped
	// by the schedule path. UTC.
	OverrideExpiresAt *time.Time `json:"override_expires_at,omitempty"`

	// PathMappings is the raw JSON list of {local, plex} prefix pairs.
	// Use Mappings() for the typed form.
	PathMappings string `json:"path_mappings,omitempty"`

	FillerEnabled          bool    `json:"filler_enabled"`
	FillerType             string  `json:"filler_type,omitempty"`
	FillerCategoryID       *int64  `json:"filler_category_id,omitempty"`
	FillerSequenceID       *int64  `json:"filler_sequence_id,omitempty"`
	FillerComingSoonLayout string  `json:"filler_coming_soon_layout,omitempty"`
	FillerActive           *string `json:"filler_active,omitempty"`

	ClearWhenInactive bool `json:"clear_when_inactive"`
	PassiveMode       bool `json:"passive_mode"`

	GenreAutoApply          bool   `json:"genre_auto_apply"`
	GenrePriorityMode       string `json:"genre_priority_mode"`
	GenreOverrideTTLSeconds int    `json:"genre_override_ttl_seconds"`

	// Timezone is the IANA zone name all schedule comparisons use.
	Timezone string `json:"timezone"`

	// SchedulerEnabled persists the operator's start/stop toggle across
	// restarts.
	SchedulerEnabled bool `json:"scheduler_enabled"`

	// LastAppliedValue is the exact wire value of the engine's last
	// successful apply. The reconciler compares the live preference against
	// this before rebuilding an expected value from state.
	LastAppliedValue *string `json:"last_applied_value,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// PathMapping is one {local, plex} prefix pair for path translation.
type PathMapping struct {
	Local string `json:"local"`
	Plex  string `json:"plex"`
}

// Mappings returns the typed path mapping list.
func (s *Settings) Mappings() ([]PathMapping, error) {
	if s.PathMappings == "" || s.PathMappings == "null" {
		return nil, nil
	}
	var out []PathMapping
	if err := json.Unmarshal([]byte(s.PathMappings), &out); err != nil {
		return nil, fmt.Errorf("invalid path mappings: %w", err)
	}
	return out, nil
}

// EncodePathMappings produces the stored form of a mapping list.
func EncodePathMappings(mappings []PathMapping) (string, error) {
	data, err := json.Marshal(mappings)
	if err != nil {
		return "", fmt.Errorf("encode path mappings: %w", err)
	}
	return string(data), nil
}

// FillerActiveCategory formats the filler_active marker for a category.
func FillerActiveCategory(id int64) string {
	return FillerTypeCategory + ":" + strconv.FormatInt(id, 10)
}

// FillerActiveSequence formats the filler_active marker for a saved sequence.
func FillerActiveSequence(id int64) string {
	return FillerTypeSequence + ":" + strconv.FormatInt(id, 10)
}

// FillerActiveComingSoon formats the filler_active marker for a coming-soon
// layout.
func FillerActiveComingSoon(layout string) string {
	return FillerTypeComingSoon + ":" + layout
}

// ParseFillerActive splits a filler_active marker into kind and argument.
func ParseFillerActive(marker string) (kind, arg string, ok bool) {
	kind, arg, ok = strings.Cut(marker, ":")
	if !ok || kind == "" {
		return "", "", false
	}
	switch kind {
	case FillerTypeCategory, FillerTypeSequence, FillerTypeComingSoon:
		return kind, arg, true
	default:
		return "", "", false
	}
}

// UpdateSettingsRequest edits operator-owned settings. Nil fields are left
// unchanged. Engine-owned fields (active category, override window, filler
// marker) are deliberately absent.
type UpdateSettingsRequest struct {
	PlexURL     *string `json:"plex_url,omitempty" validate:"omitempty,max=500"`
	JellyfinURL *string `json:"jellyfin_url,omitempty" validate:"omitempty,max=500"`

	PathMappings []PathMapping `json:"path_mappings,omitempty" validate:"omitempty,dive"`

	FillerEnabled          *bool   `json:"filler_enabled,omitempty"`
	FillerType             *string `json:"filler_type,omitempty" validate:"omitempty,oneof=category sequence coming_soon"`
	FillerCategoryID       *int64  `json:"filler_category_id,omitempty"`
	FillerSequenceID       *int64  `json:"filler_sequence_id,omitempty"`
	FillerComingSoonLayout *string `json:"filler_coming_soon_layout,omitempty" validate:"omitempty,max=120"`

	ClearWhenInactive *bool `json:"clear_when_inactive,omitempty"`
	PassiveMode       *bool `json:"passive_mode,omitempty"`

	GenreAutoApply          *bool   `json:"genre_auto_apply,omitempty"`
	GenrePriorityMode       *string `json:"genre_priority_mode,omitempty" validate:"omitempty,oneof=schedules_override genres_override"`
	GenreOverrideTTLSeconds *int    `json:"genre_override_ttl_seconds,omitempty" validate:"omitempty,min=0,max=86400"`

	Timezone *string `json:"timezone,omitempty" validate:"omitempty,max=64"`
}
