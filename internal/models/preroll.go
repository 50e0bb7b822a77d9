// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import "time"

// Plex play modes for categories. The mode decides the wire separator when a
// category is applied: shuffle emits ";" (Plex picks one at random per
// playback), playlist emits "," (Plex plays in order).
const (
	PlexModeShuffle  = "shuffle"
	PlexModePlaylist = "playlist"
)

// Preroll represents one physical video file known to the engine.
//
// A preroll with Managed=true lives under the engine's media root and may be
// moved or deleted by administrative operations. Managed=false marks an
// externally mapped file the engine must never rename, move, or delete.
type Preroll struct {
	ID          int64   `json:"id"`
	Filename    string  `json:"filename"`
	Path        string  `json:"path"`
	DisplayName *string `json:"display_name,omitempty"`

	// CategoryID is the primary category (nullable). A preroll is always a
	// member of the union {primary category, additional categories}.
	CategoryID *int64 `json:"category_id,omitempty"`

	// Categories is the full membership set (primary plus additional),
	// populated on reads that join the membership table.
	Categories []Category `json:"categories,omitempty"`

	// Duration in seconds, if probed.
	Duration *float64 `json:"duration,omitempty"`
	// FileSize in bytes, if known.
	FileSize *int64 `json:"file_size,omitempty"`

	Managed   bool      `json:"managed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveName returns the display name when set, otherwise the filename.
func (p *Preroll) EffectiveName() string {
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	return p.Filename
}

// Category is a named bucket of prerolls with a play mode.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// PlexMode is "shuffle" or "playlist".
	PlexMode string `json:"plex_mode"`

	// ApplyToPlex mirrors "currently applied" for the UI. At most one
	// category holds true at any instant; the store enforces the flip.
	ApplyToPlex bool `json:"apply_to_plex"`

	// IsSystem marks engine-managed categories (e.g. "Coming Soon Lists")
	// that administrative deletes must refuse.
	IsSystem bool `json:"is_system"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PrerollCount is populated on list reads.
	PrerollCount int `json:"preroll_count,omitempty"`
}

// CreatePrerollRequest registers an existing file with the engine.
// Used by the mapping endpoint for unmanaged files; the ingest watcher
// constructs the same shape internally for managed files.
type CreatePrerollRequest struct {
	Path        string  `json:"path" validate:"required"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=255"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	Managed     bool    `json:"managed"`
}

// UpdatePrerollRequest edits preroll metadata. Nil fields are left unchanged.
type UpdatePrerollRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=255"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	// CategoryIDs replaces the additional-membership set when non-nil.
	CategoryIDs []int64 `json:"category_ids,omitempty"`
}

// CreateCategoryRequest creates a category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	PlexMode    string `json:"plex_mode,omitempty" validate:"omitempty,oneof=shuffle playlist"`
}

// UpdateCategoryRequest edits a category. Nil fields are left unchanged.
type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	PlexMode    *string `json:"plex_mode,omitempty" validate:"omitempty,oneof=shuffle playlist"`
}
