// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import "time"

// GenreMap binds a canonical genre key to a category. Lookups always go
// through the canonical key (genre_norm); the raw label is kept for display.
type GenreMap struct {
	ID int64 `json:"id"`

	// Genre is the raw label as the operator entered it.
	Genre string `json:"genre"`

	// GenreNorm is the canonical key (NFKC, lowercased, synonym-folded).
	// Unique across the table.
	GenreNorm string `json:"genre_norm"`

	CategoryID int64 `json:"category_id"`

	CreatedAt time.Time `json:"created_at"`
}

// GenreApplication records one genre-triggered apply for the UI's recent
// list. The engine keeps the last 10 in memory.
type GenreApplication struct {
	Genre      string    `json:"genre"`
	CategoryID int64     `json:"category_id"`
	Category   string    `json:"category"`
	RatingKey  string    `json:"rating_key"`
	AppliedAt  time.Time `json:"applied_at"`
}

// CreateGenreMapRequest creates a genre mapping. The server canonicalizes
// Genre into genre_norm; a duplicate canonical key is a conflict.
type CreateGenreMapRequest struct {
	Genre      string `json:"genre" validate:"required,min=1,max=120"`
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
}

// UpdateGenreMapRequest edits a genre mapping.
type UpdateGenreMapRequest struct {
	Genre      *string `json:"genre,omitempty" validate:"omitempty,min=1,max=120"`
	CategoryID *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
}

// ApplyGenreRequest asks the engine to resolve and apply a genre label
// immediately, bypassing session discovery.
type ApplyGenreRequest struct {
	Genre string `json:"genre" validate:"required,min=1,max=120"`
}

// ApplyByRatingKeyRequest asks the engine to fetch metadata for a rating key
// and run the genre apply flow, as the webhook receiver does.
type ApplyByRatingKeyRequest struct {
	RatingKey string `json:"rating_key" validate:"required,min=1,max=64"`
}
