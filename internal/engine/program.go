// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package engine holds the preroll decision and application machinery: the
// schedule evaluator, the arbiter that picks one program per tick, the
// sequence expander, the applier that pushes the result to the media
// servers, and the reconciler that corrects external drift.
package engine

import "github.com/nexroll/nexroll/internal/models"

// ProgramKind tags the arbiter's output.
type ProgramKind string

const (
	// ProgramCategory applies one category's prerolls.
	ProgramCategory ProgramKind = "category"
	// ProgramSequence applies an expanded sequence in order.
	ProgramSequence ProgramKind = "sequence"
	// ProgramBlend applies an interleaved multi-schedule pool.
	ProgramBlend ProgramKind = "blend"
	// ProgramClear empties the server preference.
	ProgramClear ProgramKind = "clear"
	// ProgramNoop leaves the server untouched this tick.
	ProgramNoop ProgramKind = "noop"
)

// Program is one tick's decision. Exactly one of the payload groups is
// meaningful per kind: CategoryID for category programs, Paths for sequence
// and blend programs, neither for clear and noop.
type Program struct {
	Kind ProgramKind

	// CategoryID names the category to apply (category programs).
	CategoryID int64

	// Paths is the expanded local path list (sequence and blend programs).
	Paths []string

	// Ordered selects "," joining so playback follows list order. Blends
	// and shuffle categories emit ";" instead.
	Ordered bool

	// Schedule is the winning schedule, when the program came from one.
	Schedule *models.Schedule

	// RecordFallback asks the applier to persist Fallback (possibly nil)
	// as the last schedule fallback. Set only on schedule wins so filler
	// and replay programs do not overwrite it.
	RecordFallback bool
	Fallback       *int64

	// FillerMarker is persisted as filler_active when the program came
	// from the filler ladder, and cleared otherwise.
	FillerMarker *string

	// Reason is a short human label for logs ("exclusive win", "filler").
	Reason string
}
