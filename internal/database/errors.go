// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package database

import (
	"errors"
	"strings"
)

// Store errors, one sentinel per entity so handlers can map them to 404/409.
var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryNameConflict  = errors.New("category with this name already exists")
	ErrSystemCategory        = errors.New("cannot delete a system category")
	ErrPrerollNotFound       = errors.New("preroll not found")
	ErrPrerollPathConflict   = errors.New("preroll with this path already exists")
	ErrScheduleNotFound      = errors.New("schedule not found")
	ErrHolidayPresetNotFound = errors.New("holiday preset not found")
	ErrBuiltinPreset         = errors.New("cannot delete a builtin holiday preset")
	ErrPresetNameConflict    = errors.New("holiday preset with this name already exists")
	ErrGenreMapNotFound      = errors.New("genre map not found")
	ErrGenreMapConflict      = errors.New("genre map for this genre already exists")
	ErrSequenceNotFound      = errors.New("saved sequence not found")
	ErrSequenceNameConflict  = errors.New("saved sequence with this name already exists")
)

// isUniqueConstraintError detects a DuckDB unique/primary key violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "primary key") || strings.Contains(msg, "constraint")
}
