// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

// Store is the persistence surface the engine uses, satisfied by
// *database.DB. Tests substitute an in-memory fake.
type Store interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	ListEnabledSchedules(ctx context.Context) ([]models.Schedule, error)
	SetScheduleRun(ctx context.Context, id int64, lastRun time.Time, nextRun *time.Time) error

	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListPrerollsByCategory(ctx context.Context, categoryID int64) ([]models.Preroll, error)
	GetPreroll(ctx context.Context, id int64) (*models.Preroll, error)
	GetSavedSequence(ctx context.Context, id int64) (*models.SavedSequence, error)

	SetCategoryApplied(ctx context.Context, id int64) error
	SetActiveCategory(ctx context.Context, id *int64) error
	SetLastScheduleFallback(ctx context.Context, id *int64) error
	SetFillerActive(ctx context.Context, marker *string) error
	SetLastAppliedValue(ctx context.Context, value *string) error
	SetSchedulerEnabled(ctx context.Context, enabled bool) error
}
