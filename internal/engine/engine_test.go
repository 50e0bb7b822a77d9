// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	mu sync.Mutex

	settings   models.Settings
	schedules  []models.Schedule
	categories map[int64]*models.Category
	prerolls   map[int64]*models.Preroll
	byCategory map[int64][]models.Preroll
	sequences  map[int64]*models.SavedSequence

	appliedCategory int64
	scheduleRuns    []int64
	listCalls       map[int64]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings:   models.Settings{ID: 1, Timezone: "UTC"},
		categories: make(map[int64]*models.Category),
		prerolls:   make(map[int64]*models.Preroll),
		byCategory: make(map[int64][]models.Preroll),
		sequences:  make(map[int64]*models.SavedSequence),
		listCalls:  make(map[int64]int),
	}
}

// addCategory registers a category with prerolls at the given paths.
// Preroll IDs are assigned as categoryID*100+i.
func (f *fakeStore) addCategory(id int64, name, mode string, paths ...string) {
	f.categories[id] = &models.Category{ID: id, Name: name, PlexMode: mode}
	for i, path := range paths {
		pid := id*100 + int64(i)
		p := models.Preroll{ID: pid, Filename: path, Path: path}
		f.prerolls[pid] = &p
		f.byCategory[id] = append(f.byCategory[id], p)
	}
}

func (f *fakeStore) GetSettings(context.Context) (*models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings
	return &s, nil
}

func (f *fakeStore) ListEnabledSchedules(context.Context) ([]models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Schedule, 0, len(f.schedules))
	for _, s := range f.schedules {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) SetScheduleRun(_ context.Context, id int64, _ time.Time, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleRuns = append(f.scheduleRuns, id)
	return nil
}

func (f *fakeStore) GetCategory(_ context.Context, id int64) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.categories[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("category %d not found", id)
}

func (f *fakeStore) GetCategoryByName(_ context.Context, name string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("category %q not found", name)
}

func (f *fakeStore) ListPrerollsByCategory(_ context.Context, categoryID int64) ([]models.Preroll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls[categoryID]++
	return append([]models.Preroll(nil), f.byCategory[categoryID]...), nil
}

func (f *fakeStore) GetPreroll(_ context.Context, id int64) (*models.Preroll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prerolls[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("preroll %d not found", id)
}

func (f *fakeStore) GetSavedSequence(_ context.Context, id int64) (*models.SavedSequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sequences[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, fmt.Errorf("saved sequence %d not found", id)
}

func (f *fakeStore) SetCategoryApplied(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appliedCategory = id
	return nil
}

func (f *fakeStore) SetActiveCategory(_ context.Context, id *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.ActiveCategoryID = id
	return nil
}

func (f *fakeStore) SetLastScheduleFallback(_ context.Context, id *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.LastScheduleFallbackID = id
	return nil
}

func (f *fakeStore) SetFillerActive(_ context.Context, marker *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.FillerActive = marker
	return nil
}

func (f *fakeStore) SetLastAppliedValue(_ context.Context, value *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.LastAppliedValue = value
	return nil
}

func (f *fakeStore) SetSchedulerEnabled(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.SchedulerEnabled = enabled
	return nil
}

// fakeAdapter is an in-memory media server for engine tests.
type fakeAdapter struct {
	mu sync.Mutex

	name     string
	platform string
	value    string
	setCalls []string

	getErr  error
	setErr  error
	infoErr error
}

func newFakeAdapter(name, platform string) *fakeAdapter {
	return &fakeAdapter{name: name, platform: platform}
}

func (f *fakeAdapter) Name() string     { return f.name }
func (f *fakeAdapter) Configured() bool { return true }

func (f *fakeAdapter) TestConnection(context.Context) error { return nil }

func (f *fakeAdapter) GetServerInfo(context.Context) (*models.ServerInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &models.ServerInfo{Name: f.name, Platform: f.platform}, nil
}

func (f *fakeAdapter) GetPreroll(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.value, nil
}

func (f *fakeAdapter) SetPreroll(_ context.Context, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.value = value
	f.setCalls = append(f.setCalls, value)
	return nil
}

func (f *fakeAdapter) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.setCalls...)
}

// alwaysOnSchedule is a custom schedule active at any 2026 instant.
func alwaysOnSchedule(id, categoryID int64, priority int) models.Schedule {
	return models.Schedule{
		ID:         id,
		Name:       fmt.Sprintf("schedule-%d", id),
		Type:       models.ScheduleTypeCustom,
		StartDate:  date(2020, 1, 1, 0, 0),
		CategoryID: categoryID,
		Priority:   priority,
		IsActive:   true,
		UpdatedAt:  date(2026, 1, 1, 0, 0),
	}
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }
