// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

// ListHolidayPresets handles GET /api/v1/holiday-presets.
func (h *Handler) ListHolidayPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.store.ListHolidayPresets(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, presets)
}

// CreateHolidayPreset handles POST /api/v1/holiday-presets.
func (h *Handler) CreateHolidayPreset(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHolidayPresetRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	preset, err := h.store.CreateHolidayPreset(r.Context(), &req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, preset)
}

// DeleteHolidayPreset handles DELETE /api/v1/holiday-presets/{id}.
// Builtin presets are refused by the store.
func (h *Handler) DeleteHolidayPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteHolidayPreset(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int64{"deleted": id})
}

// presetScheduleRequest materializes a holiday preset into a schedule.
type presetScheduleRequest struct {
	CategoryID         int64  `json:"category_id" validate:"required,gt=0"`
	FallbackCategoryID *int64 `json:"fallback_category_id,omitempty"`
	Priority           *int   `json:"priority,omitempty" validate:"omitempty,min=0,max=10"`
	Shuffle            bool   `json:"shuffle"`
	Playlist           bool   `json:"playlist"`
}

// ScheduleFromHolidayPreset handles
// POST /api/v1/holiday-presets/{id}/schedule?year=YYYY: it creates a
// concrete holiday schedule anchored to the preset's month/day window.
// The year only fixes the anchor dates; the evaluator compares month/day
// each year, so the schedule recurs.
func (h *Handler) ScheduleFromHolidayPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1970 || parsed > 9999 {
			respondError(w, http.StatusBadRequest, codeValidation, "invalid year", nil)
			return
		}
		year = parsed
	}

	var req presetScheduleRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	preset, err := h.store.GetHolidayPreset(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if _, err := h.store.GetCategory(r.Context(), req.CategoryID); err != nil {
		respondStoreError(w, err)
		return
	}

	start := time.Date(year, time.Month(preset.StartMonth), preset.StartDay, 0, 0, 0, 0, time.UTC)
	endYear := year
	if preset.EndMonth < preset.StartMonth ||
		(preset.EndMonth == preset.StartMonth && preset.EndDay < preset.StartDay) {
		// Window wraps New Year (e.g. Dec 20 - Jan 5).
		endYear++
	}
	end := time.Date(endYear, time.Month(preset.EndMonth), preset.EndDay, 23, 59, 0, 0, time.UTC)

	schedule, err := h.store.CreateSchedule(r.Context(), &models.CreateScheduleRequest{
		Name:               fmt.Sprintf("%s %d", preset.Name, year),
		Type:               models.ScheduleTypeHoliday,
		StartDate:          start,
		EndDate:            &end,
		CategoryID:         req.CategoryID,
		FallbackCategoryID: req.FallbackCategoryID,
		Shuffle:            req.Shuffle,
		Playlist:           req.Playlist,
		Priority:           req.Priority,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, schedule)
}
