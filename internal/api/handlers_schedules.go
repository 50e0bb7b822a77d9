// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nexroll/nexroll/internal/models"
)

// ListSchedules handles GET /api/v1/schedules.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.store.ListSchedules(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, schedules)
}

// CreateSchedule handles POST /api/v1/schedules.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req models.CreateScheduleRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validSchedulePayload(w, req.RecurrencePattern, req.Sequence) {
		return
	}
	if req.EndDate != nil && req.Type == models.ScheduleTypeCustom && req.EndDate.Before(req.StartDate) {
		respondError(w, http.StatusBadRequest, codeValidation, "end_date must not precede start_date", nil)
		return
	}
	if _, err := h.store.GetCategory(r.Context(), req.CategoryID); err != nil {
		respondStoreError(w, err)
		return
	}

	schedule, err := h.store.CreateSchedule(r.Context(), &req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, schedule)
}

// GetSchedule handles GET /api/v1/schedules/{id}.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	schedule, err := h.store.GetSchedule(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, schedule)
}

// UpdateSchedule handles PUT /api/v1/schedules/{id}. A successful edit
// resets the schedule's rotation stamp so random draws re-roll on the next
// tick instead of serving a stale cache.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req models.UpdateScheduleRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validSchedulePayload(w, req.RecurrencePattern, req.Sequence) {
		return
	}

	schedule, err := h.store.UpdateSchedule(r.Context(), id, &req)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	h.engine.ResetRotation(id)
	respondSuccess(w, http.StatusOK, schedule)
}

// DeleteSchedule handles DELETE /api/v1/schedules/{id}.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteSchedule(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	h.engine.ResetRotation(id)
	respondSuccess(w, http.StatusOK, map[string]int64{"deleted": id})
}

// validSchedulePayload checks the raw recurrence and sequence JSON so
// malformed programs never reach the store. On failure it writes the error
// response and returns false.
func validSchedulePayload(w http.ResponseWriter, recurrence, sequence []byte) bool {
	if len(recurrence) > 0 && string(recurrence) != "null" {
		rec, err := models.ParseRecurrence(recurrence)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
			return false
		}
		if rec.TimeRange != nil {
			for _, clock := range []string{rec.TimeRange.Start, rec.TimeRange.End} {
				if !validClock(clock) {
					respondError(w, http.StatusBadRequest, codeValidation,
						"time range values must be HH:MM", map[string]interface{}{"value": clock})
					return false
				}
			}
		}
	}
	if len(sequence) > 0 && string(sequence) != "null" {
		if _, err := models.ParseSequence(sequence); err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
			return false
		}
	}
	return true
}

// validClock accepts "HH:MM" with HH 00-23 and MM 00-59.
func validClock(s string) bool {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return false
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return false
	}
	minute, err := strconv.Atoi(mm)
	return err == nil && minute >= 0 && minute <= 59
}
