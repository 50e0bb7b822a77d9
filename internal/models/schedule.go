// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Schedule types. The type selects the recurrence semantics applied on top of
// the start/end window:
//
//   - monthly: active on days-of-month start_date.day..end_date.day, any month
//   - yearly: active between (month,day) of start_date and end_date, any year
//   - holiday: like yearly, usually instantiated from a HolidayPreset
//   - holiday_dynamic: the date comes from the public-holiday API per year
//   - custom: plain datetime window, no recurrence
const (
	ScheduleTypeMonthly        = "monthly"
	ScheduleTypeYearly         = "yearly"
	ScheduleTypeHoliday        = "holiday"
	ScheduleTypeHolidayDynamic = "holiday_dynamic"
	ScheduleTypeCustom         = "custom"
)

// Priority bounds for schedules. Higher wins.
const (
	SchedulePriorityMin     = 0
	SchedulePriorityMax     = 10
	SchedulePriorityDefault = 5
)

// Schedule binds a category (or a sequence program) to a time window.
//
// Date fields are naive local datetimes: they are stored without a zone and
// compared against wall-clock time in the engine's configured timezone,
// matching operator intent ("Halloween starts Oct 1" means local Oct 1).
type Schedule struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	CategoryID         int64  `json:"category_id"`
	FallbackCategoryID *int64 `json:"fallback_category_id,omitempty"`

	Shuffle  bool `json:"shuffle"`
	Playlist bool `json:"playlist"`

	// Priority in [0,10], default 5. Higher wins arbitration.
	Priority int `json:"priority"`

	// Exclusive schedules always beat blending.
	Exclusive    bool `json:"exclusive"`
	BlendEnabled bool `json:"blend_enabled"`

	IsActive bool `json:"is_active"`

	// RecurrencePattern is the raw JSON pattern as stored. Use Recurrence()
	// for the typed form.
	RecurrencePattern *string `json:"recurrence_pattern,omitempty"`

	// Sequence is the raw JSON step list as stored. Use Steps() for the
	// typed form.
	Sequence *string `json:"sequence,omitempty"`

	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recurrence returns the typed recurrence pattern, or nil when none is set.
func (s *Schedule) Recurrence() (*Recurrence, error) {
	if s.RecurrencePattern == nil || *s.RecurrencePattern == "" {
		return nil, nil
	}
	return ParseRecurrence([]byte(*s.RecurrencePattern))
}

// Steps returns the typed sequence program, or nil when none is set.
func (s *Schedule) Steps() ([]SequenceStep, error) {
	if s.Sequence == nil || *s.Sequence == "" {
		return nil, nil
	}
	return ParseSequence([]byte(*s.Sequence))
}

// HasSequence reports whether the schedule carries a sequence program.
func (s *Schedule) HasSequence() bool {
	return s.Sequence != nil && *s.Sequence != "" && *s.Sequence != "null" && *s.Sequence != "[]"
}

// Recurrence narrows a schedule window to a time-of-day range and weekdays.
type Recurrence struct {
	// TimeRange restricts activity to a daily window. Overnight ranges
	// (start > end, e.g. 22:00-03:00) wrap across midnight.
	TimeRange *TimeRange `json:"timeRange,omitempty"`

	// DaysOfWeek restricts activity to weekdays, Monday=0 .. Sunday=6.
	DaysOfWeek []int `json:"daysOfWeek,omitempty"`

	// Type, Name, Country configure holiday_dynamic resolution.
	Type    string `json:"type,omitempty"`
	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`
}

// TimeRange is a daily window in "HH:MM" wall-clock form.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParseRecurrence decodes and sanity-checks a recurrence pattern.
func ParseRecurrence(data []byte) (*Recurrence, error) {
	var r Recurrence
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid recurrence pattern: %w", err)
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid recurrence pattern: day %d out of range 0-6", d)
		}
	}
	return &r, nil
}

// Sequence step types. A sequence is an ordered list of tagged steps; the
// expander resolves it to an ordered list of local file paths.
const (
	StepTypeRandom = "random"
	StepTypeFixed  = "fixed"
)

// SequenceStep is one element of a sequence program.
//
// Exactly one variant applies per step, selected by Type:
//   - "random": draw min(Count, pool size) prerolls without replacement from
//     category CategoryID
//   - "fixed": append PrerollID or PrerollIDs in order
type SequenceStep struct {
	Type       string  `json:"type"`
	CategoryID int64   `json:"category_id,omitempty"`
	Count      int     `json:"count,omitempty"`
	PrerollID  int64   `json:"preroll_id,omitempty"`
	PrerollIDs []int64 `json:"preroll_ids,omitempty"`
}

// FixedIDs returns the preroll IDs of a fixed step, merging the single and
// list forms.
func (st *SequenceStep) FixedIDs() []int64 {
	if len(st.PrerollIDs) > 0 {
		return st.PrerollIDs
	}
	if st.PrerollID != 0 {
		return []int64{st.PrerollID}
	}
	return nil
}

// ParseSequence decodes a sequence program, rejecting unknown step tags.
// Administrative writes must pass through here so malformed programs never
// reach the store. The expander itself skips unknown tags for tolerance
// toward rows written by older versions.
func ParseSequence(data []byte) ([]SequenceStep, error) {
	var steps []SequenceStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("invalid sequence: %w", err)
	}
	for i := range steps {
		if err := steps[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid sequence step %d: %w", i, err)
		}
	}
	return steps, nil
}

// EncodeSequence is the inverse of ParseSequence, producing the stored form.
func EncodeSequence(steps []SequenceStep) (string, error) {
	data, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("encode sequence: %w", err)
	}
	return string(data), nil
}

// Validate checks a single step's tag and payload.
func (st *SequenceStep) Validate() error {
	switch st.Type {
	case StepTypeRandom:
		if st.CategoryID <= 0 {
			return fmt.Errorf("random step requires category_id")
		}
		if st.Count <= 0 {
			return fmt.Errorf("random step requires count >= 1")
		}
	case StepTypeFixed:
		if len(st.FixedIDs()) == 0 {
			return fmt.Errorf("fixed step requires preroll_id or preroll_ids")
		}
	default:
		return fmt.Errorf("unknown step type %q", st.Type)
	}
	return nil
}

// HolidayPreset is a named month/day range usable as a schedule source.
// Seeded presets cover common holidays; operators can add their own.
type HolidayPreset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	StartMonth int `json:"start_month"`
	StartDay   int `json:"start_day"`
	EndMonth   int `json:"end_month"`
	EndDay     int `json:"end_day"`

	// IsBuiltin marks seeded presets that deletes must refuse.
	IsBuiltin bool `json:"is_builtin"`

	CreatedAt time.Time `json:"created_at"`
}

// SavedSequence is a reusable named sequence program, referenced by the
// filler ladder ("sequence:<id>") and insertable into schedules.
type SavedSequence struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Steps is the raw JSON step list as stored.
	Steps string `json:"steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecodedSteps returns the typed program of a saved sequence.
func (s *SavedSequence) DecodedSteps() ([]SequenceStep, error) {
	return ParseSequence([]byte(s.Steps))
}

// CreateScheduleRequest creates a schedule.
type CreateScheduleRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
	Type string `json:"type" validate:"required,oneof=monthly yearly holiday holiday_dynamic custom"`

	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	CategoryID         int64  `json:"category_id" validate:"required,gt=0"`
	FallbackCategoryID *int64 `json:"fallback_category_id,omitempty"`

	Shuffle  bool `json:"shuffle"`
	Playlist bool `json:"playlist"`

	Priority *int `json:"priority,omitempty" validate:"omitempty,min=0,max=10"`

	Exclusive    bool `json:"exclusive"`
	BlendEnabled bool `json:"blend_enabled"`

	IsActive *bool `json:"is_active,omitempty"`

	RecurrencePattern json.RawMessage `json:"recurrence_pattern,omitempty"`
	Sequence          json.RawMessage `json:"sequence,omitempty"`
}

// UpdateScheduleRequest edits a schedule. Nil fields are left unchanged.
type UpdateScheduleRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Type *string `json:"type,omitempty" validate:"omitempty,oneof=monthly yearly holiday holiday_dynamic custom"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	CategoryID         *int64 `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	FallbackCategoryID *int64 `json:"fallback_category_id,omitempty"`

	Shuffle  *bool `json:"shuffle,omitempty"`
	Playlist *bool `json:"playlist,omitempty"`

	Priority *int `json:"priority,omitempty" validate:"omitempty,min=0,max=10"`

	Exclusive    *bool `json:"exclusive,omitempty"`
	BlendEnabled *bool `json:"blend_enabled,omitempty"`

	IsActive *bool `json:"is_active,omitempty"`

	RecurrencePattern json.RawMessage `json:"recurrence_pattern,omitempty"`
	Sequence          json.RawMessage `json:"sequence,omitempty"`
}

// CreateHolidayPresetRequest creates a holiday preset.
type CreateHolidayPresetRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=120"`
	StartMonth int    `json:"start_month" validate:"required,min=1,max=12"`
	StartDay   int    `json:"start_day" validate:"required,min=1,max=31"`
	EndMonth   int    `json:"end_month" validate:"required,min=1,max=12"`
	EndDay     int    `json:"end_day" validate:"required,min=1,max=31"`
}

// CreateSavedSequenceRequest creates a saved sequence.
type CreateSavedSequenceRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=120"`
	Description string          `json:"description,omitempty" validate:"max=1000"`
	Steps       json.RawMessage `json:"steps" validate:"required"`
}

// UpdateSavedSequenceRequest edits a saved sequence.
type UpdateSavedSequenceRequest struct {
	Name        *string         `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	Steps       json.RawMessage `json:"steps,omitempty"`
}
