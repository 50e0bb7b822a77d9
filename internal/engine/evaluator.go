// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

// HolidayResolver resolves a holiday name to a concrete (month, day) for a
// year, satisfied by *holidays.Client.
type HolidayResolver interface {
	Resolve(ctx context.Context, name, country string, year int) (time.Month, int, bool, error)
}

// Evaluator decides whether a schedule is active at a given wall-clock
// instant. All comparisons are in the caller's timezone; stored dates are
// naive and reinterpreted in that zone.
type Evaluator struct {
	holidays HolidayResolver
}

// NewEvaluator creates an evaluator. holidays may be nil, in which case
// holiday_dynamic schedules never activate.
func NewEvaluator(holidays HolidayResolver) *Evaluator {
	return &Evaluator{holidays: holidays}
}

// IsActive reports whether the schedule's date gate and recurrence gates all
// pass at now. now must already be in the engine's configured location.
func (ev *Evaluator) IsActive(ctx context.Context, s *models.Schedule, now time.Time) (bool, error) {
	rec, err := s.Recurrence()
	if err != nil {
		return false, E(KindConfig, "engine.evaluate", err)
	}

	ok, err := ev.dateGate(ctx, s, rec, now)
	if err != nil || !ok {
		return false, err
	}

	if rec != nil {
		if len(rec.DaysOfWeek) > 0 && !dayOfWeekMatches(rec.DaysOfWeek, now) {
			return false, nil
		}
		if rec.TimeRange != nil {
			ok, err := timeRangeMatches(rec.TimeRange, now)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

// dateGate applies the per-type date semantics.
func (ev *Evaluator) dateGate(ctx context.Context, s *models.Schedule, rec *models.Recurrence, now time.Time) (bool, error) {
	// Absolute bounds hold for every type: never active before the start
	// date, never after the end date when one is set. The recurring types
	// add their month or day window inside those bounds.
	if now.Before(asWallClock(s.StartDate, now.Location())) {
		return false, nil
	}
	if s.EndDate != nil && now.After(asWallClock(*s.EndDate, now.Location())) {
		return false, nil
	}

	switch s.Type {
	case models.ScheduleTypeCustom:
		return true, nil

	case models.ScheduleTypeMonthly:
		startDay := s.StartDate.Day()
		endDay := startDay
		if s.EndDate != nil {
			endDay = s.EndDate.Day()
		}
		return inWrappedRange(now.Day(), startDay, endDay), nil

	case models.ScheduleTypeYearly, models.ScheduleTypeHoliday:
		start := monthDay(s.StartDate.Month(), s.StartDate.Day())
		end := start
		if s.EndDate != nil {
			end = monthDay(s.EndDate.Month(), s.EndDate.Day())
		}
		// A Feb 29 anchor simply never matches outside leap years.
		return inWrappedRange(monthDay(now.Month(), now.Day()), start, end), nil

	case models.ScheduleTypeHolidayDynamic:
		if ev.holidays == nil {
			return false, nil
		}
		name, country := s.Name, ""
		if rec != nil {
			if rec.Name != "" {
				name = rec.Name
			}
			country = rec.Country
		}
		month, day, found, err := ev.holidays.Resolve(ctx, name, country, now.Year())
		if err != nil {
			return false, E(KindTransport, "engine.evaluate", err)
		}
		if !found {
			return false, nil
		}
		return now.Month() == month && now.Day() == day, nil

	default:
		return false, Ef(KindConfig, "engine.evaluate", "unknown schedule type %q", s.Type)
	}
}

// inWrappedRange reports start <= v <= end on a circular domain: when
// start > end the window wraps around (month end or New Year).
func inWrappedRange(v, start, end int) bool {
	if start <= end {
		return v >= start && v <= end
	}
	return v >= start || v <= end
}

// monthDay packs (month, day) into an ordinal comparable within a year.
func monthDay(m time.Month, d int) int {
	return int(m)*100 + d
}

// dayOfWeekMatches checks now's weekday against a Monday=0..Sunday=6 list.
func dayOfWeekMatches(days []int, now time.Time) bool {
	current := (int(now.Weekday()) + 6) % 7
	for _, d := range days {
		if d == current {
			return true
		}
	}
	return false
}

// timeRangeMatches checks now against an inclusive "HH:MM" daily window.
// Overnight windows (start > end) wrap across midnight.
func timeRangeMatches(tr *models.TimeRange, now time.Time) (bool, error) {
	start, err := parseClock(tr.Start)
	if err != nil {
		return false, E(KindConfig, "engine.evaluate", err)
	}
	end, err := parseClock(tr.End)
	if err != nil {
		return false, E(KindConfig, "engine.evaluate", err)
	}
	return inWrappedRange(now.Hour()*60+now.Minute(), start, end), nil
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// asWallClock reinterprets a stored naive datetime in the engine's location.
// "Oct 1 09:00" means 09:00 local regardless of how the driver zoned it.
func asWallClock(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}
