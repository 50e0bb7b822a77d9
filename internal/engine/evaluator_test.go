// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexroll/nexroll/internal/models"
)

type fakeResolver struct {
	month time.Month
	day   int
	found bool
	err   error
}

func (f *fakeResolver) Resolve(context.Context, string, string, int) (time.Month, int, bool, error) {
	return f.month, f.day, f.found, f.err
}

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func mustActive(t *testing.T, ev *Evaluator, s *models.Schedule, now time.Time, want bool) {
	t.Helper()
	got, err := ev.IsActive(context.Background(), s, now)
	if err != nil {
		t.Fatalf("IsActive(%s) error: %v", now.Format(time.RFC3339), err)
	}
	if got != want {
		t.Errorf("IsActive(%s) = %v, want %v", now.Format(time.RFC3339), got, want)
	}
}

func TestCustomWindow(t *testing.T) {
	ev := NewEvaluator(nil)
	end := date(2026, 10, 31, 23, 59)
	s := &models.Schedule{
		Type:      models.ScheduleTypeCustom,
		StartDate: date(2026, 10, 1, 0, 0),
		EndDate:   &end,
	}

	mustActive(t, ev, s, date(2026, 9, 30, 23, 59), false)
	mustActive(t, ev, s, date(2026, 10, 1, 0, 0), true)
	mustActive(t, ev, s, date(2026, 10, 15, 12, 0), true)
	mustActive(t, ev, s, date(2026, 10, 31, 23, 59), true)
	mustActive(t, ev, s, date(2026, 11, 1, 0, 0), false)
}

func TestCustomOpenEnded(t *testing.T) {
	ev := NewEvaluator(nil)
	s := &models.Schedule{Type: models.ScheduleTypeCustom, StartDate: date(2026, 10, 1, 0, 0)}
	mustActive(t, ev, s, date(2030, 1, 1, 0, 0), true)
	mustActive(t, ev, s, date(2026, 9, 1, 0, 0), false)
}

func TestMonthlyWindowWraps(t *testing.T) {
	ev := NewEvaluator(nil)
	end := date(2026, 12, 5, 0, 0)
	s := &models.Schedule{
		Type:      models.ScheduleTypeMonthly,
		StartDate: date(2026, 1, 25, 0, 0),
		EndDate:   &end,
	}

	// Day 25..31 and 1..5 of any month inside the schedule's lifetime.
	mustActive(t, ev, s, date(2026, 6, 28, 12, 0), true)
	mustActive(t, ev, s, date(2026, 6, 3, 12, 0), true)
	mustActive(t, ev, s, date(2026, 6, 10, 12, 0), false)

	// Outside the absolute bounds the day window no longer matters.
	mustActive(t, ev, s, date(2026, 1, 3, 12, 0), false)
	mustActive(t, ev, s, date(2027, 1, 28, 12, 0), false)
}

func TestMonthlyMissingEndIsSingleDay(t *testing.T) {
	ev := NewEvaluator(nil)
	s := &models.Schedule{Type: models.ScheduleTypeMonthly, StartDate: date(2026, 1, 15, 0, 0)}
	mustActive(t, ev, s, date(2026, 7, 15, 8, 0), true)
	mustActive(t, ev, s, date(2026, 7, 16, 8, 0), false)
}

func TestYearlyWindowWrapsNewYear(t *testing.T) {
	ev := NewEvaluator(nil)
	end := date(2027, 1, 2, 23, 59)
	s := &models.Schedule{
		Type:      models.ScheduleTypeYearly,
		StartDate: date(2026, 12, 30, 0, 0),
		EndDate:   &end,
	}

	mustActive(t, ev, s, date(2026, 12, 31, 18, 0), true)
	mustActive(t, ev, s, date(2027, 1, 1, 0, 30), true)
	mustActive(t, ev, s, date(2026, 7, 4, 12, 0), false)
	// The end date's year bounds the recurrence.
	mustActive(t, ev, s, date(2027, 12, 31, 18, 0), false)
}

func TestYearlyAnchorYearBoundsRecurrence(t *testing.T) {
	ev := NewEvaluator(nil)
	end := date(2032, 10, 31, 23, 59)
	s := &models.Schedule{
		Type:      models.ScheduleTypeYearly,
		StartDate: date(2030, 10, 1, 0, 0),
		EndDate:   &end,
	}

	// Not active before the anchor year, every October in between, and
	// not after the end year.
	mustActive(t, ev, s, date(2026, 10, 15, 12, 0), false)
	mustActive(t, ev, s, date(2030, 10, 15, 12, 0), true)
	mustActive(t, ev, s, date(2031, 10, 15, 12, 0), true)
	mustActive(t, ev, s, date(2031, 11, 2, 12, 0), false)
	mustActive(t, ev, s, date(2033, 10, 15, 12, 0), false)
}

func TestYearlyFeb29OnlyMatchesLeapYears(t *testing.T) {
	ev := NewEvaluator(nil)
	s := &models.Schedule{Type: models.ScheduleTypeYearly, StartDate: date(2024, 2, 29, 0, 0)}

	// Non-leap year: neither neighbor matches and nothing errors.
	mustActive(t, ev, s, date(2026, 2, 28, 12, 0), false)
	mustActive(t, ev, s, date(2026, 3, 1, 12, 0), false)
	mustActive(t, ev, s, date(2028, 2, 29, 12, 0), true)
}

func TestHolidayDynamic(t *testing.T) {
	rec := `{"type":"holiday_dynamic","name":"Thanksgiving","country":"US"}`
	s := &models.Schedule{
		Type:              models.ScheduleTypeHolidayDynamic,
		Name:              "Turkey Day",
		StartDate:         date(2026, 1, 1, 0, 0),
		RecurrencePattern: &rec,
	}

	ev := NewEvaluator(&fakeResolver{month: time.November, day: 26, found: true})
	mustActive(t, ev, s, date(2026, 11, 26, 9, 0), true)
	mustActive(t, ev, s, date(2026, 11, 25, 9, 0), false)

	// Unresolvable name: inactive, no error.
	ev = NewEvaluator(&fakeResolver{found: false})
	mustActive(t, ev, s, date(2026, 11, 26, 9, 0), false)

	// Resolver failure surfaces as a transport error.
	ev = NewEvaluator(&fakeResolver{err: errors.New("api down")})
	if _, err := ev.IsActive(context.Background(), s, date(2026, 11, 26, 9, 0)); KindOf(err) != KindTransport {
		t.Errorf("resolver failure kind = %v, want transport", KindOf(err))
	}
}

func TestOvernightTimeRange(t *testing.T) {
	ev := NewEvaluator(nil)
	rec := `{"timeRange":{"start":"22:00","end":"03:00"}}`
	s := &models.Schedule{
		Type:              models.ScheduleTypeCustom,
		StartDate:         date(2026, 1, 1, 0, 0),
		RecurrencePattern: &rec,
	}

	mustActive(t, ev, s, date(2026, 6, 10, 23, 59), true)
	mustActive(t, ev, s, date(2026, 6, 10, 2, 0), true)
	mustActive(t, ev, s, date(2026, 6, 10, 5, 0), false)
	// Bounds are inclusive.
	mustActive(t, ev, s, date(2026, 6, 10, 22, 0), true)
	mustActive(t, ev, s, date(2026, 6, 10, 3, 0), true)
	mustActive(t, ev, s, date(2026, 6, 10, 3, 1), false)
}

func TestDaysOfWeekMondayZero(t *testing.T) {
	ev := NewEvaluator(nil)
	rec := `{"daysOfWeek":[5,6]}` // Saturday and Sunday
	s := &models.Schedule{
		Type:              models.ScheduleTypeCustom,
		StartDate:         date(2026, 1, 1, 0, 0),
		RecurrencePattern: &rec,
	}

	mustActive(t, ev, s, date(2026, 8, 22, 12, 0), true)  // Saturday
	mustActive(t, ev, s, date(2026, 8, 23, 12, 0), true)  // Sunday
	mustActive(t, ev, s, date(2026, 8, 26, 12, 0), false) // Wednesday
}

func TestInvalidTimeRangeIsConfigError(t *testing.T) {
	ev := NewEvaluator(nil)
	rec := `{"timeRange":{"start":"25:00","end":"03:00"}}`
	s := &models.Schedule{
		Type:              models.ScheduleTypeCustom,
		StartDate:         date(2026, 1, 1, 0, 0),
		RecurrencePattern: &rec,
	}
	if _, err := ev.IsActive(context.Background(), s, date(2026, 6, 10, 12, 0)); KindOf(err) != KindConfig {
		t.Errorf("invalid time range kind = %v, want config", KindOf(err))
	}
}

func TestParseClock(t *testing.T) {
	if got, err := parseClock("22:30"); err != nil || got != 22*60+30 {
		t.Errorf("parseClock(22:30) = %d, %v", got, err)
	}
	for _, bad := range []string{"", "22", "aa:10", "12:60", "-1:00"} {
		if _, err := parseClock(bad); err == nil {
			t.Errorf("parseClock(%q) accepted", bad)
		}
	}
}
