// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import (
	"strings"
	"testing"
)

func TestParseSequence_Valid(t *testing.T) {
	raw := `[
		{"type":"fixed","preroll_ids":[10,11]},
		{"type":"random","category_id":5,"count":2},
		{"type":"fixed","preroll_id":7}
	]`

	steps, err := ParseSequence([]byte(raw))
	if err != nil {
		t.Fatalf("ParseSequence() error = %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}

	if got := steps[0].FixedIDs(); len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Errorf("step 0 FixedIDs() = %v, want [10 11]", got)
	}
	if steps[1].CategoryID != 5 || steps[1].Count != 2 {
		t.Errorf("step 1 = %+v, want category 5 count 2", steps[1])
	}
	if got := steps[2].FixedIDs(); len(got) != 1 || got[0] != 7 {
		t.Errorf("step 2 FixedIDs() = %v, want [7]", got)
	}
}

func TestParseSequence_UnknownTagRejected(t *testing.T) {
	raw := `[{"type":"surprise","category_id":5}]`

	_, err := ParseSequence([]byte(raw))
	if err == nil {
		t.Fatal("expected error for unknown step type")
	}
	if !strings.Contains(err.Error(), "unknown step type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseSequence_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"random without count", `[{"type":"random","category_id":5}]`},
		{"random without category", `[{"type":"random","count":2}]`},
		{"fixed without ids", `[{"type":"fixed"}]`},
		{"not an array", `{"type":"fixed"}`},
		{"garbage", `nonsense`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSequence([]byte(tt.raw)); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestEncodeSequence_RoundTrip(t *testing.T) {
	steps := []SequenceStep{
		{Type: StepTypeFixed, PrerollIDs: []int64{1, 2}},
		{Type: StepTypeRandom, CategoryID: 3, Count: 4},
	}

	encoded, err := EncodeSequence(steps)
	if err != nil {
		t.Fatalf("EncodeSequence() error = %v", err)
	}

	decoded, err := ParseSequence([]byte(encoded))
	if err != nil {
		t.Fatalf("ParseSequence() error = %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(decoded))
	}
	if decoded[1].Type != StepTypeRandom || decoded[1].Count != 4 {
		t.Errorf("round trip lost step data: %+v", decoded[1])
	}
}

func TestSequenceStep_FixedIDs_ListWins(t *testing.T) {
	// When both forms are present the list form wins.
	st := SequenceStep{Type: StepTypeFixed, PrerollID: 9, PrerollIDs: []int64{1, 2}}
	if got := st.FixedIDs(); len(got) != 2 {
		t.Errorf("FixedIDs() = %v, want list form", got)
	}
}

func TestParseRecurrence(t *testing.T) {
	raw := `{"timeRange":{"start":"22:00","end":"03:00"},"daysOfWeek":[0,4,5]}`

	r, err := ParseRecurrence([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRecurrence() error = %v", err)
	}
	if r.TimeRange == nil || r.TimeRange.Start != "22:00" || r.TimeRange.End != "03:00" {
		t.Errorf("TimeRange = %+v, want 22:00-03:00", r.TimeRange)
	}
	if len(r.DaysOfWeek) != 3 {
		t.Errorf("DaysOfWeek = %v, want 3 entries", r.DaysOfWeek)
	}
}

func TestParseRecurrence_HolidayDynamic(t *testing.T) {
	raw := `{"type":"holiday_dynamic","name":"Thanksgiving","country":"US"}`

	r, err := ParseRecurrence([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRecurrence() error = %v", err)
	}
	if r.Type != "holiday_dynamic" || r.Name != "Thanksgiving" || r.Country != "US" {
		t.Errorf("unexpected pattern: %+v", r)
	}
}

func TestParseRecurrence_DayOutOfRange(t *testing.T) {
	raw := `{"daysOfWeek":[0,7]}`

	if _, err := ParseRecurrence([]byte(raw)); err == nil {
		t.Fatal("expected error for day 7")
	}
}

func TestSchedule_Steps(t *testing.T) {
	seq := `[{"type":"fixed","preroll_id":3}]`
	s := Schedule{Sequence: &seq}

	steps, err := s.Steps()
	if err != nil {
		t.Fatalf("Steps() error = %v", err)
	}
	if len(steps) != 1 || steps[0].PrerollID != 3 {
		t.Errorf("Steps() = %+v", steps)
	}
}

func TestSchedule_Steps_None(t *testing.T) {
	s := Schedule{}
	steps, err := s.Steps()
	if err != nil {
		t.Fatalf("Steps() error = %v", err)
	}
	if steps != nil {
		t.Errorf("expected nil steps, got %v", steps)
	}
}

func TestSchedule_HasSequence(t *testing.T) {
	empty := ""
	nullStr := "null"
	emptyList := "[]"
	real := `[{"type":"fixed","preroll_id":1}]`

	tests := []struct {
		name string
		seq  *string
		want bool
	}{
		{"nil", nil, false},
		{"empty string", &empty, false},
		{"json null", &nullStr, false},
		{"empty list", &emptyList, false},
		{"real sequence", &real, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Schedule{Sequence: tt.seq}
			if got := s.HasSequence(); got != tt.want {
				t.Errorf("HasSequence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSavedSequence_DecodedSteps(t *testing.T) {
	ss := SavedSequence{Steps: `[{"type":"random","category_id":2,"count":1}]`}

	steps, err := ss.DecodedSteps()
	if err != nil {
		t.Fatalf("DecodedSteps() error = %v", err)
	}
	if len(steps) != 1 || steps[0].CategoryID != 2 {
		t.Errorf("DecodedSteps() = %+v", steps)
	}
}
