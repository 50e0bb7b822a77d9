// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package validation

import (
	"strings"
	"testing"
)

type timeRangePayload struct {
	Start string `validate:"required,hhmm"`
	End   string `validate:"required,hhmm"`
}

func TestValidateStructHHMM(t *testing.T) {
	tests := []struct {
		name    string
		payload timeRangePayload
		wantErr bool
	}{
		{"valid daytime range", timeRangePayload{Start: "09:00", End: "17:30"}, false},
		{"valid overnight range", timeRangePayload{Start: "22:00", End: "03:00"}, false},
		{"midnight boundary", timeRangePayload{Start: "00:00", End: "23:59"}, false},
		{"hour out of range", timeRangePayload{Start: "24:00", End: "01:00"}, true},
		{"minute out of range", timeRangePayload{Start: "10:60", End: "11:00"}, true},
		{"missing colon", timeRangePayload{Start: "1000", End: "11:00"}, true},
		{"empty start", timeRangePayload{Start: "", End: "11:00"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type settingsPayload struct {
	Timezone string `validate:"omitempty,iana_tz"`
	Mode     string `validate:"omitempty,oneof=shuffle playlist"`
	Priority int    `validate:"min=0,max=10"`
}

func TestValidateStructSettings(t *testing.T) {
	if err := ValidateStruct(&settingsPayload{Timezone: "America/New_York", Mode: "shuffle", Priority: 5}); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}

	if err := ValidateStruct(&settingsPayload{Timezone: "Not/AZone"}); err == nil {
		t.Error("invalid timezone accepted")
	}

	if err := ValidateStruct(&settingsPayload{Priority: 11}); err == nil {
		t.Error("priority 11 accepted, want rejection")
	}
}

func TestToAPIError(t *testing.T) {
	err := ValidateStruct(&settingsPayload{Mode: "random", Priority: 42})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Mode") || !strings.Contains(apiErr.Message, "Priority") {
		t.Errorf("message %q does not mention both failing fields", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-error details missing fields list")
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	err := ValidateStruct(&settingsPayload{Priority: -1})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	apiErr := err.ToAPIError()
	if apiErr.Details["field"] != "Priority" {
		t.Errorf("details.field = %v, want Priority", apiErr.Details["field"])
	}
}
