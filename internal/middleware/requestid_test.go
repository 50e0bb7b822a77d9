// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var capturedID string
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	responseID := rec.Header().Get("X-Request-ID")
	if responseID == "" {
		t.Fatal("expected X-Request-ID header in response")
	}
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("response X-Request-ID is not a valid UUID: %v", err)
	}
	if capturedID != responseID {
		t.Errorf("context ID %q does not match response header ID %q", capturedID, responseID)
	}
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	var capturedID string
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	existingID := "upstream-proxy-id-12345"
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", existingID)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != existingID {
		t.Errorf("X-Request-ID = %q, want %q", got, existingID)
	}
	if capturedID != existingID {
		t.Errorf("context ID = %q, want %q", capturedID, existingID)
	}
}

func TestRequestID_MultipleRequestsGetUniqueIDs(t *testing.T) {
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ids := make(map[string]bool)
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		id := rec.Header().Get("X-Request-ID")
		if ids[id] {
			t.Errorf("duplicate request ID generated: %s", id)
		}
		ids[id] = true
	}
}

func TestGetRequestID_WithoutID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("GetRequestID on bare context = %q, want empty", id)
	}
}
