// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package holidays

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newHolidayServer serves a fixed US 2026 holiday list and counts requests.
func newHolidayServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/v3/PublicHolidays/2026/US" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2026-01-01","localName":"New Year's Day","name":"New Year's Day"},
			{"date":"2026-07-03","localName":"Independence Day","name":"Independence Day"},
			{"date":"2026-11-26","localName":"Thanksgiving Day","name":"Thanksgiving Day"},
			{"date":"2026-12-25","localName":"Christmas Day","name":"Christmas Day"}
		]`))
	}))
}

func TestResolve(t *testing.T) {
	var calls atomic.Int64
	srv := newHolidayServer(t, &calls)
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := context.Background()

	month, day, found, err := c.Resolve(ctx, "Thanksgiving", "US", 2026)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !found || month != time.November || day != 26 {
		t.Errorf("Resolve(Thanksgiving) = %v %d found=%v, want November 26 true", month, day, found)
	}
}

func TestResolveCachesPositive(t *testing.T) {
	var calls atomic.Int64
	srv := newHolidayServer(t, &calls)
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, _, err := c.Resolve(ctx, "Christmas Day", "US", 2026); err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("API calls = %d, want 1 (cached)", got)
	}
}

func TestResolveCachesNegative(t *testing.T) {
	var calls atomic.Int64
	srv := newHolidayServer(t, &calls)
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, found, err := c.Resolve(ctx, "Festivus", "US", 2026)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if found {
			t.Error("Resolve(Festivus) found=true, want false")
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("API calls = %d, want 1 (negative result cached)", got)
	}
}

func TestResolveDoesNotCacheErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, _, err := c.Resolve(ctx, "Christmas Day", "US", 2026); err == nil {
			t.Fatal("Resolve() = nil error, want failure")
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("API calls = %d, want 2 (errors not cached)", got)
	}
}

func TestResolveMatchesLocalNameAndSubstring(t *testing.T) {
	var calls atomic.Int64
	srv := newHolidayServer(t, &calls)
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := context.Background()

	// Case-insensitive substring against the API's name.
	month, day, found, err := c.Resolve(ctx, "independence", "us", 2026)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !found || month != time.July || day != 3 {
		t.Errorf("Resolve(independence) = %v %d found=%v, want July 3 true", month, day, found)
	}
}
