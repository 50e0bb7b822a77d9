// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"testing"

	"github.com/nexroll/nexroll/internal/models"
)

func TestReconcilerRestoresDriftedValue(t *testing.T) {
	store := newFakeStore()
	store.settings.ActiveCategoryID = i64Ptr(1)
	store.settings.LastAppliedValue = strPtr("/media/a.mp4;/media/b.mp4")

	plex := newFakeAdapter("plex", models.PlatformLinux)
	plex.value = "/somewhere/else.mp4"
	r := NewReconciler(store, plex)

	settings, _ := store.GetSettings(context.Background())
	if err := r.Verify(context.Background(), settings, ProgramCategory); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if calls := plex.calls(); len(calls) != 1 || calls[0] != "/media/a.mp4;/media/b.mp4" {
		t.Errorf("SetPreroll calls = %q, want the recorded value restored", calls)
	}
}

func TestReconcilerMatchingValueLeavesServerAlone(t *testing.T) {
	store := newFakeStore()
	store.settings.ActiveCategoryID = i64Ptr(1)
	store.settings.LastAppliedValue = strPtr("/media/a.mp4")

	plex := newFakeAdapter("plex", models.PlatformLinux)
	// Whitespace from the server is not drift.
	plex.value = "  /media/a.mp4 \n"
	r := NewReconciler(store, plex)

	settings, _ := store.GetSettings(context.Background())
	if err := r.Verify(context.Background(), settings, ProgramCategory); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if len(plex.calls()) != 0 {
		t.Errorf("SetPreroll calls = %q, want none", plex.calls())
	}
}

func TestReconcilerRebuildsWhenNoRecordedValue(t *testing.T) {
	store := newFakeStore()
	store.addCategory(1, "A", models.PlexModeShuffle, "/media/a.mp4", "/media/b.mp4")
	store.settings.ActiveCategoryID = i64Ptr(1)

	plex := newFakeAdapter("plex", models.PlatformLinux)
	plex.value = "stale"
	r := NewReconciler(store, plex)

	settings, _ := store.GetSettings(context.Background())
	if err := r.Verify(context.Background(), settings, ProgramCategory); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if calls := plex.calls(); len(calls) != 1 || calls[0] != "/media/a.mp4;/media/b.mp4" {
		t.Errorf("SetPreroll calls = %q, want rebuilt shuffle form", calls)
	}
}

func TestReconcilerSkips(t *testing.T) {
	plexValue := "something else entirely"

	cases := []struct {
		name     string
		lastKind ProgramKind
		mutate   func(*fakeStore)
	}{
		{"no active category", ProgramCategory, func(f *fakeStore) {
			f.settings.ActiveCategoryID = nil
		}},
		{"sequence program", ProgramSequence, nil},
		{"blend program", ProgramBlend, nil},
		{"passive noop", ProgramNoop, func(f *fakeStore) {
			f.settings.PassiveMode = true
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.settings.ActiveCategoryID = i64Ptr(1)
			store.settings.LastAppliedValue = strPtr("/media/a.mp4")
			if tc.mutate != nil {
				tc.mutate(store)
			}

			plex := newFakeAdapter("plex", models.PlatformLinux)
			plex.value = plexValue
			r := NewReconciler(store, plex)

			settings, _ := store.GetSettings(context.Background())
			if err := r.Verify(context.Background(), settings, tc.lastKind); err != nil {
				t.Fatalf("Verify() error: %v", err)
			}
			if len(plex.calls()) != 0 {
				t.Errorf("SetPreroll calls = %q, want skip", plex.calls())
			}
		})
	}
}

func TestReconcilerReadFailureIsTransport(t *testing.T) {
	store := newFakeStore()
	store.settings.ActiveCategoryID = i64Ptr(1)
	store.settings.LastAppliedValue = strPtr("/media/a.mp4")

	plex := newFakeAdapter("plex", models.PlatformLinux)
	plex.getErr = context.DeadlineExceeded
	r := NewReconciler(store, plex)

	settings, _ := store.GetSettings(context.Background())
	err := r.Verify(context.Background(), settings, ProgramCategory)
	if KindOf(err) != KindTransport {
		t.Errorf("error kind = %v, want transport", KindOf(err))
	}
}
