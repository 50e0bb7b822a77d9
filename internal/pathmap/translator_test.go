// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package pathmap

import (
	"errors"
	"testing"

	"github.com/nexroll/nexroll/internal/models"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		mappings []models.PathMapping
		path     string
		want     string
	}{
		{
			name:     "no mappings returns path unchanged",
			mappings: nil,
			path:     "/media/prerolls/a.mp4",
			want:     "/media/prerolls/a.mp4",
		},
		{
			name: "posix to posix",
			mappings: []models.PathMapping{
				{Local: "/media", Plex: "/mnt/plex"},
			},
			path: "/media/prerolls/a.mp4",
			want: "/mnt/plex/prerolls/a.mp4",
		},
		{
			name: "windows to windows keeps backslash style",
			mappings: []models.PathMapping{
				{Local: `D:\Media`, Plex: `Z:\Media`},
			},
			path: `D:\Media\Halloween\a.mp4`,
			want: `Z:\Media\Halloween\a.mp4`,
		},
		{
			name: "windows local prefix matches case-insensitively",
			mappings: []models.PathMapping{
				{Local: `D:\Media`, Plex: `Z:\Media`},
			},
			path: `d:\media\Halloween\a.mp4`,
			want: `Z:\Media\Halloween\a.mp4`,
		},
		{
			name: "posix local prefix is case-sensitive",
			mappings: []models.PathMapping{
				{Local: "/Media", Plex: "/mnt/plex"},
			},
			path: "/media/a.mp4",
			want: "/media/a.mp4",
		},
		{
			name: "longest prefix wins regardless of order",
			mappings: []models.PathMapping{
				{Local: "/media", Plex: "/wrong"},
				{Local: "/media/prerolls", Plex: "/mnt/prerolls"},
			},
			path: "/media/prerolls/a.mp4",
			want: "/mnt/prerolls/a.mp4",
		},
		{
			name: "posix to windows rebases separators",
			mappings: []models.PathMapping{
				{Local: "/media", Plex: `C:\Media`},
			},
			path: "/media/holiday/b.mp4",
			want: `C:\Media\holiday\b.mp4`,
		},
		{
			name: "windows to posix rebases separators",
			mappings: []models.PathMapping{
				{Local: `C:\Prerolls`, Plex: "/prerolls"},
			},
			path: `C:\Prerolls\spring\c.mp4`,
			want: "/prerolls/spring/c.mp4",
		},
		{
			name: "unmatched path passes through",
			mappings: []models.PathMapping{
				{Local: "/media", Plex: "/mnt/plex"},
			},
			path: "/other/a.mp4",
			want: "/other/a.mp4",
		},
		{
			name: "exact prefix match yields bare target",
			mappings: []models.PathMapping{
				{Local: "/media", Plex: "/mnt/plex"},
			},
			path: "/media",
			want: "/mnt/plex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(tt.mappings)
			if got := tr.Translate(tt.path); got != tt.want {
				t.Errorf("Translate(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// Translation is idempotent when no mapping targets another mapping's
// source prefix.
func TestTranslateIdempotent(t *testing.T) {
	tr := New([]models.PathMapping{
		{Local: "/media", Plex: "/mnt/plex"},
		{Local: `D:\Media`, Plex: `Z:\Media`},
	})

	for _, p := range []string{"/media/a.mp4", `D:\Media\b.mp4`, "/unmatched/c.mp4"} {
		once := tr.Translate(p)
		twice := tr.Translate(once)
		if once != twice {
			t.Errorf("Translate not idempotent for %q: %q then %q", p, once, twice)
		}
	}
}

func TestTranslateAllPreservesOrder(t *testing.T) {
	tr := New([]models.PathMapping{{Local: `D:\Media`, Plex: `Z:\Media`}})

	got := tr.TranslateAll([]string{
		`D:\Media\Halloween\a.mp4`,
		`D:\Media\Halloween\b.mp4`,
		`D:\Media\Halloween\c.mp4`,
	})
	want := []string{
		`Z:\Media\Halloween\a.mp4`,
		`Z:\Media\Halloween\b.mp4`,
		`Z:\Media\Halloween\c.mp4`,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TranslateAll[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPathStyleDetection(t *testing.T) {
	windows := []string{`C:\Media\a.mp4`, `c:/media/a.mp4`, `\\nas\share\a.mp4`}
	for _, p := range windows {
		if !IsWindowsPath(p) {
			t.Errorf("IsWindowsPath(%q) = false, want true", p)
		}
		if IsPOSIXPath(p) {
			t.Errorf("IsPOSIXPath(%q) = true, want false", p)
		}
	}

	posix := []string{"/mnt/prerolls/a.mp4", "/a"}
	for _, p := range posix {
		if !IsPOSIXPath(p) {
			t.Errorf("IsPOSIXPath(%q) = false, want true", p)
		}
		if IsWindowsPath(p) {
			t.Errorf("IsWindowsPath(%q) = true, want false", p)
		}
	}

	if IsWindowsPath("relative/path.mp4") || IsPOSIXPath("relative/path.mp4") {
		t.Error("relative path classified as absolute")
	}
}

func TestValidatePlatform(t *testing.T) {
	// A Windows server rejects POSIX paths with a structured error naming
	// the offending path.
	err := ValidatePlatform([]string{`Z:\Media\a.mp4`, "/mnt/prerolls/a.mp4"}, models.PlatformWindows)
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("ValidatePlatform() = %v, want *MismatchError", err)
	}
	if mismatch.Example != "/mnt/prerolls/a.mp4" {
		t.Errorf("Example = %q, want the POSIX path", mismatch.Example)
	}
	if mismatch.Suggestion == "" {
		t.Error("Suggestion is empty, want a mapping hint")
	}

	// A Linux server rejects Windows paths.
	if err := ValidatePlatform([]string{`C:\Media\a.mp4`}, models.PlatformLinux); err == nil {
		t.Error("ValidatePlatform(windows path, linux) = nil, want error")
	}

	// Matching styles pass.
	if err := ValidatePlatform([]string{`Z:\a.mp4`, `\\nas\b.mp4`}, models.PlatformWindows); err != nil {
		t.Errorf("ValidatePlatform(windows paths, windows) = %v", err)
	}
	if err := ValidatePlatform([]string{"/a.mp4"}, models.PlatformLinux); err != nil {
		t.Errorf("ValidatePlatform(posix paths, linux) = %v", err)
	}

	// Unknown platform validates nothing.
	if err := ValidatePlatform([]string{"/a.mp4", `C:\b.mp4`}, models.PlatformUnknown); err != nil {
		t.Errorf("ValidatePlatform(unknown) = %v", err)
	}
}
