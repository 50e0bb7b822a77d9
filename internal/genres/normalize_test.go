// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package genres

import (
	"reflect"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Horror", "horror"},
		{"Sci-Fi", "science fiction"},
		{"SciFi", "science fiction"},
		{"Sci Fi", "science fiction"},
		{"Action & Adventure", "action and adventure"},
		{"Kids_Family", "kids family"},
		{"Kids & Family", "kids and family"},
		{"  Mystery   Thriller ", "mystery thriller"},
		{"Ｈｏｒｒｏｒ", "horror"}, // fullwidth folds via NFKC
		{"Drama/Romance", "drama romance"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalSynonymsAfterNormalization(t *testing.T) {
	// Every spelling variant of the synonym keys must land on the fold.
	for _, in := range []string{"sci-fi", "SCI FI", "SciFi", "sci_fi"} {
		if got := Canonical(in); got != "science fiction" {
			t.Errorf("Canonical(%q) = %q, want science fiction", in, got)
		}
	}
}

func TestCandidates(t *testing.T) {
	got := Candidates("Action & Adventure")
	want := []string{"action and adventure", "action", "adventure"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates(Action & Adventure) = %v, want %v", got, want)
	}

	got = Candidates("Drama|Romance")
	if len(got) != 3 || got[1] != "drama" || got[2] != "romance" {
		t.Errorf("Candidates(Drama|Romance) = %v", got)
	}

	got = Candidates("Horror")
	if !reflect.DeepEqual(got, []string{"horror"}) {
		t.Errorf("Candidates(Horror) = %v", got)
	}
}

func TestDedupeFold(t *testing.T) {
	got := DedupeFold([]string{"Horror", "horror", "HORROR", "Thriller", "", "  "})
	want := []string{"Horror", "Thriller"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeFold = %v, want %v", got, want)
	}
}
