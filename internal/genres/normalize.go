// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package genres maps playback genre labels to preroll categories. Labels
// arrive in whatever shape the media server's metadata agent produced
// ("Sci-Fi", "Action & Adventure", "Kids_Family"), so every lookup goes
// through a canonical key rather than the raw string.
package genres

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// synonyms folds spelling variants onto one canonical key. Keys are in
// post-normalization form: hyphens are already gone, so "Sci-Fi" arrives
// here as "scifi".
var synonyms = map[string]string{
	"sci fi":          "science fiction",
	"scifi":           "science fiction",
	"kids and family": "family",
	"kids family":     "family",
}

// Canonical computes the canonical key for a genre label: Unicode NFKC,
// "&" to " and ", "/" and "_" to space, hyphens collapsed, whitespace
// collapsed, lowercased, then synonym-folded.
func Canonical(label string) string {
	s := norm.NFKC.String(label)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))

	if folded, ok := synonyms[s]; ok {
		return folded
	}
	return s
}

// Candidates expands a raw label into the ordered candidate keys to try
// against the stored mappings: the full canonical form first, then each
// component obtained by splitting on the common compound separators.
// "Action & Adventure" yields ["action and adventure", "action",
// "adventure"].
func Candidates(label string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(key string) {
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}

	full := Canonical(label)
	add(full)

	// Compound separators in the raw label first, then the " and " form
	// the canonicalization itself produces.
	for _, seg := range strings.FieldsFunc(label, func(r rune) bool {
		return r == ',' || r == '|' || r == '/'
	}) {
		add(Canonical(seg))
	}
	for _, key := range append([]string{full}, out...) {
		for _, part := range strings.Split(key, " and ") {
			add(Canonical(part))
		}
	}

	return out
}

// DedupeFold deduplicates labels case-insensitively, preserving first-seen
// order.
func DedupeFold(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		key := strings.ToLower(strings.TrimSpace(l))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
