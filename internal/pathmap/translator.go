// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package pathmap rewrites engine-local file paths into the media server's
// filesystem view via longest-prefix mapping rules, and refuses to emit
// paths whose style contradicts the server's platform.
package pathmap

import (
	"fmt"
	"strings"

	"github.com/nexroll/nexroll/internal/models"
)

// Translator applies an ordered list of {local, plex} prefix mappings.
// Rules are small (typically under ten); lookup is a linear longest-match.
type Translator struct {
	mappings []models.PathMapping
}

// New creates a translator over the given mapping list.
func New(mappings []models.PathMapping) *Translator {
	return &Translator{mappings: mappings}
}

// Translate rewrites one local path into the server's view. The mapping
// with the longest matching local prefix wins; prefix matching is
// case-insensitive when the mapping's local side is Windows-styled. An
// unmatched path is returned unchanged.
func (t *Translator) Translate(localPath string) string {
	var best *models.PathMapping
	for i := range t.mappings {
		m := &t.mappings[i]
		if m.Local == "" {
			continue
		}
		if !hasPathPrefix(localPath, m.Local) {
			continue
		}
		if best == nil || len(m.Local) > len(best.Local) {
			best = m
		}
	}
	if best == nil {
		return localPath
	}

	remainder := localPath[len(best.Local):]
	sep := styleSeparator(best.Plex)

	// Rebase the remainder onto the target's separator style.
	remainder = strings.ReplaceAll(remainder, "\\", sep)
	remainder = strings.ReplaceAll(remainder, "/", sep)
	remainder = strings.TrimLeft(remainder, sep)

	target := strings.TrimRight(best.Plex, "\\/")
	if remainder == "" {
		return target
	}
	return target + sep + remainder
}

// TranslateAll maps Translate over a path list, preserving order.
func (t *Translator) TranslateAll(localPaths []string) []string {
	out := make([]string, len(localPaths))
	for i, p := range localPaths {
		out[i] = t.Translate(p)
	}
	return out
}

// hasPathPrefix reports whether path starts with prefix, case-insensitively
// when the prefix is Windows-styled (Windows filesystems are
// case-insensitive; POSIX ones are not).
func hasPathPrefix(path, prefix string) bool {
	if IsWindowsPath(prefix) {
		return len(path) >= len(prefix) && strings.EqualFold(path[:len(prefix)], prefix)
	}
	return strings.HasPrefix(path, prefix)
}

// styleSeparator returns the separator matching a target prefix's style:
// a backslash anywhere means Windows, otherwise POSIX.
func styleSeparator(target string) string {
	if strings.Contains(target, "\\") {
		return "\\"
	}
	return "/"
}

// IsWindowsPath reports whether a path looks Windows-styled: a drive letter
// ("C:\..." or "C:/...") or a UNC prefix ("\\host\share").
func IsWindowsPath(path string) bool {
	if strings.HasPrefix(path, `\\`) {
		return true
	}
	if len(path) >= 3 && isDriveLetter(path[0]) && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		return true
	}
	return false
}

// IsPOSIXPath reports whether a path looks POSIX-styled: rooted at "/"
// with no drive letter or UNC marker.
func IsPOSIXPath(path string) bool {
	return strings.HasPrefix(path, "/") && !IsWindowsPath(path)
}

func isDriveLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// MismatchError reports a translated path whose style contradicts the
// server's platform. It is fatal to the current apply: the engine never
// sends a path the server cannot resolve.
type MismatchError struct {
	// Platform is the server's platform ("windows", "linux", "macos").
	Platform string

	// Example is one offending path.
	Example string

	// Suggestion is a mapping hint for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("path style mismatch for %s server: %q; %s", e.Platform, e.Example, e.Suggestion)
}

// ValidatePlatform checks every translated path against the server's
// platform. It returns a *MismatchError naming the first offending path,
// or nil when all paths fit.
func ValidatePlatform(paths []string, platform string) error {
	switch platform {
	case models.PlatformWindows:
		for _, p := range paths {
			if IsPOSIXPath(p) {
				return &MismatchError{
					Platform:   platform,
					Example:    p,
					Suggestion: fmt.Sprintf("add a path mapping from the engine prefix of %q to a Windows path (e.g. {\"local\": \"/media\", \"plex\": \"Z:\\\\Media\"})", p),
				}
			}
		}
	case models.PlatformLinux, models.PlatformMacOS:
		for _, p := range paths {
			if IsWindowsPath(p) {
				return &MismatchError{
					Platform:   platform,
					Example:    p,
					Suggestion: fmt.Sprintf("add a path mapping from the engine prefix of %q to a POSIX path (e.g. {\"local\": \"C:\\\\Media\", \"plex\": \"/media\"})", p),
				}
			}
		}
	default:
		// Unknown platform: nothing to check against.
	}
	return nil
}
