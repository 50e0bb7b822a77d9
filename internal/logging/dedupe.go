// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package logging

import (
	"sync"
	"time"
)

// DefaultDedupeWindow is how long an unchanged failure state is suppressed
// before being logged again at full severity.
const DefaultDedupeWindow = 5 * time.Minute

// Deduper suppresses repeated log output for unchanged failure states.
//
// The scheduler ticks every few seconds; an unreachable Plex server would
// otherwise produce an identical error line on every tick. Callers key each
// failure by a stable state key (e.g. "plex_connect") and a fingerprint of
// the error. The first occurrence and every state change log immediately;
// repeats of the same fingerprint are suppressed until the window elapses.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	states map[string]*dedupeState

	// now is replaceable for tests.
	now func() time.Time
}

type dedupeState struct {
	fingerprint string
	lastLogged  time.Time
}

// NewDeduper creates a Deduper with the given suppression window.
// A zero or negative window uses DefaultDedupeWindow.
func NewDeduper(window time.Duration) *Deduper {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	return &Deduper{
		window: window,
		states: make(map[string]*dedupeState),
		now:    time.Now,
	}
}

// ShouldLog reports whether a failure with the given state key and
// fingerprint should be emitted at full severity. It returns true when the
// fingerprint differs from the last one seen for the key, or when the
// suppression window has elapsed since the last full-severity emission.
// Either way the key's state is updated.
func (d *Deduper) ShouldLog(key, fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	st, ok := d.states[key]
	if !ok || st.fingerprint != fingerprint || now.Sub(st.lastLogged) >= d.window {
		d.states[key] = &dedupeState{fingerprint: fingerprint, lastLogged: now}
		return true
	}
	return false
}

// Clear marks the key as healthy and reports whether it previously held a
// failure. A true return means the caller should log the recovery.
func (d *Deduper) Clear(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, hadFailure := d.states[key]
	delete(d.states, key)
	return hadFailure
}

// Len returns the number of tracked failure states. Used by tests and the
// health endpoint's diagnostics payload.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.states)
}
