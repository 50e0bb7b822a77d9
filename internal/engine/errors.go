// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so the API layer can map them to status
// codes and automation entry points can decide between 200-with-body and a
// real failure.
type Kind string

const (
	// KindConfig marks missing or inconsistent operator configuration.
	KindConfig Kind = "config"
	// KindTransport marks network failures toward external servers.
	KindTransport Kind = "transport"
	// KindProtocol marks undecodable or unexpected wire payloads.
	KindProtocol Kind = "protocol"
	// KindAuth marks rejected credentials.
	KindAuth Kind = "auth"
	// KindState marks valid requests that current state cannot satisfy
	// (empty category, sequence produced no paths, platform mismatch).
	KindState Kind = "state"
	// KindConflict marks lost races with concurrent writers.
	KindConflict Kind = "conflict"
)

// Error is a classified engine error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation label.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Ef is E with a formatted message instead of a wrapped error.
func Ef(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification of any error, defaulting to transport
// for unclassified failures (the conservative choice for automation
// surfaces).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}
