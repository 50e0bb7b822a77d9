// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package mediaserver

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// Connection error kinds, stable strings surfaced through the status API so
// the UI can render a targeted hint instead of a raw Go error.
const (
	ErrKindTimeout         = "timeout"
	ErrKindSSLVerify       = "ssl_verify_failed"
	ErrKindDNS             = "dns"
	ErrKindConnRefused     = "conn_refused"
	ErrKindHostUnreachable = "host_unreachable"
	ErrKindConnError       = "conn_error"
)

// ErrNotConfigured is returned by adapter methods when no server URL is set.
var ErrNotConfigured = errors.New("media server not configured")

// ErrValueMismatch is returned when every setter variant's readback differed
// from the sent value.
var ErrValueMismatch = errors.New("preference readback did not match the applied value")

// ConnError wraps a transport failure with a classified kind.
type ConnError struct {
	Kind string
	Err  error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the media server.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http_%d: %s", e.StatusCode, e.Body)
}

// Kind returns the stable kind string for a status code.
func (e *HTTPError) Kind() string {
	return fmt.Sprintf("http_%d", e.StatusCode)
}

// classifyError maps a transport error to a *ConnError with a stable kind.
// nil passes through.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var certErr *x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		strings.Contains(err.Error(), "x509:") || strings.Contains(err.Error(), "certificate") {
		return &ConnError{Kind: ErrKindSSLVerify, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ConnError{Kind: ErrKindDNS, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ConnError{Kind: ErrKindTimeout, Err: err}
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return &ConnError{Kind: ErrKindTimeout, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &ConnError{Kind: ErrKindConnRefused, Err: err}
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return &ConnError{Kind: ErrKindHostUnreachable, Err: err}
	}

	return &ConnError{Kind: ErrKindConnError, Err: err}
}

// ErrorKind extracts the stable kind string from any adapter error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var connErr *ConnError
	if errors.As(err, &connErr) {
		return connErr.Kind
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Kind()
	}
	return ErrKindConnError
}
