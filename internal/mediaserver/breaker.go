// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package mediaserver

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
)

// ErrCircuitOpen is returned while the breaker rejects calls outright.
var ErrCircuitOpen = errors.New("media server circuit breaker is open")

// BreakerAdapter wraps an Adapter with a circuit breaker so a dead media
// server cannot stall every engine tick for the full HTTP timeout. The
// breaker guards transport calls only; configuration errors pass through
// without counting as failures.
type BreakerAdapter struct {
	inner Adapter
	cb    *gobreaker.CircuitBreaker[any]
}

// WithBreaker wraps adapter in a circuit breaker named after it. Opens after
// a 60% failure rate over at least 6 requests; recovers via half-open after
// one minute.
func WithBreaker(adapter Adapter) *BreakerAdapter {
	name := adapter.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 6 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, breakerStateString(from), breakerStateString(to)).Inc()
		},
	})

	return &BreakerAdapter{inner: adapter, cb: cb}
}

// Name implements Adapter.
func (b *BreakerAdapter) Name() string { return b.inner.Name() }

// Configured implements Adapter.
func (b *BreakerAdapter) Configured() bool { return b.inner.Configured() }

// TestConnection implements Adapter.
func (b *BreakerAdapter) TestConnection(ctx context.Context) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.TestConnection(ctx)
	})
	return err
}

// GetServerInfo implements Adapter.
func (b *BreakerAdapter) GetServerInfo(ctx context.Context) (*models.ServerInfo, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.GetServerInfo(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.(*models.ServerInfo), nil
}

// GetPreroll implements Adapter.
func (b *BreakerAdapter) GetPreroll(ctx context.Context) (string, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.GetPreroll(ctx)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// SetPreroll implements Adapter.
func (b *BreakerAdapter) SetPreroll(ctx context.Context, value string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.SetPreroll(ctx, value)
	})
	return err
}

func (b *BreakerAdapter) execute(fn func() (any, error)) (any, error) {
	if !b.inner.Configured() {
		return nil, ErrNotConfigured
	}

	out, err := b.cb.Execute(func() (any, error) {
		result, callErr := fn()
		if errors.Is(callErr, ErrNotConfigured) {
			// Not a server fault; do not trip the breaker.
			return result, nil
		}
		return result, callErr
	})
	name := b.inner.Name()
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
		return nil, ErrCircuitOpen
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
		return nil, err
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
		return out, nil
	}
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half_open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
