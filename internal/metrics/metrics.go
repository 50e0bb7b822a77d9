// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the preroll engine:
// - DuckDB query performance
// - API endpoint latency and throughput
// - Engine tick timing and decisions
// - Media server apply attempts and readback mismatches
// - Circuit breaker state
// - Genre intercept and webhook activity

var (
	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Engine metrics
	EngineTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_tick_duration_seconds",
			Help:    "Duration of one control loop tick in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	EngineTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_ticks_total",
			Help: "Total number of control loop ticks",
		},
		[]string{"result"}, // "ok", "error"
	)

	EngineActiveSchedules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_active_schedules",
			Help: "Number of schedules active at the last tick",
		},
	)

	EngineDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_decisions_total",
			Help: "Arbiter decisions by program kind",
		},
		[]string{"kind"}, // "category", "sequence", "blend", "clear", "noop"
	)

	// Media server apply metrics
	ApplyAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaserver_apply_attempts_total",
			Help: "Preroll apply attempts by server and result",
		},
		[]string{"server", "result"}, // result: "success", "failure"
	)

	ApplyReadbackMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaserver_readback_mismatches_total",
			Help: "Setter variants whose readback did not match the sent value",
		},
		[]string{"server", "variant"},
	)

	ReconcileDrift = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_reconcile_drift_total",
			Help: "Times the reconciler detected and corrected preference drift",
		},
	)

	// Genre intercept metrics
	GenreApplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genre_applies_total",
			Help: "Genre-triggered category applications by outcome",
		},
		[]string{"outcome"}, // "applied", "skipped", "no_match", "error"
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Plex webhook events received by type",
		},
		[]string{"event"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by outcome",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	// Library watcher metrics
	LibraryIngests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_ingests_total",
			Help: "Files auto-registered by the library watcher",
		},
		[]string{"result"}, // "registered", "skipped", "error"
	)
)

// RecordDBQuery observes one store call. Call with the elapsed time and
// whether the call failed.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
