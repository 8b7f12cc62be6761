/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TracksStarted counts sessions successfully spawned, labelled by player binary.
	TracksStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_tracks_started_total",
		Help: "Number of playback sessions started",
	}, []string{"player"})

	// TracksCompleted counts tracks whose player process exited on its own.
	TracksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_tracks_completed_total",
		Help: "Number of tracks that played to process exit",
	})

	// SpawnFailures counts tracks skipped because the player failed to start.
	SpawnFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_spawn_failures_total",
		Help: "Number of playback sessions that failed to spawn",
	}, []string{"player"})

	// SessionsKilled counts sessions that needed a forceful kill after the
	// graceful termination window elapsed.
	SessionsKilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_sessions_killed_total",
		Help: "Number of player processes force-killed on termination timeout",
	})

	// ControllerState exports the playback controller state as a one-hot gauge.
	ControllerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skald_controller_state",
		Help: "Current playback controller state (1 for active state, 0 otherwise)",
	}, []string{"state"})

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_api_requests_total",
		Help: "Total HTTP API requests",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_api_active_connections",
		Help: "Number of in-flight HTTP API requests",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetControllerState sets the one-hot controller state gauge.
func SetControllerState(active string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == active {
			v = 1.0
		}
		ControllerState.WithLabelValues(s).Set(v)
	}
}
