package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the room synchronization backend.
//
// Naming convention: namespace_subsystem_name
// - namespace: shoutwars (application-level grouping)
// - subsystem: room, sync, session (feature-level grouping)
// - name: specific metric (rooms_active, requests_total, etc.)
//
// Metric Types:
// - Gauge: Current state (rooms, sessions)
// - Counter: Cumulative events (syncs processed, users kicked)
// - Histogram: Latency distributions (barrier wait time)

var (
	// ActiveRooms tracks the current number of live rooms
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shoutwars",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of live rooms",
	})

	// RoomsCreated counts rooms created since process start
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "room",
		Name:      "rooms_created_total",
		Help:      "Total rooms created",
	})

	// RoomsRemoved counts rooms destroyed by the janitor or registry
	RoomsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "room",
		Name:      "rooms_removed_total",
		Help:      "Total rooms removed",
	})

	// UsersKicked counts users dropped for inactivity
	UsersKicked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "room",
		Name:      "users_kicked_total",
		Help:      "Total users kicked for inactivity",
	})

	// RecordsCleaned counts sync records garbage-collected after consumption
	RecordsCleaned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sync",
		Name:      "records_cleaned_total",
		Help:      "Total sync records garbage-collected",
	})

	// SyncRequests counts sync barrier entries by outcome
	SyncRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sync",
		Name:      "requests_total",
		Help:      "Total sync requests processed",
	}, []string{"status"})

	// SyncBarrierDuration tracks time spent inside the sync barrier,
	// including both condition-variable waits
	SyncBarrierDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shoutwars",
		Subsystem: "sync",
		Name:      "barrier_seconds",
		Help:      "Time spent inside the sync barrier",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// RoundsCompleted counts round rollovers (a full record closed)
	RoundsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shoutwars",
		Subsystem: "sync",
		Name:      "rounds_total",
		Help:      "Total completed synchronization rounds",
	})

	// ActiveSessions tracks live session tokens
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shoutwars",
		Subsystem: "session",
		Name:      "sessions_active",
		Help:      "Current number of live sessions",
	})
)
