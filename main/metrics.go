/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	metrics.go: Prometheus metrics (SPEC_FULL.md §4.9). Backed by
	prometheus/client_golang, one of montge-stratux's go.mod dependencies
	with no earlier component to attach to until this one.
*/

package main

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge exported on /metrics, registered
// against its own registry so tests can spin up independent instances.
type Metrics struct {
	Registry *prometheus.Registry

	AircraftTracked     prometheus.Gauge
	ReceiversTracked    prometheus.Gauge
	QuickCacheHits      prometheus.Counter
	QuickCacheMisses    prometheus.Counter
	ReceiverQuarantines prometheus.Counter
	DBReloads           prometheus.Counter
	DBReloadDuration    prometheus.Histogram

	// Messages is partitioned by outcome: accepted, rejected_stale_source,
	// rejected_speed_check, rejected_quarantined_receiver.
	Messages *prometheus.CounterVec
}

const (
	OutcomeAccepted                = "accepted"
	OutcomeRejectedStaleSource     = "rejected_stale_source"
	OutcomeRejectedSpeedCheck      = "rejected_speed_check"
	OutcomeRejectedQuarantinedRecv = "rejected_quarantined_receiver"
)

// NewMetrics builds and registers a fresh set of collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		AircraftTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trackerd",
			Name:      "aircraft_tracked",
			Help:      "Number of aircraft records currently live in the directory.",
		}),
		ReceiversTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trackerd",
			Name:      "receivers_tracked",
			Help:      "Number of receivers currently live in the receiver table.",
		}),
		QuickCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trackerd",
			Name:      "quick_cache_hits_total",
			Help:      "Aircraft directory lookups served from the quick cache.",
		}),
		QuickCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trackerd",
			Name:      "quick_cache_misses_total",
			Help:      "Aircraft directory lookups that fell through to a chain walk.",
		}),
		ReceiverQuarantines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trackerd",
			Name:      "receiver_quarantines_total",
			Help:      "Receivers placed into quarantine for excessive bad messages.",
		}),
		DBReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trackerd",
			Name:      "db_reloads_total",
			Help:      "Completed static metadata DB hot-swaps.",
		}),
		DBReloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trackerd",
			Name:      "db_reload_duration_seconds",
			Help:      "Wall time spent parsing and swapping a static metadata DB generation.",
			Buckets:   prometheus.DefBuckets,
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trackerd",
			Name:      "messages_total",
			Help:      "Messages handled by the update pipeline, partitioned by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.AircraftTracked, m.ReceiversTracked,
		m.QuickCacheHits, m.QuickCacheMisses,
		m.ReceiverQuarantines, m.DBReloads, m.DBReloadDuration,
		m.Messages,
	)
	return m
}

// Sample refreshes the gauges from current directory/receiver state; call
// this periodically (the same sweep that drives stale reaping).
func (m *Metrics) Sample(dir *Directory, receivers *ReceiverTable) {
	m.AircraftTracked.Set(float64(dir.Len()))
	m.ReceiversTracked.Set(float64(receivers.Len()))
}
