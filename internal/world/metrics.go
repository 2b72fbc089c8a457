// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package world

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the store's Prometheus instruments. A nil *Metrics on the
// store disables recording.
type Metrics struct {
	Mutations        *prometheus.CounterVec
	VersionConflicts prometheus.Counter
	Reconciliations  prometheus.Counter
}

// NewMetrics creates and registers the world store metrics.
// Panics if registration fails (following prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daid_world_mutations_total",
				Help: "Total number of successful world mutations by operation",
			},
			[]string{"op"},
		),
		VersionConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "daid_world_version_conflicts_total",
				Help: "Total number of optimistic patches rejected for a stale version",
			},
		),
		Reconciliations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "daid_world_reconciliations_total",
				Help: "Total number of stale worlds force-completed at startup",
			},
		),
	}
	reg.MustRegister(m.Mutations, m.VersionConflicts, m.Reconciliations)
	return m
}
