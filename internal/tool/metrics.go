// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for the call counter.
const (
	OutcomeSuccess   = "success"
	OutcomeToolError = "tool_error"
	OutcomeForbidden = "forbidden"
	OutcomeNotFound  = "not_found"
	OutcomeSchema    = "schema_mismatch"
	OutcomeTransport = "transport_error"
	OutcomeTimeout   = "timeout"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	Calls      *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Retries    *prometheus.CounterVec
	Reconnects *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daid_tool_calls_total",
				Help: "Total number of tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "daid_tool_call_duration_seconds",
				Help:    "Tool call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daid_tool_retries_total",
				Help: "Total number of retried tool dispatches by endpoint",
			},
			[]string{"endpoint"},
		),
		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daid_tool_reconnects_total",
				Help: "Total number of endpoint channel reconnects",
			},
			[]string{"endpoint"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Duration, m.Retries, m.Reconnects)
	}
	return m
}

func (m *Metrics) recordCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) recordRetry(endpoint string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(endpoint).Inc()
}
