// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "knowledge_weaver"

// Categorization outcomes
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeRejected = "rejected" // circuit open
	OutcomeSkipped  = "skipped"  // caller supplied categories
)

var (
	// HTTPRequestDuration tracks request latency by route and status
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// CategorizationTotal counts categorization attempts by source and outcome
	CategorizationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "categorization_total",
		Help:      "Categorization attempts by source and outcome",
	}, []string{"source", "outcome"})

	// GraphBuildDuration tracks how long graph builds take
	GraphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "build_duration_seconds",
		Help:      "Graph build duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~0.8s
	})

	// GraphElements reports the size of the most recent graph build
	GraphElements = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "elements",
		Help:      "Nodes and edges in the most recently built graph",
	}, []string{"kind"})

	// NotesTotal reports how many notes the store held at the last listing
	NotesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notes",
		Help:      "Notes in the store at the last listing",
	})
)
