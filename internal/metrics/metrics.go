// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes pipeline and HTTP service counters in
// Prometheus format. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/paper-reader/pkg/types"
)

const namespace = "paper_reader"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	stageTotal      *prometheus.CounterVec
	articleDuration prometheus.Histogram
	rowsTotal       prometheus.Counter
	runsTotal       *prometheus.CounterVec
	runInFlight     prometheus.Gauge
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Stage results by stage and degradation reason (ok for real data).",
		},
		[]string{"stage", "reason"},
	)
	articleDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "article_duration_seconds",
			Help:      "Time to take one identifier through every stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)
	rowsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_total",
			Help:      "Rows appended to exports.",
		},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by status.",
		},
		[]string{"status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_in_flight",
			Help:      "1 while a run is active.",
		},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(stageTotal, articleDuration, rowsTotal, runsTotal, runInFlight, requestTotal, requestDuration)

	return &Metrics{
		registry:        registry,
		stageTotal:      stageTotal,
		articleDuration: articleDuration,
		rowsTotal:       rowsTotal,
		runsTotal:       runsTotal,
		runInFlight:     runInFlight,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOutcome counts every stage of one identifier's outcome.
func (m *Metrics) ObserveOutcome(o types.Outcome, duration time.Duration) {
	if m == nil {
		return
	}
	for stage, reason := range o.Stages() {
		m.stageTotal.WithLabelValues(stage, reason.String()).Inc()
	}
	m.rowsTotal.Add(float64(o.Records))
	m.articleDuration.Observe(duration.Seconds())
}

// StartRun marks a run active.
func (m *Metrics) StartRun() {
	if m == nil {
		return
	}
	m.runInFlight.Set(1)
}

// FinishRun marks a run complete with status.
func (m *Metrics) FinishRun(status types.RunStatus) {
	if m == nil {
		return
	}
	m.runInFlight.Set(0)
	m.runsTotal.WithLabelValues(string(status)).Inc()
}

// ObserveRequest records one HTTP request against its route pattern.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
