// Package metrics exposes pipeline counters on a private Prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trendradar"

// Metrics groups every collector the pipeline updates.
type Metrics struct {
	registry *prometheus.Registry

	taskRuns      *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	itemsIngested prometheus.Counter
	streamItems   prometheus.Counter
	flaggedItems  prometheus.Counter
	batches       *prometheus.CounterVec
}

// New registers the collectors plus Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		taskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Task executions by task and outcome.",
		}, []string{"task", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of task executions.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"task"}),
		itemsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hotlist_items_ingested_total",
			Help:      "Raw hotlist items resolved into the identity index.",
		}),
		streamItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_items_buffered_total",
			Help:      "Stream items appended to the buffer.",
		}),
		flaggedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_flagged_total",
			Help:      "Items permanently excluded after a content-policy rejection.",
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_batches_total",
			Help:      "Provider calls by outcome (ok, split, flagged, degraded).",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.taskRuns,
		m.taskDuration,
		m.itemsIngested,
		m.streamItems,
		m.flaggedItems,
		m.batches,
	)
	return m
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one finished task execution.
func (m *Metrics) ObserveRun(task, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.taskRuns.WithLabelValues(task, status).Inc()
	m.taskDuration.WithLabelValues(task).Observe(took.Seconds())
}

// AddIngested counts raw hotlist items.
func (m *Metrics) AddIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsIngested.Add(float64(n))
}

// AddStream counts buffered stream items.
func (m *Metrics) AddStream(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.streamItems.Add(float64(n))
}

// IncFlagged counts an item excluded for content policy.
func (m *Metrics) IncFlagged() {
	if m == nil {
		return
	}
	m.flaggedItems.Inc()
}

// IncBatch counts one provider call outcome.
func (m *Metrics) IncBatch(outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
}
