// Package metrics exposes Prometheus instrumentation for the job engine.
//
// Collectors register against a private registry so that tests and embedded
// uses can create as many Collector instances as they like without tripping
// duplicate-registration panics on the global registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the engine's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	jobsCreated  prometheus.Counter
	jobsFinished *prometheus.CounterVec

	itemsCompleted prometheus.Counter
	itemsFailed    prometheus.Counter
	itemsSkipped   prometheus.Counter

	itemsInFlight prometheus.Gauge
	itemsPending  prometheus.Gauge

	renderDuration prometheus.Histogram
}

// NewCollector creates and registers the engine metric set.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docugen_jobs_created_total",
			Help: "Total number of generation jobs created",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docugen_jobs_finished_total",
			Help: "Total number of jobs reaching a terminal state, by state",
		}, []string{"state"}),
		itemsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docugen_items_completed_total",
			Help: "Total number of items rendered successfully",
		}),
		itemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docugen_items_failed_total",
			Help: "Total number of items whose render failed",
		}),
		itemsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docugen_items_skipped_total",
			Help: "Total number of items skipped due to cancellation",
		}),
		itemsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docugen_items_in_flight",
			Help: "Current number of items in the generating state",
		}),
		itemsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docugen_items_pending",
			Help: "Current number of pending items across live jobs",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docugen_render_duration_seconds",
			Help:    "Per-item render duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(
		c.jobsCreated,
		c.jobsFinished,
		c.itemsCompleted,
		c.itemsFailed,
		c.itemsSkipped,
		c.itemsInFlight,
		c.itemsPending,
		c.renderDuration,
	)

	return c
}

// RecordJobCreated counts a new job.
func (c *Collector) RecordJobCreated() {
	c.jobsCreated.Inc()
}

// RecordJobFinished counts a job reaching a terminal state.
func (c *Collector) RecordJobFinished(state string) {
	c.jobsFinished.WithLabelValues(state).Inc()
}

// RecordItemCompleted counts a successful render.
func (c *Collector) RecordItemCompleted() {
	c.itemsCompleted.Inc()
}

// RecordItemFailed counts a failed render.
func (c *Collector) RecordItemFailed() {
	c.itemsFailed.Inc()
}

// ObserveRenderDuration records one measured per-item render duration.
func (c *Collector) ObserveRenderDuration(seconds float64) {
	c.renderDuration.Observe(seconds)
}

// RecordItemSkipped counts a skipped item.
func (c *Collector) RecordItemSkipped() {
	c.itemsSkipped.Inc()
}

// UpdateQueueStats sets the instantaneous pending/in-flight gauges.
func (c *Collector) UpdateQueueStats(pending, inFlight int) {
	c.itemsPending.Set(float64(pending))
	c.itemsInFlight.Set(float64(inFlight))
}

// Handler returns an HTTP handler serving this collector's registry in the
// Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() prometheus.Gatherer {
	return c.registry
}
