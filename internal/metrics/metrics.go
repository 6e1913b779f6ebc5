// Package metrics collects Prometheus counters for the job pipeline and
// exposes them through a handler the API mounts at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// stageDurationBuckets covers the spread between a sub-second extraction and a
// multi-minute render.
var stageDurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// Collector owns the pipeline metrics. All record methods are safe on a nil
// receiver so callers can run without metrics wired.
type Collector struct {
	registry *prometheus.Registry

	jobsSubmitted prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsCancelled prometheus.Counter
	jobsRetried   prometheus.Counter

	stageDuration *prometheus.HistogramVec

	jobsPending  prometheus.Gauge
	jobsInFlight prometheus.Gauge
}

// NewCollector builds a collector backed by its own registry, so tests and
// restarts never trip duplicate registration on the global one.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lectern_jobs_submitted_total",
			Help: "Total number of jobs accepted for processing",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lectern_jobs_completed_total",
			Help: "Total number of jobs that produced a training video",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lectern_jobs_failed_total",
			Help: "Total number of jobs that failed terminally",
		}),
		jobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lectern_jobs_cancelled_total",
			Help: "Total number of jobs stopped by user request",
		}),
		jobsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lectern_jobs_retried_total",
			Help: "Total number of stage retries scheduled after transient failures",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lectern_stage_duration_seconds",
			Help:    "Wall-clock duration of completed pipeline stages",
			Buckets: stageDurationBuckets,
		}, []string{"stage"}),
		jobsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lectern_jobs_pending",
			Help: "Current number of jobs waiting for a worker",
		}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lectern_jobs_in_flight",
			Help: "Current number of jobs in processing",
		}),
	}

	c.registry.MustRegister(
		c.jobsSubmitted,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobsCancelled,
		c.jobsRetried,
		c.stageDuration,
		c.jobsPending,
		c.jobsInFlight,
	)
	return c
}

// Handler serves the collector's registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordSubmitted counts a job accepted through the API or the inbox.
func (c *Collector) RecordSubmitted() {
	if c == nil {
		return
	}
	c.jobsSubmitted.Inc()
}

// RecordCompleted counts a job reaching the completed status.
func (c *Collector) RecordCompleted() {
	if c == nil {
		return
	}
	c.jobsCompleted.Inc()
}

// RecordFailed counts a terminal job failure.
func (c *Collector) RecordFailed() {
	if c == nil {
		return
	}
	c.jobsFailed.Inc()
}

// RecordCancelled counts a job stopped by user request.
func (c *Collector) RecordCancelled() {
	if c == nil {
		return
	}
	c.jobsCancelled.Inc()
}

// RecordRetryScheduled counts a stage retry placed back on the queue.
func (c *Collector) RecordRetryScheduled() {
	if c == nil {
		return
	}
	c.jobsRetried.Inc()
}

// ObserveStageDuration records the wall-clock seconds of one finished stage.
func (c *Collector) ObserveStageDuration(stage string, seconds float64) {
	if c == nil || stage == "" {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// SetQueueDepth updates the pending and in-flight gauges from queue stats.
func (c *Collector) SetQueueDepth(pending, inFlight int) {
	if c == nil {
		return
	}
	c.jobsPending.Set(float64(pending))
	c.jobsInFlight.Set(float64(inFlight))
}
