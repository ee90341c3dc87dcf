// Package metrics collects and exposes Prometheus metrics for the sync
// queue and drain passes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kimhsiao/fieldsync/internal/queue"
)

// Collector registers and updates all FieldSync metrics on its own registry
// so multiple instances (tests, embedded use) never collide.
type Collector struct {
	registry *prometheus.Registry

	opsEnqueued   prometheus.Counter
	opsDelivered  prometheus.Counter
	opsFailed     prometheus.Counter
	drainsTotal   prometheus.Counter
	drainDuration prometheus.Histogram
	queueDepth    prometheus.Gauge
}

// NewCollector creates and registers the metric set.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		opsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsync_ops_enqueued_total",
			Help: "Total number of operations enqueued while offline",
		}),
		opsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsync_ops_delivered_total",
			Help: "Total number of operations delivered to the remote CRM",
		}),
		opsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsync_ops_failed_total",
			Help: "Total number of delivery failures across drain passes",
		}),
		drainsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldsync_drains_total",
			Help: "Total number of completed drain passes",
		}),
		drainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldsync_drain_duration_seconds",
			Help:    "Drain pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldsync_queue_depth",
			Help: "Current number of queued operations",
		}),
	}

	c.registry.MustRegister(
		c.opsEnqueued,
		c.opsDelivered,
		c.opsFailed,
		c.drainsTotal,
		c.drainDuration,
		c.queueDepth,
	)
	return c
}

// RecordEnqueue records one enqueued operation.
func (c *Collector) RecordEnqueue() {
	c.opsEnqueued.Inc()
}

// RecordDrain records the outcome of one drain pass.
func (c *Collector) RecordDrain(report *queue.DrainReport) {
	c.drainsTotal.Inc()
	c.opsDelivered.Add(float64(report.Succeeded))
	c.opsFailed.Add(float64(report.Failed))
	c.drainDuration.Observe(report.Duration.Seconds())
	c.queueDepth.Set(float64(report.Remaining))
}

// SetQueueDepth updates the queue depth gauge.
func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// Handler returns the HTTP handler exposing this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
