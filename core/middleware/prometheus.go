package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector is a MetricsCollector backed by Prometheus counters
// and a processing-duration histogram, labeled by event type.
type PrometheusCollector struct {
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the eventstream metrics on reg
// (prometheus.DefaultRegisterer when nil) and returns the collector.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventstream",
			Name:      "events_processed_total",
			Help:      "Events handled, by event type.",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventstream",
			Name:      "events_failed_total",
			Help:      "Handler failures, by event type.",
		}, []string{"event_type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventstream",
			Name:      "event_processing_seconds",
			Help:      "Handler execution time, by event type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	reg.MustRegister(c.processed, c.failed, c.duration)
	return c
}

// EventProcessed implements MetricsCollector.
func (c *PrometheusCollector) EventProcessed(eventType string, duration time.Duration, err error) {
	c.duration.WithLabelValues(eventType).Observe(duration.Seconds())
	if err != nil {
		c.failed.WithLabelValues(eventType).Inc()
		return
	}
	c.processed.WithLabelValues(eventType).Inc()
}
