// Package metrics exposes valuation counters and latencies to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records valuations on its own registry.
type Collector struct {
	registry   *prometheus.Registry
	valuations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	batchSize  prometheus.Histogram
}

// New registers the valuation collectors on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		valuations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_valuations_total",
				Help: "Total number of valuations by instrument and engine",
			},
			[]string{"instrument", "engine"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_valuation_failures_total",
				Help: "Total number of failed valuations by instrument and engine",
			},
			[]string{"instrument", "engine"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lattice_valuation_duration_seconds",
				Help:    "Duration of valuations",
				Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
			},
			[]string{"instrument", "engine"},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lattice_batch_size",
				Help:    "Number of requests per batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
	c.registry.MustRegister(c.valuations, c.failures, c.duration, c.batchSize)
	return c
}

// ObserveValuation implements pricing.Observer.
func (c *Collector) ObserveValuation(instrument, engine string, seconds float64, err error) {
	c.valuations.WithLabelValues(instrument, engine).Inc()
	if err != nil {
		c.failures.WithLabelValues(instrument, engine).Inc()
	}
	c.duration.WithLabelValues(instrument, engine).Observe(seconds)
}

// ObserveBatch implements pricing.Observer.
func (c *Collector) ObserveBatch(size int) {
	c.batchSize.Observe(float64(size))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
