package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ThatForkyDev/membase/metric"
)

// storeMetrics holds Prometheus metrics for store operations.
type storeMetrics struct {
	registry metric.MetricsRegistrar
	prefix   string

	adds             prometheus.Counter
	removals         prometheus.Counter
	expirations      prometheus.Counter
	queries          prometheus.Counter
	indexingFailures prometheus.Counter

	size prometheus.Gauge

	sweepDuration prometheus.Histogram
}

// newStoreMetrics creates and registers store metrics with the provided
// registry. On failure nothing this call registered stays registered.
func newStoreMetrics(registry metric.MetricsRegistrar, prefix string) (*storeMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	m := &storeMetrics{
		registry: registry,
		prefix:   prefix,
		adds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "adds_total",
			ConstLabels: labels,
			Help:        "Total number of values added under a new identity",
		}),
		removals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "removals_total",
			ConstLabels: labels,
			Help:        "Total number of explicit removals",
		}),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "expirations_total",
			ConstLabels: labels,
			Help:        "Total number of members dropped by expiration sweeps",
		}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "queries_total",
			ConstLabels: labels,
			Help:        "Total number of evaluated queries",
		}),
		indexingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "indexing_failures_total",
			ConstLabels: labels,
			Help:        "Total number of key mapper failures",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of members",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "sweep_duration_seconds",
			ConstLabels: labels,
			Help:        "Duration of expiration sweeps",
			Buckets:     prometheus.DefBuckets,
		}),
	}

	collectors := []struct {
		name string
		c    prometheus.Collector
	}{
		{"store_adds", m.adds},
		{"store_removals", m.removals},
		{"store_expirations", m.expirations},
		{"store_queries", m.queries},
		{"store_indexing_failures", m.indexingFailures},
		{"store_size", m.size},
		{"store_sweep_duration", m.sweepDuration},
	}
	for i, entry := range collectors {
		if err := registry.Register(prefix, entry.name, entry.c); err != nil {
			// The prefix may already belong to another store.
			for _, done := range collectors[:i] {
				registry.Unregister(prefix, done.name)
			}
			return nil, err
		}
	}

	return m, nil
}

func (m *storeMetrics) recordAdd() {
	m.adds.Inc()
}

func (m *storeMetrics) recordRemoval() {
	m.removals.Inc()
}

func (m *storeMetrics) recordExpiration() {
	m.expirations.Inc()
}

func (m *storeMetrics) recordQuery() {
	m.queries.Inc()
}

func (m *storeMetrics) recordIndexingFailures(n int) {
	if n > 0 {
		m.indexingFailures.Add(float64(n))
	}
}

func (m *storeMetrics) updateSize(size int) {
	m.size.Set(float64(size))
}

func (m *storeMetrics) observeSweep(d time.Duration) {
	m.sweepDuration.Observe(d.Seconds())
}

// unregister removes every metric registered under the prefix.
func (m *storeMetrics) unregister() {
	m.registry.UnregisterComponent(m.prefix)
}
