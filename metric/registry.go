package metric

import (
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ThatForkyDev/membase/errors"
)

// Namespace prefixes every metric membase registers.
const Namespace = "membase"

// MetricsRegistrar is the part of the registry a store needs to export and
// withdraw its collectors.
type MetricsRegistrar interface {
	Register(component, metricName string, c prometheus.Collector) error
	Unregister(component, metricName string) bool
	UnregisterComponent(component string) int
}

// MetricsRegistry tracks collectors per component on top of a private
// Prometheus registry.
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry

	mu         sync.RWMutex
	components map[string]map[string]prometheus.Collector
}

// NewMetricsRegistry creates a registry preloaded with Go runtime and process collectors.
func NewMetricsRegistry() *MetricsRegistry {
	registry := &MetricsRegistry{
		prometheusRegistry: prometheus.NewRegistry(),
		components:         make(map[string]map[string]prometheus.Collector),
	}

	registry.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// RegisterCounter registers a counter for component.
func (r *MetricsRegistry) RegisterCounter(component, metricName string, counter prometheus.Counter) error {
	return r.Register(component, metricName, counter)
}

// RegisterGauge registers a gauge for component.
func (r *MetricsRegistry) RegisterGauge(component, metricName string, gauge prometheus.Gauge) error {
	return r.Register(component, metricName, gauge)
}

// RegisterHistogram registers a histogram for component.
func (r *MetricsRegistry) RegisterHistogram(component, metricName string, histogram prometheus.Histogram) error {
	return r.Register(component, metricName, histogram)
}

// Register adds c under component/metricName. A name already taken by the
// component, or a collector Prometheus rejects as a duplicate, is an invalid
// registration.
func (r *MetricsRegistry) Register(component, metricName string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.components[component]
	if _, exists := owned[metricName]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for component %s", metricName, component),
			"MetricsRegistry", "Register", "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(c); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapInvalid(err, "MetricsRegistry", "Register",
				fmt.Sprintf("prometheus conflict for metric %s", metricName))
		}
		return errors.WrapFatal(err, "MetricsRegistry", "Register",
			fmt.Sprintf("register metric %s", metricName))
	}

	if owned == nil {
		owned = make(map[string]prometheus.Collector)
		r.components[component] = owned
	}
	owned[metricName] = c
	return nil
}

// Unregister removes one metric of component.
func (r *MetricsRegistry) Unregister(component, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.components[component]
	collector, exists := owned[metricName]
	if !exists || !r.prometheusRegistry.Unregister(collector) {
		return false
	}

	delete(owned, metricName)
	if len(owned) == 0 {
		delete(r.components, component)
	}
	return true
}

// UnregisterComponent removes every metric registered under component and
// returns how many were removed.
func (r *MetricsRegistry) UnregisterComponent(component string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.components[component]
	removed := 0
	for name, collector := range owned {
		if r.prometheusRegistry.Unregister(collector) {
			delete(owned, name)
			removed++
		}
	}
	if len(owned) == 0 {
		delete(r.components, component)
	}
	return removed
}

// Components lists the components that currently own metrics, sorted.
func (r *MetricsRegistry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
