// Package metric provides a Prometheus-backed metrics registry and an HTTP
// server that exposes it.
//
// Collectors are grouped by component name so several stores in one process
// can export side by side and be withdrawn independently:
//
//	registry := metric.NewMetricsRegistry()
//	s, err := store.NewMemory[User](store.WithMetrics[User](registry, "users"))
//
//	server := metric.NewServer(":9090", "/metrics", registry)
//	if err := server.Listen(); err != nil {
//		return err
//	}
//	go func() { _ = server.Serve() }()
//	defer server.Stop()
//
// A component registering the same metric name twice gets an invalid
// classified error, as does a collector Prometheus already knows from another
// component.
//
// Every metric uses the Namespace constant ("membase").
package metric
