package store

import (
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/ThatForkyDev/membase/metric"
	"github.com/ThatForkyDev/membase/reference"
)

// Option configures a store using the functional options pattern.
type Option[V any] func(*storeOptions[V])

// storeOptions holds internal configuration for store instances.
// Stats are ALWAYS collected. Metrics are optional and enabled via WithMetrics().
type storeOptions[V any] struct {
	logger *slog.Logger

	// metricsReg is optional - if provided, store stats are also exposed as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string

	identity reference.IdentityProvider[V]

	// clock drives timed policies and the default sweep scheduler
	clock clock.Clock

	scheduler Scheduler
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return func(opts *storeOptions[V]) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics export for store statistics.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *storeOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithIdentity sets how values map to membership identities.
func WithIdentity[V any](identity reference.IdentityProvider[V]) Option[V] {
	return func(opts *storeOptions[V]) {
		if identity != nil {
			opts.identity = identity
		}
	}
}

// WithClock replaces the wall clock, typically with clock.NewMock() in tests.
func WithClock[V any](clk clock.Clock) Option[V] {
	return func(opts *storeOptions[V]) {
		if clk != nil {
			opts.clock = clk
		}
	}
}

// WithScheduler sets the scheduler that runs expiration sweeps. The store
// cancels its own tasks on Close but never closes the scheduler.
func WithScheduler[V any](scheduler Scheduler) Option[V] {
	return func(opts *storeOptions[V]) {
		opts.scheduler = scheduler
	}
}

// applyOptions applies functional options to create final store configuration.
func applyOptions[V any](options ...Option[V]) *storeOptions[V] {
	opts := &storeOptions[V]{
		logger:   slog.Default(),
		identity: reference.DefaultIdentity[V](),
		clock:    clock.New(),
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
