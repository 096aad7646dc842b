package store

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/metric"
	"github.com/ThatForkyDev/membase/query"
)

// findMetric returns the gathered sample of name labelled with component.
func findMetric(t *testing.T, registry *metric.MetricsRegistry, name, component string) *dto.Metric {
	t.Helper()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "component" && label.GetValue() == component {
					return m
				}
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, registry *metric.MetricsRegistry, name, component string) float64 {
	t.Helper()
	m := findMetric(t, registry, name, component)
	require.NotNil(t, m, "metric %s{component=%q} not gathered", name, component)
	return m.GetCounter().GetValue()
}

func hasMetric(t *testing.T, registry *metric.MetricsRegistry, name string) bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return true
		}
	}
	return false
}

func TestStoreMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	mock := clock.NewMock()
	sched := NewManualScheduler()

	s, err := NewExpiring(
		WithMetrics[*person](registry, "people"),
		WithClock[*person](mock),
		WithScheduler[*person](sched),
	)
	require.NoError(t, err)
	defer s.Close()

	withPeopleIndexes(t, s)
	require.NoError(t, s.AddPolicy(NewTimedPolicy[*person](time.Second, false, mock)))

	a, b, c := &person{First: "A"}, &person{First: "B"}, &person{First: "C"}
	_, err = s.AddAll(a, b, c)
	require.NoError(t, err)
	_, err = s.Add(a)
	require.NoError(t, err)

	_, err = s.Remove(b)
	require.NoError(t, err)
	_ = s.Get(query.Where("first", "A"))
	_, _ = s.First(query.Where("first", "C"))

	assert.Equal(t, float64(3), counterValue(t, registry, "membase_store_adds_total", "people"))
	assert.Equal(t, float64(1), counterValue(t, registry, "membase_store_removals_total", "people"))
	assert.Equal(t, float64(2), counterValue(t, registry, "membase_store_queries_total", "people"))

	size := findMetric(t, registry, "membase_store_size", "people")
	require.NotNil(t, size)
	assert.Equal(t, float64(2), size.GetGauge().GetValue())

	mock.Add(time.Second)
	sched.Advance(time.Second)

	assert.Equal(t, float64(2), counterValue(t, registry, "membase_store_expirations_total", "people"))
	assert.Equal(t, float64(0), findMetric(t, registry, "membase_store_size", "people").GetGauge().GetValue())

	sweeps := findMetric(t, registry, "membase_store_sweep_duration_seconds", "people")
	require.NotNil(t, sweeps)
	assert.Equal(t, uint64(1), sweeps.GetHistogram().GetSampleCount())
}

func TestStoreMetrics_IndexingFailures(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	s, err := NewMemory(WithMetrics[*person](registry, "people"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateIndex("broken", failingIndex())
	require.NoError(t, err)

	_, err = s.AddAll(&person{First: "A"}, &person{First: "B"})
	require.Error(t, err)
	assert.Equal(t, float64(2), counterValue(t, registry, "membase_store_indexing_failures_total", "people"))
}

func TestStoreMetrics_DuplicatePrefix(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	first, err := NewMemory(WithMetrics[*person](registry, "people"))
	require.NoError(t, err)
	defer first.Close()

	second, err := NewMemory(WithMetrics[*person](registry, "people"))
	require.Error(t, err)
	assert.Nil(t, second)
	assert.True(t, errors.IsTransient(err))

	_, err = first.Add(&person{First: "A"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), counterValue(t, registry, "membase_store_adds_total", "people"),
		"the failed store leaves the first store's metrics in place")
}

func TestStoreMetrics_SeparatePrefixes(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	users, err := NewMemory(WithMetrics[*person](registry, "users"))
	require.NoError(t, err)
	defer users.Close()
	admins, err := NewSynchronized(WithMetrics[*person](registry, "admins"))
	require.NoError(t, err)
	defer admins.Close()

	_, err = users.AddAll(&person{First: "A"}, &person{First: "B"})
	require.NoError(t, err)
	_, err = admins.Add(&person{First: "C"})
	require.NoError(t, err)

	assert.Equal(t, float64(2), counterValue(t, registry, "membase_store_adds_total", "users"))
	assert.Equal(t, float64(1), counterValue(t, registry, "membase_store_adds_total", "admins"))
}

func TestStoreMetrics_CopyIsNotExported(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	s, err := NewMemory(WithMetrics[*person](registry, "people"))
	require.NoError(t, err)
	defer s.Close()

	c := s.Copy()
	_, err = c.Add(&person{First: "A"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.Equal(t, float64(0), counterValue(t, registry, "membase_store_adds_total", "people"))
	assert.Equal(t, int64(1), c.Stats().Adds())
}

func TestStoreMetrics_SweepDurationUsesClock(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	mock := clock.NewMock()

	s, err := NewExpiring(
		WithMetrics[*person](registry, "people"),
		WithClock[*person](mock),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddPolicy(NewTimedPolicy[*person](time.Second, false, mock)))
	// Each expiration takes one mocked second.
	s.OnRemoval(CauseExpired, func(*person) { mock.Add(time.Second) })

	_, err = s.AddAll(&person{First: "A"}, &person{First: "B"})
	require.NoError(t, err)
	mock.Add(time.Second)

	assert.Equal(t, 2, s.Invalidate())

	sweeps := findMetric(t, registry, "membase_store_sweep_duration_seconds", "people")
	require.NotNil(t, sweeps)
	assert.Equal(t, uint64(1), sweeps.GetHistogram().GetSampleCount())
	assert.Equal(t, float64(2), sweeps.GetHistogram().GetSampleSum())
}
