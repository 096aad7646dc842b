package store

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThatForkyDev/membase/errors"
)

func TestManualScheduler_Advance(t *testing.T) {
	s := NewManualScheduler()

	var order []string
	_, err := s.Schedule(time.Second, func() { order = append(order, "fast") })
	require.NoError(t, err)
	_, err = s.Schedule(3*time.Second, func() { order = append(order, "slow") })
	require.NoError(t, err)
	assert.Equal(t, 2, s.Pending())

	assert.Zero(t, s.Advance(999*time.Millisecond))
	assert.Equal(t, 1, s.Advance(time.Millisecond))
	assert.Equal(t, 3, s.Advance(2*time.Second))
	assert.Equal(t, []string{"fast", "fast", "fast", "slow"}, order)
}

func TestManualScheduler_Cancel(t *testing.T) {
	s := NewManualScheduler()

	var runs int
	cancel, err := s.Schedule(time.Second, func() { runs++ })
	require.NoError(t, err)

	s.Advance(time.Second)
	cancel()
	cancel()
	assert.Zero(t, s.Pending())
	assert.Zero(t, s.Advance(time.Minute))
	assert.Equal(t, 1, runs)
}

func TestManualScheduler_TaskCanSchedule(t *testing.T) {
	s := NewManualScheduler()

	var nested int
	_, err := s.Schedule(time.Second, func() {
		if nested == 0 {
			_, _ = s.Schedule(time.Second, func() { nested++ })
		}
		nested++
	})
	require.NoError(t, err)

	s.Advance(time.Second)
	assert.Equal(t, 2, s.Pending())
}

func TestManualScheduler_Close(t *testing.T) {
	s := NewManualScheduler()
	_, err := s.Schedule(time.Second, func() {})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Zero(t, s.Pending())

	_, err = s.Schedule(time.Second, func() {})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSchedulerClosed)
}

func TestScheduler_InvalidArguments(t *testing.T) {
	ticker := NewTickerScheduler(clock.NewMock(), nil)
	defer ticker.Close()

	schedulers := map[string]Scheduler{
		"manual": NewManualScheduler(),
		"ticker": ticker,
	}

	for name, s := range schedulers {
		t.Run(name, func(t *testing.T) {
			_, err := s.Schedule(0, func() {})
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidData)
			assert.True(t, errors.IsInvalid(err))

			_, err = s.Schedule(-time.Second, func() {})
			assert.ErrorIs(t, err, errors.ErrInvalidData)

			_, err = s.Schedule(time.Second, nil)
			assert.ErrorIs(t, err, errors.ErrInvalidData)
		})
	}
}

func TestTickerScheduler_RunsOnTick(t *testing.T) {
	mock := clock.NewMock()
	s := NewTickerScheduler(mock, nil)
	defer s.Close()

	var runs atomic.Int32
	cancel, err := s.Schedule(time.Second, func() { runs.Add(1) })
	require.NoError(t, err)

	mock.Add(time.Second)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	mock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestTickerScheduler_BusyWorkerKeepsOneTickWaiting(t *testing.T) {
	mock := clock.NewMock()
	s := NewTickerScheduler(mock, nil)
	defer s.Close()

	started := make(chan struct{}, 8)
	release := make(chan struct{})
	var runs atomic.Int32
	_, err := s.Schedule(time.Second, func() {
		runs.Add(1)
		started <- struct{}{}
		<-release
	})
	require.NoError(t, err)

	mock.Add(time.Second)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first tick did not run")
	}

	// The worker is busy: one tick waits for it, one sits in the ticker and
	// the rest are dropped.
	for i := 0; i < 4; i++ {
		mock.Add(time.Second)
	}
	close(release)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond,
		"a tick arriving while the worker is busy still runs")
	assert.Never(t, func() bool { return runs.Load() > 3 }, 100*time.Millisecond, 5*time.Millisecond,
		"ticks beyond the waiting and buffered ones are dropped")
}

func TestTickerScheduler_RecoversPanics(t *testing.T) {
	mock := clock.NewMock()
	s := NewTickerScheduler(mock, nil)
	defer s.Close()

	var runs atomic.Int32
	_, err := s.Schedule(time.Second, func() {
		runs.Add(1)
		panic("boom")
	})
	require.NoError(t, err)

	mock.Add(time.Second)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	mock.Add(time.Second)
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond,
		"the worker survives a panicking task")
}

func TestTickerScheduler_Close(t *testing.T) {
	s := NewTickerScheduler(nil, nil)

	_, err := s.Schedule(time.Hour, func() {})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err = s.Schedule(time.Hour, func() {})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSchedulerClosed)
}
