package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ThatForkyDev/membase/errors"
)

// Scheduler runs tasks at a fixed rate.
type Scheduler interface {
	// Schedule runs task every interval until cancel is called or the
	// scheduler is closed.
	Schedule(interval time.Duration, task func()) (cancel func(), err error)
	Close() error
}

func validateSchedule(component string, interval time.Duration, task func()) error {
	if interval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, component, "Schedule",
			"schedule task with non-positive interval "+interval.String())
	}
	if task == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, component, "Schedule", "schedule nil task")
	}
	return nil
}

// TickerScheduler runs every scheduled task on a single worker goroutine,
// so tasks never overlap. While the worker is busy, each task keeps at most
// one run waiting for it plus one tick buffered by its ticker; later ticks
// are dropped until the worker catches up. Panics in tasks are recovered
// and logged.
type TickerScheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	work chan func()

	mu     sync.Mutex
	closed bool
	ticks  sync.WaitGroup

	// Background worker coordination
	shutdown chan struct{}
	done     chan struct{}
}

// NewTickerScheduler starts a scheduler driven by clk. A nil clock selects
// the wall clock; a nil logger selects slog.Default().
func NewTickerScheduler(clk clock.Clock, logger *slog.Logger) *TickerScheduler {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &TickerScheduler{
		clock:    clk,
		logger:   logger,
		work:     make(chan func()),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	go s.run()

	return s
}

// Schedule implements Scheduler.
func (s *TickerScheduler) Schedule(interval time.Duration, task func()) (func(), error) {
	if err := validateSchedule("TickerScheduler", interval, task); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.WrapInvalid(errors.ErrSchedulerClosed, "TickerScheduler", "Schedule", "schedule task")
	}

	ticker := s.clock.Ticker(interval)
	stop := make(chan struct{})
	var once sync.Once

	s.ticks.Add(1)
	go s.tick(ticker, stop, task)

	s.logger.Debug("task scheduled", "interval", interval)

	return func() { once.Do(func() { close(stop) }) }, nil
}

// Close stops all tasks and waits for the worker to exit.
func (s *TickerScheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.shutdown)
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		s.ticks.Wait()
		<-s.done
		close(stopped)
	}()

	// Wait for background goroutines to finish with timeout
	select {
	case <-stopped:
		return nil
	case <-time.After(5 * time.Second):
		return errors.WrapTransient(errors.ErrShutdownTimeout, "TickerScheduler", "Close", "wait for worker")
	}
}

func (s *TickerScheduler) tick(ticker *clock.Ticker, stop <-chan struct{}, task func()) {
	defer s.ticks.Done()
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-stop:
			return
		case <-ticker.C:
			select {
			case s.work <- task:
			case <-s.shutdown:
				return
			case <-stop:
				return
			}
		}
	}
}

func (s *TickerScheduler) run() {
	defer close(s.done)

	for {
		select {
		case <-s.shutdown:
			return
		case task := <-s.work:
			s.execute(task)
		}
	}
}

func (s *TickerScheduler) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "panic", r)
		}
	}()
	task()
}

// ManualScheduler runs tasks only when Advance is called, on the calling
// goroutine. It suits single-goroutine stores and deterministic tests.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	tasks  []*manualTask
	closed bool
}

type manualTask struct {
	interval time.Duration
	next     time.Duration
	run      func()
}

// NewManualScheduler creates a scheduler whose time starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule implements Scheduler. The first run is due one interval from now.
func (s *ManualScheduler) Schedule(interval time.Duration, task func()) (func(), error) {
	if err := validateSchedule("ManualScheduler", interval, task); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.WrapInvalid(errors.ErrSchedulerClosed, "ManualScheduler", "Schedule", "schedule task")
	}

	t := &manualTask{interval: interval, next: s.now + interval, run: task}
	s.tasks = append(s.tasks, t)

	return func() { s.cancel(t) }, nil
}

// Advance moves time forward by d and runs every task that falls due, in
// due order, once per elapsed interval. It returns the number of runs.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now + d
	runs := 0
	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		s.now = t.next
		t.next += t.interval

		s.mu.Unlock()
		t.run()
		runs++
		s.mu.Lock()
	}
	if target > s.now {
		s.now = target
	}
	s.mu.Unlock()
	return runs
}

// Pending returns the number of scheduled tasks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close drops every task.
func (s *ManualScheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tasks = nil
	return nil
}

func (s *ManualScheduler) nextDue(target time.Duration) *manualTask {
	var due *manualTask
	for _, t := range s.tasks {
		if t.next > target {
			continue
		}
		if due == nil || t.next < due.next {
			due = t
		}
	}
	return due
}

func (s *ManualScheduler) cancel(t *manualTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.tasks {
		if candidate == t {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}
