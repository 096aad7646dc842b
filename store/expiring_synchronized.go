package store

import (
	stderrors "errors"
	"sync"
)

// ExpiringSynchronized is an expiring store guarded by one mutex. Its
// sweeps run in the background and hold the same mutex for the whole
// sweep, so they never interleave with other calls. EXPIRED listeners run
// on the scheduler worker once the sweep has released the mutex.
//
// Without WithScheduler the store starts and owns a TickerScheduler driven
// by the configured clock, and closes it on Close.
type ExpiringSynchronized[V any] struct {
	*locking[V]

	expiring      *Expiring[V]
	scheduler     Scheduler
	ownsScheduler bool
}

// NewExpiringSynchronized creates an empty synchronized expiring store.
func NewExpiringSynchronized[V any](options ...Option[V]) (*ExpiringSynchronized[V], error) {
	opts := applyOptions(options...)
	m, err := newMemory(opts)
	if err != nil {
		return nil, err
	}

	scheduler, owns := opts.scheduler, false
	if scheduler == nil {
		scheduler, owns = NewTickerScheduler(opts.clock, opts.logger), true
	}

	mu := &sync.Mutex{}
	return newExpiringSynchronized(newExpiring(m, scheduler, mu), mu, scheduler, owns), nil
}

func newExpiringSynchronized[V any](
	e *Expiring[V], mu *sync.Mutex, scheduler Scheduler, owns bool,
) *ExpiringSynchronized[V] {
	s := &ExpiringSynchronized[V]{
		locking:       &locking[V]{mu: mu, store: e},
		expiring:      e,
		scheduler:     scheduler,
		ownsScheduler: owns,
	}
	s.self = s
	return s
}

func (s *ExpiringSynchronized[V]) AddPolicy(p Policy[V]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiring.AddPolicy(p)
}

func (s *ExpiringSynchronized[V]) Policies() []Policy[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiring.Policies()
}

func (s *ExpiringSynchronized[V]) Invalidate() int {
	defer s.lockMutation()()
	return s.expiring.Invalidate()
}

func (s *ExpiringSynchronized[V]) CheckExpiration(v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiring.CheckExpiration(v)
}

func (s *ExpiringSynchronized[V]) InvalidateValue(v V) bool {
	defer s.lockMutation()()
	return s.expiring.InvalidateValue(v)
}

// Copy returns an independent store with its own lock. A copy of a store
// that owns its scheduler gets a scheduler of its own.
func (s *ExpiringSynchronized[V]) Copy() Store[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduler := s.scheduler
	if s.ownsScheduler {
		scheduler = NewTickerScheduler(s.expiring.opts.clock, s.expiring.logger)
	}

	mu := &sync.Mutex{}
	return newExpiringSynchronized(s.expiring.copyExpiring(scheduler, mu), mu, scheduler, s.ownsScheduler)
}

// Close cancels the sweeps and, when owned, stops the scheduler. The
// scheduler is closed outside the lock so an in-flight sweep can finish.
func (s *ExpiringSynchronized[V]) Close() error {
	s.mu.Lock()
	err := s.expiring.Close()
	s.mu.Unlock()

	if s.ownsScheduler {
		err = stderrors.Join(err, s.scheduler.Close())
	}
	return err
}
