package store

import (
	"slices"
	"sync"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/reference"
)

// ExpiringStore is a store whose members are dropped once every registered
// policy considers them expired.
type ExpiringStore[V any] interface {
	Store[V]

	// AddPolicy registers p. Periodic policies also schedule a sweep at
	// their interval.
	AddPolicy(p Policy[V]) error
	Policies() []Policy[V]
	// Invalidate drops every expired member, notifies EXPIRED listeners and
	// returns how many were dropped.
	Invalidate() int
}

// Expiring is a memory store with expiration policies.
//
// Like Memory it is meant for a single goroutine, and Synchronized() fails
// with ErrSynchronizationUnsupported; use ExpiringSynchronized for shared
// access. Sweeps run only through the scheduler given with WithScheduler,
// which for this type should run tasks on the owning goroutine (see
// ManualScheduler), or through explicit Invalidate calls.
//
// Re-adding an existing member notifies REMOVED listeners with the new
// value.
type Expiring[V any] struct {
	*Memory[V]

	policies []Policy[V]
	// data[i] holds policies[i]'s state per member.
	data []map[*reference.Reference[V]]ExpirationData

	scheduler Scheduler
	cancels   []func()

	// sweepLock is held by scheduled sweeps when set.
	sweepLock sync.Locker
}

var (
	_ ExpiringStore[any] = (*Expiring[any])(nil)
	_ ExpiringStore[any] = (*ExpiringSynchronized[any])(nil)
)

// NewExpiring creates an empty expiring store.
func NewExpiring[V any](options ...Option[V]) (*Expiring[V], error) {
	opts := applyOptions(options...)
	m, err := newMemory(opts)
	if err != nil {
		return nil, err
	}
	return newExpiring(m, opts.scheduler, nil), nil
}

func newExpiring[V any](m *Memory[V], scheduler Scheduler, sweepLock sync.Locker) *Expiring[V] {
	e := &Expiring[V]{
		Memory:    m,
		scheduler: scheduler,
		sweepLock: sweepLock,
	}
	m.hooks = hooks[V]{
		added:    e.policyAdded,
		removed:  e.policyRemoved,
		accessed: e.policyAccessed,
		cleared:  e.policyCleared,
	}
	return e
}

// AddPolicy registers p and creates its state for every current member.
func (e *Expiring[V]) AddPolicy(p Policy[V]) error {
	if p == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "ExpiringStore", "AddPolicy", "add nil policy")
	}

	if err := e.schedule(p); err != nil {
		return err
	}

	data := make(map[*reference.Reference[V]]ExpirationData)
	for _, ref := range e.refs.References() {
		if d := p.NewData(ref.Get()); d != nil {
			data[ref] = d
		}
	}
	e.policies = append(e.policies, p)
	e.data = append(e.data, data)

	e.logger.Debug("expiration policy added", "policy", p.Key(), "members", len(data))
	return nil
}

// Policies returns the registered policies in registration order.
func (e *Expiring[V]) Policies() []Policy[V] {
	return slices.Clone(e.policies)
}

func (e *Expiring[V]) Invalidate() int {
	start := e.opts.clock.Now()

	members := e.refs.References()
	var expired []*reference.Reference[V]
	for _, ref := range members {
		if e.expired(ref) {
			expired = append(expired, ref)
		}
	}

	dropped := 0
	for _, ref := range expired {
		if e.refs.RemoveReference(ref) {
			e.detach(ref, CauseExpired)
			dropped++
		}
	}

	if e.metrics != nil {
		e.metrics.observeSweep(e.opts.clock.Since(start))
	}
	e.logger.Debug("expiration sweep", "members", len(members), "expired", dropped)

	return dropped
}

// CheckExpiration reports whether v's member would be dropped by a sweep
// now. Non-members and stores without policies never expire.
func (e *Expiring[V]) CheckExpiration(v V) bool {
	ref, ok := e.refs.Find(v)
	if !ok {
		return false
	}
	return e.expired(ref)
}

// InvalidateValue drops v's member as expired regardless of policy.
func (e *Expiring[V]) InvalidateValue(v V) bool {
	ref, ok := e.refs.Remove(v)
	if !ok {
		return false
	}
	e.detach(ref, CauseExpired)
	return true
}

// Copy returns an independent expiring store with cloned policy state.
// Periodic policies are scheduled again for the copy; Close the copy to
// cancel them.
func (e *Expiring[V]) Copy() Store[V] {
	return e.copyExpiring(e.scheduler, nil)
}

func (e *Expiring[V]) Immutable() Store[V] {
	return newImmutable[V](e)
}

// Synchronized always fails. Shared access needs ExpiringSynchronized,
// whose sweeps hold the store lock.
func (e *Expiring[V]) Synchronized() (Store[V], error) {
	return nil, errors.WrapFatal(errors.ErrSynchronizationUnsupported, "ExpiringStore", "Synchronized",
		"create synchronized view")
}

// Close cancels the store's sweeps. The scheduler itself stays open.
func (e *Expiring[V]) Close() error {
	for _, cancel := range e.cancels {
		cancel()
	}
	e.cancels = nil
	return e.Memory.Close()
}

func (e *Expiring[V]) copyExpiring(scheduler Scheduler, sweepLock sync.Locker) *Expiring[V] {
	c := newExpiring(e.copyMemory(), scheduler, sweepLock)
	c.data = make([]map[*reference.Reference[V]]ExpirationData, len(e.data))
	for i, data := range e.data {
		cloned := make(map[*reference.Reference[V]]ExpirationData, len(data))
		for ref, d := range data {
			cloned[ref] = d.Clone()
		}
		c.data[i] = cloned
	}
	c.policies = slices.Clone(e.policies)

	for _, p := range c.policies {
		if err := c.schedule(p); err != nil {
			c.logger.Warn("copy could not schedule sweep", "policy", p.Key(), "error", err)
		}
	}
	return c
}

func (e *Expiring[V]) schedule(p Policy[V]) error {
	periodic, ok := p.(Periodic)
	if !ok || periodic.Interval() <= 0 {
		return nil
	}

	interval := periodic.Interval()
	if e.scheduler == nil {
		e.logger.Debug("no scheduler, sweeps run on Invalidate", "policy", p.Key(), "interval", interval)
		return nil
	}

	cancel, err := e.scheduler.Schedule(interval, e.sweep)
	if err != nil {
		return errors.Wrap(err, "ExpiringStore", "AddPolicy", "schedule sweep")
	}
	e.cancels = append(e.cancels, cancel)
	return nil
}

// sweep runs a scheduled Invalidate. With a sweep lock, listeners are
// notified after the lock is released.
func (e *Expiring[V]) sweep() {
	if e.sweepLock == nil {
		e.Invalidate()
		return
	}

	var pending pendingNotices[V]
	func() {
		e.sweepLock.Lock()
		defer e.sweepLock.Unlock()
		e.holdNotifications()
		defer func() { pending = e.releaseNotifications() }()
		e.Invalidate()
	}()
	pending.dispatch()
}

// expired requires every policy to agree.
func (e *Expiring[V]) expired(ref *reference.Reference[V]) bool {
	if len(e.policies) == 0 {
		return false
	}
	v := ref.Get()
	for i, p := range e.policies {
		if !p.Expired(v, e.data[i][ref]) {
			return false
		}
	}
	return true
}

func (e *Expiring[V]) policyAdded(ref *reference.Reference[V], v V, created bool) {
	if !created {
		e.listeners.notify(CauseRemoved, v)
		return
	}
	for i, p := range e.policies {
		if d := p.NewData(ref.Get()); d != nil {
			e.data[i][ref] = d
		}
	}
}

func (e *Expiring[V]) policyRemoved(ref *reference.Reference[V]) {
	for _, data := range e.data {
		delete(data, ref)
	}
}

// policyAccessed creates missing state for non-nullable policies before
// passing the access on.
func (e *Expiring[V]) policyAccessed(ref *reference.Reference[V]) {
	v := ref.Get()
	for i, p := range e.policies {
		d, ok := e.data[i][ref]
		if !ok && !p.Nullable() {
			d = p.NewData(v)
			if d == nil {
				continue
			}
			e.data[i][ref] = d
		}
		p.OnAccess(v, d)
	}
}

func (e *Expiring[V]) policyCleared() {
	for _, data := range e.data {
		clear(data)
	}
}
