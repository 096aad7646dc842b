package store

import (
	"iter"
	"slices"
	"sync"

	"github.com/ThatForkyDev/membase/index"
	"github.com/ThatForkyDev/membase/query"
)

// Synchronized guards another store with one mutex. Every call holds the
// lock for its full duration. Iterators only hold it while the snapshot is
// taken; callers iterating while others mutate must coordinate themselves.
//
// Removal listeners run after the lock is released, in registration order,
// on the goroutine that made the call.
type Synchronized[V any] struct {
	*locking[V]
}

// locking holds the delegation shared by the synchronized store variants.
// self is the outermost wrapper, handed out by Synchronized and Immutable.
type locking[V any] struct {
	mu    *sync.Mutex
	store Store[V]
	self  Store[V]
}

// NewSynchronized creates a synchronized memory store.
func NewSynchronized[V any](options ...Option[V]) (*Synchronized[V], error) {
	m, err := NewMemory(options...)
	if err != nil {
		return nil, err
	}
	return newSynchronized[V](m), nil
}

func newSynchronized[V any](s Store[V]) *Synchronized[V] {
	synced := &Synchronized[V]{locking: &locking[V]{mu: &sync.Mutex{}, store: s}}
	synced.self = synced
	return synced
}

func (s *locking[V]) Add(v V) (bool, error) {
	defer s.lockMutation()()
	return s.store.Add(v)
}

func (s *locking[V]) AddAll(values ...V) (bool, error) {
	defer s.lockMutation()()
	return s.store.AddAll(values...)
}

func (s *locking[V]) Remove(v V) (bool, error) {
	defer s.lockMutation()()
	return s.store.Remove(v)
}

func (s *locking[V]) RemoveQuery(q query.Query) ([]V, error) {
	defer s.lockMutation()()
	return s.store.RemoveQuery(q)
}

func (s *locking[V]) RemoveIf(pred func(V) bool) (bool, error) {
	defer s.lockMutation()()
	return s.store.RemoveIf(pred)
}

func (s *locking[V]) RetainIf(pred func(V) bool) (bool, error) {
	defer s.lockMutation()()
	return s.store.RetainIf(pred)
}

func (s *locking[V]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clear()
}

func (s *locking[V]) Contains(v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Contains(v)
}

func (s *locking[V]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Size()
}

func (s *locking[V]) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.IsEmpty()
}

func (s *locking[V]) Values() []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Values()
}

// All yields a snapshot taken under the lock.
func (s *locking[V]) All() iter.Seq[V] {
	return slices.Values(s.Values())
}

// Iterator takes its snapshot under the lock. The iterator itself,
// including Remove, is not guarded.
func (s *locking[V]) Iterator() *Iterator[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Iterator()
}

func (s *locking[V]) Get(q query.Query) []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(q)
}

func (s *locking[V]) GetLimit(q query.Query, limit int) []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetLimit(q, limit)
}

func (s *locking[V]) First(q query.Query) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.First(q)
}

func (s *locking[V]) CreateIndex(name string, b index.Builder[V]) (index.Index[V], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix, err := s.store.CreateIndex(name, b)
	return s.wrapIndex(ix), err
}

func (s *locking[V]) CreateAnonymousIndex(b index.Builder[V]) (index.Index[V], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix, err := s.store.CreateAnonymousIndex(b)
	return s.wrapIndex(ix), err
}

// Index returns the named index behind a decorator sharing this store's lock.
func (s *locking[V]) Index(name string) (index.Index[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix, ok := s.store.Index(name)
	if !ok {
		return nil, false
	}
	return s.wrapIndex(ix), true
}

func (s *locking[V]) Indexes() []index.Index[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	indexes := s.store.Indexes()
	for i, ix := range indexes {
		indexes[i] = s.wrapIndex(ix)
	}
	return indexes
}

func (s *locking[V]) RemoveIndex(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemoveIndex(name)
}

func (s *locking[V]) DropIndex(ix index.Index[V]) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DropIndex(unwrapIndex(ix))
}

func (s *locking[V]) RemoveAllIndexes() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemoveAllIndexes()
}

func (s *locking[V]) Reindex() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Reindex()
}

func (s *locking[V]) ReindexValue(v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ReindexValue(v)
}

func (s *locking[V]) ReindexValues(values ...V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ReindexValues(values...)
}

// Copy returns a synchronized copy with its own lock.
func (s *locking[V]) Copy() Store[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newSynchronized(s.store.Copy())
}

func (s *locking[V]) Immutable() Store[V] {
	return newImmutable(s.self)
}

// Synchronized returns the store itself.
func (s *locking[V]) Synchronized() (Store[V], error) {
	return s.self, nil
}

func (s *locking[V]) OnRemoval(cause RemovalCause, fn RemovalListener[V]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.OnRemoval(cause, fn)
}

func (s *locking[V]) Stats() *Statistics {
	return s.store.Stats()
}

func (s *locking[V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close()
}

// lockMutation takes the lock for a call that may remove members. Removal
// listeners are queued meanwhile; the returned func unlocks and then runs
// them, so a listener may call back into the store.
func (s *locking[V]) lockMutation() func() {
	s.mu.Lock()
	queue, ok := s.store.(notificationQueue[V])
	if !ok {
		return s.mu.Unlock
	}
	queue.holdNotifications()
	return func() {
		pending := queue.releaseNotifications()
		s.mu.Unlock()
		pending.dispatch()
	}
}

func (s *locking[V]) wrapIndex(ix index.Index[V]) index.Index[V] {
	if ix == nil {
		return nil
	}
	if _, wrapped := ix.(*synchronizedIndex[V]); wrapped {
		return ix
	}
	return &synchronizedIndex[V]{mu: s.mu, index: ix}
}

// synchronizedIndex serializes lookups on the owning store's lock.
type synchronizedIndex[V any] struct {
	mu    *sync.Mutex
	index index.Index[V]
}

func (ix *synchronizedIndex[V]) Name() string {
	return ix.index.Name()
}

func (ix *synchronizedIndex[V]) Get(key any) []V {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Get(key)
}

func (ix *synchronizedIndex[V]) First(key any) (V, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.First(key)
}

func (ix *synchronizedIndex[V]) String() string {
	return "synchronized(" + ix.index.Name() + ")"
}

// unwrapIndex strips view decorators so the index can be matched against
// the registered instance.
func unwrapIndex[V any](ix index.Index[V]) index.Index[V] {
	for {
		switch decorated := ix.(type) {
		case *synchronizedIndex[V]:
			ix = decorated.index
		case *immutableIndex[V]:
			ix = decorated.index
		default:
			return ix
		}
	}
}
