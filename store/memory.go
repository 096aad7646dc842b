package store

import (
	stderrors "errors"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/index"
	"github.com/ThatForkyDev/membase/query"
	"github.com/ThatForkyDev/membase/reference"
)

// hooks let store variants react to membership changes made by Memory.
type hooks[V any] struct {
	added    func(ref *reference.Reference[V], v V, created bool)
	removed  func(ref *reference.Reference[V])
	accessed func(ref *reference.Reference[V])
	cleared  func()
}

// Memory is the base store. It is not safe for concurrent use; wrap it with
// Synchronized() when several goroutines share it.
type Memory[V any] struct {
	refs      *reference.Manager[V]
	indexes   *index.Manager[V]
	listeners *listeners[V]
	stats     *Statistics   // ALWAYS initialized
	metrics   *storeMetrics // Optional, if metrics enabled
	logger    *slog.Logger
	opts      *storeOptions[V]
	hooks     hooks[V]
}

// NewMemory creates an empty store.
// Stats are always enabled. Use WithMetrics() to also export them as Prometheus metrics.
func NewMemory[V any](options ...Option[V]) (*Memory[V], error) {
	return newMemory(applyOptions(options...))
}

func newMemory[V any](opts *storeOptions[V]) (*Memory[V], error) {
	var metrics *storeMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newStoreMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "MemoryStore", "newMemory", "metrics registration")
		}
	}

	return &Memory[V]{
		refs:      reference.NewManager(opts.identity),
		indexes:   index.NewManager[V](opts.logger),
		listeners: newListeners[V](),
		stats:     newStatistics(opts.clock),
		metrics:   metrics,
		logger:    opts.logger,
		opts:      opts,
	}, nil
}

// Add inserts v and reindexes it.
func (m *Memory[V]) Add(v V) (bool, error) {
	return m.AddAll(v)
}

// AddAll inserts values, then reindexes every value that has an identity,
// new or not. The result reports whether any identity was new. Indexing
// failures are returned together after the batch.
func (m *Memory[V]) AddAll(values ...V) (bool, error) {
	type added struct {
		ref     *reference.Reference[V]
		value   V
		created bool
	}

	batch := make([]added, 0, len(values))
	refs := make([]*reference.Reference[V], 0, len(values))
	changed := false
	for _, v := range values {
		ref, created := m.refs.Add(v)
		if ref == nil {
			continue
		}
		batch = append(batch, added{ref: ref, value: v, created: created})
		refs = append(refs, ref)

		if created {
			changed = true
			m.stats.Add()
			if m.metrics != nil {
				m.metrics.recordAdd()
			}
		} else {
			m.stats.Update()
		}
	}

	err := m.indexes.Reindex(refs)
	m.recordIndexing(err)
	m.updateSize()

	if m.hooks.added != nil {
		for _, a := range batch {
			m.hooks.added(a.ref, a.value, a.created)
		}
	}
	return changed, err
}

// Remove removes the member sharing v's identity.
func (m *Memory[V]) Remove(v V) (bool, error) {
	ref, ok := m.refs.Remove(v)
	if !ok {
		return false, nil
	}
	m.detach(ref, CauseRemoved)
	return true, nil
}

// RemoveQuery removes every member q matches and returns them in match order.
func (m *Memory[V]) RemoveQuery(q query.Query) ([]V, error) {
	matched := query.Evaluate(q, m.indexes, query.NoLimit)
	removed := make([]V, 0, len(matched))
	for _, ref := range matched {
		if m.refs.RemoveReference(ref) {
			m.detach(ref, CauseRemoved)
			removed = append(removed, ref.Get())
		}
	}
	return removed, nil
}

// RemoveIf removes every member pred accepts.
func (m *Memory[V]) RemoveIf(pred func(V) bool) (bool, error) {
	changed := false
	for _, ref := range m.refs.References() {
		if !pred(ref.Get()) {
			continue
		}
		if m.refs.RemoveReference(ref) {
			m.detach(ref, CauseRemoved)
			changed = true
		}
	}
	return changed, nil
}

// RetainIf removes every member pred rejects.
func (m *Memory[V]) RetainIf(pred func(V) bool) (bool, error) {
	return m.RemoveIf(func(v V) bool { return !pred(v) })
}

// Clear removes every member without notifying listeners.
func (m *Memory[V]) Clear() error {
	m.refs.Clear()
	m.indexes.Clear()
	if m.hooks.cleared != nil {
		m.hooks.cleared()
	}
	m.updateSize()
	return nil
}

func (m *Memory[V]) Contains(v V) bool {
	_, ok := m.refs.Find(v)
	return ok
}

func (m *Memory[V]) Size() int {
	return m.refs.Size()
}

func (m *Memory[V]) IsEmpty() bool {
	return m.refs.Size() == 0
}

func (m *Memory[V]) Values() []V {
	return reference.Values(m.refs.References())
}

// All yields the members in insertion order. Members removed during the
// loop are skipped.
func (m *Memory[V]) All() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, ref := range m.refs.References() {
			if !m.refs.Owns(ref) {
				continue
			}
			if !yield(ref.Get()) {
				return
			}
		}
	}
}

func (m *Memory[V]) Iterator() *Iterator[V] {
	return newIterator(m.refs.References(), m.refs.Owns, m.removeReference)
}

func (m *Memory[V]) Get(q query.Query) []V {
	return m.GetLimit(q, query.NoLimit)
}

func (m *Memory[V]) GetLimit(q query.Query, limit int) []V {
	matched := query.Evaluate(q, m.indexes, limit)

	m.stats.Query()
	if m.metrics != nil {
		m.metrics.recordQuery()
	}

	if m.hooks.accessed != nil {
		for _, ref := range matched {
			m.hooks.accessed(ref)
		}
	}
	return reference.Values(matched)
}

func (m *Memory[V]) First(q query.Query) (V, bool) {
	values := m.GetLimit(q, 1)
	if len(values) == 0 {
		var zero V
		return zero, false
	}
	return values[0], true
}

func (m *Memory[V]) CreateIndex(name string, b index.Builder[V]) (index.Index[V], error) {
	if b == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "MemoryStore", "CreateIndex",
			"create index "+name+" without definition")
	}

	ix, err := m.indexes.Create(name, b, m.refs.References())
	if ix == nil {
		return nil, err
	}
	m.recordIndexing(err)
	return ix, err
}

// CreateAnonymousIndex registers an index under a random UUID name.
func (m *Memory[V]) CreateAnonymousIndex(b index.Builder[V]) (index.Index[V], error) {
	return m.CreateIndex(uuid.NewString(), b)
}

func (m *Memory[V]) Index(name string) (index.Index[V], bool) {
	ix, ok := m.indexes.Get(name)
	if !ok {
		return nil, false
	}
	return ix, true
}

func (m *Memory[V]) Indexes() []index.Index[V] {
	registered := m.indexes.Indexes()
	out := make([]index.Index[V], len(registered))
	for i, ix := range registered {
		out[i] = ix
	}
	return out
}

func (m *Memory[V]) RemoveIndex(name string) (bool, error) {
	return m.indexes.RemoveByName(name), nil
}

// DropIndex removes ix if it is the instance registered under its name.
func (m *Memory[V]) DropIndex(ix index.Index[V]) (bool, error) {
	return m.indexes.Remove(unwrapIndex(ix)), nil
}

func (m *Memory[V]) RemoveAllIndexes() error {
	m.indexes.RemoveAll()
	return nil
}

// Reindex recomputes every member in every index.
func (m *Memory[V]) Reindex() error {
	err := m.indexes.Reindex(m.refs.References())
	m.recordIndexing(err)
	return err
}

func (m *Memory[V]) ReindexValue(v V) error {
	return m.ReindexValues(v)
}

// ReindexValues recomputes the members sharing the identities of values.
// Values that are not members are ignored.
func (m *Memory[V]) ReindexValues(values ...V) error {
	refs := make([]*reference.Reference[V], 0, len(values))
	for _, v := range values {
		if ref, ok := m.refs.Find(v); ok {
			refs = append(refs, ref)
		}
	}
	err := m.indexes.Reindex(refs)
	m.recordIndexing(err)
	return err
}

func (m *Memory[V]) Copy() Store[V] {
	return m.copyMemory()
}

func (m *Memory[V]) Immutable() Store[V] {
	return newImmutable[V](m)
}

func (m *Memory[V]) Synchronized() (Store[V], error) {
	return newSynchronized[V](m), nil
}

func (m *Memory[V]) OnRemoval(cause RemovalCause, fn RemovalListener[V]) {
	m.listeners.add(cause, fn)
}

func (m *Memory[V]) Stats() *Statistics {
	return m.stats
}

// Close releases the store's metrics registrations.
func (m *Memory[V]) Close() error {
	if m.metrics != nil {
		m.metrics.unregister()
		m.metrics = nil
	}
	return nil
}

// copyMemory returns a store with independent membership and index maps.
// The copy keeps listeners but is not exported as metrics.
func (m *Memory[V]) copyMemory() *Memory[V] {
	c := &Memory[V]{
		refs:      m.refs.Copy(),
		indexes:   m.indexes.Copy(),
		listeners: m.listeners.copy(),
		stats:     newStatistics(m.opts.clock),
		logger:    m.logger,
		opts:      m.opts,
	}
	c.stats.UpdateSize(int64(c.refs.Size()))
	return c
}

func (m *Memory[V]) removeReference(ref *reference.Reference[V]) error {
	if m.refs.RemoveReference(ref) {
		m.detach(ref, CauseRemoved)
	}
	return nil
}

// detach finishes the removal of a reference the manager already dropped.
func (m *Memory[V]) detach(ref *reference.Reference[V], cause RemovalCause) {
	m.indexes.RemoveReference(ref)
	if m.hooks.removed != nil {
		m.hooks.removed(ref)
	}

	switch cause {
	case CauseExpired:
		m.stats.Expiration()
		if m.metrics != nil {
			m.metrics.recordExpiration()
		}
	default:
		m.stats.Removal()
		if m.metrics != nil {
			m.metrics.recordRemoval()
		}
	}
	m.updateSize()

	m.listeners.notify(cause, ref.Get())
}

func (m *Memory[V]) updateSize() {
	size := m.refs.Size()
	m.stats.UpdateSize(int64(size))
	if m.metrics != nil {
		m.metrics.updateSize(size)
	}
}

func (m *Memory[V]) recordIndexing(err error) {
	if err == nil {
		return
	}
	n := 1
	var agg *errors.IndexError
	if stderrors.As(err, &agg) {
		n = len(agg.Failures)
	}
	m.stats.IndexingFailures(n)
	if m.metrics != nil {
		m.metrics.recordIndexingFailures(n)
	}
}
