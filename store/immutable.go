package store

import (
	"iter"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/index"
	"github.com/ThatForkyDev/membase/query"
)

// Immutable is a read-only view of another store. Reads see the live
// contents; every mutator fails with ErrReadOnly and leaves the store as it
// was. The view owns nothing, so Close is a no-op.
type Immutable[V any] struct {
	store Store[V]
}

func newImmutable[V any](s Store[V]) *Immutable[V] {
	return &Immutable[V]{store: s}
}

func readOnly(method, action string) error {
	return errors.WrapInvalid(errors.ErrReadOnly, "ImmutableStore", method, action)
}

func (s *Immutable[V]) Add(V) (bool, error) {
	return false, readOnly("Add", "add value")
}

func (s *Immutable[V]) AddAll(...V) (bool, error) {
	return false, readOnly("AddAll", "add values")
}

func (s *Immutable[V]) Remove(V) (bool, error) {
	return false, readOnly("Remove", "remove value")
}

func (s *Immutable[V]) RemoveQuery(query.Query) ([]V, error) {
	return nil, readOnly("RemoveQuery", "remove matches")
}

func (s *Immutable[V]) RemoveIf(func(V) bool) (bool, error) {
	return false, readOnly("RemoveIf", "remove values")
}

func (s *Immutable[V]) RetainIf(func(V) bool) (bool, error) {
	return false, readOnly("RetainIf", "retain values")
}

func (s *Immutable[V]) Clear() error {
	return readOnly("Clear", "clear store")
}

func (s *Immutable[V]) Contains(v V) bool {
	return s.store.Contains(v)
}

func (s *Immutable[V]) Size() int {
	return s.store.Size()
}

func (s *Immutable[V]) IsEmpty() bool {
	return s.store.IsEmpty()
}

func (s *Immutable[V]) Values() []V {
	return s.store.Values()
}

func (s *Immutable[V]) All() iter.Seq[V] {
	return s.store.All()
}

// Iterator returns an iterator whose Remove fails with ErrReadOnly.
func (s *Immutable[V]) Iterator() *Iterator[V] {
	return s.store.Iterator().readOnly()
}

func (s *Immutable[V]) Get(q query.Query) []V {
	return s.store.Get(q)
}

func (s *Immutable[V]) GetLimit(q query.Query, limit int) []V {
	return s.store.GetLimit(q, limit)
}

func (s *Immutable[V]) First(q query.Query) (V, bool) {
	return s.store.First(q)
}

func (s *Immutable[V]) CreateIndex(name string, _ index.Builder[V]) (index.Index[V], error) {
	return nil, readOnly("CreateIndex", "create index "+name)
}

func (s *Immutable[V]) CreateAnonymousIndex(index.Builder[V]) (index.Index[V], error) {
	return nil, readOnly("CreateAnonymousIndex", "create index")
}

// Index returns the named index behind a lookup-only decorator.
func (s *Immutable[V]) Index(name string) (index.Index[V], bool) {
	ix, ok := s.store.Index(name)
	if !ok {
		return nil, false
	}
	return readOnlyIndex(ix), true
}

func (s *Immutable[V]) Indexes() []index.Index[V] {
	indexes := s.store.Indexes()
	for i, ix := range indexes {
		indexes[i] = readOnlyIndex(ix)
	}
	return indexes
}

func (s *Immutable[V]) RemoveIndex(name string) (bool, error) {
	return false, readOnly("RemoveIndex", "remove index "+name)
}

func (s *Immutable[V]) DropIndex(index.Index[V]) (bool, error) {
	return false, readOnly("DropIndex", "drop index")
}

func (s *Immutable[V]) RemoveAllIndexes() error {
	return readOnly("RemoveAllIndexes", "remove indexes")
}

func (s *Immutable[V]) Reindex() error {
	return readOnly("Reindex", "reindex store")
}

func (s *Immutable[V]) ReindexValue(V) error {
	return readOnly("ReindexValue", "reindex value")
}

func (s *Immutable[V]) ReindexValues(...V) error {
	return readOnly("ReindexValues", "reindex values")
}

// Copy returns a mutable copy of the underlying store.
func (s *Immutable[V]) Copy() Store[V] {
	return s.store.Copy()
}

func (s *Immutable[V]) Immutable() Store[V] {
	return s
}

// Synchronized returns a read-only view of the underlying store's
// synchronized form.
func (s *Immutable[V]) Synchronized() (Store[V], error) {
	synced, err := s.store.Synchronized()
	if err != nil {
		return nil, err
	}
	return synced.Immutable(), nil
}

// OnRemoval registers fn on the underlying store. Observing removals does
// not mutate it.
func (s *Immutable[V]) OnRemoval(cause RemovalCause, fn RemovalListener[V]) {
	s.store.OnRemoval(cause, fn)
}

func (s *Immutable[V]) Stats() *Statistics {
	return s.store.Stats()
}

func (s *Immutable[V]) Close() error {
	return nil
}

// immutableIndex exposes only the lookups of an index, so the maintenance
// methods of the underlying index cannot be reached through a type assertion.
type immutableIndex[V any] struct {
	index index.Index[V]
}

func readOnlyIndex[V any](ix index.Index[V]) index.Index[V] {
	if _, wrapped := ix.(*immutableIndex[V]); wrapped {
		return ix
	}
	return &immutableIndex[V]{index: ix}
}

func (ix *immutableIndex[V]) Name() string {
	return ix.index.Name()
}

func (ix *immutableIndex[V]) Get(key any) []V {
	return ix.index.Get(key)
}

func (ix *immutableIndex[V]) First(key any) (V, bool) {
	return ix.index.First(key)
}

func (ix *immutableIndex[V]) String() string {
	return "immutable(" + ix.index.Name() + ")"
}
