package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/index"
	"github.com/ThatForkyDev/membase/query"
)

func TestImmutable_RejectsMutation(t *testing.T) {
	m, err := NewMemory[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, m)

	p := &person{First: "John", Last: "Doe", Age: 21}
	_, err = m.Add(p)
	require.NoError(t, err)

	view := m.Immutable()
	ix, ok := view.Index("first")
	require.True(t, ok)

	tests := []struct {
		name   string
		mutate func(s Store[*person]) error
	}{
		{"Add", func(s Store[*person]) error { _, err := s.Add(&person{}); return err }},
		{"AddAll", func(s Store[*person]) error { _, err := s.AddAll(&person{}); return err }},
		{"Remove", func(s Store[*person]) error { _, err := s.Remove(p); return err }},
		{"RemoveQuery", func(s Store[*person]) error {
			_, err := s.RemoveQuery(query.Where("first", "John"))
			return err
		}},
		{"RemoveIf", func(s Store[*person]) error {
			_, err := s.RemoveIf(func(*person) bool { return true })
			return err
		}},
		{"RetainIf", func(s Store[*person]) error {
			_, err := s.RetainIf(func(*person) bool { return false })
			return err
		}},
		{"Clear", func(s Store[*person]) error { return s.Clear() }},
		{"CreateIndex", func(s Store[*person]) error { _, err := s.CreateIndex("x", byFirst()); return err }},
		{"CreateAnonymousIndex", func(s Store[*person]) error {
			_, err := s.CreateAnonymousIndex(byFirst())
			return err
		}},
		{"RemoveIndex", func(s Store[*person]) error { _, err := s.RemoveIndex("first"); return err }},
		{"DropIndex", func(s Store[*person]) error { _, err := s.DropIndex(ix); return err }},
		{"RemoveAllIndexes", func(s Store[*person]) error { return s.RemoveAllIndexes() }},
		{"Reindex", func(s Store[*person]) error { return s.Reindex() }},
		{"ReindexValue", func(s Store[*person]) error { return s.ReindexValue(p) }},
		{"ReindexValues", func(s Store[*person]) error { return s.ReindexValues(p) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(view)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrReadOnly)
			assert.True(t, errors.IsInvalid(err))

			assert.Equal(t, []*person{p}, m.Values())
			assert.Len(t, m.Indexes(), 4)
			assert.Equal(t, []*person{p}, m.Get(query.Where("first", "John")))
		})
	}
}

func TestImmutable_ReadsAreLive(t *testing.T) {
	m, err := NewMemory[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, m)

	view := m.Immutable()
	assert.True(t, view.IsEmpty())

	p := &person{First: "John"}
	_, err = m.Add(p)
	require.NoError(t, err)

	assert.Equal(t, 1, view.Size())
	assert.True(t, view.Contains(p))
	assert.Equal(t, []*person{p}, view.Values())
	assert.Equal(t, []*person{p}, view.Get(query.Where("first", "John")))
	assert.Equal(t, []*person{p}, view.GetLimit(query.Where("first", "John"), 5))
	first, ok := view.First(query.Where("first", "John"))
	require.True(t, ok)
	assert.Same(t, p, first)
	assert.Len(t, view.Indexes(), 4)
	assert.Same(t, m.Stats(), view.Stats())

	var all []*person
	for v := range view.All() {
		all = append(all, v)
	}
	assert.Equal(t, []*person{p}, all)
}

func TestImmutable_IteratorRejectsRemove(t *testing.T) {
	m, err := NewMemory[*person]()
	require.NoError(t, err)

	p := &person{First: "John"}
	_, err = m.Add(p)
	require.NoError(t, err)

	it := m.Immutable().Iterator()
	require.True(t, it.Next())
	assert.Same(t, p, it.Value())

	err = it.Remove()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrReadOnly)
	assert.True(t, m.Contains(p))
}

func TestImmutable_Views(t *testing.T) {
	m, err := NewMemory[*person]()
	require.NoError(t, err)

	view := m.Immutable()
	assert.Same(t, view, view.Immutable())

	synced, err := view.Synchronized()
	require.NoError(t, err)
	_, isImmutable := synced.(*Immutable[*person])
	assert.True(t, isImmutable, "synchronized form of a read-only view stays read-only")
	_, err = synced.Add(&person{})
	assert.ErrorIs(t, err, errors.ErrReadOnly)

	// Copies are mutable.
	c := view.Copy()
	added, err := c.Add(&person{First: "John"})
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, m.IsEmpty())

	require.NoError(t, view.Close())
}

func TestImmutable_ObservesRemovals(t *testing.T) {
	m, err := NewMemory[*person]()
	require.NoError(t, err)

	p := &person{First: "John"}
	_, err = m.Add(p)
	require.NoError(t, err)

	var removed []*person
	m.Immutable().OnRemoval(CauseRemoved, func(v *person) { removed = append(removed, v) })

	_, err = m.Remove(p)
	require.NoError(t, err)
	assert.Equal(t, []*person{p}, removed)
}

func TestImmutable_OfExpiringCannotSynchronize(t *testing.T) {
	e, err := NewExpiring[*person]()
	require.NoError(t, err)

	_, err = e.Immutable().Synchronized()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSynchronizationUnsupported)
}

func TestImmutable_IndexesAreLookupOnly(t *testing.T) {
	m, err := NewMemory[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, m)

	p := &person{First: "John", Last: "Doe", Age: 21}
	_, err = m.Add(p)
	require.NoError(t, err)

	view := m.Immutable()
	ix, ok := view.Index("first")
	require.True(t, ok)
	assert.Equal(t, "first", ix.Name())
	assert.Equal(t, []*person{p}, ix.Get("John"))

	_, clearable := ix.(interface{ Clear() })
	assert.False(t, clearable, "maintenance methods are hidden")
	_, maintained := ix.(index.ReferenceIndex[*person])
	assert.False(t, maintained)

	for _, listed := range view.Indexes() {
		_, maintained := listed.(index.ReferenceIndex[*person])
		assert.False(t, maintained, listed.Name())
	}

	assert.Equal(t, []*person{p}, m.Get(query.Where("first", "John")), "store indexes untouched")

	// An index taken from the view still identifies the registered one.
	dropped, err := m.DropIndex(ix)
	require.NoError(t, err)
	assert.True(t, dropped)
	_, ok = view.Index("first")
	assert.False(t, ok)
}

func TestImmutable_SynchronizedIndexesAreLookupOnly(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, s)

	ix, ok := s.Immutable().Index("last")
	require.True(t, ok)
	_, clearable := ix.(interface{ Clear() })
	assert.False(t, clearable)

	dropped, err := s.DropIndex(ix)
	require.NoError(t, err)
	assert.True(t, dropped)
}
