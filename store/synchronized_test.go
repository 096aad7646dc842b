package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThatForkyDev/membase/query"
)

func TestSynchronized_ReturnsItself(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)

	again, err := s.Synchronized()
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestMemory_SynchronizedWrapsStore(t *testing.T) {
	m, err := NewMemory[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, m)

	synced, err := m.Synchronized()
	require.NoError(t, err)

	p := &person{First: "John"}
	_, err = synced.Add(p)
	require.NoError(t, err)
	assert.True(t, m.Contains(p), "the view writes through to the wrapped store")
	assert.Equal(t, []*person{p}, synced.Get(query.Where("first", "John")))
}

func TestSynchronized_IndexesShareLock(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, s)

	ix, ok := s.Index("first")
	require.True(t, ok)
	wrapped, ok := ix.(*synchronizedIndex[*person])
	require.True(t, ok)
	assert.Same(t, s.mu, wrapped.mu)

	for _, ix := range s.Indexes() {
		_, ok := ix.(*synchronizedIndex[*person])
		assert.True(t, ok, "index %s is not synchronized", ix.Name())
	}

	p := &person{First: "John"}
	_, err = s.Add(p)
	require.NoError(t, err)
	assert.Equal(t, []*person{p}, ix.Get("John"))

	first, ok := ix.First("John")
	require.True(t, ok)
	assert.Same(t, p, first)
	assert.Equal(t, "first", ix.Name())
}

func TestSynchronized_DropIndexUnwraps(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)

	created, err := s.CreateIndex("first", byFirst())
	require.NoError(t, err)
	_, ok := created.(*synchronizedIndex[*person])
	require.True(t, ok)

	dropped, err := s.DropIndex(created)
	require.NoError(t, err)
	assert.True(t, dropped)

	_, ok = s.Index("first")
	assert.False(t, ok)
}

func TestSynchronized_CreateIndexDuplicate(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)

	_, err = s.CreateIndex("first", byFirst())
	require.NoError(t, err)

	ix, err := s.CreateIndex("first", byFirst())
	require.Error(t, err)
	assert.Nil(t, ix)
}

func TestSynchronized_CopyHasOwnLock(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, s)

	p := &person{First: "John"}
	_, err = s.Add(p)
	require.NoError(t, err)

	c, ok := s.Copy().(*Synchronized[*person])
	require.True(t, ok)
	assert.NotSame(t, s.mu, c.mu)

	_, err = c.Remove(p)
	require.NoError(t, err)
	assert.True(t, s.Contains(p))
	assert.Equal(t, []*person{p}, s.Get(query.Where("first", "John")))
}

func TestSynchronized_ConcurrentAccess(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, s)

	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				p := &person{First: "p", Age: g}
				_, _ = s.Add(p)
				_ = s.Get(query.Where("age", g))
				if i%2 == 0 {
					_, _ = s.Remove(p)
				}
			}
		}(g)
	}

	ix, ok := s.Index("first")
	require.True(t, ok)
	for i := 0; i < perGoroutine; i++ {
		_ = ix.Get("p")
		_ = s.Size()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine/2, s.Size())
	assert.Len(t, ix.Get("p"), goroutines*perGoroutine/2)
	for g := 0; g < goroutines; g++ {
		assert.Len(t, s.Get(query.Where("age", g)), perGoroutine/2)
	}
}

func TestSynchronized_IteratorSnapshot(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)

	a, b := &person{First: "A"}, &person{First: "B"}
	_, err = s.AddAll(a, b)
	require.NoError(t, err)

	var seen []*person
	for p := range s.All() {
		seen = append(seen, p)
		_, _ = s.Remove(b)
	}
	assert.Equal(t, []*person{a, b}, seen, "All yields the snapshot taken under the lock")

	it := s.Iterator()
	require.True(t, it.Next())
	require.NoError(t, it.Remove())
	assert.False(t, it.Next())
	assert.True(t, s.IsEmpty())
}

// finishes fails the test when fn does not return in time.
func finishes(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("call did not return; a removal listener is blocked on the store lock")
	}
}

func TestSynchronized_ListenersCanUseStore(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)
	withPeopleIndexes(t, s)

	var sizes []int
	var order []string
	s.OnRemoval(CauseRemoved, func(p *person) {
		sizes = append(sizes, s.Size())
		order = append(order, "size:"+p.First)
	})
	s.OnRemoval(CauseRemoved, func(p *person) {
		assert.False(t, s.Contains(p))
		assert.Empty(t, s.Get(query.Where("first", p.First)))
		order = append(order, "lookup:"+p.First)
	})

	a, b, c := &person{First: "A"}, &person{First: "B"}, &person{First: "C"}
	_, err = s.AddAll(a, b, c)
	require.NoError(t, err)

	finishes(t, func() {
		_, err := s.Remove(a)
		assert.NoError(t, err)
		_, err = s.RemoveIf(func(p *person) bool { return p.First == "B" })
		assert.NoError(t, err)
		_, err = s.RemoveQuery(query.Where("first", "C"))
		assert.NoError(t, err)
	})

	assert.Equal(t, []int{2, 1, 0}, sizes)
	assert.Equal(t, []string{"size:A", "lookup:A", "size:B", "lookup:B", "size:C", "lookup:C"}, order)
}

func TestSynchronized_ListenerCanRemove(t *testing.T) {
	s, err := NewSynchronized[*person]()
	require.NoError(t, err)

	a, b := &person{First: "A"}, &person{First: "B"}
	_, err = s.AddAll(a, b)
	require.NoError(t, err)

	var removed []string
	s.OnRemoval(CauseRemoved, func(p *person) {
		removed = append(removed, p.First)
		if p == a {
			_, err := s.Remove(b)
			assert.NoError(t, err)
		}
	})

	finishes(t, func() {
		_, err := s.Remove(a)
		assert.NoError(t, err)
	})

	assert.Equal(t, []string{"A", "B"}, removed)
	assert.True(t, s.IsEmpty())
}
