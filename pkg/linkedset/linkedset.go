// Package linkedset provides an insertion-ordered set.
//
// A Set keeps each element once, remembers the order in which elements were
// first added and supports O(1) add, remove and membership tests. It is not
// safe for concurrent use.
package linkedset

import (
	"container/list"
	"iter"
)

// Set is an insertion-ordered set of comparable elements.
type Set[T comparable] struct {
	items map[T]*list.Element // element -> list node
	order *list.List          // insertion order
}

// New creates a set holding values in the order given.
func New[T comparable](values ...T) *Set[T] {
	s := &Set[T]{
		items: make(map[T]*list.Element, len(values)),
		order: list.New(),
	}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add appends v and reports whether it was absent. Re-adding an element keeps
// its original position.
func (s *Set[T]) Add(v T) bool {
	if _, exists := s.items[v]; exists {
		return false
	}
	s.items[v] = s.order.PushBack(v)
	return true
}

// AddAll adds every element of other in other's order.
func (s *Set[T]) AddAll(other *Set[T]) {
	for e := other.order.Front(); e != nil; e = e.Next() {
		s.Add(e.Value.(T))
	}
}

// Remove deletes v and reports whether it was present.
func (s *Set[T]) Remove(v T) bool {
	element, exists := s.items[v]
	if !exists {
		return false
	}
	s.order.Remove(element)
	delete(s.items, v)
	return true
}

// RetainIf keeps only the elements for which keep returns true.
func (s *Set[T]) RetainIf(keep func(T) bool) {
	for e := s.order.Front(); e != nil; {
		next := e.Next()
		v := e.Value.(T)
		if !keep(v) {
			s.order.Remove(e)
			delete(s.items, v)
		}
		e = next
	}
}

// Contains reports whether v is in the set.
func (s *Set[T]) Contains(v T) bool {
	_, exists := s.items[v]
	return exists
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return len(s.items)
}

// Front returns the oldest element.
func (s *Set[T]) Front() (T, bool) {
	if e := s.order.Front(); e != nil {
		return e.Value.(T), true
	}
	var zero T
	return zero, false
}

// Values returns the elements in insertion order.
func (s *Set[T]) Values() []T {
	values := make([]T, 0, len(s.items))
	for e := s.order.Front(); e != nil; e = e.Next() {
		values = append(values, e.Value.(T))
	}
	return values
}

// All iterates the elements in insertion order. Removing the element being
// visited is allowed.
func (s *Set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for e := s.order.Front(); e != nil; {
			next := e.Next()
			if !yield(e.Value.(T)) {
				return
			}
			e = next
		}
	}
}

// Clear removes every element.
func (s *Set[T]) Clear() {
	clear(s.items)
	s.order.Init()
}

// Clone returns an independent copy with the same order.
func (s *Set[T]) Clone() *Set[T] {
	c := &Set[T]{
		items: make(map[T]*list.Element, len(s.items)),
		order: list.New(),
	}
	for e := s.order.Front(); e != nil; e = e.Next() {
		v := e.Value.(T)
		c.items[v] = c.order.PushBack(v)
	}
	return c
}
