package index

import (
	"golang.org/x/exp/constraints"

	"github.com/ThatForkyDev/membase/reference"
)

// Element is a bucket member handed to a Reducer. Reducers mark losers with
// Remove; they never reorder or drop elements from the slice.
type Element[V any] struct {
	ref     *reference.Reference[V]
	removed bool
}

// Value returns the member's value.
func (e *Element[V]) Value() V { return e.ref.Get() }

// Reference returns the member's reference.
func (e *Element[V]) Reference() *reference.Reference[V] { return e.ref }

// Remove hides the element from the key's visible members.
func (e *Element[V]) Remove() { e.removed = true }

// Removed reports whether Remove was called.
func (e *Element[V]) Removed() bool { return e.removed }

// Reducer decides which members mapped to one key stay visible. Elements are
// in insertion order.
type Reducer[K any, V any] interface {
	Reduce(key K, elements []*Element[V])
}

// ReducerFunc adapts a function to Reducer.
type ReducerFunc[K any, V any] func(key K, elements []*Element[V])

// Reduce calls f.
func (f ReducerFunc[K, V]) Reduce(key K, elements []*Element[V]) { f(key, elements) }

// Projection extracts the value a reducer inspects. A false result means the
// value is absent.
type Projection[V any, C any] func(v V) (C, bool)

type extremumReducer[K any, V any, C any] struct {
	project     Projection[V, C]
	compare     func(a, b C) int
	nullGreater bool
	max         bool
}

// MinBy keeps the member with the smallest projection. Ties keep the member
// scanned first. Absent projections sort above every value when nullGreater
// is set and below every value otherwise.
func MinBy[K any, V any, C any](project Projection[V, C], compare func(a, b C) int, nullGreater bool) Reducer[K, V] {
	return &extremumReducer[K, V, C]{project: project, compare: compare, nullGreater: nullGreater}
}

// MaxBy keeps the member with the largest projection. See MinBy for ties
// and absent projections.
func MaxBy[K any, V any, C any](project Projection[V, C], compare func(a, b C) int, nullGreater bool) Reducer[K, V] {
	return &extremumReducer[K, V, C]{project: project, compare: compare, nullGreater: nullGreater, max: true}
}

// Min keeps the member with the smallest ordered projection.
func Min[K any, V any, C constraints.Ordered](project func(V) C) Reducer[K, V] {
	return MinBy[K](always(project), compareOrdered[C], false)
}

// Max keeps the member with the largest ordered projection.
func Max[K any, V any, C constraints.Ordered](project func(V) C) Reducer[K, V] {
	return MaxBy[K](always(project), compareOrdered[C], false)
}

func (r *extremumReducer[K, V, C]) Reduce(_ K, elements []*Element[V]) {
	var kept *Element[V]
	for _, e := range elements {
		if kept == nil {
			kept = e
			continue
		}
		if r.prefer(kept, e) >= 0 {
			e.Remove()
			continue
		}
		kept.Remove()
		kept = e
	}
}

// prefer is positive when a should survive over b, zero on a tie.
func (r *extremumReducer[K, V, C]) prefer(a, b *Element[V]) int {
	order := r.order(a.Value(), b.Value())
	if r.max {
		return order
	}
	return -order
}

func (r *extremumReducer[K, V, C]) order(a, b V) int {
	ca, okA := r.project(a)
	cb, okB := r.project(b)

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		if r.nullGreater {
			return 1
		}
		return -1
	case !okB:
		if r.nullGreater {
			return -1
		}
		return 1
	}
	return r.compare(ca, cb)
}

func always[V any, C any](project func(V) C) Projection[V, C] {
	return func(v V) (C, bool) { return project(v), true }
}

func compareOrdered[C constraints.Ordered](a, b C) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Retain selects which members a Limit reducer keeps.
type Retain int

const (
	// RetainNewest keeps the most recently added members.
	RetainNewest Retain = iota
	// RetainOldest keeps the earliest added members.
	RetainOldest
)

func (r Retain) String() string {
	switch r {
	case RetainNewest:
		return "NEWEST"
	case RetainOldest:
		return "OLDEST"
	default:
		return "UNKNOWN"
	}
}

type limitReducer[K any, V any] struct {
	limit  int
	retain Retain
}

// Limit keeps at most limit members per key.
func Limit[K any, V any](limit int, retain Retain) Reducer[K, V] {
	if limit < 0 {
		limit = 0
	}
	return &limitReducer[K, V]{limit: limit, retain: retain}
}

func (r *limitReducer[K, V]) Reduce(_ K, elements []*Element[V]) {
	excess := len(elements) - r.limit
	if excess <= 0 {
		return
	}

	switch r.retain {
	case RetainNewest:
		for _, e := range elements[:excess] {
			e.Remove()
		}
	case RetainOldest:
		for _, e := range elements[r.limit:] {
			e.Remove()
		}
	}
}

// Filter hides every member for which drop returns true.
func Filter[K any, V any](drop func(V) bool) Reducer[K, V] {
	return ReducerFunc[K, V](func(_ K, elements []*Element[V]) {
		for _, e := range elements {
			if drop(e.Value()) {
				e.Remove()
			}
		}
	})
}

// Null hides members whose projection is absent.
func Null[K any, V any, C any](project Projection[V, C]) Reducer[K, V] {
	return ReducerFunc[K, V](func(_ K, elements []*Element[V]) {
		for _, e := range elements {
			if _, ok := project(e.Value()); !ok {
				e.Remove()
			}
		}
	})
}

// Multi chains reducers. Each stage sees only the survivors of the
// previous stages.
type Multi[K any, V any] struct {
	reducers []Reducer[K, V]
}

// Chain creates a Multi running reducers in order.
func Chain[K any, V any](reducers ...Reducer[K, V]) *Multi[K, V] {
	return &Multi[K, V]{reducers: append([]Reducer[K, V](nil), reducers...)}
}

// AndThen returns a new Multi with next appended. The receiver is unchanged.
func (m *Multi[K, V]) AndThen(next Reducer[K, V]) *Multi[K, V] {
	reducers := make([]Reducer[K, V], 0, len(m.reducers)+1)
	reducers = append(reducers, m.reducers...)
	return &Multi[K, V]{reducers: append(reducers, next)}
}

// Reducers returns the stages in order.
func (m *Multi[K, V]) Reducers() []Reducer[K, V] {
	return append([]Reducer[K, V](nil), m.reducers...)
}

func (m *Multi[K, V]) Reduce(key K, elements []*Element[V]) {
	for _, r := range m.reducers {
		survivors := make([]*Element[V], 0, len(elements))
		for _, e := range elements {
			if !e.removed {
				survivors = append(survivors, e)
			}
		}
		r.Reduce(key, survivors)
	}
}
