// Package reference holds stored values behind shared handles and tracks
// which handle belongs to which identity.
//
// Every index in a store points at the same *Reference for a given value, so
// membership can be tested by pointer and the value is never duplicated.
package reference

import "fmt"

// Reference is a handle to one stored value. Two references are the same
// member exactly when they are the same pointer.
type Reference[V any] struct {
	value V
}

// New wraps v in a fresh reference.
func New[V any](v V) *Reference[V] {
	return &Reference[V]{value: v}
}

// Get returns the referenced value.
func (r *Reference[V]) Get() V {
	return r.value
}

func (r *Reference[V]) String() string {
	return fmt.Sprint(r.value)
}

// Values dereferences refs in order.
func Values[V any](refs []*Reference[V]) []V {
	values := make([]V, len(refs))
	for i, r := range refs {
		values[i] = r.value
	}
	return values
}
