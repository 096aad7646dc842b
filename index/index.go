package index

import (
	"fmt"
	"reflect"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/pkg/linkedset"
	"github.com/ThatForkyDev/membase/reference"
)

// Index is the read side of a named index. Lookups accept any key; a key of
// the wrong type or one the comparison policy does not support matches
// nothing.
type Index[V any] interface {
	Name() string
	Get(key any) []V
	First(key any) (V, bool)
}

// ReferenceIndex is an Index maintained against store references.
type ReferenceIndex[V any] interface {
	Index[V]

	// References returns the visible members for key in insertion order.
	References(key any) []*reference.Reference[V]

	// Index recomputes ref's keys and moves it into the matching buckets.
	// A key mapper failure returns *errors.IndexingFailure and leaves ref's
	// previous entries untouched.
	Index(ref *reference.Reference[V]) error

	// Remove detaches ref from every bucket.
	Remove(ref *reference.Reference[V])

	Clear()
	Copy() ReferenceIndex[V]

	// Len returns the number of distinct keys.
	Len() int
}

type keyIndex[K comparable, V any] struct {
	name    string
	mapper  func(V) ([]K, error)
	reducer Reducer[K, V]
	policy  ComparisonPolicy[K]
	buckets map[K]*bucket[K, V]
	keys    map[*reference.Reference[V]]*linkedset.Set[K]
}

func newKeyIndex[K comparable, V any](name string, d *Definition[K, V]) *keyIndex[K, V] {
	return &keyIndex[K, V]{
		name:    name,
		mapper:  d.mapper,
		reducer: d.reducer,
		policy:  d.policy,
		buckets: make(map[K]*bucket[K, V]),
		keys:    make(map[*reference.Reference[V]]*linkedset.Set[K]),
	}
}

func (ix *keyIndex[K, V]) Name() string {
	return ix.name
}

func (ix *keyIndex[K, V]) References(key any) []*reference.Reference[V] {
	b, ok := ix.lookup(key)
	if !ok {
		return nil
	}
	return b.visible.Values()
}

func (ix *keyIndex[K, V]) Get(key any) []V {
	b, ok := ix.lookup(key)
	if !ok {
		return nil
	}
	return reference.Values(b.visible.Values())
}

func (ix *keyIndex[K, V]) First(key any) (V, bool) {
	var zero V
	b, ok := ix.lookup(key)
	if !ok {
		return zero, false
	}
	ref, ok := b.visible.Front()
	if !ok {
		return zero, false
	}
	return ref.Get(), true
}

func (ix *keyIndex[K, V]) Index(ref *reference.Reference[V]) error {
	keys, err := ix.generateKeys(ref.Get())
	if err != nil {
		return &errors.IndexingFailure{Index: ix.name, Value: ref.Get(), Err: err}
	}

	ix.Remove(ref)

	if keys.Len() == 0 {
		return nil
	}

	ix.keys[ref] = keys
	for key := range keys.All() {
		b, exists := ix.buckets[key]
		if !exists {
			b = newBucket(key, ix.reducer)
			ix.buckets[key] = b
		}
		b.add(ref)
	}
	return nil
}

func (ix *keyIndex[K, V]) Remove(ref *reference.Reference[V]) {
	keys, ok := ix.keys[ref]
	if !ok {
		return
	}

	for key := range keys.All() {
		b, exists := ix.buckets[key]
		if !exists {
			continue
		}
		b.remove(ref)
		if b.empty() {
			delete(ix.buckets, key)
		}
	}
	delete(ix.keys, ref)
}

func (ix *keyIndex[K, V]) Clear() {
	clear(ix.buckets)
	clear(ix.keys)
}

func (ix *keyIndex[K, V]) Copy() ReferenceIndex[V] {
	c := &keyIndex[K, V]{
		name:    ix.name,
		mapper:  ix.mapper,
		reducer: ix.reducer,
		policy:  ix.policy,
		buckets: make(map[K]*bucket[K, V], len(ix.buckets)),
		keys:    make(map[*reference.Reference[V]]*linkedset.Set[K], len(ix.keys)),
	}
	for key, b := range ix.buckets {
		c.buckets[key] = b.copy()
	}
	// Key sets are never mutated after indexing.
	for ref, keys := range ix.keys {
		c.keys[ref] = keys
	}
	return c
}

func (ix *keyIndex[K, V]) Len() int {
	return len(ix.buckets)
}

func (ix *keyIndex[K, V]) String() string {
	return fmt.Sprintf("index(%s)", ix.name)
}

func (ix *keyIndex[K, V]) generateKeys(v V) (keys *linkedset.Set[K], err error) {
	defer func() {
		if r := recover(); r != nil {
			keys = nil
			err = fmt.Errorf("key mapper panic: %v", r)
		}
	}()

	raw, err := ix.mapper(v)
	if err != nil {
		return nil, err
	}

	keys = linkedset.New[K]()
	for _, key := range raw {
		if absent(key) {
			continue
		}

		// Multi-valued keys are flattened one level.
		if rv := reflect.ValueOf(any(key)); rv.Kind() == reflect.Slice {
			for i := 0; i < rv.Len(); i++ {
				if elem, ok := rv.Index(i).Interface().(K); ok {
					ix.collect(elem, keys)
				}
			}
			continue
		}

		ix.collect(key, keys)
	}
	return keys, nil
}

func (ix *keyIndex[K, V]) collect(key K, into *linkedset.Set[K]) {
	if normalized, ok := ix.normalize(key); ok {
		into.Add(normalized)
	}
}

func (ix *keyIndex[K, V]) normalize(key K) (K, bool) {
	if absent(key) || !ix.policy.Supports(reflect.TypeOf(any(key))) {
		return key, false
	}
	normalized := ix.policy.Normalize(key)
	if !reflect.ValueOf(any(normalized)).Comparable() {
		return normalized, false
	}
	return normalized, true
}

func (ix *keyIndex[K, V]) lookup(key any) (*bucket[K, V], bool) {
	k, ok := key.(K)
	if !ok {
		return nil, false
	}
	normalized, ok := ix.normalize(k)
	if !ok {
		return nil, false
	}
	b, ok := ix.buckets[normalized]
	return b, ok
}

// absent reports nil interfaces and nil pointer-like values.
func absent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
