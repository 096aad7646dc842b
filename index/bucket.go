package index

import (
	"github.com/ThatForkyDev/membase/pkg/linkedset"
	"github.com/ThatForkyDev/membase/reference"
)

// bucket holds the members mapped to one key. raw has every member, visible
// the reducer survivors; visible is always a subset of raw.
type bucket[K comparable, V any] struct {
	key     K
	reducer Reducer[K, V]
	raw     *linkedset.Set[*reference.Reference[V]]
	visible *linkedset.Set[*reference.Reference[V]]
}

func newBucket[K comparable, V any](key K, reducer Reducer[K, V]) *bucket[K, V] {
	return &bucket[K, V]{
		key:     key,
		reducer: reducer,
		raw:     linkedset.New[*reference.Reference[V]](),
		visible: linkedset.New[*reference.Reference[V]](),
	}
}

func (b *bucket[K, V]) add(ref *reference.Reference[V]) {
	b.raw.Add(ref)
	b.visible.Add(ref)
	b.visible = b.reduce(b.visible)
}

// remove drops ref. When ref was visible the whole raw set is reduced again,
// which can bring back members an earlier reduction hid.
func (b *bucket[K, V]) remove(ref *reference.Reference[V]) {
	b.raw.Remove(ref)
	if b.visible.Contains(ref) {
		b.visible = b.reduce(b.raw)
	}
}

func (b *bucket[K, V]) empty() bool {
	return b.raw.Len() == 0
}

func (b *bucket[K, V]) reduce(members *linkedset.Set[*reference.Reference[V]]) *linkedset.Set[*reference.Reference[V]] {
	if b.reducer == nil {
		return members.Clone()
	}

	elements := make([]*Element[V], 0, members.Len())
	for ref := range members.All() {
		elements = append(elements, &Element[V]{ref: ref})
	}

	b.reducer.Reduce(b.key, elements)

	survivors := linkedset.New[*reference.Reference[V]]()
	for _, e := range elements {
		if !e.removed {
			survivors.Add(e.ref)
		}
	}
	return survivors
}

func (b *bucket[K, V]) copy() *bucket[K, V] {
	return &bucket[K, V]{
		key:     b.key,
		reducer: b.reducer,
		raw:     b.raw.Clone(),
		visible: b.visible.Clone(),
	}
}
