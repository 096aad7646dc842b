package store

import (
	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/reference"
)

// Iterator walks a snapshot of the members taken when it was created.
// Members removed after that point are skipped.
//
//	it := s.Iterator()
//	for it.Next() {
//		if stale(it.Value()) {
//			_ = it.Remove()
//		}
//	}
type Iterator[V any] struct {
	refs    []*reference.Reference[V]
	pos     int
	current *reference.Reference[V]
	owns    func(*reference.Reference[V]) bool
	remove  func(*reference.Reference[V]) error
}

func newIterator[V any](
	refs []*reference.Reference[V],
	owns func(*reference.Reference[V]) bool,
	remove func(*reference.Reference[V]) error,
) *Iterator[V] {
	return &Iterator[V]{refs: refs, owns: owns, remove: remove}
}

// Next advances to the next live member.
func (it *Iterator[V]) Next() bool {
	for it.pos < len(it.refs) {
		ref := it.refs[it.pos]
		it.pos++
		if it.owns(ref) {
			it.current = ref
			return true
		}
	}
	it.current = nil
	return false
}

// Value returns the current member.
func (it *Iterator[V]) Value() V {
	if it.current == nil {
		var zero V
		return zero
	}
	return it.current.Get()
}

// Remove removes the current member from the store and its indexes.
func (it *Iterator[V]) Remove() error {
	if it.remove == nil {
		return errors.WrapInvalid(errors.ErrReadOnly, "Iterator", "Remove", "remove value")
	}
	if it.current == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "Iterator", "Remove", "remove without current value")
	}
	ref := it.current
	it.current = nil
	return it.remove(ref)
}

// readOnly returns a copy of it that rejects Remove.
func (it *Iterator[V]) readOnly() *Iterator[V] {
	c := *it
	c.remove = nil
	return &c
}
