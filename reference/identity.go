package reference

import (
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// IdentityProvider derives the identity under which a value is stored.
// A false second result means the value has no identity and is ignored by
// membership operations.
type IdentityProvider[V any] interface {
	Identity(v V) (any, bool)
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc[V any] func(v V) (any, bool)

// Identity calls f(v).
func (f IdentityFunc[V]) Identity(v V) (any, bool) {
	return f(v)
}

// DefaultIdentity uses the value itself as its identity, so values that are
// == share a reference. Nil values and values that cannot be compared at
// runtime have no identity.
func DefaultIdentity[V any]() IdentityProvider[V] {
	return IdentityFunc[V](selfIdentity[V])
}

func selfIdentity[V any](v V) (any, bool) {
	boxed := any(v)
	if boxed == nil {
		return nil, false
	}

	rv := reflect.ValueOf(boxed)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if rv.IsNil() {
			return nil, false
		}
	}
	if !rv.Comparable() {
		return nil, false
	}
	return boxed, true
}

// KeyIdentity identifies values by a comparable key such as an ID field.
func KeyIdentity[V any, K comparable](key func(V) K) IdentityProvider[V] {
	return IdentityFunc[V](func(v V) (any, bool) {
		return key(v), true
	})
}

// HashedIdentity identifies values by the xxhash64 of their encoding. It
// suits values that are not comparable, such as structs holding slices.
// A nil encoding means no identity.
func HashedIdentity[V any](encode func(V) []byte) IdentityProvider[V] {
	return IdentityFunc[V](func(v V) (any, bool) {
		b := encode(v)
		if b == nil {
			return nil, false
		}
		return xxhash.Sum64(b), true
	})
}
