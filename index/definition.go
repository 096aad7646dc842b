package index

// Builder creates an empty ReferenceIndex under a name. Definition is the
// standard implementation; stores accept any Builder so that key types stay
// out of their signatures.
type Builder[V any] interface {
	Build(name string) ReferenceIndex[V]
}

// Definition describes how values map to keys of type K. The zero reducer
// keeps every member visible; the default policy uses keys unchanged.
type Definition[K comparable, V any] struct {
	mapper  func(V) ([]K, error)
	reducer Reducer[K, V]
	policy  ComparisonPolicy[K]
}

// KeyMapping indexes each value under a single key. Nil keys skip the value.
func KeyMapping[K comparable, V any](mapper func(V) K) *Definition[K, V] {
	return FallibleKeyMappings(func(v V) ([]K, error) {
		return []K{mapper(v)}, nil
	})
}

// KeyMappings indexes each value under every key mapper returns. Nil keys
// are ignored. When K is an interface type, slice keys are flattened.
func KeyMappings[K comparable, V any](mapper func(V) []K) *Definition[K, V] {
	return FallibleKeyMappings(func(v V) ([]K, error) {
		return mapper(v), nil
	})
}

// FallibleKeyMappings is KeyMappings for mappers that can fail. A failure
// is reported per value and does not stop the surrounding batch.
func FallibleKeyMappings[K comparable, V any](mapper func(V) ([]K, error)) *Definition[K, V] {
	return &Definition[K, V]{
		mapper: mapper,
		policy: DefaultPolicy[K](),
	}
}

// WithReducer sets the reducer applied to each key's members.
func (d *Definition[K, V]) WithReducer(reducer Reducer[K, V]) *Definition[K, V] {
	d.reducer = reducer
	return d
}

// WithComparisonPolicy sets how keys are normalized.
func (d *Definition[K, V]) WithComparisonPolicy(policy ComparisonPolicy[K]) *Definition[K, V] {
	if policy == nil {
		policy = DefaultPolicy[K]()
	}
	d.policy = policy
	return d
}

// Build creates an empty index named name.
func (d *Definition[K, V]) Build(name string) ReferenceIndex[V] {
	return newKeyIndex(name, d)
}
