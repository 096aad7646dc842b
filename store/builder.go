package store

import (
	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/index"
)

// Builder assembles a memory store from initial values and indexes.
//
//	s, err := store.NewBuilder[*User]().
//		WithValues(alice, bob).
//		WithIndex("email", index.KeyMapping(func(u *User) string { return u.Email })).
//		Build()
type Builder[V any] struct {
	options []Option[V]
	values  []V
	indexes []namedBuilder[V]
}

type namedBuilder[V any] struct {
	name    string
	builder index.Builder[V]
}

// NewBuilder starts a builder. options are passed to NewMemory.
func NewBuilder[V any](options ...Option[V]) *Builder[V] {
	return &Builder[V]{options: options}
}

func (b *Builder[V]) WithValue(v V) *Builder[V] {
	b.values = append(b.values, v)
	return b
}

func (b *Builder[V]) WithValues(values ...V) *Builder[V] {
	b.values = append(b.values, values...)
	return b
}

func (b *Builder[V]) WithIndex(name string, builder index.Builder[V]) *Builder[V] {
	b.indexes = append(b.indexes, namedBuilder[V]{name: name, builder: builder})
	return b
}

// Build creates the store, registers the indexes and adds the values.
// Duplicate index names fail the build. Indexing failures are returned with
// the built store.
func (b *Builder[V]) Build() (*Memory[V], error) {
	m, err := NewMemory(b.options...)
	if err != nil {
		return nil, err
	}

	// The store is still empty, so only registration can fail here.
	for _, nb := range b.indexes {
		if _, err := m.CreateIndex(nb.name, nb.builder); err != nil {
			_ = m.Close()
			return nil, errors.Wrap(err, "StoreBuilder", "Build", "create index "+nb.name)
		}
	}

	_, err = m.AddAll(b.values...)
	return m, err
}
