package index

import (
	"log/slog"
	"slices"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/reference"
)

// Manager owns the named indexes of one store and fans membership changes
// out to them.
type Manager[V any] struct {
	indexes map[string]ReferenceIndex[V]
	order   []string
	logger  *slog.Logger
}

// NewManager creates a manager with no indexes.
func NewManager[V any](logger *slog.Logger) *Manager[V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager[V]{
		indexes: make(map[string]ReferenceIndex[V]),
		logger:  logger,
	}
}

// Create registers a new index built by b and backfills it with refs.
// A taken name fails with ErrIndexExists before anything changes. Backfill
// failures are returned as *errors.IndexError; the index stays registered
// with every reference that did index.
func (m *Manager[V]) Create(name string, b Builder[V], refs []*reference.Reference[V]) (ReferenceIndex[V], error) {
	if _, exists := m.indexes[name]; exists {
		return nil, errors.WrapInvalid(errors.ErrIndexExists, "IndexManager", "Create",
			"register index "+name)
	}

	ix := b.Build(name)
	m.indexes[name] = ix
	m.order = append(m.order, name)

	m.logger.Debug("index created", "index", name, "members", len(refs))

	return ix, m.indexAll([]ReferenceIndex[V]{ix}, refs)
}

// Get returns the index named name.
func (m *Manager[V]) Get(name string) (ReferenceIndex[V], bool) {
	ix, ok := m.indexes[name]
	return ix, ok
}

// Indexes returns every index in creation order.
func (m *Manager[V]) Indexes() []ReferenceIndex[V] {
	out := make([]ReferenceIndex[V], 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.indexes[name])
	}
	return out
}

// Reindex recomputes refs in every index. Failures are aggregated; the
// successful part of the batch is kept.
func (m *Manager[V]) Reindex(refs []*reference.Reference[V]) error {
	if len(m.indexes) == 0 {
		return nil
	}
	return m.indexAll(m.Indexes(), refs)
}

// RemoveByName drops the index named name.
func (m *Manager[V]) RemoveByName(name string) bool {
	if _, exists := m.indexes[name]; !exists {
		return false
	}
	delete(m.indexes, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	return true
}

// Remove drops ix if it is the index registered under its name.
func (m *Manager[V]) Remove(ix Index[V]) bool {
	if ix == nil {
		return false
	}
	registered, exists := m.indexes[ix.Name()]
	if !exists || any(registered) != any(ix) {
		return false
	}
	return m.RemoveByName(ix.Name())
}

// RemoveAll drops every index.
func (m *Manager[V]) RemoveAll() {
	clear(m.indexes)
	m.order = nil
}

// RemoveReference detaches ref from every index.
func (m *Manager[V]) RemoveReference(ref *reference.Reference[V]) {
	for _, ix := range m.indexes {
		ix.Remove(ref)
	}
}

// Clear empties every index but keeps them registered.
func (m *Manager[V]) Clear() {
	for _, ix := range m.indexes {
		ix.Clear()
	}
}

// Len returns the number of indexes.
func (m *Manager[V]) Len() int {
	return len(m.indexes)
}

// Copy returns a manager holding independent copies of every index.
func (m *Manager[V]) Copy() *Manager[V] {
	c := &Manager[V]{
		indexes: make(map[string]ReferenceIndex[V], len(m.indexes)),
		order:   slices.Clone(m.order),
		logger:  m.logger,
	}
	for name, ix := range m.indexes {
		c.indexes[name] = ix.Copy()
	}
	return c
}

func (m *Manager[V]) indexAll(indexes []ReferenceIndex[V], refs []*reference.Reference[V]) error {
	var failures []error
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		for _, ix := range indexes {
			if err := ix.Index(ref); err != nil {
				failures = append(failures, err)
			}
		}
	}

	err := errors.CollectIndexing(failures...)
	if err != nil {
		m.logger.Warn("indexing failed", "failures", len(failures), "error", err)
	}
	return err
}
