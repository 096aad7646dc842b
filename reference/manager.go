package reference

import "github.com/ThatForkyDev/membase/pkg/linkedset"

// Manager maps identities to references. It is the single owner of store
// membership and keeps references in insertion order.
type Manager[V any] struct {
	identity IdentityProvider[V]
	byID     map[any]*Reference[V]
	order    *linkedset.Set[*Reference[V]]
}

// NewManager creates an empty manager. A nil provider selects DefaultIdentity.
func NewManager[V any](identity IdentityProvider[V]) *Manager[V] {
	if identity == nil {
		identity = DefaultIdentity[V]()
	}
	return &Manager[V]{
		identity: identity,
		byID:     make(map[any]*Reference[V]),
		order:    linkedset.New[*Reference[V]](),
	}
}

// Add returns the reference for v's identity, creating it when the identity
// is new. The second result reports whether a reference was created. Values
// without identity yield (nil, false). An existing reference is returned
// unchanged.
func (m *Manager[V]) Add(v V) (*Reference[V], bool) {
	id, ok := m.identity.Identity(v)
	if !ok {
		return nil, false
	}

	if stored, exists := m.byID[id]; exists {
		return stored, false
	}

	ref := New(v)
	m.byID[id] = ref
	m.order.Add(ref)
	return ref, true
}

// Remove drops v's reference and returns it.
func (m *Manager[V]) Remove(v V) (*Reference[V], bool) {
	id, ok := m.identity.Identity(v)
	if !ok {
		return nil, false
	}

	ref, exists := m.byID[id]
	if !exists {
		return nil, false
	}
	delete(m.byID, id)
	m.order.Remove(ref)
	return ref, true
}

// RemoveReference drops ref if it is still the reference held for its value.
func (m *Manager[V]) RemoveReference(ref *Reference[V]) bool {
	if !m.order.Remove(ref) {
		return false
	}

	if id, ok := m.identity.Identity(ref.value); ok && m.byID[id] == ref {
		delete(m.byID, id)
		return true
	}

	// The value's identity drifted since it was added.
	for id, stored := range m.byID {
		if stored == ref {
			delete(m.byID, id)
			break
		}
	}
	return true
}

// Find returns the reference stored for v's identity.
func (m *Manager[V]) Find(v V) (*Reference[V], bool) {
	id, ok := m.identity.Identity(v)
	if !ok {
		return nil, false
	}
	ref, exists := m.byID[id]
	return ref, exists
}

// Owns reports whether ref is a current member.
func (m *Manager[V]) Owns(ref *Reference[V]) bool {
	return m.order.Contains(ref)
}

// Size returns the number of members.
func (m *Manager[V]) Size() int {
	return len(m.byID)
}

// Clear removes every member.
func (m *Manager[V]) Clear() {
	clear(m.byID)
	m.order.Clear()
}

// References returns a snapshot of the members in insertion order.
func (m *Manager[V]) References() []*Reference[V] {
	return m.order.Values()
}

// Identity returns the provider in use.
func (m *Manager[V]) Identity() IdentityProvider[V] {
	return m.identity
}

// Copy returns a manager with independent maps that shares the reference
// instances and identity provider.
func (m *Manager[V]) Copy() *Manager[V] {
	byID := make(map[any]*Reference[V], len(m.byID))
	for id, ref := range m.byID {
		byID[id] = ref
	}
	return &Manager[V]{
		identity: m.identity,
		byID:     byID,
		order:    m.order.Clone(),
	}
}
