package reference

import (
	"encoding/json"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
)

type tagged struct {
	Name string
	Tags []string
}

func TestDefaultIdentity(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"string", "john", true},
		{"int", 42, true},
		{"struct", user{ID: 1}, true},
		{"pointer", &user{ID: 1}, true},
		{"nil interface", nil, false},
		{"nil pointer", (*user)(nil), false},
		{"slice", []int{1}, false},
		{"map", map[string]int{}, false},
		{"struct holding slice", tagged{Name: "x"}, false},
	}

	provider := DefaultIdentity[any]()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := provider.Identity(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.value, id)
			}
		})
	}
}

func TestHashedIdentity(t *testing.T) {
	provider := HashedIdentity(func(v tagged) []byte {
		b, _ := json.Marshal(v)
		return b
	})

	a, ok := provider.Identity(tagged{Name: "x", Tags: []string{"a"}})
	assert.True(t, ok)
	b, _ := provider.Identity(tagged{Name: "x", Tags: []string{"a"}})
	c, _ := provider.Identity(tagged{Name: "x", Tags: []string{"b"}})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, xxhash.Sum64String(`{"Name":"x","Tags":["a"]}`), a)

	none := HashedIdentity(func(tagged) []byte { return nil })
	_, ok = none.Identity(tagged{})
	assert.False(t, ok)
}

func TestManager_WithHashedIdentity(t *testing.T) {
	m := NewManager(HashedIdentity(func(v tagged) []byte {
		b, _ := json.Marshal(v)
		return b
	}))

	first, created := m.Add(tagged{Name: "x", Tags: []string{"a"}})
	assert.True(t, created)
	second, created := m.Add(tagged{Name: "x", Tags: []string{"a"}})
	assert.False(t, created)
	assert.Same(t, first, second)
}

func TestReference_String(t *testing.T) {
	assert.Equal(t, "42", New(42).String())
	assert.Equal(t, "{1 John}", New(user{ID: 1, Name: "John"}).String())
}
