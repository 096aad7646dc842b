package index

import (
	"reflect"
	"strings"
	"time"
)

// ComparisonPolicy normalizes keys before they are stored or looked up.
// Keys whose dynamic type is not supported are skipped when indexing and
// never match on lookup.
type ComparisonPolicy[K any] interface {
	Supports(t reflect.Type) bool
	Normalize(key K) K
}

type defaultPolicy[K any] struct{}

// DefaultPolicy accepts every key unchanged.
func DefaultPolicy[K any]() ComparisonPolicy[K] {
	return defaultPolicy[K]{}
}

func (defaultPolicy[K]) Supports(reflect.Type) bool { return true }

func (defaultPolicy[K]) Normalize(key K) K { return key }

type caseInsensitivePolicy[K any] struct{}

// CaseInsensitive folds string keys to lower case. Only string kinds are
// supported, including named string types.
func CaseInsensitive[K any]() ComparisonPolicy[K] {
	return caseInsensitivePolicy[K]{}
}

func (caseInsensitivePolicy[K]) Supports(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.String
}

func (caseInsensitivePolicy[K]) Normalize(key K) K {
	rv := reflect.ValueOf(any(key))
	if rv.Kind() != reflect.String {
		return key
	}
	lowered := reflect.ValueOf(strings.ToLower(rv.String())).Convert(rv.Type())
	return lowered.Interface().(K)
}

var timeType = reflect.TypeOf(time.Time{})

type utcPolicy[K any] struct{}

// UTC normalizes time.Time keys to the same instant in UTC so that equal
// instants in different zones share a bucket. The monotonic reading is
// dropped.
func UTC[K any]() ComparisonPolicy[K] {
	return utcPolicy[K]{}
}

func (utcPolicy[K]) Supports(t reflect.Type) bool {
	return t == timeType
}

func (utcPolicy[K]) Normalize(key K) K {
	ts, ok := any(key).(time.Time)
	if !ok {
		return key
	}
	return any(ts.UTC().Round(0)).(K)
}
