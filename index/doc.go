// Package index maintains secondary indexes over store references.
//
// A ReferenceIndex maps each reference to the keys its key mapper derives
// and keeps, per key, a bucket of members. Both directions are updated
// together: a reference sits in bucket k exactly when k is one of its keys.
//
// Keys pass through a ComparisonPolicy before they are stored or looked up,
// so a case-insensitive index finds "JOHN" under "john". A Reducer can hide
// members that collide on a key, for example keeping only the newest two or
// only the youngest person per last name:
//
//	byLast := index.KeyMapping(func(p Person) string { return p.Last }).
//		WithComparisonPolicy(index.CaseInsensitive[string]()).
//		WithReducer(index.Min[string](func(p Person) int { return p.Age }))
//
// Hidden members stay in the bucket. When a visible member leaves, the
// reducer runs again over every remaining member and may reveal them.
//
// Indexes are not safe for concurrent use; the store package provides
// locking decorators.
package index
