// Package membase provides in-memory object stores with named secondary
// indexes, composable queries and policy-driven expiration.
//
// # Architecture
//
// membase is layered bottom-up; each package only depends on the ones below:
//
//	┌─────────────────────────────────────┐
//	│              store                  │  Memory, Synchronized,
//	│  (facade, views, expiration)        │  Immutable, Expiring
//	└─────────────────────────────────────┘
//	           ↓ evaluates
//	┌─────────────────────────────────────┐
//	│              query                  │  AND/OR sections over
//	│   (Where, Contains, Advanced)       │  named indexes
//	└─────────────────────────────────────┘
//	           ↓ resolves keys in
//	┌─────────────────────────────────────┐
//	│              index                  │  Key buckets, reducers,
//	│  (definitions, policies, manager)   │  comparison policies
//	└─────────────────────────────────────┘
//	           ↓ holds
//	┌─────────────────────────────────────┐
//	│            reference                │  One reference per
//	│   (identity, reference manager)     │  identity
//	└─────────────────────────────────────┘
//
// Supporting packages:
//   - errors: classified errors (transient, invalid, fatal) and the
//     aggregated IndexError returned by batch operations
//   - metric: Prometheus registry and HTTP exporter used by WithMetrics
//   - pkg/linkedset: insertion-ordered set shared by the layers above
//
// # Quick Start
//
//	users, err := store.NewBuilder[*User]().
//		WithIndex("email", index.KeyMapping(func(u *User) string { return u.Email }).
//			WithComparisonPolicy(index.CaseInsensitive[string]())).
//		WithIndex("role", index.KeyMappings(func(u *User) []string { return u.Roles })).
//		WithValues(alice, bob).
//		Build()
//	if err != nil {
//		return err
//	}
//
//	admins := users.Get(query.Contains("role", "admin"))
//	alice, ok := users.First(query.Where("email", "ALICE@example.com"))
//
// Expiring stores drop members once every policy agrees:
//
//	sessions, _ := store.NewExpiringSynchronized[*Session]()
//	_ = sessions.AddPolicy(store.NewTimedPolicy[*Session](30*time.Minute, true, nil))
//	sessions.OnRemoval(store.CauseExpired, func(s *Session) { log.Info("session expired", "id", s.ID) })
//
// # Command Line
//
// cmd/membase loads JSON or YAML fixtures into a store for ad-hoc queries
// and expiration runs:
//
//	membase query people.yaml 'last=Doe & age=21 | tags~admin' --id id
//	membase watch sessions.yaml --ttl 30s --metrics-addr :9090
package membase
