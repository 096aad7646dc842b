// Package store provides in-memory collections with named secondary
// indexes, query evaluation, read-only and synchronized views, and
// policy-driven expiration.
//
// # Overview
//
// A store keeps one member per identity (see reference.IdentityProvider) and
// maintains every registered index as members come and go:
//
//	s, _ := store.NewMemory[*User]()
//	_, _ = s.CreateIndex("last", index.KeyMapping(func(u *User) string { return u.Last }))
//	_, _ = s.AddAll(alice, bob)
//
//	does := s.Get(query.Where("last", "Doe"))
//
// Adding a value whose identity is already present keeps the stored value
// and reindexes it, so pointer values can be mutated and re-added (or passed
// to ReindexValue) to refresh their index entries.
//
// # Variants
//
//   - Memory: the base store, for use by one goroutine
//   - Synchronized: every call holds one mutex; indexes obtained from it
//     share that mutex
//   - Immutable: a read-only view; mutators fail with errors.ErrReadOnly
//   - Expiring: Memory plus expiration policies, single-goroutine
//   - ExpiringSynchronized: Synchronized plus policies, with background
//     sweeps that hold the store lock
//
// Obtaining a synchronized view of an Expiring store fails with
// errors.ErrSynchronizationUnsupported.
//
// # Expiration
//
// A member is dropped by a sweep only when every policy reports it expired.
// TimedPolicy expires members a fixed interval after they were added or,
// with resetOnAccess, after they were last returned by a query. Policies
// implementing Periodic are swept at their interval on the store's
// Scheduler. Removals notify CauseRemoved listeners and sweeps notify
// CauseExpired listeners; the two never cross.
//
// # Observability
//
// Statistics are always collected and available via Stats(). WithMetrics
// additionally exports them through a metric.MetricsRegistry:
//
//	membase_store_adds_total{component="users"}
//	membase_store_removals_total{component="users"}
//	membase_store_expirations_total{component="users"}
//	membase_store_queries_total{component="users"}
//	membase_store_indexing_failures_total{component="users"}
//	membase_store_size{component="users"}
//	membase_store_sweep_duration_seconds{component="users"}
//
// # Configuration
//
// Config selects a variant and its expiration and metrics settings and can be
// loaded from YAML or JSON with LoadConfig:
//
//	type: expiring_synchronized
//	expiration:
//	  ttl: 30s
//	  reset_on_access: true
//	metrics:
//	  enabled: true
//	  prefix: sessions
//
// Files are checked against ConfigSchema first, so unknown keys are
// rejected rather than ignored.
package store
