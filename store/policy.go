package store

import (
	"time"

	"github.com/benbjohnson/clock"
)

// ExpirationData is the per-member state a policy keeps.
type ExpirationData interface {
	// Clone returns an independent copy for a copied store.
	Clone() ExpirationData
}

// Policy decides when a member of an expiring store has expired. A member
// expires only when every policy of its store agrees.
type Policy[V any] interface {
	// Key names the policy kind.
	Key() string
	// NewData creates the state tracked for v. Nil means none.
	NewData(v V) ExpirationData
	// Expired reports whether v may be dropped. data is nil only for
	// nullable policies.
	Expired(v V, data ExpirationData) bool
	// OnAccess runs for every member returned by a query.
	OnAccess(v V, data ExpirationData)
	// Nullable reports whether the policy works without data. Non-nullable
	// policies get their data created on first access when it is missing.
	Nullable() bool
}

// Periodic is implemented by policies that need a sweep every Interval.
type Periodic interface {
	Interval() time.Duration
}

// TimedPolicy expires members that have not been fetched for an interval.
type TimedPolicy[V any] struct {
	clock         clock.Clock
	interval      time.Duration
	resetOnAccess bool
}

// NewTimedPolicy creates a timed policy. With resetOnAccess every query hit
// restarts the member's interval; otherwise members expire a fixed time
// after they were added. A nil clock selects the wall clock.
func NewTimedPolicy[V any](interval time.Duration, resetOnAccess bool, clk clock.Clock) *TimedPolicy[V] {
	if clk == nil {
		clk = clock.New()
	}
	return &TimedPolicy[V]{clock: clk, interval: interval, resetOnAccess: resetOnAccess}
}

func (p *TimedPolicy[V]) Key() string {
	return "timed"
}

func (p *TimedPolicy[V]) Interval() time.Duration {
	return p.interval
}

func (p *TimedPolicy[V]) ResetOnAccess() bool {
	return p.resetOnAccess
}

func (p *TimedPolicy[V]) NewData(V) ExpirationData {
	return &TimedData{lastFetched: p.clock.Now()}
}

// Expired reports whether at least one interval passed since the last fetch.
func (p *TimedPolicy[V]) Expired(_ V, data ExpirationData) bool {
	d, ok := data.(*TimedData)
	if !ok {
		return false
	}
	return p.clock.Since(d.lastFetched) >= p.interval
}

func (p *TimedPolicy[V]) OnAccess(_ V, data ExpirationData) {
	if !p.resetOnAccess {
		return
	}
	if d, ok := data.(*TimedData); ok {
		d.lastFetched = p.clock.Now()
	}
}

func (p *TimedPolicy[V]) Nullable() bool {
	return false
}

// TimedData records when a member was last fetched.
type TimedData struct {
	lastFetched time.Time
}

func (d *TimedData) LastFetched() time.Time {
	return d.lastFetched
}

func (d *TimedData) Clone() ExpirationData {
	c := *d
	return &c
}
