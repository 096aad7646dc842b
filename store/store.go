package store

import (
	"iter"

	"github.com/ThatForkyDev/membase/index"
	"github.com/ThatForkyDev/membase/query"
)

// RemovalCause tells listeners why a member left the store.
type RemovalCause int

const (
	// CauseRemoved covers explicit removals and overwrites.
	CauseRemoved RemovalCause = iota
	// CauseExpired covers members dropped by an expiration sweep.
	CauseExpired
)

func (c RemovalCause) String() string {
	switch c {
	case CauseRemoved:
		return "REMOVED"
	case CauseExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// RemovalListener receives the value that left the store.
type RemovalListener[V any] func(v V)

// Store is an in-memory collection of values with named secondary indexes.
//
// Membership is keyed by identity: adding a value whose identity is already
// present keeps the stored value and reindexes it. Mutators return an error
// so that read-only views can reject them; indexing failures come back as
// *errors.IndexError after the whole batch has been applied.
type Store[V any] interface {
	// Add inserts v and reindexes it. The result reports whether v's
	// identity was new.
	Add(v V) (bool, error)
	// AddAll inserts every value and reindexes the batch once.
	AddAll(values ...V) (bool, error)
	Remove(v V) (bool, error)
	// RemoveQuery removes every member q matches and returns them.
	RemoveQuery(q query.Query) ([]V, error)
	RemoveIf(pred func(V) bool) (bool, error)
	RetainIf(pred func(V) bool) (bool, error)
	// Clear removes every member. Indexes stay registered.
	Clear() error

	Contains(v V) bool
	Size() int
	IsEmpty() bool
	// Values returns the members in insertion order.
	Values() []V
	All() iter.Seq[V]
	Iterator() *Iterator[V]

	Get(q query.Query) []V
	// GetLimit returns at most limit matches. A negative limit disables
	// truncation.
	GetLimit(q query.Query, limit int) []V
	First(q query.Query) (V, bool)

	// CreateIndex registers an index and backfills it with every member.
	// A taken name fails before anything changes. When only the backfill
	// fails, the index is returned together with the aggregate error.
	CreateIndex(name string, b index.Builder[V]) (index.Index[V], error)
	CreateAnonymousIndex(b index.Builder[V]) (index.Index[V], error)
	Index(name string) (index.Index[V], bool)
	Indexes() []index.Index[V]
	RemoveIndex(name string) (bool, error)
	DropIndex(ix index.Index[V]) (bool, error)
	RemoveAllIndexes() error

	Reindex() error
	ReindexValue(v V) error
	ReindexValues(values ...V) error

	// Copy returns an independent store with the same members and indexes.
	Copy() Store[V]
	Immutable() Store[V]
	Synchronized() (Store[V], error)

	// OnRemoval registers fn for removals of the given cause. Listeners run
	// in registration order on the goroutine that caused the removal.
	OnRemoval(cause RemovalCause, fn RemovalListener[V])
	Stats() *Statistics
	Close() error
}
