package store

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/puzpuzpuz/xsync/v3"
)

// Statistics tracks store activity. Safe for concurrent use.
type Statistics struct {
	adds             *xsync.Counter
	updates          *xsync.Counter
	removals         *xsync.Counter
	expirations      *xsync.Counter
	queries          *xsync.Counter
	indexingFailures *xsync.Counter

	clock clock.Clock

	// Protected by mutex
	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return newStatistics(clock.New())
}

func newStatistics(clk clock.Clock) *Statistics {
	return &Statistics{
		adds:             xsync.NewCounter(),
		updates:          xsync.NewCounter(),
		removals:         xsync.NewCounter(),
		expirations:      xsync.NewCounter(),
		queries:          xsync.NewCounter(),
		indexingFailures: xsync.NewCounter(),
		clock:            clk,
		startTime:        clk.Now(),
	}
}

// Add records a value whose identity was new.
func (s *Statistics) Add() {
	s.adds.Inc()
}

// Update records an add for an identity that was already present.
func (s *Statistics) Update() {
	s.updates.Inc()
}

// Removal records an explicit removal.
func (s *Statistics) Removal() {
	s.removals.Inc()
}

// Expiration records a member dropped by a sweep.
func (s *Statistics) Expiration() {
	s.expirations.Inc()
}

// Query records an evaluated query.
func (s *Statistics) Query() {
	s.queries.Inc()
}

// IndexingFailures records n key mapper failures.
func (s *Statistics) IndexingFailures(n int) {
	if n > 0 {
		s.indexingFailures.Add(int64(n))
	}
}

// UpdateSize updates the current member count.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Adds returns the number of values added under a new identity.
func (s *Statistics) Adds() int64 {
	return s.adds.Value()
}

// Updates returns the number of adds that hit an existing identity.
func (s *Statistics) Updates() int64 {
	return s.updates.Value()
}

// Removals returns the number of explicit removals.
func (s *Statistics) Removals() int64 {
	return s.removals.Value()
}

// Expirations returns the number of expired members.
func (s *Statistics) Expirations() int64 {
	return s.expirations.Value()
}

// Queries returns the number of evaluated queries.
func (s *Statistics) Queries() int64 {
	return s.queries.Value()
}

// IndexingFailureCount returns the number of key mapper failures.
func (s *Statistics) IndexingFailureCount() int64 {
	return s.indexingFailures.Value()
}

// CurrentSize returns the current number of members.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the largest member count seen.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Uptime returns how long the store has been running.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock.Since(s.startTime)
}

// Reset resets all statistics to zero.
func (s *Statistics) Reset() {
	s.adds.Reset()
	s.updates.Reset()
	s.removals.Reset()
	s.expirations.Reset()
	s.queries.Reset()
	s.indexingFailures.Reset()

	s.mu.Lock()
	s.startTime = s.clock.Now()
	s.currentSize = 0
	s.maxSize = 0
	s.mu.Unlock()
}

// StatsSummary is a point-in-time snapshot of Statistics.
type StatsSummary struct {
	Adds             int64         `json:"adds" yaml:"adds"`
	Updates          int64         `json:"updates" yaml:"updates"`
	Removals         int64         `json:"removals" yaml:"removals"`
	Expirations      int64         `json:"expirations" yaml:"expirations"`
	Queries          int64         `json:"queries" yaml:"queries"`
	IndexingFailures int64         `json:"indexing_failures" yaml:"indexing_failures"`
	CurrentSize      int64         `json:"current_size" yaml:"current_size"`
	MaxSize          int64         `json:"max_size" yaml:"max_size"`
	Uptime           time.Duration `json:"uptime" yaml:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Adds:             s.Adds(),
		Updates:          s.Updates(),
		Removals:         s.Removals(),
		Expirations:      s.Expirations(),
		Queries:          s.Queries(),
		IndexingFailures: s.IndexingFailureCount(),
		CurrentSize:      s.CurrentSize(),
		MaxSize:          s.MaxSize(),
		Uptime:           s.Uptime(),
	}
}
