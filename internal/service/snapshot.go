package service

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// snapshot is the immutable result of one full recomputation for a
// (trip, base currency) key: the netting graph plus the partial-failure
// bookkeeping. Readers share snapshots; nobody mutates one after creation.
type snapshot struct {
	graph                  *nettingGraph
	excludedPaymentIDs     []string
	inconsistentPaymentIDs []string
	computedAt             time.Time
}

func (s *snapshot) degraded() bool {
	return len(s.excludedPaymentIDs) > 0
}

// snapshotCache memoizes snapshots per (trip, base currency) with
// invalidate-then-lazily-recompute semantics. Concurrent reads for the
// same key share one recomputation through singleflight; a per-trip
// generation counter discards recomputations that raced an invalidation,
// so a stale snapshot is never stored over a fresh invalidate.
type snapshotCache struct {
	mu      sync.RWMutex
	entries map[snapshotKey]*snapshot
	gens    map[string]uint64

	group singleflight.Group
}

type snapshotKey struct {
	tripID       string
	baseCurrency string
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{
		entries: make(map[snapshotKey]*snapshot),
		gens:    make(map[string]uint64),
	}
}

// get returns the cached snapshot for key, or nil on miss.
func (c *snapshotCache) get(key snapshotKey) *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// generation returns the current invalidation generation for a trip.
func (c *snapshotCache) generation(tripID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[tripID]
}

// putIfCurrent stores a snapshot computed at generation gen unless the
// trip was invalidated in the meantime. The computed snapshot is still
// returned to the caller either way; only the memo is skipped.
func (c *snapshotCache) putIfCurrent(key snapshotKey, gen uint64, s *snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key.tripID] != gen {
		return false
	}
	c.entries[key] = s
	return true
}

// invalidateTrip drops every cached currency variant for a trip and bumps
// its generation. Safe to call at any time, any number of times, in any
// order relative to other invalidations.
func (c *snapshotCache) invalidateTrip(tripID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[tripID]++
	for key := range c.entries {
		if key.tripID == tripID {
			delete(c.entries, key)
		}
	}
}

// recompute runs fn once per key across concurrent callers and hands every
// waiter the same snapshot. A caller that abandons its request does not
// cancel the shared computation for the others.
func (c *snapshotCache) recompute(key snapshotKey, fn func() (*snapshot, error)) (*snapshot, error) {
	v, err, _ := c.group.Do(key.tripID+"\x00"+key.baseCurrency, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}
