// Package presence tracks which users currently have a live session.
// State is process-local and ephemeral: a map of user id to last heartbeat,
// with no historical log.
package presence

import (
	"sort"
	"sync"
	"time"
)

// Tracker is a heartbeat-based online set. Each user's record is written
// only by that user's own requests, so there is no write contention across
// users; a session disconnect removes the record immediately instead of
// waiting for the timeout.
type Tracker struct {
	mu       sync.RWMutex
	lastSeen map[int]time.Time
	ttl      time.Duration

	now func() time.Time
}

// NewTracker creates a Tracker whose records go stale after ttl.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		lastSeen: make(map[int]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Heartbeat refreshes the user's liveness record.
func (t *Tracker) Heartbeat(userID int) {
	t.mu.Lock()
	t.lastSeen[userID] = t.now()
	t.mu.Unlock()
}

// Disconnect drops the user's record immediately so a closed session never
// lingers as online until the timeout.
func (t *Tracker) Disconnect(userID int) {
	t.mu.Lock()
	delete(t.lastSeen, userID)
	t.mu.Unlock()
}

// Online reports whether the user has a fresh heartbeat.
func (t *Tracker) Online(userID int) bool {
	t.mu.RLock()
	seen, ok := t.lastSeen[userID]
	t.mu.RUnlock()
	return ok && t.now().Sub(seen) < t.ttl
}

// OnlineSet returns the ids of all users with a fresh heartbeat, sorted.
// Stale records are pruned on the way.
func (t *Tracker) OnlineSet() []int {
	now := t.now()

	t.mu.Lock()
	ids := make([]int, 0, len(t.lastSeen))
	for id, seen := range t.lastSeen {
		if now.Sub(seen) >= t.ttl {
			delete(t.lastSeen, id)
			continue
		}
		ids = append(ids, id)
	}
	t.mu.Unlock()

	sort.Ints(ids)
	return ids
}
