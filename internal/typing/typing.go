// Package typing keeps the ephemeral per-channel "is typing" markers.
// The backing store has no native TTL, so expiry is a dual-sided
// convention: writers are throttled to bound write volume under fast
// typing, and readers prune aggressively so an indicator never lingers
// long after the user stops.
package typing

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type key struct {
	channelID int
	userID    int
}

// Service holds typing markers with a fixed TTL. Each marker is written
// only by its owning user, latest value wins.
type Service struct {
	mu      sync.RWMutex
	markers map[key]time.Time
	ttl     time.Duration

	now func() time.Time
}

// NewService creates a Service whose markers expire after ttl.
func NewService(ttl time.Duration) *Service {
	return &Service{
		markers: make(map[key]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetTyping records that the user is typing in the channel. Faster calls
// than the write throttle are not rejected here; the marker timestamp is
// simply overwritten.
func (s *Service) SetTyping(channelID, userID int) {
	s.mu.Lock()
	s.markers[key{channelID, userID}] = s.now()
	s.mu.Unlock()
}

// ClearTyping drops the user's marker, e.g. when their message is sent.
func (s *Service) ClearTyping(channelID, userID int) {
	s.mu.Lock()
	delete(s.markers, key{channelID, userID})
	s.mu.Unlock()
}

// ActiveTypers returns the users typing in the channel within the TTL,
// excluding the caller, sorted by id. Stale markers are pruned on read.
func (s *Service) ActiveTypers(channelID, excludeUserID int) []int {
	now := s.now()

	s.mu.Lock()
	ids := make([]int, 0, 4)
	for k, at := range s.markers {
		if k.channelID != channelID {
			continue
		}
		if now.Sub(at) >= s.ttl {
			delete(s.markers, k)
			continue
		}
		if k.userID == excludeUserID {
			continue
		}
		ids = append(ids, k.userID)
	}
	s.mu.Unlock()

	sort.Ints(ids)
	return ids
}

// Run prunes stale markers on a fixed tick until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.prune()
		}
	}
}

func (s *Service) prune() {
	now := s.now()
	s.mu.Lock()
	for k, at := range s.markers {
		if now.Sub(at) >= s.ttl {
			delete(s.markers, k)
		}
	}
	s.mu.Unlock()
}

// Throttle bounds typing writes to one per interval per (channel, user)
// pair using per-key token buckets. Idle buckets are evicted opportunistically
// so the map stays bounded.
type Throttle struct {
	mu       sync.Mutex
	limiters map[key]*throttleEntry
	interval time.Duration

	lastGC time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle creates a Throttle allowing one write per interval per pair.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		limiters: make(map[key]*throttleEntry),
		interval: interval,
		lastGC:   time.Now(),
	}
}

// Allow reports whether a typing write for the pair should go through now.
func (t *Throttle) Allow(channelID, userID int) bool {
	k := key{channelID, userID}
	now := time.Now()

	t.mu.Lock()
	entry, ok := t.limiters[k]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.limiters[k] = entry
	}
	entry.lastSeen = now
	if now.Sub(t.lastGC) > 10*t.interval {
		for k, e := range t.limiters {
			if now.Sub(e.lastSeen) > 10*t.interval {
				delete(t.limiters, k)
			}
		}
		t.lastGC = now
	}
	t.mu.Unlock()

	return entry.limiter.Allow()
}
