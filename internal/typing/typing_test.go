package typing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActiveTypersExcludesCaller(t *testing.T) {
	svc := NewService(5 * time.Second)

	svc.SetTyping(5, 1)
	svc.SetTyping(5, 2)
	svc.SetTyping(6, 3)

	assert.Equal(t, []int{2}, svc.ActiveTypers(5, 1))
	assert.Equal(t, []int{1, 2}, svc.ActiveTypers(5, 0))
}

func TestActiveTypersPrunesStale(t *testing.T) {
	svc := NewService(5 * time.Second)
	base := time.Now()
	svc.now = func() time.Time { return base }

	svc.SetTyping(5, 1)
	svc.now = func() time.Time { return base.Add(4 * time.Second) }
	svc.SetTyping(5, 2)

	svc.now = func() time.Time { return base.Add(6 * time.Second) }
	assert.Equal(t, []int{2}, svc.ActiveTypers(5, 0))

	// The stale marker is gone from the store, not just filtered.
	svc.mu.RLock()
	_, ok := svc.markers[key{5, 1}]
	svc.mu.RUnlock()
	assert.False(t, ok)
}

func TestClearTyping(t *testing.T) {
	svc := NewService(5 * time.Second)

	svc.SetTyping(5, 1)
	svc.ClearTyping(5, 1)
	assert.Empty(t, svc.ActiveTypers(5, 0))
}

func TestSetTypingOverwrites(t *testing.T) {
	svc := NewService(5 * time.Second)
	base := time.Now()
	svc.now = func() time.Time { return base }

	svc.SetTyping(5, 1)
	svc.now = func() time.Time { return base.Add(4 * time.Second) }
	svc.SetTyping(5, 1)

	// The refreshed marker survives past the original one's expiry.
	svc.now = func() time.Time { return base.Add(8 * time.Second) }
	assert.Equal(t, []int{1}, svc.ActiveTypers(5, 0))
}

func TestPrune(t *testing.T) {
	svc := NewService(5 * time.Second)
	base := time.Now()
	svc.now = func() time.Time { return base }

	svc.SetTyping(5, 1)
	svc.SetTyping(6, 2)

	svc.now = func() time.Time { return base.Add(10 * time.Second) }
	svc.prune()

	svc.mu.RLock()
	remaining := len(svc.markers)
	svc.mu.RUnlock()
	assert.Zero(t, remaining)
}

func TestThrottleAllowsOncePerInterval(t *testing.T) {
	throttle := NewThrottle(time.Minute)

	assert.True(t, throttle.Allow(5, 1))
	assert.False(t, throttle.Allow(5, 1))

	// Other pairs have their own budget.
	assert.True(t, throttle.Allow(5, 2))
	assert.True(t, throttle.Allow(6, 1))
}
