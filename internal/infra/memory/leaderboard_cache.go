package memory

import (
	"context"
	"sync"
	"time"

	"telequiz/internal/domain"
)

// LeaderboardCache is an in-process implementation of app.LeaderboardCache
// with an explicit {value, computed_at, ttl} shape.
type LeaderboardCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu         sync.RWMutex
	entries    []domain.LeaderboardEntry
	computedAt time.Time
	valid      bool
}

func NewLeaderboardCache(ttl time.Duration) *LeaderboardCache {
	return NewLeaderboardCacheWithClock(ttl, time.Now)
}

// NewLeaderboardCacheWithClock allows deterministic TTL tests.
func NewLeaderboardCacheWithClock(ttl time.Duration, clock func() time.Time) *LeaderboardCache {
	return &LeaderboardCache{ttl: ttl, clock: clock}
}

func (c *LeaderboardCache) Get(_ context.Context) ([]domain.LeaderboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.clock().Sub(c.computedAt) > c.ttl {
		return nil, false
	}
	out := make([]domain.LeaderboardEntry, len(c.entries))
	copy(out, c.entries)
	return out, true
}

func (c *LeaderboardCache) Set(_ context.Context, entries []domain.LeaderboardEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append([]domain.LeaderboardEntry(nil), entries...)
	c.computedAt = c.clock()
	c.valid = true
}

func (c *LeaderboardCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.valid = false
}
