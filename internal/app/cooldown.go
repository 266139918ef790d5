package app

import (
	"sync"
	"time"
)

// CommandCooldown rate-limits commands per (user, command) pair. The map is
// bounded: expired entries are swept on a timer and the oldest entry is
// evicted when the hard cap is hit, so it can never grow without limit.
type CommandCooldown struct {
	interval time.Duration
	cap      int
	now      func() time.Time

	mu      sync.Mutex
	entries map[cooldownKey]time.Time
}

type cooldownKey struct {
	userID  int64
	command string
}

func NewCommandCooldown(interval time.Duration, maxEntries int) *CommandCooldown {
	return newCommandCooldownWithClock(interval, maxEntries, time.Now)
}

func newCommandCooldownWithClock(interval time.Duration, maxEntries int, now func() time.Time) *CommandCooldown {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &CommandCooldown{
		interval: interval,
		cap:      maxEntries,
		now:      now,
		entries:  make(map[cooldownKey]time.Time),
	}
}

// Allow reports whether the user may run the command now and, if so, starts
// a new cooldown window.
func (c *CommandCooldown) Allow(userID int64, command string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := cooldownKey{userID: userID, command: command}
	if last, ok := c.entries[key]; ok && now.Sub(last) < c.interval {
		return false
	}
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.cap {
		c.evictOldestLocked()
	}
	c.entries[key] = now
	return true
}

// Sweep drops entries whose window has passed and returns how many were
// removed. Run it periodically.
func (c *CommandCooldown) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.interval)
	removed := 0
	for key, last := range c.entries {
		if last.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live cooldown entries.
func (c *CommandCooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CommandCooldown) evictOldestLocked() {
	var oldestKey cooldownKey
	var oldest time.Time
	first := true
	for key, last := range c.entries {
		if first || last.Before(oldest) {
			oldestKey, oldest = key, last
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
