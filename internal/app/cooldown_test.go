package app

import (
	"testing"
	"time"
)

func TestCooldownAllow(t *testing.T) {
	clock := &fixedClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	cd := newCommandCooldownWithClock(10*time.Second, 100, clock.now)

	if !cd.Allow(1, "quiz") {
		t.Fatalf("first call must be allowed")
	}
	if cd.Allow(1, "quiz") {
		t.Fatalf("call within the window must be blocked")
	}
	// A different command or user has its own window.
	if !cd.Allow(1, "leaderboard") || !cd.Allow(2, "quiz") {
		t.Fatalf("windows must be per (user, command)")
	}

	clock.advance(11 * time.Second)
	if !cd.Allow(1, "quiz") {
		t.Fatalf("call after the window must be allowed")
	}
}

func TestCooldownSweep(t *testing.T) {
	clock := &fixedClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	cd := newCommandCooldownWithClock(10*time.Second, 100, clock.now)

	cd.Allow(1, "quiz")
	cd.Allow(2, "quiz")
	clock.advance(5 * time.Second)
	cd.Allow(3, "quiz")

	clock.advance(6 * time.Second)
	if removed := cd.Sweep(); removed != 2 {
		t.Fatalf("expected 2 swept, got %d", removed)
	}
	if cd.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", cd.Len())
	}
}

func TestCooldownBounded(t *testing.T) {
	clock := &fixedClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	cd := newCommandCooldownWithClock(time.Hour, 5, clock.now)

	for i := int64(0); i < 20; i++ {
		clock.advance(time.Second)
		cd.Allow(i, "quiz")
	}
	if cd.Len() > 5 {
		t.Fatalf("map must stay bounded at the cap, len=%d", cd.Len())
	}
	// The newest entry survives eviction.
	if cd.Allow(19, "quiz") {
		t.Fatalf("newest entry must still be on cooldown")
	}
}
