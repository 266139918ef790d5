package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telequiz/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*LeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLeaderboardCache(client, ttl, zap.NewNop()), mr
}

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, ok := cache.Get(ctx); ok {
		t.Fatalf("expected miss on empty cache")
	}

	entries := []domain.LeaderboardEntry{
		{UserID: 7, Score: 12, TotalQuizzes: 15, SuccessRate: 80, Streak: 3},
		{UserID: 9, Score: 8, TotalQuizzes: 10, SuccessRate: 80, Streak: 1},
	}
	cache.Set(ctx, entries)
	if !mr.Exists("quiz:leaderboard") {
		t.Fatalf("expected redis key to be set")
	}

	got, ok := cache.Get(ctx)
	if !ok {
		t.Fatalf("expected hit after Set")
	}
	if len(got) != 2 || got[0].UserID != 7 || got[1].Score != 8 {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestLeaderboardCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, []domain.LeaderboardEntry{{UserID: 1, Score: 1, TotalQuizzes: 1, SuccessRate: 100, Streak: 1}})
	mr.FastForward(2 * time.Minute)

	if _, ok := cache.Get(ctx); ok {
		t.Fatalf("expected miss after TTL elapsed")
	}
}

func TestLeaderboardCacheInvalidate(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, []domain.LeaderboardEntry{{UserID: 1, Score: 1, TotalQuizzes: 1, SuccessRate: 100, Streak: 1}})
	cache.Invalidate(ctx)

	if mr.Exists("quiz:leaderboard") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := cache.Get(ctx); ok {
		t.Fatalf("expected miss after invalidation")
	}
}
