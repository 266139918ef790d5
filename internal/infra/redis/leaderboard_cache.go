// Package redis holds the redis-backed leaderboard cache used when several
// bot processes should share one computed ranking.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telequiz/internal/domain"
)

const leaderboardKey = "quiz:leaderboard"

// LeaderboardCache implements app.LeaderboardCache on Redis: one JSON value
// with a short TTL, deleted eagerly on invalidation.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl, logger: logger}
}

func (c *LeaderboardCache) Get(ctx context.Context) ([]domain.LeaderboardEntry, bool) {
	data, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("leaderboard cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("leaderboard cache decode failed", zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) Set(ctx context.Context, entries []domain.LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("leaderboard cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, leaderboardKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("leaderboard cache write failed", zap.Error(err))
	}
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, leaderboardKey).Err(); err != nil {
		c.logger.Warn("leaderboard cache invalidate failed", zap.Error(err))
	}
}
