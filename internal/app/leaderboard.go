package app

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"telequiz/internal/domain"
)

// StatsSource yields one leaderboard row per user with at least one
// attempt. The view owns ordering; sources may return rows in any order.
type StatsSource interface {
	LeaderboardRows(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// LeaderboardCache holds a computed ranking with a short TTL. Get reports a
// miss both when the value is absent and when it has gone stale.
type LeaderboardCache interface {
	Get(ctx context.Context) ([]domain.LeaderboardEntry, bool)
	Set(ctx context.Context, entries []domain.LeaderboardEntry)
	Invalidate(ctx context.Context)
}

// LeaderboardView derives the ranked list from current aggregate stats,
// caching it briefly to bound recomputation on read-heavy dashboards. Every
// ledger write invalidates the cache eagerly; the TTL only bounds staleness
// for out-of-band mutations.
type LeaderboardView struct {
	source StatsSource
	cache  LeaderboardCache
	logger *zap.Logger
	sf     singleflight.Group
}

func NewLeaderboardView(source StatsSource, cache LeaderboardCache, logger *zap.Logger) *LeaderboardView {
	return &LeaderboardView{source: source, cache: cache, logger: logger}
}

// Rank returns a page of the ranking plus the total number of ranked users.
func (v *LeaderboardView) Rank(ctx context.Context, limit, offset int) ([]domain.LeaderboardEntry, int, error) {
	entries, err := v.snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(entries)
	if offset >= total || offset < 0 {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([]domain.LeaderboardEntry, end-offset)
	copy(page, entries[offset:end])
	return page, total, nil
}

// RankFor returns the 1-based position of a user. Users with zero attempts
// are excluded from the ranking entirely; ok is false for them.
func (v *LeaderboardView) RankFor(ctx context.Context, userID int64) (int, bool, error) {
	entries, err := v.snapshot(ctx)
	if err != nil {
		return 0, false, err
	}
	for i, e := range entries {
		if e.UserID == userID {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

// Snapshot returns the full current ranking.
func (v *LeaderboardView) Snapshot(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return v.snapshot(ctx)
}

// Invalidate drops the cached ranking. Called by the ledger after every
// stats mutation.
func (v *LeaderboardView) Invalidate(ctx context.Context) {
	v.cache.Invalidate(ctx)
}

func (v *LeaderboardView) snapshot(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	if entries, ok := v.cache.Get(ctx); ok {
		return entries, nil
	}

	result, err, _ := v.sf.Do("leaderboard", func() (interface{}, error) {
		if entries, ok := v.cache.Get(ctx); ok {
			return entries, nil
		}
		rows, err := v.source.LeaderboardRows(ctx)
		if err != nil {
			return nil, err
		}
		entries := rankRows(rows)
		v.cache.Set(ctx, entries)
		v.logger.Debug("leaderboard recomputed", zap.Int("entries", len(entries)))
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

func rankRows(rows []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		if r.TotalQuizzes > 0 {
			entries = append(entries, r)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].SuccessRate != entries[j].SuccessRate {
			return entries[i].SuccessRate > entries[j].SuccessRate
		}
		return entries[i].Streak > entries[j].Streak
	})
	return entries
}

// RepositorySource adapts a StatsRepository into a StatsSource for
// deployments without a dedicated read path.
type RepositorySource struct {
	stats StatsRepository
}

func NewRepositorySource(stats StatsRepository) *RepositorySource {
	return &RepositorySource{stats: stats}
}

func (s *RepositorySource) LeaderboardRows(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	all, err := s.stats.All(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.LeaderboardEntry, 0, len(all))
	for _, u := range all {
		rows = append(rows, domain.LeaderboardEntry{
			UserID:       u.UserID,
			Score:        u.CurrentScore,
			TotalQuizzes: u.TotalQuizzes,
			SuccessRate:  u.SuccessRate,
			Streak:       u.CurrentStreak,
		})
	}
	return rows, nil
}
