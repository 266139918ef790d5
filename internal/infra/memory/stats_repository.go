package memory

import (
	"context"
	"sync"

	"telequiz/internal/domain"
)

// StatsRepository is an in-memory implementation of app.StatsRepository.
// Get and All return deep copies so callers can mutate freely before Save.
type StatsRepository struct {
	mu    sync.Mutex
	users map[int64]*domain.UserStats
}

func NewStatsRepository() *StatsRepository {
	return &StatsRepository{users: make(map[int64]*domain.UserStats)}
}

func (r *StatsRepository) Get(_ context.Context, userID int64) (*domain.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	return cloneStats(stats), nil
}

func (r *StatsRepository) Save(_ context.Context, stats *domain.UserStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[stats.UserID] = cloneStats(stats)
	return nil
}

func (r *StatsRepository) All(_ context.Context) ([]*domain.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.UserStats, 0, len(r.users))
	for _, stats := range r.users {
		out = append(out, cloneStats(stats))
	}
	return out, nil
}

func cloneStats(stats *domain.UserStats) *domain.UserStats {
	clone := *stats
	if stats.Groups != nil {
		clone.Groups = make(map[int64]*domain.GroupStats, len(stats.Groups))
		for chatID, g := range stats.Groups {
			gc := *g
			clone.Groups[chatID] = &gc
		}
	}
	return &clone
}
