package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"telequiz/internal/domain"
)

// StatsRepository stores per-user aggregates in a single JSON file keyed by
// user id, the shape the legacy store used. Save rewrites the whole file
// synchronously.
type StatsRepository struct {
	path string

	mu    sync.Mutex
	users map[int64]*domain.UserStats
}

// NewStatsRepository opens (or creates) the stats file at path.
func NewStatsRepository(path string) (*StatsRepository, error) {
	r := &StatsRepository{path: path, users: make(map[int64]*domain.UserStats)}
	if err := r.load(); err != nil {
		return nil, fmt.Errorf("load stats file: %w", err)
	}
	return r, nil
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
	prev, existed := r.users[stats.UserID]
	r.users[stats.UserID] = cloneStats(stats)
	if err := r.persistLocked(); err != nil {
		if existed {
			r.users[stats.UserID] = prev
		} else {
			delete(r.users, stats.UserID)
		}
		return err
	}
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

func (r *StatsRepository) load() error {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return r.persistLocked()
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	// Legacy files key users by the string form of their id.
	raw := make(map[string]*domain.UserStats)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, stats := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		stats.UserID = id
		r.users[id] = stats
	}
	return nil
}

func (r *StatsRepository) persistLocked() error {
	raw := make(map[string]*domain.UserStats, len(r.users))
	for id, stats := range r.users {
		raw[strconv.FormatInt(id, 10)] = stats
	}
	return writeAtomic(r.path, raw)
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
