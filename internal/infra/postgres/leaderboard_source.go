package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telequiz/internal/domain"
)

// LeaderboardSource is the read-only leaderboard path: one pgx query over
// the users table, separate from the bun write path.
type LeaderboardSource struct {
	pool *pgxpool.Pool
}

func NewLeaderboardSource(pool *pgxpool.Pool) *LeaderboardSource {
	return &LeaderboardSource{pool: pool}
}

func (s *LeaderboardSource) LeaderboardRows(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, current_score, total_quizzes, success_rate, current_streak
		FROM users
		WHERE total_quizzes > 0
		ORDER BY current_score DESC, success_rate DESC, current_streak DESC`)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Score, &e.TotalQuizzes, &e.SuccessRate, &e.Streak); err != nil {
			return nil, fmt.Errorf("leaderboard scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
