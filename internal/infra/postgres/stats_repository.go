package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"telequiz/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID          int64     `bun:"user_id,pk"`
	TotalQuizzes    int       `bun:"total_quizzes,notnull"`
	CorrectAnswers  int       `bun:"correct_answers,notnull"`
	WrongAnswers    int       `bun:"wrong_answers,notnull"`
	SuccessRate     float64   `bun:"success_rate,notnull"`
	CurrentScore    int       `bun:"current_score,notnull"`
	CurrentStreak   int       `bun:"current_streak,notnull"`
	LongestStreak   int       `bun:"longest_streak,notnull"`
	LastCorrectDate string    `bun:"last_correct_date,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

type groupStatsRow struct {
	bun.BaseModel `bun:"table:group_stats,alias:g"`

	UserID          int64  `bun:"user_id,pk"`
	ChatID          int64  `bun:"chat_id,pk"`
	TotalQuizzes    int    `bun:"total_quizzes,notnull"`
	CorrectAnswers  int    `bun:"correct_answers,notnull"`
	WrongAnswers    int    `bun:"wrong_answers,notnull"`
	Score           int    `bun:"score,notnull"`
	CurrentStreak   int    `bun:"current_streak,notnull"`
	LongestStreak   int    `bun:"longest_streak,notnull"`
	LastCorrectDate string `bun:"last_correct_date,notnull"`
	LastActiveDate  string `bun:"last_activity_date,notnull"`
}

// StatsRepository implements app.StatsRepository on Postgres. Save runs in
// one transaction so an answer's user row and group rows land atomically.
type StatsRepository struct {
	db *bun.DB
}

func NewStatsRepository(db *bun.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Get(ctx context.Context, userID int64) (*domain.UserStats, error) {
	var row userRow
	err := r.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user stats: %w", err)
	}

	var groups []groupStatsRow
	if err := r.db.NewSelect().Model(&groups).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("get group stats: %w", err)
	}
	return fromRows(row, groups), nil
}

func (r *StatsRepository) Save(ctx context.Context, stats *domain.UserStats) error {
	row := toUserRow(stats)
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(&row).
			On("CONFLICT (user_id) DO UPDATE").
			Set("total_quizzes = EXCLUDED.total_quizzes").
			Set("correct_answers = EXCLUDED.correct_answers").
			Set("wrong_answers = EXCLUDED.wrong_answers").
			Set("success_rate = EXCLUDED.success_rate").
			Set("current_score = EXCLUDED.current_score").
			Set("current_streak = EXCLUDED.current_streak").
			Set("longest_streak = EXCLUDED.longest_streak").
			Set("last_correct_date = EXCLUDED.last_correct_date").
			Set("updated_at = now()").
			Exec(ctx); err != nil {
			return fmt.Errorf("save user stats: %w", err)
		}

		for chatID, g := range stats.Groups {
			grow := toGroupRow(stats.UserID, chatID, g)
			if _, err := tx.NewInsert().
				Model(&grow).
				On("CONFLICT (user_id, chat_id) DO UPDATE").
				Set("total_quizzes = EXCLUDED.total_quizzes").
				Set("correct_answers = EXCLUDED.correct_answers").
				Set("wrong_answers = EXCLUDED.wrong_answers").
				Set("score = EXCLUDED.score").
				Set("current_streak = EXCLUDED.current_streak").
				Set("longest_streak = EXCLUDED.longest_streak").
				Set("last_correct_date = EXCLUDED.last_correct_date").
				Set("last_activity_date = EXCLUDED.last_activity_date").
				Exec(ctx); err != nil {
				return fmt.Errorf("save group stats: %w", err)
			}
		}
		return nil
	})
}

func (r *StatsRepository) All(ctx context.Context) ([]*domain.UserStats, error) {
	var rows []userRow
	if err := r.db.NewSelect().Model(&rows).Order("user_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list user stats: %w", err)
	}
	var groups []groupStatsRow
	if err := r.db.NewSelect().Model(&groups).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list group stats: %w", err)
	}

	byUser := make(map[int64][]groupStatsRow)
	for _, g := range groups {
		byUser[g.UserID] = append(byUser[g.UserID], g)
	}
	out := make([]*domain.UserStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRows(row, byUser[row.UserID]))
	}
	return out, nil
}

func toUserRow(stats *domain.UserStats) userRow {
	return userRow{
		UserID:          stats.UserID,
		TotalQuizzes:    stats.TotalQuizzes,
		CorrectAnswers:  stats.CorrectAnswers,
		WrongAnswers:    stats.WrongAnswers,
		SuccessRate:     stats.SuccessRate,
		CurrentScore:    stats.CurrentScore,
		CurrentStreak:   stats.CurrentStreak,
		LongestStreak:   stats.LongestStreak,
		LastCorrectDate: stats.LastCorrectDate,
	}
}

func toGroupRow(userID, chatID int64, g *domain.GroupStats) groupStatsRow {
	return groupStatsRow{
		UserID:          userID,
		ChatID:          chatID,
		TotalQuizzes:    g.TotalQuizzes,
		CorrectAnswers:  g.CorrectAnswers,
		WrongAnswers:    g.WrongAnswers,
		Score:           g.Score,
		CurrentStreak:   g.CurrentStreak,
		LongestStreak:   g.LongestStreak,
		LastCorrectDate: g.LastCorrectDate,
		LastActiveDate:  g.LastActiveDate,
	}
}

func fromRows(row userRow, groups []groupStatsRow) *domain.UserStats {
	stats := &domain.UserStats{
		UserID:          row.UserID,
		TotalQuizzes:    row.TotalQuizzes,
		CorrectAnswers:  row.CorrectAnswers,
		WrongAnswers:    row.WrongAnswers,
		SuccessRate:     row.SuccessRate,
		CurrentScore:    row.CurrentScore,
		CurrentStreak:   row.CurrentStreak,
		LongestStreak:   row.LongestStreak,
		LastCorrectDate: row.LastCorrectDate,
	}
	for _, g := range groups {
		stats.Group(g.ChatID)
		stats.Groups[g.ChatID] = &domain.GroupStats{
			TotalQuizzes:    g.TotalQuizzes,
			CorrectAnswers:  g.CorrectAnswers,
			WrongAnswers:    g.WrongAnswers,
			Score:           g.Score,
			CurrentStreak:   g.CurrentStreak,
			LongestStreak:   g.LongestStreak,
			LastCorrectDate: g.LastCorrectDate,
			LastActiveDate:  g.LastActiveDate,
		}
	}
	return stats
}
