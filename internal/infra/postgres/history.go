package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type historyRow struct {
	bun.BaseModel `bun:"table:quiz_history,alias:h"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	ChatID       int64     `bun:"chat_id,notnull"`
	QuestionID   int64     `bun:"question_id"`
	ChosenIndex  int       `bun:"chosen_index,notnull"`
	CorrectIndex int       `bun:"correct_index,notnull"`
	IsCorrect    bool      `bun:"is_correct,notnull"`
	AnsweredAt   time.Time `bun:"answered_at,notnull"`
}

// HistoryRecorder appends quiz_history rows, one per recorded answer.
type HistoryRecorder struct {
	db *bun.DB
}

func NewHistoryRecorder(db *bun.DB) *HistoryRecorder {
	return &HistoryRecorder{db: db}
}

func (r *HistoryRecorder) RecordAnswer(ctx context.Context, userID, chatID, questionID int64, chosenIndex, correctIndex int, isCorrect bool, answeredAt time.Time) error {
	row := historyRow{
		UserID:       userID,
		ChatID:       chatID,
		QuestionID:   questionID,
		ChosenIndex:  chosenIndex,
		CorrectIndex: correctIndex,
		IsCorrect:    isCorrect,
		AnsweredAt:   answeredAt,
	}
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("record answer history: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
