// Package postgres holds the relational implementations backed by bun for
// writes and pgx for the read-only leaderboard path.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"telequiz/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            int64     `bun:"id,pk,autoincrement"`
	Question      string    `bun:"question,notnull"`
	Options       string    `bun:"options,notnull"`
	CorrectAnswer int       `bun:"correct_answer,notnull"`
	Category      string    `bun:"category,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:now()"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:now()"`
}

// QuestionRepository implements app.QuestionRepository on Postgres.
type QuestionRepository struct {
	db *bun.DB
}

func NewQuestionRepository(db *bun.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Insert(ctx context.Context, q domain.Question) (int64, error) {
	row, err := toQuestionRow(q)
	if err != nil {
		return 0, err
	}
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return row.ID, nil
}

func (r *QuestionRepository) Update(ctx context.Context, q domain.Question) (bool, error) {
	row, err := toQuestionRow(q)
	if err != nil {
		return false, err
	}
	res, err := r.db.NewUpdate().
		Model(&row).
		Column("question", "options", "correct_answer", "category").
		Set("updated_at = now()").
		WherePK().
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *QuestionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*questionRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *QuestionRepository) Replace(ctx context.Context, qs []domain.Question) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		keep := make([]int64, 0, len(qs))
		for _, q := range qs {
			keep = append(keep, q.ID)
		}
		del := tx.NewDelete().Model((*questionRow)(nil))
		if len(keep) > 0 {
			del = del.Where("id NOT IN (?)", bun.In(keep))
		} else {
			del = del.Where("TRUE")
		}
		if _, err := del.Exec(ctx); err != nil {
			return fmt.Errorf("replace questions: %w", err)
		}
		return nil
	})
}

func (r *QuestionRepository) List(ctx context.Context) ([]domain.Question, error) {
	var rows []questionRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		q, err := fromQuestionRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func toQuestionRow(q domain.Question) (questionRow, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return questionRow{}, err
	}
	return questionRow{
		ID:            q.ID,
		Question:      q.Text,
		Options:       string(options),
		CorrectAnswer: q.CorrectIndex,
		Category:      q.Category,
	}, nil
}

func fromQuestionRow(row questionRow) (domain.Question, error) {
	var options []string
	if err := json.Unmarshal([]byte(row.Options), &options); err != nil {
		return domain.Question{}, fmt.Errorf("decode options for question %d: %w", row.ID, err)
	}
	return domain.Question{
		ID:           row.ID,
		Text:         row.Question,
		Options:      options,
		CorrectIndex: row.CorrectAnswer,
		Category:     row.Category,
	}, nil
}
