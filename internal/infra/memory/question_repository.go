package memory

import (
	"context"
	"sync"

	"telequiz/internal/domain"
)

// QuestionRepository is an in-memory implementation of
// app.QuestionRepository, useful for tests and demo runs.
type QuestionRepository struct {
	mu        sync.Mutex
	nextID    int64
	questions []domain.Question
}

func NewQuestionRepository() *QuestionRepository {
	return &QuestionRepository{nextID: 1}
}

func (r *QuestionRepository) Insert(_ context.Context, q domain.Question) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q.ID = r.nextID
	r.nextID++
	r.questions = append(r.questions, q)
	return q.ID, nil
}

func (r *QuestionRepository) Update(_ context.Context, q domain.Question) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.questions {
		if r.questions[i].ID == q.ID {
			r.questions[i] = q
			return true, nil
		}
	}
	return false, nil
}

func (r *QuestionRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.questions {
		if r.questions[i].ID == id {
			r.questions = append(r.questions[:i], r.questions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *QuestionRepository) Replace(_ context.Context, qs []domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append([]domain.Question(nil), qs...)
	return nil
}

func (r *QuestionRepository) List(_ context.Context) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Question, len(r.questions))
	copy(out, r.questions)
	return out, nil
}
