// Package file implements the legacy JSON-file-backed stores the system ran
// on before the relational migration. Every mutation rewrites the file
// synchronously through a temp-file rename, so a crash leaves either the
// old or the new content, never a torn write.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"telequiz/internal/domain"
)

// QuestionRepository stores the ordered question list in a single JSON
// file. Ids are assigned monotonically and survive restarts.
type QuestionRepository struct {
	path string

	mu        sync.Mutex
	nextID    int64
	questions []domain.Question
}

// NewQuestionRepository opens (or creates) the question file at path.
func NewQuestionRepository(path string) (*QuestionRepository, error) {
	r := &QuestionRepository{path: path, nextID: 1}
	if err := r.load(); err != nil {
		return nil, fmt.Errorf("load questions file: %w", err)
	}
	return r, nil
}

func (r *QuestionRepository) Insert(_ context.Context, q domain.Question) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q.ID = r.nextID
	r.nextID++
	r.questions = append(r.questions, q)
	if err := r.persistLocked(); err != nil {
		r.questions = r.questions[:len(r.questions)-1]
		r.nextID--
		return 0, err
	}
	return q.ID, nil
}

func (r *QuestionRepository) Update(_ context.Context, q domain.Question) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.questions {
		if r.questions[i].ID == q.ID {
			prev := r.questions[i]
			r.questions[i] = q
			if err := r.persistLocked(); err != nil {
				r.questions[i] = prev
				return false, err
			}
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
			removed := r.questions[i]
			r.questions = append(r.questions[:i], r.questions[i+1:]...)
			if err := r.persistLocked(); err != nil {
				r.questions = append(r.questions[:i], append([]domain.Question{removed}, r.questions[i:]...)...)
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *QuestionRepository) Replace(_ context.Context, qs []domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.questions
	r.questions = append([]domain.Question(nil), qs...)
	if err := r.persistLocked(); err != nil {
		r.questions = prev
		return err
	}
	return nil
}

func (r *QuestionRepository) List(_ context.Context) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Question, len(r.questions))
	copy(out, r.questions)
	return out, nil
}

func (r *QuestionRepository) load() error {
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
	if err := json.Unmarshal(data, &r.questions); err != nil {
		return err
	}
	for _, q := range r.questions {
		if q.ID >= r.nextID {
			r.nextID = q.ID + 1
		}
	}
	return nil
}

func (r *QuestionRepository) persistLocked() error {
	return writeAtomic(r.path, r.questions)
}

// writeAtomic marshals v and swaps it into place via rename.
func writeAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
